package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/procurekit/approval-engine/internal/application/service"
	"github.com/procurekit/approval-engine/internal/domain/entity"
)

// AuditTrailReader exposes the audit log read side to the API
type AuditTrailReader interface {
	ListByPurchaseOrder(ctx context.Context, purchaseOrderID string) ([]*entity.AuditEntry, error)
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	requests    service.RequestService
	escalations service.EscalationService
	bulk        service.BulkService
	stats       service.StatsService
	auditTrail  AuditTrailReader
	logger      Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	requests service.RequestService,
	escalations service.EscalationService,
	bulk service.BulkService,
	stats service.StatsService,
	auditTrail AuditTrailReader,
	logger Logger,
) *Handlers {
	return &Handlers{
		requests:    requests,
		escalations: escalations,
		bulk:        bulk,
		stats:       stats,
		auditTrail:  auditTrail,
		logger:      logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CreateRequestBody is the payload for opening an approval request
type CreateRequestBody struct {
	PurchaseOrderID string            `json:"purchase_order_id" binding:"required"`
	AmountCents     int64             `json:"amount_cents"`
	Attributes      map[string]string `json:"attributes"`
	Metadata        map[string]string `json:"metadata"`
	RequesterID     string            `json:"requester_id"`
	RequesterEmail  string            `json:"requester_email"`
}

// DecisionBody is the payload for one approver's verdict
type DecisionBody struct {
	Approved      bool   `json:"approved"`
	ApproverID    string `json:"approver_id" binding:"required"`
	ApproverRole  string `json:"approver_role" binding:"required"`
	ApproverEmail string `json:"approver_email"`
	Reason        string `json:"reason"`
	Comments      string `json:"comments"`
}

// BulkBody is the payload for bulk approve and reject
type BulkBody struct {
	RequestIDs    []string `json:"request_ids" binding:"required"`
	ApproverID    string   `json:"approver_id" binding:"required"`
	ApproverRole  string   `json:"approver_role" binding:"required"`
	ApproverEmail string   `json:"approver_email"`
	Reason        string   `json:"reason"`
}

// EscalateBody is the payload for manual escalation
type EscalateBody struct {
	Reason string `json:"reason"`
}

// CleanupBody is the payload for the retention cleanup endpoint
type CleanupBody struct {
	OlderThanDays int `json:"older_than_days" binding:"required,min=1"`
}

// DecisionResponse reports the outcome of a decision submission
type DecisionResponse struct {
	Request   *entity.ApprovalRequest `json:"request"`
	Status    entity.Status           `json:"status"`
	Remaining int                     `json:"remaining"`
	Message   string                  `json:"message"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// CreateRequest handles POST /api/v1/requests
func (h *Handlers) CreateRequest(c *gin.Context) {
	var body CreateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}
	if body.AmountCents < 0 {
		c.JSON(http.StatusUnprocessableEntity, Response{
			Success: false,
			Error:   "amount_cents must not be negative",
		})
		return
	}

	req, err := h.requests.Create(c.Request.Context(), service.CreateOrder{
		PurchaseOrderID: body.PurchaseOrderID,
		AmountCents:     body.AmountCents,
		Attributes:      body.Attributes,
		Metadata:        body.Metadata,
	}, service.Actor{ID: body.RequesterID, Email: body.RequesterEmail})
	if err != nil {
		h.serviceError(c, err)
		return
	}

	if req == nil {
		// No threshold matched: the order needs no approval gate.
		c.JSON(http.StatusOK, Response{
			Success: true,
			Data:    gin.H{"approval_required": false},
		})
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    req,
	})
}

// GetRequest handles GET /api/v1/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	req, err := h.requests.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    req,
	})
}

// ListRequests handles GET /api/v1/requests?purchase_order_id=
func (h *Handlers) ListRequests(c *gin.Context) {
	poID := c.Query("purchase_order_id")
	if poID == "" {
		c.JSON(http.StatusUnprocessableEntity, Response{
			Success: false,
			Error:   "purchase_order_id query parameter is required",
		})
		return
	}

	reqs, err := h.requests.GetByPurchaseOrder(c.Request.Context(), poID)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    reqs,
	})
}

// ListPending handles GET /api/v1/requests/pending?role=
func (h *Handlers) ListPending(c *gin.Context) {
	role, ok := entity.ParseRole(c.Query("role"))
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, Response{
			Success: false,
			Error:   "unknown role",
		})
		return
	}

	reqs, err := h.requests.GetPendingForRole(c.Request.Context(), role)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    reqs,
	})
}

// ListOverdue handles GET /api/v1/requests/overdue
func (h *Handlers) ListOverdue(c *gin.Context) {
	reqs, err := h.requests.GetOverdue(c.Request.Context())
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    reqs,
	})
}

// SubmitDecision handles POST /api/v1/requests/:id/decisions
func (h *Handlers) SubmitDecision(c *gin.Context) {
	var body DecisionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "invalid decision body", err)
		return
	}

	role, ok := entity.ParseRole(body.ApproverRole)
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, Response{
			Success: false,
			Error:   "unknown approver role",
		})
		return
	}

	result, err := h.requests.SubmitDecision(c.Request.Context(), c.Param("id"), entity.ApprovalDecision{
		Approved:      body.Approved,
		ApproverID:    body.ApproverID,
		ApproverRole:  role,
		ApproverEmail: body.ApproverEmail,
		Reason:        body.Reason,
		Comments:      body.Comments,
	})
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: DecisionResponse{
			Request:   result.Request,
			Status:    result.Status,
			Remaining: result.Remaining,
			Message:   result.Message,
		},
	})
}

// ListEscalations handles GET /api/v1/requests/:id/escalations
func (h *Handlers) ListEscalations(c *gin.Context) {
	escs, err := h.requests.GetEscalations(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    escs,
	})
}

// EscalateRequest handles POST /api/v1/requests/:id/escalate
func (h *Handlers) EscalateRequest(c *gin.Context) {
	// An empty or absent body is fine; the reason defaults to manual.
	var body EscalateBody
	_ = c.ShouldBindJSON(&body)

	reason := entity.EscalationManual
	if body.Reason == string(entity.EscalationBusinessRule) {
		reason = entity.EscalationBusinessRule
	}

	esc, err := h.escalations.Escalate(c.Request.Context(), c.Param("id"), reason)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    esc,
	})
}

// BulkApprove handles POST /api/v1/requests/bulk/approve
func (h *Handlers) BulkApprove(c *gin.Context) {
	h.bulkDecision(c, true)
}

// BulkReject handles POST /api/v1/requests/bulk/reject
func (h *Handlers) BulkReject(c *gin.Context) {
	h.bulkDecision(c, false)
}

func (h *Handlers) bulkDecision(c *gin.Context, approve bool) {
	var body BulkBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "invalid bulk body", err)
		return
	}

	role, ok := entity.ParseRole(body.ApproverRole)
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, Response{
			Success: false,
			Error:   "unknown approver role",
		})
		return
	}

	actor := service.Actor{ID: body.ApproverID, Role: role, Email: body.ApproverEmail}

	var result *service.BulkResult
	if approve {
		result = h.bulk.BulkApprove(c.Request.Context(), body.RequestIDs, actor, body.Reason)
	} else {
		result = h.bulk.BulkReject(c.Request.Context(), body.RequestIDs, actor, body.Reason)
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    result,
	})
}

// ProcessEscalations handles POST /api/v1/escalations/process
func (h *Handlers) ProcessEscalations(c *gin.Context) {
	escs, err := h.escalations.ProcessEscalations(c.Request.Context())
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"escalated":   len(escs),
			"escalations": escs,
		},
	})
}

// Statistics handles GET /api/v1/statistics
func (h *Handlers) Statistics(c *gin.Context) {
	stats, err := h.stats.Compute(c.Request.Context())
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    stats,
	})
}

// AuditTrail handles GET /api/v1/audit?purchase_order_id=
func (h *Handlers) AuditTrail(c *gin.Context) {
	poID := c.Query("purchase_order_id")
	if poID == "" {
		c.JSON(http.StatusUnprocessableEntity, Response{
			Success: false,
			Error:   "purchase_order_id query parameter is required",
		})
		return
	}

	entries, err := h.auditTrail.ListByPurchaseOrder(c.Request.Context(), poID)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    entries,
	})
}

// Cleanup handles POST /api/v1/maintenance/cleanup
func (h *Handlers) Cleanup(c *gin.Context) {
	var body CleanupBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "invalid cleanup body", err)
		return
	}

	deleted, err := h.requests.Cleanup(c.Request.Context(), time.Duration(body.OlderThanDays)*24*time.Hour)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    gin.H{"deleted": deleted},
	})
}

func (h *Handlers) badRequest(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, "error", err)
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   msg,
	})
}

// serviceError maps the domain error taxonomy onto HTTP status codes
func (h *Handlers) serviceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, entity.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, entity.ErrInvalidStatus),
		errors.Is(err, entity.ErrDuplicateDecision),
		errors.Is(err, entity.ErrConcurrentModification):
		status = http.StatusConflict
	case errors.Is(err, entity.ErrUnauthorizedRole):
		status = http.StatusForbidden
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "error", err)
	}

	c.JSON(status, Response{
		Success: false,
		Error:   err.Error(),
	})
}
