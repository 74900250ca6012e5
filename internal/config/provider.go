package config

import (
	"context"
	"time"

	"github.com/procurekit/approval-engine/internal/application/port"
	"github.com/procurekit/approval-engine/internal/domain/entity"
)

// Provider serves the loaded configuration through the ConfigurationProvider
// port. The snapshot is immutable after construction; a configuration change
// requires a restart and never alters in-flight requests, whose threshold
// was snapshotted at creation.
type Provider struct {
	thresholds []entity.ApprovalThreshold
	levels     []entity.EscalationLevel
	holidays   []time.Time
}

// NewProvider builds a provider from validated configuration
func NewProvider(cfg *Config) *Provider {
	holidays := make([]time.Time, 0, len(cfg.Approval.Holidays))
	for _, h := range cfg.Approval.Holidays {
		// Validate() already guaranteed the format.
		t, err := time.Parse("2006-01-02", h)
		if err != nil {
			continue
		}
		holidays = append(holidays, t)
	}

	return &Provider{
		thresholds: cfg.Approval.Thresholds,
		levels:     cfg.Approval.EscalationLevels,
		holidays:   holidays,
	}
}

// Thresholds returns the configured threshold table
func (p *Provider) Thresholds(ctx context.Context) ([]entity.ApprovalThreshold, error) {
	return p.thresholds, nil
}

// EscalationLevels returns the ladder ordered ascending by level
func (p *Provider) EscalationLevels(ctx context.Context) ([]entity.EscalationLevel, error) {
	return p.levels, nil
}

// Holidays returns the configured holiday dates
func (p *Provider) Holidays(ctx context.Context) ([]time.Time, error) {
	return p.holidays, nil
}

// Verify interface compliance
var _ port.ConfigurationProvider = (*Provider)(nil)
