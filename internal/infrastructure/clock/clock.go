package clock

import (
	"time"

	"github.com/procurekit/approval-engine/internal/application/port"
)

// System is the wall clock. All timing logic in the services goes through
// the Clock port so tests can substitute a deterministic clock.
type System struct{}

// New returns the system clock
func New() System {
	return System{}
}

// Now returns the current time in UTC
func (System) Now() time.Time {
	return time.Now().UTC()
}

// Verify interface compliance
var _ port.Clock = System{}
