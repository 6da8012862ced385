package health

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a non-critical component is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates a critical component is failing.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// DefaultTimeout bounds one Check run.
const DefaultTimeout = 2 * time.Second

// Check is one named dependency. A failing critical check makes the
// service Unhealthy, a failing optional one Degraded.
type Check struct {
	Name     string
	Critical bool
	Pinger   Pinger
}

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	checks  []Check
	timeout time.Duration
}

// New creates a Service over the given checks.
func New(checks ...Check) *Service {
	return &Service{checks: checks, timeout: DefaultTimeout}
}

// Check runs every health check concurrently.
func (s *Service) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	results := make([]CheckResult, len(s.checks))
	var g errgroup.Group
	for i, c := range s.checks {
		g.Go(func() error {
			if err := c.Pinger.Ping(ctx); err != nil {
				results[i] = CheckError
			} else {
				results[i] = CheckOK
			}
			return nil
		})
	}
	_ = g.Wait()

	status := Healthy
	checks := make(map[string]CheckResult, len(s.checks))
	for i, c := range s.checks {
		checks[c.Name] = results[i]
		if results[i] != CheckError {
			continue
		}
		if c.Critical {
			status = Unhealthy
		} else if status == Healthy {
			status = Degraded
		}
	}

	return Report{Status: status, Checks: checks}
}
