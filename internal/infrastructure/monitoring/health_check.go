package monitoring

import (
	"context"
	"sync"
	"time"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

type HealthChecker struct {
	checks []HealthCheck
	mu     sync.RWMutex

	// last holds the most recent background result per check.
	last   map[string]string
	lastMu sync.RWMutex
	now    func() time.Time
}

type HealthCheck struct {
	Name     string
	Check    func(ctx context.Context) (bool, error)
	Interval time.Duration
	Timeout  time.Duration
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks: make([]HealthCheck, 0),
		last:   make(map[string]string),
		now:    time.Now,
	}
}

func (h *HealthChecker) AddCheck(name string, check func(ctx context.Context) (bool, error), interval, timeout time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.checks = append(h.checks, HealthCheck{
		Name:     name,
		Check:    check,
		Interval: interval,
		Timeout:  timeout,
	})
}

// CheckAll runs every check now.
func (h *HealthChecker) CheckAll(ctx context.Context) HealthStatus {
	h.mu.RLock()
	checks := append([]HealthCheck(nil), h.checks...)
	h.mu.RUnlock()

	status := HealthStatus{
		Status:    StatusHealthy,
		Timestamp: h.now(),
		Checks:    make(map[string]string, len(checks)),
	}

	for _, check := range checks {
		result := runCheck(ctx, check)
		if result != StatusHealthy {
			status.Status = StatusUnhealthy
		}
		status.Checks[check.Name] = result
	}

	return status
}

// Snapshot returns the latest background results without running checks.
// Checks that have not completed a run yet are reported as pending.
func (h *HealthChecker) Snapshot() HealthStatus {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for _, c := range h.checks {
		names = append(names, c.Name)
	}
	h.mu.RUnlock()

	h.lastMu.RLock()
	defer h.lastMu.RUnlock()

	status := HealthStatus{
		Status:    StatusHealthy,
		Timestamp: h.now(),
		Checks:    make(map[string]string, len(names)),
	}
	for _, name := range names {
		result, ok := h.last[name]
		if !ok {
			result = "pending"
		}
		if result != StatusHealthy {
			status.Status = StatusUnhealthy
		}
		status.Checks[name] = result
	}
	return status
}

func (h *HealthChecker) StartBackgroundChecks(ctx context.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, check := range h.checks {
		go h.runCheckPeriodically(ctx, check)
	}
}

func (h *HealthChecker) runCheckPeriodically(ctx context.Context, check HealthCheck) {
	h.store(check.Name, runCheck(ctx, check))

	ticker := time.NewTicker(check.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.store(check.Name, runCheck(ctx, check))
		}
	}
}

func (h *HealthChecker) store(name, result string) {
	h.lastMu.Lock()
	h.last[name] = result
	h.lastMu.Unlock()
}

func runCheck(ctx context.Context, check HealthCheck) string {
	checkCtx, cancel := context.WithTimeout(ctx, check.Timeout)
	defer cancel()

	healthy, err := check.Check(checkCtx)
	switch {
	case err != nil:
		return err.Error()
	case !healthy:
		return "check failed"
	default:
		return StatusHealthy
	}
}
