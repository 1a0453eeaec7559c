package monitoring

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// pinger is satisfied by *redis.Client.
type pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// detectorHealth is satisfied by the landmark detector.
type detectorHealth interface {
	Health(ctx context.Context) error
}

// AddRedisCheck adds a Redis health check
func (h *HealthChecker) AddRedisCheck(client pinger, interval, timeout time.Duration) {
	h.AddCheck("redis", func(ctx context.Context) (bool, error) {
		if err := client.Ping(ctx).Err(); err != nil {
			return false, err
		}
		return true, nil
	}, interval, timeout)
}

// AddDetectorCheck adds a check against the landmark detector's health endpoint
func (h *HealthChecker) AddDetectorCheck(detector detectorHealth, interval, timeout time.Duration) {
	h.AddCheck("landmark_detector", func(ctx context.Context) (bool, error) {
		if err := detector.Health(ctx); err != nil {
			return false, err
		}
		return true, nil
	}, interval, timeout)
}

// IsReady checks if the service is ready to accept traffic
func (h *HealthChecker) IsReady(ctx context.Context) bool {
	return h.CheckAll(ctx).Status == StatusHealthy
}
