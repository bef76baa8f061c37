package checks

import (
	"context"
	"fmt"
	"time"

	"github.com/goout-id/goout/internal/cache"
	"github.com/goout-id/goout/internal/monitoring"
)

const cacheProbeKey = "health:probe"

// Cache returns a probe that writes and reads back a short-lived key. A
// failing cache only degrades the service; rate limits fail open without it.
func Cache(store cache.Store, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("cache", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if store == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "cache not configured"}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout))
		defer cancel()

		value := []byte(start.UTC().Format(time.RFC3339Nano))
		if err := store.Set(probeCtx, cacheProbeKey, value, 5*time.Second); err != nil {
			return degraded(err, start)
		}
		got, ok, err := store.Get(probeCtx, cacheProbeKey)
		if err != nil {
			return degraded(err, start)
		}
		if !ok || string(got) != string(value) {
			return degraded(fmt.Errorf("probe value not read back"), start)
		}
		return monitoring.ProbeResult{Status: monitoring.StatusUp, Duration: time.Since(start)}
	})
}

func degraded(err error, start time.Time) monitoring.ProbeResult {
	return monitoring.ProbeResult{
		Status:   monitoring.StatusDegraded,
		Details:  err.Error(),
		Duration: time.Since(start),
	}
}
