package checks

import (
	"context"
	"time"

	"github.com/charlesng35/campushub/internal/monitoring"
)

const defaultStorageTimeout = 3 * time.Second

// StoragePinger is satisfied by every object storage backend.
type StoragePinger interface {
	Ping(ctx context.Context) error
}

// Storage returns a readiness probe for the upload backend. A failing backend degrades the service
// rather than taking it down, since reads of stored content do not depend on it.
func Storage(store StoragePinger, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("storage", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if store == nil {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  "storage not configured",
				Duration: time.Since(start),
			}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultStorageTimeout))
		defer cancel()

		if err := store.Ping(probeCtx); err != nil {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  err.Error(),
				Duration: time.Since(start),
			}
		}
		return monitoring.ProbeResult{Status: monitoring.StatusUp, Duration: time.Since(start)}
	})
}
