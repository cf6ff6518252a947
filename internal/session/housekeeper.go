package session

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	slogctx "github.com/veqryn/slog-context"
)

// RunHousekeeper sweeps expired sessions every interval until ctx is done.
// It does not coordinate with in-flight requests; a request may still hold a
// snapshot of a session that is removed underneath it.
func RunHousekeeper(ctx context.Context, store Store, interval time.Duration) {
	swept, err := otel.Meter("interviewguru/session").Int64Counter(
		"session.swept",
		metric.WithDescription("Sessions removed by the age sweep"),
	)
	if err != nil {
		slogctx.Warn(ctx, "failed to create sweep counter", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := store.Sweep(ctx)
			if removed == 0 {
				continue
			}
			if swept != nil {
				swept.Add(ctx, int64(removed))
			}
			slogctx.Info(ctx, "swept expired sessions", "removed", removed, "remaining", store.Len())
		case <-ctx.Done():
			return
		}
	}
}
