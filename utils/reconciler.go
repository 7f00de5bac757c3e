package utils

import (
	"context"
	"time"
)

// StartCounterReconciler launches a background goroutine that periodically
// runs reconcile until ctx is done. It is best-effort and logs failures.
// A non-positive interval disables it.
func StartCounterReconciler(ctx context.Context, interval time.Duration, reconcile func(context.Context) error) {
	if interval <= 0 || reconcile == nil {
		Sugar.Info("counter reconciler disabled")
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			// wait first so startup is not slowed by a full table scan
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			runCtx, cancel := context.WithTimeout(ctx, interval)
			start := time.Now()
			if err := reconcile(runCtx); err != nil {
				Sugar.Errorf("counter reconcile failed err=%v", err)
			} else {
				Sugar.Debugf("counter reconcile done in %s", time.Since(start))
			}
			cancel()
		}
	}()
}
