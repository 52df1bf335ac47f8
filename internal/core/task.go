package core

import (
	"context"
	"log"
	"time"
)

const (
	cleanupInitialDelay = 20 * time.Second
	cleanupInterval     = time.Hour
)

// Pruner deletes closed helper-process records older than a retention.
type Pruner interface {
	Prune(retention time.Duration) (int64, error)
}

// BackgroundTaskDeps holds what the background tasks need.
type BackgroundTaskDeps struct {
	Registry  Pruner
	Retention time.Duration
}

// StartBackgroundTasks runs the hourly cleanup until ctx is done.
func StartBackgroundTasks(ctx context.Context, deps BackgroundTaskDeps) {
	go func() {
		if !sleepCtx(ctx, cleanupInitialDelay) {
			return
		}
		deps.runCleanupTasks()

		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deps.runCleanupTasks()
			}
		}
	}()

	log.Println("[Task] Background tasks started (cleanup:1h)")
}

func (d *BackgroundTaskDeps) runCleanupTasks() {
	if d.Registry == nil || d.Retention <= 0 {
		return
	}
	deleted, err := d.Registry.Prune(d.Retention)
	if err != nil {
		log.Printf("[Task] Failed to prune process records: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("[Task] Deleted %d process records older than %v", deleted, d.Retention)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
