package janitor

import (
	"context"
	"time"

	"github.com/fileworks/fileworks/internal/logger"
	"github.com/fileworks/fileworks/internal/metrics"
	"github.com/fileworks/fileworks/internal/storage"
)

// Janitor enforces the retention policy: any stored object older than MaxAge
// is deleted, uploads and processed artifacts alike.
type Janitor struct {
	Storage  storage.Storage
	MaxAge   time.Duration
	Interval time.Duration
}

func New(st storage.Storage, maxAge, interval time.Duration) *Janitor {
	return &Janitor{Storage: st, MaxAge: maxAge, Interval: interval}
}

// Stats summarizes one sweep.
type Stats struct {
	Scanned int
	Deleted int
	Errors  int
}

// Sweep walks the whole store once and deletes expired objects. Individual
// delete failures are counted and logged but do not stop the sweep.
func (j *Janitor) Sweep(ctx context.Context) (Stats, error) {
	log := logger.FromContext(ctx)
	cutoff := time.Now().Add(-j.MaxAge)

	objects, err := j.Storage.List(ctx, "")
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	for _, obj := range objects {
		stats.Scanned++
		if !obj.ModTime.Before(cutoff) {
			continue
		}
		if err := j.Storage.Delete(ctx, obj.Key); err != nil {
			stats.Errors++
			log.Warn("retention delete failed", "key", obj.Key, "error", err)
			continue
		}
		stats.Deleted++
		log.Debug("expired object deleted", "key", obj.Key, "age", time.Since(obj.ModTime))
	}

	metrics.RecordRetentionSweep(stats.Deleted)
	log.Info("retention sweep finished",
		"scanned", stats.Scanned,
		"deleted", stats.Deleted,
		"errors", stats.Errors,
	)
	return stats, nil
}

// Run sweeps on every tick until the context is cancelled. The first sweep
// happens immediately.
func (j *Janitor) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)

	if _, err := j.Sweep(ctx); err != nil {
		log.Error("retention sweep failed", "error", err)
	}

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := j.Sweep(ctx); err != nil {
				log.Error("retention sweep failed", "error", err)
			}
		}
	}
}
