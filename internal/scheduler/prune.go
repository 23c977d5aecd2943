package scheduler

import (
	"context"

	"github.com/newthinker/folio/internal/cache"
	"go.uber.org/zap"
)

// PruneObserver is told how many entries each prune removed.
type PruneObserver interface {
	RecordCachePrune(removed int)
}

// PruneJob drops expired market data from a cache.
type PruneJob struct {
	cache    cache.Cache
	logger   *zap.Logger
	observer PruneObserver
}

// NewPruneJob creates a prune job. observer may be nil.
func NewPruneJob(c cache.Cache, logger *zap.Logger, observer PruneObserver) *PruneJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PruneJob{cache: c, logger: logger, observer: observer}
}

func (j *PruneJob) Name() string { return "cache-prune" }

func (j *PruneJob) Run(ctx context.Context) error {
	removed, err := j.cache.Prune(ctx)
	if err != nil {
		return err
	}
	if j.observer != nil {
		j.observer.RecordCachePrune(removed)
	}
	if removed > 0 {
		j.logger.Info("cache pruned", zap.Int("removed", removed))
	}
	return nil
}
