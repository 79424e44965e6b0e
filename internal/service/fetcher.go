package service

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/spiffcs/devpulse/internal/log"
)

// source is one independent upstream query of a computation. run stores
// its own result; onItem reports per-item fan-out progress.
type source struct {
	name string
	run  func(ctx context.Context, onItem func(done, total int)) error
}

// fetchAll runs sources in parallel. The first failure cancels the others
// and is returned; nothing fetched by the other sources is kept.
func fetchAll(ctx context.Context, sources []source, r *reporter) error {
	r.progress(StageFetch, 0, len(sources))

	var completed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		g.Go(func() error {
			err := src.run(gctx, func(done, total int) {
				r.detail(src.name, done, total)
			})
			if err != nil {
				log.Debug("source failed", "source", src.name, "error", err)
				return err
			}
			r.progress(StageFetch, int(completed.Add(1)), len(sources))
			return nil
		})
	}
	return g.Wait()
}
