package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/swiftguard/internal/model"
)

// DefaultConcurrency is the batch size used when none is given.
const DefaultConcurrency = 4

// Result is the outcome of one request in a batch.
type Result struct {
	Request Request
	Record  *model.PageRecord
	Err     error
}

// ProcessBatch classifies reqs concurrently, at most concurrency at a time,
// and returns their results in request order. A failed request is reported
// in its Result and does not stop the others; the returned error is only
// set when ctx is cancelled.
func (e *Engine) ProcessBatch(ctx context.Context, reqs []Request, concurrency int) ([]Result, error) {
	results := make([]Result, len(reqs))
	err := e.ProcessBatchWithCallback(ctx, reqs, concurrency, func(r Result, i int) {
		results[i] = r
	})
	return results, err
}

// ProcessBatchWithCallback is ProcessBatch that hands each result to
// callback as soon as it is ready. callback runs on the worker goroutine
// and must be safe for concurrent use.
func (e *Engine) ProcessBatchWithCallback(ctx context.Context, reqs []Request, concurrency int, callback func(r Result, index int)) error {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	e.logger.Info("starting batch classification",
		"total_pages", len(reqs),
		"concurrency", concurrency,
	)
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, req := range reqs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			res := Result{Request: req}
			if err := e.ProcessPage(ctx, req); err != nil {
				e.logger.Warn("classification failed", "key", req.Key, "error", err)
				res.Err = err
			}
			rec, err := e.store.Get(ctx, req.Key)
			if err != nil && res.Err == nil {
				res.Err = fmt.Errorf("failed to read record %s: %w", req.Key, err)
			}
			res.Record = rec
			callback(res, i)
			return nil
		})
	}

	err := g.Wait()
	e.logger.Info("batch classification complete",
		"total_pages", len(reqs),
		"elapsed", time.Since(start),
	)
	return err
}
