package pool

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Checker-Finance/adviser-fees/pkg/model"
)

// RecordProcessor classifies a single record. *engine.Processor satisfies it.
type RecordProcessor interface {
	Process(raw model.RawRecord) model.OutputRow
}

// Pool fans records out over a bounded number of goroutines.
type Pool struct {
	processor RecordProcessor
	workers   int
	logger    *zap.Logger
}

// New returns a Pool running at most workers records at once. A
// non-positive worker count means one per CPU.
func New(processor RecordProcessor, workers int, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{processor: processor, workers: workers, logger: logger}
}

func (p *Pool) Workers() int { return p.workers }

// Run processes records and returns one row per record in input order.
// Each unit of work is tagged with its position, so completion order does
// not matter. Cancelling ctx stops scheduling new records; rows already
// produced are discarded and ctx's error is returned.
func (p *Pool) Run(ctx context.Context, records []model.RawRecord) ([]model.OutputRow, error) {
	start := time.Now()
	results := make([]model.OutputRow, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i := range records {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
				results[i] = p.processor.Process(records[i])
				return nil
			}
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.logger.Debug("pool.batch_done",
		zap.Int("records", len(records)),
		zap.Int("workers", p.workers),
		zap.Duration("elapsed", time.Since(start)))
	return results, nil
}
