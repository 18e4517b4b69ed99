package workpool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// Pool bounds the number of concurrent per-document jobs across all requests.
type Pool struct {
	pool *ants.Pool
}

func New(size int) (*Pool, error) {
	if size <= 0 {
		size = 4
	}
	pool, err := ants.NewPool(size, ants.WithPanicHandler(func(r any) {
		slog.Error("batch_job_panic", "panic", fmt.Sprint(r))
	}))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Pool{pool: pool}, nil
}

// Run submits n jobs and waits for every submitted one to finish. Jobs report their own outcome;
// Run only fails when the pool refuses work.
func (p *Pool) Run(ctx context.Context, n int, job func(ctx context.Context, i int)) error {
	var wg sync.WaitGroup
	var submitErr error
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			submitErr = err
			break
		}
		idx := i
		wg.Add(1)
		if err := p.pool.Submit(func() {
			defer wg.Done()
			job(ctx, idx)
		}); err != nil {
			wg.Done()
			submitErr = fmt.Errorf("submit job %d: %w", idx, err)
			break
		}
	}
	wg.Wait()
	return submitErr
}

func (p *Pool) Close() {
	p.pool.Release()
}
