package verify

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/sells-group/email-finder/internal/model"
)

// DefaultBatchConcurrency bounds concurrent SMTP checks in a batch.
const DefaultBatchConcurrency = 5

// Batch verifies many addresses under a semaphore separate from the crawl
// gate. A panicking check is logged and left out of the results.
type Batch struct {
	v   Verifier
	sem *semaphore.Weighted
}

// NewBatch creates a Batch over v with the given concurrency.
func NewBatch(v Verifier, concurrency int) *Batch {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}
	return &Batch{v: v, sem: semaphore.NewWeighted(int64(concurrency))}
}

// VerifyAll checks every address and returns signals in input order.
// Addresses not started before ctx ends are omitted.
func (b *Batch) VerifyAll(ctx context.Context, addrs []string) []model.SMTPSignal {
	slots := make([]*model.SMTPSignal, len(addrs))

	var wg sync.WaitGroup
	for i, addr := range addrs {
		if ctx.Err() != nil {
			break
		}
		if err := b.sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer b.sem.Release(1)
			sig, err := b.verifyOne(ctx, addr)
			if err != nil {
				zap.L().Error("verify: batch item failed", zap.String("address", addr), zap.Error(err))
				return
			}
			slots[i] = &sig
		}()
	}
	wg.Wait()

	out := make([]model.SMTPSignal, 0, len(addrs))
	for _, s := range slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}

func (b *Batch) verifyOne(ctx context.Context, addr string) (sig model.SMTPSignal, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("verify: panic: %v", r)
		}
	}()
	return b.v.Verify(ctx, addr), nil
}
