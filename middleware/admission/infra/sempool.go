package infra

import (
	"context"

	"admission-gateway/middleware/admission/domain"

	"golang.org/x/sync/semaphore"
)

type semPool struct {
	sem *semaphore.Weighted
}

// NewSemPool cria um pool de vagas com capacidade `max`, baseado em semáforo
// ponderado. Acquire respeita deadline/cancelamento do ctx.
func NewSemPool(max int) domain.SlotPool {
	return &semPool{sem: semaphore.NewWeighted(int64(max))}
}

func (p *semPool) Acquire(ctx context.Context) (func(), bool) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, false
	}
	return func() { p.sem.Release(1) }, true
}
