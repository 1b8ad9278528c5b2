package admission

import (
	"context"
	"sync"
	"time"
)

// Acumulador de tempo de banco por request, carregado no contexto.
//
// Substitui estado ambiente (thread-local) por um valor explícito no ctx:
// a camada de dados chama AddDBTime e a instrumentação lê DBTime no fim da
// request, sem nenhum acoplamento entre as duas.

type dbTimerKey struct{}

type dbTimer struct {
	mu    sync.Mutex
	total time.Duration
}

// WithDBTimer instala um acumulador zerado no contexto.
func WithDBTimer(ctx context.Context) context.Context {
	return context.WithValue(ctx, dbTimerKey{}, &dbTimer{})
}

// AddDBTime soma `d` ao acumulador do contexto. Sem acumulador instalado é
// um no-op: código de dados pode chamar incondicionalmente.
func AddDBTime(ctx context.Context, d time.Duration) {
	t, ok := ctx.Value(dbTimerKey{}).(*dbTimer)
	if !ok {
		return
	}
	t.mu.Lock()
	t.total += d
	t.mu.Unlock()
}

// DBTime lê o total acumulado. Sem acumulador, zero.
func DBTime(ctx context.Context) time.Duration {
	t, ok := ctx.Value(dbTimerKey{}).(*dbTimer)
	if !ok {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// TrackDB mede a duração de `fn` e credita no acumulador do contexto.
// Conveniência para instrumentar chamadas de banco pontuais.
func TrackDB(ctx context.Context, fn func() error) error {
	start := time.Now()
	err := fn()
	AddDBTime(ctx, time.Since(start))
	return err
}
