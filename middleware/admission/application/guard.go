package application

import (
	"context"
	"fmt"
	"time"

	"admission-gateway/middleware/admission/domain"
)

// TimeoutService executa handlers em vagas limitadas e impõe um deadline de
// relógio de parede, sem saber nada sobre HTTP.
//
// Backpressure: quando nenhuma vaga é adquirida dentro de AcquireTimeout, a
// execução termina em StatusRejected sem rodar o handler. Não há fila
// ilimitada: a espera por vaga é o único enfileiramento, e é limitada.
type TimeoutService struct {
	Pool domain.SlotPool
	// Timeout limita o tempo de execução do handler. Deve ser menor que o
	// timeout de qualquer proxy upstream, para que a resposta saia daqui.
	Timeout time.Duration
	// AcquireTimeout limita a espera por vaga.
	// - Se <= 0, espera indefinidamente (até ctx cancelar).
	AcquireTimeout time.Duration
}

const defaultTimeout = 20 * time.Second

// Execute roda handler(req) em uma vaga do pool e espera até Timeout.
//
// No estouro do deadline o ctx da tarefa é cancelado (cooperativo) e o
// resultado eventual do handler é descartado; a vaga só é liberada quando o
// handler de fato retornar.
func (s TimeoutService) Execute(ctx context.Context, handler domain.Handler, req any) domain.Outcome {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	release, ok := s.acquire(ctx)
	if !ok {
		return domain.Outcome{Status: domain.StatusRejected}
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// buffer 1: a goroutine nunca fica presa mesmo se ninguém estiver lendo.
	done := make(chan domain.Outcome, 1)
	go func() {
		defer release()
		done <- run(taskCtx, handler, req)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		return out
	case <-timer.C:
		return domain.Outcome{Status: domain.StatusTimedOut}
	}
}

func (s TimeoutService) acquire(ctx context.Context) (func(), bool) {
	if s.Pool == nil {
		return func() {}, true
	}

	if s.AcquireTimeout <= 0 {
		return s.Pool.Acquire(ctx)
	}

	acqCtx, cancel := context.WithTimeout(ctx, s.AcquireTimeout)
	defer cancel()
	return s.Pool.Acquire(acqCtx)
}

// run isola o recover: um panic do handler vira StatusFailed, nunca derruba
// o chamador.
func run(ctx context.Context, handler domain.Handler, req any) (out domain.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = domain.Outcome{Status: domain.StatusFailed, Err: fmt.Errorf("handler panic: %v", r)}
		}
	}()

	res, err := handler(ctx, req)
	if err != nil {
		return domain.Outcome{Status: domain.StatusFailed, Err: err}
	}
	return domain.Outcome{Status: domain.StatusCompleted, Result: res}
}
