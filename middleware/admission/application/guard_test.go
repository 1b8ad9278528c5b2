package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"admission-gateway/middleware/admission/domain"
)

type blockingPool struct{}

func (p *blockingPool) Acquire(ctx context.Context) (func(), bool) {
	select {
	case <-ctx.Done():
		return nil, false
	case <-time.After(5 * time.Second):
		// não deve chegar aqui nos testes
		return nil, false
	}
}

type immediatePool struct {
	acquired int
	released int
}

func (p *immediatePool) Acquire(ctx context.Context) (func(), bool) {
	p.acquired++
	return func() { p.released++ }, true
}

func TestTimeoutService_CompletedWithinDeadline(t *testing.T) {
	svc := TimeoutService{Timeout: 200 * time.Millisecond}

	out := svc.Execute(context.Background(), func(ctx context.Context, req any) (any, error) {
		return "result:" + req.(string), nil
	}, "abc")

	if out.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", out.Status)
	}
	if out.Result != "result:abc" {
		t.Fatalf("expected the handler's true result, got %v", out.Result)
	}
}

func TestTimeoutService_TimedOutReturnsImmediatelyAndCancels(t *testing.T) {
	svc := TimeoutService{Timeout: 20 * time.Millisecond}

	observed := make(chan struct{})
	start := time.Now()
	out := svc.Execute(context.Background(), func(ctx context.Context, req any) (any, error) {
		<-ctx.Done()
		close(observed)
		return "late", nil
	}, nil)

	if out.Status != domain.StatusTimedOut {
		t.Fatalf("expected timed_out, got %s", out.Status)
	}
	if out.Result != nil {
		t.Fatalf("expected late result discarded, got %v", out.Result)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("expected guard to stop waiting at the deadline, took %s", elapsed)
	}

	// o cancelamento cooperativo deve chegar no handler
	select {
	case <-observed:
	case <-time.After(time.Second):
		t.Fatalf("expected handler to observe cancellation")
	}
}

func TestTimeoutService_HandlerErrorBecomesFailed(t *testing.T) {
	svc := TimeoutService{Timeout: 200 * time.Millisecond}
	boom := errors.New("boom")

	out := svc.Execute(context.Background(), func(ctx context.Context, req any) (any, error) {
		return nil, boom
	}, nil)

	if out.Status != domain.StatusFailed {
		t.Fatalf("expected failed, got %s", out.Status)
	}
	if !errors.Is(out.Err, boom) {
		t.Fatalf("expected the handler error captured, got %v", out.Err)
	}
}

func TestTimeoutService_HandlerPanicBecomesFailed(t *testing.T) {
	svc := TimeoutService{Timeout: 200 * time.Millisecond}

	out := svc.Execute(context.Background(), func(ctx context.Context, req any) (any, error) {
		panic("kaboom")
	}, nil)

	if out.Status != domain.StatusFailed {
		t.Fatalf("expected failed, got %s", out.Status)
	}
	if out.Err == nil {
		t.Fatalf("expected panic captured as error")
	}
}

func TestTimeoutService_RejectedWhenNoSlot(t *testing.T) {
	svc := TimeoutService{Pool: &blockingPool{}, AcquireTimeout: 10 * time.Millisecond, Timeout: time.Second}

	called := false
	out := svc.Execute(context.Background(), func(ctx context.Context, req any) (any, error) {
		called = true
		return nil, nil
	}, nil)

	if out.Status != domain.StatusRejected {
		t.Fatalf("expected rejected, got %s", out.Status)
	}
	if called {
		t.Fatalf("expected handler not to run without a slot")
	}
}

func TestTimeoutService_ReleasesSlotAfterCompletion(t *testing.T) {
	pool := &immediatePool{}
	svc := TimeoutService{Pool: pool, Timeout: 200 * time.Millisecond}

	svc.Execute(context.Background(), func(ctx context.Context, req any) (any, error) {
		return nil, nil
	}, nil)

	// a goroutine libera a vaga ao terminar; dá uma folga mínima
	deadline := time.Now().Add(time.Second)
	for pool.released == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if pool.acquired != 1 || pool.released != 1 {
		t.Fatalf("expected 1 acquire / 1 release, got %d/%d", pool.acquired, pool.released)
	}
}
