package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"admission-gateway/middleware/admission/domain"
)

func TestPipeline_RateLimitedShortCircuits(t *testing.T) {
	adm := &fakeAdmitter{dec: domain.Decision{Reason: domain.ReasonRateLimited, RetryAfter: 3 * time.Second}}
	p := Pipeline{Limiter: Service{Limiter: adm}}

	called := false
	res := p.Handle(context.Background(), "1.2.3.4", func(ctx context.Context, req any) (any, error) {
		called = true
		return nil, nil
	}, nil)

	if res.Verdict != VerdictRateLimited {
		t.Fatalf("expected rate_limited verdict, got %s", res.Verdict)
	}
	if called {
		t.Fatalf("expected handler not to be invoked when rejected")
	}
	if res.Decision.RetryAfter != 3*time.Second {
		t.Fatalf("expected decision carried through, got %+v", res.Decision)
	}
}

func TestPipeline_CompletedPassesResultThrough(t *testing.T) {
	p := Pipeline{Guard: TimeoutService{Timeout: 200 * time.Millisecond}}

	res := p.Handle(context.Background(), "1.2.3.4", func(ctx context.Context, req any) (any, error) {
		return "payload", nil
	}, nil)

	if res.Verdict != VerdictOK {
		t.Fatalf("expected ok verdict, got %s", res.Verdict)
	}
	if res.Response != "payload" {
		t.Fatalf("expected handler result, got %v", res.Response)
	}
}

func TestPipeline_TimedOutBecomesUnavailable(t *testing.T) {
	p := Pipeline{Guard: TimeoutService{Timeout: 20 * time.Millisecond}}

	res := p.Handle(context.Background(), "1.2.3.4", func(ctx context.Context, req any) (any, error) {
		<-ctx.Done()
		return "late", nil
	}, nil)

	if res.Verdict != VerdictUnavailable {
		t.Fatalf("expected unavailable verdict, got %s", res.Verdict)
	}
	if res.Response != nil {
		t.Fatalf("expected no response on timeout, got %v", res.Response)
	}
	if res.Outcome.Status != domain.StatusTimedOut {
		t.Fatalf("expected timed_out outcome, got %s", res.Outcome.Status)
	}
}

func TestPipeline_FailedBecomesUnavailableButKeepsClassification(t *testing.T) {
	p := Pipeline{Guard: TimeoutService{Timeout: 200 * time.Millisecond}}
	boom := errors.New("boom")

	res := p.Handle(context.Background(), "1.2.3.4", func(ctx context.Context, req any) (any, error) {
		return nil, boom
	}, nil)

	if res.Verdict != VerdictUnavailable {
		t.Fatalf("expected unavailable verdict, got %s", res.Verdict)
	}
	// o fallback externo é o mesmo do timeout, mas a classificação interna
	// continua distinta para observabilidade.
	if res.Outcome.Status != domain.StatusFailed {
		t.Fatalf("expected failed outcome, got %s", res.Outcome.Status)
	}
	if !errors.Is(res.Outcome.Err, boom) {
		t.Fatalf("expected cause preserved internally, got %v", res.Outcome.Err)
	}
}
