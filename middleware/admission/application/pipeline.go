package application

import (
	"context"

	"admission-gateway/middleware/admission/domain"
)

// Verdict é o resultado agregado do pipeline, independente de transporte.
// O adapter HTTP traduz para status codes (429/503).
type Verdict int

const (
	VerdictOK Verdict = iota
	VerdictRateLimited
	VerdictUnavailable
)

func (v Verdict) String() string {
	switch v {
	case VerdictOK:
		return "ok"
	case VerdictRateLimited:
		return "rate_limited"
	}
	return "unavailable"
}

type Result struct {
	Verdict  Verdict
	Decision domain.Decision
	Outcome  domain.Outcome
	// Response é a saída do handler, presente só quando Verdict == VerdictOK.
	Response any
}

// Pipeline compõe rate limit e guarda de timeout em uma única sequência de
// decisão por request.
//
// Ordem: primeiro a admissão (barata, sem tocar o handler); só depois a
// execução guardada. Nenhum retry acontece aqui: política de retry, se houver,
// é do chamador.
type Pipeline struct {
	Limiter Service
	Guard   TimeoutService
}

// Handle nunca propaga falha: sempre produz um Result bem formado.
func (p Pipeline) Handle(ctx context.Context, key domain.Key, handler domain.Handler, req any) Result {
	dec := p.Limiter.Decide(key)
	if !dec.Admitted {
		return Result{Verdict: VerdictRateLimited, Decision: dec}
	}

	out := p.Guard.Execute(ctx, handler, req)
	if out.Status == domain.StatusCompleted {
		return Result{Verdict: VerdictOK, Decision: dec, Outcome: out, Response: out.Result}
	}
	return Result{Verdict: VerdictUnavailable, Decision: dec, Outcome: out}
}
