package application

import (
	"time"

	"admission-gateway/middleware/admission/domain"
)

// Service concentra a regra de aplicação do rate limit.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Service struct {
	Limiter domain.Admitter
	// Clock permite tempo determinístico em testes. Nil usa time.Now.
	Clock domain.Clock
	// RetryAfter é usado quando o Limiter bloqueia sem recomendação própria.
	RetryAfter time.Duration
}

func (s Service) Decide(key domain.Key) domain.Decision {
	if s.Limiter == nil {
		return domain.Decision{Admitted: true, Reason: domain.ReasonOK}
	}
	if s.RetryAfter <= 0 {
		s.RetryAfter = 1 * time.Second
	}

	now := time.Now()
	if s.Clock != nil {
		now = s.Clock()
	}

	dec := s.Limiter.Admit(key, now)
	if !dec.Admitted && dec.RetryAfter <= 0 {
		dec.RetryAfter = s.RetryAfter
	}
	return dec
}
