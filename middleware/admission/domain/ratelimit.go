package domain

// Camada de domínio do controle de admissão.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import "time"

type Key string

// Clock abstrai o "agora" para que as decisões de admissão sejam testáveis
// com tempo determinístico. Zero value: usa time.Now via quem consome.
type Clock func() time.Time

// Reason explica por que uma decisão foi tomada.
type Reason int

const (
	ReasonOK Reason = iota
	ReasonRateLimited
)

func (r Reason) String() string {
	if r == ReasonRateLimited {
		return "rate_limited"
	}
	return "ok"
}

// Admitter decide se uma ação da chave pode prosseguir agora.
//
// Observação: a implementação pode ser um log de janela deslizante, um
// token-bucket (ex: golang.org/x/time/rate), etc. A decisão precisa ser
// linearizável por chave: duas chamadas concorrentes para a mesma chave
// nunca podem ambas ler a mesma contagem antiga.
type Admitter interface {
	Admit(key Key, now time.Time) Decision
}

type Decision struct {
	Admitted bool
	Reason   Reason
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}
