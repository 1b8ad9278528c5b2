package domain

import "context"

// SlotPool representa um recurso com capacidade finita (ex: vagas de worker).
//
// A semântica é: Acquire bloqueia até conseguir uma vaga ou até o ctx encerrar.
// Ao adquirir, retorna uma função de release que deve ser chamada exatamente uma vez.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}

// Handler é a unidade de trabalho executada sob a guarda de timeout.
//
// O ctx carrega o sinal de cancelamento cooperativo: quando o deadline estoura,
// o ctx é cancelado, mas o handler pode não observar o cancelamento (ou observar
// tarde). A guarda nunca assume término forçado.
type Handler func(ctx context.Context, req any) (any, error)

// Status é o estado terminal de uma execução guardada.
//
// Máquina de estados: Pending -> Running -> {Completed | TimedOut | Failed}.
// Rejected é terminal antes de Running (backpressure: nenhuma vaga disponível).
// Não há transição para fora de um estado terminal. TimedOut não implica que o
// handler parou: apenas que a guarda parou de esperar.
type Status int

const (
	StatusCompleted Status = iota
	StatusTimedOut
	StatusFailed
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusTimedOut:
		return "timed_out"
	case StatusFailed:
		return "failed"
	case StatusRejected:
		return "rejected"
	}
	return "unknown"
}

// Outcome é o resultado efêmero de uma execução guardada.
// Result só está presente quando Status == StatusCompleted.
// Err só está presente quando Status == StatusFailed.
type Outcome struct {
	Status Status
	Result any
	Err    error
}
