package domain

import (
	"context"
	"time"
)

// Sample é uma amostra de latência de uma request concluída.
//
// Compute é derivado (Total - DB), mas fica materializado na amostra para que
// o armazenamento não precise conhecer a regra de derivação.
type Sample struct {
	Total   time.Duration
	DB      time.Duration
	Compute time.Duration
	At      time.Time
}

// MetricsStore é a estratégia de persistência das amostras de latência.
//
// Implementações podem armazenar em Redis, memória, etc. O chamador deve
// tratar erro como best-effort (não derrubar request). Implementações podem
// limitar a quantidade de amostras retidas por endpoint.
type MetricsStore interface {
	Record(ctx context.Context, endpoint string, s Sample) error
	Samples(ctx context.Context, endpoint string) ([]Sample, error)
}

// Alerter recebe notificações de requests lentas.
//
// Do ponto de vista do chamador o report é fire-and-forget: falhas não podem
// afetar o caminho da resposta.
type Alerter interface {
	ReportSlowRequest(ctx context.Context, method, path string, d time.Duration)
}
