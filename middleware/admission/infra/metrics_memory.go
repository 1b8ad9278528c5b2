package infra

import (
	"context"
	"sync"

	"admission-gateway/middleware/admission/domain"
)

// DefaultMaxSamples limita a retenção por endpoint (as mais recentes ganham).
const DefaultMaxSamples = 50

// MemoryMetricsStore guarda amostras de latência em memória, por endpoint,
// retendo apenas as `max` mais recentes.
//
// Útil para testes, desenvolvimento e como fallback do store remoto.
type MemoryMetricsStore struct {
	mu      sync.Mutex
	samples map[string][]domain.Sample
	max     int
}

type MemoryMetricsOption func(*MemoryMetricsStore)

func WithMaxSamples(n int) MemoryMetricsOption {
	return func(s *MemoryMetricsStore) { s.max = n }
}

func NewMemoryMetricsStore(opts ...MemoryMetricsOption) *MemoryMetricsStore {
	s := &MemoryMetricsStore{
		samples: make(map[string][]domain.Sample),
		max:     DefaultMaxSamples,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryMetricsStore) Record(_ context.Context, endpoint string, sample domain.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := append(s.samples[endpoint], sample)
	if s.max > 0 && len(list) > s.max {
		// corta pela frente: mantém as últimas `max`.
		list = append(list[:0], list[len(list)-s.max:]...)
	}
	s.samples[endpoint] = list
	return nil
}

func (s *MemoryMetricsStore) Samples(_ context.Context, endpoint string) ([]domain.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.samples[endpoint]
	out := make([]domain.Sample, len(src))
	copy(out, src)
	return out, nil
}

// Endpoints lista os endpoints com amostras registradas.
func (s *MemoryMetricsStore) Endpoints() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.samples))
	for k := range s.samples {
		out = append(out, k)
	}
	return out
}
