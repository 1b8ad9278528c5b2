package infra

import (
	"sync"
	"time"

	"admission-gateway/middleware/admission/domain"
)

// WindowStore é uma implementação de infra baseada em log de janela deslizante:
// por chave, guarda os instantes das admissões recentes e admite no máximo
// `limit` requests dentro de `window`.
//
// Chave vazia colapsa no balde compartilhado "unknown" (política explícita:
// clientes sem identidade dividem uma única cota, nunca cota ilimitada).
type WindowStore struct {
	mu           sync.Mutex
	entries      map[string]*windowEntry
	limit        int
	window       time.Duration
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type windowEntry struct {
	stamps   []time.Time
	lastSeen time.Time
}

type WindowOption func(*WindowStore)

func WithWindowIdleTTL(d time.Duration) WindowOption {
	return func(s *WindowStore) { s.idleTTL = d }
}

func WithWindowCleanupEvery(d time.Duration) WindowOption {
	return func(s *WindowStore) { s.cleanupEvery = d }
}

func NewWindowStore(limit int, window time.Duration, opts ...WindowOption) *WindowStore {
	s := &WindowStore{
		entries:      make(map[string]*windowEntry),
		limit:        limit,
		window:       window,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *WindowStore) Limit() int                  { return s.limit }
func (s *WindowStore) Window() time.Duration       { return s.window }
func (s *WindowStore) CleanupEvery() time.Duration { return s.cleanupEvery }

// Admit implementa domain.Admitter.
//
// A sequência prune+decide+record roda inteira sob o mutex: decisões para a
// mesma chave são linearizáveis, duas requests concorrentes nunca leem a mesma
// contagem pré-prune. O instante exatamente em `now - window` já está fora da
// janela (expirado).
func (s *WindowStore) Admit(key domain.Key, now time.Time) domain.Decision {
	k := string(key)
	if k == "" {
		k = "unknown"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[k]
	if !ok {
		ent = &windowEntry{}
		s.entries[k] = ent
	}
	ent.lastSeen = now

	// prune: descarta tudo com idade >= window, preservando a ordem.
	i := 0
	for i < len(ent.stamps) && now.Sub(ent.stamps[i]) >= s.window {
		i++
	}
	if i > 0 {
		ent.stamps = append(ent.stamps[:0], ent.stamps[i:]...)
	}

	if len(ent.stamps) >= s.limit {
		// o instante rejeitado NÃO é registrado: rejeição não consome cota.
		retry := ent.stamps[0].Add(s.window).Sub(now)
		return domain.Decision{Reason: domain.ReasonRateLimited, RetryAfter: retry}
	}

	ent.stamps = append(ent.stamps, now)
	return domain.Decision{Admitted: true, Reason: domain.ReasonOK}
}

// Cleanup remove chaves sem atividade há mais de idleTTL.
func (s *WindowStore) Cleanup() {
	cutoff := time.Now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor inicia uma goroutine que limpa chaves inativas periodicamente.
// Pare cancelando o contexto.
func (s *WindowStore) StartJanitor(ctx DoneContext) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}

// DoneContext é o mínimo necessário para aceitar context.Context sem importar context aqui.
// (Permite reuso em libs sem acoplar.)
type DoneContext interface {
	Done() <-chan struct{}
}
