package infra

import (
	"sync"
	"time"

	"admission-gateway/middleware/admission/domain"

	"golang.org/x/time/rate"
)

// BucketStore é a alternativa token-bucket (x/time/rate) ao WindowStore,
// com cache por chave e limpeza periódica. Útil quando rajadas controladas
// são preferíveis ao corte seco da janela deslizante.
type BucketStore struct {
	mu           sync.Mutex
	entries      map[string]*bucketEntry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type bucketEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type BucketOption func(*BucketStore)

func WithBucketIdleTTL(d time.Duration) BucketOption {
	return func(s *BucketStore) { s.idleTTL = d }
}

func WithBucketCleanupEvery(d time.Duration) BucketOption {
	return func(s *BucketStore) { s.cleanupEvery = d }
}

func NewBucketStore(rps float64, burst int, opts ...BucketOption) *BucketStore {
	s := &BucketStore{
		entries:      make(map[string]*bucketEntry),
		rps:          rate.Limit(rps),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BucketStore) RPS() float64                { return float64(s.rps) }
func (s *BucketStore) Burst() int                  { return s.burst }
func (s *BucketStore) CleanupEvery() time.Duration { return s.cleanupEvery }

// Admit implementa domain.Admitter usando AllowN com o instante injetado,
// para manter o relógio testável como no WindowStore.
func (s *BucketStore) Admit(key domain.Key, now time.Time) domain.Decision {
	k := string(key)
	if k == "" {
		k = "unknown"
	}

	if s.limiter(k, now).AllowN(now, 1) {
		return domain.Decision{Admitted: true, Reason: domain.ReasonOK}
	}
	return domain.Decision{Reason: domain.ReasonRateLimited}
}

func (s *BucketStore) limiter(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(s.rps, s.burst)
	s.entries[key] = &bucketEntry{lim: lim, lastSeen: now}
	return lim
}

func (s *BucketStore) Cleanup() {
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
func (s *BucketStore) StartJanitor(ctx DoneContext) {
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
