package infra

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"admission-gateway/middleware/admission/domain"

	"github.com/redis/go-redis/v9"
)

// RedisMetricsStore persiste amostras de latência em listas Redis, uma por
// endpoint, aparadas para as `max` mais recentes.
//
// Best-effort com degradação: qualquer erro do Redis é logado e a amostra vai
// para o fallback em memória, nunca para o caminho da resposta. A seleção do
// fallback acontece na construção (composição, não herança).
type RedisMetricsStore struct {
	rdb *redis.Client

	prefix string
	// ttl expira endpoints que param de receber tráfego.
	ttl      time.Duration
	max      int
	fallback domain.MetricsStore
}

// redisSample é o formato de fio: segundos em float, compatível com
// consumidores que não conhecem time.Duration.
type redisSample struct {
	Total     float64 `json:"total_time"`
	DB        float64 `json:"db_time"`
	Compute   float64 `json:"compute_time"`
	Timestamp float64 `json:"timestamp"`
}

type RedisMetricsOption func(*RedisMetricsStore)

func WithMetricsPrefix(prefix string) RedisMetricsOption {
	return func(s *RedisMetricsStore) { s.prefix = prefix }
}

func WithMetricsTTL(d time.Duration) RedisMetricsOption {
	return func(s *RedisMetricsStore) { s.ttl = d }
}

func WithMetricsMaxSamples(n int) RedisMetricsOption {
	return func(s *RedisMetricsStore) { s.max = n }
}

func WithMetricsFallback(store domain.MetricsStore) RedisMetricsOption {
	return func(s *RedisMetricsStore) { s.fallback = store }
}

func NewRedisMetricsStore(rdb *redis.Client, opts ...RedisMetricsOption) *RedisMetricsStore {
	s := &RedisMetricsStore{
		rdb:      rdb,
		prefix:   "admission:metrics",
		ttl:      24 * time.Hour,
		max:      DefaultMaxSamples,
		fallback: NewMemoryMetricsStore(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisMetricsStore) Record(ctx context.Context, endpoint string, sample domain.Sample) error {
	if s == nil || s.rdb == nil {
		return s.recordFallback(ctx, endpoint, sample)
	}

	payload, err := json.Marshal(redisSample{
		Total:     sample.Total.Seconds(),
		DB:        sample.DB.Seconds(),
		Compute:   sample.Compute.Seconds(),
		Timestamp: float64(sample.At.UnixMicro()) / 1e6,
	})
	if err != nil {
		return err
	}

	key := s.key(endpoint)

	pipe := s.rdb.Pipeline()
	pipe.LPush(ctx, key, payload)
	if s.max > 0 {
		pipe.LTrim(ctx, key, 0, int64(s.max)-1)
	}
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("metrics redis: record %q: %v (usando fallback em memória)", endpoint, err)
		return s.recordFallback(ctx, endpoint, sample)
	}
	return nil
}

// Samples retorna as amostras mais recentes primeiro (ordem do LPUSH).
func (s *RedisMetricsStore) Samples(ctx context.Context, endpoint string) ([]domain.Sample, error) {
	if s == nil || s.rdb == nil {
		return s.samplesFallback(ctx, endpoint)
	}

	raw, err := s.rdb.LRange(ctx, s.key(endpoint), 0, -1).Result()
	if err != nil {
		log.Printf("metrics redis: samples %q: %v (usando fallback em memória)", endpoint, err)
		return s.samplesFallback(ctx, endpoint)
	}

	out := make([]domain.Sample, 0, len(raw))
	for _, item := range raw {
		var rs redisSample
		if err := json.Unmarshal([]byte(item), &rs); err != nil {
			continue
		}
		out = append(out, domain.Sample{
			Total:   time.Duration(rs.Total * float64(time.Second)),
			DB:      time.Duration(rs.DB * float64(time.Second)),
			Compute: time.Duration(rs.Compute * float64(time.Second)),
			At:      time.UnixMicro(int64(rs.Timestamp * 1e6)),
		})
	}
	return out, nil
}

func (s *RedisMetricsStore) key(endpoint string) string {
	return s.prefix + ":" + endpoint
}

func (s *RedisMetricsStore) recordFallback(ctx context.Context, endpoint string, sample domain.Sample) error {
	if s == nil || s.fallback == nil {
		return nil
	}
	return s.fallback.Record(ctx, endpoint, sample)
}

func (s *RedisMetricsStore) samplesFallback(ctx context.Context, endpoint string) ([]domain.Sample, error) {
	if s == nil || s.fallback == nil {
		return nil, nil
	}
	return s.fallback.Samples(ctx, endpoint)
}
