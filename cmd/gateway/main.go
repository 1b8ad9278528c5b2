package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"admission-gateway/middleware/admission"
	"admission-gateway/middleware/admission/domain"
	"admission-gateway/middleware/admission/infra"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// .env é opcional: conveniência para rodar local.
	_ = godotenv.Load()

	cfg, err := readConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	target, err := url.Parse(cfg.upstreamURL)
	if err != nil {
		log.Fatalf("invalid UPSTREAM_URL: %v", err)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Printf("proxy error: %v", err)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var store domain.Admitter
	switch cfg.rateAlgorithm {
	case "bucket":
		s := infra.NewBucketStore(cfg.rateRPS, cfg.rateBurst)
		s.StartJanitor(ctx)
		store = s
	default:
		s := infra.NewWindowStore(cfg.rateLimit, cfg.rateWindow)
		s.StartJanitor(ctx)
		store = s
	}

	metrics := buildMetricsStore(cfg)

	h := http.Handler(proxy)
	h = admission.TimeoutMiddleware(admission.TimeoutOptions{
		Timeout:        cfg.timeout,
		MaxWorkers:     cfg.maxWorkers,
		AcquireTimeout: cfg.acquireTimeout,
		RejectStatus:   http.StatusServiceUnavailable,
	})(h)
	if cfg.rateEnabled {
		h = admission.RateLimitMiddleware(admission.Options{
			Store:               store,
			KeyHeader:           cfg.rateKeyHeader,
			TrustXForwardedFor:  cfg.trustXFF,
			RejectStatus:        http.StatusTooManyRequests,
			RetryAfter:          cfg.retryAfter,
			AddRateLimitHeaders: cfg.addHeaders,
		})(h)
	}
	h = admission.PerformanceMiddleware(admission.PerfOptions{
		Metrics:       metrics,
		Alerter:       infra.LogAlerter{},
		SlowThreshold: cfg.slowThreshold,
	})(h)

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("gateway listening on %s -> %s", cfg.listenAddr, target)
	log.Printf("rate: enabled=%v algorithm=%s limit=%d window=%s keyHeader=%q trustXFF=%v", cfg.rateEnabled, cfg.rateAlgorithm, cfg.rateLimit, cfg.rateWindow, cfg.rateKeyHeader, cfg.trustXFF)
	log.Printf("timeout: deadline=%s maxWorkers=%d acquireTimeout=%s", cfg.timeout, cfg.maxWorkers, cfg.acquireTimeout)
	log.Printf("metrics: redisAddr=%q slowThreshold=%s", cfg.metricsRedisAddr, cfg.slowThreshold)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

// buildMetricsStore escolhe o backend na construção: Redis quando configurado
// (com fallback em memória embutido), senão só memória. Ping com falha não
// derruba o gateway: métricas são best-effort.
func buildMetricsStore(cfg config) domain.MetricsStore {
	mem := infra.NewMemoryMetricsStore()
	if cfg.metricsRedisAddr == "" {
		return mem
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.metricsRedisAddr,
		Password: cfg.metricsRedisPassword,
		DB:       cfg.metricsRedisDB,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	_, err := rdb.Ping(pingCtx).Result()
	cancel()
	if err != nil {
		log.Printf("metrics redis ping error: %v (degrading to in-memory)", err)
	}

	return infra.NewRedisMetricsStore(
		rdb,
		infra.WithMetricsPrefix(cfg.metricsPrefix),
		infra.WithMetricsTTL(cfg.metricsTTL),
		infra.WithMetricsFallback(mem),
	)
}

type config struct {
	listenAddr     string
	upstreamURL    string
	rateEnabled    bool
	rateAlgorithm  string
	rateLimit      int
	rateWindow     time.Duration
	rateRPS        float64
	rateBurst      int
	rateKeyHeader  string
	trustXFF       bool
	retryAfter     time.Duration
	addHeaders     bool
	timeout        time.Duration
	maxWorkers     int
	acquireTimeout time.Duration
	slowThreshold  time.Duration

	metricsRedisAddr     string
	metricsRedisPassword string
	metricsRedisDB       int
	metricsPrefix        string
	metricsTTL           time.Duration
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.upstreamURL = os.Getenv("UPSTREAM_URL")
	cfg.rateEnabled = getenvBoolDefault("RATE_ENABLED", true)
	cfg.rateAlgorithm = getenvDefault("RATE_ALGORITHM", "window")
	cfg.rateLimit = getenvIntDefault("RATE_LIMIT", 10)
	cfg.rateWindow = getenvDurationDefault("RATE_WINDOW", 60*time.Second)
	cfg.rateRPS = getenvFloatDefault("RATE_RPS", 10)
	// IMPORTANTE: o "burst" permite uma rajada inicial de requisições.
	// Com RPS muito baixo (ex: 0.02), o padrão 20 pode dar a impressão de que
	// o limiter não está funcionando, porque as primeiras ~20 passam.
	if burst, ok := getenvInt("RATE_BURST"); ok {
		cfg.rateBurst = burst
	} else {
		cfg.rateBurst = 20
		if getenvIsSet("RATE_RPS") && cfg.rateRPS > 0 && cfg.rateRPS < 1 {
			cfg.rateBurst = 1
		}
	}
	cfg.rateKeyHeader = os.Getenv("RATE_KEY_HEADER")
	cfg.trustXFF = getenvBoolDefault("TRUST_XFF", false)
	cfg.retryAfter = getenvDurationDefault("RETRY_AFTER", 1*time.Second)
	cfg.addHeaders = getenvBoolDefault("ADD_RATELIMIT_HEADERS", false)
	// TIMEOUT precisa ficar abaixo do timeout do proxy/LB da frente,
	// senão quem responde 5xx é ele e não a gente.
	cfg.timeout = getenvDurationDefault("TIMEOUT", 20*time.Second)
	cfg.maxWorkers = getenvIntDefault("MAX_WORKERS", 4)
	cfg.acquireTimeout = getenvDurationDefault("ACQUIRE_TIMEOUT", 0)
	cfg.slowThreshold = getenvDurationDefault("SLOW_THRESHOLD", 15*time.Second)

	cfg.metricsRedisAddr = getenvDefault("METRICS_REDIS_ADDR", "")
	cfg.metricsRedisPassword = os.Getenv("METRICS_REDIS_PASSWORD")
	cfg.metricsRedisDB = getenvIntDefault("METRICS_REDIS_DB", 0)
	cfg.metricsPrefix = getenvDefault("METRICS_PREFIX", "admission:metrics")
	cfg.metricsTTL = getenvDurationDefault("METRICS_TTL", 24*time.Hour)

	if cfg.upstreamURL == "" {
		return config{}, errors.New("UPSTREAM_URL is required")
	}
	if cfg.rateAlgorithm != "window" && cfg.rateAlgorithm != "bucket" {
		return config{}, errors.New("RATE_ALGORITHM must be window or bucket")
	}
	if cfg.rateLimit <= 0 {
		return config{}, errors.New("RATE_LIMIT must be > 0")
	}
	if cfg.rateWindow <= 0 {
		return config{}, errors.New("RATE_WINDOW must be > 0")
	}
	if cfg.rateRPS <= 0 {
		return config{}, errors.New("RATE_RPS must be > 0")
	}
	if cfg.rateBurst <= 0 {
		return config{}, errors.New("RATE_BURST must be > 0")
	}
	if cfg.timeout <= 0 {
		return config{}, errors.New("TIMEOUT must be > 0")
	}
	if cfg.maxWorkers <= 0 {
		return config{}, errors.New("MAX_WORKERS must be > 0")
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvInt(k string) (int, bool) {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return 0, false
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return i, true
}

func getenvIsSet(k string) bool {
	v, ok := os.LookupEnv(k)
	return ok && v != ""
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
