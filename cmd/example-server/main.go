package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"admission-gateway/middleware/admission"
	"admission-gateway/middleware/admission/infra"
)

func main() {
	// Exemplo: injetando os middlewares diretamente no seu webserver (sem proxy)
	store := infra.NewWindowStore(10, 60*time.Second)
	metrics := infra.NewMemoryMetricsStore()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	store.StartJanitor(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// simulação de uma consulta: credita tempo de banco via contexto
		_ = admission.TrackDB(r.Context(), func() error {
			time.Sleep(5 * time.Millisecond)
			return nil
		})
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	h := http.Handler(mux)
	h = admission.TimeoutMiddleware(admission.TimeoutOptions{
		Timeout:    20 * time.Second,
		MaxWorkers: 4,
	})(h)
	h = admission.RateLimitMiddleware(admission.Options{
		Store:               store,
		KeyHeader:           "X-Api-Key", // ou vazio para usar IP
		TrustXForwardedFor:  true,
		AddRateLimitHeaders: true,
	})(h)
	h = admission.PerformanceMiddleware(admission.PerfOptions{
		Metrics: metrics,
		Alerter: infra.LogAlerter{},
	})(h)

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("example server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
