package admission

import (
	"context"
	"log"
	"net/http"
	"time"

	"admission-gateway/middleware/admission/domain"
)

// EndpointFunc resolve a chave lógica de agregação de uma request
// (ex: "GET /posts"). Retornar "" pula a instrumentação da request.
type EndpointFunc func(r *http.Request) string

type PerfOptions struct {
	Metrics domain.MetricsStore
	Alerter domain.Alerter
	// SlowThreshold dispara o alerta de request lenta. Default 15s.
	SlowThreshold time.Duration
	// EndpointFn default: "METHOD path".
	EndpointFn EndpointFunc
	// Clock permite tempo determinístico em testes. Nil usa time.Now.
	Clock domain.Clock
}

const defaultSlowThreshold = 15 * time.Second

// PerformanceMiddleware mede o tempo total da request, separa o tempo de
// banco (acumulado via contexto, ver WithDBTimer) e grava a amostra no
// MetricsStore. Best-effort: erro do store é logado e nunca afeta a resposta.
//
// HEAD e OPTIONS não são instrumentados (baratos e sem interesse de latência).
func PerformanceMiddleware(opts PerfOptions) func(next http.Handler) http.Handler {
	if opts.SlowThreshold <= 0 {
		opts.SlowThreshold = defaultSlowThreshold
	}
	if opts.EndpointFn == nil {
		opts.EndpointFn = func(r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			endpoint := opts.EndpointFn(r)
			if endpoint == "" {
				next.ServeHTTP(w, r)
				return
			}

			start := now()
			ctx := WithDBTimer(r.Context())
			next.ServeHTTP(w, r.WithContext(ctx))

			total := now().Sub(start)
			db := DBTime(ctx)

			if opts.Metrics != nil {
				sample := domain.Sample{
					Total:   total,
					DB:      db,
					Compute: total - db,
					At:      start,
				}
				if err := opts.Metrics.Record(ctx, endpoint, sample); err != nil {
					log.Printf("perf: record %q: %v", endpoint, err)
				}
			}

			if opts.Alerter != nil && total > opts.SlowThreshold {
				// fire-and-forget: o alerta não pode segurar a resposta.
				method, path := r.Method, r.URL.Path
				go opts.Alerter.ReportSlowRequest(context.WithoutCancel(ctx), method, path, total)
			}
		})
	}
}
