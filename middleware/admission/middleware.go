package admission

import (
	"net"
	"net/http"
	"strings"
	"time"

	"admission-gateway/middleware/admission/application"
	"admission-gateway/middleware/admission/domain"
)

type KeyFunc func(r *http.Request) string

// corpo exigido pelo contrato de rejeição (429).
const rateLimitBody = `{"error":"Rate limit exceeded"}`

type Options struct {
	Store               domain.Admitter
	Clock               domain.Clock
	KeyFn               KeyFunc
	KeyHeader           string
	TrustXForwardedFor  bool
	RejectStatus        int
	RetryAfter          time.Duration
	AddRateLimitHeaders bool
}

type limitInfo interface {
	Limit() int
	Window() time.Duration
}

func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			// pega o primeiro IP do X-Forwarded-For (cliente original).
			// Só confie nisso atrás de proxy reverso: senão todos os clientes
			// colapsam no IP do proxy e um starva os outros.
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				parts := strings.Split(xff, ",")
				if len(parts) > 0 {
					ip := strings.TrimSpace(parts[0])
					if ip != "" {
						return ip
					}
				}
			}
		}

		// fallback: RemoteAddr
		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

// RateLimitMiddleware aplica o rate limit por chave antes de qualquer
// processamento downstream. Rejeição responde imediatamente com
// opts.RejectStatus (429 por padrão), Retry-After e corpo JSON.
func RateLimitMiddleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.RetryAfter == 0 {
		opts.RetryAfter = 1 * time.Second
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}

	svc := application.Service{
		Limiter:    opts.Store,
		Clock:      opts.Clock,
		RetryAfter: opts.RetryAfter,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)

			if opts.AddRateLimitHeaders {
				w.Header().Set("X-RateLimit-Key", key)
				if li, ok := opts.Store.(limitInfo); ok {
					w.Header().Set("X-RateLimit-Limit", formatInt(li.Limit()))
					w.Header().Set("X-RateLimit-Window", formatFloat(li.Window().Seconds()))
				}
			}

			dec := svc.Decide(domain.Key(key))
			if !dec.Admitted {
				w.Header().Set("Retry-After", formatInt(retryAfterSeconds(dec.RetryAfter)))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(opts.RejectStatus)
				_, _ = w.Write([]byte(rateLimitBody))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// retryAfterSeconds arredonda para cima: Retry-After=0 faria o cliente
// reenviar dentro da mesma janela.
func retryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 1
	}
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}
