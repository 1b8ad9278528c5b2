package admission

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"time"

	"admission-gateway/middleware/admission/application"
	"admission-gateway/middleware/admission/domain"
	"admission-gateway/middleware/admission/infra"
)

type TimeoutOptions struct {
	// Timeout limita o tempo de execução do handler downstream.
	// Deve ser menor que o timeout do proxy/LB upstream para que a resposta
	// 503 saia daqui, não de lá.
	Timeout time.Duration
	// MaxWorkers limita quantos handlers executam ao mesmo tempo.
	MaxWorkers int
	// AcquireTimeout limita a espera por vaga. Se <= 0, usa Timeout:
	// esperar vaga por mais tempo que o deadline de execução não faz sentido.
	AcquireTimeout time.Duration
	RejectStatus   int
	// Pool permite injetar um SlotPool próprio (testes). Nil cria um
	// semáforo de MaxWorkers vagas.
	Pool domain.SlotPool
}

// TimeoutMiddleware executa o próximo handler sob a guarda de timeout, com
// concorrência limitada, gravando a resposta em um buffer.
//
// Deadline estourado, falha do handler ou saturação das vagas respondem
// RejectStatus (503 por padrão) sem nenhum detalhe da causa interna.
// A classificação interna (timed_out vs failed) fica só nos logs.
func TimeoutMiddleware(opts TimeoutOptions) func(next http.Handler) http.Handler {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 4
	}
	if opts.AcquireTimeout <= 0 {
		opts.AcquireTimeout = opts.Timeout
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}

	pool := opts.Pool
	if pool == nil {
		pool = infra.NewSemPool(opts.MaxWorkers)
	}

	svc := application.TimeoutService{
		Pool:           pool,
		Timeout:        opts.Timeout,
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			out := svc.Execute(r.Context(), func(ctx context.Context, req any) (any, error) {
				rec := newBufferedResponse()
				next.ServeHTTP(rec, req.(*http.Request).WithContext(ctx))
				return rec, nil
			}, r)

			switch out.Status {
			case domain.StatusCompleted:
				out.Result.(*bufferedResponse).copyTo(w)
			case domain.StatusTimedOut:
				// o handler pode continuar rodando; o resultado dele é descartado.
				log.Printf("timeout guard: deadline exceeded: %s %s", r.Method, r.URL.Path)
				unavailable(w, opts.RejectStatus)
			case domain.StatusFailed:
				log.Printf("timeout guard: handler failure: %s %s: %v", r.Method, r.URL.Path, out.Err)
				unavailable(w, opts.RejectStatus)
			default:
				log.Printf("timeout guard: no worker slot: %s %s", r.Method, r.URL.Path)
				unavailable(w, opts.RejectStatus)
			}
		})
	}
}

// unavailable responde o fallback sem vazar informação da causa.
func unavailable(w http.ResponseWriter, status int) {
	http.Error(w, http.StatusText(status), status)
}

// bufferedResponse acumula a resposta do handler em memória. Só é despejada
// no ResponseWriter real quando a execução completa dentro do deadline; em
// timeout, nada do handler chega ao cliente.
type bufferedResponse struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{header: make(http.Header)}
}

func (b *bufferedResponse) Header() http.Header { return b.header }

func (b *bufferedResponse) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

func (b *bufferedResponse) copyTo(w http.ResponseWriter) {
	for k, vs := range b.header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	status := b.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(b.body.Bytes())
}
