package admission

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"admission-gateway/middleware/admission/infra"
)

func TestRateLimitMiddleware_EleventhRequestGets429JSON(t *testing.T) {
	store := infra.NewWindowStore(10, 60*time.Second)
	clock := time.Unix(1000, 0)

	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})

	h := RateLimitMiddleware(Options{
		Store: store,
		Clock: func() time.Time { return clock },
	})(next)

	for i := 0; i < 10; i++ {
		r := httptest.NewRequest(http.MethodGet, "http://example/posts", nil)
		r.RemoteAddr = "1.2.3.4:1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("expected request %d to pass, got %d", i+1, w.Code)
		}
	}

	// 11a request dentro da mesma janela: 429 com o corpo do contrato
	r := httptest.NewRequest(http.MethodGet, "http://example/posts", nil)
	r.RemoteAddr = "1.2.3.4:1234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if got := w.Body.String(); got != `{"error":"Rate limit exceeded"}` {
		t.Fatalf("expected contract body, got %q", got)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected json content type, got %q", got)
	}
	if got := w.Header().Get("Retry-After"); got == "" {
		t.Fatalf("expected Retry-After header to be set")
	}
	if calls != 10 {
		t.Fatalf("expected next handler called 10 times, got %d", calls)
	}
}

func TestRateLimitMiddleware_WindowSlidesForward(t *testing.T) {
	store := infra.NewWindowStore(1, 60*time.Second)
	clock := time.Unix(1000, 0)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	h := RateLimitMiddleware(Options{
		Store: store,
		Clock: func() time.Time { return clock },
	})(next)

	send := func() int {
		r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
		r.RemoteAddr = "1.2.3.4:1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}

	if got := send(); got != http.StatusOK {
		t.Fatalf("expected 200, got %d", got)
	}
	if got := send(); got != http.StatusTooManyRequests {
		t.Fatalf("expected 429 inside the window, got %d", got)
	}

	clock = clock.Add(60 * time.Second)
	if got := send(); got != http.StatusOK {
		t.Fatalf("expected 200 after the window slid, got %d", got)
	}
}

func TestRateLimitMiddleware_KeyByHeader(t *testing.T) {
	store := infra.NewWindowStore(1, 60*time.Second)
	clock := time.Unix(1000, 0)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	h := RateLimitMiddleware(Options{
		Store:     store,
		Clock:     func() time.Time { return clock },
		KeyHeader: "X-Api-Key",
	})(next)

	// duas chaves diferentes => ambas devem passar (cada chave tem sua janela)
	r1 := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r1.Header.Set("X-Api-Key", "k1")
	r1.RemoteAddr = "10.0.0.1:1234"
	w1 := httptest.NewRecorder()
	h.ServeHTTP(w1, r1)
	if w1.Code != http.StatusOK {
		t.Fatalf("expected 200 for key k1, got %d", w1.Code)
	}

	r2 := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r2.Header.Set("X-Api-Key", "k2")
	r2.RemoteAddr = "10.0.0.1:1234"
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, r2)
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200 for key k2, got %d", w2.Code)
	}
}

func TestRateLimitMiddleware_RetryAfterRoundsUp(t *testing.T) {
	store := infra.NewWindowStore(1, 60*time.Second)
	clock := time.Unix(1000, 0)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	h := RateLimitMiddleware(Options{
		Store: store,
		Clock: func() time.Time { return clock },
	})(next)

	r1 := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r1.RemoteAddr = "1.2.3.4:1234"
	h.ServeHTTP(httptest.NewRecorder(), r1)

	clock = clock.Add(30*time.Second + 500*time.Millisecond)
	r2 := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r2.RemoteAddr = "1.2.3.4:1234"
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, r2)

	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w2.Code)
	}
	// faltam 29.5s: arredonda para cima, senão o cliente volta cedo demais
	if got := w2.Header().Get("Retry-After"); got != "30" {
		t.Fatalf("expected Retry-After=30, got %q", got)
	}
}

func TestRateLimitMiddleware_DebugHeaders(t *testing.T) {
	store := infra.NewWindowStore(10, 60*time.Second)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	h := RateLimitMiddleware(Options{
		Store:               store,
		AddRateLimitHeaders: true,
	})(next)

	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if got := w.Header().Get("X-RateLimit-Key"); got != "10.0.0.1" {
		t.Fatalf("expected key header, got %q", got)
	}
	if got := w.Header().Get("X-RateLimit-Limit"); got != "10" {
		t.Fatalf("expected limit header 10, got %q", got)
	}
	if got := w.Header().Get("X-RateLimit-Window"); got != "60" {
		t.Fatalf("expected window header 60, got %q", got)
	}
}
