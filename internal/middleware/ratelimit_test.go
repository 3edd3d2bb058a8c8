package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/userdash/userdash/internal/cache"
	"github.com/userdash/userdash/internal/dashboard"
	"github.com/userdash/userdash/internal/session"
)

// fakeLimiter allows the first n checks per key.
type fakeLimiter struct {
	mu    sync.Mutex
	n     int
	seen  map[string]int
	fails bool
}

func (l *fakeLimiter) CheckMutationRateLimit(ctx context.Context, key string, rps, burst int) (*cache.RateLimitResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fails {
		return nil, errors.New("redis down")
	}
	if l.seen == nil {
		l.seen = make(map[string]int)
	}
	l.seen[key]++
	allowed := l.seen[key] <= l.n
	return &cache.RateLimitResult{
		Allowed:    allowed,
		Remaining:  int64(l.n - l.seen[key]),
		ResetAt:    time.Now().Add(time.Second),
		RetryAfter: 2 * time.Second,
	}, nil
}

func rateLimited(l MutationLimiter, enabled bool) http.Handler {
	cfg := RateLimitConfig{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Limiter: l,
		Enabled: enabled,
		RPS:     1,
		Burst:   2,
	}
	return RateLimitMutations(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusSeeOther)
	}))
}

func withSession(r *http.Request, id string) *http.Request {
	ctx := session.NewContext(r.Context(), id, (*dashboard.Controller)(nil))
	return r.WithContext(ctx)
}

func TestRateLimitMutations_LimitsPerSession(t *testing.T) {
	t.Parallel()

	h := rateLimited(&fakeLimiter{n: 2}, true)

	var codes []int
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodPost, "/refresh", nil), "a"))
		codes = append(codes, rec.Code)
		if i == 2 && rec.Header().Get("Retry-After") != "2" {
			t.Errorf("Retry-After = %q, want 2", rec.Header().Get("Retry-After"))
		}
	}
	want := []int{http.StatusSeeOther, http.StatusSeeOther, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("request %d status = %d, want %d", i, codes[i], want[i])
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodPost, "/refresh", nil), "b"))
	if rec.Code != http.StatusSeeOther {
		t.Errorf("other session status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
}

func TestRateLimitMutations_ReadsAndDisabledPassThrough(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		h      http.Handler
		method string
	}{
		{"GET never limited", rateLimited(&fakeLimiter{}, true), http.MethodGet},
		{"disabled", rateLimited(&fakeLimiter{}, false), http.MethodPost},
		{"no limiter", rateLimited(nil, true), http.MethodPost},
		{"limiter error fails open", rateLimited(&fakeLimiter{fails: true}, true), http.MethodPost},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			tt.h.ServeHTTP(rec, httptest.NewRequest(tt.method, "/", nil))
			if rec.Code == http.StatusTooManyRequests {
				t.Errorf("status = 429, want pass through")
			}
		})
	}
}

func TestGetClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "10.0.0.1,10.0.0.2"}, "10.0.0.1"},
		{"single forwarded", map[string]string{"X-Forwarded-For": "10.0.0.9"}, "10.0.0.9"},
		{"real ip", map[string]string{"X-Real-IP": "10.0.0.3"}, "10.0.0.3"},
		{"remote addr", nil, "192.0.2.1:1234"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
