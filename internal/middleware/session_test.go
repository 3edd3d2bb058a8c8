package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/userdash/userdash/internal/dashboard"
	"github.com/userdash/userdash/internal/model"
	"github.com/userdash/userdash/internal/session"
)

type emptyTransport struct{}

func (emptyTransport) ListAll(ctx context.Context) ([]model.User, error) { return nil, nil }
func (emptyTransport) Create(ctx context.Context, in model.UserInput) (*model.User, error) {
	return nil, errors.New("unused")
}
func (emptyTransport) Update(ctx context.Context, id string, p model.UserPatch) (*model.User, error) {
	return nil, errors.New("unused")
}
func (emptyTransport) Delete(ctx context.Context, id string) error { return errors.New("unused") }

func TestSession_IssuesAndReusesCookie(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := session.NewStore(func() *dashboard.Controller { return dashboard.New(emptyTransport{}) }, logger, nil)

	var seen []*dashboard.Controller
	h := Session(store, true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctrl, ok := session.FromContext(r.Context())
		if !ok {
			t.Error("no controller in context")
		}
		seen = append(seen, ctrl)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != session.CookieName {
		t.Fatalf("cookies = %v, want one session cookie", cookies)
	}
	c := cookies[0]
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie attributes = %+v", c)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if len(rec.Result().Cookies()) != 0 {
		t.Error("known session was issued a new cookie")
	}
	if len(seen) != 2 || seen[0] != seen[1] {
		t.Error("second request did not reuse the session controller")
	}
	if store.Len() != 1 {
		t.Errorf("store.Len() = %d, want 1", store.Len())
	}
}

func TestSession_UnknownCookieStartsNewSession(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := session.NewStore(func() *dashboard.Controller { return dashboard.New(emptyTransport{}) }, logger, nil)
	h := Session(store, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "forged"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value == "forged" {
		t.Errorf("cookies = %v, want a fresh session id", cookies)
	}
}
