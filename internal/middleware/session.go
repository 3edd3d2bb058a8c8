package middleware

import (
	"net/http"

	"github.com/userdash/userdash/internal/session"
)

// Session attaches the caller's dashboard to the request, starting a new
// session when the cookie is missing or unknown.
func Session(store *session.Store, secureCookie bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie(session.CookieName); err == nil {
				if ctrl, ok := store.Get(c.Value); ok {
					next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), c.Value, ctrl)))
					return
				}
			}

			id, ctrl := store.Create(r.Context())
			http.SetCookie(w, &http.Cookie{
				Name:     session.CookieName,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				Secure:   secureCookie,
				SameSite: http.SameSiteLaxMode,
			})
			next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), id, ctrl)))
		})
	}
}
