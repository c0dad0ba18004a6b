package web

import (
	"log/slog"
	"net/http"

	"github.com/starford/itemdesk/internal/session"
)

// viewer reports the current screen.
type viewer interface {
	View() session.View
}

// RequireSession passes requests through only while a user is signed in.
// Otherwise deny answers.
func RequireSession(v viewer, deny http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v.View() != session.Authenticated {
				deny.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
}

// RejectCrossOrigin refuses state-changing requests a browser marks as
// coming from another site, using Sec-Fetch-Site or, when that is absent,
// an Origin that does not match Host. Safe methods and requests without
// either header (CLI tools, curl) pass.
func RejectCrossOrigin(logger *slog.Logger) func(http.Handler) http.Handler {
	cop := http.NewCrossOriginProtection()
	cop.SetDenyHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Warn("cross-origin request rejected",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("origin", r.Header.Get("Origin")),
			slog.String("sec_fetch_site", r.Header.Get("Sec-Fetch-Site")))
		writeJSON(w, http.StatusForbidden, errorBody("cross-origin request rejected"))
	}))
	return cop.Handler
}
