package backend

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Auth modes accepted by AuthOptions.Mode.
const (
	AuthDisabled = "disabled"
	AuthToken    = "token"
	AuthJWT      = "jwt"
)

// AuthOptions selects how Bearer credentials are checked.
type AuthOptions struct {
	Mode      string
	Token     string
	JWTSecret string
}

// AuthMiddleware returns middleware that validates a Bearer credential.
// In disabled mode all requests pass through; in token mode the credential
// must equal Token; in jwt mode it must be an unexpired HS256 token signed
// with JWTSecret.
func AuthMiddleware(opts AuthOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.Mode == AuthDisabled || opts.Mode == "" {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			if err := opts.check(strings.TrimPrefix(auth, "Bearer ")); err != nil {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (o AuthOptions) check(raw string) error {
	switch o.Mode {
	case AuthToken:
		if raw != o.Token {
			return fmt.Errorf("token mismatch")
		}
		return nil
	case AuthJWT:
		_, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
			return []byte(o.JWTSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		return err
	default:
		return fmt.Errorf("unknown auth mode %q", o.Mode)
	}
}

// CORS mirrors the headers the hosted collection sends so a browser page on
// another origin can call it directly.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		h.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
