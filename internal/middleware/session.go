package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/AnshRaj112/vcard-backend/internal/apperr"
	"github.com/AnshRaj112/vcard-backend/internal/services"
	"go.uber.org/zap"
)

// SessionCookieName carries the session token for browser clients.
const SessionCookieName = "session_id"

type contextKey string

const sessionContextKey contextKey = "session"

// SessionResolver looks up a session by token.
type SessionResolver interface {
	Get(ctx context.Context, token string) (*services.Session, error)
}

// SessionToken extracts the session token from the cookie or a Bearer header.
func SessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// LoadSession attaches the caller's session to the request context when the
// token resolves. Requests without a valid session continue anonymously.
func LoadSession(sessions SessionResolver, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := sessions.Get(r.Context(), token)
			if err != nil {
				if errors.Is(err, apperr.ErrUnauthenticated) {
					next.ServeHTTP(w, r)
					return
				}
				logger.Error("session lookup failed", zap.Error(err))
				writeJSONError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// RequireSession rejects anonymous requests with 401.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromContext(r.Context()) == nil {
			writeJSONError(w, http.StatusUnauthorized, "Please login to continue")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithSession(ctx context.Context, sess *services.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// SessionFromContext returns the caller's session, or nil for anonymous requests.
func SessionFromContext(ctx context.Context) *services.Session {
	sess, _ := ctx.Value(sessionContextKey).(*services.Session)
	return sess
}
