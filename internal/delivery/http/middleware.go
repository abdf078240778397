package http

import (
	"context"
	"log/slog"
	"net/http"

	"chatql/internal/entity"
	"chatql/internal/session"
)

type SessionResolver interface {
	FromHeader(ctx context.Context, header string) (*entity.Session, error)
}

type SessionMiddleware struct {
	sessions SessionResolver
	logger   *slog.Logger
}

func NewSessionMiddleware(sessions SessionResolver, logger *slog.Logger) *SessionMiddleware {
	return &SessionMiddleware{
		sessions: sessions,
		logger:   logger,
	}
}

// Attach resolves the Authorization header into a session on the request
// context. Requests without a valid token pass through anonymously and
// are refused by whatever operation needs a session.
func (m *SessionMiddleware) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		s, err := m.sessions.FromHeader(r.Context(), header)
		if err != nil {
			m.logger.Debug("ignoring authorization header", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), s)))
	})
}

// CORS allows credentialed requests from a single origin.
func CORS(allowedOrigin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")

			// Handle preflight requests
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
