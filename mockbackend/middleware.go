package mockbackend

import (
	"context"
	"net/http"
	"strings"
	"time"
)

type ContextKey string

const ContextKeyUserID ContextKey = "user_id"

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

// statusRecorder captures the status written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) loggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) recoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				s.logger.Error().Interface("panic", p).Str("path", r.URL.Path).Msg("handler panicked")
				writeError(w, http.StatusInternalServerError, codeInternal, "Internal server error")
			}
		}()
		next(w, r)
	}
}

// failureMiddleware answers with the Failure registered for pattern, if any.
func (s *Server) failureMiddleware(pattern string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if f, ok := s.failureFor(pattern); ok {
				writeError(w, f.Status, f.Code, f.Message)
				return
			}
			next(w, r)
		}
	}
}

// requireBearer validates the access token and puts its subject in the request context.
func (s *Server) requireBearer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "", "Missing Authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
			writeError(w, http.StatusUnauthorized, "", "Invalid Authorization header format")
			return
		}

		userID, err := s.tokens.subject(parts[1])
		if err != nil {
			s.logger.Debug().Err(err).Msg("rejected access token")
			writeError(w, http.StatusUnauthorized, "", "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeyUserID, userID)
		next(w, r.WithContext(ctx))
	}
}

func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyUserID).(string)
	return id
}
