package handler

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rl1809/seckill/internal/core/service"
)

// RequestID tags every request with a correlation id, echoed back in the
// response headers.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		log.Debug().
			Str("request_id", id).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Msg("request received")
		next.ServeHTTP(w, r)
	})
}

// RateLimit rejects attempts beyond the per-client window before they reach
// the coordinator. A limiter store failure rejects too, as retryable.
func RateLimit(limiter *service.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := limiter.Allow(r.Context(), clientIdentity(r))
			if err == nil {
				next.ServeHTTP(w, r)
				return
			}

			if errors.Is(err, service.ErrRateLimited) {
				w.Header().Set("Retry-After", "1")
				writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: "too many requests"})
				return
			}

			log.Error().Err(err).Str("remote", r.RemoteAddr).Msg("rate limit check failed")
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "please try again"})
		})
	}
}

// clientIdentity derives the rate-limit identity from the connection's
// source address.
func clientIdentity(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
