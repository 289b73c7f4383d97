package middlewares

import (
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/dropDatabas3/knockknock/internal/observability/logger"
	"github.com/dropDatabas3/knockknock/internal/rate"
)

// clientIP extrae la IP del cliente, respetando X-Forwarded-For si existe.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// WithRateLimit corta con 429 cuando el cliente agotó su ventana. Con
// limiter nil es un no-op, así el router no tiene que condicionar la chain.
func WithRateLimit(limiter rate.Limiter) Middleware {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			res, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				// Limiter caído no debe tirar el login; dejamos pasar y
				// avisamos.
				logger.From(r.Context()).Warn("rate limiter unavailable",
					logger.ClientIP(ip), logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			if !res.Allowed {
				w.Header().Set("Retry-After", fmt.Sprintf("%.0f", res.RetryAfter.Seconds()))
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
