package httpadapter

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// rateLimitMiddleware sheds load with a token bucket shared by all clients.
// Exempt paths (health and metrics probes) bypass the bucket so operational
// tooling keeps working under load.
func (rt *Router) rateLimitMiddleware(next http.Handler) http.Handler {
	if rt.rateLimitRPS <= 0 {
		return next
	}
	limiter := rate.NewLimiter(rate.Limit(rt.rateLimitRPS), max(rt.rateLimitBurst, 1))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isExemptPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		if !limiter.Allow() {
			if rt.metrics != nil {
				rt.metrics.RecordThrottled(serviceName, "rate_limit")
			}
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "rate limit exceeded, retry later",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// backpressureMiddleware bounds concurrent in-flight requests. A request
// waits up to acquireWait for a slot before being refused with 503.
func backpressureMiddleware(next http.Handler, maxConcurrent int, acquireWait time.Duration) http.Handler {
	if maxConcurrent <= 0 {
		return next
	}
	slots := make(chan struct{}, maxConcurrent)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isExemptPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		timer := time.NewTimer(acquireWait)
		defer timer.Stop()

		select {
		case slots <- struct{}{}:
			defer func() { <-slots }()
			next.ServeHTTP(w, r)
		case <-timer.C:
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "server overloaded, retry later",
			})
		case <-r.Context().Done():
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "request cancelled while waiting for capacity",
			})
		}
	})
}

func isExemptPath(path string) bool {
	return path == "/healthz" || path == "/metrics"
}
