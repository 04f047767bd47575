package middleware

import (
	"net/http"
	"time"

	"github.com/leslieo2/dota-analytics/internal/observability"
)

// unmatchedEndpoint labels requests no route matched, keeping label
// cardinality bounded.
const unmatchedEndpoint = "unmatched"

// MetricsMiddleware records request count, latency and sizes
func MetricsMiddleware(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			metrics.InFlight.Inc()
			defer metrics.InFlight.Dec()

			wrapped := NewResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			// ServeMux records the matched pattern on the request
			endpoint := r.Pattern
			if endpoint == "" {
				endpoint = unmatchedEndpoint
			}

			requestSize := r.ContentLength
			if requestSize < 0 {
				requestSize = 0
			}
			metrics.RecordRequest(r.Method, endpoint, wrapped.StatusCode(), time.Since(start), requestSize, wrapped.Written())
		})
	}
}
