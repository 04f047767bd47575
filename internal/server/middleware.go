package server

import (
	"net/http"

	"github.com/leslieo2/dota-analytics/internal/server/middleware"
)

// applyMiddleware applies the complete middleware chain to the handler
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	// Apply middleware chain in reverse order

	// Metrics sit next to the mux so the matched pattern is visible to them
	if s.metrics != nil {
		handler = middleware.MetricsMiddleware(s.metrics)(handler)
	}

	handler = middleware.LoggingMiddleware(s.logger)(handler)

	handler = middleware.RequestIDMiddleware()(handler)

	return handler
}
