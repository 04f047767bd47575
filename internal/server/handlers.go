package server

import (
	"net/http"
)

// healthCheckHandler answers 200 with an empty body while the process is
// able to serve requests. It does not touch the database.
func (s *Server) healthCheckHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
