package gateway

import (
	"encoding/json"
	"net/http"
)

// HealthResponse is returned by the public health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

// StatusResponse is returned by the authenticated status endpoint.
type StatusResponse struct {
	Status    string         `json:"status"`
	Version   string         `json:"version"`
	Clients   int            `json:"clients"`
	StartedAt string         `json:"startedAt"`
	Jobs      map[string]int `json:"jobs,omitempty"`
}

// handleHealth returns the server health status. Only liveness is exposed
// publicly; detailed info is behind the authenticated status endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
}

// handleNotFound returns a 404 for unknown routes.
func handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]string{
		"error": "not found",
		"path":  r.URL.Path,
	})
}
