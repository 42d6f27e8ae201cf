package bridge

import (
	"encoding/json"
	"net/http"

	"github.com/muurk/rfxcom/internal/logging"
)

// Health is the /healthz response body
type Health struct {
	Status  string `json:"status"`
	Clients int    `json:"clients"`
	Version string `json:"version,omitempty"`
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	select {
	case <-s.tx.Done():
		status = "transceiver closed"
		code = http.StatusServiceUnavailable
	default:
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(Health{
		Status:  status,
		Clients: s.hub.Len(),
		Version: s.config.Version,
	})
}

// withLogging logs each request before handing it on
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
