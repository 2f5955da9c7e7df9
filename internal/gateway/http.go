package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"zigbee-bridge/internal/capability"
)

// APIServer is the HTTP frontend: device listing, set/get endpoints and
// the WebSocket event stream.
type APIServer struct {
	gw     *Gateway
	hub    *WSHub
	mux    *http.ServeMux
	server *http.Server
	logger *slog.Logger
}

// NewAPIServer wires the HTTP routes.
func NewAPIServer(gw *Gateway, hub *WSHub, addr string, logger *slog.Logger) *APIServer {
	s := &APIServer{
		gw:     gw,
		hub:    hub,
		mux:    http.NewServeMux(),
		logger: logger.With("component", "http"),
	}
	s.mux.HandleFunc("GET /api/devices", s.handleDevices)
	s.mux.HandleFunc("POST /api/devices/{name}/set", s.handleSet)
	s.mux.HandleFunc("POST /api/devices/{name}/get", s.handleGet)
	s.mux.Handle("GET /api/ws", hub)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves HTTP until Stop. Blocks.
func (s *APIServer) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.server.Addr)
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts the server down.
func (s *APIServer) Stop() {
	s.server.Close()
}

type deviceView struct {
	IEEE         string                   `json:"ieee"`
	FriendlyName string                   `json:"friendly_name"`
	Manufacturer string                   `json:"manufacturer"`
	Model        string                   `json:"model"`
	Description  string                   `json:"description"`
	Capabilities []*capability.Descriptor `json:"capabilities"`
	State        map[string]any           `json:"state"`
}

func (s *APIServer) handleDevices(w http.ResponseWriter, r *http.Request) {
	sessions := s.gw.Sessions()
	views := make([]deviceView, 0, len(sessions))
	for _, session := range sessions {
		dev := session.Device()
		views = append(views, deviceView{
			IEEE:         dev.IEEE,
			FriendlyName: s.gw.FriendlyName(dev.IEEE),
			Manufacturer: dev.Manufacturer,
			Model:        dev.Model,
			Description:  session.Definition().Description,
			Capabilities: session.Descriptors(),
			State:        session.State(),
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *APIServer) handleSet(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var values map[string]any
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	for key, value := range values {
		if err := s.gw.Set(r.Context(), name, key, value); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *APIServer) handleGet(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var values map[string]any
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	for key := range values {
		if err := s.gw.Get(r.Context(), name, key); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "requested"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
