package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/racewire/telemetry-hub/internal/apperrors"
)

// Authorizer answers whether the caller of a request may subscribe to a
// championship's engineer-only telemetry stream, and if so, which team
// they're assigned to. The registry ships no real identity system —
// callers wire in whatever auth middleware the surrounding deployment
// uses.
type Authorizer interface {
	TeamFor(r *http.Request, championshipID int32) (teamID uint8, isEngineer bool)
}

// AllowAllAuthorizer grants every request the team id carried in its
// X-Team-Id header, useful for local runs and tests.
type AllowAllAuthorizer struct{}

func (AllowAllAuthorizer) TeamFor(r *http.Request, _ int32) (uint8, bool) {
	v := r.Header.Get("X-Team-Id")
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, 8)
	if err != nil {
		return 0, false
	}
	return uint8(n), true
}

// stream is the common surface of GlobalSubscription/TeamSubscription
// that the two outbound endpoints need.
type stream interface {
	Recv(ctx context.Context) ([]byte, error)
	Close()
}

// Handlers exposes the two outbound streaming endpoints plus admin
// introspection over a Registry.
type Handlers struct {
	log  zerolog.Logger
	reg  *Registry
	auth Authorizer
}

func NewHandlers(log zerolog.Logger, reg *Registry, auth Authorizer) *Handlers {
	return &Handlers{log: log, reg: reg, auth: auth}
}

// RegisterRoutes wires this package's endpoints onto router.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/championships/{id}/stream/live", h.handleLiveStream).Methods("GET")
	router.HandleFunc("/championships/{id}/stream/telemetry", h.handleTelemetryStream).Methods("GET")
	router.HandleFunc("/admin/services", h.handleServices).Methods("GET")
	router.HandleFunc("/admin/services/{id}", h.handleServiceStatus).Methods("GET")
	router.HandleFunc("/admin/services/{id}/start", h.handleStart).Methods("POST")
	router.HandleFunc("/admin/services/{id}/stop", h.handleStop).Methods("POST")
}

// handleStart starts championshipID. If the port query parameter is
// omitted, a port is drawn automatically from the registry's configured
// range; if supplied, it must fall inside that range and not already be
// reserved (Start/the PortAllocator enforce this).
func (h *Handlers) handleStart(w http.ResponseWriter, r *http.Request) {
	id, err := championshipID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	portStr := r.URL.Query().Get("port")
	if portStr == "" {
		port, err := h.reg.StartAuto(r.Context(), id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(startedResponse{Port: port})
		return
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		http.Error(w, "invalid port query parameter", http.StatusBadRequest)
		return
	}
	if err := h.reg.Start(r.Context(), id, uint16(port)); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type startedResponse struct {
	Port uint16 `json:"port"`
}

func (h *Handlers) handleStop(w http.ResponseWriter, r *http.Request) {
	id, err := championshipID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.reg.Stop(id); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeAppError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), apperrors.GetKind(err).StatusCode())
}

func (h *Handlers) handleLiveStream(w http.ResponseWriter, r *http.Request) {
	id, err := championshipID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cached, sub, ok := h.reg.CacheAndSubscribe(id)
	if !ok {
		http.Error(w, "championship not active", http.StatusNotFound)
		return
	}
	defer sub.Close()

	h.streamOctets(w, r, cached, sub)
}

func (h *Handlers) handleTelemetryStream(w http.ResponseWriter, r *http.Request) {
	id, err := championshipID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	teamID, isEngineer := h.auth.TeamFor(r, id)
	if !isEngineer {
		http.Error(w, "engineer role required", http.StatusForbidden)
		return
	}

	sub, ok := h.reg.SubscribeTeam(id, teamID)
	if !ok {
		http.Error(w, "team channel not active", http.StatusNotFound)
		return
	}
	defer sub.Close()

	h.streamOctets(w, r, nil, sub)
}

func (h *Handlers) handleServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.reg.Services())
}

func (h *Handlers) handleServiceStatus(w http.ResponseWriter, r *http.Request) {
	id, err := championshipID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	status, ok := h.reg.ServiceStatus(id)
	if !ok {
		http.Error(w, "championship not active", http.StatusNotFound)
		return
	}
	writeJSON(w, status)
}

// streamOctets writes prefix (if any) then relays sub's deltas as they
// arrive, flushing after every write so the client sees them promptly.
// It returns once the client disconnects or the stream ends.
func (h *Handlers) streamOctets(w http.ResponseWriter, r *http.Request, prefix []byte, sub stream) {
	w.Header().Set("Content-Type", "application/octet-stream")
	flusher, canFlush := w.(http.Flusher)

	if len(prefix) > 0 {
		if _, err := w.Write(prefix); err != nil {
			return
		}
		if canFlush {
			flusher.Flush()
		}
	}

	ctx := r.Context()
	for {
		chunk, err := sub.Recv(ctx)
		if err != nil {
			h.log.Debug().Err(err).Msg("registry: stream ended")
			return
		}
		if _, err := w.Write(chunk); err != nil {
			return
		}
		if canFlush {
			flusher.Flush()
		}
	}
}

func championshipID(r *http.Request) (int32, error) {
	idStr := mux.Vars(r)["id"]
	n, err := strconv.ParseInt(idStr, 10, 32)
	if err != nil {
		return 0, apperrors.Wrapf(err, apperrors.KindValidation, "registry: invalid championship id %q", idStr)
	}
	return int32(n), nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
