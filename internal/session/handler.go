package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/inamate/transformlab/internal/auth"
	"github.com/inamate/transformlab/internal/engine"
)

// maxComposeSteps bounds the stateless compose endpoint.
const maxComposeSteps = 256

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Name     string  `json:"name"`
	GridUnit float64 `json:"gridUnit"`
}

type composeRequest struct {
	GridUnit float64    `json:"gridUnit"`
	Steps    [][]string `json:"steps"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.GridUnit < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "gridUnit must be positive"})
		return
	}

	sess, err := h.service.Create(r.Context(), req.Name, userID, req.GridUnit)
	if err != nil {
		slog.Error("create session failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, sess)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	sessionID := mux.Vars(r)["sessionId"]

	sess, err := h.service.Get(r.Context(), sessionID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	sessions, err := h.service.List(r.Context(), userID)
	if err != nil {
		slog.Error("list sessions failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, sessions)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	sessionID := mux.Vars(r)["sessionId"]

	if err := h.service.Delete(r.Context(), sessionID, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	sessionID := mux.Vars(r)["sessionId"]

	doc, err := h.service.GetLatestSnapshot(r.Context(), sessionID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	sessionID := mux.Vars(r)["sessionId"]

	st, err := h.service.State(r.Context(), sessionID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, st)
}

// Compose applies a list of 9-field steps to a fresh history and returns the
// resulting state. Nothing is stored.
func (h *Handler) Compose(w http.ResponseWriter, r *http.Request) {
	var req composeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.GridUnit < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "gridUnit must be positive"})
		return
	}
	if len(req.Steps) > maxComposeSteps {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "too many steps"})
		return
	}

	eng := engine.NewEngine(req.GridUnit, 0)
	for _, fields := range req.Steps {
		if _, err := eng.Apply(fields); err != nil {
			switch {
			case errors.Is(err, engine.ErrFieldCount):
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "each step needs 9 fields"})
				return
			case errors.Is(err, engine.ErrNonFinite):
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "transform overflows"})
				return
			}
			slog.Error("compose failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
	}

	writeJSON(w, http.StatusOK, eng.State())
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// writeJSON encodes data before writing the header, so a value that cannot
// be encoded turns into a 500 instead of a truncated 2xx body.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		slog.Error("encode response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"internal error"}` + "\n"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
