package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	minPasswordLen = 8
	// Display names are shown next to collaborators' cursors.
	maxDisplayNameLen = 64
	maxAuthBody       = 4 << 10
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// normalize trims the fields and folds the email to lower case, so an account
// is found however its address was typed.
func (req *registerRequest) normalize() {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.DisplayName = strings.TrimSpace(req.DisplayName)
}

// problem returns what is wrong with the request, or "" if nothing is.
func (req *registerRequest) problem() string {
	switch {
	case req.Email == "" || req.Password == "" || req.DisplayName == "":
		return "email, password and displayName are required to open a lab account"
	case !validEmail(req.Email):
		return "email is not a valid address"
	case len(req.Password) < minPasswordLen:
		return "password must be at least 8 characters"
	case utf8.RuneCountInString(req.DisplayName) > maxDisplayNameLen:
		return "displayName must be at most 64 characters"
	}
	return ""
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// Register opens an account and signs the new user in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.normalize()
	if msg := req.problem(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	result, err := h.service.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	switch {
	case errors.Is(err, ErrEmailTaken):
		writeError(w, http.StatusConflict, "an account with this email already exists")
	case err != nil:
		slog.Error("register", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		slog.Info("account created", "user", result.User.ID)
		writeJSON(w, http.StatusCreated, result)
	}
}

// Login exchanges an email and password for a session token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "wrong email or password")
	case err != nil:
		slog.Error("login", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

// Me returns the signed-in user. Mounted behind AuthMiddleware.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), UserIDFromContext(r.Context()))
	switch {
	case errors.Is(err, ErrUserNotFound):
		writeError(w, http.StatusNotFound, "account no longer exists")
	case err != nil:
		slog.Error("get user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(w, http.StatusOK, user)
	}
}

// decodeBody reads a small JSON body into v. On failure it has already
// written the 400.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAuthBody))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		slog.Error("encode response", "error", err)
		status = http.StatusInternalServerError
		buf.Reset()
		buf.WriteString(`{"error":"internal error"}` + "\n")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
