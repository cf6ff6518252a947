// Package server exposes the interview service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/samber/lo"

	slogctx "github.com/veqryn/slog-context"

	"InterviewGuru/internal/backend"
	"InterviewGuru/internal/interviewer"
	"InterviewGuru/internal/reply"
	"InterviewGuru/internal/serviceerr"
	"InterviewGuru/internal/session"
)

const (
	maxBodyBytes       = 1 << 20
	deepHealthTimeout  = 5 * time.Second
	sessionNotFoundMsg = "Session not found"
)

// Interviewer is the service behind the HTTP surface.
type Interviewer interface {
	CreateSession(ctx context.Context, role, level string) (*session.Session, error)
	Session(ctx context.Context, id string) (*session.Session, error)
	Respond(ctx context.Context, id, text string) (*interviewer.Reply, error)
	End(ctx context.Context, id string) (*reply.Summary, error)
}

// ModelLister reports the models installed on the generation endpoint.
type ModelLister interface {
	ListModels(ctx context.Context) ([]backend.OllamaModel, error)
}

type CreateSessionRequest struct {
	Role  string `json:"role"`
	Level string `json:"level"`
}

type RespondRequest struct {
	SessionID string  `json:"sessionId"`
	Text      *string `json:"text"`
}

type EndRequest struct {
	SessionID string `json:"sessionId"`
}

type SessionResponse struct {
	OK      bool             `json:"ok"`
	Session *session.Session `json:"session"`
}

type RespondResponse struct {
	OK bool `json:"ok"`
	*interviewer.Reply
}

type EndResponse struct {
	OK     bool           `json:"ok"`
	Parsed *reply.Summary `json:"parsed"`
}

type HealthResponse struct {
	OK           bool     `json:"ok"`
	Model        string   `json:"model"`
	EndpointHost string   `json:"endpointHost"`
	Reachable    *bool    `json:"reachable,omitempty"`
	Models       []string `json:"models,omitempty"`
	Error        string   `json:"error,omitempty"`
}

type ErrorResponse struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// Handler serves the interview API.
type Handler struct {
	svc    Interviewer
	models ModelLister
	model  string
	host   string
}

func NewHandler(svc Interviewer, models ModelLister, model, host string) *Handler {
	return &Handler{svc: svc, models: models, model: model, host: host}
}

// RegisterRoutes mounts the API under /api and, for older clients, at the
// root as well.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	for _, prefix := range []string{"/api", ""} {
		router.HandleFunc(prefix+"/session", h.CreateSession).Methods(http.MethodPost)
		router.HandleFunc(prefix+"/session/{id}", h.GetSession).Methods(http.MethodGet)
		router.HandleFunc(prefix+"/respond", h.Respond).Methods(http.MethodPost)
		router.HandleFunc(prefix+"/end", h.End).Methods(http.MethodPost)
	}
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !h.decode(w, r, &req) {
		return
	}

	sess, err := h.svc.CreateSession(r.Context(), req.Role, req.Level)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, SessionResponse{OK: true, Session: sess})
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.Session(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, SessionResponse{OK: true, Session: sess})
}

func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	var req RespondRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.SessionID == "" || req.Text == nil {
		h.writeError(r.Context(), w, serviceerr.Validation("sessionId + text required"))
		return
	}

	out, err := h.svc.Respond(r.Context(), req.SessionID, *req.Text)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, RespondResponse{OK: true, Reply: out})
}

func (h *Handler) End(w http.ResponseWriter, r *http.Request) {
	var req EndRequest
	if !h.decode(w, r, &req) {
		return
	}

	summary, err := h.svc.End(r.Context(), req.SessionID)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, EndResponse{OK: true, Parsed: summary})
}

// Health reports the configured model. With ?deep=true it also asks the
// endpoint which models are installed.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{OK: true, Model: h.model, EndpointHost: h.host}
	if r.URL.Query().Get("deep") != "true" || h.models == nil {
		h.writeJSONResponse(w, http.StatusOK, resp)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), deepHealthTimeout)
	defer cancel()

	models, err := h.models.ListModels(ctx)
	if err != nil {
		slogctx.Warn(r.Context(), "generation endpoint unreachable", "error", err)
		resp.OK = false
		resp.Reachable = lo.ToPtr(false)
		resp.Error = err.Error()
		h.writeJSONResponse(w, http.StatusServiceUnavailable, resp)
		return
	}

	resp.Reachable = lo.ToPtr(true)
	resp.Models = lo.Map(models, func(m backend.OllamaModel, _ int) string { return m.Name })
	if !lo.Contains(resp.Models, h.model) {
		resp.Error = "configured model is not installed"
	}
	h.writeJSONResponse(w, http.StatusOK, resp)
}

// decode reads an optional JSON body; an empty body leaves dst untouched.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	slogctx.Warn(r.Context(), "failed to decode request JSON", "error", err)
	h.writeJSONResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON payload"})
	return false
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := serviceerr.HTTPStatus(err)
	resp := ErrorResponse{Error: err.Error(), Detail: serviceerr.Detail(err)}

	switch status {
	case http.StatusNotFound:
		resp.Error = sessionNotFoundMsg
		slogctx.Info(ctx, "session not found", "error", err)
	case http.StatusBadRequest:
		slogctx.Info(ctx, "rejected request", "error", err)
	default:
		slogctx.Error(ctx, "request failed", "error", err)
	}
	h.writeJSONResponse(w, status, resp)
}

func (h *Handler) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}
