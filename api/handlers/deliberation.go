// Copyright (c) MedQuorum Authors.
// Licensed under the MIT License.

package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/medquorum/deliberation"
	"github.com/BaSui01/medquorum/session"
	"github.com/BaSui01/medquorum/types"
)

// DeliberationHandler exposes session lifecycle and deliberation runs.
type DeliberationHandler struct {
	orchestrator *deliberation.Orchestrator
	store        *session.Store
	logger       *zap.Logger
}

// NewDeliberationHandler creates the handler.
func NewDeliberationHandler(orchestrator *deliberation.Orchestrator, store *session.Store, logger *zap.Logger) *DeliberationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeliberationHandler{
		orchestrator: orchestrator,
		store:        store,
		logger:       logger.With(zap.String("component", "api")),
	}
}

// StartSessionRequest is the POST /api/v1/sessions body.
type StartSessionRequest struct {
	SessionID string            `json:"session_id,omitempty"`
	Case      types.CaseContext `json:"case"`
}

// SessionResponse is the session view returned by the API. The case is
// redacted; raw free-text never leaves the engine through this surface.
type SessionResponse struct {
	SessionID         string            `json:"session_id"`
	Case              types.CaseContext `json:"case"`
	CurrentRound      int               `json:"current_round"`
	MaxRounds         int               `json:"max_rounds"`
	Terminated        bool              `json:"terminated"`
	TerminationReason string            `json:"termination_reason,omitempty"`
}

func sessionView(sess *session.Session) SessionResponse {
	return SessionResponse{
		SessionID:         sess.ID,
		Case:              sess.Context.RedactForLog(),
		CurrentRound:      sess.CurrentRound,
		MaxRounds:         sess.MaxRounds,
		Terminated:        sess.Terminated,
		TerminationReason: sess.TerminationReason,
	}
}

// HandleStartSession handles POST /api/v1/sessions.
func (h *DeliberationHandler) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "method not allowed").
			WithHTTPStatus(http.StatusMethodNotAllowed), h.logger)
		return
	}

	var req StartSessionRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	sess, err := h.orchestrator.StartSession(req.SessionID, req.Case)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, sessionView(sess))
}

// HandleGetSession handles GET /api/v1/sessions/{id}.
func (h *DeliberationHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.store.Get(r.PathValue("id"))
	if !ok {
		WriteError(w, types.NewError(types.ErrSessionNotFound, "session not found"), h.logger)
		return
	}
	WriteSuccess(w, sessionView(sess))
}

// HandleRun handles POST /api/v1/sessions/{id}/run. The call blocks until
// the deliberation terminates.
func (h *DeliberationHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	result, err := h.orchestrator.Run(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, result)
}

// HandleGetDecision handles GET /api/v1/sessions/{id}/decision.
func (h *DeliberationHandler) HandleGetDecision(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if _, ok := h.store.Get(sessionID); !ok {
		WriteError(w, types.NewError(types.ErrSessionNotFound, "session not found"), h.logger)
		return
	}

	decision, ok := h.store.FinalDecision(sessionID)
	if !ok {
		WriteError(w, types.NewError(types.ErrNoOpenRound, "no decision recorded yet"), h.logger)
		return
	}
	WriteSuccess(w, decision)
}

// EndSessionRequest is the POST /api/v1/sessions/{id}/end body.
type EndSessionRequest struct {
	Reason string `json:"reason,omitempty"`
}

// HandleEndSession handles POST /api/v1/sessions/{id}/end.
func (h *DeliberationHandler) HandleEndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	sess, ok := h.store.Get(sessionID)
	if !ok {
		WriteError(w, types.NewError(types.ErrSessionNotFound, "session not found"), h.logger)
		return
	}

	var req EndSessionRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
			return
		}
	}
	reason := req.Reason
	if reason == "" {
		reason = "ended by operator"
	}

	h.store.End(sessionID, reason)
	sess, _ = h.store.Get(sessionID)
	WriteSuccess(w, sessionView(sess))
}

// Register wires the handler's routes onto mux.
func (h *DeliberationHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/sessions", h.HandleStartSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}", h.HandleGetSession)
	mux.HandleFunc("POST /api/v1/sessions/{id}/run", h.HandleRun)
	mux.HandleFunc("GET /api/v1/sessions/{id}/decision", h.HandleGetDecision)
	mux.HandleFunc("POST /api/v1/sessions/{id}/end", h.HandleEndSession)
}
