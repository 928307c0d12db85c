// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"

	"github.com/ManuGH/reelfeed/internal/feed"
	"github.com/ManuGH/reelfeed/internal/identity"
	"github.com/ManuGH/reelfeed/internal/log"
	"github.com/ManuGH/reelfeed/internal/session"
)

type createSessionRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type sessionResponse struct {
	ID       string        `json:"id"`
	ViewerID string        `json:"viewerId,omitempty"`
	State    feed.Snapshot `json:"state"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Width < 0 || req.Height < 0 {
		writeProblem(w, r, http.StatusBadRequest, "request/invalid_viewport", "Invalid Viewport", "INVALID_VIEWPORT", "width and height must not be negative")
		return
	}

	viewer, _ := identity.FromContext(r.Context())
	sess, err := s.sessions.Create(r.Context(), viewer, session.Viewport{Width: req.Width, Height: req.Height})
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := sess.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/sessions/"+sess.ID)
	writeJSON(w, http.StatusCreated, sessionResponse{ID: sess.ID, ViewerID: viewer.ID, State: snap})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	snap, err := sess.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: sess.ID, ViewerID: sess.Viewer.ID, State: snap})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := s.sessions.Close(r.Context(), sess.ID, session.ReasonClient); err != nil {
		writeError(w, r, err)
		return
	}
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Debug().Str(log.FieldEvent, "api.session_deleted").Str(log.FieldSessionID, sess.ID).Msg("session closed by client")
	w.WriteHeader(http.StatusNoContent)
}
