// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/reelfeed/internal/log"
	"github.com/ManuGH/reelfeed/internal/media"
)

type mediaEventRequest struct {
	Type        string  `json:"type"`
	Duration    float64 `json:"duration"`
	CurrentTime float64 `json:"currentTime"`
	Message     string  `json:"message"`
}

type playResultRequest struct {
	CommandID string `json:"commandId"`
	OK        bool   `json:"ok"`
	Reason    string `json:"reason"`
}

func (s *Server) handleMediaEvent(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req mediaEventRequest
	if !decode(w, r, &req) {
		return
	}
	typ, err := media.ParseEventType(req.Type)
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, "media/unknown_event", "Unknown Event", "UNKNOWN_EVENT", err.Error())
		return
	}

	itemID := chi.URLParam(r, "itemID")
	found, err := sess.Dispatch(r.Context(), itemID, media.Event{
		Type:        typ,
		Duration:    req.Duration,
		CurrentTime: req.CurrentTime,
		Message:     req.Message,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !found {
		// The item scrolled out of the mounted window before the event arrived.
		writeProblem(w, r, http.StatusNotFound, "media/not_mounted", "Item Not Mounted", "ITEM_NOT_MOUNTED", itemID)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handlePlayResult(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req playResultRequest
	if !decode(w, r, &req) {
		return
	}
	if req.CommandID == "" {
		writeProblem(w, r, http.StatusBadRequest, "request/missing_field", "Missing Field", "MISSING_COMMAND_ID", "commandId is required")
		return
	}
	if !sess.ResolvePlay(req.CommandID, req.OK, req.Reason) {
		writeProblem(w, r, http.StatusConflict, "media/command_not_pending", "Command Not Pending", "COMMAND_NOT_PENDING", req.CommandID)
		return
	}
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Debug().
		Str(log.FieldEvent, "api.play_resolved").
		Str(log.FieldSessionID, sess.ID).
		Str(log.FieldItemID, chi.URLParam(r, "itemID")).
		Str(log.FieldCommandID, req.CommandID).
		Bool("ok", req.OK).
		Msg("play acknowledged")
	w.WriteHeader(http.StatusAccepted)
}
