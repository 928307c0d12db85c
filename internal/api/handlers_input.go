// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"
	"time"

	"github.com/ManuGH/reelfeed/internal/feed"
	"github.com/ManuGH/reelfeed/internal/gesture"
)

type scrollRequest struct {
	Offset float64 `json:"offset"`
	// ViewportWidth and ViewportHeight resize the feed first when both are
	// positive.
	ViewportWidth  float64 `json:"viewportWidth"`
	ViewportHeight float64 `json:"viewportHeight"`
}

type keyRequest struct {
	Key string `json:"key"`
}

type keyResponse struct {
	Consumed bool          `json:"consumed"`
	State    feed.Snapshot `json:"state"`
}

type jumpRequest struct {
	Index *int `json:"index"`
}

type tapRequest struct {
	Index *int    `json:"index"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	// TimestampMs is when the renderer saw the tap, in Unix milliseconds of
	// its own clock. Without it taps are timed on arrival.
	TimestampMs *int64 `json:"timestampMs"`
}

type tapResponse struct {
	Region gesture.Region `json:"region"`
	State  feed.Snapshot  `json:"state"`
}

type visibilityRequest struct {
	Hidden bool `json:"hidden"`
}

func (s *Server) handleScroll(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req scrollRequest
	if !decode(w, r, &req) {
		return
	}
	s.apply(w, r, sess, func(c *feed.Controller) error {
		if req.ViewportWidth > 0 && req.ViewportHeight > 0 {
			c.Resize(req.ViewportWidth, req.ViewportHeight)
		}
		c.HandleScroll(req.Offset)
		return nil
	})
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req keyRequest
	if !decode(w, r, &req) {
		return
	}
	var resp keyResponse
	err := sess.Do(r.Context(), func(c *feed.Controller) {
		resp.Consumed = c.HandleKey(req.Key)
		resp.State = c.Snapshot()
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleJump(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req jumpRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Index == nil {
		writeProblem(w, r, http.StatusBadRequest, "request/missing_field", "Missing Field", "MISSING_INDEX", "index is required")
		return
	}
	s.apply(w, r, sess, func(c *feed.Controller) error { return c.JumpTo(*req.Index) })
}

func (s *Server) handleTap(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req tapRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Index == nil {
		writeProblem(w, r, http.StatusBadRequest, "request/missing_field", "Missing Field", "MISSING_INDEX", "index is required")
		return
	}
	var at time.Time
	if req.TimestampMs != nil {
		at = time.UnixMilli(*req.TimestampMs)
	}
	var resp tapResponse
	err := sess.Do(r.Context(), func(c *feed.Controller) {
		resp.Region = c.TapAt(*req.Index, req.X, req.Y, at)
		resp.State = c.Snapshot()
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req visibilityRequest
	if !decode(w, r, &req) {
		return
	}
	s.apply(w, r, sess, func(c *feed.Controller) error {
		c.SetHidden(req.Hidden)
		return nil
	})
}
