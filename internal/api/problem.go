// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ManuGH/reelfeed/internal/api/middleware"
	"github.com/ManuGH/reelfeed/internal/backend"
	"github.com/ManuGH/reelfeed/internal/feed"
	"github.com/ManuGH/reelfeed/internal/log"
	"github.com/ManuGH/reelfeed/internal/session"
)

// Problem is an RFC 7807 problem details body. Code is a stable machine
// readable short code.
type Problem struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Detail    string `json:"detail,omitempty"`
	Instance  string `json:"instance,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, problemType, title, code, detail string) {
	p := Problem{
		Type:      problemType,
		Title:     title,
		Status:    status,
		Code:      code,
		Detail:    detail,
		Instance:  r.URL.EscapedPath(),
		RequestID: log.RequestIDFromContext(r.Context()),
	}
	if p.RequestID == "" {
		p.RequestID = w.Header().Get(middleware.HeaderRequestID)
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.L().Error().Err(err).Str("type", problemType).Int("status", status).Msg("failed to encode problem response")
	}
}

// writeError maps a domain error onto a problem response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeProblem(w, r, http.StatusNotFound, "session/not_found", "Session Not Found", "SESSION_NOT_FOUND", "")
	case errors.Is(err, session.ErrClosed), errors.Is(err, feed.ErrClosed):
		writeProblem(w, r, http.StatusGone, "session/closed", "Session Closed", "SESSION_CLOSED", "")
	case errors.Is(err, session.ErrCapacity):
		writeProblem(w, r, http.StatusServiceUnavailable, "session/capacity", "Capacity Reached", "SESSION_CAPACITY", err.Error())
	case errors.Is(err, feed.ErrIndexOutOfRange):
		writeProblem(w, r, http.StatusUnprocessableEntity, "feed/index_out_of_range", "Index Out Of Range", "INDEX_OUT_OF_RANGE", "")
	case errors.Is(err, backend.ErrUpstreamUnavailable):
		writeProblem(w, r, http.StatusServiceUnavailable, "upstream/unavailable", "Upstream Unavailable", "UPSTREAM_UNAVAILABLE", err.Error())
	case errors.Is(err, backend.ErrUnauthorized), errors.Is(err, backend.ErrNotFound),
		errors.Is(err, backend.ErrUpstreamError), errors.Is(err, backend.ErrBadResponse):
		writeProblem(w, r, http.StatusBadGateway, "upstream/error", "Upstream Error", "UPSTREAM_ERROR", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeProblem(w, r, http.StatusGatewayTimeout, "system/timeout", "Timeout", "TIMEOUT", "")
	case errors.Is(err, context.Canceled):
		// The client went away; nobody reads the body.
		w.WriteHeader(499)
	default:
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str(log.FieldEvent, "api.unhandled_error").Str(log.FieldPath, r.URL.Path).Msg("request failed")
		writeProblem(w, r, http.StatusInternalServerError, "system/internal", "Internal Server Error", "INTERNAL", "")
	}
}

// decode reads a bounded, strict JSON body into v. It writes the problem
// itself and reports false on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeProblem(w, r, http.StatusBadRequest, "request/invalid_body", "Invalid Body", "INVALID_BODY", err.Error())
		return false
	}
	return true
}
