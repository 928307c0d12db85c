// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthorized        = errors.New("backend: viewer not authorized")
	ErrNotFound            = errors.New("backend: item not found")
	ErrUpstreamUnavailable = errors.New("backend: upstream unavailable")
	ErrUpstreamError       = errors.New("backend: upstream error")
	ErrBadResponse         = errors.New("backend: malformed response")
)

// Error carries the HTTP context of a failed backend call. errors.Is matches
// it against its Sentinel.
type Error struct {
	Sentinel  error
	Operation string
	Status    int
	Body      string
	Err       error
}

func (e *Error) Error() string {
	msg := e.Operation + ": " + e.Sentinel.Error()
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Sentinel, e.Err}
	}
	return []error{e.Sentinel}
}

func statusSentinel(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusBadGateway || status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout:
		return ErrUpstreamUnavailable
	default:
		return ErrUpstreamError
	}
}

// countsAsOutage reports whether err should open the circuit. Client errors
// describe the request, not the backend's health.
func countsAsOutage(err error) bool {
	return !errors.Is(err, ErrUnauthorized) && !errors.Is(err, ErrNotFound)
}
