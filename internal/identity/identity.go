// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package identity exposes the current viewer to the feed engine. The engine
// only needs to know whether a viewer is present and an opaque identifier;
// credentials are handled elsewhere.
package identity

import (
	"context"
	"strings"
)

// Identity is an authenticated viewer.
type Identity struct {
	ID string
}

// Provider reports the current viewer, if any.
type Provider interface {
	Current() (Identity, bool)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func() (Identity, bool)

func (f ProviderFunc) Current() (Identity, bool) { return f() }

// Static always reports id. A blank id is anonymous.
func Static(id string) Provider {
	id = strings.TrimSpace(id)
	return ProviderFunc(func() (Identity, bool) {
		if id == "" {
			return Identity{}, false
		}
		return Identity{ID: id}, true
	})
}

// Anonymous never reports a viewer.
var Anonymous Provider = ProviderFunc(func() (Identity, bool) { return Identity{}, false })

type ctxKey struct{}

// NewContext returns ctx carrying id.
func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the viewer carried by ctx.
func FromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok || id.ID == "" {
		return Identity{}, false
	}
	return id, true
}
