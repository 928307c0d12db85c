// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by spans across the daemon.
const (
	SessionIDKey = "feed.session_id"
	ItemIDKey    = "feed.item_id"
	IndexKey     = "feed.index"
	InputKey     = "feed.input"
	ItemCountKey = "feed.item_count"

	ErrorTypeKey = "error.type"
)

// SessionAttributes describes an operation on a feed session. Empty values
// and negative indexes are omitted.
func SessionAttributes(sessionID, input string, index int) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if sessionID != "" {
		attrs = append(attrs, attribute.String(SessionIDKey, sessionID))
	}
	if input != "" {
		attrs = append(attrs, attribute.String(InputKey, input))
	}
	if index >= 0 {
		attrs = append(attrs, attribute.Int(IndexKey, index))
	}
	return attrs
}

// ItemAttributes describes an operation on one item.
func ItemAttributes(sessionID, itemID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(SessionIDKey, sessionID),
		attribute.String(ItemIDKey, itemID),
	}
}

// ErrorAttributes classifies a failure without leaking its message.
func ErrorAttributes(kind string) []attribute.KeyValue {
	if kind == "" {
		return nil
	}
	return []attribute.KeyValue{attribute.String(ErrorTypeKey, kind)}
}
