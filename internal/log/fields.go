// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldRequestID = "request_id"
	FieldViewerID  = "viewer_id"
	FieldItemID    = "item_id"
	FieldCommandID = "command_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Feed fields
	FieldIndex     = "index"
	FieldOldIndex  = "old_index"
	FieldNewIndex  = "new_index"
	FieldItemCount = "item_count"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path / URL fields
	FieldURL     = "url"
	FieldBaseURL = "base_url"
	FieldPath    = "path"
)
