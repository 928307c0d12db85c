// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ManuGH/reelfeed/internal/bus"
	"github.com/ManuGH/reelfeed/internal/log"
)

// handleCommands streams the session topic as server-sent events. The event
// name is the message kind. The stream opens with the current snapshot and
// ends after the session's closed event.
func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, r, http.StatusInternalServerError, "system/streaming_unsupported", "Streaming Unsupported", "STREAMING_UNSUPPORTED", "")
		return
	}

	sub, err := s.bus.Subscribe(r.Context(), sess.Topic())
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer func() { _ = sub.Close() }()

	// Subscribe before reading the snapshot so no update falls in between.
	snap, err := sess.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Event streams outlive the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	logger := log.WithComponentFromContext(r.Context(), "api.stream")
	logger.Debug().Str(log.FieldEvent, "stream.opened").Str(log.FieldSessionID, sess.ID).Msg("command stream opened")

	var seq uint64
	send := func(msg bus.Message) error {
		seq++
		return writeEvent(w, seq, msg)
	}
	if err := send(bus.Message{Kind: bus.KindSnapshot, Data: snap}); err != nil {
		return
	}
	flusher.Flush()

	keepAlive := time.NewTicker(s.cfg.KeepAlive)
	defer keepAlive.Stop()
	for {
		select {
		case <-r.Context().Done():
			logger.Debug().Str(log.FieldEvent, "stream.client_gone").Str(log.FieldSessionID, sess.ID).Msg("command stream closed by client")
			return
		case <-keepAlive.C:
			sess.Touch()
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case msg, ok := <-sub.C():
			if !ok {
				if sub.Evicted() {
					logger.Warn().Str(log.FieldEvent, "stream.evicted").Str(log.FieldSessionID, sess.ID).Msg("command stream fell behind, asking renderer to resync")
					if send(bus.Message{Kind: bus.KindResync}) == nil {
						flusher.Flush()
					}
				}
				return
			}
			if err := send(msg); err != nil {
				logger.Warn().Err(err).Str(log.FieldEvent, "stream.write_failed").Str(log.FieldSessionID, sess.ID).Msg("command stream write failed")
				return
			}
			flusher.Flush()
			if msg.Kind == bus.KindClosed {
				return
			}
		}
	}
}

func writeEvent(w io.Writer, id uint64, msg bus.Message) error {
	data, err := json.Marshal(msg.Data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", msg.Kind, err)
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, msg.Kind, data)
	return err
}
