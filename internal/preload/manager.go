// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package preload keeps prefetch hints for a bounded window of feed items
// around the active one.
package preload

import (
	"sort"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/reelfeed/internal/log"
	"github.com/ManuGH/reelfeed/internal/metrics"
)

// DefaultAhead is the number of items after the current one to prefetch.
const DefaultAhead = 1

// Manager owns the live hint set of one feed session. It is not
// goroutine-safe; the session loop is its only writer.
type Manager struct {
	prefetcher Prefetcher
	ahead      int
	logger     zerolog.Logger

	live   map[string]Hint
	closed bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithAhead sets how many upcoming items are prefetched. Negative values
// are treated as zero.
func WithAhead(n int) Option {
	return func(m *Manager) {
		if n < 0 {
			n = 0
		}
		m.ahead = n
	}
}

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) Option { return func(m *Manager) { m.logger = l } }

func NewManager(p Prefetcher, opts ...Option) *Manager {
	if p == nil {
		p = Nop
	}
	m := &Manager{
		prefetcher: p,
		ahead:      DefaultAhead,
		logger:     xglog.WithComponent("preload"),
		live:       make(map[string]Hint),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Ahead returns the configured look-ahead.
func (m *Manager) Ahead() int { return m.ahead }

// Desired returns the URLs that should be prefetched for current: the
// current item, the next ahead items and the previous one, in that order,
// without duplicates or empty URLs.
func Desired(current int, urls []string, ahead int) []string {
	if len(urls) == 0 {
		return nil
	}
	out := make([]string, 0, ahead+2)
	seen := make(map[string]struct{}, ahead+2)
	add := func(i int) {
		if i < 0 || i >= len(urls) || urls[i] == "" {
			return
		}
		if _, dup := seen[urls[i]]; dup {
			return
		}
		seen[urls[i]] = struct{}{}
		out = append(out, urls[i])
	}
	for k := 0; k <= ahead; k++ {
		add(current + k)
	}
	add(current - 1)
	return out
}

// Update recomputes the window from scratch: hints outside it are retired
// before new ones are created, so the live set never exceeds ahead+2.
func (m *Manager) Update(current int, urls []string) {
	if m.closed {
		return
	}
	want := Desired(current, urls, m.ahead)
	wantSet := make(map[string]struct{}, len(want))
	for _, u := range want {
		wantSet[u] = struct{}{}
	}

	for url, h := range m.live {
		if _, keep := wantSet[url]; keep {
			continue
		}
		m.retire(url, h)
	}
	for _, url := range want {
		if _, ok := m.live[url]; ok {
			continue
		}
		m.live[url] = m.prefetcher.Prefetch(url)
		metrics.RecordHintCreated()
		m.logger.Debug().
			Str(xglog.FieldEvent, "preload.hint_created").
			Str(xglog.FieldURL, url).
			Int(xglog.FieldIndex, current).
			Msg("prefetch hint created")
	}
}

// Live returns the URLs currently hinted, sorted.
func (m *Manager) Live() []string {
	out := make([]string, 0, len(m.live))
	for url := range m.live {
		out = append(out, url)
	}
	sort.Strings(out)
	return out
}

// Len returns the live set size.
func (m *Manager) Len() int { return len(m.live) }

// Close retires every hint. Later updates are ignored.
func (m *Manager) Close() {
	if m.closed {
		return
	}
	m.closed = true
	for url, h := range m.live {
		m.retire(url, h)
	}
}

func (m *Manager) retire(url string, h Hint) {
	delete(m.live, url)
	if h != nil {
		h.Release()
	}
	metrics.RecordHintRetired()
	m.logger.Debug().
		Str(xglog.FieldEvent, "preload.hint_retired").
		Str(xglog.FieldURL, url).
		Msg("prefetch hint retired")
}
