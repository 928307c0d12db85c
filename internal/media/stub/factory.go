// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stub

import (
	"sync"

	"github.com/ManuGH/reelfeed/internal/media"
)

// Factory opens stub elements and remembers every element it created.
type Factory struct {
	Policy Policy

	mu     sync.Mutex
	opened []*Element
	byItem map[string]*Element
}

func NewFactory(policy Policy) *Factory {
	return &Factory{Policy: policy, byItem: make(map[string]*Element)}
}

func (f *Factory) Open(src media.Source) media.Element {
	el := New(src, f.Policy)
	f.mu.Lock()
	f.opened = append(f.opened, el)
	f.byItem[src.ItemID] = el
	f.mu.Unlock()
	return el
}

// Latest returns the most recently opened element for itemID.
func (f *Factory) Latest(itemID string) *Element {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byItem[itemID]
}

// Opened returns every element created so far.
func (f *Factory) Opened() []*Element {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Element(nil), f.opened...)
}

var _ media.Factory = (*Factory)(nil)
