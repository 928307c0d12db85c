// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package preload

// Hint is an outstanding prefetch of one resource.
type Hint interface {
	// Release retires the hint. It must not block and must be safe to call
	// more than once.
	Release()
}

// Prefetcher creates hints. Prefetch is called on the session loop and must
// return without waiting for the network.
type Prefetcher interface {
	Prefetch(url string) Hint
}

// PrefetcherFunc adapts a function to Prefetcher.
type PrefetcherFunc func(url string) Hint

func (f PrefetcherFunc) Prefetch(url string) Hint { return f(url) }

// HintFunc adapts a release function to Hint.
type HintFunc func()

func (f HintFunc) Release() {
	if f != nil {
		f()
	}
}

// Multi fans one prefetch out to several prefetchers and releases all of
// their hints together.
func Multi(ps ...Prefetcher) Prefetcher {
	return PrefetcherFunc(func(url string) Hint {
		hints := make(multiHint, 0, len(ps))
		for _, p := range ps {
			if p == nil {
				continue
			}
			if h := p.Prefetch(url); h != nil {
				hints = append(hints, h)
			}
		}
		return hints
	})
}

type multiHint []Hint

func (m multiHint) Release() {
	for _, h := range m {
		h.Release()
	}
}

// Nop prefetches nothing.
var Nop Prefetcher = PrefetcherFunc(func(string) Hint { return HintFunc(nil) })
