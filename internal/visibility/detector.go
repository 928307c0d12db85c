// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package visibility

// DefaultThreshold is the on-screen area fraction required to count as visible.
const DefaultThreshold = 0.6

// Detector tracks whether one target meets a visibility threshold.
// It holds at most one Observer subscription at a time.
type Detector struct {
	obs       Observer
	threshold float64
	margin    float64

	target   string
	unsub    func()
	visible  bool
	onChange func(bool)
}

// Option configures a Detector.
type Option func(*Detector)

// WithThreshold overrides DefaultThreshold. Values are clamped to [0,1].
func WithThreshold(t float64) Option {
	return func(d *Detector) { d.threshold = clamp01(t) }
}

// WithMargin grows the observed viewport by px on both edges.
func WithMargin(px float64) Option {
	return func(d *Detector) { d.margin = px }
}

func NewDetector(obs Observer, opts ...Option) *Detector {
	d := &Detector{obs: obs, threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OnChange registers the callback fired whenever Visible flips.
func (d *Detector) OnChange(fn func(bool)) { d.onChange = fn }

// Visible reports the last observed state. It is false while detached.
func (d *Detector) Visible() bool { return d.visible }

// Threshold returns the configured threshold.
func (d *Detector) Threshold() float64 { return d.threshold }

// Attached reports whether a subscription is held.
func (d *Detector) Attached() bool { return d.unsub != nil }

// Attach starts observing target, replacing any earlier subscription.
// An empty target is a no-op.
func (d *Detector) Attach(target string) {
	if target == "" || d.obs == nil {
		return
	}
	d.release()
	d.target = target
	d.subscribe()
}

// Detach releases the subscription and resets the signal to false.
func (d *Detector) Detach() {
	d.release()
	d.target = ""
	d.set(false)
}

// Reconfigure applies opts and re-subscribes the current target.
func (d *Detector) Reconfigure(opts ...Option) {
	for _, opt := range opts {
		opt(d)
	}
	if d.target == "" {
		return
	}
	d.release()
	d.subscribe()
}

func (d *Detector) subscribe() {
	d.unsub = d.obs.Observe(d.target, d.threshold, d.margin, func(e Entry) {
		d.set(e.Visible)
	})
}

func (d *Detector) release() {
	if d.unsub != nil {
		d.unsub()
		d.unsub = nil
	}
}

func (d *Detector) set(v bool) {
	if d.visible == v {
		return
	}
	d.visible = v
	if d.onChange != nil {
		d.onChange(v)
	}
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
