// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package httpx builds the outbound HTTP clients used for the catalogue
// backend and media prefetching.
package httpx

import (
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

const (
	defaultClientTimeout         = 5 * time.Second
	defaultDialTimeout           = 3 * time.Second
	defaultResponseHeaderTimeout = 3 * time.Second
	defaultIdleConnTimeout       = 30 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultMaxIdleConns          = 32
	defaultMaxIdleConnsPerHost   = 8
)

type options struct {
	tracing   bool
	userAgent string
}

// Option customises a client built by NewClient.
type Option func(*options)

// WithTracing wraps the transport so each request carries a client span and
// propagates trace context upstream.
func WithTracing() Option { return func(o *options) { o.tracing = true } }

// WithUserAgent sets the User-Agent header on requests that do not carry one.
func WithUserAgent(ua string) Option { return func(o *options) { o.userAgent = ua } }

// NewClient returns a hardened HTTP client for outbound calls.
func NewClient(timeout time.Duration, opts ...Option) *http.Client {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}

	dialTimeout := min(timeout, defaultDialTimeout)
	responseHeaderTimeout := min(timeout, defaultResponseHeaderTimeout)

	var rt http.RoundTripper = &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   dialTimeout,
		ResponseHeaderTimeout: responseHeaderTimeout,
		ExpectContinueTimeout: defaultExpectContinueTimeout,
	}
	if o.userAgent != "" {
		rt = userAgentTransport{next: rt, ua: o.userAgent}
	}
	if o.tracing {
		rt = otelhttp.NewTransport(rt, otelhttp.WithTracerProvider(otel.GetTracerProvider()))
	}

	return &http.Client{Timeout: timeout, Transport: rt}
}

type userAgentTransport struct {
	next http.RoundTripper
	ua   string
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.next.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.ua)
	return t.next.RoundTrip(req)
}

// Transport returns the innermost *http.Transport of a client built by
// NewClient, or nil.
func Transport(c *http.Client) *http.Transport {
	switch rt := c.Transport.(type) {
	case *http.Transport:
		return rt
	case userAgentTransport:
		t, _ := rt.next.(*http.Transport)
		return t
	}
	return nil
}
