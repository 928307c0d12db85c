// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package preload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/reelfeed/internal/cache"
	xglog "github.com/ManuGH/reelfeed/internal/log"
	"github.com/ManuGH/reelfeed/internal/metrics"
	"github.com/ManuGH/reelfeed/internal/platform/httpx"
)

const (
	// DefaultPrefetchBytes is the size of the leading segment warmed per item.
	DefaultPrefetchBytes = 512 << 10
	// DefaultHintTTL bounds how long a warmed segment survives in the cache.
	DefaultHintTTL = 30 * time.Second

	prefetchTimeout = 15 * time.Second
)

// HTTPConfig configures an HTTPPrefetcher.
type HTTPConfig struct {
	Client *http.Client
	Cache  cache.Cache
	// Bytes is the leading range fetched per resource.
	Bytes int64
	// TTL is how long fetched bytes stay cached.
	TTL time.Duration
	// Rate and Burst pace fetches across all sessions. Rate <= 0 disables pacing.
	Rate   float64
	Burst  int
	Logger *zerolog.Logger
}

// HTTPPrefetcher warms the leading segment of each hinted resource into a
// shared cache with a ranged GET. Releasing a hint cancels an in-flight fetch
// and evicts the cached segment.
type HTTPPrefetcher struct {
	client  *http.Client
	cache   cache.Cache
	bytes   int64
	ttl     time.Duration
	limiter *rate.Limiter
	logger  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewHTTPPrefetcher(cfg HTTPConfig) *HTTPPrefetcher {
	if cfg.Client == nil {
		cfg.Client = httpx.NewClient(prefetchTimeout)
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewNoOpCache()
	}
	if cfg.Bytes <= 0 {
		cfg.Bytes = DefaultPrefetchBytes
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultHintTTL
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.Rate > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.Rate), burst)
	}
	logger := xglog.WithComponent("prefetch")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &HTTPPrefetcher{
		client:  cfg.Client,
		cache:   cfg.Cache,
		bytes:   cfg.Bytes,
		ttl:     cfg.TTL,
		limiter: limiter,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Prefetch implements Prefetcher.
func (p *HTTPPrefetcher) Prefetch(url string) Hint {
	ctx, cancel := context.WithCancel(p.ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.fetch(ctx, url)
	}()

	var once sync.Once
	return HintFunc(func() {
		once.Do(func() {
			cancel()
			p.cache.Delete(context.Background(), url)
		})
	})
}

// Close cancels outstanding fetches and waits for them to finish.
func (p *HTTPPrefetcher) Close() {
	p.cancel()
	p.wg.Wait()
}

func (p *HTTPPrefetcher) fetch(ctx context.Context, url string) {
	if _, ok := p.cache.Get(ctx, url); ok {
		metrics.RecordPrefetch("cached", 0)
		return
	}
	if err := p.limiter.Wait(ctx); err != nil {
		metrics.RecordPrefetch("canceled", 0)
		return
	}

	data, err := p.get(ctx, url)
	switch {
	case ctx.Err() != nil:
		metrics.RecordPrefetch("canceled", 0)
		return
	case err != nil:
		metrics.RecordPrefetch("error", 0)
		p.logger.Warn().Err(err).
			Str(xglog.FieldEvent, "prefetch.failed").
			Str(xglog.FieldURL, url).
			Msg("prefetch failed")
		return
	}

	p.cache.Set(ctx, url, data, p.ttl)
	if ctx.Err() != nil {
		// Released while storing; the hint's eviction may have run first.
		p.cache.Delete(context.Background(), url)
		metrics.RecordPrefetch("canceled", 0)
		return
	}
	metrics.RecordPrefetch("success", int64(len(data)))
}

func (p *HTTPPrefetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", p.bytes-1))

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, p.bytes))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

var _ Prefetcher = (*HTTPPrefetcher)(nil)
