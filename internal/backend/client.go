// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package backend talks to the catalogue service that owns items and likes.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ManuGH/reelfeed/internal/feed"
	"github.com/ManuGH/reelfeed/internal/identity"
	"github.com/ManuGH/reelfeed/internal/likes"
	xglog "github.com/ManuGH/reelfeed/internal/log"
	"github.com/ManuGH/reelfeed/internal/platform/httpx"
	"github.com/ManuGH/reelfeed/internal/resilience"
)

const (
	// ViewerHeader carries the opaque viewer id to the catalogue service.
	ViewerHeader = "X-Viewer-ID"

	DefaultPageSize = 10
	defaultTimeout  = 10 * time.Second
	maxErrorBody    = 4 << 10
)

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// PageSize is the limit used by Items.
	PageSize int
	// HTTPClient overrides the hardened default client.
	HTTPClient *http.Client
	// BreakerThreshold consecutive outages open the circuit for BreakerReset.
	BreakerThreshold int
	BreakerReset     time.Duration
	Logger           *zerolog.Logger
}

// Client implements feed.Source and likes.Persister over HTTP.
type Client struct {
	base     *url.URL
	http     *http.Client
	pageSize int
	breaker  *resilience.CircuitBreaker
	group    singleflight.Group
	logger   zerolog.Logger
}

var (
	_ feed.Source     = (*Client)(nil)
	_ likes.Persister = (*Client)(nil)
)

// New validates cfg and returns a client.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("backend: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" || base.Host == "" {
		return nil, fmt.Errorf("backend: base url %q must be absolute http(s)", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = httpx.NewClient(cfg.Timeout, httpx.WithTracing(), httpx.WithUserAgent("reelfeed"))
	}
	logger := xglog.WithComponent("backend")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Client{
		base:     base,
		http:     hc,
		pageSize: cfg.PageSize,
		breaker: resilience.NewCircuitBreaker("backend", cfg.BreakerThreshold, cfg.BreakerReset,
			resilience.WithFailureClassifier(countsAsOutage)),
		logger: logger,
	}, nil
}

// Video is the catalogue's wire representation of an item.
type Video struct {
	ID           string   `json:"_id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	VideoURL     string   `json:"videoUrl"`
	ThumbnailURL string   `json:"thumbnailUrl"`
	Likes        int      `json:"likes"`
	LikedBy      []string `json:"likedBy"`
	UserEmail    string   `json:"userEmail"`
}

// Item converts v for viewer.
func (v Video) Item(viewer identity.Identity) feed.Item {
	return feed.Item{
		ID:            v.ID,
		MediaURL:      v.VideoURL,
		PosterURL:     v.ThumbnailURL,
		Title:         v.Title,
		Description:   v.Description,
		LikeCount:     max(0, v.Likes),
		LikedByViewer: viewer.ID != "" && slices.Contains(v.LikedBy, viewer.ID),
		Owner:         v.UserEmail,
	}
}

// Page is one slice of the catalogue.
type Page struct {
	Videos  []Video `json:"videos"`
	Total   int     `json:"total"`
	HasMore bool    `json:"hasMore"`
}

// ListItems fetches one page of the catalogue, newest first. Concurrent
// identical requests share a single upstream call.
func (c *Client) ListItems(ctx context.Context, limit, skip int) (Page, error) {
	if limit <= 0 {
		limit = c.pageSize
	}
	if skip < 0 {
		skip = 0
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("skip", strconv.Itoa(skip))
	key := q.Encode()

	ch := c.group.DoChan(key, func() (any, error) {
		var page Page
		err := c.do(ctx, "list_items", http.MethodGet, "/api/videos?"+key, "", &page)
		return page, err
	})
	select {
	case <-ctx.Done():
		return Page{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Page{}, res.Err
		}
		return res.Val.(Page), nil
	}
}

// Items returns the first page for viewer.
func (c *Client) Items(ctx context.Context, viewer identity.Identity) ([]feed.Item, error) {
	page, err := c.ListItems(ctx, c.pageSize, 0)
	if err != nil {
		return nil, err
	}
	items := make([]feed.Item, 0, len(page.Videos))
	for _, v := range page.Videos {
		if v.ID == "" || v.VideoURL == "" {
			c.logger.Warn().Str(xglog.FieldEvent, "backend.item_skipped").Str(xglog.FieldItemID, v.ID).Msg("catalogue entry without id or media url")
			continue
		}
		items = append(items, v.Item(viewer))
	}
	return items, nil
}

type toggleResponse struct {
	Likes   int  `json:"likes"`
	IsLiked bool `json:"isLiked"`
}

// ToggleLike flips the like relation between viewer and itemID.
func (c *Client) ToggleLike(ctx context.Context, itemID string, viewer identity.Identity) (likes.State, error) {
	if viewer.ID == "" {
		return likes.State{}, likes.ErrNoIdentity
	}
	var out toggleResponse
	path := "/api/videos/" + url.PathEscape(itemID) + "/like"
	if err := c.do(ctx, "toggle_like", http.MethodPost, path, viewer.ID, &out); err != nil {
		return likes.State{}, err
	}
	return likes.State{IsLiked: out.IsLiked, Count: max(0, out.Likes)}, nil
}

// BreakerState exposes the circuit state for readiness checks.
func (c *Client) BreakerState() resilience.State { return c.breaker.State() }

func (c *Client) do(ctx context.Context, op, method, path, viewer string, out any) error {
	err := c.breaker.Execute(func() error {
		return c.roundTrip(ctx, op, method, path, viewer, out)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return &Error{Sentinel: ErrUpstreamUnavailable, Operation: op, Err: err}
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, op, method, path, viewer string, out any) error {
	target := c.base.String() + path
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if viewer != "" {
		req.Header.Set(ViewerHeader, viewer)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &Error{Sentinel: ErrUpstreamUnavailable, Operation: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str(xglog.FieldEvent, "backend.response").
		Str("operation", op).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("backend call finished")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{
			Sentinel:  statusSentinel(resp.StatusCode),
			Operation: op,
			Status:    resp.StatusCode,
			Body:      strings.TrimSpace(string(body)),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Sentinel: ErrBadResponse, Operation: op, Status: resp.StatusCode, Err: err}
	}
	return nil
}
