// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package feed

import (
	"context"
	"net/url"
	"strings"

	"github.com/ManuGH/reelfeed/internal/identity"
	"github.com/ManuGH/reelfeed/internal/likes"
)

// Item is one feed entry. Like fields are the values loaded with the feed;
// the live values are owned by the like store.
type Item struct {
	ID            string `json:"id"`
	MediaURL      string `json:"mediaUrl"`
	PosterURL     string `json:"posterUrl,omitempty"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	LikeCount     int    `json:"likeCount"`
	LikedByViewer bool   `json:"likedByViewer"`
	Owner         string `json:"owner,omitempty"`
}

func (it Item) likeState() likes.State {
	return likes.State{IsLiked: it.LikedByViewer, Count: it.LikeCount}
}

// Source loads the ordered item list for a viewer. It may return fewer items
// near the end of a feed.
type Source interface {
	Items(ctx context.Context, viewer identity.Identity) ([]Item, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, viewer identity.Identity) ([]Item, error)

func (f SourceFunc) Items(ctx context.Context, viewer identity.Identity) ([]Item, error) {
	return f(ctx, viewer)
}

// ShareURL returns the public link of an item under origin.
func ShareURL(origin, itemID string) string {
	return strings.TrimRight(origin, "/") + "/reel/" + url.PathEscape(itemID)
}
