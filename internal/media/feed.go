package media

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
)

// Episode is the playable item picked from a podcast feed.
type Episode struct {
	AudioURL string
	Title    string
}

// FeedResolver turns a podcast feed URL into its newest audio enclosure.
type FeedResolver struct {
	feedParser *gofeed.Parser
}

// NewFeedResolver creates a new feed resolver
func NewFeedResolver() *FeedResolver {
	return &FeedResolver{
		feedParser: gofeed.NewParser(),
	}
}

// IsFeedURL reports whether raw looks like an RSS/Atom feed address.
func IsFeedURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	path := strings.ToLower(strings.TrimSuffix(u.Path, "/"))
	for _, suffix := range []string{".rss", ".xml", "/feed", "/rss", ".atom"} {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

// Resolve parses the feed and returns the newest item carrying audio.
func (r *FeedResolver) Resolve(ctx context.Context, feedURL string) (Episode, error) {
	feed, err := r.feedParser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return Episode{}, fmt.Errorf("failed to parse feed: %w", err)
	}
	return newestEpisode(feed)
}

// ResolveString is Resolve for an already fetched feed document.
func (r *FeedResolver) ResolveString(doc string) (Episode, error) {
	feed, err := r.feedParser.ParseString(doc)
	if err != nil {
		return Episode{}, fmt.Errorf("failed to parse feed: %w", err)
	}
	return newestEpisode(feed)
}

func newestEpisode(feed *gofeed.Feed) (Episode, error) {
	if feed == nil || len(feed.Items) == 0 {
		return Episode{}, fmt.Errorf("feed contains no items")
	}

	var best *gofeed.Item
	var bestURL string
	for _, item := range feed.Items {
		audio := enclosureURL(item)
		if audio == "" {
			continue
		}
		if best == nil || newer(item, best) {
			best = item
			bestURL = audio
		}
	}

	if best == nil {
		return Episode{}, fmt.Errorf("no audio enclosure found in feed items")
	}

	return Episode{AudioURL: bestURL, Title: strings.TrimSpace(best.Title)}, nil
}

func enclosureURL(item *gofeed.Item) string {
	var fallback string
	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if strings.HasPrefix(enc.Type, "audio/") {
			return enc.URL
		}
		if fallback == "" {
			fallback = enc.URL
		}
	}
	return fallback
}

// newer compares publish dates; undated items keep feed order.
func newer(a, b *gofeed.Item) bool {
	if a.PublishedParsed == nil || b.PublishedParsed == nil {
		return false
	}
	return a.PublishedParsed.After(*b.PublishedParsed)
}
