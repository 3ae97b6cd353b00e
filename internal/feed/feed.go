// Package feed pulls news items from RSS/Atom feeds and turns them into plain text for prediction.
package feed

import (
	"context"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/ezoic/newsclf/pkg/errors"
	"github.com/ezoic/newsclf/pkg/log"
)

// MaxTextLen caps the runes of text kept per item.
const MaxTextLen = 50_000

// Item is one feed entry reduced to plain text.
type Item struct {
	Title string
	Link  string
	// Text is the title followed by the item body with markup removed.
	Text string
}

// Fetcher downloads and parses feeds.
type Fetcher struct {
	parser   *gofeed.Parser
	timeout  time.Duration
	maxItems int
	logger   log.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout bounds each Fetch call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithMaxItems keeps at most n items per feed. n <= 0 keeps all.
func WithMaxItems(n int) Option {
	return func(f *Fetcher) {
		f.maxItems = n
	}
}

// WithUserAgent sets the User-Agent header sent with feed requests.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.parser.UserAgent = ua
	}
}

// NewFetcher creates a Fetcher with a 15s timeout and no item limit.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		parser:  gofeed.NewParser(),
		timeout: 15 * time.Second,
		logger:  log.GetLoggerWithName("feed"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads the feed at url and returns its items.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]Item, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	start := time.Now()
	parsed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "feed: fetch %s", url)
	}
	items := f.items(parsed)
	f.logger.Info("feed fetched",
		"url", url,
		"title", parsed.Title,
		log.SamplesKey, len(items),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return items, nil
}

// Parse reads a feed document from r.
func (f *Fetcher) Parse(r io.Reader) ([]Item, error) {
	parsed, err := f.parser.Parse(r)
	if err != nil {
		return nil, errors.Wrap(err, "feed: parse")
	}
	return f.items(parsed), nil
}

func (f *Fetcher) items(parsed *gofeed.Feed) []Item {
	var out []Item
	for _, it := range parsed.Items {
		if f.maxItems > 0 && len(out) == f.maxItems {
			break
		}
		body := it.Content
		if body == "" {
			body = it.Description
		}
		title := StripHTML(it.Title)
		text := strings.TrimSpace(title + " " + StripHTML(body))
		if text == "" {
			continue
		}
		if utf8.RuneCountInString(text) > MaxTextLen {
			text = string([]rune(text)[:MaxTextLen])
		}
		out = append(out, Item{Title: title, Link: it.Link, Text: text})
	}
	return out
}

// StripHTML returns the visible text of an HTML fragment with whitespace collapsed.
// Script, style and embedded frames are dropped.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	doc.Find("script, style, noscript, iframe").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
