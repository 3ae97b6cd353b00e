package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>World News</title>
  <link>http://example.com/</link>
  <description>Test feed</description>
  <item>
    <title>Alien life found on Mars</title>
    <link>http://example.com/1</link>
    <description><![CDATA[<p>Private <b>space</b> agencies report <a href="#">discovery</a>.</p><script>track()</script>]]></description>
  </item>
  <item>
    <title>Senate passes budget</title>
    <link>http://example.com/2</link>
    <description>The bill now goes to the president.</description>
  </item>
  <item>
    <title></title>
    <description></description>
  </item>
</channel>
</rss>`

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain   text\n here", "plain text here"},
		{"<p>Hello <b>world</b></p>", "Hello world"},
		{"<div>a<style>.x{}</style> b</div>", "a b"},
		{"Fish &amp; chips", "Fish & chips"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripHTML(tt.in), "input %q", tt.in)
	}
}

func TestParse(t *testing.T) {
	items, err := NewFetcher().Parse(strings.NewReader(rssFixture))
	require.NoError(t, err)
	require.Len(t, items, 2, "empty items are skipped")

	assert.Equal(t, "Alien life found on Mars", items[0].Title)
	assert.Equal(t, "http://example.com/1", items[0].Link)
	assert.Equal(t, "Alien life found on Mars Private space agencies report discovery.", items[0].Text)
	assert.NotContains(t, items[0].Text, "track")

	limited, err := NewFetcher(WithMaxItems(1)).Parse(strings.NewReader(rssFixture))
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = NewFetcher().Parse(strings.NewReader("not a feed"))
	assert.Error(t, err)
}

func TestParseTruncatesByRune(t *testing.T) {
	tests := []struct {
		name  string
		title string
		body  string
		want  int
	}{
		{"short text kept", "Ab", "éé", utf8.RuneCountInString("Ab éé")},
		{"odd byte offset", "Ab", strings.Repeat("é", MaxTextLen), MaxTextLen},
		{"multi-byte title", "Überraschung", strings.Repeat("日本", MaxTextLen), MaxTextLen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>t</title>
<item><title>` + tt.title + `</title><description>` + tt.body + `</description></item>
</channel></rss>`
			items, err := NewFetcher().Parse(strings.NewReader(doc))
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.True(t, utf8.ValidString(items[0].Text))
			assert.Equal(t, tt.want, utf8.RuneCountInString(items[0].Text))
			assert.True(t, strings.HasPrefix(items[0].Text, tt.title+" "))
		})
	}
}

func TestFetch(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFixture))
	}))
	defer srv.Close()

	items, err := NewFetcher(WithUserAgent("newsclf-test")).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, "newsclf-test", gotUA)
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewFetcher(WithTimeout(50*time.Millisecond)).Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}
