package fetcher_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"silentwave/internal/fetcher"
	"silentwave/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchNews(t *testing.T) {
	testCases := []struct {
		name     string
		status   int
		xml      string
		limit    int
		expected []models.NewsItem
		wantErr  bool
	}{
		{
			name:   "valid rss",
			status: http.StatusOK,
			xml: `<?xml version="1.0" encoding="UTF-8"?>
			<rss version="2.0">
				<channel>
					<title>Test Feed</title>
					<item>
						<title>Test Title</title>
						<description><![CDATA[<div><img src="x.jpg"/>Test <b>Description</b></div>]]></description>
						<pubDate>Wed, 03 May 2023 15:04:05 +0000</pubDate>
						<link>http://example.com/test</link>
					</item>
					<item>
						<title>Second</title>
						<description>Plain</description>
						<pubDate>Wed, 03 May 2023 15:00:00 +0000</pubDate>
						<link>http://example.com/second</link>
					</item>
				</channel>
			</rss>`,
			limit: 30,
			expected: []models.NewsItem{
				{
					Title:       "Test Title",
					Link:        "http://example.com/test",
					PubDate:     "Wed, 03 May 2023 15:04:05 +0000",
					Description: "Test Description",
				},
				{
					Title:       "Second",
					Link:        "http://example.com/second",
					PubDate:     "Wed, 03 May 2023 15:00:00 +0000",
					Description: "Plain",
				},
			},
		},
		{
			name:    "bad status",
			status:  http.StatusBadGateway,
			wantErr: true,
		},
		{
			name:    "not a feed",
			status:  http.StatusOK,
			xml:     "hello",
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Contains(t, r.Header.Get("User-Agent"), "SilentWave")
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.xml))
			}))
			defer server.Close()

			result, err := fetcher.New(time.Second).FetchNews(context.Background(), server.URL, tc.limit)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, result)
		})
	}
}

func TestFetchNews_Limit(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>`)
	for i := 0; i < 40; i++ {
		b.WriteString(`<item><title>item</title><link>http://example.com</link></item>`)
	}
	b.WriteString(`</channel></rss>`)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(b.String()))
	}))
	defer server.Close()

	result, err := fetcher.New(time.Second).FetchNews(context.Background(), server.URL, fetcher.DefaultLimit)
	require.NoError(t, err)
	require.Len(t, result, fetcher.DefaultLimit)
}

func TestStripHTML(t *testing.T) {
	require.Equal(t, "a b", fetcher.StripHTML("<p>a</p> <p>b</p>"))
	require.Equal(t, "plain", fetcher.StripHTML("  plain "))
	require.Equal(t, "", fetcher.StripHTML(""))
}
