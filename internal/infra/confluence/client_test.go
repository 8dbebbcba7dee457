package confluence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "段落はブロック境界で改行される",
			html: "<p>First paragraph.</p><p>Second paragraph.</p>",
			want: "First paragraph.\nSecond paragraph.",
		},
		{
			name: "見出しとリスト",
			html: "<h1>Title</h1><ul><li>one</li><li>two</li></ul>",
			want: "Title\none\ntwo",
		},
		{
			name: "scriptとstyleは捨てられる",
			html: "<p>keep</p><script>var x = 1;</script><style>p{}</style>",
			want: "keep",
		},
		{
			name: "インライン要素は同じ行に残る",
			html: "<p>Hello <strong>bold</strong> world</p>",
			want: "Hello bold world",
		},
		{
			name: "空入力",
			html: "   ",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, htmlToText(tt.html))
		})
	}
}

func newFakeConfluence(t *testing.T, totalPages int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, token, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "user@example.com", user)
		require.Equal(t, "secret-token", token)
		require.Equal(t, "/rest/api/content", r.URL.Path)
		require.Equal(t, "body.storage", r.URL.Query().Get("expand"))

		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		results := make([]map[string]any, 0, limit)
		for i := start; i < totalPages && i < start+limit; i++ {
			results = append(results, map[string]any{
				"id":    fmt.Sprintf("%d", 1000+i),
				"title": fmt.Sprintf("Page %d", i),
				"body": map[string]any{
					"storage": map[string]any{
						"value": fmt.Sprintf("<p>Content of page %d.</p>", i),
					},
				},
			})
		}

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"results": results,
			"size":    len(results),
		}))
	}))
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := NewClient(baseURL, "user@example.com", "secret-token", WithClientLogger(logger))
	require.NoError(t, err)
	return client
}

func TestFetchPages_SinglePage(t *testing.T) {
	server := newFakeConfluence(t, 2)
	defer server.Close()

	client := newTestClient(t, server.URL)
	pages, err := client.FetchPages(context.Background(), "ENG")
	require.NoError(t, err)

	require.Len(t, pages, 2)
	assert.Equal(t, "1000", pages[0].ID)
	assert.Equal(t, "Page 0", pages[0].Title)
	assert.Equal(t, "Content of page 0.", pages[0].Content)
}

func TestFetchPages_Paginates(t *testing.T) {
	server := newFakeConfluence(t, 150)
	defer server.Close()

	client := newTestClient(t, server.URL)
	pages, err := client.FetchPages(context.Background(), "ENG")
	require.NoError(t, err)
	assert.Len(t, pages, 150)
}

func TestFetchPages_SkipsEmptyBodies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results": [
			{"id": "1", "title": "empty", "body": {"storage": {"value": ""}}},
			{"id": "2", "title": "ok", "body": {"storage": {"value": "<p>real content</p>"}}}
		], "size": 2}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	pages, err := client.FetchPages(context.Background(), "ENG")
	require.NoError(t, err)

	require.Len(t, pages, 1)
	assert.Equal(t, "2", pages[0].ID)
}

func TestFetchPages_ErrorStatusFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.FetchPages(context.Background(), "ENG")
	assert.Error(t, err)
}

func TestFetchPages_RequiresSpaceKey(t *testing.T) {
	client := newTestClient(t, "http://localhost:1")
	_, err := client.FetchPages(context.Background(), "")
	assert.Error(t, err)
}
