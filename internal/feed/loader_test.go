package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"copywatch/internal/domain"
)

func TestLoaderPagesUntilTerminal(t *testing.T) {
	t.Parallel()

	var gotLastIDs []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLastIDs = append(gotLastIDs, r.URL.Query().Get("lastid"))
		assert.Equal(t, "open", r.URL.Query().Get("filter"))

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("lastid") == "" {
			_, _ = w.Write([]byte(`{"records": [
				{"id": 10, "diff_id": 900, "page_title": "First", "status": 0},
				{"id": 9, "diff_id": 899, "page_title": "Second", "status": 0}
			]}`))
			return
		}
		_, _ = w.Write([]byte(`{"records": []}`))
	}))
	defer server.Close()

	loader := NewLoader(server.Client(), server.URL, url.Values{"filter": {"open"}}, nil)
	ctx := context.Background()

	page, err := loader.Next(ctx)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.False(t, page.End)
	assert.Equal(t, int64(10), page.Items[0].ID)
	assert.Equal(t, "Second", page.Items[1].Title)

	page, err = loader.Next(ctx)
	require.NoError(t, err)
	assert.True(t, page.End, "exhausted feed must signal the terminal state")
	assert.True(t, loader.End())

	// A terminal loader keeps answering End without refetching.
	page, err = loader.Next(ctx)
	require.NoError(t, err)
	assert.True(t, page.End)

	assert.Equal(t, []string{"", "9"}, gotLastIDs)
}

func TestLoaderFailureLeavesCursorUnchanged(t *testing.T) {
	t.Parallel()

	var calls int
	var gotLastIDs []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		gotLastIDs = append(gotLastIDs, r.URL.Query().Get("lastid"))
		if calls == 2 {
			http.Error(w, "upstream hiccup", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"records": [{"id": 5, "diff_id": 500, "page_title": "Only", "status": 0}]}`))
	}))
	defer server.Close()

	loader := NewLoader(server.Client(), server.URL, url.Values{}, nil)
	ctx := context.Background()

	_, err := loader.Next(ctx)
	require.NoError(t, err)

	_, err = loader.Next(ctx)
	require.Error(t, err)
	assert.False(t, loader.End())

	// Retry re-sends the same cursor.
	_, err = loader.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "5", "5"}, gotLastIDs)
}

func TestLoaderParsesHTMLFragment(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<div class="record-container">
			<article class="record" data-id="7" data-diff-id="700" data-status="1">
				<h2 class="record-title">Draft: Example </h2>
			</article>
		</div>`))
	}))
	defer server.Close()

	loader := NewLoader(server.Client(), server.URL, url.Values{}, nil)

	page, err := loader.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	assert.Equal(t, int64(7), page.Items[0].ID)
	assert.Equal(t, int64(700), page.Items[0].DiffID)
	assert.Equal(t, domain.StatusFixed, page.Items[0].Status)
	assert.Equal(t, "Draft: Example", page.Items[0].Title)
}

func TestParseRecordFragmentEmpty(t *testing.T) {
	t.Parallel()

	items, err := ParseRecordFragment(strings.NewReader(`<div class="record-container"></div>`))
	require.NoError(t, err)
	assert.Empty(t, items)
}
