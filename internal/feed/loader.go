package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"copywatch/internal/domain"
)

// Item is one record as rendered in the feed list.
type Item struct {
	ID     int64               `json:"id"`
	DiffID int64               `json:"diff_id"`
	Title  string              `json:"page_title"`
	Status domain.ReviewStatus `json:"status"`
}

// Page is one fetched continuation of the feed.
type Page struct {
	Items []Item
	// End marks the terminal no-more-records state, as opposed to an
	// empty-but-continuable page.
	End bool
}

// Loader implements cursor-based, forward-only pagination over the record
// listing endpoint. A failed fetch leaves the cursor unchanged, so the same
// call is safely retryable.
type Loader struct {
	client  *http.Client
	baseURL string
	params  url.Values
	logger  *slog.Logger

	lastID int64
	end    bool
}

// NewLoader wires an HTTP client against the listing URL. The params carry
// the active filter context and are reused verbatim on every fetch.
func NewLoader(client *http.Client, baseURL string, params url.Values, logger *slog.Logger) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Loader{
		client:  client,
		baseURL: baseURL,
		params:  params,
		logger:  logger,
	}
}

// Next fetches the page following the last one successfully returned.
func (l *Loader) Next(ctx context.Context) (Page, error) {
	if l.end {
		return Page{End: true}, nil
	}

	params := url.Values{}
	for key, values := range l.params {
		params[key] = values
	}
	if l.lastID > 0 {
		params.Set("lastid", strconv.FormatInt(l.lastID, 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Page{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("listing endpoint returned %s", resp.Status)
	}

	items, err := decodeItems(resp)
	if err != nil {
		return Page{}, err
	}

	if len(items) == 0 {
		l.end = true
		return Page{End: true}, nil
	}

	l.lastID = items[len(items)-1].ID
	if l.logger != nil {
		l.logger.Debug("feed page loaded", "count", len(items), "lastid", l.lastID)
	}

	return Page{Items: items}, nil
}

// End reports whether the feed is exhausted.
func (l *Loader) End() bool {
	return l.end
}

func decodeItems(resp *http.Response) ([]Item, error) {
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return ParseRecordFragment(resp.Body)
	}

	var payload struct {
		Records []Item `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return payload.Records, nil
}

// ParseRecordFragment extracts feed items from an HTML fragment containing
// .record elements, the shape the original listing endpoint serves.
func ParseRecordFragment(r io.Reader) ([]Item, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}

	var items []Item
	doc.Find(".record").Each(func(i int, sel *goquery.Selection) {
		var item Item
		if raw, ok := sel.Attr("data-id"); ok {
			item.ID, _ = strconv.ParseInt(raw, 10, 64)
		}
		if raw, ok := sel.Attr("data-diff-id"); ok {
			item.DiffID, _ = strconv.ParseInt(raw, 10, 64)
		}
		if raw, ok := sel.Attr("data-status"); ok {
			status, _ := strconv.Atoi(raw)
			item.Status = domain.ReviewStatus(status)
		}
		item.Title = strings.TrimSpace(sel.Find(".record-title").First().Text())
		items = append(items, item)
	})

	return items, nil
}
