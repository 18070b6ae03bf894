package comparison

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"copywatch/internal/domain"
	"copywatch/internal/ports"
)

// Client fetches side-by-side highlighted comparisons from the external
// comparison viewer.
type Client struct {
	endpoint string
	project  string
	http     *http.Client
}

var _ ports.ComparisonClient = (*Client)(nil)

// NewClient builds a client for the given viewer endpoint. The project
// defaults to "wikipedia".
func NewClient(endpoint, project string) *Client {
	if project == "" {
		project = "wikipedia"
	}
	return &Client{
		endpoint: endpoint,
		project:  project,
		http:     &http.Client{Timeout: 20 * time.Second},
	}
}

// Compare requests a detailed comparison between the flagged revision and
// one source URL. Success is indicated by the presence of the detail field;
// its absence is a failure, with the upstream message surfaced when given.
func (c *Client) Compare(ctx context.Context, cmp domain.CompareRequest) (domain.Comparison, error) {
	if c.http == nil || c.endpoint == "" {
		return domain.Comparison{}, fmt.Errorf("comparison client misconfigured")
	}

	params := url.Values{}
	params.Set("oldid", strconv.FormatInt(cmp.OldID, 10))
	params.Set("url", cmp.URL)
	params.Set("action", "compare")
	params.Set("project", c.project)
	params.Set("lang", cmp.Lang)
	params.Set("format", "json")
	params.Set("detail", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Comparison{}, fmt.Errorf("new request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Comparison{}, fmt.Errorf("fetch comparison: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Detail *struct {
			Article string `json:"article"`
			Source  string `json:"source"`
		} `json:"detail"`
		Error *struct {
			Info string `json:"info"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Comparison{}, fmt.Errorf("decode comparison: %w", err)
	}

	if payload.Detail == nil {
		if payload.Error != nil && payload.Error.Info != "" {
			return domain.Comparison{}, fmt.Errorf("comparison failed: %s", payload.Error.Info)
		}
		return domain.Comparison{}, fmt.Errorf("comparison failed: no detail in response")
	}

	return domain.Comparison{
		ArticleHTML:   payload.Detail.Article,
		SourceHTML:    payload.Detail.Source,
		ArticleAnchor: firstHighlight(payload.Detail.Article),
		SourceAnchor:  firstHighlight(payload.Detail.Source),
	}, nil
}

// firstHighlight returns the text of the first highlighted match in the
// fragment so the pane can scroll straight to it. Empty when the fragment
// has no highlights or cannot be parsed.
func firstHighlight(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find(".cv-hl").First().Text())
}
