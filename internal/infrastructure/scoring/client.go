package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"copywatch/internal/ports"
)

// Client talks to the external plagiarism-likelihood scoring service. Scores
// are cached per revision so repeated feed loads do not re-hit the service.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	cache    *cache.Cache
}

var _ ports.ScoreClient = (*Client)(nil)

// NewClient creates a reusable HTTP client with a TTL score cache.
func NewClient(endpoint, apiKey string, ttl time.Duration) *Client {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 15 * time.Second},
		cache:    cache.New(ttl, ttl*2),
	}
}

// Scores fetches the likelihood score per revision id in one batched call.
// Revisions the service has no score for are absent from the result.
func (c *Client) Scores(ctx context.Context, revIDs []int64) (map[int64]float64, error) {
	scores := map[int64]float64{}
	if c.http == nil || len(revIDs) == 0 {
		return scores, nil
	}

	var missing []int64
	for _, id := range revIDs {
		if cached, ok := c.cache.Get(cacheKey(id)); ok {
			scores[id] = cached.(float64)
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) == 0 {
		return scores, nil
	}

	fetched, err := c.fetch(ctx, missing)
	if err != nil {
		return nil, err
	}

	for id, score := range fetched {
		c.cache.SetDefault(cacheKey(id), score)
		scores[id] = score
	}

	return scores, nil
}

func (c *Client) fetch(ctx context.Context, revIDs []int64) (map[int64]float64, error) {
	ids := make([]string, len(revIDs))
	for i, id := range revIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}

	params := url.Values{}
	params.Set("revids", strings.Join(ids, "|"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch scores: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scoring service returned %s", resp.Status)
	}

	var payload struct {
		Scores map[string]float64 `json:"scores"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode scores: %w", err)
	}

	scores := make(map[int64]float64, len(payload.Scores))
	for key, score := range payload.Scores {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		scores[id] = score
	}

	return scores, nil
}

func cacheKey(revID int64) string {
	return strconv.FormatInt(revID, 10)
}
