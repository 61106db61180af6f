// Package upstream talks to the third-party affiliate API. The API is an
// opaque collaborator with no enforced schema; responses go straight
// through the defensive normalizer.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/streamingshack/race-api/internal/models"
)

// maxResponseSize bounds how much of an upstream body we will read (10MB).
const maxResponseSize = 10 << 20

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.SugaredLogger
}

// NewClient builds a client for the affiliate leaderboard endpoint. The
// timeout bounds the whole request so a hung upstream cannot pin a refresh
// in the loading state.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.Sugar(),
	}
}

// FetchEntries retrieves and normalizes wager standings for a date range.
func (c *Client) FetchEntries(ctx context.Context, rng models.DateRange) ([]models.LeaderboardEntry, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	q := u.Query()
	q.Set("api_key", c.apiKey)
	q.Set("from", strconv.FormatInt(rng.From, 10))
	q.Set("to", strconv.FormatInt(rng.To, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}

	records := models.ParseAffiliatePayload(body)
	if records == nil {
		c.logger.Warnw("Upstream payload did not match any known shape", "bytes", len(body))
	}
	return models.NormalizeAffiliates(records), nil
}
