package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APIClient fetches current metric snapshots from the finance data API. The
// API returns one flat JSON object per symbol; every non-symbol field is kept
// verbatim as a metric.
type APIClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewAPIClient creates a finance API client with a bounded request timeout.
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FetchAll retrieves the latest metrics for every symbol the API tracks.
func (c *APIClient) FetchAll(ctx context.Context) ([]Update, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build metrics request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metrics: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("metrics API returned status %d: %s", resp.StatusCode, string(body))
	}

	var rows []map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode metrics response: %w", err)
	}

	updates := make([]Update, 0, len(rows))
	for _, row := range rows {
		symbol := row["symbol"]
		if symbol == "" {
			continue
		}
		m := make(map[string]string, len(row))
		for k, v := range row {
			if k != "symbol" {
				m[k] = v
			}
		}
		updates = append(updates, Update{Symbol: symbol, Metrics: m})
	}

	return updates, nil
}
