package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/remedystack/remedy-engine/internal/models"
	"github.com/remedystack/remedy-engine/internal/utils"
)

// Recommendation is an advisory remediation hint returned by the hub. It
// never overrides catalog resolution; callers surface it to operators.
type Recommendation struct {
	PatternID  string  `json:"pattern_id"`
	ActionID   string  `json:"action_id"`
	Rationale  string  `json:"rationale"`
	Confidence float64 `json:"confidence"`
}

// HubClient talks to the fleet advisory hub. A nil client is valid and
// reports itself unconfigured on every call.
type HubClient struct {
	baseURL            string
	recommendationsURL string
	reportsURL         string
	httpClient         *http.Client
}

// NewHubClient constructs a client for the configured hub instance.
func NewHubClient(baseURL, recommendationsPath, reportsPath string, timeout time.Duration) *HubClient {
	base := strings.TrimRight(baseURL, "/")
	return &HubClient{
		baseURL:            base,
		recommendationsURL: base + "/" + strings.TrimLeft(recommendationsPath, "/"),
		reportsURL:         base + "/" + strings.TrimLeft(reportsPath, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchRecommendations asks the hub for advisory hints on the patterns
// matched in this run.
func (c *HubClient) FetchRecommendations(ctx context.Context, host string, summary EventWindowSummary, digest IssueDigest) ([]Recommendation, error) {
	if c == nil {
		return nil, fmt.Errorf("hub client not initialised")
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("hub base URL not configured")
	}

	payload := map[string]any{
		"host":    host,
		"summary": summary,
		"issues":  digest,
	}

	var response struct {
		Recommendations []Recommendation `json:"recommendations"`
	}
	if err := c.postJSON(ctx, c.recommendationsURL, payload, &response); err != nil {
		return nil, utils.NewAppError("hub.recommendations", "fetching advisory hints", err)
	}
	return response.Recommendations, nil
}

// PublishRunReport uploads a finished run report. Failures are the
// caller's to log; publication never gates a run.
func (c *HubClient) PublishRunReport(ctx context.Context, host string, report models.RunReport) error {
	if c == nil {
		return fmt.Errorf("hub client not initialised")
	}
	if c.baseURL == "" {
		return fmt.Errorf("hub base URL not configured")
	}

	payload := map[string]any{
		"host":   host,
		"report": report,
	}
	if err := c.postJSON(ctx, c.reportsURL, payload, nil); err != nil {
		return utils.NewAppError("hub.publish", "posting run report", err)
	}
	return nil
}

func (c *HubClient) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	if endpoint == "" {
		return fmt.Errorf("empty endpoint")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hub returned %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
