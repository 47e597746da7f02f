package shelflinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Shelfline HTTP API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Row is one raw inventory row, fields as text.
type Row struct {
	Name               string `json:"name"`
	Quantity           string `json:"quant"`
	MeanDailyDepletion string `json:"mdd"`
	ManufactureDate    string `json:"data_fab"`
	ExpiryDate         string `json:"data_val"`
}

// EnrichedRecord is the API record model (partial; derived fields only plus
// identity).
type EnrichedRecord struct {
	Name                 string   `json:"name"`
	BatchQuantity        float64  `json:"batch_quantity"`
	MeanDailyDepletion   float64  `json:"mean_daily_depletion"`
	DaysToExpiry         *int     `json:"days_to_expiry,omitempty"`
	ProjectedConsumption *float64 `json:"projected_consumption,omitempty"`
	Waste                float64  `json:"waste"`
	AgeNowPct            *float64 `json:"age_now_pct,omitempty"`
	RiskTier             string   `json:"risk_tier"`
	FieldIssues          []string `json:"field_issues,omitempty"`
}

// Result is one pipeline run as returned by the API.
type Result struct {
	RunID    string           `json:"run_id"`
	AsOf     string           `json:"as_of"`
	Records  []EnrichedRecord `json:"records"`
	Priority []EnrichedRecord `json:"priority"`
	Discard  []EnrichedRecord `json:"discard"`
}

// Policy reports the server's classification thresholds and normalization
// settings.
type Policy struct {
	HighMaxDays   int     `json:"high_max_days"`
	MediumMaxDays int     `json:"medium_max_days"`
	Normalization string  `json:"normalization"`
	DateOrder     string  `json:"date_order"`
	BinWidth      float64 `json:"bin_width"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Analyze runs the pipeline over rows. asOf may be empty for "now", or an
// RFC 3339 instant for a deterministic evaluation.
func (c *Client) Analyze(ctx context.Context, rows []Row, asOf string) (Result, error) {
	body := map[string]any{"rows": rows}
	if asOf != "" {
		body["as_of"] = asOf
	}
	var resp Result
	err := c.do(ctx, http.MethodPost, "v0/analyze", "application/json", jsonBody(body), &resp)
	return resp, err
}

// AnalyzeCSV uploads a raw feed as CSV.
func (c *Client) AnalyzeCSV(ctx context.Context, csvData []byte, asOf string) (Result, error) {
	endpoint := "v0/analyze/csv"
	if asOf != "" {
		endpoint += "?as_of=" + url.QueryEscape(asOf)
	}
	var resp Result
	err := c.do(ctx, http.MethodPost, endpoint, "text/csv", bytes.NewReader(csvData), &resp)
	return resp, err
}

// Policy fetches the server's thresholds and normalization policy.
func (c *Client) Policy(ctx context.Context) (Policy, error) {
	var resp Policy
	err := c.do(ctx, http.MethodGet, "v0/policy", "", nil, &resp)
	return resp, err
}

func jsonBody(v any) io.Reader {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(v)
	return &buf
}

func (c *Client) do(ctx context.Context, method, endpoint, contentType string, body io.Reader, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
	if body == nil {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
