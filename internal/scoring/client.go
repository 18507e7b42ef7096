package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spec-kit/lead-service/internal/config"
)

// FeatureVector is the 7-feature payload sent to the remote model:
// credit score, salary, age, encoded product type, encoded region,
// encoded occupation, loan amount.
type FeatureVector [7]float64

// InsightRequest carries the descriptive lead fields for the remote
// insight generator.
type InsightRequest struct {
	CreditScore int     `json:"credit_score"`
	Salary      float64 `json:"salary"`
	Age         int     `json:"age"`
	ProductType string  `json:"product_type"`
	Occupation  string  `json:"occupation"`
	Region      string  `json:"region"`
	LoanAmount  float64 `json:"loan_amount"`
}

// RemoteScorer abstracts the external model calls so the scorer can be
// exercised without the network.
type RemoteScorer interface {
	Score(ctx context.Context, features FeatureVector) (float64, error)
	Insight(ctx context.Context, req InsightRequest) (string, error)
}

// Client calls the remote scoring service over HTTP with a bounded
// timeout. Any transport failure, timeout or non-2xx response surfaces
// as an error for the scorer to absorb.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a remote scorer client. A nil client is returned
// when no base URL is configured so the scorer skips the remote path.
func NewClient(cfg config.ScorerConfig) *Client {
	if cfg.BaseURL == "" {
		return nil
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout()},
	}
}

type scoreRequest struct {
	Features []float64 `json:"features"`
}

type scoreResponse struct {
	ConversionProbability float64 `json:"conversion_probability"`
}

// Score posts the feature vector and returns the model probability.
func (c *Client) Score(ctx context.Context, features FeatureVector) (float64, error) {
	var resp scoreResponse
	if err := c.post(ctx, "/score", scoreRequest{Features: features[:]}, &resp); err != nil {
		return 0, err
	}
	if resp.ConversionProbability < 0 || resp.ConversionProbability > 1 {
		return 0, fmt.Errorf("scorer returned probability out of range: %f", resp.ConversionProbability)
	}
	return resp.ConversionProbability, nil
}

type insightResponse struct {
	Insight string `json:"insight"`
}

// Insight posts the lead descriptors and returns the generated text.
func (c *Client) Insight(ctx context.Context, req InsightRequest) (string, error) {
	var resp insightResponse
	if err := c.post(ctx, "/insight", req, &resp); err != nil {
		return "", err
	}
	if resp.Insight == "" {
		return "", fmt.Errorf("scorer returned empty insight")
	}
	return resp.Insight, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("scorer call failed after %s: %w", time.Since(start), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("scorer returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
