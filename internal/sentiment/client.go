package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ignite/customer-intel/internal/config"
	"github.com/ignite/customer-intel/internal/pkg/httpretry"
)

// ClassifierResponse is the external classifier's scoring of one text.
type ClassifierResponse struct {
	SentimentScore float64  `json:"sentiment_score"`
	Confidence     float64  `json:"confidence"`
	PrimaryEmotion string   `json:"primary_emotion"`
	Keywords       []string `json:"keywords"`
}

// Classifier scores free text. Implementations must be safe for
// concurrent use.
type Classifier interface {
	Classify(ctx context.Context, text, language string) (*ClassifierResponse, error)
}

// HTTPClassifier calls the external sentiment service over HTTP with a
// bounded timeout and retries on transient failures.
type HTTPClassifier struct {
	baseURL string
	apiKey  string
	client  httpretry.HTTPDoer
}

type classifyRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// NewHTTPClassifier creates a classifier client from config.
func NewHTTPClassifier(cfg config.ClassifierConfig) *HTTPClassifier {
	base := &http.Client{Timeout: cfg.Timeout()}
	return &HTTPClassifier{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  httpretry.NewRetryClient(base, cfg.MaxRetries),
	}
}

// Classify posts the text to the classifier's /sentiment endpoint.
func (c *HTTPClassifier) Classify(ctx context.Context, text, language string) (*ClassifierResponse, error) {
	body, err := json.Marshal(classifyRequest{Text: text, Language: language})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sentiment", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("classifier returned %d: %s", resp.StatusCode, string(b))
	}

	var out ClassifierResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.SentimentScore < -1 || out.SentimentScore > 1 {
		return nil, fmt.Errorf("classifier returned out-of-range score %v", out.SentimentScore)
	}
	return &out, nil
}
