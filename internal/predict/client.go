package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	log "log/slog"
	"net/http"
	"time"

	"alive/internal/intake"
)

// Client calls the external prediction service. The service is the only
// place the actual model lives; everything here is transport plus the demo
// fallback that keeps the flow alive when the service is unreachable.
type Client struct {
	base string
	http *http.Client
}

type Option func(*Client)

// WithHTTPClient swaps the underlying transport, e.g. for a SOCKS proxy or
// an httptest server.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func New(base string, opts ...Option) *Client {
	c := &Client{
		base: base,
		http: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Predict submits the record and returns the stamped result. The name never
// goes over the wire.
func (c *Client) Predict(ctx context.Context, rec intake.Record) (Result, error) {
	payload := rec
	payload.Name = ""

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("encode record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/predict", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("predict call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("predict call: unexpected status %d", resp.StatusCode)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}

	return stamp(rec, out, "Guest"), nil
}

// Assess is Predict with the recoverable-failure policy applied: any
// transport or decode error degrades to the demo result so the user still
// reaches a result, never a dead end.
func (c *Client) Assess(ctx context.Context, rec intake.Record) Result {
	res, err := c.Predict(ctx, rec)
	if err != nil {
		log.Warn("prediction service unavailable, using demo result", "err", err)
		return Fallback(rec)
	}
	return res
}

// Fallback fabricates a clearly-labeled low-risk demo result.
func Fallback(rec intake.Record) Result {
	return stamp(rec, Response{
		RiskProbability: 0.12,
		RiskCategory:    "Low Risk",
		Note:            "Demo prediction due to API error.",
		Advice:          []string{"Exercise more", "Eat healthy"},
	}, "Guest User")
}
