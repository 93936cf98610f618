package provider

import (
	"context"
	"fmt"

	"gemsmith/internal/config"
	"gemsmith/internal/errors"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
)

// ReplicateAdapter speaks the blocking prediction API: one JSON POST with a
// Prefer: wait header, so the vendor itself holds the request open until
// the generation finishes. No local polling.
type ReplicateAdapter struct {
	client *resty.Client
	cfg    config.ReplicateConfig
}

// NewReplicateAdapter wires the adapter to a resty client and config.
func NewReplicateAdapter(client *resty.Client, cfg config.ReplicateConfig) *ReplicateAdapter {
	return &ReplicateAdapter{client: client, cfg: cfg}
}

var _ Adapter = (*ReplicateAdapter)(nil)

// Key implements Adapter.
func (a *ReplicateAdapter) Key() string {
	return "replicate"
}

type predictionRequest struct {
	Input predictionInput `json:"input"`
}

type predictionInput struct {
	Prompt string `json:"prompt"`
	Seed   int64  `json:"seed,omitempty"`
}

type predictionResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Output any    `json:"output"`
	Error  string `json:"error"`
}

// Generate implements Adapter.
func (a *ReplicateAdapter) Generate(ctx context.Context, in Input) (*Output, error) {
	payload := predictionRequest{
		Input: predictionInput{
			Prompt: in.Prompt,
			Seed:   Seed(in.RequestID, in.Prompt),
		},
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+a.cfg.APIToken).
		SetHeader("Prefer", fmt.Sprintf("wait=%d", a.cfg.WaitSeconds)).
		SetBody(payload).
		Post(fmt.Sprintf("%s/models/%s/predictions", a.cfg.BaseURL, a.cfg.Model))
	if err != nil {
		return nil, errors.NewTransportFailure(a.Key(), err)
	}

	if !is2xx(resp.StatusCode()) {
		if msg, ok := vendorErrorMessage(resp.Body()); ok {
			return nil, errors.NewVendorError(a.Key(), msg, resp.StatusCode())
		}
		return nil, errors.NewVendorProtocolError(a.Key(), "error body is not valid JSON", nil)
	}

	var parsed predictionResponse
	if err := sonic.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, errors.NewVendorProtocolError(a.Key(), "body is not valid JSON", err)
	}

	// A vendor-signaled error inside a 2xx body is a rejection, not a
	// transport problem.
	if parsed.Error != "" {
		return nil, errors.NewVendorError(a.Key(), parsed.Error, resp.StatusCode())
	}

	url := firstOutputURL(parsed.Output)
	if url == "" {
		return nil, errors.NewVendorProtocolError(a.Key(), "missing prediction output", nil)
	}

	return &Output{ImageURL: url}, nil
}

// firstOutputURL handles the two output shapes the vendor produces: a bare
// string for single-image models and an array of strings otherwise.
func firstOutputURL(output any) string {
	switch v := output.(type) {
	case string:
		return v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
