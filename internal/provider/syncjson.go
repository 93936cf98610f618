package provider

import (
	"context"

	"gemsmith/internal/config"
	"gemsmith/internal/errors"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
)

// OpenAIAdapter speaks the synchronous DALL-E image API: one JSON POST,
// hosted image URL in the response body.
type OpenAIAdapter struct {
	client *resty.Client
	cfg    config.OpenAIConfig
}

// NewOpenAIAdapter wires the adapter to a resty client and config.
func NewOpenAIAdapter(client *resty.Client, cfg config.OpenAIConfig) *OpenAIAdapter {
	return &OpenAIAdapter{client: client, cfg: cfg}
}

var _ Adapter = (*OpenAIAdapter)(nil)

// Key implements Adapter.
func (a *OpenAIAdapter) Key() string {
	return "openai"
}

type dalleRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size,omitempty"`
	Quality        string `json:"quality,omitempty"`
	ResponseFormat string `json:"response_format"`
}

type dalleResponse struct {
	Data []struct {
		URL           string `json:"url"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
}

// Generate implements Adapter. The vendor has no multi-image input, so
// AuxImages are ignored.
func (a *OpenAIAdapter) Generate(ctx context.Context, in Input) (*Output, error) {
	payload := dalleRequest{
		Model:          a.cfg.Model,
		Prompt:         in.Prompt,
		N:              1,
		Size:           a.cfg.Size,
		Quality:        a.cfg.Quality,
		ResponseFormat: "url",
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+a.cfg.APIKey).
		SetBody(payload).
		Post(a.cfg.BaseURL + "/images/generations")
	if err != nil {
		return nil, errors.NewTransportFailure(a.Key(), err)
	}

	if !is2xx(resp.StatusCode()) {
		if msg, ok := vendorErrorMessage(resp.Body()); ok {
			return nil, errors.NewVendorError(a.Key(), msg, resp.StatusCode())
		}
		return nil, errors.NewVendorProtocolError(a.Key(), "error body is not valid JSON", nil)
	}

	var parsed dalleResponse
	if err := sonic.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, errors.NewVendorProtocolError(a.Key(), "body is not valid JSON", err)
	}
	if len(parsed.Data) == 0 || parsed.Data[0].URL == "" {
		return nil, errors.NewVendorProtocolError(a.Key(), "missing image url", nil)
	}

	return &Output{ImageURL: parsed.Data[0].URL}, nil
}
