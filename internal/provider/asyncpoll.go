package provider

import (
	"context"
	"fmt"

	"gemsmith/internal/config"
	"gemsmith/internal/errors"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
)

// FalAdapter speaks the queue-based API: a submit POST returns a request
// handle, then the polling engine drives the job to a terminal state and
// fetches the result exactly once.
type FalAdapter struct {
	client *resty.Client
	cfg    config.FalConfig
}

// NewFalAdapter wires the adapter to a resty client and config.
func NewFalAdapter(client *resty.Client, cfg config.FalConfig) *FalAdapter {
	return &FalAdapter{client: client, cfg: cfg}
}

var _ Adapter = (*FalAdapter)(nil)

// Key implements Adapter.
func (a *FalAdapter) Key() string {
	return "fal"
}

type queueSubmitRequest struct {
	Prompt string `json:"prompt"`
}

type queueSubmitResponse struct {
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
}

type queueStatusResponse struct {
	Status string `json:"status"`
}

type queueResultResponse struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
	Error string `json:"error"`
}

// Generate implements Adapter. The submit phase never retries; only the
// status phase loops, inside the polling engine.
func (a *FalAdapter) Generate(ctx context.Context, in Input) (*Output, error) {
	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Key "+a.cfg.APIKey).
		SetBody(queueSubmitRequest{Prompt: in.Prompt}).
		Post(fmt.Sprintf("%s/%s", a.cfg.BaseURL, a.cfg.Model))
	if err != nil {
		return nil, errors.NewTransportFailure(a.Key(), err)
	}

	if !is2xx(resp.StatusCode()) {
		if msg, ok := vendorErrorMessage(resp.Body()); ok {
			return nil, errors.NewVendorError(a.Key(), msg, resp.StatusCode())
		}
		return nil, errors.NewVendorProtocolError(a.Key(), "error body is not valid JSON", nil)
	}

	var submitted queueSubmitResponse
	if err := sonic.Unmarshal(resp.Body(), &submitted); err != nil {
		return nil, errors.NewVendorProtocolError(a.Key(), "body is not valid JSON", err)
	}
	if submitted.RequestID == "" {
		return nil, errors.NewVendorProtocolError(a.Key(), "missing request_id", nil)
	}

	statusURL := submitted.StatusURL
	if statusURL == "" {
		statusURL = fmt.Sprintf("%s/%s/requests/%s/status", a.cfg.BaseURL, a.cfg.Model, submitted.RequestID)
	}
	resultURL := submitted.ResponseURL
	if resultURL == "" {
		resultURL = fmt.Sprintf("%s/%s/requests/%s", a.cfg.BaseURL, a.cfg.Model, submitted.RequestID)
	}

	return Poll(ctx, PollSpec{
		Provider:    a.Key(),
		RequestID:   submitted.RequestID,
		Interval:    a.cfg.PollInterval,
		MaxPolls:    a.cfg.MaxPolls,
		FetchStatus: a.statusFetcher(statusURL),
		FetchResult: a.resultFetcher(resultURL),
	})
}

// statusFetcher returns the status-phase closure for one queued request.
func (a *FalAdapter) statusFetcher(statusURL string) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		resp, err := a.client.R().
			SetContext(ctx).
			SetHeader("Authorization", "Key "+a.cfg.APIKey).
			Get(statusURL)
		if err != nil {
			return "", errors.NewTransportFailure(a.Key(), err)
		}
		if !is2xx(resp.StatusCode()) {
			if msg, ok := vendorErrorMessage(resp.Body()); ok {
				return "", errors.NewVendorError(a.Key(), msg, resp.StatusCode())
			}
			return "", errors.NewVendorProtocolError(a.Key(), "error body is not valid JSON", nil)
		}

		var status queueStatusResponse
		if err := sonic.Unmarshal(resp.Body(), &status); err != nil {
			return "", errors.NewVendorProtocolError(a.Key(), "status body is not valid JSON", err)
		}
		if status.Status == "" {
			return "", errors.NewVendorProtocolError(a.Key(), "missing status field", nil)
		}
		return status.Status, nil
	}
}

// resultFetcher returns the one-shot result closure for a completed request.
func (a *FalAdapter) resultFetcher(resultURL string) func(ctx context.Context) (*Output, error) {
	return func(ctx context.Context) (*Output, error) {
		resp, err := a.client.R().
			SetContext(ctx).
			SetHeader("Authorization", "Key "+a.cfg.APIKey).
			Get(resultURL)
		if err != nil {
			return nil, errors.NewTransportFailure(a.Key(), err)
		}
		if !is2xx(resp.StatusCode()) {
			if msg, ok := vendorErrorMessage(resp.Body()); ok {
				return nil, errors.NewVendorError(a.Key(), msg, resp.StatusCode())
			}
			return nil, errors.NewVendorProtocolError(a.Key(), "error body is not valid JSON", nil)
		}

		var result queueResultResponse
		if err := sonic.Unmarshal(resp.Body(), &result); err != nil {
			return nil, errors.NewVendorProtocolError(a.Key(), "result body is not valid JSON", err)
		}
		if result.Error != "" {
			return nil, errors.NewVendorError(a.Key(), result.Error, resp.StatusCode())
		}
		if len(result.Images) == 0 || result.Images[0].URL == "" {
			return nil, errors.NewVendorProtocolError(a.Key(), "missing image url in result", nil)
		}
		return &Output{ImageURL: result.Images[0].URL}, nil
	}
}
