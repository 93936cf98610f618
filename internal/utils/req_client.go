package utils

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"gemsmith/internal/config"

	"github.com/go-resty/resty/v2"
)

var (
	// RestyVendorClient performs image-generation vendor calls. It never
	// retries: a failed submit must surface to the caller immediately.
	RestyVendorClient *resty.Client

	// RestyVisionClient performs vision chat-completion calls, with the
	// configured retry policy for transport errors and 5xx responses.
	RestyVisionClient *resty.Client
)

// InitHTTPClients builds the shared outbound clients from config.
func InitHTTPClients(cfg *config.Config) {
	RestyVendorClient = createVendorClient(cfg)
	RestyVisionClient = createVisionClient(cfg)
}

func newTransport(cfg *config.Config) *http.Transport {
	return &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.HTTPClient.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.HTTPClient.MaxIdleConnsPerHost,
		MaxConnsPerHost:     cfg.HTTPClient.MaxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.Security.TLSSkipVerify,
			MinVersion:         tls.VersionTLS12,
		},
	}
}

// createVendorClient builds the client used by all provider adapters.
// Non-2xx responses pass through untouched so adapters can normalize
// vendor errors themselves.
func createVendorClient(cfg *config.Config) *resty.Client {
	return resty.NewWithClient(&http.Client{
		Transport: newTransport(cfg),
		Timeout:   cfg.HTTPClient.Timeout,
	}).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json")
}

// createVisionClient builds the client used by the sketch interpreter.
func createVisionClient(cfg *config.Config) *resty.Client {
	client := resty.NewWithClient(&http.Client{
		Transport: newTransport(cfg),
		Timeout:   cfg.Security.RequestTimeout,
	}).
		SetRetryCount(cfg.HTTPClient.RetryCount).
		SetRetryWaitTime(cfg.HTTPClient.RetryWaitTime).
		SetRetryMaxWaitTime(cfg.HTTPClient.RetryMaxWaitTime).
		SetHeader("Content-Type", "application/json")

	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || r.StatusCode() >= 500
	})

	return client
}
