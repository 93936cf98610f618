package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestRetryable(t *testing.T) {
	cases := []struct {
		kind Kind
		want bool
	}{
		{KindTransportFailure, true},
		{KindOrchestrationTimeout, true},
		{KindUnknownProvider, false},
		{KindInvalidInput, false},
		{KindVendorError, false},
		{KindVendorProtocolError, false},
		{KindVisionUnavailable, false},
		{KindVisionMalformed, false},
		{KindInternal, false},
	}
	for _, tc := range cases {
		err := &OrchestrationError{Kind: tc.kind}
		if got := err.Retryable(); got != tc.want {
			t.Errorf("Retryable(%s) = %v, want %v", tc.kind, got, tc.want)
		}
	}
}

func TestWithProviderKeepsExisting(t *testing.T) {
	err := NewVendorError("replicate", "NSFW content detected", 200)
	if err.WithProvider("openai").Provider != "replicate" {
		t.Fatalf("WithProvider must not overwrite an existing key")
	}

	bare := NewVendorProtocolError("", "missing output field", nil)
	if bare.WithProvider("fal").Provider != "fal" {
		t.Fatalf("WithProvider must fill an empty key")
	}
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := NewTransportFailure("openai", cause)
	if !stderrors.Is(err, cause) {
		t.Fatalf("wrapped cause must survive errors.Is")
	}
	var orchErr *OrchestrationError
	if !stderrors.As(error(err), &orchErr) {
		t.Fatalf("errors.As must match *OrchestrationError")
	}
}

func TestHTTPResponseStatuses(t *testing.T) {
	cases := []struct {
		err  *OrchestrationError
		want int
	}{
		{NewUnknownProvider("nope"), http.StatusBadRequest},
		{NewInvalidInput("prompt is required"), http.StatusBadRequest},
		{NewOrchestrationTimeout("fal", 10), http.StatusGatewayTimeout},
		{NewTransportFailure("openai", nil), http.StatusBadGateway},
		{NewVendorError("openai", "billing hard limit", 400), http.StatusBadGateway},
		{NewVendorProtocolError("replicate", "output missing", nil), http.StatusBadGateway},
		{NewVisionUnavailable(503, "overloaded"), http.StatusBadGateway},
		{NewVisionMalformed("no choices"), http.StatusBadGateway},
		{NewInternal(nil), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		status, _ := tc.err.HTTPResponse()
		if status != tc.want {
			t.Errorf("HTTPResponse(%s) status = %d, want %d", tc.err.Kind, status, tc.want)
		}
	}
}

func TestHTTPResponseBody(t *testing.T) {
	_, body := NewVendorError("openai", "billing hard limit reached", 400).HTTPResponse()
	errBody, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("body must nest under \"error\": %#v", body)
	}
	if errBody["kind"] != "vendor_error" {
		t.Errorf("kind = %v", errBody["kind"])
	}
	if errBody["message"] != "billing hard limit reached" {
		t.Errorf("vendor rejections must surface the vendor message, got %v", errBody["message"])
	}
	if errBody["provider"] != "openai" {
		t.Errorf("provider = %v", errBody["provider"])
	}
}

func TestHTTPResponseHidesProtocolDetail(t *testing.T) {
	_, body := NewVendorProtocolError("replicate", "output field held an object", nil).HTTPResponse()
	errBody := body["error"].(map[string]any)
	msg, _ := errBody["message"].(string)
	if msg != "unexpected vendor response: output field held an object" {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestHTTPResponseOmitsEmptyProvider(t *testing.T) {
	_, body := NewInvalidInput("prompt is required").HTTPResponse()
	errBody := body["error"].(map[string]any)
	if _, present := errBody["provider"]; present {
		t.Fatalf("empty provider must be omitted from the body")
	}
}

func TestErrorStringIncludesKindAndCause(t *testing.T) {
	err := NewTransportFailure("fal", fmt.Errorf("EOF"))
	got := err.Error()
	want := "[transport_failure] vendor unreachable: EOF"
	if got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}

	plain := NewUnknownProvider("midjourney").Error()
	if plain != `[unknown_provider] unknown provider "midjourney"` {
		t.Fatalf("Error() = %q", plain)
	}
}
