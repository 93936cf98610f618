package errors

import (
	"fmt"
	"net/http"
)

// Kind tags an orchestration error so callers can branch on the failure
// class instead of matching message strings.
type Kind string

const (
	KindUnknownProvider      Kind = "unknown_provider"
	KindInvalidInput         Kind = "invalid_input"
	KindTransportFailure     Kind = "transport_failure"
	KindVendorError          Kind = "vendor_error"
	KindVendorProtocolError  Kind = "vendor_protocol_error"
	KindVisionUnavailable    Kind = "vision_unavailable"
	KindVisionMalformed      Kind = "vision_malformed"
	KindOrchestrationTimeout Kind = "orchestration_timeout"
	KindInternal             Kind = "internal"
)

// OrchestrationError is the single error type crossing the orchestrator
// boundary. Provider names the backend involved (empty for local errors),
// VendorMessage preserves the raw upstream message for logging, and
// VendorStatus the upstream HTTP status when one was received.
type OrchestrationError struct {
	Kind          Kind
	Message       string
	Provider      string
	VendorMessage string
	VendorStatus  int
	Err           error
}

// Error implements the error interface.
func (e *OrchestrationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is/As.
func (e *OrchestrationError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may retry the request with a fresh
// submit. Vendor rejections are not retryable: the request was understood.
func (e *OrchestrationError) Retryable() bool {
	switch e.Kind {
	case KindTransportFailure, KindOrchestrationTimeout:
		return true
	}
	return false
}

// WithProvider attaches the provider key when the adapter omitted it.
func (e *OrchestrationError) WithProvider(key string) *OrchestrationError {
	if e.Provider == "" {
		e.Provider = key
	}
	return e
}

// httpStatus maps an error kind to the status the API surface responds with.
func (e *OrchestrationError) httpStatus() int {
	switch e.Kind {
	case KindUnknownProvider, KindInvalidInput:
		return http.StatusBadRequest
	case KindOrchestrationTimeout:
		return http.StatusGatewayTimeout
	case KindTransportFailure, KindVendorError, KindVendorProtocolError,
		KindVisionUnavailable, KindVisionMalformed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// userMessage is what the API surface exposes. Vendor messages are passed
// through only for vendor rejections; protocol violations stay generic.
func (e *OrchestrationError) userMessage() string {
	if e.Kind == KindVendorError && e.VendorMessage != "" {
		return e.VendorMessage
	}
	return e.Message
}

// HTTPResponse renders the error as a status code and JSON body.
func (e *OrchestrationError) HTTPResponse() (int, map[string]any) {
	errBody := map[string]any{
		"kind":    string(e.Kind),
		"message": e.userMessage(),
	}
	if e.Provider != "" {
		errBody["provider"] = e.Provider
	}
	return e.httpStatus(), map[string]any{"error": errBody}
}

// NewUnknownProvider reports a provider key with no registered adapter.
// Raised before any network call is made.
func NewUnknownProvider(key string) *OrchestrationError {
	return &OrchestrationError{
		Kind:     KindUnknownProvider,
		Message:  fmt.Sprintf("unknown provider %q", key),
		Provider: key,
	}
}

// NewInvalidInput reports a request that fails local validation.
func NewInvalidInput(message string) *OrchestrationError {
	return &OrchestrationError{
		Kind:    KindInvalidInput,
		Message: message,
	}
}

// NewTransportFailure wraps a connection-level failure reaching a vendor.
func NewTransportFailure(provider string, err error) *OrchestrationError {
	return &OrchestrationError{
		Kind:     KindTransportFailure,
		Message:  "vendor unreachable",
		Provider: provider,
		Err:      err,
	}
}

// NewVendorError wraps a well-formed vendor rejection, 2xx or not.
func NewVendorError(provider, vendorMessage string, vendorStatus int) *OrchestrationError {
	return &OrchestrationError{
		Kind:          KindVendorError,
		Message:       "vendor rejected the generation",
		Provider:      provider,
		VendorMessage: vendorMessage,
		VendorStatus:  vendorStatus,
	}
}

// NewVendorProtocolError reports a vendor response that does not match the
// adapter's expected shape. Logged at high severity by the caller.
func NewVendorProtocolError(provider, detail string, err error) *OrchestrationError {
	return &OrchestrationError{
		Kind:     KindVendorProtocolError,
		Message:  fmt.Sprintf("unexpected vendor response: %s", detail),
		Provider: provider,
		Err:      err,
	}
}

// NewVisionUnavailable reports a non-2xx from the vision endpoint.
func NewVisionUnavailable(vendorStatus int, vendorMessage string) *OrchestrationError {
	return &OrchestrationError{
		Kind:          KindVisionUnavailable,
		Message:       "vision backend unavailable",
		VendorMessage: vendorMessage,
		VendorStatus:  vendorStatus,
	}
}

// NewVisionMalformed reports a vision response missing the completion field.
func NewVisionMalformed(detail string) *OrchestrationError {
	return &OrchestrationError{
		Kind:    KindVisionMalformed,
		Message: fmt.Sprintf("malformed vision response: %s", detail),
	}
}

// NewOrchestrationTimeout reports an exhausted async poll budget.
func NewOrchestrationTimeout(provider string, polls int) *OrchestrationError {
	return &OrchestrationError{
		Kind:     KindOrchestrationTimeout,
		Message:  fmt.Sprintf("generation still pending after %d polls", polls),
		Provider: provider,
	}
}

// NewInternal wraps an unclassified failure.
func NewInternal(err error) *OrchestrationError {
	return &OrchestrationError{
		Kind:    KindInternal,
		Message: "internal error",
		Err:     err,
	}
}
