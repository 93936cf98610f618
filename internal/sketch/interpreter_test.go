package sketch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gemsmith/internal/config"
	"gemsmith/internal/errors"

	"github.com/go-resty/resty/v2"
)

func interpreterFor(t *testing.T, handler http.HandlerFunc) *VisionInterpreter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewVisionInterpreter(resty.New(), config.VisionConfig{
		APIKey:    "sk-vision",
		BaseURL:   srv.URL,
		Model:     "gpt-4o",
		MaxTokens: 300,
	})
}

func TestDescribeReturnsCompletion(t *testing.T) {
	raster := []byte("sketch-bytes")

	var gotBody map[string]any
	interpreter := interpreterFor(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("body is not JSON: %v", err)
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  a rose gold ring with a round diamond  "}}]}`))
	})

	got, err := interpreter.Describe(context.Background(), raster, "make it elegant")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a rose gold ring with a round diamond" {
		t.Fatalf("unexpected description: %q", got)
	}

	messages, _ := gotBody["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected system + user messages, got %d", len(messages))
	}
	system, _ := messages[0].(map[string]any)
	if system["role"] != "system" {
		t.Fatalf("first message should be the system instruction")
	}
	raw, _ := json.Marshal(gotBody)
	if !strings.Contains(string(raw), base64.StdEncoding.EncodeToString(raster)) {
		t.Fatalf("sketch raster must be inlined as base64")
	}
	if !strings.Contains(string(raw), "make it elegant") {
		t.Fatalf("user hint must be forwarded")
	}
}

func TestDescribeNon2xxIsVisionUnavailable(t *testing.T) {
	interpreter := interpreterFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"message":"model overloaded"}}`))
	})

	_, err := interpreter.Describe(context.Background(), []byte("img"), "")
	orchErr, ok := err.(*errors.OrchestrationError)
	if !ok || orchErr.Kind != errors.KindVisionUnavailable {
		t.Fatalf("expected vision unavailable, got %v", err)
	}
	if orchErr.VendorMessage != "model overloaded" {
		t.Fatalf("vendor message not preserved: %q", orchErr.VendorMessage)
	}
}

func TestDescribeMissingChoicesIsVisionMalformed(t *testing.T) {
	interpreter := interpreterFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})

	_, err := interpreter.Describe(context.Background(), []byte("img"), "")
	orchErr, ok := err.(*errors.OrchestrationError)
	if !ok || orchErr.Kind != errors.KindVisionMalformed {
		t.Fatalf("expected vision malformed, got %v", err)
	}
}

func TestDescribeEmptyContentIsVisionMalformed(t *testing.T) {
	interpreter := interpreterFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"   "}}]}`))
	})

	_, err := interpreter.Describe(context.Background(), []byte("img"), "")
	orchErr, ok := err.(*errors.OrchestrationError)
	if !ok || orchErr.Kind != errors.KindVisionMalformed {
		t.Fatalf("expected vision malformed, got %v", err)
	}
}

func TestDescribeInvalidJSONIsVisionMalformed(t *testing.T) {
	interpreter := interpreterFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	_, err := interpreter.Describe(context.Background(), []byte("img"), "")
	orchErr, ok := err.(*errors.OrchestrationError)
	if !ok || orchErr.Kind != errors.KindVisionMalformed {
		t.Fatalf("expected vision malformed, got %v", err)
	}
}
