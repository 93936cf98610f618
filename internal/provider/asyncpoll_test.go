package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"gemsmith/internal/config"
	"gemsmith/internal/errors"

	"github.com/go-resty/resty/v2"
)

// falTestServer simulates the queue API: submit, then status polls that
// report running for runningPolls calls before completing.
type falTestServer struct {
	srv          *httptest.Server
	runningPolls int
	statusCalls  atomic.Int64
	resultCalls  atomic.Int64
	submitCalls  atomic.Int64
	finalStatus  string
	resultBody   string
}

func newFalTestServer(t *testing.T, runningPolls int) *falTestServer {
	t.Helper()
	f := &falTestServer{
		runningPolls: runningPolls,
		finalStatus:  "COMPLETED",
		resultBody:   `{"images":[{"url":"https://fal/out.png"}]}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /fal-ai/flux-pro", func(w http.ResponseWriter, r *http.Request) {
		f.submitCalls.Add(1)
		fmt.Fprintf(w, `{"request_id":"req-abc","status_url":%q,"response_url":%q}`,
			f.srv.URL+"/status", f.srv.URL+"/result")
	})
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		n := f.statusCalls.Add(1)
		if int(n) <= f.runningPolls {
			w.Write([]byte(`{"status":"IN_PROGRESS"}`))
			return
		}
		fmt.Fprintf(w, `{"status":%q}`, f.finalStatus)
	})
	mux.HandleFunc("GET /result", func(w http.ResponseWriter, r *http.Request) {
		f.resultCalls.Add(1)
		w.Write([]byte(f.resultBody))
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *falTestServer) adapter(maxPolls int) *FalAdapter {
	return NewFalAdapter(resty.New(), config.FalConfig{
		APIKey:       "fal-test",
		BaseURL:      f.srv.URL,
		Model:        "fal-ai/flux-pro",
		PollInterval: time.Millisecond,
		MaxPolls:     maxPolls,
	})
}

func TestFalAdapterSubmitPollFetch(t *testing.T) {
	f := newFalTestServer(t, 3)
	adapter := f.adapter(10)

	out, err := adapter.Generate(context.Background(), Input{Prompt: "a tiara", RequestID: "r1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ImageURL != "https://fal/out.png" {
		t.Fatalf("unexpected url: %q", out.ImageURL)
	}
	if got := f.submitCalls.Load(); got != 1 {
		t.Fatalf("submit calls = %d, want 1 (submit must never retry)", got)
	}
	if got := f.statusCalls.Load(); got != 4 {
		t.Fatalf("status calls = %d, want 4", got)
	}
	if got := f.resultCalls.Load(); got != 1 {
		t.Fatalf("result calls = %d, want 1", got)
	}
}

func TestFalAdapterTimesOut(t *testing.T) {
	f := newFalTestServer(t, 1000)
	adapter := f.adapter(3)

	_, err := adapter.Generate(context.Background(), Input{Prompt: "p"})
	orchErr, ok := err.(*errors.OrchestrationError)
	if !ok || orchErr.Kind != errors.KindOrchestrationTimeout {
		t.Fatalf("expected orchestration timeout, got %v", err)
	}
	if got := f.statusCalls.Load(); got != 3 {
		t.Fatalf("status calls = %d, want 3", got)
	}
	if got := f.resultCalls.Load(); got != 0 {
		t.Fatalf("result must not be fetched on timeout")
	}
}

func TestFalAdapterVendorFailedStatus(t *testing.T) {
	f := newFalTestServer(t, 1)
	f.finalStatus = "FAILED"
	adapter := f.adapter(10)

	_, err := adapter.Generate(context.Background(), Input{Prompt: "p"})
	orchErr, ok := err.(*errors.OrchestrationError)
	if !ok || orchErr.Kind != errors.KindVendorError {
		t.Fatalf("expected vendor error, got %v", err)
	}
}

func TestFalAdapterResultEmbeddedError(t *testing.T) {
	f := newFalTestServer(t, 0)
	f.resultBody = `{"error":"render worker crashed"}`
	adapter := f.adapter(10)

	_, err := adapter.Generate(context.Background(), Input{Prompt: "p"})
	orchErr, ok := err.(*errors.OrchestrationError)
	if !ok || orchErr.Kind != errors.KindVendorError {
		t.Fatalf("expected vendor error, got %v", err)
	}
	if orchErr.VendorMessage != "render worker crashed" {
		t.Fatalf("vendor message not preserved: %q", orchErr.VendorMessage)
	}
}

func TestFalAdapterResultMissingImageIsProtocolError(t *testing.T) {
	f := newFalTestServer(t, 0)
	f.resultBody = `{"images":[]}`
	adapter := f.adapter(10)

	_, err := adapter.Generate(context.Background(), Input{Prompt: "p"})
	orchErr, ok := err.(*errors.OrchestrationError)
	if !ok || orchErr.Kind != errors.KindVendorProtocolError {
		t.Fatalf("expected vendor protocol error, got %v", err)
	}
}

func TestFalAdapterMissingRequestIDIsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status_url":"x"}`))
	}))
	t.Cleanup(srv.Close)
	adapter := NewFalAdapter(resty.New(), config.FalConfig{
		BaseURL:      srv.URL,
		Model:        "fal-ai/flux-pro",
		PollInterval: time.Millisecond,
		MaxPolls:     3,
	})

	_, err := adapter.Generate(context.Background(), Input{Prompt: "p"})
	orchErr, ok := err.(*errors.OrchestrationError)
	if !ok || orchErr.Kind != errors.KindVendorProtocolError {
		t.Fatalf("expected vendor protocol error, got %v", err)
	}
}
