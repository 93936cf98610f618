package provider

import (
	"context"
	"testing"
	"time"

	"gemsmith/internal/errors"
	"gemsmith/internal/types"
)

func testPollSpec(statuses []string, result *Output) (*PollSpec, *int, *int) {
	statusCalls := 0
	resultCalls := 0
	spec := &PollSpec{
		Provider:  "fal",
		RequestID: "req-1",
		Interval:  time.Millisecond,
		MaxPolls:  10,
		FetchStatus: func(ctx context.Context) (string, error) {
			idx := statusCalls
			statusCalls++
			if idx >= len(statuses) {
				idx = len(statuses) - 1
			}
			return statuses[idx], nil
		},
		FetchResult: func(ctx context.Context) (*Output, error) {
			resultCalls++
			return result, nil
		},
	}
	return spec, &statusCalls, &resultCalls
}

func TestPollRunsUntilCompleted(t *testing.T) {
	statuses := []string{"IN_PROGRESS", "IN_PROGRESS", "IN_PROGRESS", "COMPLETED"}
	spec, statusCalls, resultCalls := testPollSpec(statuses, &Output{ImageURL: "https://cdn/img.png"})

	out, err := Poll(context.Background(), *spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ImageURL != "https://cdn/img.png" {
		t.Fatalf("unexpected output: %#v", out)
	}
	if *statusCalls != 4 {
		t.Fatalf("status calls = %d, want 4", *statusCalls)
	}
	if *resultCalls != 1 {
		t.Fatalf("result calls = %d, want 1", *resultCalls)
	}
}

func TestPollTimesOutAtBudget(t *testing.T) {
	spec, statusCalls, resultCalls := testPollSpec([]string{"IN_PROGRESS"}, nil)
	spec.MaxPolls = 5

	_, err := Poll(context.Background(), *spec)
	orchErr, ok := err.(*errors.OrchestrationError)
	if !ok || orchErr.Kind != errors.KindOrchestrationTimeout {
		t.Fatalf("expected orchestration timeout, got %v", err)
	}
	if *statusCalls != 5 {
		t.Fatalf("status calls = %d, want 5", *statusCalls)
	}
	if *resultCalls != 0 {
		t.Fatalf("result must not be fetched on timeout")
	}
}

func TestPollVendorFailureIsNotTimeout(t *testing.T) {
	spec, _, resultCalls := testPollSpec([]string{"IN_PROGRESS", "FAILED"}, nil)

	_, err := Poll(context.Background(), *spec)
	orchErr, ok := err.(*errors.OrchestrationError)
	if !ok || orchErr.Kind != errors.KindVendorError {
		t.Fatalf("expected vendor error, got %v", err)
	}
	if *resultCalls != 0 {
		t.Fatalf("result must not be fetched after vendor failure")
	}
}

func TestPollUnknownStatusKeepsRunning(t *testing.T) {
	spec, statusCalls, _ := testPollSpec([]string{"WARMING_UP", "WARMING_UP", "COMPLETED"}, &Output{ImageURL: "u"})

	if _, err := Poll(context.Background(), *spec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *statusCalls != 3 {
		t.Fatalf("status calls = %d, want 3", *statusCalls)
	}
}

func TestPollAbortsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	spec, _, _ := testPollSpec([]string{"IN_PROGRESS"}, nil)
	spec.Interval = time.Minute
	cancel()

	done := make(chan error, 1)
	go func() {
		_, err := Poll(ctx, *spec)
		done <- err
	}()

	select {
	case err := <-done:
		orchErr, ok := err.(*errors.OrchestrationError)
		if !ok || orchErr.Kind != errors.KindTransportFailure {
			t.Fatalf("expected transport failure on cancellation, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("poll did not abort promptly after cancellation")
	}
}

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want types.JobStatus
	}{
		{"COMPLETED", types.JobCompleted},
		{"succeeded", types.JobCompleted},
		{"Ready", types.JobCompleted},
		{"FAILED", types.JobFailed},
		{"error", types.JobFailed},
		{"canceled", types.JobFailed},
		{"IN_QUEUE", types.JobQueued},
		{"starting", types.JobQueued},
		{"IN_PROGRESS", types.JobRunning},
		{"something-new", types.JobRunning},
	}
	for _, tc := range cases {
		if got := classifyStatus(tc.raw); got != tc.want {
			t.Fatalf("classifyStatus(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}
