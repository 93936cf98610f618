package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gemsmith/internal/errors"
	"gemsmith/internal/logger"
	"gemsmith/internal/types"

	"go.uber.org/zap"
)

// PollSpec describes one polling sequence over an async vendor job. The
// closures are scoped to a single vendor request; the engine itself knows
// nothing about wire formats.
type PollSpec struct {
	Provider    string
	RequestID   string
	Interval    time.Duration
	MaxPolls    int
	FetchStatus func(ctx context.Context) (string, error)
	FetchResult func(ctx context.Context) (*Output, error)
}

// Poll drives a vendor job to a terminal state. It loops only over the
// status phase: the submit already happened and the result is fetched
// exactly once, after the vendor reports completion. Exceeding MaxPolls is
// a timeout, distinct from a vendor-reported failure.
func Poll(ctx context.Context, spec PollSpec) (*Output, error) {
	job := &types.ProviderJob{
		RequestID: spec.RequestID,
		Status:    types.JobQueued,
		CreatedAt: time.Now(),
	}

	for {
		raw, err := spec.FetchStatus(ctx)
		if err != nil {
			return nil, err
		}
		job.PollCount++
		job.Status = classifyStatus(raw)

		logger.Debug("poll status",
			zap.String("provider", spec.Provider),
			zap.String("request_id", job.RequestID),
			zap.String("vendor_status", raw),
			zap.String("status", string(job.Status)),
			zap.Int("poll_count", job.PollCount),
		)

		switch job.Status {
		case types.JobCompleted:
			return spec.FetchResult(ctx)
		case types.JobFailed:
			return nil, errors.NewVendorError(spec.Provider,
				fmt.Sprintf("vendor reported terminal status %q", raw), 0)
		}

		if job.PollCount >= spec.MaxPolls {
			logger.Warn("poll budget exhausted",
				zap.String("provider", spec.Provider),
				zap.String("request_id", job.RequestID),
				zap.Int("poll_count", job.PollCount),
			)
			return nil, errors.NewOrchestrationTimeout(spec.Provider, job.PollCount)
		}

		if err := sleepInterval(ctx, spec.Interval, spec.Provider); err != nil {
			return nil, err
		}
	}
}

// classifyStatus maps vendor status text onto the job state machine.
// Unrecognized statuses count as still running; the poll budget bounds
// them rather than assuming vendor vocabularies are exhaustive.
func classifyStatus(raw string) types.JobStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed", "succeeded", "success", "ready":
		return types.JobCompleted
	case "failed", "error", "errored", "canceled", "cancelled":
		return types.JobFailed
	case "queued", "in_queue", "pending", "starting":
		return types.JobQueued
	default:
		return types.JobRunning
	}
}

// sleepInterval waits between polls without blocking other requests and
// aborts promptly when the request context is canceled.
func sleepInterval(ctx context.Context, d time.Duration, provider string) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return errors.NewTransportFailure(provider, ctx.Err())
	case <-timer.C:
		return nil
	}
}
