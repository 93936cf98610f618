package types

import "time"

// Modality identifies the kind of creative input driving a generation.
type Modality string

const (
	ModalityText   Modality = "text"
	ModalitySketch Modality = "sketch"
	ModalityCamera Modality = "camera"
)

// Valid reports whether the modality is one of the supported values.
func (m Modality) Valid() bool {
	switch m {
	case ModalityText, ModalitySketch, ModalityCamera:
		return true
	}
	return false
}

// GenerationRequest is the normalized input handed to the orchestrator.
// SketchRaster is required for sketch modality, CameraRaster for camera
// modality; the service layer enforces both before dispatch.
type GenerationRequest struct {
	RawPrompt    string
	Modality     Modality
	ProviderKey  string
	SketchRaster []byte
	SketchVector string
	CameraRaster []byte
	AuxImages    [][]byte
	RequestID    string
}

// GenerationResult carries exactly one of ImageURL or ImageBytes, depending
// on the adapter family that produced it. The caller owns persistence.
type GenerationResult struct {
	ImageURL   string
	ImageBytes []byte
	Provider   string
}

// JobStatus is the polling engine's view of an async vendor job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether no further transition can occur.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// ProviderJob tracks a single in-flight async generation. It lives only for
// the duration of one polling sequence and is never persisted.
type ProviderJob struct {
	RequestID string
	Status    JobStatus
	CreatedAt time.Time
	PollCount int
}
