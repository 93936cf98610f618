package service

import (
	"context"
	"strings"

	"gemsmith/internal/config"
	"gemsmith/internal/errors"
	"gemsmith/internal/logger"
	"gemsmith/internal/orchestrator"
	"gemsmith/internal/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GenerationService fronts the orchestrator for the HTTP layer: it enforces
// the request invariants, fills defaults, and logs outcomes.
type GenerationService interface {
	Generate(ctx context.Context, req *types.GenerationRequest) (*types.GenerationResult, error)
}

type generationService struct {
	orchestrator *orchestrator.Orchestrator
	generation   config.GenerationConfig
}

// NewGenerationService creates a generation service instance.
func NewGenerationService(orch *orchestrator.Orchestrator, generation config.GenerationConfig) GenerationService {
	return &generationService{
		orchestrator: orch,
		generation:   generation,
	}
}

// Generate validates the request and delegates to the orchestrator.
func (s *generationService) Generate(ctx context.Context, req *types.GenerationRequest) (*types.GenerationResult, error) {
	if req.Modality == "" {
		req.Modality = types.ModalityText
	}
	if !req.Modality.Valid() {
		return nil, errors.NewInvalidInput("unsupported modality")
	}

	switch req.Modality {
	case types.ModalityText:
		if strings.TrimSpace(req.RawPrompt) == "" {
			return nil, errors.NewInvalidInput("prompt is required for text generation")
		}
	case types.ModalitySketch:
		if len(req.SketchRaster) == 0 {
			return nil, errors.NewInvalidInput("sketch image is required for sketch generation")
		}
	case types.ModalityCamera:
		if !s.generation.CameraEnabled {
			return nil, errors.NewInvalidInput("camera generation is not enabled")
		}
		if len(req.CameraRaster) == 0 {
			return nil, errors.NewInvalidInput("camera image is required for camera generation")
		}
	}

	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}

	logger.Info("handling generation request",
		zap.String("request_id", req.RequestID),
		zap.String("modality", string(req.Modality)),
		zap.String("provider", req.ProviderKey),
		zap.Int("prompt_len", len(req.RawPrompt)),
	)

	result, err := s.orchestrator.Orchestrate(ctx, *req)
	if err != nil {
		s.logFailure(req, err)
		return nil, err
	}

	logger.Info("generation completed",
		zap.String("request_id", req.RequestID),
		zap.String("provider", result.Provider),
		zap.Bool("inline_bytes", len(result.ImageBytes) > 0),
	)

	return result, nil
}

// logFailure records the failure at a severity matching its kind. Protocol
// violations mean a vendor contract changed under us, so they log loudest.
func (s *generationService) logFailure(req *types.GenerationRequest, err error) {
	fields := []zap.Field{
		zap.String("request_id", req.RequestID),
		zap.String("modality", string(req.Modality)),
		zap.Error(err),
	}

	orchErr, ok := err.(*errors.OrchestrationError)
	if !ok {
		logger.Error("generation failed", fields...)
		return
	}

	fields = append(fields,
		zap.String("kind", string(orchErr.Kind)),
		zap.String("provider", orchErr.Provider),
	)
	if orchErr.VendorMessage != "" {
		fields = append(fields, zap.String("vendor_message", orchErr.VendorMessage))
	}

	switch orchErr.Kind {
	case errors.KindVendorProtocolError:
		logger.Error("vendor protocol violation", fields...)
	case errors.KindInvalidInput, errors.KindUnknownProvider:
		logger.Warn("generation rejected", fields...)
	default:
		logger.Error("generation failed", fields...)
	}
}
