// Package orchestrator selects and drives a provider adapter for each
// generation request. It is the only component aware of which adapter
// family backs which provider key.
package orchestrator

import (
	"context"

	"gemsmith/internal/config"
	"gemsmith/internal/errors"
	"gemsmith/internal/logger"
	"gemsmith/internal/prompt"
	"gemsmith/internal/provider"
	"gemsmith/internal/sketch"
	"gemsmith/internal/types"

	"go.uber.org/zap"
)

// Orchestrator holds the adapter registry and the sketch strategy. It is
// stateless across requests; every call is independent.
type Orchestrator struct {
	registry    *provider.Registry
	interpreter sketch.Interpreter
	generation  config.GenerationConfig
}

// New builds an orchestrator.
func New(registry *provider.Registry, interpreter sketch.Interpreter, generation config.GenerationConfig) *Orchestrator {
	return &Orchestrator{
		registry:    registry,
		interpreter: interpreter,
		generation:  generation,
	}
}

// Orchestrate turns one generation request into a single image reference
// or a typed error. Adapter errors pass through unmodified except for
// attaching the provider key when the adapter omitted it.
func (o *Orchestrator) Orchestrate(ctx context.Context, req types.GenerationRequest) (*types.GenerationResult, error) {
	switch req.Modality {
	case types.ModalityCamera:
		return o.generateFromCamera(ctx, req)
	case types.ModalitySketch:
		return o.generateFromSketch(ctx, req)
	default:
		return o.generateFromText(ctx, req)
	}
}

// generateFromText enhances the raw prompt and invokes the adapter named
// by the provider key. Quota and capability checks happened upstream.
func (o *Orchestrator) generateFromText(ctx context.Context, req types.GenerationRequest) (*types.GenerationResult, error) {
	key := req.ProviderKey
	if key == "" {
		key = o.generation.DefaultProvider
	}
	adapter, ok := o.registry.Get(key)
	if !ok {
		return nil, errors.NewUnknownProvider(key)
	}

	return o.invoke(ctx, adapter, provider.Input{
		Prompt:    prompt.Enhance(req.RawPrompt),
		RequestID: req.RequestID,
	})
}

// generateFromSketch branches on the configured strategy: direct edit of
// the raster, or describe-then-generate through the text path. A vision
// failure aborts the request; there is no silent fallback to direct mode.
func (o *Orchestrator) generateFromSketch(ctx context.Context, req types.GenerationRequest) (*types.GenerationResult, error) {
	if o.generation.SketchMode == config.SketchModeDirect {
		return o.invoke(ctx, o.registry.Edit(), provider.Input{
			Prompt:    prompt.Enhance(req.RawPrompt),
			AuxImages: [][]byte{req.SketchRaster},
			RequestID: req.RequestID,
		})
	}

	description, err := o.interpreter.Describe(ctx, req.SketchRaster, req.RawPrompt)
	if err != nil {
		return nil, err
	}

	logger.Debug("sketch described",
		zap.String("request_id", req.RequestID),
		zap.Int("description_len", len(description)),
	)

	// The description replaces the user's raw prompt from here on.
	text := req
	text.RawPrompt = description
	return o.generateFromText(ctx, text)
}

// generateFromCamera routes the photo (plus an optional sketch overlay) to
// the edit adapter. Plan-level authorization happened before this call.
func (o *Orchestrator) generateFromCamera(ctx context.Context, req types.GenerationRequest) (*types.GenerationResult, error) {
	images := [][]byte{req.CameraRaster}
	if len(req.SketchRaster) > 0 {
		images = append(images, req.SketchRaster)
	}
	images = append(images, req.AuxImages...)

	return o.invoke(ctx, o.registry.Edit(), provider.Input{
		Prompt:    prompt.Enhance(req.RawPrompt),
		AuxImages: images,
		RequestID: req.RequestID,
	})
}

// invoke runs one adapter call and normalizes the outcome.
func (o *Orchestrator) invoke(ctx context.Context, adapter provider.Adapter, in provider.Input) (*types.GenerationResult, error) {
	if adapter == nil {
		return nil, errors.NewInternal(nil)
	}

	out, err := adapter.Generate(ctx, in)
	if err != nil {
		if orchErr, ok := err.(*errors.OrchestrationError); ok {
			return nil, orchErr.WithProvider(adapter.Key())
		}
		return nil, errors.NewInternal(err).WithProvider(adapter.Key())
	}

	return &types.GenerationResult{
		ImageURL:   out.ImageURL,
		ImageBytes: out.ImageBytes,
		Provider:   adapter.Key(),
	}, nil
}
