package service

import (
	"gemsmith/internal/logger"
	"gemsmith/internal/provider"
	"gemsmith/internal/types"

	"go.uber.org/zap"
)

// ProviderService exposes the registered provider keys.
type ProviderService interface {
	ListProviders() types.ProviderListResponse
}

type providerService struct {
	registry        *provider.Registry
	defaultProvider string
}

// NewProviderService creates a provider service instance.
func NewProviderService(registry *provider.Registry, defaultProvider string) ProviderService {
	return &providerService{
		registry:        registry,
		defaultProvider: defaultProvider,
	}
}

// ListProviders returns the registered provider keys.
func (s *providerService) ListProviders() types.ProviderListResponse {
	keys := s.registry.Keys()

	logger.Debug("listing providers",
		zap.Int("provider_count", len(keys)),
	)

	return types.ProviderListResponse{
		Default:   s.defaultProvider,
		Providers: keys,
	}
}
