// Package provider implements the per-vendor generation adapters and the
// polling engine that drives asynchronous backends to completion.
package provider

import (
	"context"
	"math"
	"sort"
	"strings"

	"gemsmith/internal/config"

	"github.com/bytedance/sonic"
	"github.com/cespare/xxhash/v2"
	"github.com/go-resty/resty/v2"
	"github.com/samber/lo"
)

// Input is the normalized request every adapter accepts. Adapters ignore
// AuxImages when their vendor protocol has no multi-image support.
type Input struct {
	Prompt    string
	AuxImages [][]byte
	RequestID string
}

// Output carries exactly one of ImageURL or ImageBytes.
type Output struct {
	ImageURL   string
	ImageBytes []byte
}

// Adapter is the uniform contract implemented against each vendor protocol.
type Adapter interface {
	// Key is the provider identifier the orchestrator dispatches on.
	Key() string
	// Generate runs one generation to completion, however the vendor's
	// protocol defines completion.
	Generate(ctx context.Context, in Input) (*Output, error)
}

// Registry maps provider keys to adapters. The orchestrator is the only
// consumer; it depends on nothing vendor-specific beyond the key.
type Registry struct {
	adapters map[string]Adapter
	edit     Adapter
}

// NewRegistry builds the production registry from config. The multipart
// edit adapter is registered under its own key and also pinned as the
// image-edit backend for sketch and camera input.
func NewRegistry(client *resty.Client, cfg *config.Config) *Registry {
	edit := NewGptImageAdapter(client, cfg.Providers.GptImage)
	r := &Registry{adapters: make(map[string]Adapter)}
	r.Register(NewOpenAIAdapter(client, cfg.Providers.OpenAI))
	r.Register(NewReplicateAdapter(client, cfg.Providers.Replicate))
	r.Register(NewFalAdapter(client, cfg.Providers.Fal))
	r.Register(edit)
	r.edit = edit
	return r
}

// NewRegistryWith builds a registry from explicit adapters; the last one
// doubles as the edit adapter when non-nil.
func NewRegistryWith(edit Adapter, adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter), edit: edit}
	for _, a := range adapters {
		r.Register(a)
	}
	if edit != nil {
		r.Register(edit)
	}
	return r
}

// Register adds an adapter under its key.
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Key()] = a
}

// Get looks up the adapter for a provider key.
func (r *Registry) Get(key string) (Adapter, bool) {
	a, ok := r.adapters[key]
	return a, ok
}

// Edit returns the adapter handling image-edit input.
func (r *Registry) Edit() Adapter {
	return r.edit
}

// Keys lists registered provider keys in stable order.
func (r *Registry) Keys() []string {
	keys := lo.Keys(r.adapters)
	sort.Strings(keys)
	return keys
}

// Seed derives a stable per-request seed for seed-capable vendors so a
// retried submit reproduces the same render.
func Seed(requestID, prompt string) int64 {
	sum := xxhash.Sum64String(requestID + "|" + prompt)
	return int64(sum % math.MaxInt32)
}

// vendorErrorMessage extracts the human-readable message from a vendor
// error body. The second return is false when the body is not valid JSON,
// which callers report as a protocol violation instead of a vendor error.
func vendorErrorMessage(body []byte) (string, bool) {
	var probe any
	if err := sonic.Unmarshal(body, &probe); err != nil {
		return "", false
	}

	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := sonic.Unmarshal(body, &nested); err == nil && nested.Error.Message != "" {
		return nested.Error.Message, true
	}

	var flat struct {
		Error   string `json:"error"`
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := sonic.Unmarshal(body, &flat); err == nil {
		for _, msg := range []string{flat.Error, flat.Detail, flat.Message} {
			if msg != "" {
				return msg, true
			}
		}
	}

	// Valid JSON in an unknown shape; surface it raw for logging.
	return strings.TrimSpace(string(body)), true
}

func is2xx(code int) bool {
	return code >= 200 && code < 300
}
