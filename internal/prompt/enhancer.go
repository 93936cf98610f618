// Package prompt prepares user prompts for the image providers.
package prompt

import "strings"

// StyleSuffix is appended to every prompt before it reaches a provider.
// Keeping it in one place guarantees every vendor renders in the same
// product-photography style.
const StyleSuffix = "professional jewelry product photography, studio lighting, " +
	"isolated on a clean white background, sharp focus on the piece, " +
	"photorealistic, ultra detailed, 8k"

// Enhance appends the fixed style suffix to a raw prompt. Deterministic and
// total; callers apply it exactly once per request.
func Enhance(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return StyleSuffix
	}
	return trimmed + ", " + StyleSuffix
}
