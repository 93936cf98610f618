package utils

import (
	"encoding/base64"
	"math/rand"
	"strings"
	"sync"
	"time"
)

var (
	randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
	letters    = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

	randStringBuilderPool = sync.Pool{
		New: func() any {
			return &strings.Builder{}
		},
	}
)

// RandStringUsingMathRand generates a random string of length n.
func RandStringUsingMathRand(n int) string {
	if n <= 0 {
		return ""
	}

	sb := randStringBuilderPool.Get().(*strings.Builder)
	defer func() {
		sb.Reset()
		randStringBuilderPool.Put(sb)
	}()

	sb.Grow(n)

	for range n {
		sb.WriteRune(letters[randSource.Intn(len(letters))])
	}

	return sb.String()
}

// StripDataURLPrefix removes a leading data:*;base64, prefix if present.
func StripDataURLPrefix(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if idx := strings.Index(s, ","); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

// DecodeImagePayload decodes a base64 image payload, tolerating a data-URL
// prefix and standard or URL-safe alphabets.
func DecodeImagePayload(s string) ([]byte, error) {
	payload := strings.TrimSpace(StripDataURLPrefix(s))
	if data, err := base64.StdEncoding.DecodeString(payload); err == nil {
		return data, nil
	}
	return base64.URLEncoding.DecodeString(payload)
}
