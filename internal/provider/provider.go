package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// Provider driver names selectable per pipeline stage.
const (
	DriverReplicate  = "replicate"
	DriverOpenAI     = "openai"
	DriverGemini     = "gemini"
	DriverVolcengine = "volcengine"
)

// Blender merges two source creature images into a single fused image.
type Blender interface {
	Blend(ctx context.Context, image1, image2, headName, bodyName string) (string, error)
}

// Describer produces a free-text visual description of a creature image.
type Describer interface {
	Describe(ctx context.Context, image string) (string, error)
}

// Enhancer re-renders an image according to a structured prompt.
type Enhancer interface {
	Enhance(ctx context.Context, image, prompt string) (string, error)
}

// Error is a classified provider failure. StatusCode of 0 means the request
// never reached the provider (network error).
type Error struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: http %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Transient reports whether the failure is worth retrying: network errors,
// rate limits and server-side errors are; 4xx validation errors are not.
func (e *Error) Transient() bool {
	if e.StatusCode == 0 {
		return true
	}
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return e.StatusCode >= http.StatusInternalServerError
}

// IsTransient classifies an arbitrary error for retry purposes. The default
// policy retries everything that is not an explicitly non-transient provider
// error.
func IsTransient(err error) bool {
	var provErr *Error
	if errors.As(err, &provErr) {
		return provErr.Transient()
	}
	return true
}

const logSnippetLimit = 120

func providerLogger(ctx context.Context, providerID string) *logrus.Entry {
	entry := logrus.WithField("provider", providerID)
	if ctx != nil {
		entry = entry.WithContext(ctx)
	}
	return entry
}

func logSnippet(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	runes := []rune(value)
	if len(runes) <= logSnippetLimit {
		return value
	}

	return string(runes[:logSnippetLimit]) + "..."
}
