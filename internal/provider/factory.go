package provider

import (
	"fmt"
	"strings"

	"pokefusion/internal/config"
)

// Set bundles the per-stage provider implementations picked by configuration.
type Set struct {
	Blender   Blender
	Describer Describer
	Enhancer  Enhancer
}

// NewSet resolves the configured driver for each stage. Each stage can point
// at a different provider; the same driver may back more than one stage.
func NewSet(cfg config.Config) (*Set, error) {
	blender, err := newBlender(cfg, cfg.BlendProvider)
	if err != nil {
		return nil, fmt.Errorf("blend provider: %w", err)
	}

	describer, err := newDescriber(cfg, cfg.DescribeProvider)
	if err != nil {
		return nil, fmt.Errorf("describe provider: %w", err)
	}

	enhancer, err := newEnhancer(cfg, cfg.EnhanceProvider)
	if err != nil {
		return nil, fmt.Errorf("enhance provider: %w", err)
	}

	return &Set{Blender: blender, Describer: describer, Enhancer: enhancer}, nil
}

func newBlender(cfg config.Config, driver string) (Blender, error) {
	switch normalizeDriver(driver) {
	case DriverReplicate:
		return NewReplicate(cfg)
	case DriverGemini:
		return NewGemini(cfg)
	case DriverVolcengine:
		return NewVolcengine(cfg)
	default:
		return nil, fmt.Errorf("driver %q cannot blend images", driver)
	}
}

func newDescriber(cfg config.Config, driver string) (Describer, error) {
	switch normalizeDriver(driver) {
	case DriverOpenAI:
		return NewOpenAI(cfg)
	case DriverGemini:
		return NewGemini(cfg)
	default:
		return nil, fmt.Errorf("driver %q cannot describe images", driver)
	}
}

func newEnhancer(cfg config.Config, driver string) (Enhancer, error) {
	switch normalizeDriver(driver) {
	case DriverReplicate:
		return NewReplicate(cfg)
	case DriverOpenAI:
		return NewOpenAI(cfg)
	case DriverGemini:
		return NewGemini(cfg)
	case DriverVolcengine:
		return NewVolcengine(cfg)
	default:
		return nil, fmt.Errorf("driver %q cannot enhance images", driver)
	}
}

func normalizeDriver(driver string) string {
	return strings.ToLower(strings.TrimSpace(driver))
}
