// Package ocr wraps the external text-extraction engines. The engine is an
// optional collaborator: when none is configured, Capability reports
// unavailable and verification degrades to mandatory human review instead of
// failing the submission.
package ocr

import (
	"context"
	"errors"
)

var ErrUnavailable = errors.New("ocr engine not available")

// Engine extracts raw text from a screenshot file.
type Engine interface {
	ExtractText(ctx context.Context, imagePath string) (string, error)
}

// Capability is the injected available/unavailable wrapper around an Engine.
type Capability struct {
	engine Engine
}

func NewCapability(engine Engine) Capability {
	return Capability{engine: engine}
}

func Unavailable() Capability {
	return Capability{}
}

func (c Capability) Available() bool {
	return c.engine != nil
}

func (c Capability) ExtractText(ctx context.Context, imagePath string) (string, error) {
	if c.engine == nil {
		return "", ErrUnavailable
	}
	return c.engine.ExtractText(ctx, imagePath)
}
