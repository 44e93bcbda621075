package pipeline

import (
	"log/slog"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// Stage transforms one review in place.
type Stage interface {
	// Name returns the stage's identifier.
	Name() string

	// Process cleans r. An error drops nothing; the review keeps the
	// changes made by earlier stages.
	Process(r *types.Review) error
}

// Pipeline chains review stages together.
type Pipeline struct {
	stages []Stage
	logger *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Default returns the sanitize stage, plus PII redaction when redact is set.
func Default(redact bool, logger *slog.Logger) *Pipeline {
	p := New(logger)
	p.Use(NewSanitizeStage())
	if redact {
		p.Use(NewPIIRedactStage(logger))
	}
	return p
}

// Use adds a stage to the chain.
func (p *Pipeline) Use(s Stage) {
	p.stages = append(p.stages, s)
	p.logger.Debug("stage added", "name", s.Name(), "position", len(p.stages))
}

// Len returns the number of stages.
func (p *Pipeline) Len() int {
	return len(p.stages)
}

// Run returns a cleaned copy of reviews in the same order. Stage errors
// are logged and the review passes through.
func (p *Pipeline) Run(reviews []types.Review) []types.Review {
	out := make([]types.Review, len(reviews))
	copy(out, reviews)

	for i := range out {
		if len(out[i].Images) > 0 {
			out[i].Images = append([]string(nil), out[i].Images...)
		}
		for _, s := range p.stages {
			if err := s.Process(&out[i]); err != nil {
				p.logger.Warn("stage failed", "stage", s.Name(), "index", i, "error", err)
			}
		}
	}
	return out
}
