package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/cjgv1809/Chat-with-PDF/internal/domain"
)

// Transform rewrites text before it is sent to the model.
type Transform func(string) string

// EmbedFunc performs a single model call.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Source records which rung of the fallback ladder produced a vector.
type Source string

const (
	SourcePrimary  Source = "primary"
	SourceFallback Source = "fallback"
	// Zero vectors, by reason.
	SourceEmptyInput Source = "empty_input"
	SourceRejected   Source = "rejected"
	SourceFailed     Source = "failed"
)

// Outcome is the result of running the policy for one text. Vector always has
// the policy's dimension unless Err is set, which only happens when the
// context was cancelled.
type Outcome struct {
	Vector []float32
	Source Source
	// Cause is the model error that led to a zero vector, if any.
	Cause error
	Err   error
	Calls int
}

// Zero reports whether the vector is a placeholder.
func (o Outcome) Zero() bool {
	switch o.Source {
	case SourceEmptyInput, SourceRejected, SourceFailed:
		return true
	}
	return false
}

// FallbackPolicy is the retry ladder for one embedding: primary transform,
// one retry with the fallback transform on a safety rejection, and a zero
// vector whenever no real vector can be produced.
type FallbackPolicy struct {
	Primary    Transform
	Fallback   Transform
	Dimensions int
	// IsRejection decides whether an error is a content-safety refusal.
	IsRejection func(error) bool
}

// DefaultPolicy returns the Sanitize/Aggressive ladder for vectors of the
// given dimension.
func DefaultPolicy(dimensions int) FallbackPolicy {
	return FallbackPolicy{
		Primary:    Sanitize,
		Fallback:   Aggressive,
		Dimensions: dimensions,
		IsRejection: func(err error) bool {
			return errors.Is(err, domain.ErrContentRejected)
		},
	}
}

// Run applies the ladder to text.
func (p FallbackPolicy) Run(ctx context.Context, text string, embed EmbedFunc) Outcome {
	primary := p.Primary(text)
	if primary == "" {
		return p.zero(SourceEmptyInput, nil, 0)
	}

	vec, err := p.call(ctx, primary, embed)
	if err == nil {
		return Outcome{Vector: vec, Source: SourcePrimary, Calls: 1}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Outcome{Err: ctxErr, Calls: 1}
	}
	if !p.IsRejection(err) {
		return p.zero(SourceFailed, err, 1)
	}

	fallback := p.Fallback(primary)
	if fallback == "" {
		return p.zero(SourceRejected, err, 1)
	}

	vec, err = p.call(ctx, fallback, embed)
	if err == nil {
		return Outcome{Vector: vec, Source: SourceFallback, Calls: 2}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Outcome{Err: ctxErr, Calls: 2}
	}
	return p.zero(SourceRejected, err, 2)
}

func (p FallbackPolicy) call(ctx context.Context, text string, embed EmbedFunc) ([]float32, error) {
	vec, err := embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) != p.Dimensions {
		return nil, fmt.Errorf("embedding has %d dimensions, expected %d", len(vec), p.Dimensions)
	}
	return vec, nil
}

func (p FallbackPolicy) zero(source Source, cause error, calls int) Outcome {
	return Outcome{
		Vector: make([]float32, p.Dimensions),
		Source: source,
		Cause:  cause,
		Calls:  calls,
	}
}
