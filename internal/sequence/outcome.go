// Package sequence contains the generation orchestrator: the rate-aware
// executor, the two-phase concurrency pool, and the run-level aggregation
// that turns a prospect list into per-prospect outreach sequences.
package sequence

import (
	"context"
	"errors"

	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/internal/model"
	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/internal/resilience"
)

// OutcomeKind tags the result of one generation attempt. Exactly one kind
// applies per attempt.
type OutcomeKind int

const (
	// OutcomeSuccess carries a generated sequence.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeRateLimited means the upstream signalled throttling, whether
	// via HTTP status or an error embedded in a success payload.
	OutcomeRateLimited
	// OutcomeTransient is any other retryable failure.
	OutcomeTransient
	// OutcomeTimeout means the client-side deadline elapsed.
	OutcomeTimeout
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeTransient:
		return "transient_error"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// CallOutcome is the classified result of one network attempt.
type CallOutcome struct {
	Kind     OutcomeKind
	Sequence *model.Sequence
	Plan     *model.SequencePlan
	Reason   string
}

// ClassifyError maps a generator error to an outcome kind. Rate limiting is
// checked first because an upstream can surface it either as a typed error
// or as free text; both must land in the same bucket.
func ClassifyError(err error) OutcomeKind {
	switch {
	case resilience.IsRateLimited(err):
		return OutcomeRateLimited
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	default:
		return OutcomeTransient
	}
}
