package sequence

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/internal/model"
)

// Generator produces one sequence for one work unit. Implementations wrap
// the gateway API or the Anthropic SDK directly; either way a call is slow
// (tens of seconds) and may be throttled.
type Generator interface {
	GenerateSequence(ctx context.Context, unit model.WorkUnit) (*model.Sequence, *model.SequencePlan, error)
}

// Executor issues exactly one network attempt per Execute call and
// classifies the result. It holds no shared state; retry and cooldown
// decisions belong to the pool.
type Executor struct {
	gen         Generator
	callTimeout time.Duration
}

// NewExecutor creates an executor with a bounded per-call timeout. The
// timeout must exceed the upstream's expected processing time but stay
// finite so a hung call cannot stall the run.
func NewExecutor(gen Generator, callTimeout time.Duration) *Executor {
	if callTimeout <= 0 {
		callTimeout = 75 * time.Second
	}
	return &Executor{gen: gen, callTimeout: callTimeout}
}

// Execute performs one attempt for the unit and returns the classified
// outcome. It never returns an error: failures are data here.
func (e *Executor) Execute(ctx context.Context, unit model.WorkUnit) CallOutcome {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	seq, plan, err := e.gen.GenerateSequence(callCtx, unit)
	if err == nil {
		return CallOutcome{Kind: OutcomeSuccess, Sequence: seq, Plan: plan}
	}

	kind := ClassifyError(err)
	zap.L().Debug("generation attempt failed",
		zap.Int("index", unit.Index),
		zap.String("outcome", kind.String()),
		zap.Error(err),
	)
	return CallOutcome{Kind: kind, Reason: err.Error()}
}
