package sequence

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/internal/model"
)

// UsageGate answers whether an account may start a generation run. Gate
// transport failures must fail open, so implementations return a plain bool.
type UsageGate interface {
	Allowed(ctx context.Context, account string) bool
	Increment(ctx context.Context, account string, n int)
}

// ErrNotAllowed is returned when the usage gate denies the run outright.
var ErrNotAllowed = eris.New("sequence: account has exhausted its generation allowance")

// totalFailureMsg names the dominant real-world cause so callers can surface
// actionable advice instead of a generic failure.
const totalFailureMsg = "sequence generation failed for every prospect; this is usually upstream rate limiting — wait a few minutes or reduce the batch size and try again"

// Orchestrator runs one bounded batch of independent generation units and
// aggregates per-prospect results.
type Orchestrator struct {
	pool    *Pool
	gate    UsageGate
	account string
}

// NewOrchestrator creates an orchestrator. gate may be nil when usage
// gating is disabled.
func NewOrchestrator(pool *Pool, gate UsageGate, account string) *Orchestrator {
	return &Orchestrator{pool: pool, gate: gate, account: account}
}

// Generate builds one WorkUnit per prospect (index = input position), runs
// the pool, and assembles results in original index order. The returned
// error is non-nil only on total failure or gate denial; partial failures
// are reported in the result, never thrown.
func (o *Orchestrator) Generate(ctx context.Context, prospects []model.Prospect, params model.CampaignParams, onProgress Progress) (*model.GenerationReport, error) {
	if len(prospects) == 0 {
		return &model.GenerationReport{Sequences: []model.Sequence{}}, nil
	}

	if o.gate != nil && !o.gate.Allowed(ctx, o.account) {
		return nil, ErrNotAllowed
	}

	units := make([]model.WorkUnit, len(prospects))
	for i, p := range prospects {
		units[i] = model.WorkUnit{Index: i, Prospect: p, Params: &params}
	}

	res := o.pool.Run(ctx, units, onProgress)

	sequences := make([]model.Sequence, 0, len(units))
	for _, s := range res.Sequences {
		if s != nil {
			sequences = append(sequences, *s)
		}
	}

	log := zap.L().With(zap.String("component", "sequence.orchestrator"))
	log.Info("generation run complete",
		zap.Int("total", len(units)),
		zap.Int("succeeded", len(sequences)),
		zap.Int("failed", len(res.Failed)),
		zap.Bool("rate_limited", res.RateLimited),
	)

	if len(sequences) == 0 {
		return nil, eris.New(totalFailureMsg)
	}

	if o.gate != nil {
		o.gate.Increment(ctx, o.account, len(sequences))
	}

	report := &model.GenerationReport{
		Sequences:      sequences,
		Plan:           res.Plan,
		PartialFailure: len(res.Failed) > 0,
	}
	if len(res.Failed) > 0 {
		report.Failed = res.Failed
	}
	return report, nil
}
