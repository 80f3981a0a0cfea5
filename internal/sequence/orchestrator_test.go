package sequence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/internal/model"
	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/internal/resilience"
)

type fakeGate struct {
	mu         sync.Mutex
	allowed    bool
	checks     int
	increments int
}

func (g *fakeGate) Allowed(_ context.Context, _ string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checks++
	return g.allowed
}

func (g *fakeGate) Increment(_ context.Context, _ string, n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.increments += n
}

func makeProspects(n int) []model.Prospect {
	out := make([]model.Prospect, n)
	for i := range out {
		out[i] = model.Prospect{Name: "P", Company: "C"}
	}
	return out
}

func newTestOrchestrator(gen Generator, gate UsageGate) *Orchestrator {
	pool := NewPool(NewExecutor(gen, time.Second), fastPoolConfig())
	return NewOrchestrator(pool, gate, "acct-1")
}

func TestOrchestrator_AllSuccess_IndexOrder(t *testing.T) {
	gen := newScriptedGenerator(func(int, int) error { return nil })
	o := newTestOrchestrator(gen, nil)

	report, err := o.Generate(context.Background(), makeProspects(6), model.CampaignParams{}, nil)
	require.NoError(t, err)

	require.Len(t, report.Sequences, 6)
	seen := make(map[int]bool)
	for i, s := range report.Sequences {
		assert.Equal(t, i, s.Index, "output must be in ascending index order")
		assert.False(t, seen[s.Index], "duplicate index %d", s.Index)
		seen[s.Index] = true
	}
	assert.False(t, report.PartialFailure)
	require.NotNil(t, report.Plan)
}

func TestOrchestrator_PartialFailure(t *testing.T) {
	gen := newScriptedGenerator(func(index, _ int) error {
		if index == 1 {
			return resilience.NewTransientError(errors.New("broken"), 500)
		}
		return nil
	})
	o := newTestOrchestrator(gen, nil)

	report, err := o.Generate(context.Background(), makeProspects(4), model.CampaignParams{}, nil)
	require.NoError(t, err)

	assert.True(t, report.PartialFailure)
	assert.Len(t, report.Sequences, 3)
	assert.Contains(t, report.Failed, 1)
	for _, s := range report.Sequences {
		assert.NotEqual(t, 1, s.Index)
	}
}

func TestOrchestrator_TotalFailure_RejectsWithRateLimitHint(t *testing.T) {
	gen := newScriptedGenerator(func(int, int) error {
		return resilience.NewTransientError(errors.New("down"), 503)
	})
	o := newTestOrchestrator(gen, nil)

	_, err := o.Generate(context.Background(), makeProspects(3), model.CampaignParams{}, nil)
	require.Error(t, err)
	assert.NotEmpty(t, err.Error())
	assert.Contains(t, err.Error(), "rate limiting")
}

func TestOrchestrator_EmptyInput(t *testing.T) {
	gen := newScriptedGenerator(func(int, int) error { return nil })
	o := newTestOrchestrator(gen, nil)

	report, err := o.Generate(context.Background(), nil, model.CampaignParams{}, nil)
	require.NoError(t, err)
	assert.Empty(t, report.Sequences)
	assert.False(t, report.PartialFailure)
}

func TestOrchestrator_GateDenied(t *testing.T) {
	gen := newScriptedGenerator(func(int, int) error { return nil })
	gate := &fakeGate{allowed: false}
	o := newTestOrchestrator(gen, gate)

	_, err := o.Generate(context.Background(), makeProspects(2), model.CampaignParams{}, nil)
	require.ErrorIs(t, err, ErrNotAllowed)
	assert.Equal(t, 1, gate.checks)
	assert.Zero(t, gen.attemptCount(0), "no generation call after gate denial")
}

func TestOrchestrator_GateIncrementedOnSuccess(t *testing.T) {
	gen := newScriptedGenerator(func(int, int) error { return nil })
	gate := &fakeGate{allowed: true}
	o := newTestOrchestrator(gen, gate)

	report, err := o.Generate(context.Background(), makeProspects(3), model.CampaignParams{}, nil)
	require.NoError(t, err)
	assert.Len(t, report.Sequences, 3)
	assert.Equal(t, 3, gate.increments)
}
