package sequence

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/internal/model"
	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/internal/resilience"
)

// Progress is invoked after every unit reaches a terminal state (success or
// permanent failure), in completion order, with the running done count.
type Progress func(done, total int)

// PoolConfig tunes the two-phase execution strategy.
type PoolConfig struct {
	// Workers bounds the parallel phase. Default: 2.
	Workers int

	// PaceInterval is the minimum wall-clock spacing between call starts in
	// the paced sequential phase. It is a floor derived from the upstream's
	// per-minute token budget, so it holds even when a call finishes fast.
	// Default: 20s.
	PaceInterval time.Duration

	// CooldownDuration is the single shared wait after the first rate-limit
	// signal. Default: 45s.
	CooldownDuration time.Duration

	// RetryPause is the fixed pause before the single retry granted to
	// transient and timeout outcomes. Default: 1.5s.
	RetryPause time.Duration

	// MaxAttempts applies while the run has not seen a rate limit. Default: 2.
	MaxAttempts int

	// MaxAttemptsRateLimited replaces MaxAttempts once the run knows it is
	// rate limited. Default: 3.
	MaxAttemptsRateLimited int

	// OnCooldown, if set, is invoked when the run's shared cooldown window
	// is armed. It fires at most once per run.
	OnCooldown func()
}

func (c PoolConfig) withDefaults() PoolConfig {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.PaceInterval <= 0 {
		c.PaceInterval = 20 * time.Second
	}
	if c.CooldownDuration <= 0 {
		c.CooldownDuration = 45 * time.Second
	}
	if c.RetryPause <= 0 {
		c.RetryPause = 1500 * time.Millisecond
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 2
	}
	if c.MaxAttemptsRateLimited <= 0 {
		c.MaxAttemptsRateLimited = 3
	}
	return c
}

// Pool executes a batch of work units: a bounded parallel phase that
// degrades to a paced sequential phase on the first rate-limit signal.
type Pool struct {
	exec *Executor
	cfg  PoolConfig
}

// NewPool creates a pool around the executor.
func NewPool(exec *Executor, cfg PoolConfig) *Pool {
	return &Pool{exec: exec, cfg: cfg.withDefaults()}
}

// RunResult aggregates the terminal state of every unit. Every index ends
// up either in Sequences (at its own slot) or in Failed; never both.
type RunResult struct {
	// Sequences is indexed by unit index; nil slots are failures.
	Sequences []*model.Sequence
	Plan      *model.SequencePlan
	Failed    map[int]string
	// RateLimited reports whether the run observed any throttling.
	RateLimited bool
}

// runState is the only state shared between workers: the rate-limit flag,
// the singleton cooldown, and the index-partitioned result slots.
type runState struct {
	mu      sync.Mutex
	results []*model.Sequence
	plan    *model.SequencePlan
	failed  map[int]string
	done    int

	rateLimited atomic.Bool
	cooldown    *resilience.Cooldown
	next        atomic.Int64
}

func (st *runState) recordSuccess(index int, out CallOutcome) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	// A slot is written at most once, by whichever attempt succeeds first.
	if st.results[index] == nil {
		st.results[index] = out.Sequence
		if st.plan == nil && out.Plan != nil {
			st.plan = out.Plan
		}
		st.done++
	}
	return st.done
}

func (st *runState) recordFailure(index int, reason string) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, dup := st.failed[index]; !dup && st.results[index] == nil {
		st.failed[index] = reason
		st.done++
	}
	return st.done
}

// Run executes every unit to a terminal state. It only returns early when
// the context is cancelled; otherwise no index is left unprocessed.
func (p *Pool) Run(ctx context.Context, units []model.WorkUnit, onProgress Progress) *RunResult {
	total := len(units)
	st := &runState{
		results:  make([]*model.Sequence, total),
		failed:   make(map[int]string),
		cooldown: resilience.NewCooldown(p.cfg.CooldownDuration),
	}
	st.cooldown.OnArm = p.cfg.OnCooldown
	if onProgress == nil {
		onProgress = func(int, int) {}
	}

	log := zap.L().With(zap.String("component", "sequence.pool"))
	log.Info("starting parallel phase",
		zap.Int("units", total),
		zap.Int("workers", p.cfg.Workers),
	)

	// Parallel phase. Workers pull the next unclaimed index; nobody starts
	// a new index once the rate-limit flag is up. A unit whose attempt hits
	// the rate limit is not failed — it is handed to the paced phase.
	var deferredMu sync.Mutex
	var deferred []int

	var g errgroup.Group
	for w := 0; w < p.cfg.Workers; w++ {
		g.Go(func() error {
			for {
				if ctx.Err() != nil || st.rateLimited.Load() {
					return nil
				}
				i := int(st.next.Add(1) - 1)
				if i >= total {
					return nil
				}
				// The flag may have been raised between the check and the
				// claim; a claimed-but-unstarted unit also moves to the
				// paced phase.
				if st.rateLimited.Load() {
					deferredMu.Lock()
					deferred = append(deferred, i)
					deferredMu.Unlock()
					continue
				}
				if p.processUnit(ctx, st, units[i], false, onProgress, total) {
					deferredMu.Lock()
					deferred = append(deferred, i)
					deferredMu.Unlock()
				}
			}
		})
	}
	_ = g.Wait()

	// Indices the cursor never reached plus the deferred ones make up the
	// paced phase's workload.
	remaining := deferred
	firstUnclaimed := int(st.next.Load())
	if firstUnclaimed > total {
		firstUnclaimed = total
	}
	for i := firstUnclaimed; i < total; i++ {
		remaining = append(remaining, i)
	}
	sort.Ints(remaining)

	if len(remaining) > 0 && ctx.Err() == nil {
		log.Warn("rate limit observed, switching to paced sequential phase",
			zap.Int("remaining", len(remaining)),
			zap.Duration("pace", p.cfg.PaceInterval),
			zap.Duration("cooldown", p.cfg.CooldownDuration),
		)

		// One shared cooldown for the whole run, no matter how many workers
		// observed the throttle.
		if _, err := st.cooldown.Wait(ctx); err == nil {
			limiter := rate.NewLimiter(rate.Every(p.cfg.PaceInterval), 1)
			for _, i := range remaining {
				if err := limiter.Wait(ctx); err != nil {
					break
				}
				p.processUnit(ctx, st, units[i], true, onProgress, total)
			}
		}
	}

	// Context cancellation can leave units unresolved; account for them so
	// the success/failure sets always cover every attempted index.
	for i := 0; i < total; i++ {
		st.mu.Lock()
		_, failed := st.failed[i]
		unresolved := st.results[i] == nil && !failed
		st.mu.Unlock()
		if unresolved {
			st.recordFailure(i, "run aborted: "+ctx.Err().Error())
		}
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return &RunResult{
		Sequences:   st.results,
		Plan:        st.plan,
		Failed:      st.failed,
		RateLimited: st.rateLimited.Load(),
	}
}

// processUnit drives one unit to a terminal state, or defers it: during the
// parallel phase a rate-limited attempt returns true so the unit can be
// rerun under pacing instead of burning attempts against a throttled
// upstream.
func (p *Pool) processUnit(ctx context.Context, st *runState, unit model.WorkUnit, paced bool, onProgress Progress, total int) (deferToPaced bool) {
	maxAttempts := p.cfg.MaxAttempts
	if st.rateLimited.Load() {
		maxAttempts = p.cfg.MaxAttemptsRateLimited
	}

	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			onProgress(st.recordFailure(unit.Index, "run aborted: "+ctx.Err().Error()), total)
			return false
		}

		out := p.exec.Execute(ctx, unit)
		switch out.Kind {
		case OutcomeSuccess:
			onProgress(st.recordSuccess(unit.Index, out), total)
			return false

		case OutcomeRateLimited:
			st.rateLimited.Store(true)
			if !paced {
				// Finish this unit later, under pacing. Parallel siblings
				// mid-flight complete their current unit; none starts a new one.
				return true
			}
			// The run now knows it is rate limited, so the attempt budget grows.
			maxAttempts = p.cfg.MaxAttemptsRateLimited
			if attempt >= maxAttempts {
				onProgress(st.recordFailure(unit.Index, out.Reason), total)
				return false
			}
			if _, err := st.cooldown.Wait(ctx); err != nil {
				onProgress(st.recordFailure(unit.Index, out.Reason), total)
				return false
			}

		case OutcomeTransient, OutcomeTimeout:
			if attempt >= maxAttempts {
				onProgress(st.recordFailure(unit.Index, out.Reason), total)
				return false
			}
			if !sleepCtx(ctx, p.cfg.RetryPause) {
				onProgress(st.recordFailure(unit.Index, out.Reason), total)
				return false
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
