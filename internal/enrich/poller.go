package enrich

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/internal/model"
	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/pkg/enrichapi"
)

// State is the poller lifecycle. Every state other than Running is terminal.
type State int

const (
	// Running means ticks are still being scheduled.
	Running State = iota
	// StoppedByCompletion means every prospect has a phone; nothing left to poll for.
	StoppedByCompletion
	// StoppedByStaleness means several consecutive ticks produced no new data.
	StoppedByStaleness
	// StoppedByTimeout means the maximum poll duration elapsed.
	StoppedByTimeout
	// StoppedExternally means the caller invoked Stop.
	StoppedExternally
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case StoppedByCompletion:
		return "completed"
	case StoppedByStaleness:
		return "stale"
	case StoppedByTimeout:
		return "timed_out"
	case StoppedExternally:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config tunes the poll loop.
type Config struct {
	// Interval is the gap between ticks. Default: 5s.
	Interval time.Duration
	// InitialDelay postpones the first tick; polling immediately would hit
	// near-certain emptiness while webhook deliveries are still in flight.
	// Default: 4s.
	InitialDelay time.Duration
	// MaxDuration bounds the whole poll. Default: 2m.
	MaxDuration time.Duration
	// GracePeriod is how long staleness is ignored after start, giving slow
	// providers a chance to deliver anything at all. Default: 20s.
	GracePeriod time.Duration
	// StaleTicks is how many consecutive empty ticks (after the grace
	// period) end the poll. Default: 4.
	StaleTicks int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Second
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 4 * time.Second
	}
	if c.MaxDuration <= 0 {
		c.MaxDuration = 2 * time.Minute
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = 20 * time.Second
	}
	if c.StaleTicks <= 0 {
		c.StaleTicks = 4
	}
	return c
}

// Poller drives the background merge loop for one enrichment session. It
// owns its prospect snapshot between ticks; callers see updates only through
// onUpdate, which always receives a fresh full copy.
type Poller struct {
	fetcher  enrichapi.Client
	session  string
	cfg      Config
	onUpdate func([]model.Prospect)
	onDone   func(State)
	log      *zap.Logger

	mu       sync.Mutex
	state    State
	entities []model.Prospect

	stopc chan struct{}
}

// Start launches the poll loop and returns its handle. onUpdate fires after
// every tick that filled at least one new field; onDone fires exactly once
// with the terminal state. Both callbacks may be nil.
func Start(ctx context.Context, fetcher enrichapi.Client, session string, prospects []model.Prospect, onUpdate func([]model.Prospect), onDone func(State), cfg Config) *Poller {
	p := &Poller{
		fetcher:  fetcher,
		session:  session,
		cfg:      cfg.withDefaults(),
		onUpdate: onUpdate,
		onDone:   onDone,
		log: zap.L().With(
			zap.String("component", "enrich.poller"),
			zap.String("session", session),
		),
		entities: snapshot(prospects),
		stopc:    make(chan struct{}),
	}
	go p.loop(ctx)
	return p
}

// Stop ends the poll externally. It is idempotent: the terminal state and
// the end callback are settled by whichever stop reason wins first.
func (p *Poller) Stop() {
	p.finish(StoppedExternally)
}

// State returns the current lifecycle state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Prospects returns a copy of the current merged snapshot.
func (p *Poller) Prospects() []model.Prospect {
	p.mu.Lock()
	defer p.mu.Unlock()
	return snapshot(p.entities)
}

// finish transitions to a terminal state at most once.
func (p *Poller) finish(s State) {
	p.mu.Lock()
	if p.state != Running {
		p.mu.Unlock()
		return
	}
	p.state = s
	close(p.stopc)
	p.mu.Unlock()

	p.log.Info("poll finished", zap.String("state", s.String()))
	if p.onDone != nil {
		p.onDone(s)
	}
}

func (p *Poller) stopped() bool {
	select {
	case <-p.stopc:
		return true
	default:
		return false
	}
}

func (p *Poller) loop(ctx context.Context) {
	start := time.Now()
	stale := 0

	timer := time.NewTimer(p.cfg.InitialDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.finish(StoppedExternally)
			return
		case <-p.stopc:
			return
		case <-timer.C:
		}

		// Stop may have raced the timer fire.
		if p.stopped() {
			return
		}

		if time.Since(start) >= p.cfg.MaxDuration {
			p.finish(StoppedByTimeout)
			return
		}

		status, err := p.fetcher.FetchStatus(ctx, p.session)
		if err != nil {
			// A failed fetch is not fatal to the loop; next tick retries.
			p.log.Warn("status fetch failed", zap.Error(err))
		} else {
			merged, filled := MergePhones(p.currentEntities(), status.Records)
			if filled > 0 {
				p.setEntities(merged)
				stale = 0
				p.log.Info("merged enrichment data",
					zap.Int("filled", filled),
					zap.Int("records", len(status.Records)),
				)
				if p.onUpdate != nil {
					p.onUpdate(snapshot(merged))
				}
			} else {
				stale++
			}

			if AllPhonesFilled(merged) {
				p.finish(StoppedByCompletion)
				return
			}
			if time.Since(start) > p.cfg.GracePeriod && stale >= p.cfg.StaleTicks {
				p.finish(StoppedByStaleness)
				return
			}
		}

		// Never schedule another tick after a stop, even one that landed
		// while this tick was executing.
		if p.stopped() {
			return
		}
		timer.Reset(p.cfg.Interval)
	}
}

func (p *Poller) currentEntities() []model.Prospect {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.entities
}

func (p *Poller) setEntities(next []model.Prospect) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entities = next
}

func snapshot(in []model.Prospect) []model.Prospect {
	out := make([]model.Prospect, len(in))
	copy(out, in)
	return out
}
