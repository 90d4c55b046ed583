package artifacts

import (
	"context"
	"sync"
	"time"

	"github.com/qrshare/qrshare/internal/logging"
)

// Default sweep cadence.
const (
	DefaultSweepInterval = time.Minute
	defaultTriggerGap    = 5 * time.Second
)

// SweepResult summarises one sweep cycle.
type SweepResult struct {
	// Deleted counts artifacts this cycle physically removed.
	Deleted int
	// Failed counts artifacts whose deletion stopped part way; they are
	// retried on the next cycle.
	Failed int
}

// Sweeper deletes expired artifacts on a fixed interval and, through
// Trigger, opportunistically ahead of requests.
type Sweeper struct {
	svc        *Service
	interval   time.Duration
	triggerGap time.Duration
	log        logging.Logger

	kick chan struct{}

	mu      sync.Mutex
	lastRun time.Time
}

type SweeperOption func(*Sweeper)

// WithTriggerGap sets the minimum time between opportunistic sweeps.
func WithTriggerGap(d time.Duration) SweeperOption {
	return func(sw *Sweeper) { sw.triggerGap = d }
}

// NewSweeper binds a sweeper to svc and installs it as svc's opportunistic
// trigger. Triggers only take effect while Run is active.
func NewSweeper(svc *Service, interval time.Duration, opts ...SweeperOption) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	sw := &Sweeper{
		svc:        svc,
		interval:   interval,
		triggerGap: defaultTriggerGap,
		log:        svc.log.With("component", "sweeper"),
		kick:       make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(sw)
	}

	trigger := sw.Trigger
	svc.trigger.Store(&trigger)
	return sw
}

// Trigger asks for a sweep without waiting for it. Requests arriving while
// one is already pending are dropped.
func (sw *Sweeper) Trigger() {
	select {
	case sw.kick <- struct{}{}:
	default:
	}
}

// Run sweeps every interval and on Trigger until ctx is done.
func (sw *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(sw.interval)
	defer t.Stop()

	sw.log.Info(ctx, "sweeper started", "interval", sw.interval)
	for {
		select {
		case <-ctx.Done():
			sw.log.Info(ctx, "sweeper stopped")
			return nil
		case <-t.C:
			sw.sweep(ctx)
		case <-sw.kick:
			if sw.throttled() {
				continue
			}
			sw.sweep(ctx)
		}
	}
}

func (sw *Sweeper) throttled() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return !sw.lastRun.IsZero() && sw.svc.now().Sub(sw.lastRun) < sw.triggerGap
}

func (sw *Sweeper) sweep(ctx context.Context) {
	res, err := sw.SweepOnce(ctx)
	if err != nil {
		sw.log.Error(ctx, "sweep failed", "error", err)
		return
	}
	if res.Deleted > 0 || res.Failed > 0 {
		sw.log.Info(ctx, "sweep finished", "deleted", res.Deleted, "failed", res.Failed)
	}
}

// SweepOnce deletes every artifact expired as of now. A failure on one
// artifact is logged and counted and does not stop the rest. It is safe to
// run concurrently with itself, retrievals and revokes.
func (sw *Sweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	began := time.Now()
	start := sw.svc.now()
	sw.mu.Lock()
	sw.lastRun = start
	sw.mu.Unlock()

	var res SweepResult
	defer func() {
		sw.svc.metrics.ObserveSweep(time.Since(began).Seconds())
	}()

	ids, err := sw.svc.repo.ListExpired(ctx, start)
	if err != nil {
		return res, err
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		deleted, err := sw.svc.purge(ctx, id, true)
		switch {
		case err != nil:
			res.Failed++
			sw.svc.metrics.IncSwept("failed")
			sw.log.Warn(ctx, "artifact deletion incomplete", "id", id, "error", err)
		case deleted:
			res.Deleted++
			sw.svc.metrics.IncSwept("deleted")
			sw.log.Debug(ctx, "artifact deleted", "id", id)
		}
	}
	return res, nil
}
