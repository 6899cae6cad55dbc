package usecase

import (
	"context"
	"time"

	"github.com/bep/debounce"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"novashell/internal/bridge"
	"novashell/internal/domain"
)

// Scheduler runs functions on the shell's event loop.
type Scheduler interface {
	Post(fn func()) bool
}

// Reconciler answers backend flag queries.
type Reconciler interface {
	ReconcileFlags(ctx context.Context) (domain.Flags, error)
}

// PollerConfig controls the reconciliation cadence.
type PollerConfig struct {
	Interval         time.Duration
	SuppressionDelay time.Duration
	CallTimeout      time.Duration
}

// StatusPoller periodically mirrors the backend monitor flags into the toggle
// group. It is Armed unless a local toggle opened the suppression window, in
// which case every result that would be applied is dropped until the window
// expires on its own.
//
// The window is a fixed-delay heuristic: the backend never confirms that the
// flag write landed, so a slow backend can still be overwritten by a poll that
// lands after the window closes.
type StatusPoller struct {
	sched      Scheduler
	reconciler Reconciler
	clock      Clock
	rearm      func(func())
	spawn      func(func())
	cfg        PollerConfig

	apply         func(domain.ToggleState)
	onStateChange func(suppressed bool)

	// Event loop state.
	window     suppressionWindow
	inFlight   bool
	suppressed bool
}

type pollerDeps struct {
	clock    Clock
	debounce func(time.Duration) func(func())
	spawn    func(func())
}

func defaultPollerDeps() pollerDeps {
	return pollerDeps{
		clock:    systemClock{},
		debounce: debounce.New,
		spawn:    func(fn func()) { go fn() },
	}
}

func newStatusPoller(sched Scheduler, reconciler Reconciler, cfg PollerConfig, deps pollerDeps) *StatusPoller {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.SuppressionDelay <= 0 {
		cfg.SuppressionDelay = 2 * time.Second
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 5 * time.Second
	}
	return &StatusPoller{
		sched:         sched,
		reconciler:    reconciler,
		clock:         deps.clock,
		rearm:         deps.debounce(cfg.SuppressionDelay),
		spawn:         deps.spawn,
		cfg:           cfg,
		window:        suppressionWindow{delay: cfg.SuppressionDelay},
		apply:         func(domain.ToggleState) {},
		onStateChange: func(bool) {},
	}
}

// Run polls immediately and then on every interval until ctx is done.
func (p *StatusPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll schedules one reconciliation attempt.
func (p *StatusPoller) Poll(ctx context.Context) {
	p.sched.Post(func() { p.poll(ctx) })
}

// Offer schedules flags pushed by the backend for reconciliation.
func (p *StatusPoller) Offer(flags domain.Flags) {
	p.sched.Post(func() { p.offer(flags, "push") })
}

func (p *StatusPoller) poll(ctx context.Context) {
	if p.isSuppressed() {
		log.Debug("Poll skipped while suppressed")
		return
	}
	if p.inFlight {
		log.Debug("Poll skipped, previous reconciliation still in flight")
		return
	}
	p.inFlight = true

	p.spawn(func() {
		callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
		flags, err := p.reconciler.ReconcileFlags(callCtx)
		cancel()

		p.sched.Post(func() {
			p.inFlight = false
			if err != nil {
				entry := log.WithError(err)
				if errors.Is(err, bridge.ErrNotConnected) {
					entry.Debug("Reconciliation skipped, backend not connected")
				} else {
					entry.Warn("Reconciliation failed")
				}
				return
			}
			p.offer(flags, "poll")
		})
	})
}

// offer applies flags unless the window is suppressing. It reports whether
// the toggle group was written.
func (p *StatusPoller) offer(flags domain.Flags, source string) bool {
	if p.isSuppressed() {
		log.WithField("source", source).Debug("Discarding reconciliation during suppression window")
		return false
	}
	state, ok := flags.Reconcile()
	if !ok {
		return false
	}
	p.apply(state)
	return true
}

// suppress opens or extends the window. Loop only.
func (p *StatusPoller) suppress() {
	expiresAt := p.window.open(p.clock.Now())
	p.setSuppressed(true)
	log.WithField("until", expiresAt.Format(time.RFC3339Nano)).Debug("Reconciliation suppressed")

	p.rearm(func() {
		p.sched.Post(p.checkRearm)
	})
}

func (p *StatusPoller) checkRearm() {
	p.isSuppressed()
}

func (p *StatusPoller) isSuppressed() bool {
	active := p.window.activeAt(p.clock.Now())
	p.setSuppressed(active)
	return active
}

func (p *StatusPoller) expiresAt() time.Time {
	return p.window.expiresAt
}

func (p *StatusPoller) setSuppressed(suppressed bool) {
	if p.suppressed == suppressed {
		return
	}
	p.suppressed = suppressed
	if suppressed {
		log.Debug("Poller suppressed")
	} else {
		log.Debug("Poller armed")
	}
	p.onStateChange(suppressed)
}
