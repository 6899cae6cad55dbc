package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"novashell/internal/domain"
)

type fakeScheduler struct {
	mu    sync.Mutex
	queue []func()
}

func (s *fakeScheduler) Post(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, fn)
	return true
}

// drain runs queued work, including work queued while draining.
func (s *fakeScheduler) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		fn := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		fn()
	}
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeDebouncer struct {
	pending func()
	resets  int
}

func (d *fakeDebouncer) debounce(time.Duration) func(func()) {
	return func(fn func()) {
		d.pending = fn
		d.resets++
	}
}

func (d *fakeDebouncer) fire() {
	if d.pending == nil {
		return
	}
	fn := d.pending
	d.pending = nil
	fn()
}

type fakeSpawner struct {
	deferred bool
	pending  []func()
}

func (s *fakeSpawner) spawn(fn func()) {
	if !s.deferred {
		fn()
		return
	}
	s.pending = append(s.pending, fn)
}

func (s *fakeSpawner) runAll() {
	pending := s.pending
	s.pending = nil
	for _, fn := range pending {
		fn()
	}
}

type fakeView struct {
	idleVisible      bool
	listeningVisible bool
	regions          []domain.Region
	reveals          []string
	toggles          []domain.ToggleState
	panels           map[domain.Panel]bool
	pollerStates     []bool
	connection       []bool
	errors           []domain.ErrorCode
}

func newFakeView() *fakeView {
	return &fakeView{panels: make(map[domain.Panel]bool)}
}

func (v *fakeView) ShowRegion(region domain.Region) {
	v.regions = append(v.regions, region)
	v.idleVisible = region == domain.RegionIdleIndicator
	v.listeningVisible = region == domain.RegionListeningWaveform
}

func (v *fakeView) RevealMessage(text string) { v.reveals = append(v.reveals, text) }

func (v *fakeView) SelectToggle(state domain.ToggleState) { v.toggles = append(v.toggles, state) }

func (v *fakeView) SetPanel(panel domain.Panel, open bool) { v.panels[panel] = open }

func (v *fakeView) PollerStateChanged(suppressed bool) {
	v.pollerStates = append(v.pollerStates, suppressed)
}

func (v *fakeView) ConnectionChanged(connected bool) { v.connection = append(v.connection, connected) }

func (v *fakeView) ReportError(code domain.ErrorCode, _ string) { v.errors = append(v.errors, code) }

type fakeBackend struct {
	mu        sync.Mutex
	calls     map[string]int
	locations []domain.Location
	kinds     []string
	flags     domain.Flags
	errs      map[string]error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{calls: make(map[string]int), errs: make(map[string]error)}
}

func (b *fakeBackend) record(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[name]++
	return b.errs[name]
}

func (b *fakeBackend) count(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[name]
}

func (b *fakeBackend) total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

func (b *fakeBackend) setFlags(flags domain.Flags) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flags = flags
}

func (b *fakeBackend) StartListening(context.Context) error { return b.record(siteStartListening) }

func (b *fakeBackend) OpenLocationTool(_ context.Context, kind string) error {
	b.mu.Lock()
	b.kinds = append(b.kinds, kind)
	b.mu.Unlock()
	return b.record(siteOpenLocationTool)
}

func (b *fakeBackend) SetMonitorFlag(context.Context) error { return b.record(siteSetMonitorFlag) }

func (b *fakeBackend) ClearMonitorFlag(context.Context) error { return b.record(siteClearMonitorFlag) }

func (b *fakeBackend) ReceiveLocation(_ context.Context, loc domain.Location) error {
	b.mu.Lock()
	b.locations = append(b.locations, loc)
	b.mu.Unlock()
	return b.record(siteReceiveLocation)
}

func (b *fakeBackend) PlayClickSound(context.Context) error { return b.record(sitePlayClickSound) }

func (b *fakeBackend) ReconcileFlags(context.Context) (domain.Flags, error) {
	err := b.record("ReconcileFlags")
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flags, err
}

type harness struct {
	c       *UIController
	sched   *fakeScheduler
	clock   *fakeClock
	deb     *fakeDebouncer
	spawner *fakeSpawner
	view    *fakeView
	backend *fakeBackend
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()

	h := &harness{
		sched:   &fakeScheduler{},
		clock:   &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)},
		deb:     &fakeDebouncer{},
		spawner: &fakeSpawner{},
		view:    newFakeView(),
		backend: newFakeBackend(),
	}
	if cfg.Poller.SuppressionDelay == 0 {
		cfg.Poller.SuppressionDelay = 2 * time.Second
	}
	h.c = newUIController(h.sched, h.backend, h.view, cfg, pollerDeps{
		clock:    h.clock,
		debounce: h.deb.debounce,
		spawn:    h.spawner.spawn,
	})
	return h
}

func (h *harness) gesture(t *testing.T, kind domain.GestureKind) {
	t.Helper()
	if err := h.c.OnUserGesture(kind); err != nil {
		t.Fatalf("gesture %s failed: %v", kind, err)
	}
	h.sched.drain()
}

func (h *harness) poll() {
	h.c.poller.Poll(context.Background())
	h.sched.drain()
}

func (h *harness) push(flags domain.Flags) {
	h.c.ReconcileFlags(flags)
	h.sched.drain()
}

func flagsPtr(v bool) *bool { return &v }
