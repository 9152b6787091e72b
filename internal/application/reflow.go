package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/forumfilter/internal/page"
)

// DefaultReflowDelay is the quiet period after the last mutation before a
// pass is re-run.
const DefaultReflowDelay = 150 * time.Millisecond

// ErrAlreadyStarted is returned by Start on a running watcher.
var ErrAlreadyStarted = errors.New("reflow watcher already started")

// Debouncer coalesces bursts of triggers into one call. It is IDLE until the
// first Trigger and PENDING until the timer fires or Cancel is called; every
// Trigger while PENDING restarts the timer.
type Debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	duration time.Duration
}

// NewDebouncer returns a Debouncer with the given quiet period. A
// non-positive duration selects DefaultReflowDelay.
func NewDebouncer(d time.Duration) *Debouncer {
	if d <= 0 {
		d = DefaultReflowDelay
	}
	return &Debouncer{duration: d}
}

// Trigger schedules fn after the quiet period, replacing any pending call.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(d.duration, func() {
		d.mu.Lock()
		current := d.timer == t
		if current {
			d.timer = nil
		}
		d.mu.Unlock()

		if current {
			fn()
		}
	})
	d.timer = t
}

// Cancel drops the pending call, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Duration returns the quiet period.
func (d *Debouncer) Duration() time.Duration {
	return d.duration
}

// ReflowOption configures a ReflowWatcher.
type ReflowOption func(*ReflowWatcher)

// WithReflowDelay sets the debounce quiet period.
func WithReflowDelay(d time.Duration) ReflowOption {
	return func(w *ReflowWatcher) {
		w.delay = d
	}
}

// WithReflowLogger sets the logger used for failed passes.
func WithReflowLogger(l *slog.Logger) ReflowOption {
	return func(w *ReflowWatcher) {
		w.logger = l
	}
}

// WithOnReflowError sets a callback for failed passes.
func WithOnReflowError(fn func(error)) ReflowOption {
	return func(w *ReflowWatcher) {
		w.onError = fn
	}
}

// ReflowWatcher re-runs a pass over a document after it changes
// structurally. Mutations arriving in a burst produce a single run, and runs
// never overlap.
type ReflowWatcher struct {
	doc     *page.Document
	pass    func(ctx context.Context) error
	delay   time.Duration
	logger  *slog.Logger
	onError func(error)

	debouncer *Debouncer
	runMu     sync.Mutex

	mu        sync.Mutex
	started   bool
	ctx       context.Context
	cancel    context.CancelFunc
	unobserve func()
}

// NewReflowWatcher creates a stopped watcher that runs pass on doc.
func NewReflowWatcher(doc *page.Document, pass func(ctx context.Context) error, opts ...ReflowOption) *ReflowWatcher {
	w := &ReflowWatcher{
		doc:     doc,
		pass:    pass,
		delay:   DefaultReflowDelay,
		logger:  slog.Default(),
		onError: func(error) {},
	}
	for _, opt := range opts {
		opt(w)
	}
	w.debouncer = NewDebouncer(w.delay)
	return w
}

// Start subscribes to document mutations. Runs use a context derived from
// ctx; cancelling ctx has the same effect on runs as Stop.
func (w *ReflowWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.unobserve = w.doc.Observe(func() {
		w.debouncer.Trigger(w.reflow)
	})
	w.started = true
	return nil
}

// Stop unsubscribes and drops any pending run. A run already in progress
// completes.
func (w *ReflowWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}
	w.unobserve()
	w.debouncer.Cancel()
	w.cancel()
	w.started = false
}

// Pending reports whether a run is scheduled.
func (w *ReflowWatcher) Pending() bool {
	return w.debouncer.Pending()
}

// Started reports whether the watcher is subscribed.
func (w *ReflowWatcher) Started() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.started
}

func (w *ReflowWatcher) reflow() {
	w.mu.Lock()
	started, ctx := w.started, w.ctx
	w.mu.Unlock()

	if !started || ctx.Err() != nil {
		return
	}

	w.runMu.Lock()
	defer w.runMu.Unlock()

	if err := w.pass(ctx); err != nil {
		w.logger.Error("reflow pass failed", "url", w.doc.URL(), "error", err)
		w.onError(err)
	}
}
