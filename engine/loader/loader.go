// Package loader implements the asynchronous asset pipeline: registrations
// become descriptors in an ordered queue, a bounded number of them is
// delegated to a transport adapter at a time, and settled payloads are
// post-processed and committed to the cache. Visible completion order is
// strictly FIFO by registration order even though fetches finish out of
// order.
package loader

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spaghettifunk/ember/engine/cache"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/math"
	"github.com/spaghettifunk/ember/engine/transport"
)

// Stage is the run-level state machine.
type Stage uint8

const (
	StageIdle Stage = iota
	StageRunning
	StageFinished
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageRunning:
		return "running"
	case StageFinished:
		return "finished"
	}
	return "unknown"
}

// Loader owns the queue, the in-flight set and the processing head
// exclusively. All pipeline logic runs under one mutex and to completion;
// the only suspension point is waiting for the transport adapter.
type Loader struct {
	mu      sync.Mutex
	cfg     Config
	adapter transport.Adapter
	store   *cache.Cache

	queue    []*Descriptor
	inflight map[*Descriptor]struct{}
	head     int

	stage      Stage
	generation uint64
	session    uuid.UUID
	ctx        context.Context
	cancel     context.CancelFunc

	totalFiles  int
	loadedFiles int
	failedFiles int
	totalPacks  int
	loadedPacks int

	// barriers maps an expanded pack to its count of unsettled children.
	// While any barrier is open, descriptors that are not manifest-derived
	// are held back from promotion.
	barriers map[*Descriptor]int

	syncScope  bool
	stallArmed bool
	ticking    bool

	clock      *core.Clock
	fetchStats *core.MovingAverage

	// Events and fetch dispatches are queued under the mutex and drained
	// once it is released, so handlers and adapters may re-enter the loader
	// freely (including settling synchronously).
	pendingEvents  []func()
	pendingFetches []func()

	OnLoadStart    Signal[LoadEvent]
	OnLoadComplete Signal[LoadEvent]
	OnFileStart    Signal[FileEvent]
	OnFileComplete Signal[FileEvent]
	OnFileError    Signal[ErrorEvent]
	OnPackComplete Signal[PackEvent]
}

// New creates a Loader writing finished resources into store and fetching
// through adapter.
func New(cfg Config, adapter transport.Adapter, store *cache.Cache) *Loader {
	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{
		cfg:        cfg.normalized(),
		adapter:    adapter,
		store:      store,
		inflight:   make(map[*Descriptor]struct{}),
		barriers:   make(map[*Descriptor]int),
		session:    uuid.New(),
		ctx:        ctx,
		cancel:     cancel,
		clock:      core.NewClock(),
		fetchStats: core.NewMovingAverage(),
	}
}

// run executes fn under the loader mutex, then drains queued events and
// fetch dispatches outside it.
func (l *Loader) run(fn func()) {
	l.mu.Lock()
	fn()
	events := l.pendingEvents
	fetches := l.pendingFetches
	l.pendingEvents = nil
	l.pendingFetches = nil
	l.mu.Unlock()

	for _, emit := range events {
		emit()
	}
	for _, dispatch := range fetches {
		dispatch()
	}
}

// Start begins processing the queue. It is a no-op while a run is already in
// progress; calling it again after a run finished starts a fresh run over
// whatever is still queued (normally nothing unless more registrations
// happened in between).
func (l *Loader) Start() *Loader {
	l.run(func() {
		if l.stage == StageRunning {
			return
		}
		l.stage = StageRunning
		l.stallArmed = false
		l.clock.Start()
		core.LogInfo("loader: session %s starting: %d files, %d packs queued",
			l.session, l.totalFiles, l.totalPacks)
		ev := l.loadEventLocked()
		l.pendingEvents = append(l.pendingEvents, func() { l.OnLoadStart.emit(ev) })
		l.tickLocked()
	})
	return l
}

// Update drives one scheduler pass. Settlements already re-enter the
// scheduler on their own; an external driver (e.g. a frame loop) may call
// this as well.
func (l *Loader) Update() {
	l.run(func() { l.tickLocked() })
}

// Reset clears the queue, the in-flight set and all counters, and bumps the
// generation token so settlements of orphaned fetches are discarded. When
// hard is true the cache is cleared too; clearListeners drops all connected
// event handlers.
func (l *Loader) Reset(hard, clearListeners bool) {
	l.run(func() {
		l.generation++
		l.cancel()
		l.ctx, l.cancel = context.WithCancel(context.Background())

		l.queue = nil
		l.inflight = make(map[*Descriptor]struct{})
		l.barriers = make(map[*Descriptor]int)
		l.head = 0
		l.stage = StageIdle
		l.totalFiles, l.loadedFiles, l.failedFiles = 0, 0, 0
		l.totalPacks, l.loadedPacks = 0, 0
		l.syncScope = false
		l.stallArmed = false
		l.session = uuid.New()
		l.fetchStats.Reset()

		if hard {
			l.store.Clear()
		}
		if clearListeners {
			l.OnLoadStart.clear()
			l.OnLoadComplete.clear()
			l.OnFileStart.clear()
			l.OnFileComplete.clear()
			l.OnFileError.clear()
			l.OnPackComplete.clear()
		}
	})
}

// WithSyncPoint marks every descriptor registered inside fn as a sync point.
func (l *Loader) WithSyncPoint(fn func(*Loader)) (out *Loader) {
	out = l
	l.mu.Lock()
	l.syncScope = true
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.syncScope = false
		l.mu.Unlock()
		if r := recover(); r != nil {
			core.LogError("loader: sync point callback panicked: %v", r)
		}
	}()
	fn(l)
	return l
}

// RemoveFile drops a queued descriptor that has not started loading. It
// reports whether anything was removed.
func (l *Loader) RemoveFile(kind Kind, key string) bool {
	removed := false
	l.run(func() {
		for i := l.head; i < len(l.queue); i++ {
			d := l.queue[i]
			if d.Kind != kind || d.Key != key || d.state != StateQueued || d.secondaryOf != nil {
				continue
			}
			l.queue = append(l.queue[:i], l.queue[i+1:]...)
			if kind == KindPack {
				l.totalPacks--
			} else {
				l.totalFiles--
			}
			if d.packOwner != nil {
				l.closeBarrierChildLocked(d.packOwner)
			}
			removed = true
			return
		}
	})
	return removed
}

// Progress is the completion percentage rounded to an integer in [0, 100].
func (l *Loader) Progress() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return math.RoundPercent(l.progressFloatLocked())
}

// ProgressFloat is the unrounded completion percentage in [0, 100].
func (l *Loader) ProgressFloat() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.progressFloatLocked()
}

// TotalLoadedFiles counts settled non-pack descriptors, failures included.
func (l *Loader) TotalLoadedFiles() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadedFiles
}

// TotalQueuedFiles counts non-pack descriptors still queued or in flight.
func (l *Loader) TotalQueuedFiles() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for i := l.head; i < len(l.queue); i++ {
		d := l.queue[i]
		if d.Kind != KindPack && d.secondaryOf == nil && !d.settled() {
			n++
		}
	}
	return n
}

// IsQueued reports whether a registration with the given kind and key is
// waiting or in flight.
func (l *Loader) IsQueued(kind Kind, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := l.head; i < len(l.queue); i++ {
		d := l.queue[i]
		if d.Kind == kind && d.Key == key && d.secondaryOf == nil && !d.settled() {
			return true
		}
	}
	return false
}

// IsLoading reports whether the given registration is currently in flight.
func (l *Loader) IsLoading(kind Kind, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for d := range l.inflight {
		if d.Kind == kind && d.Key == key && d.secondaryOf == nil {
			return true
		}
	}
	return false
}

// Stage reports the run-level state.
func (l *Loader) Stage() Stage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stage
}

// Session identifies the current run in logs and load events.
func (l *Loader) Session() uuid.UUID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session
}

// Cache exposes the commit sink for consumers that resolve loaded resources.
func (l *Loader) Cache() *cache.Cache { return l.store }

func (l *Loader) progressFloatLocked() float64 {
	if l.stage == StageFinished {
		return 100
	}
	return math.Percent(l.loadedFiles, l.totalFiles)
}

func (l *Loader) loadEventLocked() LoadEvent {
	return LoadEvent{
		Session:     l.session,
		LoadedFiles: l.loadedFiles,
		TotalFiles:  l.totalFiles,
		FailedFiles: l.failedFiles,
	}
}

// tickLocked performs one scheduler pass: expand, publish and advance at the
// head, promote eligible descriptors, then check completion and stalls.
// Publication happens only when the head reaches a settled descriptor, so
// visible completion order is FIFO by queue position no matter when fetches
// actually finish.
func (l *Loader) tickLocked() {
	if l.stage != StageRunning || l.ticking {
		// Registrations made by pack expansion re-enter through wakeLocked
		// while a pass is already scanning; the active pass picks them up.
		return
	}
	l.ticking = true
	defer func() { l.ticking = false }()

	syncBlocked := false
	packBlocked := l.openBarriersLocked()
	for i := l.head; i < len(l.queue); i++ {
		d := l.queue[i]

		if i == l.head {
			if d.Kind == KindPack && d.state == StateResolved && !d.expanded {
				l.expandPackLocked(d)
				packBlocked = packBlocked || l.openBarriersLocked()
			}
			if d.settled() {
				l.noteSettledLocked(d)
				l.head++
				continue
			}
		}

		if d.state == StateQueued && d.inlineOnly() {
			// Nothing to fetch: commit straight from the registration data.
			// Publication still waits for the head to arrive.
			l.settleInlineLocked(d)
			if i == l.head {
				l.noteSettledLocked(d)
				l.head++
			}
			continue
		}

		if d.state == StateQueued && len(l.inflight) < l.cfg.MaxParallel {
			if l.promotableLocked(d, syncBlocked, packBlocked) {
				l.promoteLocked(d)
			}
		}

		// A pack defers everything registered after it until its children
		// are done. Before expansion the children do not exist yet, so the
		// pack itself blocks; a failed pack stops blocking.
		if d.Kind == KindPack && !d.expanded && d.state != StateFailed {
			packBlocked = true
		}
		if d.SyncPoint && !d.settled() && d.Kind != KindPack {
			syncBlocked = true
		}
		if len(l.inflight) >= l.cfg.MaxParallel {
			break
		}
	}

	if l.head >= len(l.queue) {
		l.finishLocked(false)
		return
	}
	if len(l.inflight) == 0 && !l.stallArmed {
		l.armStallLocked()
	}
}

// promotableLocked decides whether d may enter flight this pass. Packs are
// exempt from every barrier so manifests can prefetch in parallel;
// manifest-derived descriptors (and their companion fetches) are exempt from
// pack barriers but not from plain sync points.
func (l *Loader) promotableLocked(d *Descriptor, syncBlocked, packBlocked bool) bool {
	if d.Kind == KindPack {
		return true
	}
	if syncBlocked {
		return false
	}
	if d.packOwner == nil && packBlocked {
		return false
	}
	return true
}

func (l *Loader) openBarriersLocked() bool {
	for _, open := range l.barriers {
		if open > 0 {
			return true
		}
	}
	return false
}

// noteSettledLocked publishes one descriptor's terminal settlement: counters,
// barrier bookkeeping and completion events. Idempotent through d.counted.
func (l *Loader) noteSettledLocked(d *Descriptor) {
	if d.counted {
		return
	}
	d.counted = true
	success := d.state == StateResolved

	switch {
	case d.Kind == KindPack:
		ev := PackEvent{Key: d.Key, Success: success, LoadedPacks: l.loadedPacks + 1, TotalPacks: l.totalPacks}
		l.loadedPacks++
		l.pendingEvents = append(l.pendingEvents, func() { l.OnPackComplete.emit(ev) })
	case d.secondaryOf != nil:
		// Companion fetches are scheduler bookkeeping, invisible to
		// counters and file events.
	default:
		l.loadedFiles++
		if !success {
			l.failedFiles++
		}
		ev := FileEvent{
			Progress:    math.RoundPercent(l.progressFloatLocked()),
			Key:         d.Key,
			URL:         d.URL,
			Success:     success,
			LoadedFiles: l.loadedFiles,
			TotalFiles:  l.totalFiles,
		}
		l.pendingEvents = append(l.pendingEvents, func() { l.OnFileComplete.emit(ev) })
	}
}

func (l *Loader) closeBarrierChildLocked(pack *Descriptor) {
	open, ok := l.barriers[pack]
	if !ok {
		return
	}
	open--
	if open <= 0 {
		delete(l.barriers, pack)
		core.LogDebug("loader: pack %q barrier released", pack.Key)
		return
	}
	l.barriers[pack] = open
}

func (l *Loader) promoteLocked(d *Descriptor) {
	d.state = StateInFlight
	d.startedAt = time.Now()
	l.inflight[d] = struct{}{}
	l.stallArmed = false

	if d.Kind != KindPack && d.secondaryOf == nil {
		ev := FileEvent{
			Progress:   math.RoundPercent(l.progressFloatLocked()),
			Key:        d.Key,
			URL:        d.URL,
			TotalFiles: l.totalFiles,
		}
		l.pendingEvents = append(l.pendingEvents, func() { l.OnFileStart.emit(ev) })
	}
	core.LogDebug("loader: fetching %s %q from %s", d.Kind, d.Key, d.URL)

	gen := l.generation
	ctx := l.ctx
	req := transport.Request{Key: d.Key, URL: d.URL}
	l.pendingFetches = append(l.pendingFetches, func() {
		l.adapter.Fetch(ctx, req, func(res transport.Result) {
			l.settle(gen, d, res)
		})
	})
}

// settle is the transport callback target. Settlements from a generation
// older than the current one belong to a reset run and are dropped.
func (l *Loader) settle(gen uint64, d *Descriptor, res transport.Result) {
	l.run(func() {
		if gen != l.generation {
			core.LogDebug("loader: discarding stale settlement for %q", d.Key)
			return
		}
		if !d.startedAt.IsZero() {
			l.fetchStats.Add(float64(time.Since(d.startedAt).Microseconds()) / 1000.0)
		}
		l.applySettlementLocked(d, res)
		// Free the flight slot right away; publication waits for the head.
		delete(l.inflight, d)
		l.tickLocked()
	})
}

// finishLocked ends the run exactly once; later ticks while finished are
// no-ops.
func (l *Loader) finishLocked(abnormal bool) {
	if l.stage != StageRunning {
		return
	}
	l.stage = StageFinished
	l.clock.Stop()

	if abnormal {
		core.LogError("loader: session %s force-finished: %v", l.session, ErrStallDetected)
	}
	core.LogInfo("loader: session %s complete: %d/%d files (%d failed), %d/%d packs in %s (avg fetch %.1fms)",
		l.session, l.loadedFiles, l.totalFiles, l.failedFiles,
		l.loadedPacks, l.totalPacks, l.clock.Elapsed(), l.fetchStats.Average())

	ev := l.loadEventLocked()
	l.pendingEvents = append(l.pendingEvents, func() { l.OnLoadComplete.emit(ev) })
}

// armStallLocked handles the should-be-unreachable state where the in-flight
// set emptied while unsettled work remains: log loudly, then force-finish
// after a grace delay unless the run recovered in the meantime.
func (l *Loader) armStallLocked() {
	l.stallArmed = true
	core.LogError("loader: session %s stalled: head=%d queue=%d inflight=0 (%v)",
		l.session, l.head, len(l.queue), ErrStallDetected)

	gen := l.generation
	time.AfterFunc(l.cfg.StallGrace(), func() {
		l.run(func() {
			if gen != l.generation || l.stage != StageRunning {
				return
			}
			if len(l.inflight) != 0 {
				l.stallArmed = false
				return
			}
			l.finishLocked(true)
		})
	})
}
