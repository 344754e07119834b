// Package scheduler is a single-threaded reference implementation of the
// scheduling collaborator: it hands out expiration times, propagates pending
// work up to the root, and flushes roots with pending work once the
// outermost batch ends.
package scheduler

import (
	"cmp"
	"slices"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/containerd/log"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/delaneyj/fiberparty/class"
	"github.com/delaneyj/fiberparty/expiration"
	"github.com/delaneyj/fiberparty/fiber"
	"github.com/sirupsen/logrus"
)

var _ class.Scheduler = (*Scheduler)(nil)

// FlushFunc performs the work pending on root at priority t.
type FlushFunc func(root *fiber.Root, t expiration.Time)

type Option func(*Scheduler)

func WithLogger(l *log.Entry) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

func WithFlush(fn FlushFunc) Option {
	return func(s *Scheduler) {
		s.flush = fn
	}
}

type Scheduler struct {
	arena  *fiber.Arena
	clock  clock.Clock
	start  time.Time
	logger *log.Entry
	flush  FlushFunc

	batchDepth        int
	rendering         bool
	flushing          bool
	renderTime        expiration.Time
	expirationContext expiration.Time
	interactive       bool
	currentTime       expiration.Time
	pending           mapset.Set[*fiber.Root]
}

func New(arena *fiber.Arena, clk clock.Clock, opts ...Option) *Scheduler {
	if clk == nil {
		clk = clock.NewClock()
	}
	s := &Scheduler{
		arena:   arena,
		clock:   clk,
		start:   clk.Now(),
		logger:  log.L,
		pending: mapset.NewThreadUnsafeSet[*fiber.Root](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestCurrentTime converts the time elapsed since the scheduler was
// created into an expiration time. Inside a batch every call returns the
// time read at the first call, so updates of one batch share a bucket.
func (s *Scheduler) RequestCurrentTime() expiration.Time {
	if s.batchDepth > 0 && s.currentTime != expiration.NoWork {
		return s.currentTime
	}
	s.currentTime = expiration.FromMillis(s.clock.Since(s.start).Milliseconds())
	return s.currentTime
}

// ComputeExpirationTimeForFiber picks the priority of an update to f.
// Updates made while a root renders share the render's time. Nodes outside
// concurrent mode always update synchronously.
func (s *Scheduler) ComputeExpirationTimeForFiber(currentTime expiration.Time, f *fiber.Fiber) expiration.Time {
	switch {
	case s.expirationContext != expiration.NoWork:
		return s.expirationContext
	case s.rendering:
		return s.renderTime
	case f.Mode&fiber.ConcurrentMode == 0:
		return expiration.Sync
	case s.interactive:
		return expiration.ComputeInteractive(currentTime)
	}
	return expiration.ComputeAsync(currentTime)
}

// ScheduleWork raises the expiration time of f and the child expiration time
// of every ancestor to t, on both trees, and marks the root pending.
func (s *Scheduler) ScheduleWork(f *fiber.Fiber, t expiration.Time) {
	root := s.markToRoot(f, t)
	if root == nil {
		s.logger.WithField("node", f.ID).Debug("work scheduled on a detached node")
		return
	}

	root.PendingTime = max(root.PendingTime, t)
	s.pending.Add(root)
	if s.logger.Logger.IsLevelEnabled(logrus.DebugLevel) {
		s.logger.WithFields(log.Fields{
			"node":       f.ID,
			"expiration": t,
			"batched":    s.batchDepth > 0,
		}).Debug("work scheduled")
	}

	if s.batchDepth == 0 && !s.rendering {
		s.flushPending()
	}
}

// Render runs fn as the render phase of root at priority t. Work scheduled
// inside fn is recorded but never flushed until fn returns, and root stays
// pending only if its committed tree still has work left.
func (s *Scheduler) Render(root *fiber.Root, t expiration.Time, fn func() error) error {
	prevRendering, prevTime := s.rendering, s.renderTime
	s.rendering, s.renderTime = true, t
	err := fn()
	s.rendering, s.renderTime = prevRendering, prevTime

	if top := s.arena.Get(root.Current); top != nil {
		root.PendingTime = max(top.ExpirationTime, top.ChildExpirationTime)
	}
	if root.PendingTime == expiration.NoWork {
		s.pending.Remove(root)
	}
	if err == nil && s.batchDepth == 0 && !s.rendering {
		s.flushPending()
	}
	return err
}

func (s *Scheduler) markToRoot(f *fiber.Fiber, t expiration.Time) *fiber.Root {
	raise(&f.ExpirationTime, t)
	if alt := s.arena.Get(f.Alternate); alt != nil {
		raise(&alt.ExpirationTime, t)
	}

	node := f
	for node.Return != fiber.None {
		node = s.arena.Get(node.Return)
		raise(&node.ChildExpirationTime, t)
		if alt := s.arena.Get(node.Alternate); alt != nil {
			raise(&alt.ChildExpirationTime, t)
		}
	}
	if node.Tag != fiber.HostRoot {
		return nil
	}
	root, _ := node.StateNode.(*fiber.Root)
	return root
}

func raise(field *expiration.Time, t expiration.Time) {
	if *field < t {
		*field = t
	}
}

// Pending lists the roots waiting for a flush, most urgent first.
func (s *Scheduler) Pending() []*fiber.Root {
	roots := s.pending.ToSlice()
	slices.SortStableFunc(roots, func(a, b *fiber.Root) int {
		return cmp.Compare(b.PendingTime, a.PendingTime)
	})
	return roots
}

// flushPending is not reentrant. Work scheduled by a flush waits for the
// next one.
func (s *Scheduler) flushPending() {
	if s.flushing {
		return
	}
	roots := s.Pending()
	s.pending.Clear()
	if s.flush == nil {
		return
	}
	s.flushing = true
	defer func() { s.flushing = false }()
	for _, root := range roots {
		s.flush(root, root.PendingTime)
	}
}

func (s *Scheduler) StartBatch() {
	if s.batchDepth == 0 {
		s.currentTime = expiration.NoWork
	}
	s.batchDepth++
}

func (s *Scheduler) EndBatch() {
	s.batchDepth--
	if s.batchDepth == 0 {
		s.currentTime = expiration.NoWork
		s.flushPending()
	}
}

// Batch runs fn with flushing deferred until the outermost batch ends.
func (s *Scheduler) Batch(fn func()) {
	s.StartBatch()
	defer s.EndBatch()
	fn()
}

// SyncUpdates runs fn with every update forced to Sync.
func (s *Scheduler) SyncUpdates(fn func()) {
	prev := s.expirationContext
	s.expirationContext = expiration.Sync
	defer func() { s.expirationContext = prev }()
	fn()
}

// InteractiveUpdates runs fn as a batch whose concurrent updates use the
// interactive bucket.
func (s *Scheduler) InteractiveUpdates(fn func()) {
	prev := s.interactive
	s.interactive = true
	defer func() { s.interactive = prev }()
	s.Batch(fn)
}
