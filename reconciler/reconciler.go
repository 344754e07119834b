// Package reconciler diffs the previous children of a node against the new
// children value and produces the work-in-progress child list.
//
// Two modes share one algorithm. Mount mode builds a brand new subtree and
// records no effects. Update mode reuses current children where key and type
// allow it, tags moved and inserted nodes with Placement and removed nodes
// with Deletion, and threads them into an EffectList for the commit phase.
package reconciler

import (
	"errors"
	"fmt"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/containerd/log"
	"github.com/delaneyj/fiberparty/expiration"
	"github.com/delaneyj/fiberparty/fiber"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownChild  = fmt.Errorf("%w: unrecognized child shape", cerrdefs.ErrInvalidArgument)
	ErrNotComparable = fmt.Errorf("%w: element type is not comparable", cerrdefs.ErrInvalidArgument)
)

// ReconciliationError reports a child value the reconciler refused, with the
// path of the value below the parent node.
type ReconciliationError struct {
	Parent fiber.ID
	Path   string
	Value  any
	Err    error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconcile node %d at %s (%T): %v", e.Parent, e.Path, e.Value, e.Err)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}

type Option func(*Reconciler)

func WithLogger(l *log.Entry) Option {
	return func(r *Reconciler) {
		r.logger = l
	}
}

type Reconciler struct {
	arena  *fiber.Arena
	logger *log.Entry
}

func New(arena *fiber.Arena, opts ...Option) *Reconciler {
	r := &Reconciler{
		arena:  arena,
		logger: log.L,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reconciler) Arena() *fiber.Arena {
	return r.arena
}

// ReconcileChildren sets wip.Child to the reconciled children of wip. A nil
// current means wip is being mounted and no effects are tracked.
func (r *Reconciler) ReconcileChildren(current, wip *fiber.Fiber, nextChildren any, renderTime expiration.Time) (*fiber.EffectList, error) {
	effects := fiber.NewEffectList()

	var (
		first fiber.ID
		err   error
	)
	if current == nil {
		first, err = r.MountChildFibers(wip, fiber.None, nextChildren, renderTime)
	} else {
		first, err = r.ReconcileChildFibers(wip, current.Child, nextChildren, renderTime, effects)
	}
	if err != nil {
		return nil, err
	}

	wip.Child = first
	return effects, nil
}

// MountChildFibers reconciles without tracking side effects.
func (r *Reconciler) MountChildFibers(returnFiber *fiber.Fiber, currentFirstChild fiber.ID, newChild any, renderTime expiration.Time) (fiber.ID, error) {
	p := r.newPass(returnFiber, renderTime, false, nil)
	return p.reconcile(currentFirstChild, newChild)
}

// ReconcileChildFibers diffs against currentFirstChild and records Deletion
// and Placement effects into effects.
func (r *Reconciler) ReconcileChildFibers(returnFiber *fiber.Fiber, currentFirstChild fiber.ID, newChild any, renderTime expiration.Time, effects *fiber.EffectList) (fiber.ID, error) {
	if effects == nil {
		return fiber.None, errors.New("reconcile: nil effect list in update mode")
	}
	p := r.newPass(returnFiber, renderTime, true, effects)
	return p.reconcile(currentFirstChild, newChild)
}

// CloneChildFibers copies the current children of wip into the
// work-in-progress tree unchanged, for nodes that bail out of rendering.
func (r *Reconciler) CloneChildFibers(current, wip *fiber.Fiber) error {
	if current != nil && wip.Child != current.Child {
		return fmt.Errorf("%w: resuming work on node %d", cerrdefs.ErrNotImplemented, wip.ID)
	}
	if wip.Child == fiber.None {
		return nil
	}

	currentChild := r.arena.Get(wip.Child)
	newChild := r.arena.CreateWorkInProgress(currentChild, currentChild.PendingProps)
	wip.Child = newChild.ID
	newChild.Return = wip.ID
	for currentChild.Sibling != fiber.None {
		currentChild = r.arena.Get(currentChild.Sibling)
		next := r.arena.CreateWorkInProgress(currentChild, currentChild.PendingProps)
		next.Return = wip.ID
		newChild.Sibling = next.ID
		newChild = next
	}
	newChild.Sibling = fiber.None
	return nil
}

func (r *Reconciler) newPass(returnFiber *fiber.Fiber, renderTime expiration.Time, track bool, effects *fiber.EffectList) *pass {
	return &pass{
		arena:       r.arena,
		logger:      r.logger,
		debug:       r.logger.Logger.IsLevelEnabled(logrus.DebugLevel),
		track:       track,
		effects:     effects,
		returnFiber: returnFiber,
		renderTime:  renderTime,
	}
}
