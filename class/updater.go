package class

import (
	"fmt"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/containerd/log"
	"github.com/delaneyj/fiberparty/expiration"
	"github.com/delaneyj/fiberparty/fiber"
	"github.com/delaneyj/fiberparty/update"
	"github.com/sirupsen/logrus"
)

// Scheduler decides when queued work runs. The core only asks it for times
// and tells it which node has new work.
type Scheduler interface {
	RequestCurrentTime() expiration.Time
	ComputeExpirationTimeForFiber(currentTime expiration.Time, f *fiber.Fiber) expiration.Time
	ScheduleWork(f *fiber.Fiber, t expiration.Time)
}

// DetachedInstanceError is returned when an instance asks for a state change
// but is not attached to a node.
type DetachedInstanceError struct {
	Op       string
	Instance any
}

func (e *DetachedInstanceError) Error() string {
	return fmt.Sprintf("%s: instance %T has no owning node", e.Op, e.Instance)
}

func (e *DetachedInstanceError) Unwrap() error {
	return cerrdefs.ErrFailedPrecondition
}

// Updater is the only write path from component code into pending state.
type Updater struct {
	arena     *fiber.Arena
	scheduler Scheduler
	logger    *log.Entry
}

func NewUpdater(arena *fiber.Arena, scheduler Scheduler, logger *log.Entry) *Updater {
	if logger == nil {
		logger = log.L
	}
	return &Updater{
		arena:     arena,
		scheduler: scheduler,
		logger:    logger,
	}
}

func (u *Updater) owner(op string, inst Instance) (*fiber.Fiber, error) {
	if inst == nil {
		return nil, &DetachedInstanceError{Op: op}
	}
	f := inst.internals().fiber
	if f == nil {
		return nil, &DetachedInstanceError{Op: op, Instance: inst}
	}
	return f, nil
}

// IsMounted reports whether inst belongs to a committed tree.
func (u *Updater) IsMounted(inst Instance) bool {
	if inst == nil {
		return false
	}
	f := inst.internals().fiber
	return f != nil && u.arena.IsMounted(f)
}

func (u *Updater) EnqueueSetState(inst Instance, payload update.Payload, callback func()) error {
	return u.enqueue("SetState", inst, update.SetState, payload, callback)
}

func (u *Updater) EnqueueReplaceState(inst Instance, payload update.Payload, callback func()) error {
	return u.enqueue("ReplaceState", inst, update.ReplaceState, payload, callback)
}

func (u *Updater) EnqueueForceUpdate(inst Instance, callback func()) error {
	return u.enqueue("ForceUpdate", inst, update.ForceUpdate, nil, callback)
}

func (u *Updater) enqueue(op string, inst Instance, kind update.Kind, payload update.Payload, callback func()) error {
	f, err := u.owner(op, inst)
	if err != nil {
		return err
	}

	currentTime := u.scheduler.RequestCurrentTime()
	t := u.scheduler.ComputeExpirationTimeForFiber(currentTime, f)
	upd := update.New(t, kind, payload, callback)
	enqueueUpdate(u.arena, f, upd)

	if u.logger.Logger.IsLevelEnabled(logrus.DebugLevel) {
		u.logger.WithFields(log.Fields{
			"node":       f.ID,
			"kind":       kind,
			"expiration": t,
		}).Debug("update enqueued")
	}

	u.scheduler.ScheduleWork(f, t)
	return nil
}

// enqueueUpdate appends upd to the queue of f and, when f has an alternate
// with a distinct queue, to that queue too, so neither tree loses it.
func enqueueUpdate(arena *fiber.Arena, f *fiber.Fiber, upd *update.Update) {
	alt := arena.Get(f.Alternate)
	if alt == nil {
		if f.UpdateQueue == nil {
			f.UpdateQueue = update.NewQueue(f.MemoizedState)
		}
		f.UpdateQueue.Enqueue(upd)
		return
	}

	q1, q2 := f.UpdateQueue, alt.UpdateQueue
	switch {
	case q1 == nil && q2 == nil:
		q1 = update.NewQueue(f.MemoizedState)
		q2 = update.NewQueue(alt.MemoizedState)
	case q1 == nil:
		q1 = q2.Clone()
	case q2 == nil:
		q2 = q1.Clone()
	}
	f.UpdateQueue, alt.UpdateQueue = q1, q2

	q1.Enqueue(upd)
	if q2 != q1 {
		q2.Enqueue(upd)
	}
}
