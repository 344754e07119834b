package update

import (
	"github.com/delaneyj/fiberparty/element"
	"github.com/delaneyj/fiberparty/expiration"
)

// Queue is a node's pending updates on top of a base state. Folding the
// pending updates onto BaseState in enqueue order reproduces the node's state.
type Queue struct {
	BaseState State

	updates   []*Update
	callbacks []*Update
}

type Result struct {
	State State
	// ExpirationTime is the most urgent priority still queued, NoWork when
	// nothing was skipped.
	ExpirationTime expiration.Time
	ForceUpdate    bool
	// Callbacks reports whether an applied update carries a callback.
	Callbacks bool
}

func NewQueue(base State) *Queue {
	return &Queue{BaseState: base}
}

func (q *Queue) Enqueue(u *Update) {
	q.updates = append(q.updates, u)
}

func (q *Queue) Len() int {
	return len(q.updates)
}

func (q *Queue) Pending() []*Update {
	out := make([]*Update, len(q.updates))
	copy(out, q.updates)
	return out
}

// Clone copies the queue so a work-in-progress pass can consume updates
// without touching the queue of the current tree. Update records are shared.
func (q *Queue) Clone() *Queue {
	c := &Queue{
		BaseState: q.BaseState,
		updates:   make([]*Update, len(q.updates)),
	}
	copy(c.updates, q.updates)
	return c
}

// Process folds every update eligible at renderTime onto BaseState.
//
// Skipped updates are never dropped: the first skipped update and everything
// after it stay queued, and BaseState is rebased to the state right before
// it, so a later fold replays them in their original order.
func (q *Queue) Process(props element.Props, renderTime expiration.Time) Result {
	res := Result{State: q.BaseState}

	newBaseState := q.BaseState
	firstSkipped := -1
	for i, u := range q.updates {
		if !u.eligible(renderTime) {
			if firstSkipped < 0 {
				firstSkipped = i
				newBaseState = res.State
			}
			if res.ExpirationTime < u.ExpirationTime {
				res.ExpirationTime = u.ExpirationTime
			}
			continue
		}

		next, forced := u.apply(res.State, props)
		res.State = next
		if forced {
			res.ForceUpdate = true
		}
		if u.Callback != nil {
			res.Callbacks = true
			q.callbacks = append(q.callbacks, u)
		}
	}

	if firstSkipped < 0 {
		q.updates = nil
		newBaseState = res.State
	} else {
		q.updates = q.updates[firstSkipped:]
	}
	q.BaseState = newBaseState

	return res
}

// TakeCallbacks hands the callbacks of applied updates to the commit phase,
// in the order their updates were applied.
func (q *Queue) TakeCallbacks() []func() {
	if len(q.callbacks) == 0 {
		return nil
	}
	out := make([]func(), len(q.callbacks))
	for i, u := range q.callbacks {
		out[i] = u.Callback
	}
	q.callbacks = nil
	return out
}
