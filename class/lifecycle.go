package class

import (
	"fmt"
	"reflect"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/containerd/log"
	"github.com/delaneyj/fiberparty/element"
	"github.com/delaneyj/fiberparty/expiration"
	"github.com/delaneyj/fiberparty/fiber"
	"github.com/delaneyj/fiberparty/update"
	"github.com/sirupsen/logrus"
)

type Option func(*Manager)

func WithLogger(l *log.Entry) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// Manager runs the render-phase half of a class component's lifecycle.
type Manager struct {
	arena   *fiber.Arena
	updater *Updater
	logger  *log.Entry
}

func NewManager(arena *fiber.Arena, scheduler Scheduler, opts ...Option) *Manager {
	m := &Manager{
		arena:  arena,
		logger: log.L,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.updater = NewUpdater(arena, scheduler, m.logger)
	return m
}

func (m *Manager) Updater() *Updater {
	return m.updater
}

// ConstructClassInstance builds the instance for wip and attaches it. The
// instance's initial state becomes the node's memoized state.
func (m *Manager) ConstructClassInstance(wip *fiber.Fiber, typ *Type, props element.Props) (Instance, error) {
	if typ == nil || typ.New == nil {
		return nil, fmt.Errorf("%w: class type has no constructor", cerrdefs.ErrInvalidArgument)
	}
	inst, err := typ.New(props, nil)
	if err != nil {
		return nil, fmt.Errorf("construct %s: %w", typ.Name, err)
	}
	if inst == nil {
		return nil, fmt.Errorf("%w: %s constructed a nil instance", cerrdefs.ErrInvalidArgument, typ.Name)
	}

	b := inst.internals()
	if len(b.State) == 0 {
		wip.MemoizedState = nil
	} else {
		wip.MemoizedState = b.State
	}
	m.adopt(wip, inst)
	return inst, nil
}

func (m *Manager) adopt(wip *fiber.Fiber, inst Instance) {
	b := inst.internals()
	b.updater = m.updater
	b.fiber = wip
	wip.StateNode = inst
}

func (m *Manager) instanceOf(wip *fiber.Fiber) (Instance, error) {
	inst, ok := wip.StateNode.(Instance)
	if !ok {
		return nil, fmt.Errorf("%w: node %d has no class instance", cerrdefs.ErrFailedPrecondition, wip.ID)
	}
	return inst, nil
}

// MountClassInstance prepares a constructed instance for its first render.
//
// Pending updates are folded first, then GetDerivedStateFromProps runs. The
// legacy will-mount hooks run only for types that use neither
// GetDerivedStateFromProps nor GetSnapshotBeforeUpdate; state they return is
// enqueued as a replace and folded right away.
func (m *Manager) MountClassInstance(wip *fiber.Fiber, typ *Type, props element.Props, renderTime expiration.Time) error {
	inst, err := m.instanceOf(wip)
	if err != nil {
		return err
	}
	b := inst.internals()
	b.Props = props
	b.State = wip.MemoizedState
	b.Refs = map[string]any{}

	if wip.UpdateQueue != nil {
		m.processUpdateQueue(wip, props, renderTime)
		b.State = wip.MemoizedState
	}

	if typ.GetDerivedStateFromProps != nil {
		if err := m.applyDerivedStateFromProps(wip, typ, props); err != nil {
			return err
		}
		b.State = wip.MemoizedState
	}

	if !hasNewLifecycles(typ, inst) && hasWillMount(inst) {
		if err := m.callComponentWillMount(wip, inst); err != nil {
			return err
		}
		if wip.UpdateQueue != nil {
			m.processUpdateQueue(wip, props, renderTime)
			b.State = wip.MemoizedState
		}
	}

	if _, ok := inst.(DidMounter); ok {
		wip.EffectTag |= fiber.Update
	}

	if m.logger.Logger.IsLevelEnabled(logrus.DebugLevel) {
		m.logger.WithFields(log.Fields{
			"node":  wip.ID,
			"class": typ.Name,
		}).Debug("class instance mounted")
	}
	return nil
}

// UpdateClassInstance prepares a mounted instance for a re-render and
// reports whether it should render again. When it should not, the node's
// memoized props and state still advance to the new values.
func (m *Manager) UpdateClassInstance(current, wip *fiber.Fiber, typ *Type, newProps element.Props, renderTime expiration.Time) (bool, error) {
	inst, err := m.instanceOf(wip)
	if err != nil {
		return false, err
	}
	b := inst.internals()

	oldProps, _ := wip.MemoizedProps.(element.Props)
	b.Props = oldProps

	newLifecycles := hasNewLifecycles(typ, inst)
	if !newLifecycles && !sameMap(oldProps, newProps) {
		if err := m.callComponentWillReceiveProps(inst, newProps); err != nil {
			return false, err
		}
	}

	oldState := wip.MemoizedState
	newState := oldState
	b.State = oldState
	forced := false
	if wip.UpdateQueue != nil {
		res := m.processUpdateQueue(wip, newProps, renderTime)
		newState = wip.MemoizedState
		forced = res.ForceUpdate
	}

	var currentProps element.Props
	var currentState update.State
	if current != nil {
		currentProps, _ = current.MemoizedProps.(element.Props)
		currentState = current.MemoizedState
	}
	changedSinceCommit := !sameMap(oldProps, currentProps) || !sameMap(oldState, currentState)

	if sameMap(oldProps, newProps) && sameMap(oldState, newState) && !forced {
		m.tagCommitHooks(wip, inst, changedSinceCommit)
		return false, nil
	}

	if typ.GetDerivedStateFromProps != nil {
		if err := m.applyDerivedStateFromProps(wip, typ, newProps); err != nil {
			return false, err
		}
		newState = wip.MemoizedState
	}

	shouldUpdate := forced
	if !shouldUpdate {
		shouldUpdate, err = checkShouldComponentUpdate(typ, inst, oldProps, newProps, oldState, newState)
		if err != nil {
			return false, err
		}
	}

	if shouldUpdate {
		if h, ok := inst.(WillUpdater); ok && !newLifecycles {
			if err := h.ComponentWillUpdate(newProps, newState); err != nil {
				return false, fmt.Errorf("%s.ComponentWillUpdate: %w", typ.Name, err)
			}
		}
		m.tagCommitHooks(wip, inst, true)
	} else {
		m.tagCommitHooks(wip, inst, changedSinceCommit)
		wip.MemoizedProps = newProps
		wip.MemoizedState = newState
	}

	b.Props = newProps
	b.State = newState
	return shouldUpdate, nil
}

func (m *Manager) tagCommitHooks(wip *fiber.Fiber, inst Instance, changed bool) {
	if !changed {
		return
	}
	if _, ok := inst.(DidUpdater); ok {
		wip.EffectTag |= fiber.Update
	}
	if _, ok := inst.(SnapshotGetter); ok {
		wip.EffectTag |= fiber.Snapshot
	}
}

// processUpdateQueue folds the queue of wip, cloning it first when it is
// still shared with the current tree.
func (m *Manager) processUpdateQueue(wip *fiber.Fiber, props element.Props, renderTime expiration.Time) update.Result {
	q := wip.UpdateQueue
	if current := m.arena.Get(wip.Alternate); current != nil && current.UpdateQueue == q {
		q = q.Clone()
		wip.UpdateQueue = q
	}

	res := q.Process(props, renderTime)
	wip.MemoizedState = res.State
	wip.ExpirationTime = res.ExpirationTime
	if res.Callbacks {
		wip.EffectTag |= fiber.Callback
	}
	return res
}

func (m *Manager) applyDerivedStateFromProps(wip *fiber.Fiber, typ *Type, props element.Props) error {
	prevState := wip.MemoizedState
	partial, err := typ.GetDerivedStateFromProps(props, prevState)
	if err != nil {
		return fmt.Errorf("%s.GetDerivedStateFromProps: %w", typ.Name, err)
	}

	state := prevState
	if len(partial) > 0 {
		state = prevState.Merge(partial)
	}
	wip.MemoizedState = state

	// with no work left the derived state is the new base
	if wip.UpdateQueue != nil && wip.ExpirationTime == expiration.NoWork {
		wip.UpdateQueue.BaseState = state
	}
	return nil
}

func (m *Manager) callComponentWillMount(wip *fiber.Fiber, inst Instance) error {
	var (
		next    update.State
		changed bool
	)
	if h, ok := inst.(WillMounter); ok {
		s, err := h.ComponentWillMount()
		if err != nil {
			return fmt.Errorf("ComponentWillMount: %w", err)
		}
		if s != nil {
			next, changed = s, true
		}
	}
	if h, ok := inst.(UnsafeWillMounter); ok {
		s, err := h.UnsafeComponentWillMount()
		if err != nil {
			return fmt.Errorf("UnsafeComponentWillMount: %w", err)
		}
		if s != nil {
			next, changed = s, true
		}
	}
	if !changed {
		return nil
	}

	if m.logger.Logger.IsLevelEnabled(logrus.DebugLevel) {
		m.logger.WithField("node", wip.ID).Debug("will-mount hook returned state; enqueueing a replace")
	}
	return m.updater.EnqueueReplaceState(inst, update.Partial(next), nil)
}

func (m *Manager) callComponentWillReceiveProps(inst Instance, newProps element.Props) error {
	h, ok := inst.(WillReceivePropser)
	if !ok {
		return nil
	}
	s, err := h.ComponentWillReceiveProps(newProps)
	if err != nil {
		return fmt.Errorf("ComponentWillReceiveProps: %w", err)
	}
	if s == nil {
		return nil
	}
	return m.updater.EnqueueReplaceState(inst, update.Partial(s), nil)
}

func checkShouldComponentUpdate(typ *Type, inst Instance, oldProps, newProps element.Props, oldState, newState update.State) (bool, error) {
	if h, ok := inst.(ShouldUpdater); ok {
		ok, err := h.ShouldComponentUpdate(newProps, newState)
		if err != nil {
			return false, fmt.Errorf("%s.ShouldComponentUpdate: %w", typ.Name, err)
		}
		return ok, nil
	}
	if typ.Pure {
		return !shallowEqual(oldProps, newProps) || !shallowEqual(oldState, newState), nil
	}
	return true, nil
}

func hasNewLifecycles(typ *Type, inst Instance) bool {
	if typ.GetDerivedStateFromProps != nil {
		return true
	}
	_, ok := inst.(SnapshotGetter)
	return ok
}

func hasWillMount(inst Instance) bool {
	_, a := inst.(WillMounter)
	_, b := inst.(UnsafeWillMounter)
	return a || b
}

// sameMap reports whether a and b are the same map value, not merely equal.
func sameMap[M ~map[string]any](a, b M) bool {
	return reflect.ValueOf(a).UnsafePointer() == reflect.ValueOf(b).UnsafePointer()
}

func shallowEqual[M ~map[string]any](a, b M) bool {
	if sameMap(a, b) {
		return true
	}
	if len(a) != len(b) {
		return false
	}
	for k, va := range a {
		vb, ok := b[k]
		if !ok || !sameValue(va, vb) {
			return false
		}
	}
	return true
}

func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Map, reflect.Func:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	return va.Comparable() && va.Equal(vb)
}
