package class

import (
	"errors"
	"testing"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/delaneyj/fiberparty/element"
	"github.com/delaneyj/fiberparty/expiration"
	"github.com/delaneyj/fiberparty/fiber"
	"github.com/delaneyj/fiberparty/update"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScheduler struct {
	expiration expiration.Time
	scheduled  []fiber.ID
}

func (s *fakeScheduler) RequestCurrentTime() expiration.Time {
	return expiration.FromMillis(0)
}

func (s *fakeScheduler) ComputeExpirationTimeForFiber(expiration.Time, *fiber.Fiber) expiration.Time {
	return s.expiration
}

func (s *fakeScheduler) ScheduleWork(f *fiber.Fiber, _ expiration.Time) {
	s.scheduled = append(s.scheduled, f.ID)
}

type counter struct {
	Base
}

type legacyCounter struct {
	Base
	willMount         update.State
	willMountCalls    int
	receiveProps      update.State
	receivePropsCalls int
	willUpdateCalls   int
}

func (c *legacyCounter) ComponentWillMount() (update.State, error) {
	c.willMountCalls++
	return c.willMount, nil
}

func (c *legacyCounter) ComponentWillReceiveProps(element.Props) (update.State, error) {
	c.receivePropsCalls++
	return c.receiveProps, nil
}

func (c *legacyCounter) ComponentWillUpdate(element.Props, update.State) error {
	c.willUpdateCalls++
	return nil
}

type snapshotCounter struct {
	legacyCounter
}

func (c *snapshotCounter) GetSnapshotBeforeUpdate(element.Props, update.State) (any, error) {
	return nil, nil
}

type lifecycleCounter struct {
	Base
	should      bool
	shouldCalls int
}

func (c *lifecycleCounter) ComponentDidMount() error {
	return nil
}

func (c *lifecycleCounter) ComponentDidUpdate(element.Props, update.State, any) error {
	return nil
}

func (c *lifecycleCounter) ShouldComponentUpdate(element.Props, update.State) (bool, error) {
	c.shouldCalls++
	return c.should, nil
}

func initialState() update.State {
	return update.State{"count": 0}
}

func typeOf(name string, build func() Instance) *Type {
	return &Type{
		Name: name,
		New: func(element.Props, any) (Instance, error) {
			return build(), nil
		},
	}
}

func counterType() *Type {
	return typeOf("Counter", func() Instance {
		return &counter{Base: Base{State: initialState()}}
	})
}

type harness struct {
	arena     *fiber.Arena
	scheduler *fakeScheduler
	manager   *Manager
}

func newHarness() *harness {
	a := fiber.NewArena()
	s := &fakeScheduler{expiration: expiration.Sync}
	return &harness{
		arena:     a,
		scheduler: s,
		manager:   NewManager(a, s),
	}
}

func (h *harness) construct(t *testing.T, typ *Type, props element.Props) (*fiber.Fiber, Instance) {
	t.Helper()
	f, err := h.arena.CreateFromTypeAndProps(typ, "", props, fiber.NoContext, expiration.Sync)
	require.NoError(t, err)
	inst, err := h.manager.ConstructClassInstance(f, typ, props)
	require.NoError(t, err)
	return f, inst
}

func (h *harness) mount(t *testing.T, typ *Type, props element.Props) (*fiber.Fiber, Instance) {
	t.Helper()
	f, inst := h.construct(t, typ, props)
	require.NoError(t, h.manager.MountClassInstance(f, typ, props, expiration.Sync))
	f.MemoizedProps = props
	return f, inst
}

func TestConstructAttachesInstance(t *testing.T) {
	h := newHarness()
	f, inst := h.construct(t, counterType(), element.Props{"v": 1})

	assert.Equal(t, inst, f.StateNode)
	assert.Equal(t, initialState(), f.MemoizedState)

	empty := typeOf("Empty", func() Instance { return &counter{} })
	f, _ = h.construct(t, empty, nil)
	assert.Nil(t, f.MemoizedState)
}

func TestConstructErrors(t *testing.T) {
	h := newHarness()
	f := h.arena.New(fiber.ClassComponent, nil, "", fiber.NoContext)

	_, err := h.manager.ConstructClassInstance(f, &Type{Name: "NoCtor"}, nil)
	assert.True(t, cerrdefs.IsInvalidArgument(err))

	boom := errors.New("boom")
	failing := &Type{
		Name: "Failing",
		New: func(element.Props, any) (Instance, error) {
			return nil, boom
		},
	}
	_, err = h.manager.ConstructClassInstance(f, failing, nil)
	assert.ErrorIs(t, err, boom)

	nilType := &Type{
		Name: "Nil",
		New: func(element.Props, any) (Instance, error) {
			return nil, nil
		},
	}
	_, err = h.manager.ConstructClassInstance(f, nilType, nil)
	assert.True(t, cerrdefs.IsInvalidArgument(err))
}

func TestDetachedInstance(t *testing.T) {
	b := &Base{}
	err := b.SetState(update.Partial{"count": 1}, nil)
	require.Error(t, err)
	assert.True(t, cerrdefs.IsFailedPrecondition(err))

	var detached *DetachedInstanceError
	require.ErrorAs(t, err, &detached)
	assert.Equal(t, "SetState", detached.Op)

	h := newHarness()
	err = h.manager.Updater().EnqueueForceUpdate(&counter{}, nil)
	assert.True(t, cerrdefs.IsFailedPrecondition(err))
	err = h.manager.Updater().EnqueueReplaceState(nil, nil, nil)
	assert.True(t, cerrdefs.IsFailedPrecondition(err))
	assert.Empty(t, h.scheduler.scheduled)
}

func TestSetStateReachesBothTrees(t *testing.T) {
	h := newHarness()
	f, inst := h.construct(t, counterType(), nil)
	wip := h.arena.CreateWorkInProgress(f, nil)

	require.NoError(t, inst.(*counter).SetState(update.Partial{"count": 1}, nil))

	require.NotNil(t, f.UpdateQueue)
	require.NotNil(t, wip.UpdateQueue)
	assert.NotSame(t, f.UpdateQueue, wip.UpdateQueue)
	assert.Equal(t, 1, f.UpdateQueue.Len())
	assert.Equal(t, 1, wip.UpdateQueue.Len())
	assert.Equal(t, []fiber.ID{f.ID}, h.scheduler.scheduled)

	// a shared queue receives the update once
	shared := update.NewQueue(nil)
	f.UpdateQueue, wip.UpdateQueue = shared, shared
	require.NoError(t, inst.(*counter).SetState(update.Partial{"count": 2}, nil))
	assert.Equal(t, 1, shared.Len())
}

func TestMountFoldsPendingUpdates(t *testing.T) {
	h := newHarness()
	typ := counterType()
	f, inst := h.construct(t, typ, nil)

	called := 0
	require.NoError(t, inst.(*counter).SetState(update.Func(func(prev update.State, _ element.Props) update.State {
		return update.State{"count": prev["count"].(int) + 1}
	}), func() { called++ }))

	require.NoError(t, h.manager.MountClassInstance(f, typ, nil, expiration.Sync))
	assert.Equal(t, update.State{"count": 1}, f.MemoizedState)
	assert.Equal(t, f.MemoizedState, inst.(*counter).State)
	assert.NotZero(t, f.EffectTag&fiber.Callback)
	assert.Equal(t, expiration.NoWork, f.ExpirationTime)

	for _, cb := range f.UpdateQueue.TakeCallbacks() {
		cb()
	}
	assert.Equal(t, 1, called)
}

func TestMountKeepsLowPriorityUpdates(t *testing.T) {
	h := newHarness()
	typ := counterType()
	f, inst := h.construct(t, typ, nil)

	low := expiration.ComputeAsync(expiration.FromMillis(0))
	h.scheduler.expiration = low
	require.NoError(t, inst.(*counter).SetState(update.Partial{"count": 5}, nil))

	require.NoError(t, h.manager.MountClassInstance(f, typ, nil, expiration.Sync))
	assert.Equal(t, initialState(), f.MemoizedState)
	assert.Equal(t, low, f.ExpirationTime)
	assert.Equal(t, 1, f.UpdateQueue.Len())
}

func TestWillMountReplacesState(t *testing.T) {
	h := newHarness()
	var c *legacyCounter
	typ := typeOf("Legacy", func() Instance {
		c = &legacyCounter{
			Base:      Base{State: initialState()},
			willMount: update.State{"mounted": true},
		}
		return c
	})

	f, _ := h.mount(t, typ, nil)
	assert.Equal(t, 1, c.willMountCalls)
	assert.Equal(t, update.State{"mounted": true}, f.MemoizedState)
	assert.Equal(t, update.State{"mounted": true}, c.State)
	assert.Equal(t, 0, f.UpdateQueue.Len())
	assert.Equal(t, []fiber.ID{f.ID}, h.scheduler.scheduled)
}

func TestWillMountReturningNothingEnqueuesNothing(t *testing.T) {
	h := newHarness()
	var c *legacyCounter
	typ := typeOf("Legacy", func() Instance {
		c = &legacyCounter{Base: Base{State: initialState()}}
		return c
	})

	f, _ := h.mount(t, typ, nil)
	assert.Equal(t, 1, c.willMountCalls)
	assert.Equal(t, initialState(), f.MemoizedState)
	assert.Nil(t, f.UpdateQueue)
	assert.Empty(t, h.scheduler.scheduled)
}

func TestDerivedStateSuppressesWillMount(t *testing.T) {
	h := newHarness()
	var c *legacyCounter
	typ := typeOf("Derived", func() Instance {
		c = &legacyCounter{
			Base:      Base{State: initialState()},
			willMount: update.State{"mounted": true},
		}
		return c
	})
	typ.GetDerivedStateFromProps = func(props element.Props, _ update.State) (update.State, error) {
		return update.State{"derived": props["v"]}, nil
	}

	f, _ := h.mount(t, typ, element.Props{"v": 3})
	assert.Equal(t, 0, c.willMountCalls)
	assert.Equal(t, update.State{"count": 0, "derived": 3}, f.MemoizedState)
	assert.Equal(t, f.MemoizedState, c.State)
}

func TestSnapshotGetterSuppressesWillMount(t *testing.T) {
	h := newHarness()
	var c *snapshotCounter
	typ := typeOf("Snapshot", func() Instance {
		c = &snapshotCounter{legacyCounter{
			Base:      Base{State: initialState()},
			willMount: update.State{"mounted": true},
		}}
		return c
	})

	f, _ := h.mount(t, typ, nil)
	assert.Equal(t, 0, c.willMountCalls)
	assert.Equal(t, initialState(), f.MemoizedState)
}

func TestDerivedStateErrorPropagates(t *testing.T) {
	h := newHarness()
	boom := errors.New("boom")
	typ := counterType()
	typ.GetDerivedStateFromProps = func(element.Props, update.State) (update.State, error) {
		return nil, boom
	}

	f, _ := h.construct(t, typ, nil)
	err := h.manager.MountClassInstance(f, typ, nil, expiration.Sync)
	assert.ErrorIs(t, err, boom)
}

func TestMountWithoutInstance(t *testing.T) {
	h := newHarness()
	f := h.arena.New(fiber.ClassComponent, nil, "", fiber.NoContext)
	err := h.manager.MountClassInstance(f, counterType(), nil, expiration.Sync)
	assert.True(t, cerrdefs.IsFailedPrecondition(err))
}

func TestDidMountTagsUpdate(t *testing.T) {
	h := newHarness()
	typ := typeOf("Lifecycle", func() Instance {
		return &lifecycleCounter{Base: Base{State: initialState()}}
	})
	f, _ := h.mount(t, typ, nil)
	assert.NotZero(t, f.EffectTag&fiber.Update)

	plain, _ := h.mount(t, counterType(), nil)
	assert.Zero(t, plain.EffectTag&fiber.Update)
}

func TestForceUpdateAlwaysRenders(t *testing.T) {
	h := newHarness()
	var c *lifecycleCounter
	typ := typeOf("Lifecycle", func() Instance {
		c = &lifecycleCounter{Base: Base{State: initialState()}}
		return c
	})
	props := element.Props{"v": 1}
	f, _ := h.mount(t, typ, props)
	h.scheduler.scheduled = nil

	require.NoError(t, c.ForceUpdate(nil))
	assert.Equal(t, []fiber.ID{f.ID}, h.scheduler.scheduled)

	wip := h.arena.CreateWorkInProgress(f, props)
	render, err := h.manager.UpdateClassInstance(f, wip, typ, props, expiration.Sync)
	require.NoError(t, err)
	assert.True(t, render)
	assert.Equal(t, 0, c.shouldCalls)
	assert.NotZero(t, wip.EffectTag&fiber.Update)
	// the shared queue was cloned before folding
	assert.Equal(t, 1, f.UpdateQueue.Len())
	assert.Equal(t, 0, wip.UpdateQueue.Len())
}

func TestUpdateBailsOutWithoutChanges(t *testing.T) {
	h := newHarness()
	var c *lifecycleCounter
	typ := typeOf("Lifecycle", func() Instance {
		c = &lifecycleCounter{Base: Base{State: initialState()}}
		return c
	})
	props := element.Props{"v": 1}
	f, _ := h.mount(t, typ, props)

	wip := h.arena.CreateWorkInProgress(f, props)
	render, err := h.manager.UpdateClassInstance(f, wip, typ, props, expiration.Sync)
	require.NoError(t, err)
	assert.False(t, render)
	assert.Equal(t, 0, c.shouldCalls)
	assert.Zero(t, wip.EffectTag&fiber.Update)
}

func TestShouldComponentUpdateVeto(t *testing.T) {
	h := newHarness()
	var c *lifecycleCounter
	typ := typeOf("Lifecycle", func() Instance {
		c = &lifecycleCounter{Base: Base{State: initialState()}}
		return c
	})
	props := element.Props{"v": 1}
	f, _ := h.mount(t, typ, props)

	require.NoError(t, c.SetState(update.Partial{"count": 7}, nil))
	wip := h.arena.CreateWorkInProgress(f, props)
	render, err := h.manager.UpdateClassInstance(f, wip, typ, props, expiration.Sync)
	require.NoError(t, err)
	assert.False(t, render)
	assert.Equal(t, 1, c.shouldCalls)
	assert.Equal(t, update.State{"count": 7}, wip.MemoizedState)
	assert.Equal(t, update.State{"count": 7}, c.State)

	c.should = true
	require.NoError(t, c.SetState(update.Partial{"count": 8}, nil))
	render, err = h.manager.UpdateClassInstance(f, wip, typ, props, expiration.Sync)
	require.NoError(t, err)
	assert.True(t, render)
	assert.Equal(t, update.State{"count": 8}, wip.MemoizedState)
}

func TestPureComparesShallowly(t *testing.T) {
	h := newHarness()
	typ := counterType()
	typ.Pure = true
	items := []string{"a"}
	f, _ := h.mount(t, typ, element.Props{"v": 1, "items": items})

	next := element.Props{"v": 1, "items": items}
	wip := h.arena.CreateWorkInProgress(f, next)
	render, err := h.manager.UpdateClassInstance(f, wip, typ, next, expiration.Sync)
	require.NoError(t, err)
	assert.False(t, render)
	assert.True(t, sameMap(next, wip.MemoizedProps.(element.Props)))

	changed := element.Props{"v": 1, "items": []string{"a"}}
	render, err = h.manager.UpdateClassInstance(f, wip, typ, changed, expiration.Sync)
	require.NoError(t, err)
	assert.True(t, render)

	impure := counterType()
	g, _ := h.mount(t, impure, element.Props{"v": 1})
	same := element.Props{"v": 1}
	gwip := h.arena.CreateWorkInProgress(g, same)
	render, err = h.manager.UpdateClassInstance(g, gwip, impure, same, expiration.Sync)
	require.NoError(t, err)
	assert.True(t, render)
}

func TestWillReceivePropsReplacesState(t *testing.T) {
	h := newHarness()
	var c *legacyCounter
	typ := typeOf("Legacy", func() Instance {
		c = &legacyCounter{Base: Base{State: initialState()}}
		return c
	})
	f, _ := h.mount(t, typ, element.Props{"v": 1})

	c.receiveProps = update.State{"received": true}
	next := element.Props{"v": 2}
	wip := h.arena.CreateWorkInProgress(f, next)
	render, err := h.manager.UpdateClassInstance(f, wip, typ, next, expiration.Sync)
	require.NoError(t, err)
	assert.True(t, render)
	assert.Equal(t, 1, c.receivePropsCalls)
	assert.Equal(t, 1, c.willUpdateCalls)
	assert.Equal(t, update.State{"received": true}, c.State)
	assert.Equal(t, next, c.Props)
}

func TestIsMounted(t *testing.T) {
	h := newHarness()
	_, root := h.arena.CreateRoot(nil, fiber.NoContext)
	f, inst := h.construct(t, counterType(), nil)
	u := h.manager.Updater()

	assert.False(t, u.IsMounted(inst))
	assert.False(t, u.IsMounted(&counter{}))
	assert.False(t, u.IsMounted(nil))

	f.Return = root.ID
	assert.True(t, u.IsMounted(inst))

	f.EffectTag |= fiber.Placement
	assert.False(t, u.IsMounted(inst))
}

func TestWillMountStateLogsAtDebugOnly(t *testing.T) {
	for _, tc := range []struct {
		level logrus.Level
		want  int
	}{
		{logrus.InfoLevel, 0},
		{logrus.DebugLevel, 1},
	} {
		logger, hook := logtest.NewNullLogger()
		logger.SetLevel(tc.level)
		a := fiber.NewArena()
		m := NewManager(a, &fakeScheduler{expiration: expiration.Sync}, WithLogger(logrus.NewEntry(logger)))

		typ := typeOf("Legacy", func() Instance {
			return &legacyCounter{
				Base:      Base{State: initialState()},
				willMount: update.State{"mounted": true},
			}
		})
		f, err := a.CreateFromTypeAndProps(typ, "", nil, fiber.NoContext, expiration.Sync)
		require.NoError(t, err)
		_, err = m.ConstructClassInstance(f, typ, nil)
		require.NoError(t, err)
		require.NoError(t, m.MountClassInstance(f, typ, nil, expiration.Sync))

		var hits int
		for _, e := range hook.AllEntries() {
			assert.NotEqual(t, logrus.WarnLevel, e.Level)
			if e.Message == "will-mount hook returned state; enqueueing a replace" {
				hits++
			}
		}
		assert.Equal(t, tc.want, hits, tc.level.String())
	}
}
