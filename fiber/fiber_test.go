package fiber_test

import (
	"testing"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/delaneyj/fiberparty/element"
	"github.com/delaneyj/fiberparty/expiration"
	"github.com/delaneyj/fiberparty/fiber"
	"github.com/delaneyj/fiberparty/update"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct{ name string }

func (w *widget) DisplayName() string { return w.name }

func TestCreateWorkInProgressPairsOnce(t *testing.T) {
	a := fiber.NewArena()
	current := a.New(fiber.HostComponent, element.Props{"id": 1}, "k", fiber.NoContext)
	current.ElementType = "div"
	current.MemoizedState = update.State{"x": 1}
	current.Index = 3
	current.EffectTag = fiber.Placement

	wip := a.CreateWorkInProgress(current, element.Props{"id": 2})
	require.NotEqual(t, current.ID, wip.ID)
	assert.Equal(t, current.ID, wip.Alternate)
	assert.Equal(t, wip.ID, current.Alternate)
	assert.Equal(t, "div", wip.ElementType)
	assert.Equal(t, "k", wip.Key)
	assert.Equal(t, 3, wip.Index)
	assert.Equal(t, update.State{"x": 1}, wip.MemoizedState)
	assert.Equal(t, element.Props{"id": 2}, wip.PendingProps)
	assert.Equal(t, fiber.NoEffect, wip.EffectTag)

	wip.EffectTag = fiber.Update
	again := a.CreateWorkInProgress(current, element.Props{"id": 3})
	assert.Same(t, wip, again, "the alternate is recycled")
	assert.Equal(t, fiber.NoEffect, again.EffectTag)
	assert.Equal(t, element.Props{"id": 3}, again.PendingProps)
	assert.Equal(t, 2, a.Len())

	// and the roles can flip
	back := a.CreateWorkInProgress(wip, nil)
	assert.Same(t, current, back)
}

func TestCreateFromTypeAndProps(t *testing.T) {
	a := fiber.NewArena()

	host, err := a.CreateFromElement(element.New("span", "s", nil), fiber.NoContext, expiration.Sync)
	require.NoError(t, err)
	assert.Equal(t, fiber.HostComponent, host.Tag)
	assert.Equal(t, "s", host.Key)
	assert.Equal(t, expiration.Sync, host.ExpirationTime)

	w := &widget{name: "W"}
	class, err := a.CreateFromElement(element.New(w, "", nil), fiber.NoContext, expiration.Sync)
	require.NoError(t, err)
	assert.Equal(t, fiber.ClassComponent, class.Tag)
	assert.Equal(t, w, class.ElementType)

	frag, err := a.CreateFromElement(element.NewFragment("f", "a", "b"), fiber.NoContext, expiration.Sync)
	require.NoError(t, err)
	assert.Equal(t, fiber.Fragment, frag.Tag)
	assert.Equal(t, []any{"a", "b"}, frag.PendingProps)

	_, err = a.CreateFromElement(element.New(42, "", nil), fiber.NoContext, expiration.Sync)
	assert.True(t, cerrdefs.IsInvalidArgument(err))

	_, err = a.CreateFromElement(element.New(element.Symbol(7), "", nil), fiber.NoContext, expiration.Sync)
	assert.True(t, cerrdefs.IsInvalidArgument(err))
}

func TestPortalState(t *testing.T) {
	a := fiber.NewArena()
	p := a.CreateFromPortal(element.NewPortal("p", "modal-root", nil, "x"), fiber.NoContext, expiration.Sync)
	assert.Equal(t, fiber.HostPortal, p.Tag)
	require.IsType(t, &fiber.PortalState{}, p.StateNode)
	assert.Equal(t, "modal-root", p.StateNode.(*fiber.PortalState).Container)
	assert.Equal(t, "x", p.PendingProps)
}

func TestEffectListRecordsOnce(t *testing.T) {
	a := fiber.NewArena()
	x := a.New(fiber.HostText, "x", "", fiber.NoContext)
	y := a.New(fiber.HostText, "y", "", fiber.NoContext)

	l := fiber.NewEffectList()
	assert.True(t, l.Append(x))
	assert.True(t, l.Append(y))
	assert.False(t, l.Append(x))
	assert.Equal(t, []fiber.ID{x.ID, y.ID}, l.IDs())
	assert.True(t, l.Contains(y.ID))

	other := fiber.NewEffectList()
	z := a.New(fiber.HostText, "z", "", fiber.NoContext)
	other.Append(y)
	other.Append(z)
	l.Concat(a, other)
	assert.Equal(t, []fiber.ID{x.ID, y.ID, z.ID}, l.IDs())
	assert.Equal(t, 3, l.Len())
}

func TestIsMountedAndCommit(t *testing.T) {
	a := fiber.NewArena()
	root, current := a.CreateRoot("container", fiber.NoContext)
	require.Same(t, current, a.HostRootOf(current))

	wip := a.CreateWorkInProgress(current, nil)
	child := a.New(fiber.HostComponent, nil, "", fiber.NoContext)
	child.Return = wip.ID
	child.EffectTag = fiber.Placement
	wip.Child = child.ID

	assert.True(t, a.IsMounted(current))
	assert.False(t, a.IsMounted(child), "pending placement")
	assert.Same(t, wip, a.HostRootOf(child))

	child.EffectTag = fiber.NoEffect
	assert.True(t, a.IsMounted(child))

	detached := a.New(fiber.HostComponent, nil, "", fiber.NoContext)
	assert.False(t, a.IsMounted(detached))
	assert.Nil(t, a.HostRootOf(detached))
	assert.False(t, a.IsMounted(nil))

	require.Error(t, root.Commit(a, current))
	wip.ChildExpirationTime = expiration.FromMillis(5000)
	require.NoError(t, root.Commit(a, wip))
	assert.Equal(t, wip.ID, root.Current)
	assert.Equal(t, expiration.FromMillis(5000), root.PendingTime)
}

func TestEffectString(t *testing.T) {
	assert.Equal(t, "NoEffect", fiber.NoEffect.String())
	assert.Equal(t, "Placement|Deletion", (fiber.Placement | fiber.Deletion).String())
	assert.Equal(t, "ClassComponent", fiber.ClassComponent.String())
}
