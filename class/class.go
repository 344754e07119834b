// Package class manages the instances backing class-shaped components:
// constructing them, wiring them to their node, and folding their update
// queues at the right points relative to lifecycle hooks.
package class

import (
	"github.com/delaneyj/fiberparty/element"
	"github.com/delaneyj/fiberparty/fiber"
	"github.com/delaneyj/fiberparty/update"
)

// Type is the element type of a class-shaped component.
type Type struct {
	Name string
	// New constructs an instance. Context is always nil for now.
	New func(props element.Props, context any) (Instance, error)
	// GetDerivedStateFromProps, when set, maps new props onto state before
	// every render. Returning nil or an empty state leaves state unchanged.
	GetDerivedStateFromProps func(props element.Props, prevState update.State) (update.State, error)
	// Pure components skip rendering when props and state are shallowly equal.
	Pure bool
}

func (t *Type) DisplayName() string {
	return t.Name
}

// Instance is implemented by embedding Base.
type Instance interface {
	internals() *Base
}

// Base carries the fields every instance shares and the capability to
// request state changes.
type Base struct {
	Props   element.Props
	State   update.State
	Context any
	Refs    map[string]any

	updater *Updater
	fiber   *fiber.Fiber
}

func (b *Base) internals() *Base {
	return b
}

func (b *Base) SetState(payload update.Payload, callback func()) error {
	if b.updater == nil {
		return &DetachedInstanceError{Op: "SetState", Instance: b}
	}
	return b.updater.EnqueueSetState(b, payload, callback)
}

func (b *Base) ReplaceState(payload update.Payload, callback func()) error {
	if b.updater == nil {
		return &DetachedInstanceError{Op: "ReplaceState", Instance: b}
	}
	return b.updater.EnqueueReplaceState(b, payload, callback)
}

func (b *Base) ForceUpdate(callback func()) error {
	if b.updater == nil {
		return &DetachedInstanceError{Op: "ForceUpdate", Instance: b}
	}
	return b.updater.EnqueueForceUpdate(b, callback)
}

// Legacy pre-mount hooks. They run only when the type defines neither
// GetDerivedStateFromProps nor GetSnapshotBeforeUpdate, and return the new
// state, or nil to leave state alone.
type (
	WillMounter interface {
		ComponentWillMount() (update.State, error)
	}
	UnsafeWillMounter interface {
		UnsafeComponentWillMount() (update.State, error)
	}
	WillReceivePropser interface {
		ComponentWillReceiveProps(nextProps element.Props) (update.State, error)
	}
	WillUpdater interface {
		ComponentWillUpdate(nextProps element.Props, nextState update.State) error
	}
)

// Hooks invoked by the commit phase. Their presence tags the node.
type (
	DidMounter interface {
		ComponentDidMount() error
	}
	DidUpdater interface {
		ComponentDidUpdate(prevProps element.Props, prevState update.State, snapshot any) error
	}
	SnapshotGetter interface {
		GetSnapshotBeforeUpdate(prevProps element.Props, prevState update.State) (any, error)
	}
)

type ShouldUpdater interface {
	ShouldComponentUpdate(nextProps element.Props, nextState update.State) (bool, error)
}
