package fiber

import (
	"fmt"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/delaneyj/fiberparty/element"
	"github.com/delaneyj/fiberparty/expiration"
)

// Arena owns every node of a tree pair. IDs stay valid for the arena's
// lifetime; released nodes are dropped by the commit phase, not here.
type Arena struct {
	nodes []*Fiber
}

func NewArena() *Arena {
	return &Arena{nodes: []*Fiber{nil}}
}

func (a *Arena) Get(id ID) *Fiber {
	if id == None || int(id) >= len(a.nodes) {
		return nil
	}
	return a.nodes[id]
}

// Len is the number of nodes ever allocated.
func (a *Arena) Len() int {
	return len(a.nodes) - 1
}

func (a *Arena) New(tag Tag, pendingProps any, key string, mode Mode) *Fiber {
	f := &Fiber{
		ID:           ID(len(a.nodes)),
		Tag:          tag,
		Key:          key,
		PendingProps: pendingProps,
		Mode:         mode,
	}
	a.nodes = append(a.nodes, f)
	return f
}

// Children lists parent's child chain in sibling order.
func (a *Arena) Children(parent *Fiber) []*Fiber {
	var out []*Fiber
	for c := a.Get(parent.Child); c != nil; c = a.Get(c.Sibling) {
		out = append(out, c)
	}
	return out
}

// CreateWorkInProgress returns the alternate of current primed with current's
// fields and pendingProps. The alternate is allocated on first use and
// recycled afterwards, so a tree pair never holds more than two copies of a
// position.
func (a *Arena) CreateWorkInProgress(current *Fiber, pendingProps any) *Fiber {
	wip := a.Get(current.Alternate)
	if wip == nil {
		wip = a.New(current.Tag, pendingProps, current.Key, current.Mode)
		wip.ElementType = current.ElementType
		wip.StateNode = current.StateNode
		wip.Alternate = current.ID
		current.Alternate = wip.ID
	} else {
		wip.PendingProps = pendingProps
		wip.EffectTag = NoEffect
	}

	wip.ChildExpirationTime = current.ChildExpirationTime
	wip.ExpirationTime = current.ExpirationTime
	wip.Child = current.Child
	wip.MemoizedProps = current.MemoizedProps
	wip.MemoizedState = current.MemoizedState
	wip.UpdateQueue = current.UpdateQueue
	wip.Sibling = current.Sibling
	wip.Index = current.Index
	return wip
}

func (a *Arena) CreateFromElement(el element.Element, mode Mode, t expiration.Time) (*Fiber, error) {
	return a.CreateFromTypeAndProps(el.Type, el.Key, el.Props, mode, t)
}

func (a *Arena) CreateFromTypeAndProps(typ any, key string, props element.Props, mode Mode, t expiration.Time) (*Fiber, error) {
	var tag Tag
	switch typ := typ.(type) {
	case string:
		tag = HostComponent
	case element.Component:
		if !element.Comparable(typ) {
			return nil, fmt.Errorf("%w: component type %T is not comparable", cerrdefs.ErrInvalidArgument, typ)
		}
		tag = ClassComponent
	case element.Symbol:
		if typ == element.FragmentType {
			return a.CreateFromFragment(props.Children(), mode, t, key), nil
		}
		return nil, fmt.Errorf("%w: unsupported element symbol %s", cerrdefs.ErrInvalidArgument, typ)
	default:
		return nil, fmt.Errorf("%w: unsupported element type %T", cerrdefs.ErrInvalidArgument, typ)
	}

	f := a.New(tag, props, key, mode)
	f.ElementType = typ
	f.ExpirationTime = t
	return f, nil
}

func (a *Arena) CreateFromFragment(children any, mode Mode, t expiration.Time, key string) *Fiber {
	f := a.New(Fragment, children, key, mode)
	f.ElementType = element.FragmentType
	f.ExpirationTime = t
	return f
}

func (a *Arena) CreateFromText(text string, mode Mode, t expiration.Time) *Fiber {
	f := a.New(HostText, text, "", mode)
	f.ExpirationTime = t
	return f
}

func (a *Arena) CreateFromPortal(p element.Portal, mode Mode, t expiration.Time) *Fiber {
	f := a.New(HostPortal, p.Children, p.Key, mode)
	f.ExpirationTime = t
	f.StateNode = &PortalState{
		Container:      p.Container,
		Implementation: p.Implementation,
	}
	return f
}
