// Package fiber is the node model of the reconciliation core.
//
// Nodes live in an Arena and refer to each other by ID. Child and Sibling are
// the owning forward links of a tree; Return and Alternate are back and cross
// references only. Every node of the current tree may be paired with one
// work-in-progress node through Alternate, and all render-phase mutation
// targets the work-in-progress side.
package fiber

import (
	"strings"

	"github.com/delaneyj/fiberparty/expiration"
	"github.com/delaneyj/fiberparty/update"
)

type ID uint32

// None is the zero ID: no node.
const None ID = 0

type Tag uint8

const (
	HostRoot Tag = iota
	HostComponent
	HostText
	Fragment
	HostPortal
	ClassComponent
)

func (t Tag) String() string {
	switch t {
	case HostRoot:
		return "HostRoot"
	case HostComponent:
		return "HostComponent"
	case HostText:
		return "HostText"
	case Fragment:
		return "Fragment"
	case HostPortal:
		return "HostPortal"
	case ClassComponent:
		return "ClassComponent"
	}
	return "Tag(?)"
}

type Effect uint16

const (
	Placement Effect = 1 << iota
	Update
	Deletion
	ContentReset
	Callback
	Snapshot
	NoEffect Effect = 0
)

var effectNames = []struct {
	e    Effect
	name string
}{
	{Placement, "Placement"},
	{Update, "Update"},
	{Deletion, "Deletion"},
	{ContentReset, "ContentReset"},
	{Callback, "Callback"},
	{Snapshot, "Snapshot"},
}

func (e Effect) String() string {
	if e == NoEffect {
		return "NoEffect"
	}
	var parts []string
	for _, n := range effectNames {
		if e&n.e != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

type Mode uint8

const (
	ConcurrentMode Mode = 1 << iota
	StrictMode
	NoContext Mode = 0
)

type Fiber struct {
	ID  ID
	Tag Tag
	Key string

	// ElementType is the element type this node was created from.
	ElementType any
	// StateNode owns the class instance, the host handle or the *Root.
	StateNode any

	Return  ID
	Child   ID
	Sibling ID
	Index   int

	PendingProps  any
	MemoizedProps any
	MemoizedState update.State
	UpdateQueue   *update.Queue

	Mode      Mode
	EffectTag Effect

	ExpirationTime      expiration.Time
	ChildExpirationTime expiration.Time

	Alternate ID
}

// PortalState is the StateNode of a HostPortal node.
type PortalState struct {
	Container       any
	Implementation  any
	PendingChildren any
}
