package fiber

import (
	"fmt"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/delaneyj/fiberparty/expiration"
)

// Root anchors a tree pair to its host container. Current is the only
// pointer that decides which of the two trees is displayed.
type Root struct {
	Container   any
	Current     ID
	PendingTime expiration.Time
}

// CreateRoot allocates a root and its HostRoot node.
func (a *Arena) CreateRoot(container any, mode Mode) (*Root, *Fiber) {
	r := &Root{Container: container}
	f := a.New(HostRoot, nil, "", mode)
	f.StateNode = r
	r.Current = f.ID
	return r, f
}

// Commit swaps the displayed tree for finishedWork, which must be the
// work-in-progress alternate of the current root node. Work left on the
// finished tree becomes the root's pending time.
func (r *Root) Commit(a *Arena, finishedWork *Fiber) error {
	current := a.Get(r.Current)
	if current == nil || finishedWork.ID != current.Alternate {
		return fmt.Errorf("%w: node %d is not the work-in-progress root", cerrdefs.ErrInvalidArgument, finishedWork.ID)
	}
	r.Current = finishedWork.ID
	r.PendingTime = max(finishedWork.ExpirationTime, finishedWork.ChildExpirationTime)
	return nil
}

// HostRootOf walks Return links up to the tree's top node.
func (a *Arena) HostRootOf(f *Fiber) *Fiber {
	node := f
	for node.Return != None {
		node = a.Get(node.Return)
	}
	if node.Tag != HostRoot {
		return nil
	}
	return node
}

// IsMounted reports whether f belongs to a committed tree. A node that has
// never been committed has no alternate, and it or one of its ancestors still
// waits for Placement.
func (a *Arena) IsMounted(f *Fiber) bool {
	if f == nil {
		return false
	}
	node := f
	if node.Alternate == None {
		if node.EffectTag&Placement != 0 {
			return false
		}
		for node.Return != None {
			node = a.Get(node.Return)
			if node.EffectTag&Placement != 0 {
				return false
			}
		}
	} else {
		for node.Return != None {
			node = a.Get(node.Return)
		}
	}
	return node.Tag == HostRoot
}
