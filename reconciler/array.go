package reconciler

import (
	"github.com/delaneyj/fiberparty/element"
	"github.com/delaneyj/fiberparty/fiber"
)

// slot identifies an old child in the key map: by key when it has one, by
// position otherwise.
type slot struct {
	key   string
	index int
}

func slotOf(key string, index int) slot {
	if key != "" {
		return slot{key: key, index: -1}
	}
	return slot{index: index}
}

// updateSlot reuses oldFiber for newChild when their keys agree. A nil result
// with a nil error means the slot does not match.
func (p *pass) updateSlot(oldFiber *fiber.Fiber, newChild element.Node, newIdx int) (*fiber.Fiber, error) {
	key := ""
	if oldFiber != nil {
		key = oldFiber.Key
	}

	switch n := newChild.(type) {
	case element.Text:
		if key != "" {
			return nil, nil
		}
		return p.updateTextNode(oldFiber, string(n)), nil
	case element.Element:
		if n.Key != key {
			return nil, nil
		}
		if !element.Comparable(n.Type) {
			return nil, p.refuse(indexPath(newIdx), n.Type, ErrNotComparable)
		}
		f, err := p.updateElement(oldFiber, n)
		if err != nil {
			return nil, p.refuse(indexPath(newIdx), n.Type, err)
		}
		return f, nil
	case element.Portal:
		if n.Key != key {
			return nil, nil
		}
		if !element.Comparable(n.Container) || !element.Comparable(n.Implementation) {
			return nil, p.refuse(indexPath(newIdx), n.Container, ErrNotComparable)
		}
		return p.updatePortal(oldFiber, n), nil
	case element.Fragment:
		if key != "" {
			return nil, nil
		}
		return p.updateFragment(oldFiber, n, ""), nil
	case element.Empty:
		return nil, nil
	case element.Unknown:
		return nil, p.refuse(indexPath(newIdx), n.Value, ErrUnknownChild)
	}
	return nil, p.refuse(indexPath(newIdx), newChild, ErrUnknownChild)
}

func (p *pass) createChild(newChild element.Node, newIdx int) (*fiber.Fiber, error) {
	switch n := newChild.(type) {
	case element.Text:
		return p.createText(string(n)), nil
	case element.Element:
		if !element.Comparable(n.Type) {
			return nil, p.refuse(indexPath(newIdx), n.Type, ErrNotComparable)
		}
		f, err := p.createElement(n)
		if err != nil {
			return nil, p.refuse(indexPath(newIdx), n.Type, err)
		}
		return f, nil
	case element.Portal:
		if !element.Comparable(n.Container) || !element.Comparable(n.Implementation) {
			return nil, p.refuse(indexPath(newIdx), n.Container, ErrNotComparable)
		}
		return p.createPortal(n), nil
	case element.Fragment:
		return p.createFragment(n, ""), nil
	case element.Empty:
		return nil, nil
	case element.Unknown:
		return nil, p.refuse(indexPath(newIdx), n.Value, ErrUnknownChild)
	}
	return nil, p.refuse(indexPath(newIdx), newChild, ErrUnknownChild)
}

func (p *pass) mapRemainingChildren(currentFirstChild *fiber.Fiber) map[slot]*fiber.Fiber {
	existing := make(map[slot]*fiber.Fiber)
	for child := currentFirstChild; child != nil; child = p.arena.Get(child.Sibling) {
		existing[slotOf(child.Key, child.Index)] = child
	}
	return existing
}

func (p *pass) updateFromMap(existing map[slot]*fiber.Fiber, newChild element.Node, newIdx int) (*fiber.Fiber, error) {
	switch n := newChild.(type) {
	case element.Text:
		return p.updateTextNode(existing[slotOf("", newIdx)], string(n)), nil
	case element.Fragment:
		return p.updateFragment(existing[slotOf("", newIdx)], n, ""), nil
	case element.Element:
		if !element.Comparable(n.Type) {
			return nil, p.refuse(indexPath(newIdx), n.Type, ErrNotComparable)
		}
		f, err := p.updateElement(existing[slotOf(n.Key, newIdx)], n)
		if err != nil {
			return nil, p.refuse(indexPath(newIdx), n.Type, err)
		}
		return f, nil
	case element.Portal:
		if !element.Comparable(n.Container) || !element.Comparable(n.Implementation) {
			return nil, p.refuse(indexPath(newIdx), n.Container, ErrNotComparable)
		}
		return p.updatePortal(existing[slotOf(n.Key, newIdx)], n), nil
	case element.Empty:
		return nil, nil
	case element.Unknown:
		return nil, p.refuse(indexPath(newIdx), n.Value, ErrUnknownChild)
	}
	return nil, p.refuse(indexPath(newIdx), newChild, ErrUnknownChild)
}

// reconcileChildrenArray diffs the old sibling chain against newChildren.
//
// The walk first compares both lists position by position while keys agree.
// On the first mismatch it falls back to a key map of the remaining old
// children, resolving each remaining new child against it, and finally
// deletes whatever old child was not claimed.
func (p *pass) reconcileChildrenArray(currentFirstChild fiber.ID, newChildren element.Fragment) (fiber.ID, error) {
	var (
		resultingFirstChild *fiber.Fiber
		previousNewFiber    *fiber.Fiber
		lastPlacedIndex     int
		newIdx              int
		nextOldFiber        *fiber.Fiber
	)
	link := func(f *fiber.Fiber) {
		if previousNewFiber == nil {
			resultingFirstChild = f
		} else {
			previousNewFiber.Sibling = f.ID
		}
		previousNewFiber = f
	}
	first := func() fiber.ID {
		if resultingFirstChild == nil {
			return fiber.None
		}
		return resultingFirstChild.ID
	}

	oldFiber := p.arena.Get(currentFirstChild)
	for ; oldFiber != nil && newIdx < len(newChildren); newIdx++ {
		if oldFiber.Index > newIdx {
			nextOldFiber = oldFiber
			oldFiber = nil
		} else {
			nextOldFiber = p.arena.Get(oldFiber.Sibling)
		}

		newFiber, err := p.updateSlot(oldFiber, newChildren[newIdx], newIdx)
		if err != nil {
			return fiber.None, err
		}
		if newFiber == nil {
			if oldFiber == nil {
				oldFiber = nextOldFiber
			}
			break
		}
		if p.track && oldFiber != nil && newFiber.Alternate == fiber.None {
			// same slot, different type: the old node is replaced
			p.deleteChild(oldFiber)
		}

		lastPlacedIndex = p.placeChild(newFiber, lastPlacedIndex, newIdx)
		link(newFiber)
		oldFiber = nextOldFiber
	}

	if newIdx == len(newChildren) {
		p.deleteRemainingChildren(idOf(oldFiber))
		return first(), nil
	}

	if oldFiber == nil {
		for ; newIdx < len(newChildren); newIdx++ {
			newFiber, err := p.createChild(newChildren[newIdx], newIdx)
			if err != nil {
				return fiber.None, err
			}
			if newFiber == nil {
				continue
			}
			lastPlacedIndex = p.placeChild(newFiber, lastPlacedIndex, newIdx)
			link(newFiber)
		}
		return first(), nil
	}

	remaining := oldFiber
	existing := p.mapRemainingChildren(remaining)
	claimed := make(map[fiber.ID]struct{}, len(existing))
	for ; newIdx < len(newChildren); newIdx++ {
		newFiber, err := p.updateFromMap(existing, newChildren[newIdx], newIdx)
		if err != nil {
			return fiber.None, err
		}
		if newFiber == nil {
			continue
		}
		if newFiber.Alternate != fiber.None {
			// an old node is reused at most once
			delete(existing, slotOf(newFiber.Key, newIdx))
			claimed[newFiber.Alternate] = struct{}{}
		}
		lastPlacedIndex = p.placeChild(newFiber, lastPlacedIndex, newIdx)
		link(newFiber)
	}

	// unclaimed old children go in old sibling order
	if p.track {
		for child := remaining; child != nil; child = p.arena.Get(child.Sibling) {
			if _, ok := claimed[child.ID]; !ok {
				p.deleteChild(child)
			}
		}
	}
	return first(), nil
}

func idOf(f *fiber.Fiber) fiber.ID {
	if f == nil {
		return fiber.None
	}
	return f.ID
}
