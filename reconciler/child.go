package reconciler

import (
	"strconv"

	"github.com/containerd/log"
	"github.com/delaneyj/fiberparty/element"
	"github.com/delaneyj/fiberparty/expiration"
	"github.com/delaneyj/fiberparty/fiber"
)

// pass is one reconciliation of one parent's children. It runs to completion
// synchronously.
type pass struct {
	arena  *fiber.Arena
	logger *log.Entry
	debug  bool

	track       bool
	effects     *fiber.EffectList
	returnFiber *fiber.Fiber
	renderTime  expiration.Time
}

const childrenPath = "children"

func indexPath(i int) string {
	return childrenPath + "[" + strconv.Itoa(i) + "]"
}

func (p *pass) refuse(path string, value any, err error) error {
	return &ReconciliationError{
		Parent: p.returnFiber.ID,
		Path:   path,
		Value:  value,
		Err:    err,
	}
}

func (p *pass) reconcile(currentFirstChild fiber.ID, newChild any) (fiber.ID, error) {
	n := element.Normalize(newChild)
	if el, ok := n.(element.Element); ok && el.IsFragment() && el.Key == "" {
		n = element.Normalize(el.Props.Children())
	}

	switch n := n.(type) {
	case element.Element:
		if !element.Comparable(n.Type) {
			return fiber.None, p.refuse(childrenPath, n.Type, ErrNotComparable)
		}
		f, err := p.reconcileSingleElement(currentFirstChild, n)
		if err != nil {
			return fiber.None, p.refuse(childrenPath, n.Type, err)
		}
		return p.placeSingleChild(f).ID, nil
	case element.Portal:
		if !element.Comparable(n.Container) || !element.Comparable(n.Implementation) {
			return fiber.None, p.refuse(childrenPath, n.Container, ErrNotComparable)
		}
		return p.placeSingleChild(p.reconcileSinglePortal(currentFirstChild, n)).ID, nil
	case element.Text:
		return p.placeSingleChild(p.reconcileSingleTextNode(currentFirstChild, string(n))).ID, nil
	case element.Fragment:
		return p.reconcileChildrenArray(currentFirstChild, n)
	case element.Empty:
		p.deleteRemainingChildren(currentFirstChild)
		return fiber.None, nil
	case element.Unknown:
		return fiber.None, p.refuse(childrenPath, n.Value, ErrUnknownChild)
	}
	return fiber.None, p.refuse(childrenPath, n, ErrUnknownChild)
}

func (p *pass) deleteChild(child *fiber.Fiber) {
	if !p.track || child == nil {
		return
	}
	child.EffectTag = fiber.Deletion
	p.effects.Append(child)
	if p.debug {
		p.logger.WithFields(log.Fields{
			"parent": p.returnFiber.ID,
			"node":   child.ID,
			"key":    child.Key,
			"index":  child.Index,
		}).Debug("child deleted")
	}
}

func (p *pass) deleteRemainingChildren(currentFirstChild fiber.ID) {
	if !p.track {
		return
	}
	for child := p.arena.Get(currentFirstChild); child != nil; child = p.arena.Get(child.Sibling) {
		p.deleteChild(child)
	}
}

func (p *pass) markPlacement(f *fiber.Fiber) {
	f.EffectTag |= fiber.Placement
	p.effects.Append(f)
	if p.debug {
		p.logger.WithFields(log.Fields{
			"parent": p.returnFiber.ID,
			"node":   f.ID,
			"key":    f.Key,
			"index":  f.Index,
			"moved":  f.Alternate != fiber.None,
		}).Debug("child placed")
	}
}

// useFiber clones f into the work-in-progress tree as a lone child.
func (p *pass) useFiber(f *fiber.Fiber, pendingProps any) *fiber.Fiber {
	clone := p.arena.CreateWorkInProgress(f, pendingProps)
	clone.Index = 0
	clone.Sibling = fiber.None
	clone.Return = p.returnFiber.ID
	return clone
}

// placeChild sets the new position of newFiber and returns the updated last
// placed index. A reused node whose old position lies before the last placed
// index has moved backward and needs Placement; otherwise its old position
// becomes the new watermark.
func (p *pass) placeChild(newFiber *fiber.Fiber, lastPlacedIndex, newIdx int) int {
	newFiber.Index = newIdx
	if !p.track {
		return lastPlacedIndex
	}

	current := p.arena.Get(newFiber.Alternate)
	if current == nil {
		p.markPlacement(newFiber)
		return lastPlacedIndex
	}
	oldIndex := current.Index
	if oldIndex < lastPlacedIndex {
		p.markPlacement(newFiber)
		return lastPlacedIndex
	}
	return oldIndex
}

func (p *pass) placeSingleChild(newFiber *fiber.Fiber) *fiber.Fiber {
	if p.track && newFiber.Alternate == fiber.None {
		p.markPlacement(newFiber)
	}
	return newFiber
}

func (p *pass) createFragment(children any, key string) *fiber.Fiber {
	f := p.arena.CreateFromFragment(children, p.returnFiber.Mode, p.renderTime, key)
	f.Return = p.returnFiber.ID
	return f
}

func (p *pass) createText(text string) *fiber.Fiber {
	f := p.arena.CreateFromText(text, p.returnFiber.Mode, p.renderTime)
	f.Return = p.returnFiber.ID
	return f
}

func (p *pass) createElement(el element.Element) (*fiber.Fiber, error) {
	f, err := p.arena.CreateFromElement(el, p.returnFiber.Mode, p.renderTime)
	if err != nil {
		return nil, err
	}
	f.Return = p.returnFiber.ID
	return f, nil
}

func (p *pass) createPortal(portal element.Portal) *fiber.Fiber {
	f := p.arena.CreateFromPortal(portal, p.returnFiber.Mode, p.renderTime)
	f.Return = p.returnFiber.ID
	return f
}

func (p *pass) updateTextNode(current *fiber.Fiber, text string) *fiber.Fiber {
	if current == nil || current.Tag != fiber.HostText {
		return p.createText(text)
	}
	return p.useFiber(current, text)
}

func (p *pass) updateFragment(current *fiber.Fiber, children any, key string) *fiber.Fiber {
	if current == nil || current.Tag != fiber.Fragment {
		return p.createFragment(children, key)
	}
	return p.useFiber(current, children)
}

func (p *pass) updateElement(current *fiber.Fiber, el element.Element) (*fiber.Fiber, error) {
	if el.IsFragment() {
		return p.updateFragment(current, el.Props.Children(), el.Key), nil
	}
	if current != nil && current.ElementType == el.Type {
		return p.useFiber(current, el.Props), nil
	}
	return p.createElement(el)
}

func samePortal(current *fiber.Fiber, portal element.Portal) bool {
	if current == nil || current.Tag != fiber.HostPortal {
		return false
	}
	state, ok := current.StateNode.(*fiber.PortalState)
	return ok &&
		state.Container == portal.Container &&
		state.Implementation == portal.Implementation
}

func (p *pass) updatePortal(current *fiber.Fiber, portal element.Portal) *fiber.Fiber {
	if !samePortal(current, portal) {
		return p.createPortal(portal)
	}
	return p.useFiber(current, portal.Children)
}

func (p *pass) reconcileSingleElement(currentFirstChild fiber.ID, el element.Element) (*fiber.Fiber, error) {
	for child := p.arena.Get(currentFirstChild); child != nil; child = p.arena.Get(child.Sibling) {
		if child.Key != el.Key {
			p.deleteChild(child)
			continue
		}

		var sameType bool
		if child.Tag == fiber.Fragment {
			sameType = el.IsFragment()
		} else {
			sameType = child.ElementType == el.Type
		}
		if !sameType {
			p.deleteRemainingChildren(child.ID)
			break
		}

		p.deleteRemainingChildren(child.Sibling)
		if el.IsFragment() {
			return p.useFiber(child, el.Props.Children()), nil
		}
		return p.useFiber(child, el.Props), nil
	}

	if el.IsFragment() {
		return p.createFragment(el.Props.Children(), el.Key), nil
	}
	return p.createElement(el)
}

func (p *pass) reconcileSinglePortal(currentFirstChild fiber.ID, portal element.Portal) *fiber.Fiber {
	for child := p.arena.Get(currentFirstChild); child != nil; child = p.arena.Get(child.Sibling) {
		if child.Key != portal.Key {
			p.deleteChild(child)
			continue
		}
		if !samePortal(child, portal) {
			p.deleteRemainingChildren(child.ID)
			break
		}
		p.deleteRemainingChildren(child.Sibling)
		return p.useFiber(child, portal.Children)
	}
	return p.createPortal(portal)
}

func (p *pass) reconcileSingleTextNode(currentFirstChild fiber.ID, text string) *fiber.Fiber {
	if first := p.arena.Get(currentFirstChild); first != nil && first.Tag == fiber.HostText {
		p.deleteRemainingChildren(first.Sibling)
		return p.useFiber(first, text)
	}
	p.deleteRemainingChildren(currentFirstChild)
	return p.createText(text)
}
