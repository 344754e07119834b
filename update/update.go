// Package update holds per-node queues of pending state transitions and the
// fold that materializes them into state.
package update

import (
	"github.com/delaneyj/fiberparty/element"
	"github.com/delaneyj/fiberparty/expiration"
)

type Kind uint8

const (
	SetState Kind = iota
	ReplaceState
	ForceUpdate
	CaptureUpdate
)

func (k Kind) String() string {
	switch k {
	case SetState:
		return "SetState"
	case ReplaceState:
		return "ReplaceState"
	case ForceUpdate:
		return "ForceUpdate"
	case CaptureUpdate:
		return "CaptureUpdate"
	}
	return "Kind(?)"
}

type State map[string]any

// Merge returns a new state with partial's keys applied over s.
func (s State) Merge(partial State) State {
	out := make(State, len(s)+len(partial))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range partial {
		out[k] = v
	}
	return out
}

// Payload is the data carried by an update: either a Partial state object or
// a Func computing one from the previous state.
type Payload interface {
	resolve(prev State, props element.Props) State
}

type Partial State

func (p Partial) resolve(State, element.Props) State {
	return State(p)
}

type Func func(prev State, props element.Props) State

func (f Func) resolve(prev State, props element.Props) State {
	return f(prev, props)
}

type Update struct {
	ExpirationTime expiration.Time
	Kind           Kind
	Payload        Payload
	Callback       func()
}

func New(t expiration.Time, kind Kind, payload Payload, callback func()) *Update {
	if kind == ForceUpdate {
		payload = nil
	}
	return &Update{
		ExpirationTime: t,
		Kind:           kind,
		Payload:        payload,
		Callback:       callback,
	}
}

func (u *Update) eligible(renderTime expiration.Time) bool {
	return u.ExpirationTime >= renderTime
}

func (u *Update) apply(prev State, props element.Props) (next State, forced bool) {
	switch u.Kind {
	case ReplaceState:
		if u.Payload == nil {
			return nil, false
		}
		return u.Payload.resolve(prev, props), false
	case SetState, CaptureUpdate:
		if u.Payload == nil {
			return prev, false
		}
		partial := u.Payload.resolve(prev, props)
		if partial == nil {
			return prev, false
		}
		return prev.Merge(partial), false
	case ForceUpdate:
		return prev, true
	}
	return prev, false
}
