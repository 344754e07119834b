// Package element describes the values a component can return as its
// children. Every child value is normalized into one variant of the closed
// Node union before the reconciler looks at it.
package element

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ChildrenProp is the props entry holding an element's children.
const ChildrenProp = "children"

type Symbol uint64

// FragmentType marks an element whose children are spliced into its parent.
var FragmentType = Symbol(xxhash.Sum64String("fiberparty.fragment") & 0x7fffffffffffffff)

func (s Symbol) String() string {
	if s == FragmentType {
		return "Fragment"
	}
	return "Symbol(" + strconv.FormatUint(uint64(s), 16) + ")"
}

type Props map[string]any

func (p Props) Children() any {
	if p == nil {
		return nil
	}
	return p[ChildrenProp]
}

// Component is implemented by element types backed by a stateful instance.
type Component interface {
	DisplayName() string
}

type Node interface {
	isNode()
}

type Element struct {
	// Type is a host tag (string), a Component, or FragmentType.
	Type  any
	Key   string
	Props Props
}

type Portal struct {
	Key            string
	Container      any
	Implementation any
	Children       any
}

type Text string

// Fragment is an array of children.
type Fragment []Node

// Empty renders nothing: nil and booleans normalize to it.
type Empty struct{}

// Unknown carries a child value of a shape the reconciler cannot handle.
type Unknown struct {
	Value any
}

func (Element) isNode()  {}
func (Portal) isNode()   {}
func (Text) isNode()     {}
func (Fragment) isNode() {}
func (Empty) isNode()    {}
func (Unknown) isNode()  {}

func (e Element) IsFragment() bool {
	return e.Type == FragmentType
}

// New builds an element. A single child is stored as is, several children
// are stored as a []any.
func New(typ any, key string, props Props, children ...any) Element {
	p := make(Props, len(props)+1)
	for k, v := range props {
		p[k] = v
	}
	switch len(children) {
	case 0:
	case 1:
		p[ChildrenProp] = children[0]
	default:
		p[ChildrenProp] = children
	}
	return Element{Type: typ, Key: key, Props: p}
}

func NewFragment(key string, children ...any) Element {
	return New(FragmentType, key, nil, children...)
}

func NewPortal(key string, container, implementation any, children ...any) Portal {
	p := Portal{Key: key, Container: container, Implementation: implementation}
	switch len(children) {
	case 0:
	case 1:
		p.Children = children[0]
	default:
		p.Children = children
	}
	return p
}

// Normalize maps an arbitrary child value onto the Node union.
func Normalize(v any) Node {
	switch v := v.(type) {
	case nil:
		return Empty{}
	case *Element:
		if v == nil {
			return Empty{}
		}
		return *v
	case *Portal:
		if v == nil {
			return Empty{}
		}
		return *v
	case Fragment:
		return v
	case Node:
		return v
	case string:
		return Text(v)
	case bool:
		return Empty{}
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return Text(fmt.Sprint(v))
	case []Node:
		return Fragment(v)
	case []any:
		out := make(Fragment, len(v))
		for i, c := range v {
			out[i] = Normalize(c)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make(Fragment, rv.Len())
		for i := range out {
			out[i] = Normalize(rv.Index(i).Interface())
		}
		return out
	}
	return Unknown{Value: v}
}

// Comparable reports whether v can be used as an element type or portal
// container without panicking on ==.
func Comparable(v any) bool {
	if v == nil {
		return true
	}
	return reflect.TypeOf(v).Comparable()
}

// TypeName gives a printable name for an element type.
func TypeName(typ any) string {
	switch t := typ.(type) {
	case string:
		return t
	case Component:
		return t.DisplayName()
	case Symbol:
		return t.String()
	case nil:
		return "<nil>"
	}
	return fmt.Sprintf("%T", typ)
}
