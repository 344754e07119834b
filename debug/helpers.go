// Package debug renders fiber trees and effect lists as indented text.
package debug

import (
	"strings"

	"github.com/delaneyj/fiberparty/element"
	"github.com/delaneyj/fiberparty/fiber"
)

//go:generate qtc -dir=.

func indent(depth int) string {
	return strings.Repeat("  ", depth)
}

func typeName(f *fiber.Fiber) string {
	switch f.Tag {
	case fiber.HostComponent, fiber.ClassComponent:
		return element.TypeName(f.ElementType)
	}
	return ""
}

func textOf(f *fiber.Fiber) (string, bool) {
	if f.Tag != fiber.HostText {
		return "", false
	}
	if s, ok := f.PendingProps.(string); ok {
		return s, true
	}
	s, ok := f.MemoizedProps.(string)
	return s, ok
}
