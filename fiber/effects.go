package fiber

import mapset "github.com/deckarep/golang-set/v2"

// EffectList collects the nodes carrying effects for the commit phase in the
// order they were tagged. A node is recorded at most once.
type EffectList struct {
	ids  []ID
	seen mapset.Set[ID]
}

func NewEffectList() *EffectList {
	return &EffectList{seen: mapset.NewThreadUnsafeSet[ID]()}
}

// Append records f and reports whether it was not yet present.
func (l *EffectList) Append(f *Fiber) bool {
	if !l.seen.Add(f.ID) {
		return false
	}
	l.ids = append(l.ids, f.ID)
	return true
}

func (l *EffectList) Len() int {
	return len(l.ids)
}

func (l *EffectList) Contains(id ID) bool {
	return l.seen.Contains(id)
}

func (l *EffectList) IDs() []ID {
	out := make([]ID, len(l.ids))
	copy(out, l.ids)
	return out
}

// Concat appends other's entries after l's, keeping the at-most-once rule.
func (l *EffectList) Concat(a *Arena, other *EffectList) {
	if other == nil {
		return
	}
	for _, id := range other.ids {
		if f := a.Get(id); f != nil {
			l.Append(f)
		}
	}
}
