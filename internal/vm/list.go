package vm

import "slices"

// entry is one slot of a List. Exactly one field is set.
//
// item is produced on demand and produced again on every enumeration.
// spread stands for a whole list whose evaluation is deferred; it is
// memoized by the frame that created it.
type entry struct {
	value  Value
	item   func() (Value, error)
	spread func() (*List, error)
}

func (e entry) lazy() bool { return e.item != nil || e.spread != nil }

// List is an immutable ordered list. Operations that extend a list return
// a new one sharing the old entries.
type List struct {
	entries []entry
}

// NewList returns a list holding values.
func NewList(values ...Value) *List {
	l := &List{entries: make([]entry, len(values))}
	for i, v := range values {
		l.entries[i] = entry{value: v}
	}
	return l
}

// Push returns a list with v appended.
func (l *List) Push(v Value) *List {
	return &List{entries: append(slices.Clip(l.entries), entry{value: v})}
}

// PushLazy returns a list with an item that is produced by fn each time
// the list is enumerated.
func (l *List) PushLazy(fn func() (Value, error)) *List {
	return &List{entries: append(slices.Clip(l.entries), entry{item: fn})}
}

// Deferred returns a list whose contents are produced by fn when first
// enumerated.
func Deferred(fn func() (*List, error)) *List {
	return &List{entries: []entry{{spread: fn}}}
}

// Concat returns the entries of l followed by those of other, without
// forcing either.
func (l *List) Concat(other *List) *List {
	return &List{entries: append(slices.Clip(l.entries), other.entries...)}
}

// Items forces every lazy entry and returns the values in order.
func (l *List) Items() ([]Value, error) {
	return l.appendItems(make([]Value, 0, len(l.entries)))
}

func (l *List) appendItems(out []Value) ([]Value, error) {
	for _, e := range l.entries {
		switch {
		case e.item != nil:
			v, err := e.item()
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		case e.spread != nil:
			inner, err := e.spread()
			if err != nil {
				return nil, err
			}
			if out, err = inner.appendItems(out); err != nil {
				return nil, err
			}
		default:
			out = append(out, e.value)
		}
	}
	return out, nil
}

// distinct returns values with later duplicates removed.
func distinct(values []Value) []Value {
	seen := make(map[Value]bool, len(values))
	out := make([]Value, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
