package handle

// Typed gives type-safe access to the handles of one kind in a Table.
type Typed[T any] struct {
	table *Table
	kind  Kind
}

// NewTyped wraps t for values of kind.
func NewTyped[T any](t *Table, kind Kind) *Typed[T] {
	return &Typed[T]{table: t, kind: kind}
}

// Insert stores v and returns its handle.
func (t *Typed[T]) Insert(v T) (Handle, error) {
	return t.table.Insert(t.kind, v)
}

// Get returns the value behind h if h is of this kind.
func (t *Typed[T]) Get(h Handle) (T, bool) {
	v, ok := t.table.GetKind(h, t.kind)
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

// Remove drops h if it is of this kind.
func (t *Typed[T]) Remove(h Handle) (T, bool) {
	var zero T
	if _, ok := t.table.GetKind(h, t.kind); !ok {
		return zero, false
	}
	v, ok := t.table.Remove(h)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

// Len counts live handles of this kind.
func (t *Typed[T]) Len() int {
	n := 0
	t.table.Each(func(_ Handle, k Kind, _ any) bool {
		if k == t.kind {
			n++
		}
		return true
	})
	return n
}

// Each visits live handles of this kind in issue order.
func (t *Typed[T]) Each(fn func(Handle, T) bool) {
	t.table.Each(func(h Handle, k Kind, v any) bool {
		if k != t.kind {
			return true
		}
		typed, ok := v.(T)
		if !ok {
			return true
		}
		return fn(h, typed)
	})
}
