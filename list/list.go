package list

import (
	"iter"

	"github.com/wippyai/efi-runtime/layout"
)

// Link is the doubly linked list entry every firmware list record starts
// with. Both fields are foreign addresses.
type Link struct {
	Next uintptr
	Prev uintptr
}

// Cursor walks a firmware-owned list forward. It holds one non-owning
// address: the link last visited, starting at the list head. The head is a
// placeholder and is never yielded.
//
// T must mirror a record whose first field is a Link.
type Cursor[T any] struct {
	at uintptr
}

// NewCursor starts a walk at the head link at addr. A zero addr is an
// absent list and yields nothing.
func NewCursor[T any](head uintptr) *Cursor[T] {
	return &Cursor[T]{at: head}
}

// Next copies out the record after the current link and advances. It
// returns false once a link's Next is null. The walk does not detect
// cycles.
func (c *Cursor[T]) Next() (T, bool) {
	var zero T
	link := layout.At[Link](c.at)
	if link == nil || link.Next == 0 {
		c.at = 0
		return zero, false
	}
	c.at = link.Next
	return *layout.At[T](c.at), true
}

// Addr returns the address of the record last returned by Next.
func (c *Cursor[T]) Addr() uintptr {
	return c.at
}

// All drains the cursor. The sequence shares the cursor's position, so a
// second range over it yields nothing once the first has finished.
func (c *Cursor[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, ok := c.Next()
			if !ok || !yield(v) {
				return
			}
		}
	}
}
