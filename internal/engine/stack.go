package engine

// Stack is a last-in-first-out list. The history keeps two of them, one for
// undo and one for redo.
//
// Stack is not safe for concurrent use.
type Stack[T any] struct {
	items []T
}

// NewStack creates an empty stack.
func NewStack[T any]() *Stack[T] {
	return &Stack[T]{}
}

// Push adds item on top.
func (s *Stack[T]) Push(item T) {
	s.items = append(s.items, item)
}

// Pop removes and returns the top item.
// On an empty stack it returns the zero value and false.
func (s *Stack[T]) Pop() (T, bool) {
	var zero T
	if len(s.items) == 0 {
		return zero, false
	}
	top := s.items[len(s.items)-1]
	s.items[len(s.items)-1] = zero
	s.items = s.items[:len(s.items)-1]
	return top, true
}

// Peek returns the top item without removing it.
func (s *Stack[T]) Peek() (T, bool) {
	if len(s.items) == 0 {
		var zero T
		return zero, false
	}
	return s.items[len(s.items)-1], true
}

// DropBottom removes and returns the oldest item.
func (s *Stack[T]) DropBottom() (T, bool) {
	var zero T
	if len(s.items) == 0 {
		return zero, false
	}
	bottom := s.items[0]
	s.items[0] = zero
	s.items = s.items[1:]
	return bottom, true
}

// Clear removes every item.
func (s *Stack[T]) Clear() {
	clear(s.items)
	s.items = s.items[:0]
}

// IsEmpty reports whether the stack holds no items.
func (s *Stack[T]) IsEmpty() bool {
	return len(s.items) == 0
}

// Len returns the number of items.
func (s *Stack[T]) Len() int {
	return len(s.items)
}

// ToSlice returns a copy of the items from bottom to top (oldest first).
func (s *Stack[T]) ToSlice() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Reversed returns a copy of the items from top to bottom (most recent first).
func (s *Stack[T]) Reversed() []T {
	out := make([]T, len(s.items))
	for i, item := range s.items {
		out[len(s.items)-1-i] = item
	}
	return out
}
