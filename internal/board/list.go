package board

import (
	"errors"
	"fmt"
)

var ErrIndexOutOfRange = errors.New("index out of range")

// InsertFront returns a new list with rec at position 0. The argument is not modified.
func InsertFront[T any](list []T, rec T) []T {
	out := make([]T, 0, len(list)+1)
	out = append(out, rec)
	return append(out, list...)
}

// RemoveAt returns a new list without the element at i, keeping the relative
// order of the rest. The argument is not modified.
func RemoveAt[T any](list []T, i int) ([]T, error) {
	if i < 0 || i >= len(list) {
		return nil, fmt.Errorf("remove %d of %d: %w", i, len(list), ErrIndexOutOfRange)
	}
	out := make([]T, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...), nil
}
