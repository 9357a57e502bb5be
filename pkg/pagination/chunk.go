package pagination

import (
	"errors"
	"fmt"
	"iter"
)

// ErrInvalidChunkSize is returned when a chunk size below one is requested.
var ErrInvalidChunkSize = errors.New("chunk size must be at least one")

// Chunk splits items into consecutive groups of size elements.
// The last group holds the remainder and may be shorter. Every call returns
// a new finite sequence; the yielded slices share items' backing array.
//
//	Chunk([]string{"A", "B", "C", "D", "E", "F", "G"}, 3) // [A B C] [D E F] [G]
func Chunk[T any](items []T, size int) (iter.Seq[[]T], error) {
	if size < 1 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidChunkSize, size)
	}

	return func(yield func([]T) bool) {
		for start := 0; start < len(items); start += size {
			end := min(start+size, len(items))
			if !yield(items[start:end:end]) {
				return
			}
		}
	}, nil
}
