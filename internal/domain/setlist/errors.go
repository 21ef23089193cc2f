package setlist

import "errors"

var (
	// ErrSetlistNotFound indicates the setlist doesn't exist.
	ErrSetlistNotFound = errors.New("setlist not found")
	// ErrItemNotFound indicates the setlist item doesn't exist.
	ErrItemNotFound = errors.New("setlist item not found")
	// ErrNoAdjacentItem indicates there is no item before/after the current one.
	ErrNoAdjacentItem = errors.New("no adjacent setlist item")
	// ErrInvalidPosition indicates an out-of-range item position.
	ErrInvalidPosition = errors.New("invalid setlist position")
	// ErrInvalidInput indicates invalid setlist input.
	ErrInvalidInput = errors.New("invalid setlist input")
	// ErrNoProject indicates no project has been loaded yet.
	ErrNoProject = errors.New("no project loaded")
)
