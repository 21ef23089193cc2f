package navigation

import (
	"errors"

	"github.com/rpggio/setlistd/internal/engine"
)

var (
	// ErrNoTarget indicates there is nothing to move to (start or end of the
	// setlist or timeline).
	ErrNoTarget = errors.New("no navigation target")
	// ErrNotFound indicates the requested region or setlist doesn't exist.
	ErrNotFound = errors.New("not found")
	// ErrTransitionInProgress is returned while another transition runs.
	ErrTransitionInProgress = engine.ErrTransitionInProgress
)
