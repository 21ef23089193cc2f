package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/setlistd/internal/daw"
	"github.com/rpggio/setlistd/internal/domain/activity"
	"github.com/rpggio/setlistd/internal/domain/project"
	"github.com/rpggio/setlistd/internal/domain/region"
	"github.com/rpggio/setlistd/internal/domain/setlist"
	"github.com/rpggio/setlistd/internal/navigation"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, navigation.ErrTransitionInProgress):
		return &APIError{Code: "TRANSITION_IN_PROGRESS", Message: "a transition is already running", RecoveryHint: "Retry once it completes"}
	case errors.Is(err, navigation.ErrNoTarget):
		return &APIError{Code: "NO_TARGET", Message: "nothing to move to"}
	case errors.Is(err, daw.ErrUnavailable):
		return &APIError{Code: "DAW_UNAVAILABLE", Message: "the DAW did not respond", RecoveryHint: "Check that the REAPER web interface is running"}
	case errors.Is(err, setlist.ErrSetlistNotFound):
		return &APIError{Code: "SETLIST_NOT_FOUND", Message: "setlist not found", RecoveryHint: "Call list_setlists"}
	case errors.Is(err, setlist.ErrItemNotFound):
		return &APIError{Code: "ITEM_NOT_FOUND", Message: "setlist item not found", RecoveryHint: "Call list_setlists"}
	case errors.Is(err, region.ErrRegionNotFound):
		return &APIError{Code: "REGION_NOT_FOUND", Message: "region not found", RecoveryHint: "Call list_regions"}
	case errors.Is(err, project.ErrProjectNotFound):
		return &APIError{Code: "PROJECT_NOT_FOUND", Message: "project not found"}
	case errors.Is(err, navigation.ErrNotFound):
		return &APIError{Code: "NOT_FOUND", Message: "target not found", RecoveryHint: "Call list_regions or list_setlists"}
	case errors.Is(err, setlist.ErrInvalidPosition):
		return &APIError{Code: "INVALID_POSITION", Message: "position out of range"}
	case errors.Is(err, setlist.ErrNoProject):
		return &APIError{Code: "NO_PROJECT", Message: "no DAW project loaded yet", RecoveryHint: "Open a project in REAPER"}
	case errors.Is(err, setlist.ErrInvalidInput),
		errors.Is(err, project.ErrInvalidInput),
		errors.Is(err, activity.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	default:
		return nil
	}
}

// toolError converts a domain error into the error a tool returns.
func toolError(err error) error {
	if api := MapError(err); api != nil {
		return api
	}
	return err
}
