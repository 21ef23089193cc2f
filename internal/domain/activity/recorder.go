package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rpggio/setlistd/internal/domain/playback"
	"github.com/rpggio/setlistd/internal/events"
)

// Recorder turns bus notifications into activity entries.
type Recorder struct {
	svc       *Service
	projectID func() string

	lastSelected string
}

// NewRecorder creates a recorder. projectID reports the active project at
// the time each event is recorded.
func NewRecorder(svc *Service, projectID func() string) *Recorder {
	return &Recorder{svc: svc, projectID: projectID}
}

// Run consumes events until ctx is done or the channel closes.
func (r *Recorder) Run(ctx context.Context, in <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			entry := r.entryFor(ev)
			if entry == nil {
				continue
			}
			if err := r.svc.LogActivity(ctx, entry); err != nil {
				r.svc.logger.Warn("failed to record activity", "type", entry.ActivityType, "error", err)
			}
		}
	}
}

func (r *Recorder) entryFor(ev events.Event) *ActivityEntry {
	entry := &ActivityEntry{ProjectID: r.projectID(), CreatedAt: ev.At}

	switch ev.Kind {
	case events.TransitionCompleted, events.TransitionFailed:
		tr, ok := ev.Payload.(events.Transition)
		if !ok {
			return nil
		}
		entry.ActivityType = TypeTransitionCompleted
		entry.Summary = fmt.Sprintf("%s to region %s", tr.Action, tr.ToRegionID)
		if ev.Kind == events.TransitionFailed {
			entry.ActivityType = TypeTransitionFailed
			entry.Summary = fmt.Sprintf("%s failed: %s", tr.Action, tr.Reason)
		}
		if tr.ToRegionID != "" {
			entry.RegionID = &tr.ToRegionID
		}
		entry.Details = marshalDetails(tr)
	case events.PlaybackStateChanged:
		st, ok := ev.Payload.(playback.State)
		if !ok || st.SelectedSetlistID == r.lastSelected {
			return nil
		}
		r.lastSelected = st.SelectedSetlistID
		entry.ActivityType = TypeSetlistSelected
		if st.SelectedSetlistID == "" {
			entry.Summary = "setlist selection cleared"
		} else {
			id := st.SelectedSetlistID
			entry.SetlistID = &id
			entry.Summary = "selected setlist " + id
		}
	case events.ConnectivityDegraded:
		entry.ActivityType = TypeConnectivityDegraded
		entry.Summary = "lost contact with the DAW"
		if reason, ok := ev.Payload.(string); ok {
			entry.Details = marshalDetails(map[string]string{"reason": reason})
		}
	case events.ConnectivityRestored:
		entry.ActivityType = TypeConnectivityRestored
		entry.Summary = "DAW connection restored"
	case events.ProjectChanged:
		entry.ActivityType = TypeProjectChanged
		entry.Summary = "active project changed"
		if id, ok := ev.Payload.(string); ok {
			entry.ProjectID = id
		}
	default:
		return nil
	}
	return entry
}

func marshalDetails(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
