package activity_test

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/setlistd/internal/domain/activity"
	"github.com/rpggio/setlistd/internal/domain/playback"
	"github.com/rpggio/setlistd/internal/events"
	"github.com/rpggio/setlistd/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestActivityService_LogAndList(t *testing.T) {
	ctx := context.Background()

	repo := &mocks.ActivityRepository{}
	entry := &activity.ActivityEntry{
		ProjectID:    "proj1",
		ActivityType: activity.TypeTransitionCompleted,
		Summary:      "advanced",
	}

	repo.On("Log", ctx, entry).Return(nil)
	repo.On("List", ctx, activity.ListActivityOptions{ProjectID: "proj1", Limit: 50}).Return([]activity.ActivityEntry{}, nil)

	svc := activity.NewService(repo, nil)
	require.NoError(t, svc.LogActivity(ctx, entry))
	require.False(t, entry.CreatedAt.IsZero())
	_, err := svc.GetRecentActivity(ctx, activity.ListActivityOptions{ProjectID: "proj1"})
	require.NoError(t, err)
}

func TestActivityService_LogRejectsEmpty(t *testing.T) {
	svc := activity.NewService(&mocks.ActivityRepository{}, nil)
	require.ErrorIs(t, svc.LogActivity(context.Background(), nil), activity.ErrInvalidInput)
	require.ErrorIs(t, svc.LogActivity(context.Background(), &activity.ActivityEntry{}), activity.ErrInvalidInput)
}

func TestRecorder_RecordsTransitionsAndSelection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logged := make(chan *activity.ActivityEntry, 8)
	repo := &mocks.ActivityRepository{}
	repo.On("Log", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		logged <- args.Get(1).(*activity.ActivityEntry)
	}).Return(nil)

	rec := activity.NewRecorder(activity.NewService(repo, nil), func() string { return "proj1" })
	in := make(chan events.Event, 8)
	done := make(chan struct{})
	go func() {
		rec.Run(ctx, in)
		close(done)
	}()

	now := time.Now()
	in <- events.Event{Kind: events.TransitionCompleted, At: now, Payload: events.Transition{ToRegionID: "2", Action: "advance", Automatic: true}}
	st := playback.DefaultState()
	st.SelectedSetlistID = "s1"
	in <- events.Event{Kind: events.PlaybackStateChanged, At: now, Payload: st}
	st.Position = 12
	in <- events.Event{Kind: events.PlaybackStateChanged, At: now, Payload: st}
	in <- events.Event{Kind: events.RegionsChanged, At: now}
	in <- events.Event{Kind: events.ConnectivityDegraded, At: now, Payload: "3 consecutive poll failures"}
	close(in)
	<-done

	require.Len(t, logged, 3)
	first := <-logged
	require.Equal(t, activity.TypeTransitionCompleted, first.ActivityType)
	require.Equal(t, "proj1", first.ProjectID)
	require.Equal(t, "2", *first.RegionID)
	second := <-logged
	require.Equal(t, activity.TypeSetlistSelected, second.ActivityType)
	require.Equal(t, "s1", *second.SetlistID)
	third := <-logged
	require.Equal(t, activity.TypeConnectivityDegraded, third.ActivityType)
	require.Contains(t, third.Details, "consecutive")
}
