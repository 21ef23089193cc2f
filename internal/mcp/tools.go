package mcp

import (
	"context"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/setlistd/internal/domain/activity"
	"github.com/rpggio/setlistd/internal/domain/setlist"
	"github.com/rpggio/setlistd/internal/navigation"
)

type tools struct {
	svc Services
}

func registerTools(server *sdkmcp.Server, svc Services) {
	t := &tools{svc: svc}

	// Playback
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_playback_state",
		Description: "Get the live playback state: transport, current region, tempo, toggles and selected setlist",
	}, t.getPlaybackState)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "next",
		Description: "Move to the next setlist item, or the next region when no setlist is selected",
	}, t.next)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "previous",
		Description: "Move to the previous setlist item, or the previous region when no setlist is selected",
	}, t.previous)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "toggle_play",
		Description: "Pause when playing, play otherwise",
	}, t.togglePlay)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "seek_to_region",
		Description: "Move the play cursor into a region, optionally starting playback or pre-rolling",
	}, t.seekToRegion)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "select_setlist",
		Description: "Select a setlist and park the cursor on its first item, paused",
	}, t.selectSetlist)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "set_autoplay",
		Description: "Enable or disable automatic advancing at the end of each item",
	}, t.setAutoplay)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "set_count_in",
		Description: "Enable or disable the two-bar count-in for next and previous",
	}, t.setCountIn)

	// Catalog
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_regions",
		Description: "List the project's regions in timeline order, with their tag directives, and markers",
	}, t.listRegions)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_setlists",
		Description: "List the setlists of the open project",
	}, t.listSetlists)

	// Setlist editing
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "create_setlist",
		Description: "Create an empty setlist",
	}, t.createSetlist)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "rename_setlist",
		Description: "Rename a setlist",
	}, t.renameSetlist)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "delete_setlist",
		Description: "Delete a setlist; deleting the selected one clears the selection",
	}, t.deleteSetlist)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "add_setlist_item",
		Description: "Append a region to a setlist",
	}, t.addSetlistItem)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "remove_setlist_item",
		Description: "Remove an item from a setlist",
	}, t.removeSetlistItem)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "move_setlist_item",
		Description: "Move a setlist item from one position to another",
	}, t.moveSetlistItem)

	// Review
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_projects",
		Description: "List the DAW projects setlistd has seen",
	}, t.listProjects)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "recent_activity",
		Description: "List recent transitions, failures and connectivity changes, newest first",
	}, t.recentActivity)
}

func (t *tools) state() PlaybackStateResult {
	res := PlaybackStateResult{State: t.svc.Navigation.State()}
	if t.svc.Status != nil {
		res.Phase = t.svc.Status.Phase()
		res.ProjectID = t.svc.Status.ProjectID()
		res.Connectivity = "ok"
		if t.svc.Status.Degraded() {
			res.Connectivity = "degraded"
		}
	}
	return res
}

func (t *tools) getPlaybackState(_ context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, PlaybackStateResult, error) {
	return nil, t.state(), nil
}

func (t *tools) next(ctx context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, PlaybackStateResult, error) {
	if err := t.svc.Navigation.Next(ctx); err != nil {
		return nil, PlaybackStateResult{}, toolError(err)
	}
	return nil, t.state(), nil
}

func (t *tools) previous(ctx context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, PlaybackStateResult, error) {
	if err := t.svc.Navigation.Previous(ctx); err != nil {
		return nil, PlaybackStateResult{}, toolError(err)
	}
	return nil, t.state(), nil
}

func (t *tools) togglePlay(ctx context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, PlaybackStateResult, error) {
	if _, err := t.svc.Navigation.TogglePlay(ctx); err != nil {
		return nil, PlaybackStateResult{}, toolError(err)
	}
	return nil, t.state(), nil
}

func (t *tools) seekToRegion(ctx context.Context, _ *sdkmcp.CallToolRequest, in SeekToRegionParams) (*sdkmcp.CallToolResult, PlaybackStateResult, error) {
	if strings.TrimSpace(in.RegionID) == "" {
		return nil, PlaybackStateResult{}, &APIError{Code: "INVALID_INPUT", Message: "region_id is required"}
	}
	err := t.svc.Navigation.SeekToRegion(ctx, in.RegionID, navigation.SeekOptions{Autoplay: in.Autoplay, CountIn: in.CountIn})
	if err != nil {
		return nil, PlaybackStateResult{}, toolError(err)
	}
	return nil, t.state(), nil
}

func (t *tools) selectSetlist(ctx context.Context, _ *sdkmcp.CallToolRequest, in SelectSetlistParams) (*sdkmcp.CallToolResult, PlaybackStateResult, error) {
	if err := t.svc.Navigation.SelectSetlist(ctx, in.SetlistID); err != nil {
		return nil, PlaybackStateResult{}, toolError(err)
	}
	return nil, t.state(), nil
}

func (t *tools) setAutoplay(_ context.Context, _ *sdkmcp.CallToolRequest, in ToggleParams) (*sdkmcp.CallToolResult, PlaybackStateResult, error) {
	t.svc.Navigation.SetAutoplay(in.Enabled)
	return nil, t.state(), nil
}

func (t *tools) setCountIn(_ context.Context, _ *sdkmcp.CallToolRequest, in ToggleParams) (*sdkmcp.CallToolResult, PlaybackStateResult, error) {
	t.svc.Navigation.SetCountIn(in.Enabled)
	return nil, t.state(), nil
}

func (t *tools) listRegions(_ context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, ListRegionsResult, error) {
	regions := t.svc.Regions.All()
	markers := t.svc.Regions.Markers()
	res := ListRegionsResult{
		Regions: make([]RegionView, 0, len(regions)),
		Markers: make([]MarkerView, 0, len(markers)),
	}
	for _, r := range regions {
		res.Regions = append(res.Regions, toRegionView(r, t.svc.Regions.Directives(r)))
	}
	for _, m := range markers {
		res.Markers = append(res.Markers, MarkerView{ID: m.ID, Name: m.Name, Position: m.Position})
	}
	return nil, res, nil
}

func (t *tools) listSetlists(_ context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, ListSetlistsResult, error) {
	all := t.svc.Setlists.All()
	res := ListSetlistsResult{
		Setlists:          make([]SetlistView, 0, len(all)),
		SelectedSetlistID: t.svc.Navigation.State().SelectedSetlistID,
	}
	for _, s := range all {
		res.Setlists = append(res.Setlists, toSetlistView(s))
	}
	return nil, res, nil
}

func (t *tools) createSetlist(ctx context.Context, _ *sdkmcp.CallToolRequest, in CreateSetlistParams) (*sdkmcp.CallToolResult, SetlistView, error) {
	s, err := t.svc.Setlists.Create(ctx, in.Name)
	if err != nil {
		return nil, SetlistView{}, toolError(err)
	}
	return nil, toSetlistView(*s), nil
}

func (t *tools) renameSetlist(ctx context.Context, _ *sdkmcp.CallToolRequest, in RenameSetlistParams) (*sdkmcp.CallToolResult, SetlistView, error) {
	if err := t.svc.Setlists.Rename(ctx, in.SetlistID, in.Name); err != nil {
		return nil, SetlistView{}, toolError(err)
	}
	return t.setlistView(in.SetlistID)
}

func (t *tools) deleteSetlist(ctx context.Context, _ *sdkmcp.CallToolRequest, in DeleteSetlistParams) (*sdkmcp.CallToolResult, DeleteSetlistResult, error) {
	selected := t.svc.Navigation.State().SelectedSetlistID
	if err := t.svc.Setlists.Delete(ctx, in.SetlistID); err != nil {
		return nil, DeleteSetlistResult{}, toolError(err)
	}
	if selected == in.SetlistID {
		if err := t.svc.Navigation.SelectSetlist(ctx, ""); err != nil {
			return nil, DeleteSetlistResult{}, toolError(err)
		}
	}
	return nil, DeleteSetlistResult{ID: in.SetlistID, Deleted: true}, nil
}

func (t *tools) addSetlistItem(ctx context.Context, _ *sdkmcp.CallToolRequest, in AddSetlistItemParams) (*sdkmcp.CallToolResult, SetlistView, error) {
	rg, err := t.svc.Regions.Get(in.RegionID)
	if err != nil {
		return nil, SetlistView{}, toolError(err)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = rg.Name
	}
	if _, err := t.svc.Setlists.AddItem(ctx, in.SetlistID, rg.ID, name); err != nil {
		return nil, SetlistView{}, toolError(err)
	}
	return t.setlistView(in.SetlistID)
}

func (t *tools) removeSetlistItem(ctx context.Context, _ *sdkmcp.CallToolRequest, in RemoveSetlistItemParams) (*sdkmcp.CallToolResult, SetlistView, error) {
	if err := t.svc.Setlists.RemoveItem(ctx, in.SetlistID, in.ItemID); err != nil {
		return nil, SetlistView{}, toolError(err)
	}
	return t.setlistView(in.SetlistID)
}

func (t *tools) moveSetlistItem(ctx context.Context, _ *sdkmcp.CallToolRequest, in MoveSetlistItemParams) (*sdkmcp.CallToolResult, SetlistView, error) {
	if err := t.svc.Setlists.MoveItem(ctx, in.SetlistID, in.From, in.To); err != nil {
		return nil, SetlistView{}, toolError(err)
	}
	return t.setlistView(in.SetlistID)
}

func (t *tools) setlistView(id string) (*sdkmcp.CallToolResult, SetlistView, error) {
	s, err := t.svc.Setlists.Get(id)
	if err != nil {
		return nil, SetlistView{}, toolError(err)
	}
	return nil, toSetlistView(s), nil
}

func (t *tools) listProjects(ctx context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, ListProjectsResult, error) {
	if t.svc.Projects == nil {
		return nil, ListProjectsResult{Projects: []ProjectView{}}, nil
	}
	projects, err := t.svc.Projects.List(ctx)
	if err != nil {
		return nil, ListProjectsResult{}, toolError(err)
	}
	res := ListProjectsResult{Projects: make([]ProjectView, 0, len(projects))}
	for _, p := range projects {
		res.Projects = append(res.Projects, toProjectView(p))
	}
	return nil, res, nil
}

func (t *tools) recentActivity(ctx context.Context, _ *sdkmcp.CallToolRequest, in RecentActivityParams) (*sdkmcp.CallToolResult, RecentActivityResult, error) {
	if t.svc.Activity == nil {
		return nil, RecentActivityResult{Entries: []ActivityView{}}, nil
	}
	projectID := in.ProjectID
	if projectID == "" && t.svc.Status != nil {
		projectID = t.svc.Status.ProjectID()
	}
	if projectID == "" {
		return nil, RecentActivityResult{}, toolError(setlist.ErrNoProject)
	}
	opts := activity.ListActivityOptions{ProjectID: projectID, Limit: in.Limit, Offset: in.Offset}
	if in.Type != "" {
		typ := activity.ActivityType(in.Type)
		opts.ActivityType = &typ
	}
	entries, err := t.svc.Activity.GetRecentActivity(ctx, opts)
	if err != nil {
		return nil, RecentActivityResult{}, toolError(err)
	}
	res := RecentActivityResult{Entries: make([]ActivityView, 0, len(entries))}
	for _, e := range entries {
		res.Entries = append(res.Entries, toActivityView(e))
	}
	return nil, res, nil
}
