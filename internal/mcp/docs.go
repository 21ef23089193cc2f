package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `setlistd drives a REAPER project from setlists while it plays.

Core concepts:
- Region: a named span of the REAPER timeline; one song or section.
- Setlist: an ordered list of items, each pointing at a region.
- Autoplay: when on, the end of each item flows into the next one.
- Count-in: two bars of pre-roll before next/previous land on a region.

Workflow:
1) Orient: get_playback_state, list_regions, list_setlists.
2) Prepare: create_setlist, add_setlist_item, move_setlist_item.
3) Perform: select_setlist parks on the first item, then toggle_play.
   next/previous/seek_to_region jump at any time.
4) Review: recent_activity shows transitions and connectivity drops.

Errors carry a code such as TRANSITION_IN_PROGRESS or DAW_UNAVAILABLE;
neither is fatal, retry after a moment.`

// stateResourceURI serves the live playback state.
const stateResourceURI = "setlistd://state"

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "setlistd://docs/marker-tags",
		Name:        "marker-tags",
		Title:       "Marker tags",
		Description: "Directives recognised in marker names",
		Content: `# Marker tags

Tags are written into the names of markers placed inside a region,
separated by spaces. The first value of each kind wins.

- !bpm:<n>: the tempo at the start of the region. Used to seed the
  tempo estimate after every jump.
- !1008: never advance automatically past this region; playback
  pauses at its end.
- !length:<seconds>: with !1008, pause this long after the region
  start instead of at its end.

Example marker name: "!1008 !length:42.5"
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}

func registerStateResource(server *sdkmcp.Server, svc Services) {
	t := &tools{svc: svc}
	server.AddResource(&sdkmcp.Resource{
		URI:         stateResourceURI,
		Name:        "playback-state",
		Title:       "Playback state",
		Description: "Live transport, region and setlist selection",
		MIMEType:    "application/json",
	}, func(_ context.Context, _ *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
		data, err := json.Marshal(t.state())
		if err != nil {
			return nil, fmt.Errorf("encoding state: %w", err)
		}
		return &sdkmcp.ReadResourceResult{
			Contents: []*sdkmcp.ResourceContents{{
				URI:      stateResourceURI,
				MIMEType: "application/json",
				Text:     string(data),
			}},
		}, nil
	})
}
