package testserver

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/rpggio/setlistd/internal/daw"
)

// FakeReaper serves the subset of REAPER's web interface setlistd uses,
// backed by an in-memory transport.
type FakeReaper struct {
	Server *httptest.Server

	mu        sync.Mutex
	playState daw.PlayState
	position  float64
	bpm       float64
	signature daw.TimeSignature
	regions   []daw.RegionInfo
	markers   []daw.MarkerInfo
	extState  map[string]string
	commands  []string
	failing   bool
}

// NewFakeReaper starts a fake web interface, stopped at 0s, 120 BPM, 4/4.
func NewFakeReaper(t *testing.T) *FakeReaper {
	t.Helper()
	f := &FakeReaper{
		bpm:       120,
		signature: daw.CommonTime,
		extState:  make(map[string]string),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL of the fake.
func (f *FakeReaper) URL() string {
	return f.Server.URL
}

// SetTransport sets play state and cursor position.
func (f *FakeReaper) SetTransport(state daw.PlayState, position float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playState = state
	f.position = position
}

// SetTempo sets the tempo used to derive beat positions, and the meter.
func (f *FakeReaper) SetTempo(bpm float64, ts daw.TimeSignature) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bpm = bpm
	f.signature = ts
}

// SetRegions replaces the region listing.
func (f *FakeReaper) SetRegions(regions ...daw.RegionInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regions = append([]daw.RegionInfo(nil), regions...)
}

// SetMarkers replaces the marker listing.
func (f *FakeReaper) SetMarkers(markers ...daw.MarkerInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markers = append([]daw.MarkerInfo(nil), markers...)
}

// SetFailing makes every request answer 503.
func (f *FakeReaper) SetFailing(failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = failing
}

// SetExtState presets a project extended state value.
func (f *FakeReaper) SetExtState(section, key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extState[section+"/"+key] = value
}

// ExtState reads a project extended state value.
func (f *FakeReaper) ExtState(section, key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.extState[section+"/"+key]
}

// Transport returns the current play state and position.
func (f *FakeReaper) Transport() (daw.PlayState, float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playState, f.position
}

// Commands returns the state-changing commands received so far, in order.
func (f *FakeReaper) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

// ResetCommands clears the command history.
func (f *FakeReaper) ResetCommands() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = nil
}

func (f *FakeReaper) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failing {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	raw, ok := strings.CutPrefix(r.URL.EscapedPath(), "/_/")
	if !ok {
		http.NotFound(w, r)
		return
	}

	var out strings.Builder
	for _, cmd := range strings.Split(raw, ";") {
		parts := strings.Split(cmd, "/")
		for i, p := range parts {
			if u, err := url.PathUnescape(p); err == nil {
				parts[i] = u
			}
		}
		f.handle(&out, parts)
	}
	_, _ = w.Write([]byte(out.String()))
}

func (f *FakeReaper) handle(out *strings.Builder, parts []string) {
	switch parts[0] {
	case "TRANSPORT":
		fmt.Fprintf(out, "TRANSPORT\t%d\t%.6f\t0\t%.3f\t1.1.00\n", f.playState, f.position, f.position)
	case "BEATPOS":
		beats := f.position * f.bpm / 60
		fmt.Fprintf(out, "BEATPOS\t%d\t%.6f\t%.6f\t0\t0\t%d\t%d\n", f.playState, f.position, beats, f.signature.Numerator, f.signature.Denominator)
	case "REGION":
		out.WriteString("REGION_LIST\n")
		for _, rg := range f.regions {
			fmt.Fprintf(out, "REGION\t%s\t%s\t%.6f\t%.6f\t%s\n", rg.Name, rg.ID, rg.Start, rg.End, rg.Color)
		}
		out.WriteString("REGION_LIST_END\n")
	case "MARKER":
		out.WriteString("MARKER_LIST\n")
		for _, m := range f.markers {
			fmt.Fprintf(out, "MARKER\t%s\t%s\t%.6f\t%s\n", m.Name, m.ID, m.Position, m.Color)
		}
		out.WriteString("MARKER_LIST_END\n")
	case "GET":
		if len(parts) == 4 && parts[1] == "PROJEXTSTATE" {
			fmt.Fprintf(out, "PROJEXTSTATE\t%s\t%s\t%s\n", parts[2], parts[3], f.extState[parts[2]+"/"+parts[3]])
		}
	case "SET":
		switch {
		case len(parts) == 3 && parts[1] == "POS":
			if pos, err := strconv.ParseFloat(parts[2], 64); err == nil {
				f.position = pos
				f.commands = append(f.commands, "seek:"+parts[2])
			}
		case len(parts) == 5 && parts[1] == "PROJEXTSTATE":
			f.extState[parts[2]+"/"+parts[3]] = parts[4]
		}
	case "1007":
		f.playState = daw.PlayStatePlaying
		f.commands = append(f.commands, "play")
	case "1008":
		switch f.playState {
		case daw.PlayStatePlaying:
			f.playState = daw.PlayStatePaused
		case daw.PlayStatePaused:
			f.playState = daw.PlayStatePlaying
		}
		f.commands = append(f.commands, "pause")
	case "1016":
		f.playState = daw.PlayStateStopped
		f.commands = append(f.commands, "stop")
	default:
		f.commands = append(f.commands, "action:"+parts[0])
	}
}
