package region

import (
	"strconv"
	"strings"
)

const (
	tagBPM      = "!bpm:"
	tagHardStop = "!1008"
	tagLength   = "!length:"
)

// ParseTags extracts the directives embedded in a single marker name.
// Unparseable values are ignored.
func ParseTags(name string) Directives {
	var d Directives
	for _, field := range strings.Fields(name) {
		lower := strings.ToLower(field)
		switch {
		case strings.HasPrefix(lower, tagBPM):
			if v, ok := parsePositive(field[len(tagBPM):]); ok {
				d.BPM = &v
			}
		case strings.HasPrefix(lower, tagLength):
			if v, ok := parsePositive(field[len(tagLength):]); ok {
				d.Length = &v
			}
		case lower == tagHardStop:
			d.HardStop = true
		}
	}
	return d
}

func parsePositive(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// DirectivesFor collects the directives of every marker inside r, in
// position order. The first !bpm and !length values win.
func DirectivesFor(r Region, markers []Marker) Directives {
	var d Directives
	for _, m := range markers {
		if !r.Contains(m.Position) {
			continue
		}
		tags := ParseTags(m.Name)
		if d.BPM == nil && tags.BPM != nil {
			d.BPM = tags.BPM
		}
		if d.Length == nil && tags.Length != nil {
			d.Length = tags.Length
		}
		if tags.HardStop {
			d.HardStop = true
		}
	}
	return d
}
