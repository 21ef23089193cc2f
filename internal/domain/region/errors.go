package region

import "errors"

var (
	// ErrRegionNotFound indicates the region doesn't exist in the catalog.
	ErrRegionNotFound = errors.New("region not found")
	// ErrNoAdjacentRegion indicates there is no region before/after the given one.
	ErrNoAdjacentRegion = errors.New("no adjacent region")
)
