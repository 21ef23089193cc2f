//go:build cgo

package main

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

func openMIDIDriver() (midiDriver, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	return drv, nil
}
