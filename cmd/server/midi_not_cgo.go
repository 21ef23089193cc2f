//go:build !cgo

package main

// openMIDIDriver reports no driver: rtmidi needs cgo, so MIDI input is off.
func openMIDIDriver() (midiDriver, error) {
	return nil, nil
}
