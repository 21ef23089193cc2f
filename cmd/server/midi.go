package main

import "github.com/rpggio/setlistd/internal/midi"

type midiDriver interface {
	midi.Driver
	Close() error
}
