package midi

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Driver enumerates MIDI inputs.
type Driver interface {
	Ins() ([]drivers.In, error)
}

// Listener opens every matching input and forwards note-on events.
// Device hot-plug is not handled; inputs are opened once.
type Listener struct {
	driver  Driver
	include []string
	exclude []string
	onNote  func(note uint8, at time.Time)
	logger  *slog.Logger

	mu    sync.Mutex
	open  []drivers.In
	stops []func()
}

// DefaultExcluded are virtual ports that echo other inputs.
var DefaultExcluded = []string{"Midi Through", "Through Port"}

// NewListener creates a listener. Empty include patterns match every input.
func NewListener(driver Driver, include []string, onNote func(note uint8, at time.Time), logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Listener{
		driver:  driver,
		include: include,
		exclude: DefaultExcluded,
		onNote:  onNote,
		logger:  logger,
	}
}

// Open starts listening on all matching inputs and returns their names.
func (l *Listener) Open() ([]string, error) {
	ins, err := l.driver.Ins()
	if err != nil {
		return nil, fmt.Errorf("listing MIDI inputs: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var names []string
	for _, in := range ins {
		name := in.String()
		if !l.Accepts(name) {
			l.logger.Debug("midi input skipped", "device", name)
			continue
		}
		if err := in.Open(); err != nil {
			l.logger.Warn("midi input open failed", "device", name, "error", err)
			continue
		}
		stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, _ int32) {
			var ch, key, vel uint8
			if msg.GetNoteStart(&ch, &key, &vel) {
				l.onNote(key, time.Now())
			}
		}, gomidi.HandleError(func(err error) {
			l.logger.Warn("midi listener error", "device", name, "error", err)
		}))
		if err != nil {
			_ = in.Close()
			l.logger.Warn("midi listen failed", "device", name, "error", err)
			continue
		}
		l.open = append(l.open, in)
		l.stops = append(l.stops, stop)
		names = append(names, name)
		l.logger.Info("midi input connected", "device", name)
	}
	return names, nil
}

// Close stops all listeners and closes the inputs.
func (l *Listener) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, stop := range l.stops {
		stop()
	}
	for _, in := range l.open {
		_ = in.Close()
	}
	l.stops = nil
	l.open = nil
}

// Accepts reports whether an input named name would be opened.
func (l *Listener) Accepts(name string) bool {
	lower := strings.ToLower(name)
	for _, pat := range l.exclude {
		if strings.Contains(lower, strings.ToLower(pat)) {
			return false
		}
	}
	if len(l.include) == 0 {
		return true
	}
	for _, pat := range l.include {
		if strings.Contains(lower, strings.ToLower(pat)) {
			return true
		}
	}
	return false
}
