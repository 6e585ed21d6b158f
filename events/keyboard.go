package events

import (
	"bufio"
	"io"
	"time"

	"github.com/rs/zerolog/log"
)

// CaptureKeyboard reads single letter commands, one per line, from r
// and publishes them on the bus until r is exhausted.
//
//	p  toggle pause
//	m  toggle mute
//	+  volume up
//	-  volume down
//	q  quit
func CaptureKeyboard(r io.Reader, bus *Bus) {

	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		ev := Event{Time: time.Now()}
		switch scanner.Text() {
		case "p":
			ev.Type = TogglePause
		case "m":
			ev.Type = ToggleMute
		case "+":
			ev.Type = VolumeUp
		case "-":
			ev.Type = VolumeDown
		case "q":
			ev.Type = OsExit
		default:
			log.Info().Str("input", scanner.Text()).Msg("unknown keyboard command")
			continue
		}
		bus.Publish(ev)
	}
}
