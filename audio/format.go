package audio

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// SampleFormat is the representation of a single sample in the buffer
// handed out by an output device.
type SampleFormat int

const (
	FormatUnknown SampleFormat = iota
	FormatU8
	FormatS8
	FormatU16LSB
	FormatU16MSB
	FormatS16LSB
	FormatS16MSB
	FormatS24LSB // packed, 3 bytes per sample
	FormatS32LSB
	FormatS32MSB
	FormatF32LSB
	FormatF32MSB
)

var formatNames = map[SampleFormat]string{
	FormatU8:     "u8",
	FormatS8:     "s8",
	FormatU16LSB: "u16le",
	FormatU16MSB: "u16be",
	FormatS16LSB: "s16le",
	FormatS16MSB: "s16be",
	FormatS24LSB: "s24le",
	FormatS32LSB: "s32le",
	FormatS32MSB: "s32be",
	FormatF32LSB: "f32le",
	FormatF32MSB: "f32be",
}

func (f SampleFormat) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "unknown"
}

// Width returns the number of bytes of a single sample.
func (f SampleFormat) Width() int {
	switch f {
	case FormatU8, FormatS8:
		return 1
	case FormatU16LSB, FormatU16MSB, FormatS16LSB, FormatS16MSB:
		return 2
	case FormatS24LSB:
		return 3
	case FormatS32LSB, FormatS32MSB, FormatF32LSB, FormatF32MSB:
		return 4
	}
	return 0
}

// IsFloat reports whether f is a floating point format.
func (f SampleFormat) IsFloat() bool {
	return f == FormatF32LSB || f == FormatF32MSB
}

func nativeIsLittle() bool {
	var b [2]byte
	binary.NativeEndian.PutUint16(b[:], 1)
	return b[0] == 1
}

// ParseSampleFormat parses names like "s16", "s16le", "f32be" or "u8".
// Names without an explicit byte order resolve to the native byte order.
func ParseSampleFormat(name string) (SampleFormat, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for f, n := range formatNames {
		if n == name {
			return f, nil
		}
	}

	suffix := "be"
	if nativeIsLittle() {
		suffix = "le"
	}
	switch name {
	case "u16", "s16", "s32", "f32":
		return ParseSampleFormat(name + suffix)
	case "s24":
		return FormatS24LSB, nil
	}
	return FormatUnknown, fmt.Errorf("unknown sample format %q", name)
}

// Spec describes the format of the audio output.
type Spec struct {
	Rate      int
	Format    SampleFormat
	Channels  int
	FrameSize int // frames per device callback
}

func (s Spec) String() string {
	return fmt.Sprintf("%dHz %s %dch %d frames", s.Rate, s.Format, s.Channels, s.FrameSize)
}

// Validate checks that the spec can be used for playback.
func (s Spec) Validate() error {
	if s.Rate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidSpec, s.Rate)
	}
	if s.Channels != 1 && s.Channels != 2 {
		return fmt.Errorf("%w: %d channels", ErrInvalidSpec, s.Channels)
	}
	if s.FrameSize <= 0 {
		return fmt.Errorf("%w: frame size %d", ErrInvalidSpec, s.FrameSize)
	}
	if s.Format.Width() == 0 {
		return fmt.Errorf("%w: sample format %s", ErrInvalidSpec, s.Format)
	}
	return nil
}

// ClampChannels limits a channel count to mono or stereo.
func ClampChannels(ch int) int {
	if ch < 1 {
		return 1
	}
	if ch > 2 {
		return 2
	}
	return ch
}
