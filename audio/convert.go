package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// SampleConverter writes the float samples of src into dst in a
// device sample format. dst must hold at least len(src) samples.
type SampleConverter func(dst []byte, src []float32)

// ConverterFor selects the SampleConverter for a sample format. Integer
// formats clip samples outside of [-1, 1] to the representable extremes.
func ConverterFor(f SampleFormat) (SampleConverter, error) {
	switch f {
	case FormatU8:
		return floatToU8, nil
	case FormatS8:
		return floatToS8, nil
	case FormatU16LSB:
		return floatToU16(binary.LittleEndian), nil
	case FormatU16MSB:
		return floatToU16(binary.BigEndian), nil
	case FormatS16LSB:
		return floatToS16(binary.LittleEndian), nil
	case FormatS16MSB:
		return floatToS16(binary.BigEndian), nil
	case FormatS24LSB:
		return floatToS24LSB, nil
	case FormatS32LSB:
		return floatToS32(binary.LittleEndian), nil
	case FormatS32MSB:
		return floatToS32(binary.BigEndian), nil
	case FormatF32LSB:
		return floatToF32(binary.LittleEndian), nil
	case FormatF32MSB:
		return floatToF32(binary.BigEndian), nil
	}
	return nil, fmt.Errorf("%w: no converter for sample format %s", ErrInvalidSpec, f)
}

func clip(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// toS16 scales v into the int16 range; +1.0 saturates at 32767.
func toS16(v float32) int16 {
	x := clip(v) * 32768
	if x > math.MaxInt16 {
		return math.MaxInt16
	}
	return int16(x)
}

func toS32(v float32) int32 {
	x := float64(clip(v)) * 2147483648
	if x > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(x)
}

func floatToU8(dst []byte, src []float32) {
	for i, v := range src {
		x := clip(v)*128 + 128
		if x > 255 {
			x = 255
		}
		dst[i] = uint8(x)
	}
}

func floatToS8(dst []byte, src []float32) {
	for i, v := range src {
		x := clip(v) * 128
		if x > 127 {
			x = 127
		}
		dst[i] = byte(int8(x))
	}
}

func floatToU16(order binary.ByteOrder) SampleConverter {
	return func(dst []byte, src []float32) {
		for i, v := range src {
			order.PutUint16(dst[i*2:], uint16(int32(toS16(v))+32768))
		}
	}
}

func floatToS16(order binary.ByteOrder) SampleConverter {
	return func(dst []byte, src []float32) {
		for i, v := range src {
			order.PutUint16(dst[i*2:], uint16(toS16(v)))
		}
	}
}

func floatToS24LSB(dst []byte, src []float32) {
	for i, v := range src {
		x := clip(v) * 8388608
		if x > 8388607 {
			x = 8388607
		}
		s := int32(x)
		dst[i*3] = byte(s)
		dst[i*3+1] = byte(s >> 8)
		dst[i*3+2] = byte(s >> 16)
	}
}

func floatToS32(order binary.ByteOrder) SampleConverter {
	return func(dst []byte, src []float32) {
		for i, v := range src {
			order.PutUint32(dst[i*4:], uint32(toS32(v)))
		}
	}
}

func floatToF32(order binary.ByteOrder) SampleConverter {
	return func(dst []byte, src []float32) {
		for i, v := range src {
			order.PutUint32(dst[i*4:], math.Float32bits(v))
		}
	}
}
