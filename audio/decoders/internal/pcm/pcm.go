// Package pcm contains the integer to float conversion shared by the
// decoders which sit on top of go-audio style integer buffers.
package pcm

// Scale returns the divisor which maps a signed sample of the given bit
// depth onto [-1, 1).
func Scale(bitDepth int) float32 {
	if bitDepth <= 0 || bitDepth > 32 {
		bitDepth = 16
	}
	return float32(int64(1) << (bitDepth - 1))
}

// IntsToFloat32 converts signed integer samples of bitDepth bits.
func IntsToFloat32(dst []float32, src []int, bitDepth int) {
	div := Scale(bitDepth)
	for i, v := range src {
		dst[i] = float32(v) / div
	}
}

// Int32sToFloat32 converts signed integer samples of bitDepth bits.
func Int32sToFloat32(dst []float32, src []int32, bitDepth int) {
	div := Scale(bitDepth)
	for i, v := range src {
		dst[i] = float32(v) / div
	}
}

// UnsignedToFloat32 converts unsigned 8 bit samples as stored in WAV
// files.
func UnsignedToFloat32(dst []float32, src []int) {
	for i, v := range src {
		dst[i] = float32(v-128) / 128
	}
}
