package audio

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
)

// Source rates reported by a decoder are clamped into this range before
// a Converter is configured.
const (
	MinRate = 1000
	MaxRate = 384000
)

// Converter implements the actual sample rate conversion for a
// Resampler. All buffers are interleaved with the configured number of
// channels.
type Converter interface {
	// Configure (re)initializes the converter for a new conversion.
	// Any internally buffered samples are dropped.
	Configure(srcRate, dstRate, channels int) error
	// Resample converts as much of src as fits into dst. It returns the
	// number of samples written to dst and the number of samples consumed
	// from src. Unconsumed samples are handed in again on the next call.
	Resample(dst, src []float32) (produced, consumed int)
	// Discard drops all internally buffered samples.
	Discard()
	Close() error
}

// Resampler pulls samples from a Decoder and delivers them at the
// target rate, channel count and chunk size. It buffers decoded and
// converted samples internally and handles decoders which change their
// native format in the middle of a stream.
//
// A Resampler is not safe for concurrent use.
type Resampler struct {
	conv Converter
	raw  Decoder
	dec  Decoder // raw adapted to the target channel count

	dstRate   int
	channels  int
	chunkSize int
	srcRate   int

	inBuf  []float32
	inPos  int
	inEnd  int
	outBuf []float32
	outPos int
	outEnd int

	pendingSpecChange bool
}

// NewResampler returns a Resampler which uses conv for the rate
// conversion. conv may be nil if the source rate always matches the
// target rate.
func NewResampler(conv Converter) *Resampler {
	return &Resampler{conv: conv}
}

// SetDecoder attaches the decoder the Resampler pulls samples from. If
// a spec is already set and the decoder is open, the internal buffers
// are sized immediately.
func (r *Resampler) SetDecoder(dec Decoder) error {
	r.raw = dec
	r.dec = nil
	r.pendingSpecChange = false
	r.reset()
	if dec == nil || r.channels == 0 {
		return nil
	}
	r.dec = adaptChannels(dec, r.channels)
	if !r.dec.IsOpen() {
		return nil
	}
	return r.adjustBufferSizes()
}

// SetSpec sets the target format. chunkSize is the number of frames
// which is typically requested per Resample call.
func (r *Resampler) SetSpec(rate, channels, chunkSize int) error {
	if rate <= 0 || chunkSize <= 0 || channels < 1 || channels > 2 {
		return fmt.Errorf("%w: resampler %dHz %dch %d frames", ErrInvalidSpec, rate, channels, chunkSize)
	}
	r.dstRate = rate
	r.channels = channels
	r.chunkSize = chunkSize
	r.pendingSpecChange = false
	r.reset()

	if r.raw == nil {
		return nil
	}
	r.dec = adaptChannels(r.raw, channels)
	if !r.dec.IsOpen() {
		return nil
	}
	return r.adjustBufferSizes()
}

func (r *Resampler) Rate() int      { return r.dstRate }
func (r *Resampler) Channels() int  { return r.channels }
func (r *Resampler) ChunkSize() int { return r.chunkSize }

// SourceRate returns the clamped native rate of the decoder the
// Resampler is currently configured for.
func (r *Resampler) SourceRate() int { return r.srcRate }

// Resample fills dst with up to len(dst) samples and returns the number
// of samples written. A return value smaller than len(dst) means the
// decoder is exhausted.
func (r *Resampler) Resample(dst []float32) int {
	if r.dec == nil || !r.dec.IsOpen() || len(r.outBuf) == 0 {
		return 0
	}

	total := 0

	if r.pendingSpecChange {
		total = r.drain(dst)
		if r.buffered() {
			return total
		}
		r.pendingSpecChange = false
		if err := r.adjustBufferSizes(); err != nil {
			log.Warn().Err(err).Msg("resampler: unable to apply new decoder format")
			return total
		}
	}

	emptyChanges := 0
	for total < len(dst) {
		decoded := 0
		if r.inEnd < len(r.inBuf) {
			n, again := r.dec.Decode(r.inBuf[r.inEnd:])
			r.inEnd += n
			decoded = n
			if again {
				if n == 0 {
					emptyChanges++
					if emptyChanges > 1 {
						break
					}
				}
				// everything buffered so far belongs to the old format
				total += r.drain(dst[total:])
				if r.buffered() {
					r.pendingSpecChange = true
					return total
				}
				if err := r.adjustBufferSizes(); err != nil {
					log.Warn().Err(err).Msg("resampler: unable to apply new decoder format")
					return total
				}
				continue
			}
		}

		produced := r.resampleFromIn()
		moved := r.moveToDst(dst[total:])
		total += moved

		if decoded == 0 && produced == 0 && moved == 0 {
			break
		}
	}
	return total
}

// DiscardPendingSamples drops all buffered samples, both in the
// Resampler and in its Converter. It is used after seeking the decoder.
func (r *Resampler) DiscardPendingSamples() {
	r.reset()
	if r.pendingSpecChange {
		r.pendingSpecChange = false
		if err := r.adjustBufferSizes(); err != nil {
			log.Warn().Err(err).Msg("resampler: unable to apply new decoder format")
		}
		return
	}
	if r.conv != nil {
		r.conv.Discard()
	}
}

// Close releases the Converter. The decoder is not closed; it belongs
// to the stream which handed it in.
func (r *Resampler) Close() error {
	if r.conv == nil {
		return nil
	}
	return r.conv.Close()
}

func adaptChannels(dec Decoder, channels int) Decoder {
	if a, ok := dec.(*ChannelAdapter); ok && a.Channels() == channels {
		return a
	}
	return NewChannelAdapter(dec, channels)
}

func clampRate(rate int) int {
	if rate < MinRate {
		return MinRate
	}
	if rate > MaxRate {
		return MaxRate
	}
	return rate
}

func (r *Resampler) reset() {
	r.inPos, r.inEnd = 0, 0
	r.outPos, r.outEnd = 0, 0
}

func (r *Resampler) buffered() bool {
	return r.inPos < r.inEnd || r.outPos < r.outEnd
}

// adjustBufferSizes derives the buffer sizes from the current decoder
// rate and configures the converter. The buffers must be empty.
func (r *Resampler) adjustBufferSizes() error {
	src := clampRate(r.dec.Rate())
	r.srcRate = src

	outLen := r.channels * r.chunkSize
	inLen := int(math.Ceil(float64(outLen) * float64(src) / float64(r.dstRate)))
	if rem := inLen % r.channels; rem != 0 {
		inLen += r.channels - rem
	}
	if inLen < r.channels {
		inLen = r.channels
	}

	r.outBuf = resize(r.outBuf, outLen)
	r.inBuf = resize(r.inBuf, inLen)
	r.reset()

	if src == r.dstRate {
		return nil
	}
	if r.conv == nil {
		return fmt.Errorf("%w: no converter for %dHz -> %dHz", ErrUnsupported, src, r.dstRate)
	}
	if err := r.conv.Configure(src, r.dstRate, r.channels); err != nil {
		return fmt.Errorf("configuring converter for %dHz -> %dHz: %w", src, r.dstRate, err)
	}
	return nil
}

func resize(buf []float32, n int) []float32 {
	if cap(buf) < n {
		return make([]float32, n)
	}
	return buf[:n]
}

// drain delivers the samples buffered for the current format into dst
// without decoding more data.
func (r *Resampler) drain(dst []float32) int {
	total := 0
	for total < len(dst) {
		total += r.moveToDst(dst[total:])
		if total == len(dst) || r.inPos == r.inEnd {
			break
		}
		if r.resampleFromIn() == 0 {
			// the converter holds back the tail of the old format
			r.inPos, r.inEnd = 0, 0
			break
		}
	}
	return total
}

// resampleFromIn converts the pending input into the free space of the
// output buffer and compacts both buffers.
func (r *Resampler) resampleFromIn() int {
	if r.outPos > 0 {
		n := copy(r.outBuf, r.outBuf[r.outPos:r.outEnd])
		r.outPos, r.outEnd = 0, n
	}

	space := r.outBuf[r.outEnd:]
	if len(space) == 0 {
		return 0
	}
	src := r.inBuf[r.inPos:r.inEnd]

	var produced, consumed int
	if r.srcRate == r.dstRate {
		produced = copy(space, src)
		consumed = produced
	} else {
		if r.conv == nil {
			return 0
		}
		produced, consumed = r.conv.Resample(space, src)
		produced = min(max(produced, 0), len(space))
		consumed = min(max(consumed, 0), len(src))
	}

	r.outEnd += produced
	r.inPos += consumed
	if r.inPos > 0 {
		n := copy(r.inBuf, r.inBuf[r.inPos:r.inEnd])
		r.inPos, r.inEnd = 0, n
	}
	return produced
}

func (r *Resampler) moveToDst(dst []float32) int {
	n := copy(dst, r.outBuf[r.outPos:r.outEnd])
	r.outPos += n
	if r.outPos == r.outEnd {
		r.outPos, r.outEnd = 0, 0
	}
	return n
}
