// Copyright © 2016 Tobias Wellnitz, DH1TW <Tobias.Wellnitz@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/viper"

	"github.com/dh1tw/streamMixer/audio"
	"github.com/dh1tw/streamMixer/audio/resamplers/libsamplerate"
	"github.com/dh1tw/streamMixer/audio/resamplers/polyphase"
)

var (
	backends      = []string{"portaudio", "malgo", "wav", "null"}
	resamplerKind = []string{"libsamplerate", "polyphase", "cubic"}
)

// checkPlayParameterValues checks if the values read from the config
// file and the pflags are within their allowed ranges.
func checkPlayParameterValues() error {

	if b := viper.GetString("output.backend"); !slices.Contains(backends, b) {
		return &parmError{
			parm: "output.backend",
			msg:  fmt.Sprintf("allowed values are %v", backends),
		}
	}

	if chs := viper.GetInt("output.channels"); chs < 1 || chs > 2 {
		return &parmError{
			parm: "output.channels",
			msg:  "allowed values are [1 (Mono), 2 (Stereo)]",
		}
	}

	if sr := viper.GetInt("output.samplerate"); sr < audio.MinRate || sr > audio.MaxRate {
		return &parmError{
			parm: "output.samplerate",
			msg:  fmt.Sprintf("allowed values are [%d...%d]", audio.MinRate, audio.MaxRate),
		}
	}

	if _, err := audio.ParseSampleFormat(viper.GetString("output.format")); err != nil {
		return &parmError{
			parm: "output.format",
			msg:  "allowed values are u8, s8, s16, u16, s24, s32, f32 with an optional le/be suffix",
		}
	}

	if viper.GetInt("output.frames") <= 0 {
		return &parmError{
			parm: "output.frames",
			msg:  "value must be > 0",
		}
	}

	kind := viper.GetString("resampler.type")
	if !slices.Contains(resamplerKind, kind) {
		return &parmError{
			parm: "resampler.type",
			msg:  fmt.Sprintf("allowed values are %v", resamplerKind),
		}
	}

	quality := viper.GetString("resampler.quality")
	switch kind {
	case "libsamplerate":
		if _, ok := libsamplerate.ParseQuality(quality); !ok {
			return &parmError{
				parm: "resampler.quality",
				msg:  "allowed values are quick, low, medium, high, veryhigh, best, fastest, linear, zoh",
			}
		}
	case "polyphase":
		if _, ok := polyphase.ParseQuality(quality); !ok {
			return &parmError{
				parm: "resampler.quality",
				msg:  "allowed values are quick, low, medium, high, veryhigh",
			}
		}
	}

	if viper.GetInt("playback.iterations") < 0 {
		return &parmError{
			parm: "playback.iterations",
			msg:  "value must be >= 0 (0 loops forever)",
		}
	}

	if viper.GetFloat64("playback.volume") < 0 {
		return &parmError{
			parm: "playback.volume",
			msg:  "value must be >= 0",
		}
	}

	if pan := viper.GetFloat64("playback.pan"); pan < -1 || pan > 1 {
		return &parmError{
			parm: "playback.pan",
			msg:  "allowed values are [-1...1]",
		}
	}

	if t := viper.GetFloat64("vox.threshold"); t < 0 || t > 1 {
		return &parmError{
			parm: "vox.threshold",
			msg:  "allowed values are [0...1]",
		}
	}

	return nil
}

type parmError struct {
	parm string
	msg  string
}

func (p *parmError) Error() string {
	return fmt.Sprintf("%v: %v", p.parm, p.msg)
}
