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
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/dh1tw/streamMixer/audio"
	"github.com/dh1tw/streamMixer/audio/decoders"
	"github.com/dh1tw/streamMixer/audio/decoders/midi"
	"github.com/dh1tw/streamMixer/audio/decoders/raw"
	"github.com/dh1tw/streamMixer/audio/processors/gain"
	"github.com/dh1tw/streamMixer/audio/processors/vox"
	"github.com/dh1tw/streamMixer/audio/resamplers/cubic"
	"github.com/dh1tw/streamMixer/audio/resamplers/libsamplerate"
	"github.com/dh1tw/streamMixer/audio/resamplers/polyphase"
	"github.com/dh1tw/streamMixer/audio/sinks/malgoWriter"
	"github.com/dh1tw/streamMixer/audio/sinks/nullWriter"
	"github.com/dh1tw/streamMixer/audio/sinks/scWriter"
	"github.com/dh1tw/streamMixer/audio/sinks/wavWriter"
	"github.com/dh1tw/streamMixer/events"
	"github.com/dh1tw/streamMixer/mixer"
	"github.com/dh1tw/streamMixer/webserver"
)

// playCmd represents the play command
var playCmd = &cobra.Command{
	Use:   "play FILE...",
	Short: "Play and mix one or more sound files",
	Long: `Play and mix one or more sound files on the local audio device.

While playing, the following commands can be entered on stdin
(followed by enter): p (pause/resume), m (mute/unmute), + / - (volume)
and q (quit). Ctrl-C fades out all streams and quits.`,
	Args: cobra.MinimumNArgs(1),
	Run:  playFiles,
}

func init() {
	RootCmd.AddCommand(playCmd)

	playCmd.Flags().StringP("backend", "b", "portaudio", "audio output backend (portaudio, malgo, wav, null)")
	playCmd.Flags().StringP("output-device-name", "o", "default", "output device")
	playCmd.Flags().String("hostapi", "default", "portaudio host api or malgo backend")
	playCmd.Flags().IntP("samplerate", "s", 44100, "output sample rate")
	playCmd.Flags().IntP("channels", "c", 2, "output channels (1 or 2)")
	playCmd.Flags().String("format", "f32", "output sample format (used by the malgo and null backends)")
	playCmd.Flags().Int("frames", 512, "frames per device callback")
	playCmd.Flags().Duration("latency", time.Millisecond*10, "output latency")
	playCmd.Flags().String("record-file", "streammixer.wav", "file the mix is recorded to (wav backend)")
	playCmd.Flags().Int("record-bitdepth", 16, "bit depth of the recording (16, 24, 32)")

	playCmd.Flags().String("resampler", "libsamplerate", "sample rate converter (libsamplerate, polyphase, cubic)")
	playCmd.Flags().String("quality", "medium", "sample rate converter quality")

	playCmd.Flags().String("decoder", "", "decoder to use instead of auto detection (e.g. raw)")
	playCmd.Flags().Int("raw-rate", 44100, "sample rate of raw PCM files")
	playCmd.Flags().Int("raw-channels", 2, "channels of raw PCM files")
	playCmd.Flags().String("raw-format", "s16le", "sample format of raw PCM files")
	playCmd.Flags().String("soundfont", "", "sound font (.sf2) used to play MIDI files")

	playCmd.Flags().IntP("loops", "l", 1, "number of iterations (0 loops forever)")
	playCmd.Flags().Duration("fade-in", 0, "fade in time")
	playCmd.Flags().Duration("fade-out", time.Millisecond*500, "fade out time on quit")
	playCmd.Flags().Float64P("volume", "v", 1.0, "stream volume")
	playCmd.Flags().Float64("pan", 0, "stereo position [-1 (left)...1 (right)]")
	playCmd.Flags().Float64("gain", 0, "additional gain in dB")

	playCmd.Flags().Bool("vox", false, "log when a stream's level crosses the vox threshold")
	playCmd.Flags().Float64("vox-threshold", 0.1, "vox threshold [0...1]")
	playCmd.Flags().Duration("vox-holdtime", time.Millisecond*500, "vox hold time")

	playCmd.Flags().StringP("http-address", "w", "", "address of the status webserver, e.g. 127.0.0.1:9090 (disabled if empty)")

	viper.BindPFlag("output.backend", playCmd.Flags().Lookup("backend"))
	viper.BindPFlag("output.device_name", playCmd.Flags().Lookup("output-device-name"))
	viper.BindPFlag("output.hostapi", playCmd.Flags().Lookup("hostapi"))
	viper.BindPFlag("output.samplerate", playCmd.Flags().Lookup("samplerate"))
	viper.BindPFlag("output.channels", playCmd.Flags().Lookup("channels"))
	viper.BindPFlag("output.format", playCmd.Flags().Lookup("format"))
	viper.BindPFlag("output.frames", playCmd.Flags().Lookup("frames"))
	viper.BindPFlag("output.latency", playCmd.Flags().Lookup("latency"))
	viper.BindPFlag("output.file", playCmd.Flags().Lookup("record-file"))
	viper.BindPFlag("output.bitdepth", playCmd.Flags().Lookup("record-bitdepth"))
	viper.BindPFlag("resampler.type", playCmd.Flags().Lookup("resampler"))
	viper.BindPFlag("resampler.quality", playCmd.Flags().Lookup("quality"))
	viper.BindPFlag("decoder.name", playCmd.Flags().Lookup("decoder"))
	viper.BindPFlag("raw.rate", playCmd.Flags().Lookup("raw-rate"))
	viper.BindPFlag("raw.channels", playCmd.Flags().Lookup("raw-channels"))
	viper.BindPFlag("raw.format", playCmd.Flags().Lookup("raw-format"))
	viper.BindPFlag("midi.soundfont", playCmd.Flags().Lookup("soundfont"))
	viper.BindPFlag("playback.iterations", playCmd.Flags().Lookup("loops"))
	viper.BindPFlag("playback.fade_in", playCmd.Flags().Lookup("fade-in"))
	viper.BindPFlag("playback.fade_out", playCmd.Flags().Lookup("fade-out"))
	viper.BindPFlag("playback.volume", playCmd.Flags().Lookup("volume"))
	viper.BindPFlag("playback.pan", playCmd.Flags().Lookup("pan"))
	viper.BindPFlag("playback.gain", playCmd.Flags().Lookup("gain"))
	viper.BindPFlag("vox.enabled", playCmd.Flags().Lookup("vox"))
	viper.BindPFlag("vox.threshold", playCmd.Flags().Lookup("vox-threshold"))
	viper.BindPFlag("vox.hold_time", playCmd.Flags().Lookup("vox-holdtime"))
	viper.BindPFlag("http.address", playCmd.Flags().Lookup("http-address"))
}

func playFiles(cmd *cobra.Command, args []string) {

	readConfig()
	// the config file may change the log level
	setupLogger(viper.GetString("log.level"))

	// check if values from config file / pflags are valid
	if err := checkPlayParameterValues(); err != nil {
		exit(err)
	}

	// viper settings need to be copied in local variables
	// since viper lookups allocate of each lookup a copy
	// and are quite inperformant
	format, _ := audio.ParseSampleFormat(viper.GetString("output.format"))
	spec := audio.Spec{
		Rate:      viper.GetInt("output.samplerate"),
		Format:    format,
		Channels:  viper.GetInt("output.channels"),
		FrameSize: viper.GetInt("output.frames"),
	}

	iterations := viper.GetInt("playback.iterations")
	fadeIn := viper.GetDuration("playback.fade_in")
	fadeOut := viper.GetDuration("playback.fade_out")
	volume := float32(viper.GetFloat64("playback.volume"))
	pan := float32(viper.GetFloat64("playback.pan"))
	gainDB := float32(viper.GetFloat64("playback.gain"))
	decoderName := viper.GetString("decoder.name")
	httpAddress := viper.GetString("http.address")

	registry, err := newDecoderRegistry()
	if err != nil {
		exit(err)
	}

	bus := events.NewBus(256)
	defer bus.Close()

	promRegistry := prometheus.NewRegistry()
	metrics, err := mixer.NewMetrics(promRegistry)
	if err != nil {
		exit(err)
	}

	if err := mixer.Init(newDevice(), spec, mixer.EventBus(bus), mixer.WithMetrics(metrics)); err != nil {
		exit(err)
	}
	defer mixer.Quit()

	// the webserver and the control loop subscribe to the bus before the
	// first stream starts so that no event is lost
	var web *webserver.WebServer
	if httpAddress != "" {
		web, err = webserver.NewWebServer(
			webserver.Address(httpAddress),
			webserver.Mixer(mixer.Default()),
			webserver.Events(bus),
			webserver.Gatherer(promRegistry),
		)
		if err != nil {
			exit(err)
		}
	}

	evCh := bus.Sub(events.OsExit, events.TogglePause, events.ToggleMute,
		events.VolumeUp, events.VolumeDown, events.StreamFinished, events.StreamStopped)

	var streams []*mixer.Stream
	for _, fileName := range args {
		s, err := openStream(registry, decoderName, fileName)
		if err != nil {
			log.Error().Err(err).Msgf("unable to play %s", fileName)
			continue
		}
		defer s.Close()

		s.SetVolume(volume)
		s.SetStereoPosition(pan)
		if gainDB != 0 {
			s.AddProcessor(gain.New(gainDB))
		}
		if viper.GetBool("vox.enabled") {
			v := newVox(s.Name())
			defer v.Close()
			s.AddProcessor(v)
		}

		if d := s.Duration(); d > 0 {
			log.Info().Str("stream", s.Name()).Msgf("duration %v", d.Round(time.Millisecond))
		}

		if err := s.Play(iterations, fadeIn); err != nil {
			log.Error().Err(err).Msgf("unable to play %s", fileName)
			continue
		}
		streams = append(streams, s)
	}

	if len(streams) == 0 {
		exit(fmt.Errorf("nothing to play"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go events.WatchSystemEvents(ctx, bus)
	go events.CaptureKeyboard(os.Stdin, bus)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return control(gctx, evCh, streams, fadeOut)
	})

	if web != nil {
		g.Go(func() error {
			return web.Serve(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("stopped with error")
	}
}

// control reacts on keyboard and stream events until all streams have
// ended or the user quits.
func control(ctx context.Context, evCh chan interface{}, streams []*mixer.Stream, fadeOut time.Duration) error {

	active := len(streams)
	var quitTimeout <-chan time.Time

	for {
		select {
		case msg, ok := <-evCh:
			if !ok {
				return nil
			}
			ev, ok := msg.(events.Event)
			if !ok {
				continue
			}

			switch ev.Type {
			case events.StreamFinished, events.StreamStopped:
				log.Info().Str("stream", ev.Stream).Msg(ev.Type)
				active--
				if active <= 0 {
					return nil
				}

			case events.OsExit:
				if quitTimeout != nil {
					// second request, don't wait for the fade
					return nil
				}
				log.Info().Msg("quitting")
				mixer.Default().StopAll(fadeOut)
				quitTimeout = time.After(fadeOut + time.Second)

			case events.TogglePause:
				for _, s := range streams {
					if s.IsPaused() {
						s.Resume(fadeOut / 2)
					} else {
						s.Pause(fadeOut / 2)
					}
				}

			case events.ToggleMute:
				for _, s := range streams {
					if s.IsMuted() {
						s.Unmute()
					} else {
						s.Mute()
					}
				}

			case events.VolumeUp, events.VolumeDown:
				step := float32(0.1)
				if ev.Type == events.VolumeDown {
					step = -step
				}
				for _, s := range streams {
					s.SetVolume(s.Volume() + step)
				}
				log.Info().Msgf("volume %.1f", streams[0].Volume())
			}

		case <-quitTimeout:
			return nil

		case <-ctx.Done():
			return nil
		}
	}
}

func newDecoderRegistry() (*audio.Registry, error) {
	rawFormat, err := audio.ParseSampleFormat(viper.GetString("raw.format"))
	if err != nil {
		return nil, err
	}

	opts := []decoders.Option{
		decoders.MidiRate(viper.GetInt("output.samplerate")),
		decoders.Raw(
			raw.Rate(viper.GetInt("raw.rate")),
			raw.Channels(viper.GetInt("raw.channels")),
			raw.Format(rawFormat),
		),
	}

	if sfName := viper.GetString("midi.soundfont"); sfName != "" {
		sf, err := midi.LoadSoundFont(sfName)
		if err != nil {
			return nil, err
		}
		opts = append(opts, decoders.SoundFont(sf))
	}

	return decoders.NewRegistry(opts...), nil
}

// openStream reads fileName into memory and creates a stream on the
// process wide mixer. Decoding from memory keeps file I/O out of the
// audio callback.
func openStream(registry *audio.Registry, decoderName, fileName string) (*mixer.Stream, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	src := bytes.NewReader(data)

	var dec audio.Decoder
	if decoderName != "" {
		dec, err = registry.OpenAs(decoderName, src)
	} else {
		dec, err = registry.Detect(src)
	}
	if err != nil {
		return nil, err
	}

	s, err := mixer.NewStream(filepath.Base(fileName), dec, audio.NewResampler(newConverter()), src)
	if err != nil {
		dec.Close()
		return nil, err
	}
	return s, nil
}

func newConverter() audio.Converter {
	quality := viper.GetString("resampler.quality")

	switch viper.GetString("resampler.type") {
	case "polyphase":
		q, _ := polyphase.ParseQuality(quality)
		return polyphase.New(polyphase.Quality(q))
	case "cubic":
		return cubic.New()
	}
	t, _ := libsamplerate.ParseQuality(quality)
	return libsamplerate.New(libsamplerate.ConverterType(t))
}

func newDevice() mixer.Device {
	deviceName := viper.GetString("output.device_name")
	hostAPI := viper.GetString("output.hostapi")

	switch viper.GetString("output.backend") {
	case "malgo":
		return malgoWriter.NewMalgoWriter(
			malgoWriter.Backend(hostAPI),
			malgoWriter.DeviceName(deviceName),
		)
	case "wav":
		return wavWriter.NewWavWriter(
			viper.GetString("output.file"),
			wavWriter.BitDepth(viper.GetInt("output.bitdepth")),
		)
	case "null":
		return nullWriter.NewNullWriter()
	}
	return scWriter.NewScWriter(
		scWriter.HostAPI(hostAPI),
		scWriter.DeviceName(deviceName),
		scWriter.Latency(viper.GetDuration("output.latency")),
	)
}

func newVox(name string) *vox.Vox {
	return vox.New(
		vox.Threshold(float32(viper.GetFloat64("vox.threshold"))),
		vox.HoldTime(viper.GetDuration("vox.hold_time")),
		vox.StateChanged(func(on bool) {
			log.Info().Str("stream", name).Bool("active", on).Msg("vox")
		}),
	)
}

// exit prints the error to stderr, closes the mixer and returns with
// exit code 1
func exit(err error) {
	fmt.Fprintln(os.Stderr, err)
	mixer.Quit()
	os.Exit(1)
}
