// Package scWriter plays the output of a mixer on a local sound card
// through portaudio.
package scWriter

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	pa "github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog/log"

	"github.com/dh1tw/streamMixer/audio"
)

// ScWriter is an output device for a local audio output (e.g. speakers).
// portaudio calls back with native float32 buffers which are filled by
// the mixer.
type ScWriter struct {
	sync.Mutex
	options     Options
	deviceInfo  *pa.DeviceInfo
	stream      *pa.Stream
	filler      audio.Filler
	initialized bool
	underflows  atomic.Uint64
}

// NewScWriter returns a new soundcard writer. The device is selected
// when the writer is opened.
func NewScWriter(opts ...Option) *ScWriter {
	w := &ScWriter{
		options: Options{
			DeviceName: "default",
			HostAPI:    "default",
			Latency:    time.Millisecond * 10,
		},
	}

	for _, option := range opts {
		option(&w.options)
	}

	return w
}

// Open selects the audio device and opens a portaudio output stream.
// The channel count is limited to what the device supports. If the
// device rejects the requested rate, its default rate is used instead.
func (w *ScWriter) Open(want audio.Spec, f audio.Filler) (audio.Spec, error) {
	w.Lock()
	defer w.Unlock()

	if w.stream != nil {
		return audio.Spec{}, fmt.Errorf("portaudio stream already open")
	}

	if err := pa.Initialize(); err != nil {
		return audio.Spec{}, err
	}
	w.initialized = true

	dev, err := w.selectDevice()
	if err != nil {
		w.terminate()
		return audio.Spec{}, err
	}
	w.deviceInfo = dev

	// float32 buffers in native byte order
	format, err := audio.ParseSampleFormat("f32")
	if err != nil {
		w.terminate()
		return audio.Spec{}, err
	}

	spec := audio.Spec{
		Rate:      want.Rate,
		Format:    format,
		Channels:  want.Channels,
		FrameSize: want.FrameSize,
	}
	if dev.MaxOutputChannels < spec.Channels {
		spec.Channels = max(dev.MaxOutputChannels, 1)
	}

	latency := w.options.Latency
	if latency == 0 {
		latency = dev.DefaultLowOutputLatency
	}

	w.filler = f

	stream, err := pa.OpenStream(w.streamParameters(spec, latency), w.playCb)
	if err != nil && int(dev.DefaultSampleRate) != spec.Rate {
		log.Debug().Err(err).Int("rate", spec.Rate).
			Msgf("falling back to the default sample rate of %s", dev.Name)
		spec.Rate = int(dev.DefaultSampleRate)
		stream, err = pa.OpenStream(w.streamParameters(spec, latency), w.playCb)
	}
	if err != nil {
		w.filler = nil
		w.terminate()
		return audio.Spec{}, fmt.Errorf("unable to open playback audio stream on device %s: %w",
			w.options.DeviceName, err)
	}

	w.stream = stream
	log.Info().Msgf("output sound device: %s, HostAPI: %s", dev.Name, dev.HostApi.Name)

	return spec, nil
}

func (w *ScWriter) streamParameters(spec audio.Spec, latency time.Duration) pa.StreamParameters {
	return pa.StreamParameters{
		FramesPerBuffer: spec.FrameSize,
		Output: pa.StreamDeviceParameters{
			Device:   w.deviceInfo,
			Channels: spec.Channels,
			Latency:  latency,
		},
		SampleRate: float64(spec.Rate),
	}
}

func (w *ScWriter) selectDevice() (*pa.DeviceInfo, error) {
	var hostAPI *pa.HostApiInfo

	if w.options.HostAPI == "default" {
		ha, err := DefaultHostAPI()
		if err != nil {
			return nil, err
		}
		hostAPI = ha
	} else {
		ha, err := GetHostAPI(w.options.HostAPI)
		if err != nil {
			return nil, err
		}
		hostAPI = ha
	}

	if w.options.DeviceName == "default" {
		if hostAPI.DefaultOutputDevice == nil {
			return nil, fmt.Errorf("host api %s has no default output device", hostAPI.Name)
		}
		return hostAPI.DefaultOutputDevice, nil
	}
	return getPaDevice(w.options.DeviceName, hostAPI)
}

// portaudio callback which will be called continuously when the stream is
// started; this function should be short and never block
func (w *ScWriter) playCb(out []float32,
	iTime pa.StreamCallbackTimeInfo,
	iFlags pa.StreamCallbackFlags) {

	if iFlags&pa.OutputUnderflow != 0 {
		if w.underflows.Add(1) == 1 {
			log.Debug().Msg("output underflow")
		}
	}

	w.filler.FillFloat32(out)
}

// Underflows returns the number of callbacks portaudio flagged with an
// output underflow.
func (w *ScWriter) Underflows() uint64 {
	return w.underflows.Load()
}

// Start starts streaming audio to the Soundcard output device (e.g. Speaker).
func (w *ScWriter) Start() error {
	w.Lock()
	defer w.Unlock()
	if w.stream == nil {
		return fmt.Errorf("portaudio stream not initialized")
	}
	return w.stream.Start()
}

// Close stops the stream and releases portaudio. Calling Close on a
// closed writer is a no-op.
func (w *ScWriter) Close() error {
	w.Lock()
	defer w.Unlock()

	var err error
	if w.stream != nil {
		w.stream.Abort()
		err = w.stream.Close()
		w.stream = nil
	}
	w.terminate()
	w.filler = nil
	return err
}

func (w *ScWriter) terminate() {
	if !w.initialized {
		return
	}
	if err := pa.Terminate(); err != nil {
		log.Debug().Err(err).Msg("portaudio terminate")
	}
	w.initialized = false
}

// DefaultHostAPI returns the host api used when none is configured. On
// windows WASAPI is preferred since it provides lower latency than the
// other windows audio apis. portaudio must be initialized.
func DefaultHostAPI() (*pa.HostApiInfo, error) {
	if runtime.GOOS == "windows" {
		if ha, err := pa.HostApi(pa.WASAPI); err == nil {
			return ha, nil
		}
	}
	ha, err := pa.DefaultHostApi()
	if err != nil {
		return nil, fmt.Errorf("unable to determine the default host api - please provide a specific host api")
	}
	return ha, nil
}

// ParseHostAPI maps the name of a portaudio host api to its type.
func ParseHostAPI(name string) (pa.HostApiType, error) {
	switch strings.ToLower(name) {
	case "indevelopment":
		return pa.InDevelopment, nil
	case "directsound":
		return pa.DirectSound, nil
	case "mme":
		return pa.MME, nil
	case "asio":
		return pa.ASIO, nil
	case "soundmanager":
		return pa.SoundManager, nil
	case "coreaudio":
		return pa.CoreAudio, nil
	case "oss":
		return pa.OSS, nil
	case "alsa":
		return pa.ALSA, nil
	case "al":
		return pa.AL, nil
	case "beos":
		return pa.BeOS, nil
	case "wdmks":
		return pa.WDMkS, nil
	case "jack":
		return pa.JACK, nil
	case "wasapi":
		return pa.WASAPI, nil
	case "audiosciencehpi":
		return pa.AudioScienceHPI, nil
	}
	return 0, fmt.Errorf("unknown host api type: %s", name)
}

// GetHostAPI takes the name of a supported portaudio host api and returns
// the corresponding portaudio hostApiInfo object
func GetHostAPI(name string) (*pa.HostApiInfo, error) {
	hostAPIType, err := ParseHostAPI(name)
	if err != nil {
		return nil, err
	}

	hostAPIInfo, err := pa.HostApi(hostAPIType)
	if err != nil {
		return nil, fmt.Errorf("unable to load host api %s: %w", name, err)
	}

	return hostAPIInfo, nil
}

// getPaDevice checks if the Audio Devices actually exist and
// then returns it
func getPaDevice(name string, hostAPI *pa.HostApiInfo) (*pa.DeviceInfo, error) {
	for _, device := range hostAPI.Devices {
		if device.Name == name && device.MaxOutputChannels > 0 {
			return device, nil
		}
	}
	return nil, fmt.Errorf("unknown audio output device %s", name)
}
