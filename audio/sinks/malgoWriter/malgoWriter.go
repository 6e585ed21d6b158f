// Package malgoWriter plays the output of a mixer through miniaudio. The
// device negotiates its own sample format and the mixer renders into the
// raw byte buffer.
package malgoWriter

import (
	"encoding/hex"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog/log"

	"github.com/dh1tw/streamMixer/audio"
)

// MalgoWriter is an output device backed by a miniaudio playback device.
type MalgoWriter struct {
	sync.Mutex
	options Options
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	filler  audio.Filler
}

// NewMalgoWriter returns a writer for the default playback device of the
// platform's default backend.
func NewMalgoWriter(opts ...Option) *MalgoWriter {
	w := &MalgoWriter{
		options: Options{
			Backend:    "default",
			DeviceName: "default",
		},
	}
	for _, option := range opts {
		option(&w.options)
	}
	return w
}

// Open initializes the miniaudio context and playback device. The spec
// returned reflects the format, rate and channel count miniaudio
// actually chose.
func (w *MalgoWriter) Open(want audio.Spec, f audio.Filler) (audio.Spec, error) {
	w.Lock()
	defer w.Unlock()

	if w.device != nil {
		return audio.Spec{}, fmt.Errorf("malgo device already open")
	}

	var backends []malgo.Backend
	if w.options.Backend != "default" {
		b, err := ParseBackend(w.options.Backend)
		if err != nil {
			return audio.Spec{}, err
		}
		backends = []malgo.Backend{b}
	} else if b, ok := platformBackend(); ok {
		backends = []malgo.Backend{b}
	}

	ctx, err := malgo.InitContext(backends, malgo.ContextConfig{}, func(message string) {
		log.Debug().Msg(strings.TrimSpace(message))
	})
	if err != nil {
		return audio.Spec{}, fmt.Errorf("malgo context init failed: %w", err)
	}

	format, ok := toMalgoFormat(want.Format)
	if !ok {
		// miniaudio has no big endian or unsigned 16 bit formats
		format = malgo.FormatS16
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = format
	deviceConfig.Playback.Channels = uint32(want.Channels)
	deviceConfig.SampleRate = uint32(want.Rate)
	deviceConfig.PeriodSizeInFrames = uint32(want.FrameSize)
	deviceConfig.Alsa.NoMMap = 1

	if w.options.DeviceName != "default" {
		infos, err := ctx.Devices(malgo.Playback)
		if err != nil {
			ctx.Uninit()
			ctx.Free()
			return audio.Spec{}, fmt.Errorf("failed to get playback devices: %w", err)
		}
		info, err := SelectDevice(infos, w.options.DeviceName)
		if err != nil {
			ctx.Uninit()
			ctx.Free()
			return audio.Spec{}, err
		}
		deviceConfig.Playback.DeviceID = info.ID.Pointer()
	}

	w.filler = f
	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: w.onData,
		Stop: w.onStop,
	})
	if err != nil {
		w.filler = nil
		ctx.Uninit()
		ctx.Free()
		return audio.Spec{}, fmt.Errorf("malgo device init failed: %w", err)
	}

	got, ok := fromMalgoFormat(device.PlaybackFormat())
	if !ok {
		device.Uninit()
		w.filler = nil
		ctx.Uninit()
		ctx.Free()
		return audio.Spec{}, fmt.Errorf("%w: miniaudio format %d", audio.ErrUnsupported, device.PlaybackFormat())
	}

	w.ctx = ctx
	w.device = device

	spec := audio.Spec{
		Rate:      int(device.SampleRate()),
		Format:    got,
		Channels:  int(device.PlaybackChannels()),
		FrameSize: want.FrameSize,
	}
	log.Info().Str("spec", spec.String()).Msg("malgo playback device opened")
	return spec, nil
}

// onData is called by miniaudio on its audio thread.
func (w *MalgoWriter) onData(pOutput, pInput []byte, framecount uint32) {
	w.filler.Fill(pOutput)
}

func (w *MalgoWriter) onStop() {
	log.Debug().Msg("malgo playback device stopped")
}

// Start starts the playback device.
func (w *MalgoWriter) Start() error {
	w.Lock()
	defer w.Unlock()
	if w.device == nil {
		return fmt.Errorf("malgo device not initialized")
	}
	return w.device.Start()
}

// Close stops and releases the device and the miniaudio context. Calling
// Close on a closed writer is a no-op.
func (w *MalgoWriter) Close() error {
	w.Lock()
	defer w.Unlock()

	var err error
	if w.device != nil {
		if w.device.IsStarted() {
			err = w.device.Stop()
		}
		w.device.Uninit()
		w.device = nil
	}
	if w.ctx != nil {
		if uerr := w.ctx.Uninit(); uerr != nil && err == nil {
			err = uerr
		}
		w.ctx.Free()
		w.ctx = nil
	}
	w.filler = nil
	return err
}

func toMalgoFormat(f audio.SampleFormat) (malgo.FormatType, bool) {
	native, _ := audio.ParseSampleFormat("s16")
	little := native == audio.FormatS16LSB
	switch f {
	case audio.FormatU8:
		return malgo.FormatU8, true
	case audio.FormatS16LSB:
		return malgo.FormatS16, little
	case audio.FormatS16MSB:
		return malgo.FormatS16, !little
	case audio.FormatS24LSB:
		return malgo.FormatS24, little
	case audio.FormatS32LSB:
		return malgo.FormatS32, little
	case audio.FormatS32MSB:
		return malgo.FormatS32, !little
	case audio.FormatF32LSB:
		return malgo.FormatF32, little
	case audio.FormatF32MSB:
		return malgo.FormatF32, !little
	}
	return malgo.FormatUnknown, false
}

// fromMalgoFormat maps a miniaudio format onto the SampleFormat of the
// same layout. miniaudio buffers are in native byte order; packed 24 bit
// samples are only supported on little endian hosts.
func fromMalgoFormat(f malgo.FormatType) (audio.SampleFormat, bool) {
	var name string
	switch f {
	case malgo.FormatU8:
		return audio.FormatU8, true
	case malgo.FormatS16:
		name = "s16"
	case malgo.FormatS24:
		name = "s24"
	case malgo.FormatS32:
		name = "s32"
	case malgo.FormatF32:
		name = "f32"
	default:
		return audio.FormatUnknown, false
	}
	sf, err := audio.ParseSampleFormat(name)
	if err != nil {
		return audio.FormatUnknown, false
	}
	if sf == audio.FormatS24LSB {
		if s16, _ := audio.ParseSampleFormat("s16"); s16 != audio.FormatS16LSB {
			return audio.FormatUnknown, false
		}
	}
	return sf, true
}

func platformBackend() (malgo.Backend, bool) {
	switch runtime.GOOS {
	case "linux":
		return malgo.BackendAlsa, true
	case "windows":
		return malgo.BackendWasapi, true
	case "darwin":
		return malgo.BackendCoreaudio, true
	}
	return malgo.BackendNull, false
}

// ParseBackend maps a backend name onto the miniaudio backend.
func ParseBackend(name string) (malgo.Backend, error) {
	switch strings.ToLower(name) {
	case "alsa":
		return malgo.BackendAlsa, nil
	case "pulse", "pulseaudio":
		return malgo.BackendPulseaudio, nil
	case "jack":
		return malgo.BackendJack, nil
	case "wasapi":
		return malgo.BackendWasapi, nil
	case "dsound", "directsound":
		return malgo.BackendDsound, nil
	case "winmm":
		return malgo.BackendWinmm, nil
	case "coreaudio":
		return malgo.BackendCoreaudio, nil
	case "oss":
		return malgo.BackendOss, nil
	case "null":
		return malgo.BackendNull, nil
	}
	return malgo.BackendNull, fmt.Errorf("unknown malgo backend: %s", name)
}

// DeviceInfo describes a playback device.
type DeviceInfo struct {
	Index     int
	Name      string
	ID        string
	IsDefault bool
}

// EnumerateDevices returns the playback devices of the given backend.
func EnumerateDevices(backend string) ([]DeviceInfo, error) {
	var backends []malgo.Backend
	if backend != "" && backend != "default" {
		b, err := ParseBackend(backend)
		if err != nil {
			return nil, err
		}
		backends = []malgo.Backend{b}
	}

	ctx, err := malgo.InitContext(backends, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("failed to get devices: %w", err)
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for i := range infos {
		devices = append(devices, DeviceInfo{
			Index:     i,
			Name:      infos[i].Name(),
			ID:        decodeID(infos[i].ID.String()),
			IsDefault: infos[i].IsDefault == 1,
		})
	}
	return devices, nil
}

// SelectDevice finds a device matching the given name or ID. Exact name
// matches win over ID matches, which win over partial name matches.
func SelectDevice(devices []malgo.DeviceInfo, name string) (*malgo.DeviceInfo, error) {
	if name == "" || name == "default" {
		for i := range devices {
			if devices[i].IsDefault == 1 {
				return &devices[i], nil
			}
		}
		if len(devices) > 0 {
			return &devices[0], nil
		}
	}

	for i := range devices {
		if devices[i].Name() == name {
			return &devices[i], nil
		}
	}

	for i := range devices {
		if decodeID(devices[i].ID.String()) == name {
			return &devices[i], nil
		}
	}

	for i := range devices {
		if strings.Contains(devices[i].Name(), name) {
			return &devices[i], nil
		}
	}

	return nil, fmt.Errorf("unknown audio output device %s", name)
}

// decodeID turns the hex encoded device id into readable text, e.g. an
// ALSA device string. Undecodable ids are returned unchanged.
func decodeID(id string) string {
	b, err := hex.DecodeString(id)
	if err != nil {
		return id
	}
	return strings.TrimRight(string(b), "\x00")
}
