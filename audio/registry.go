package audio

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
)

// NewDecoderFunc constructs an empty Decoder.
type NewDecoderFunc func() Decoder

type registryEntry struct {
	name      string
	newFn     NewDecoderFunc
	autoProbe bool
}

// Registry holds decoder constructors in probing priority order.
type Registry struct {
	sync.RWMutex
	entries []registryEntry
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a decoder constructor. Decoders with autoProbe set
// to false are never tried by Detect and must be requested by name with
// OpenAs. Registering an existing name replaces the entry in place.
func (r *Registry) Register(name string, newFn NewDecoderFunc, autoProbe bool) {
	r.Lock()
	defer r.Unlock()

	e := registryEntry{name: name, newFn: newFn, autoProbe: autoProbe}
	for i := range r.entries {
		if r.entries[i].name == name {
			r.entries[i] = e
			return
		}
	}
	r.entries = append(r.entries, e)
}

// Names returns the registered decoder names in priority order.
func (r *Registry) Names() []string {
	r.RLock()
	defer r.RUnlock()

	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.name)
	}
	return names
}

// Detect probes src with every auto-probing decoder in priority order
// and returns the first one which opens successfully. src is rewound
// before each attempt.
func (r *Registry) Detect(src io.ReadSeeker) (Decoder, error) {
	r.RLock()
	entries := make([]registryEntry, len(r.entries))
	copy(entries, r.entries)
	r.RUnlock()

	for _, e := range entries {
		if !e.autoProbe {
			continue
		}
		if _, err := src.Seek(0, io.SeekStart); err != nil {
			err = fmt.Errorf("rewinding source: %w", err)
			SetLastError(err)
			return nil, err
		}
		dec := e.newFn()
		if err := dec.Open(src); err != nil {
			log.Debug().Str("decoder", e.name).Err(err).Msg("probe failed")
			dec.Close()
			continue
		}
		log.Debug().Str("decoder", e.name).Msg("format detected")
		return dec, nil
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		log.Debug().Err(err).Msg("unable to rewind source after probing")
	}
	SetLastError(ErrNoDecoder)
	return nil, ErrNoDecoder
}

// OpenAs opens src with the decoder registered under name, regardless
// of whether the decoder takes part in auto detection.
func (r *Registry) OpenAs(name string, src io.ReadSeeker) (Decoder, error) {
	r.RLock()
	var newFn NewDecoderFunc
	for _, e := range r.entries {
		if e.name == name {
			newFn = e.newFn
			break
		}
	}
	r.RUnlock()

	if newFn == nil {
		err := fmt.Errorf("%w: unknown decoder %q", ErrNoDecoder, name)
		SetLastError(err)
		return nil, err
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		err = fmt.Errorf("rewinding source: %w", err)
		SetLastError(err)
		return nil, err
	}

	dec := newFn()
	if err := dec.Open(src); err != nil {
		dec.Close()
		err = fmt.Errorf("%s decoder: %w", name, err)
		SetLastError(err)
		return nil, err
	}
	return dec, nil
}
