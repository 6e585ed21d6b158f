package audio

import (
	"errors"
	"sync"
)

var (
	ErrNotOpen        = errors.New("decoder not open")
	ErrNoDecoder      = errors.New("no suitable decoder found")
	ErrNoData         = errors.New("source contains no data")
	ErrUnsupported    = errors.New("unsupported audio format")
	ErrNotSeekable    = errors.New("source is not seekable")
	ErrInvalidSpec    = errors.New("invalid audio spec")
	ErrNotInitialized = errors.New("audio output not initialized")
	ErrNoSoundFont    = errors.New("no sound font loaded")
)

var lastErr struct {
	sync.Mutex
	msg string
}

// SetLastError records err as the most recent open/format failure of
// the process. A nil error is ignored.
func SetLastError(err error) {
	if err == nil {
		return
	}
	lastErr.Lock()
	lastErr.msg = err.Error()
	lastErr.Unlock()
}

// LastError returns the message of the most recent open/format failure
// or an empty string.
func LastError() string {
	lastErr.Lock()
	defer lastErr.Unlock()
	return lastErr.msg
}

// ClearLastError resets the last error message.
func ClearLastError() {
	lastErr.Lock()
	lastErr.msg = ""
	lastErr.Unlock()
}
