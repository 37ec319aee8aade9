// Package encodertest provides an in-memory encoder for tests. Images are
// identified by their raw bytes, so test fixtures can be plain text files.
package encodertest

import (
	"context"
	"errors"
	"sync"

	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/encoder"
)

// ErrCorrupt is returned for images registered with Corrupt.
var ErrCorrupt = errors.New("corrupt image")

// Fake maps image content to the faces found in it. Unknown content has no faces.
type Fake struct {
	mu      sync.Mutex
	faces   map[string][]encoder.Encoding
	corrupt map[string]bool
	calls   int
	closed  bool
}

// New creates an empty fake encoder.
func New() *Fake {
	return &Fake{
		faces:   make(map[string][]encoder.Encoding),
		corrupt: make(map[string]bool),
	}
}

// Face registers content as an image containing the given faces.
func (f *Fake) Face(content string, encs ...encoder.Encoding) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faces[content] = encs
	return f
}

// Corrupt registers content as an image that fails to encode.
func (f *Fake) Corrupt(content string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.corrupt[content] = true
	return f
}

// Calls returns how many times Encode was called.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Encode implements encoder.Encoder.
func (f *Fake) Encode(ctx context.Context, imageData []byte) ([]encoder.Encoding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.closed {
		return nil, encoder.ErrEncoderClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := string(imageData)
	if f.corrupt[key] {
		return nil, ErrCorrupt
	}
	return f.faces[key], nil
}

// Close implements encoder.Encoder.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
