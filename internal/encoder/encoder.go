// Package encoder turns images into face encodings. Detection and the embedding
// model itself are delegated to a backend: dlib (subpackage dlib) or a face
// embedding server reached over HTTP.
package encoder

import (
	"context"
	"errors"
)

// ErrEncoderClosed is returned when Encode is called after Close.
var ErrEncoderClosed = errors.New("encoder closed")

// Encoding is a fixed-length face feature vector. Its length depends on the backend
// (128 for dlib, 512 for InsightFace) but is constant for one encoder.
type Encoding []float32

// Encoder detects faces in an image and returns one encoding per face, in the
// order the backend detected them. An image without faces yields an empty slice
// and no error.
type Encoder interface {
	Encode(ctx context.Context, imageData []byte) ([]Encoding, error)
	Close() error
}
