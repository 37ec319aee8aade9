// Package dlib encodes faces locally with dlib's ResNet model via go-face.
// It needs the dlib models (shape_predictor_5_face_landmarks.dat,
// dlib_face_recognition_resnet_model_v1.dat, mmod_human_face_detector.dat)
// in the models directory.
package dlib

import (
	"context"
	"fmt"
	"sync"

	face "github.com/Kagami/go-face"

	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/constants"
	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/encoder"
)

// Encoder wraps a go-face recognizer. The underlying recognizer is not safe for
// concurrent use, so every call is serialized.
type Encoder struct {
	mu  sync.Mutex
	rec *face.Recognizer
}

// New loads the dlib models from modelsDir.
func New(modelsDir string) (*Encoder, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load dlib models from %s: %w", modelsDir, err)
	}
	return &Encoder{rec: rec}, nil
}

// Encode implements encoder.Encoder. go-face only accepts JPEG, so other
// formats are converted first.
func (e *Encoder) Encode(ctx context.Context, imageData []byte) ([]encoder.Encoding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	jpegData, err := encoder.PrepareJPEG(imageData, constants.MaxImageSize)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec == nil {
		return nil, encoder.ErrEncoderClosed
	}

	faces, err := e.rec.Recognize(jpegData)
	if err != nil {
		return nil, fmt.Errorf("dlib recognition failed: %w", err)
	}

	encodings := make([]encoder.Encoding, 0, len(faces))
	for _, f := range faces {
		enc := make(encoder.Encoding, len(f.Descriptor))
		copy(enc, f.Descriptor[:])
		encodings = append(encodings, enc)
	}
	return encodings, nil
}

// Close frees the dlib models.
func (e *Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec != nil {
		e.rec.Close()
		e.rec = nil
	}
	return nil
}
