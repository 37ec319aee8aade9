package facematch

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/constants"
	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/encoder"
	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/gallery"
)

// Recognizer matches probe images against a gallery.
type Recognizer struct {
	gallery   *gallery.Gallery
	encoder   encoder.Encoder
	tolerance float64
	log       log.FieldLogger
}

// NewRecognizer creates a recognizer. tolerance <= 0 uses the default.
func NewRecognizer(g *gallery.Gallery, enc encoder.Encoder, tolerance float64, logger log.FieldLogger) *Recognizer {
	if tolerance <= 0 {
		tolerance = constants.DefaultTolerance
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Recognizer{gallery: g, encoder: enc, tolerance: tolerance, log: logger}
}

// Tolerance returns the match threshold in use.
func (r *Recognizer) Tolerance() float64 {
	return r.tolerance
}

// Recognize reads the probe image at path and recognizes it.
func (r *Recognizer) Recognize(ctx context.Context, path string) (Outcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to read probe image: %w", err)
	}
	return r.RecognizeImage(ctx, data)
}

// RecognizeImage recognizes the first face in imageData. Encoder failures are returned as is.
func (r *Recognizer) RecognizeImage(ctx context.Context, imageData []byte) (Outcome, error) {
	encodings, err := r.encoder.Encode(ctx, imageData)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to encode probe image: %w", err)
	}
	if len(encodings) > 1 {
		r.log.WithField("faces", len(encodings)).Debug("Multiple faces in probe, using the first")
	}

	outcome := Decide(r.gallery, encodings, r.tolerance)
	r.log.WithFields(log.Fields{
		"outcome":  outcome.Kind.String(),
		"nearest":  outcome.Name,
		"distance": outcome.Distance,
	}).Debug("Probe recognized")
	return outcome, nil
}

// Decide applies the match rule to the encodings found in a probe: only the first
// face counts, and it matches when any enrolled face is within tolerance.
func Decide(g *gallery.Gallery, encodings []encoder.Encoding, tolerance float64) Outcome {
	if len(encodings) == 0 {
		return Outcome{Kind: NoFaceDetected}
	}

	m, ok := g.Within(encodings[0], tolerance)
	if !ok {
		return Outcome{Kind: NotMatched}
	}
	if m.Distance <= tolerance {
		return Outcome{Kind: Matched, Name: m.Name, Distance: m.Distance}
	}
	return Outcome{Kind: NotMatched, Name: m.Name, Distance: m.Distance}
}
