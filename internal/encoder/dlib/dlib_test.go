package dlib

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"testing"

	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/encoder"
)

func modelsDir(t *testing.T) string {
	t.Helper()
	dir := os.Getenv("DLIB_MODELS_DIR")
	if dir == "" {
		dir = "../../../models"
	}
	if _, err := os.Stat(dir); err != nil {
		t.Skipf("dlib models not available in %s", dir)
	}
	return dir
}

func TestEncode_BlankImageHasNoFaces(t *testing.T) {
	enc, err := New(modelsDir(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer enc.Close()

	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for x := range 64 {
		for y := range 64 {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}

	encodings, err := enc.Encode(context.Background(), buf.Bytes())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(encodings) != 0 {
		t.Errorf("expected no faces in a blank image, got %d", len(encodings))
	}
}

func TestEncode_AfterClose(t *testing.T) {
	enc := &Encoder{}
	enc.Close()

	var buf bytes.Buffer
	jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8)), nil)

	_, err := enc.Encode(context.Background(), buf.Bytes())
	if !errors.Is(err, encoder.ErrEncoderClosed) {
		t.Errorf("expected ErrEncoderClosed, got %v", err)
	}
}
