package cmd

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"

	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/config"
	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/encoder"
	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/encoder/dlib"
	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/gallery"
)

// newEncoder creates the face encoder backend selected in cfg.
func newEncoder(cfg *config.Config) (encoder.Encoder, error) {
	switch cfg.Encoder.Backend {
	case config.EncoderDlib:
		enc, err := dlib.New(cfg.Encoder.ModelsDir)
		if err != nil {
			return nil, err
		}
		return enc, nil
	case config.EncoderHTTP:
		return encoder.NewHTTPEncoder(cfg.Encoder.EmbeddingURL), nil
	default:
		return nil, fmt.Errorf("unknown face encoder %q", cfg.Encoder.Backend)
	}
}

// loadGallery loads the enrollment directory, optionally with a progress bar on stdout.
func loadGallery(ctx context.Context, cfg *config.Config, enc encoder.Encoder, showProgress bool) (*gallery.Gallery, error) {
	opts := gallery.LoadOptions{
		BruteForceLimit: cfg.Faces.BruteForceLimit,
		Logger:          log.StandardLogger(),
	}

	var bar *progressbar.ProgressBar
	if showProgress {
		opts.OnProgress = func(p gallery.ProgressInfo) {
			if bar == nil {
				bar = progressbar.NewOptions(p.Total,
					progressbar.OptionSetDescription("Encoding faces"),
					progressbar.OptionShowCount(),
					progressbar.OptionShowIts(),
					progressbar.OptionSetItsString("images"),
					progressbar.OptionShowElapsedTimeOnFinish(),
					progressbar.OptionSetPredictTime(true),
					progressbar.OptionFullWidth(),
				)
			}
			bar.Add(1)
		}
	}

	g, err := gallery.Load(ctx, cfg.Faces.Dir, enc, opts)
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load gallery: %w", err)
	}
	return g, nil
}
