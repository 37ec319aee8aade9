package gallery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/encoder"
)

// imageExtensions are the reference image formats picked up from the enrollment directory.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// ProgressInfo contains progress information for callbacks
type ProgressInfo struct {
	Current  int
	Total    int
	Path     string
	Enrolled bool // false when the image had no face
}

// LoadOptions tunes Load. The zero value is usable.
type LoadOptions struct {
	BruteForceLimit int                // <= 0 uses the default
	OnProgress      func(ProgressInfo) // Optional progress callback, called after each image
	Logger          log.FieldLogger    // nil uses the standard logger
}

// ListImages returns every reference image under dir in lexical walk order.
func ListImages(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if imageExtensions[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// nameFromPath returns the file stem, which is the enrolled person's name.
func nameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Load encodes every reference image in dir and builds a gallery from the first
// face of each. Images without a face are skipped. A missing directory yields an
// empty gallery. Read and encode failures are returned.
func Load(ctx context.Context, dir string, enc encoder.Encoder, opts LoadOptions) (*Gallery, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}

	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.WithField("dir", dir).Warn("Enrollment directory not found, every face will be unknown")
			return New(nil, opts.BruteForceLimit)
		}
		return nil, fmt.Errorf("failed to read enrollment directory: %w", err)
	}

	paths, err := ListImages(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollment images: %w", err)
	}
	if len(paths) == 0 {
		logger.WithField("dir", dir).Warn("Enrollment directory has no images, every face will be unknown")
	}

	seen := make(map[string]string, len(paths))
	entries := make([]Entry, 0, len(paths))
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		encodings, err := enc.Encode(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", path, err)
		}

		enrolled := len(encodings) > 0
		if enrolled {
			name := nameFromPath(path)
			if prev, ok := seen[name]; ok {
				logger.WithFields(log.Fields{"name": name, "previous": prev, "path": path}).
					Warn("Duplicate enrollment name, keeping the later image")
			}
			seen[name] = path
			entries = append(entries, Entry{Name: name, Path: path, Encoding: encodings[0]})
		} else {
			logger.WithField("path", path).Debug("No face found, skipping")
		}

		if opts.OnProgress != nil {
			opts.OnProgress(ProgressInfo{Current: i + 1, Total: len(paths), Path: path, Enrolled: enrolled})
		}
	}

	g, err := New(entries, opts.BruteForceLimit)
	if err != nil {
		return nil, err
	}
	logger.WithFields(log.Fields{"dir": dir, "images": len(paths), "enrolled": g.Len()}).Info("Gallery loaded")
	return g, nil
}
