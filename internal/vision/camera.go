package vision

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Camera captures single still frames from a video device. The device is opened
// for each capture and released afterwards so other processes can use it between
// triggers.
type Camera struct {
	device int
	warmUp time.Duration
	log    log.FieldLogger
}

// NewCamera creates a camera for the given device index.
func NewCamera(device int, warmUp time.Duration, logger log.FieldLogger) *Camera {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Camera{device: device, warmUp: warmUp, log: logger}
}

// Capture opens the device, waits for the sensor to settle, reads one frame and
// writes it to path (format chosen by extension).
func (c *Camera) Capture(ctx context.Context, path string) error {
	webcam, err := gocv.OpenVideoCapture(c.device)
	if err != nil {
		return fmt.Errorf("%w: device %d: %w", ErrDeviceUnavailable, c.device, err)
	}
	defer webcam.Close()

	if !webcam.IsOpened() {
		return fmt.Errorf("%w: device %d", ErrDeviceUnavailable, c.device)
	}

	if c.warmUp > 0 {
		timer := time.NewTimer(c.warmUp)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	frame := gocv.NewMat()
	defer frame.Close()

	if ok := webcam.Read(&frame); !ok {
		return fmt.Errorf("%w: device %d returned no frame", ErrCaptureFailed, c.device)
	}
	if frame.Empty() {
		return fmt.Errorf("%w: empty frame", ErrCaptureFailed)
	}

	if !gocv.IMWrite(path, frame) {
		return fmt.Errorf("%w: cannot write %s", ErrCaptureFailed, path)
	}

	c.log.WithFields(log.Fields{
		"device": c.device,
		"path":   path,
		"width":  frame.Cols(),
		"height": frame.Rows(),
	}).Debug("Frame captured")
	return nil
}
