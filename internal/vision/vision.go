// Package vision wraps OpenCV (gocv) for the two things the gate needs from it:
// grabbing one frame from a camera and burning a verdict label into an image.
package vision

import "errors"

var (
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	ErrCaptureFailed     = errors.New("capture failed")
	ErrImageUnreadable   = errors.New("image unreadable")
	ErrImageWrite        = errors.New("image write failed")
)
