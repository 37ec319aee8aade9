// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Face matching constants
const (
	// DefaultTolerance is the maximum euclidean distance between two face encodings
	// for them to be considered the same person. Lower values = stricter matching
	DefaultTolerance = 0.6

	// DefaultBruteForceLimit is the gallery size up to which nearest-face lookups
	// scan every entry instead of querying the HNSW index
	DefaultBruteForceLimit = 256

	// HNSWCandidates is the number of neighbours fetched from the HNSW index before
	// exact distances are recomputed
	HNSWCandidates = 8
)

// HNSW index parameters for face encodings
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	// Higher values improve recall but slow down search.
	HNSWEfSearch = 100
)

// Image processing constants
const (
	// MaxImageSize is the maximum dimension (width or height) handed to a face encoder
	MaxImageSize = 1920

	// JPEGQuality is used when an image has to be re-encoded before encoding faces
	JPEGQuality = 95
)

// Annotation constants
const (
	// LabelX and LabelY are the baseline origin of the verdict label in pixels
	LabelX = 50
	LabelY = 50

	// LabelFontScale is the OpenCV font scale of the verdict label
	LabelFontScale = 2.0

	// LabelThickness is the stroke thickness of the verdict label
	LabelThickness = 2
)

// Camera constants
const (
	// DefaultCameraDevice is the system default video capture device
	DefaultCameraDevice = 0

	// DefaultWarmUp is how long the sensor is given before the frame is grabbed
	DefaultWarmUp = time.Second
)

// Broker constants
const (
	// DefaultMQTTPort is the plain-TCP MQTT port
	DefaultMQTTPort = 1883

	// DefaultKeepAlive is the MQTT keep-alive interval
	DefaultKeepAlive = 60 * time.Second

	// DefaultOperationTimeout bounds how long publish/subscribe tokens are awaited
	DefaultOperationTimeout = 10 * time.Second

	// MaxReconnectInterval caps both the initial connect backoff and paho's auto-reconnect
	MaxReconnectInterval = 2 * time.Minute
)
