// Package facematch decides whether the face in a probe image belongs to an
// enrolled person.
package facematch

import "fmt"

// Kind tags the outcome of one recognition.
type Kind int

const (
	NoFaceDetected Kind = iota // probe has no detectable face
	NotMatched                 // face present, nothing within tolerance
	Matched                    // face within tolerance of an enrolled face
)

func (k Kind) String() string {
	switch k {
	case NoFaceDetected:
		return "no_face_detected"
	case NotMatched:
		return "not_matched"
	case Matched:
		return "matched"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Verdict is the two-valued decision published on the bus.
type Verdict int

const (
	Unknown Verdict = iota
	Known
)

func (v Verdict) String() string {
	if v == Known {
		return "known"
	}
	return "unknown"
}

// Outcome is the result of recognizing one probe image.
// Name and Distance describe the nearest enrolled face and are empty for
// NoFaceDetected or an empty gallery.
type Outcome struct {
	Kind     Kind
	Name     string
	Distance float64
}

// Verdict projects the outcome onto Known/Unknown. A probe without a face is Unknown.
func (o Outcome) Verdict() Verdict {
	if o.Kind == Matched {
		return Known
	}
	return Unknown
}

func (o Outcome) String() string {
	switch o.Kind {
	case Matched:
		return fmt.Sprintf("matched %s (distance %.3f)", o.Name, o.Distance)
	case NotMatched:
		if o.Name == "" {
			return "not matched"
		}
		return fmt.Sprintf("not matched, nearest %s (distance %.3f)", o.Name, o.Distance)
	default:
		return o.Kind.String()
	}
}
