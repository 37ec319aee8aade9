// Package gallery holds the enrolled faces: one encoding per person, loaded once
// from a directory of reference images and read-only afterwards.
package gallery

import (
	"fmt"
	"sort"

	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/constants"
	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/encoder"
)

// Entry is one enrolled face.
type Entry struct {
	Name     string           // file stem of the reference image
	Path     string           // reference image the encoding came from
	Encoding encoder.Encoding // first face found in the image
}

// Match is the nearest enrolled face to a probe encoding.
type Match struct {
	Name     string
	Distance float64
}

// candidateIndex narrows a lookup to a few approximate neighbours.
type candidateIndex interface {
	candidates(query []float32, k int) []int
}

// Gallery is an immutable set of enrolled faces.
type Gallery struct {
	entries []Entry
	index   candidateIndex // nil when the gallery is small enough to scan
}

// New builds a gallery from entries. Later entries replace earlier ones with the
// same name. All encodings must have the same length. Galleries with more than
// bruteForceLimit entries get an HNSW index (bruteForceLimit <= 0 uses the default).
func New(entries []Entry, bruteForceLimit int) (*Gallery, error) {
	if bruteForceLimit <= 0 {
		bruteForceLimit = constants.DefaultBruteForceLimit
	}

	byName := make(map[string]int, len(entries))
	deduped := make([]Entry, 0, len(entries))
	dim := -1
	for _, e := range entries {
		if len(e.Encoding) == 0 {
			return nil, fmt.Errorf("entry %q has an empty encoding", e.Name)
		}
		if dim == -1 {
			dim = len(e.Encoding)
		} else if len(e.Encoding) != dim {
			return nil, fmt.Errorf("entry %q has encoding length %d, expected %d", e.Name, len(e.Encoding), dim)
		}

		e.Encoding = append(encoder.Encoding(nil), e.Encoding...)
		if i, ok := byName[e.Name]; ok {
			deduped[i] = e
			continue
		}
		byName[e.Name] = len(deduped)
		deduped = append(deduped, e)
	}

	sort.Slice(deduped, func(i, j int) bool { return deduped[i].Name < deduped[j].Name })

	g := &Gallery{entries: deduped}
	if len(deduped) > bruteForceLimit {
		g.index = newHNSWIndex(deduped)
	}
	return g, nil
}

// Len returns the number of enrolled faces.
func (g *Gallery) Len() int {
	if g == nil {
		return 0
	}
	return len(g.entries)
}

// Names returns the enrolled names in sorted order.
func (g *Gallery) Names() []string {
	names := make([]string, 0, g.Len())
	for i := 0; i < g.Len(); i++ {
		names = append(names, g.entries[i].Name)
	}
	return names
}

// Entries returns a copy of the enrolled faces.
func (g *Gallery) Entries() []Entry {
	out := make([]Entry, g.Len())
	if g != nil {
		copy(out, g.entries)
	}
	return out
}

// Indexed reports whether lookups go through the HNSW index.
func (g *Gallery) Indexed() bool {
	return g != nil && g.index != nil
}

// Nearest returns the closest enrolled face to enc. On an indexed gallery the
// result is approximate: the exact nearest entry can be missed by the graph walk.
// The second return value is false when the gallery is empty.
func (g *Gallery) Nearest(enc encoder.Encoding) (Match, bool) {
	if g.Len() == 0 || len(enc) == 0 {
		return Match{}, false
	}
	if g.index != nil && len(enc) == len(g.entries[0].Encoding) {
		// Approximate candidates, exact distances.
		return g.best(enc, g.index.candidates(enc, constants.HNSWCandidates))
	}
	return g.scan(enc)
}

// Within returns the nearest enrolled face to enc, resolved exactly whenever the
// index finds nothing within tolerance. A true match is therefore never lost to
// the approximation; ok is false only for an empty gallery.
func (g *Gallery) Within(enc encoder.Encoding, tolerance float64) (Match, bool) {
	m, ok := g.Nearest(enc)
	if !g.Indexed() || (ok && m.Distance <= tolerance) {
		return m, ok
	}
	return g.scan(enc)
}

func (g *Gallery) scan(enc encoder.Encoding) (Match, bool) {
	if g.Len() == 0 || len(enc) == 0 {
		return Match{}, false
	}
	all := make([]int, len(g.entries))
	for i := range all {
		all[i] = i
	}
	return g.best(enc, all)
}

func (g *Gallery) best(enc encoder.Encoding, positions []int) (Match, bool) {
	best := -1
	bestDist := 0.0
	for _, i := range positions {
		if i < 0 || i >= len(g.entries) {
			continue
		}
		d := EuclideanDistance(enc, g.entries[i].Encoding)
		if best == -1 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best == -1 {
		return Match{}, false
	}
	return Match{Name: g.entries[best].Name, Distance: bestDist}, true
}
