package mesh

import (
	"errors"
	"sort"

	"github.com/bits-and-blooms/bitset"
	"github.com/goccy/go-json"
)

// FaceSet is the set of face indices flagged by an intersection index, kept sorted and
// distinct. Bitsets are only built by Within, sized to a face count.
type FaceSet struct {
	faces []int
}

// NewFaceSet builds a set from raw face indices. Negative entries are dropped.
func NewFaceSet(faces []int) *FaceSet {
	out := make([]int, 0, len(faces))
	for _, f := range faces {
		if f >= 0 {
			out = append(out, f)
		}
	}
	sort.Ints(out)
	s := &FaceSet{faces: out[:0]}
	for i, f := range out {
		if i > 0 && f == out[i-1] {
			continue
		}
		s.faces = append(s.faces, f)
	}
	return s
}

// Has reports membership of face i.
func (s *FaceSet) Has(i int) bool {
	if s == nil || i < 0 {
		return false
	}
	k := sort.SearchInts(s.faces, i)
	return k < len(s.faces) && s.faces[k] == i
}

// Within returns the members below n as a bitset of length n.
func (s *FaceSet) Within(n int) *bitset.BitSet {
	if n < 0 {
		n = 0
	}
	b := bitset.New(uint(n))
	if s == nil {
		return b
	}
	for _, f := range s.faces {
		if f >= n {
			break
		}
		b.Set(uint(f))
	}
	return b
}

// Len is the number of distinct entries.
func (s *FaceSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.faces)
}

// DecodeFaceIndex parses an intersection.json payload: a JSON array of integer face indices.
func DecodeFaceIndex(data []byte) ([]int, error) {
	var faces []int
	if err := json.Unmarshal(data, &faces); err != nil {
		return nil, err
	}
	return faces, nil
}

// ErrIndexed is returned when per-face coloring is asked of geometry that still shares vertices.
var ErrIndexed = errors.New("mesh: face coloring needs non-indexed geometry")

// ColorFaces writes one color per vertex: red for the three vertices of every face in set,
// white otherwise. Entries of set beyond the face count are ignored.
func ColorFaces(g *Geometry, set *FaceSet) error {
	if g.Indexed() {
		return ErrIndexed
	}
	n := g.FaceCount()
	flagged := set.Within(n)
	if len(g.Colors) != len(g.Positions) {
		g.Colors = make([]Color, len(g.Positions))
	}
	for f := 0; f < n; f++ {
		c := White
		if flagged.Test(uint(f)) {
			c = Red
		}
		g.Colors[3*f], g.Colors[3*f+1], g.Colors[3*f+2] = c, c, c
	}
	return nil
}
