package mesh

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// ParseOBJ reads the vertex and face records of a Wavefront OBJ stream into an indexed
// triangle geometry. Polygons are fan-triangulated; texture and normal references are ignored.
func ParseOBJ(r io.Reader) (*Geometry, error) {
	g := &Geometry{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		words := strings.Fields(sc.Text())
		if len(words) == 0 || strings.HasPrefix(words[0], "#") {
			continue
		}
		switch words[0] {
		case "v":
			if len(words) < 4 {
				return nil, fmt.Errorf("obj line %d: vertex needs 3 coordinates", line)
			}
			var xyz [3]float64
			for i := range xyz {
				f, err := strconv.ParseFloat(words[i+1], 64)
				if err != nil {
					return nil, fmt.Errorf("obj line %d: %w", line, err)
				}
				xyz[i] = f
			}
			g.Positions = append(g.Positions, r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]})
		case "f":
			if len(words) < 4 {
				return nil, fmt.Errorf("obj line %d: face needs at least 3 vertices", line)
			}
			poly := make([]int, 0, len(words)-1)
			for _, w := range words[1:] {
				idx, err := faceIndex(w, len(g.Positions))
				if err != nil {
					return nil, fmt.Errorf("obj line %d: %w", line, err)
				}
				poly = append(poly, idx)
			}
			for i := 1; i+1 < len(poly); i++ {
				g.Index = append(g.Index, poly[0], poly[i], poly[i+1])
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if g.Index == nil {
		g.Index = []int{}
	}
	return g, nil
}

// faceIndex resolves one "v", "v/vt", "v//vn" or "v/vt/vn" reference, including negative
// (relative) indices, to a 0-based vertex index.
func faceIndex(word string, nverts int) (int, error) {
	if i := strings.IndexByte(word, '/'); i >= 0 {
		word = word[:i]
	}
	n, err := strconv.Atoi(word)
	if err != nil {
		return 0, err
	}
	switch {
	case n > 0:
		n--
	case n < 0:
		n += nverts
	default:
		return 0, fmt.Errorf("vertex index 0 is invalid")
	}
	if n < 0 || n >= nverts {
		return 0, fmt.Errorf("vertex index %s out of range (%d vertices)", word, nverts)
	}
	return n, nil
}
