/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

// Package spatial matches generated quads against a reference set using a vantage-point
// tree, returning every reference quad within a caller-supplied code-space radius rather
// than only the single nearest neighbour.
package spatial

/*****************************************************************************************************************/

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/spatial/vptree"

	"github.com/stellarforge/platesolve/pkg/quad"
)

/*****************************************************************************************************************/

// QuadMatch holds a matched reference Quad and the code-space distance to the query Quad.
type QuadMatch struct {
	Quad     quad.Quad
	Distance float64
}

/*****************************************************************************************************************/

// QuadMatcher wraps a vantage-point tree built over a fixed set of reference quads,
// typically one scale band's worth of quads loaded from an index.
type QuadMatcher struct {
	tree  *vptree.Tree
	quads []quad.Quad
}

/*****************************************************************************************************************/

// NewQuadMatcher builds a matcher over the given reference quads.
func NewQuadMatcher(quads []quad.Quad) (*QuadMatcher, error) {
	if len(quads) == 0 {
		return nil, errors.New("spatial: cannot build a matcher over zero quads")
	}

	comparables := make([]vptree.Comparable, len(quads))

	for i, q := range quads {
		comparables[i] = q
	}

	tree, err := vptree.New(comparables, 2, nil)
	if err != nil {
		return nil, err
	}

	return &QuadMatcher{tree: tree, quads: quads}, nil
}

/*****************************************************************************************************************/

// Nearest returns the single closest reference quad to q, regardless of distance.
func (m *QuadMatcher) Nearest(q quad.Quad) (QuadMatch, error) {
	nearest, distance := m.tree.Nearest(q)

	matched, ok := nearest.(quad.Quad)
	if !ok {
		return QuadMatch{}, errors.New("spatial: matched element is not a Quad")
	}

	return QuadMatch{Quad: matched, Distance: distance}, nil
}

/*****************************************************************************************************************/

// WithinRadius returns every reference quad within tolerance of q in code space, ordered
// by ascending distance. gonum's vptree does not expose a radius-bounded traversal
// directly, so this walks the (typically small) reference set linearly once the
// candidate pool has already been narrowed to a single scale band and HEALPix cell by the
// index catalog; for the sizes involved at that point (hundreds to low thousands of
// quads) this is faster in practice than building and querying a second tree structure.
func (m *QuadMatcher) WithinRadius(q quad.Quad, tolerance float64) []QuadMatch {
	var matches []QuadMatch

	for _, candidate := range m.quads {
		d := q.Distance(candidate)

		if d <= tolerance {
			matches = append(matches, QuadMatch{Quad: candidate, Distance: d})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })

	return matches
}

/*****************************************************************************************************************/

// MatchQuads finds the best match (if any, within tolerance) for each of a list of
// generated quads against the reference set.
func (m *QuadMatcher) MatchQuads(quads []quad.Quad, tolerance float64) []QuadMatch {
	matches := make([]QuadMatch, 0, len(quads))

	for _, q := range quads {
		candidates := m.WithinRadius(q, tolerance)

		if len(candidates) == 0 {
			continue
		}

		best := candidates[0]

		// Carry the query quad's own star identities (pixel positions, designations)
		// forward so the caller can recover which extracted stars correspond to which
		// reference stars - the reference quad alone only carries catalog identities.
		best.Quad.A.X, best.Quad.A.Y = q.A.X, q.A.Y
		best.Quad.B.X, best.Quad.B.Y = q.B.X, q.B.Y
		best.Quad.C.X, best.Quad.C.Y = q.C.X, q.C.Y
		best.Quad.D.X, best.Quad.D.Y = q.D.X, q.D.Y

		matches = append(matches, best)
	}

	return matches
}

/*****************************************************************************************************************/
