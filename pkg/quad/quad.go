/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

// Package quad builds scale/rotation/translation-invariant 4-star codes, the unit this
// module matches extracted star fields against a reference index with.
package quad

/*****************************************************************************************************************/

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/vptree"

	"github.com/stellarforge/platesolve/pkg/geometry"
	"github.com/stellarforge/platesolve/pkg/star"
)

/*****************************************************************************************************************/

var NORMALISATION_ANGLE = math.Pi / 4

/*****************************************************************************************************************/

// Quad represents a quadrilateral formed by four cartesian points in Euclidean space.
type Quad struct {
	A           star.Star  // the original value of quad point A (at 0,0 once normalised)
	B           star.Star  // the original value of quad point B (at 1,1 once normalised)
	C           star.Star  // the original value of quad point C (at cx, cy)
	D           star.Star  // the original value of quad point D (at dx, dy)
	NormalisedA star.Star  // the normalised value of quad point A in Euclidean space
	NormalisedB star.Star  // the normalised value of quad point B in Euclidean space
	NormalisedC star.Star  // the normalised value of quad point C in Euclidean space
	NormalisedD star.Star  // the normalised value of quad point D in Euclidean space
	Code        [4]float64 // the canonical code for the quad: Cx, Cy, Dx, Dy
	Precision   int        // the precision of the hash code (DefaultBuildParams uses 4 decimal places)
}

/*****************************************************************************************************************/

// NewQuad creates a new Quad from four points, returning an error if the four points do
// not form a valid quad under the canonical invariant (see IsWithinUnitCircle).
func NewQuad(a, b, c, d star.Star, precision int) (Quad, error) {
	A, B, C, D := DetermineABCD(a, b, c, d)

	na, nb, nc, nd, err := NormalizeToAB(A, B, C, D)
	if err != nil {
		return Quad{}, err
	}

	q := Quad{
		A:           A,
		B:           B,
		C:           C,
		D:           D,
		NormalisedA: na,
		NormalisedB: nb,
		NormalisedC: nc,
		NormalisedD: nd,
		Precision:   precision,
	}

	q.Code = [4]float64{q.NormalisedC.X, q.NormalisedC.Y, q.NormalisedD.X, q.NormalisedD.Y}

	return q, nil
}

/*****************************************************************************************************************/

// Distance calculates the Euclidean distance between two quads based on their code
// vectors. This method satisfies the vptree.Comparable interface.
func (q Quad) Distance(compare vptree.Comparable) float64 {
	o, ok := compare.(Quad)

	if !ok {
		panic("quad: incompatible type for distance calculation")
	}

	dxC := q.NormalisedC.X - o.NormalisedC.X
	dyC := q.NormalisedC.Y - o.NormalisedC.Y
	dxD := q.NormalisedD.X - o.NormalisedD.X
	dyD := q.NormalisedD.Y - o.NormalisedD.Y

	return (math.Hypot(dxC, dyC) + math.Hypot(dxD, dyD)) / 2
}

/*****************************************************************************************************************/

// PixelCenter returns the centroid of the four defining points, in pixel space.
func (q *Quad) PixelCenter() (float64, float64) {
	x := (q.A.X + q.B.X + q.C.X + q.D.X) / 4
	y := (q.A.Y + q.B.Y + q.C.Y + q.D.Y) / 4
	return x, y
}

/*****************************************************************************************************************/

// Diameter is the A-B separation before normalisation, the geometric scale of the quad in
// pixel (or sky, for catalog-built quads) units - used to bucket quads into scale bands.
func (q *Quad) Diameter() float64 {
	return geometry.DistanceBetweenTwoCartesianPoints(q.A.X, q.A.Y, q.B.X, q.B.Y)
}

/*****************************************************************************************************************/

// DetermineABCD determines which points are A and B based on the criteria that A and B
// are the two points with the largest distance between all of the points in the quad. C
// and D are then the remaining two points, ordered so that Cx < Dx.
func DetermineABCD(a, b, c, d star.Star) (star.Star, star.Star, star.Star, star.Star) {
	stars := []star.Star{a, b, c, d}
	maximum := -1.0
	var A, B star.Star

	for i := 0; i < len(stars); i++ {
		for j := i + 1; j < len(stars); j++ {
			distance := geometry.DistanceBetweenTwoCartesianPoints(stars[i].X, stars[i].Y, stars[j].X, stars[j].Y)

			if distance > maximum {
				maximum = distance

				if stars[i].X < stars[j].X {
					A, B = stars[i], stars[j]
				} else {
					A, B = stars[j], stars[i]
				}
			}
		}
	}

	var remaining []star.Star

	for _, s := range stars {
		if s != A && s != B {
			remaining = append(remaining, s)
		}
	}

	if remaining[0].X < remaining[1].X {
		return A, B, remaining[0], remaining[1]
	}

	return A, B, remaining[1], remaining[0]
}

/*****************************************************************************************************************/

// NormalizeToAB normalizes the Quad such that point A maps to (0,0) and point B maps to
// (1,1), then validates the canonical invariant that keeps the same four stars producing
// the same code regardless of which pair is picked as A/B by a tie elsewhere in the
// pipeline: C and D must both land within the unit circle centered at (0.5, 0.5), and
// Cx + Dx must not exceed 1.
func NormalizeToAB(a, b, c, d star.Star) (star.Star, star.Star, star.Star, star.Star, error) {
	Ax, Ay := 0.0, 0.0
	Bx, By := b.X-a.X, b.Y-a.Y
	Cx, Cy := c.X-a.X, c.Y-a.Y
	Dx, Dy := d.X-a.X, d.Y-a.Y

	rotationAngle := NORMALISATION_ANGLE - math.Atan2(By, Bx)

	cosA := math.Cos(rotationAngle)
	sinA := math.Sin(rotationAngle)

	rAx, rAy := Ax*cosA-Ay*sinA, Ax*sinA+Ay*cosA
	rBx, rBy := Bx*cosA-By*sinA, Bx*sinA+By*cosA
	rCx, rCy := Cx*cosA-Cy*sinA, Cx*sinA+Cy*cosA
	rDx, rDy := Dx*cosA-Dy*sinA, Dx*sinA+Dy*cosA

	scale := rBx // after rotation, rBx == rBy

	if scale == 0 {
		scale = 1
	}

	a.X, a.Y = rAx/scale, rAy/scale
	b.X, b.Y = rBx/scale, rBy/scale
	c.X, c.Y = rCx/scale, rCy/scale
	d.X, d.Y = rDx/scale, rDy/scale

	if c.X+d.X > 1 {
		return a, b, c, d, fmt.Errorf("quad invalid: Cx + Dx > 1, normalisation is not symmetric")
	}

	if !IsWithinUnitCircle(c.X, c.Y) || !IsWithinUnitCircle(d.X, d.Y) {
		return a, b, c, d, fmt.Errorf("quad invalid: C or D lies outside the unit circle")
	}

	return a, b, c, d, nil
}

/*****************************************************************************************************************/

// IsWithinUnitCircle checks if a point is within the unit circle centered at (0.5, 0.5).
func IsWithinUnitCircle(x float64, y float64) bool {
	centerX, centerY := 0.5, 0.5
	radius := math.Sqrt2 / 2
	dist := math.Hypot(x-centerX, y-centerY)
	return dist <= radius+1e-6 // small epsilon for floating-point precision at the boundary
}

/*****************************************************************************************************************/

// BuildParams controls how a depth/scale ladder of quads is generated from a star list.
type BuildParams struct {
	MinStars  int // smallest group size to consider, always 4
	MaxQuads  int // stop once this many valid quads have been generated, 0 = unlimited
	Precision int // code rounding precision recorded on each quad
}

/*****************************************************************************************************************/

var DefaultBuildParams = BuildParams{MinStars: 4, MaxQuads: 0, Precision: 4}

/*****************************************************************************************************************/

// BuildFromStars sorts a copy of the list by descending flux and enumerates every
// combination of four of its stars in lexicographic index order, so the first quad tried
// is the four brightest; later quads are not ordered by depth. Invalid combinations under
// the canonical invariant are simply skipped, and enumeration stops once MaxQuads (when
// positive) quads have been built.
func BuildFromStars(stars []star.Star, params BuildParams) []Quad {
	ordered := make([]star.Star, len(stars))
	copy(ordered, stars)

	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Flux > ordered[j].Flux })

	var quads []Quad

	n := len(ordered)

	for i := 0; i < n-3; i++ {
		for j := i + 1; j < n-2; j++ {
			for k := j + 1; k < n-1; k++ {
				for l := k + 1; l < n; l++ {
					q, err := NewQuad(ordered[i], ordered[j], ordered[k], ordered[l], params.Precision)

					if err != nil {
						continue
					}

					quads = append(quads, q)

					if params.MaxQuads > 0 && len(quads) >= params.MaxQuads {
						return quads
					}
				}
			}
		}
	}

	return quads
}

/*****************************************************************************************************************/
