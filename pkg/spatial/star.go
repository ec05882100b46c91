/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

package spatial

/*****************************************************************************************************************/

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/vptree"

	"github.com/stellarforge/platesolve/pkg/star"
)

/*****************************************************************************************************************/

// cartesianStar pairs a star with its unit-sphere Cartesian position, so distance queries
// never have to special-case the RA wrap at 0/360 degrees the way a plain RA/Dec metric would.
type cartesianStar struct {
	star.Star
	x, y, z float64
}

/*****************************************************************************************************************/

// Distance is the chord length between two points on the unit sphere, a monotonic stand-in
// for angular separation that is cheap enough to use inside a vptree build.
func (c cartesianStar) Distance(compare vptree.Comparable) float64 {
	o, ok := compare.(cartesianStar)

	if !ok {
		panic("spatial: incompatible type for distance calculation")
	}

	return math.Hypot(math.Hypot(c.x-o.x, c.y-o.y), c.z-o.z)
}

/*****************************************************************************************************************/

func toCartesian(s star.Star) cartesianStar {
	ra := s.RA * math.Pi / 180
	dec := s.Dec * math.Pi / 180

	return cartesianStar{
		Star: s,
		x:    math.Cos(dec) * math.Cos(ra),
		y:    math.Cos(dec) * math.Sin(ra),
		z:    math.Sin(dec),
	}
}

/*****************************************************************************************************************/

// chordForAngle converts an angular separation (degrees) into the unit-sphere chord length
// that bounds it, via the half-angle chord formula 2*sin(theta/2).
func chordForAngle(degrees float64) float64 {
	return 2 * math.Sin(degrees*math.Pi/360)
}

/*****************************************************************************************************************/

// StarMatcher wraps a vantage-point tree built over a reference star list's unit-sphere
// positions - the index catalog's "star kd-tree over 3-D unit-sphere positions", used by
// the solver driver to pull only the local patch of index stars around a trial WCS center
// before handing them to the verifier, rather than scanning an entire index's star list.
type StarMatcher struct {
	tree  *vptree.Tree
	stars []cartesianStar
}

/*****************************************************************************************************************/

// NewStarMatcher builds a matcher over the given reference stars.
func NewStarMatcher(stars []star.Star) (*StarMatcher, error) {
	if len(stars) == 0 {
		return nil, errors.New("spatial: cannot build a matcher over zero stars")
	}

	cartesian := make([]cartesianStar, len(stars))
	comparables := make([]vptree.Comparable, len(stars))

	for i, s := range stars {
		cartesian[i] = toCartesian(s)
		comparables[i] = cartesian[i]
	}

	tree, err := vptree.New(comparables, 2, nil)
	if err != nil {
		return nil, err
	}

	return &StarMatcher{tree: tree, stars: cartesian}, nil
}

/*****************************************************************************************************************/

// WithinRadius returns every reference star within radiusDeg (great-circle, in degrees) of
// the given sky coordinate, ordered nearest-first.
func (m *StarMatcher) WithinRadius(ra, dec, radiusDeg float64) []star.Star {
	query := toCartesian(star.Star{RA: ra, Dec: dec})
	chordLimit := chordForAngle(radiusDeg)

	type hit struct {
		s    star.Star
		dist float64
	}

	var hits []hit

	for _, candidate := range m.stars {
		d := query.Distance(candidate)

		if d <= chordLimit {
			hits = append(hits, hit{s: candidate.Star, dist: d})
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })

	out := make([]star.Star, len(hits))

	for i, h := range hits {
		out[i] = h.s
	}

	return out
}

/*****************************************************************************************************************/

// Nearest returns the single closest reference star to the given sky coordinate.
func (m *StarMatcher) Nearest(ra, dec float64) (star.Star, float64, error) {
	query := toCartesian(star.Star{RA: ra, Dec: dec})

	nearest, chord := m.tree.Nearest(query)

	matched, ok := nearest.(cartesianStar)
	if !ok {
		return star.Star{}, 0, errors.New("spatial: matched element is not a star")
	}

	// Invert the chord formula to recover the angular separation in degrees.
	angle := 360 / math.Pi * math.Asin(chord/2)

	return matched.Star, angle, nil
}

/*****************************************************************************************************************/
