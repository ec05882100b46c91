/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

package astrometry

/*****************************************************************************************************************/

import (
	"fmt"
	"math"

	"github.com/stellarforge/platesolve/pkg/geometry"
	"github.com/stellarforge/platesolve/pkg/star"
)

/*****************************************************************************************************************/

type ICRSEquatorialCoordinate struct {
	RA  float64
	Dec float64
}

/*****************************************************************************************************************/

// RAString renders RA as sexagesimal hours, e.g. "05h 34m 31.9s".
func (eq ICRSEquatorialCoordinate) RAString() string {
	hours := eq.RA / 15.0
	if hours < 0 {
		hours += 24
	}

	h := math.Floor(hours)
	m := math.Floor((hours - h) * 60)
	s := ((hours-h)*60 - m) * 60

	return fmt.Sprintf("%02dh %02dm %04.1fs", int(h), int(m), s)
}

/*****************************************************************************************************************/

// DecString renders Dec as signed sexagesimal degrees, e.g. "+22d 00m 52s".
func (eq ICRSEquatorialCoordinate) DecString() string {
	sign := "+"
	d := eq.Dec

	if d < 0 {
		sign = "-"
		d = -d
	}

	deg := math.Floor(d)
	m := math.Floor((d - deg) * 60)
	s := ((d-deg)*60 - m) * 60

	return fmt.Sprintf("%s%02dd %02dm %02.0fs", sign, int(deg), int(m), s)
}

/*****************************************************************************************************************/

// Asterism is a triangle of three stars, used only by the verifier's independent
// triangle cross-check. Primary correspondence matching is quad-based; see pkg/quad.
type Asterism struct {
	A        star.Star
	B        star.Star
	C        star.Star
	Features geometry.InvariantFeatures
}

/*****************************************************************************************************************/
