/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skysolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package projection

/*****************************************************************************************************************/

import (
	"math"

	"github.com/stellarforge/platesolve/pkg/astrometry"
)

/*****************************************************************************************************************/

var RAD2DEG = 180 / math.Pi

/*****************************************************************************************************************/

var DEG2RAD = math.Pi / 180

/*****************************************************************************************************************/

func Radians(degrees float64) float64 {
	return degrees * DEG2RAD
}

/*****************************************************************************************************************/

func Degrees(radians float64) float64 {
	return radians * RAD2DEG
}

/*****************************************************************************************************************/

func ConvertEquatorialToGnomic(ra, dec, ra0, dec0 float64) (x, y float64) {
	// Threshold to determine if cosalt1 is effectively zero:
	const epsilon = 1e-10

	// Convert all coordinates from degrees to radians:
	ra = Radians(ra)
	dec = Radians(dec)
	ra0 = Radians(ra0)
	dec0 = Radians(dec0)

	// Gnomonic projection formula:
	cosalt1 := math.Sin(dec0)*math.Sin(dec) + math.Cos(dec0)*math.Cos(dec)*math.Cos(ra-ra0)

	// Check for division by zero:
	if cosalt1 < epsilon {
		return 0, 0
	}

	// Calculate the x coordinate:
	x = math.Cos(dec) * math.Sin(ra-ra0) / cosalt1

	// Calculate the y coordinate:
	y = (math.Cos(dec0)*math.Sin(dec) - math.Sin(dec0)*math.Cos(dec)*math.Cos(ra-ra0)) / cosalt1

	return x, y
}

/*****************************************************************************************************************/

// ConvertGnomicToEquatorial is the inverse of ConvertEquatorialToGnomic: given a tangent-plane
// (x, y) offset and a tangent point (ra0, dec0), recovers the equatorial coordinate. This is the
// projection the WCS service needs for SkyToPixel's inverse direction, which the teacher's own
// WCS type never implemented (it only ever went pixel -> sky).
func ConvertGnomicToEquatorial(x, y, ra0, dec0 float64) (ra, dec float64) {
	ra0r := Radians(ra0)
	dec0r := Radians(dec0)

	// Distance from the tangent point in the projection plane, and the bearing angle:
	rho := math.Hypot(x, y)

	if rho == 0 {
		return ra0, dec0
	}

	c := math.Atan(rho)

	sinC := math.Sin(c)
	cosC := math.Cos(c)

	decr := math.Asin(cosC*math.Sin(dec0r) + (y*sinC*math.Cos(dec0r))/rho)

	rar := ra0r + math.Atan2(x*sinC, rho*math.Cos(dec0r)*cosC-y*math.Sin(dec0r)*sinC)

	ra = math.Mod(Degrees(rar)+360, 360)
	dec = Degrees(decr)

	return ra, dec
}

/*****************************************************************************************************************/

// GetEquatorialCoordinateFromPolarOffset returns the coordinate reached by moving an angular
// distance z (degrees) from (ra, dec) along the bearing theta (degrees, 0 = north, 90 = east),
// with RA normalised into [0, 360).
func GetEquatorialCoordinateFromPolarOffset(ra, dec, z, theta float64) (float64, float64) {
	d1, zr, t := Radians(dec), Radians(z), Radians(theta)

	d2 := math.Asin(math.Sin(d1)*math.Cos(zr) + math.Cos(d1)*math.Sin(zr)*math.Cos(t))

	dra := math.Atan2(math.Sin(t)*math.Sin(zr)*math.Cos(d1), math.Cos(zr)-math.Sin(d1)*math.Sin(d2))

	return math.Mod(ra+Degrees(dra)+360, 360), Degrees(d2)
}

/*****************************************************************************************************************/

func ConvertEquatorialToLambertCylindricalCartesian(eq astrometry.ICRSEquatorialCoordinate, z float64) (x, y float64) {
	// Calculate the y coordinate:
	y = 3 * (math.Pi / 8) * z

	// Return the x and y coordinates in degrees:
	return eq.RA, Degrees(y)
}

/*****************************************************************************************************************/

func ConvertEquatorialToInterruptedCollignonCartesian(eq astrometry.ICRSEquatorialCoordinate, z float64) (x, y float64) {
	sigma := math.Sqrt(3 * (1 - math.Abs(z)))

	// Calculate the y coordinate:
	y = (math.Pi / 4) * (2 - sigma)

	facetX := (math.Pi / 4) * (2 * math.Floor(2+(2*Radians(eq.RA)/math.Pi)-3))
	// Calculate the x coordinate:
	x = facetX + sigma*(Radians(eq.Dec)-facetX)
	// Return the x and y coordinates in degrees:
	return Degrees(x), Degrees(math.Copysign(y, eq.Dec))
}

/*****************************************************************************************************************/
