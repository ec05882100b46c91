/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

package fov

import "math"

/*****************************************************************************************************************/

type PixelScale struct {
	X float64 // Pixel size in the x direction (in degrees)
	Y float64 // Pixel size in the y direction (in degrees)
}

/*****************************************************************************************************************/

func GetRadialExtent(
	xs float64,
	ys float64,
	pixelScale PixelScale,
) float64 {
	// Calculate the field of view in the x direction (in degrees):
	xr := pixelScale.X * xs

	// Calculate the field of view in the y direction (in degrees):
	yr := pixelScale.Y * ys

	r := math.Min(xr, yr)

	// Calculate the radial field of view (in degrees):
	return math.Sqrt(r*r + r*r)
}

/*****************************************************************************************************************/

// ScaleBand identifies a band of field-of-view coverage that a single index is built for,
// mirroring the way real astrometry.net index series (4107..4119) each cover a decade-ish
// span of scales so that a solver only has to search the one or two bands that plausibly
// match the frame in hand.
type ScaleBand struct {
	Name   string
	MinFOV float64 // degrees
	MaxFOV float64 // degrees
}

/*****************************************************************************************************************/

// DefaultScaleBands is a coarse, self-contained ladder of scale bands, loosely modelled on
// the real astrometry.net 4100-series index naming (widest band first).
var DefaultScaleBands = []ScaleBand{
	{Name: "wide", MinFOV: 10, MaxFOV: 180},
	{Name: "medium", MinFOV: 1, MaxFOV: 10},
	{Name: "narrow", MinFOV: 0.1, MaxFOV: 1},
	{Name: "tight", MinFOV: 0.01, MaxFOV: 0.1},
}

/*****************************************************************************************************************/

// ScaleBandForRadius returns the name of the narrowest scale band whose [MinFOV, MaxFOV]
// range contains the given radial field of view, or "" if none of the supplied bands cover it.
func ScaleBandForRadius(bands []ScaleBand, radius float64) string {
	best := ""
	bestSpan := math.Inf(1)

	for _, band := range bands {
		if radius < band.MinFOV || radius > band.MaxFOV {
			continue
		}

		span := band.MaxFOV - band.MinFOV

		if span < bestSpan {
			bestSpan = span
			best = band.Name
		}
	}

	return best
}

/*****************************************************************************************************************/
