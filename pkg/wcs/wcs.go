/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

// Package wcs implements the World Coordinate System service: given a fitted linear plate
// solution (and, optionally, a SIP distortion correction), it converts between pixel
// coordinates on the original frame and equatorial (RA/Dec) sky coordinates in both
// directions.
package wcs

/*****************************************************************************************************************/

import (
	"errors"
	"math"

	"github.com/stellarforge/platesolve/pkg/astrometry"
	"github.com/stellarforge/platesolve/pkg/projection"
	"github.com/stellarforge/platesolve/pkg/transform"
)

/*****************************************************************************************************************/

// WCS is a tangent-plane (gnomonic) World Coordinate System anchored at a reference pixel
// CRPIX and reference sky coordinate CRVAL, with a linear CD matrix mapping pixel offsets
// to tangent-plane offsets, and an optional SIP polynomial correction layered underneath
// the linear term to absorb residual optical distortion.
type WCS struct {
	CRPIX1 float64 // reference pixel X
	CRPIX2 float64 // reference pixel Y
	CRVAL1 float64 // reference RA, degrees
	CRVAL2 float64 // reference Dec, degrees
	CD1_1  float64 // linear term: d(xi)/dx
	CD1_2  float64 // linear term: d(xi)/dy
	CD2_1  float64 // linear term: d(eta)/dx
	CD2_2  float64 // linear term: d(eta)/dy
	SIP    transform.SIP2DParameters
}

/*****************************************************************************************************************/

// NewWorldCoordinateSystem returns wcs unchanged; it exists so callers construct a WCS
// through the package the same way the rest of this module constructs its value types,
// rather than via a bare struct literal.
func NewWorldCoordinateSystem(wcs WCS) WCS {
	return wcs
}

/*****************************************************************************************************************/

// FromAffine builds a WCS from a fitted affine transform (pixel -> tangent-plane offset)
// and the tangent point it was fit about, with an optional SIP correction.
func FromAffine(crpix1, crpix2, crval1, crval2 float64, affine transform.Affine2DParameters, sip transform.SIP2DParameters) WCS {
	return WCS{
		CRPIX1: crpix1,
		CRPIX2: crpix2,
		CRVAL1: crval1,
		CRVAL2: crval2,
		CD1_1:  affine.A,
		CD1_2:  affine.B,
		CD2_1:  affine.D,
		CD2_2:  affine.E,
		SIP:    sip,
	}
}

/*****************************************************************************************************************/

// pixelToIntermediate applies the CD matrix and, if present, the SIP correction to a pixel
// offset from CRPIX, returning the intermediate tangent-plane (xi, eta) offset in degrees.
func (wcs *WCS) pixelToIntermediate(x, y float64) (xi, eta float64) {
	u := x - wcs.CRPIX1
	v := y - wcs.CRPIX2

	du, dv := wcs.SIP.Evaluate(u, v)

	u += du
	v += dv

	xi = wcs.CD1_1*u + wcs.CD1_2*v
	eta = wcs.CD2_1*u + wcs.CD2_2*v

	return xi, eta
}

/*****************************************************************************************************************/

// PixelToEquatorialCoordinate converts a pixel coordinate to an equatorial coordinate
// under the gnomonic (tangent-plane) projection anchored at CRVAL.
func (wcs *WCS) PixelToEquatorialCoordinate(x, y float64) astrometry.ICRSEquatorialCoordinate {
	xi, eta := wcs.pixelToIntermediate(x, y)

	ra, dec := projection.ConvertGnomicToEquatorial(
		projection.Radians(xi),
		projection.Radians(eta),
		wcs.CRVAL1,
		wcs.CRVAL2,
	)

	return astrometry.ICRSEquatorialCoordinate{RA: ra, Dec: dec}
}

/*****************************************************************************************************************/

// EquatorialCoordinateToPixel is the inverse of PixelToEquatorialCoordinate: given a sky
// coordinate, recover the pixel coordinate it falls at. The CD matrix is inverted exactly;
// the SIP correction (if present) has no closed-form inverse, so it is refined with a few
// fixed-point iterations, which converges quickly since SIP corrections are small relative
// to the linear term by construction.
func (wcs *WCS) EquatorialCoordinateToPixel(ra, dec float64) (float64, float64, error) {
	xr, yr := projection.ConvertEquatorialToGnomic(ra, dec, wcs.CRVAL1, wcs.CRVAL2)

	xi := projection.Degrees(xr)
	eta := projection.Degrees(yr)

	det := wcs.CD1_1*wcs.CD2_2 - wcs.CD1_2*wcs.CD2_1

	if math.Abs(det) < 1e-15 {
		return 0, 0, errors.New("wcs: CD matrix is singular, cannot invert")
	}

	invA := wcs.CD2_2 / det
	invB := -wcs.CD1_2 / det
	invC := -wcs.CD2_1 / det
	invD := wcs.CD1_1 / det

	u := invA*xi + invB*eta
	v := invC*xi + invD*eta

	if !wcs.SIP.Empty() {
		for i := 0; i < 8; i++ {
			du, dv := wcs.SIP.Evaluate(u, v)

			correctedU := invA*xi + invB*eta - du
			correctedV := invC*xi + invD*eta - dv

			if math.Abs(correctedU-u) < 1e-9 && math.Abs(correctedV-v) < 1e-9 {
				u, v = correctedU, correctedV
				break
			}

			u, v = correctedU, correctedV
		}
	}

	return u + wcs.CRPIX1, v + wcs.CRPIX2, nil
}

/*****************************************************************************************************************/

// SkyToPixel is an alias for EquatorialCoordinateToPixel, named to mirror PixelToSky in the
// engine facade's public API.
func (wcs *WCS) SkyToPixel(ra, dec float64) (float64, float64, error) {
	return wcs.EquatorialCoordinateToPixel(ra, dec)
}

/*****************************************************************************************************************/
