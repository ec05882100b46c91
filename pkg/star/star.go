/*****************************************************************************************************************/

package star

/*****************************************************************************************************************/

import "github.com/stellarforge/platesolve/pkg/geometry"

/*****************************************************************************************************************/

// Flags records why a star was excluded, or what shape it was detected with, during
// extraction and filtering. A star with Flags == 0 is clean.
type Flags uint16

/*****************************************************************************************************************/

const (
	FlagSaturated Flags = 1 << iota
	FlagEdge
	FlagBlended
	FlagElongated
	FlagLowSNR
	FlagDuplicate
)

/*****************************************************************************************************************/

func (f Flags) Has(flag Flags) bool {
	return f&flag != 0
}

/*****************************************************************************************************************/

// Star is the shared value passed between extraction, filtering, quad construction and
// the verifier. X/Y are always in pixel space of the frame (or sub-frame) that produced
// them; RA/Dec are only meaningful once a star has been matched against a catalog source.
//
// A, B, Theta and Peak come straight out of the extractor's second-moment ellipse fit and
// aperture photometry (pkg/extract); FWHM and Eccentricity are cheap derived views of the
// same ellipse (A/B), kept for callers that want a single seeing or roundness number
// without re-deriving it from the axes themselves.
type Star struct {
	Designation  string  // catalog ID or colloquial name once matched, e.g. "Sirius", "HD 1"
	X            float64 // X pixel coordinate (flux-weighted centroid), 1-based image convention
	Y            float64 // Y pixel coordinate (flux-weighted centroid), 1-based image convention
	RA           float64 // sky coordinate, azimuthal plane, in degrees
	Dec          float64 // sky coordinate, polar plane, in degrees
	Flux         float64 // background-subtracted flux integrated over the photometric aperture
	Mag          float64 // instrumental magnitude, magzero - 2.5*log10(Flux)
	Peak         float64 // raw peak pixel value of the detection, background-subtracted
	A            float64 // ellipse semi-major axis, in pixels; A >= B > 0
	B            float64 // ellipse semi-minor axis, in pixels
	Theta        float64 // ellipse orientation, degrees, measured from the X axis
	FWHM         float64 // full width at half maximum along the major axis, derived from A
	Eccentricity float64 // 0 for a round source, approaching 1 as B shrinks against A
	HFR          float64 // half-flux radius out to a fixed 50px reference aperture, in pixels
	SNR          float64 // signal-to-noise ratio against the local background RMS
	PixCount     int     // number of connected pixels the detection was built from
	TileID       int     // internal: which partition this star was extracted from, zeroed on return
	Flags        Flags   // internal: why this star was excluded or what shape it carries
}

/*****************************************************************************************************************/

func (p Star) EuclidianDistanceTo(point Star) float64 {
	return geometry.DistanceBetweenTwoCartesianPoints(p.X, p.Y, point.X, point.Y)
}

/*****************************************************************************************************************/

// Clean returns a copy of the star with internal-only bookkeeping fields zeroed, suitable
// for returning across the public engine boundary.
func (p Star) Clean() Star {
	p.TileID = 0
	return p
}

/*****************************************************************************************************************/
