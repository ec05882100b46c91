/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

package transform

/*****************************************************************************************************************/

// SIP (Simple Imaging Polynomial) is a convention used in FITS (Flexible Image Transport System)
// headers to describe complex distortions in astronomical images. It extends the standard World
// Coordinate System (WCS) by introducing higher-order polynomial terms that account for non-linear
// optical distortions, such as those introduced by telescope optics or atmospheric effects.
// @see https://fits.gsfc.nasa.gov/registry/sip/SIP_distortion_v1_0.pdf

/*****************************************************************************************************************/

import "github.com/stellarforge/platesolve/pkg/utils"

/*****************************************************************************************************************/

// SIP2DParameters are the polynomial coefficients used to map intermediate pixel offsets
// to corrected intermediate world coordinate offsets, keyed by FITS-style term names
// ("A_1_0", "A_0_2", ...) as produced by utils.GeneratePolynomialTermKeys.
type SIP2DParameters struct {
	AOrder int
	APower map[string]float64
	BOrder int
	BPower map[string]float64
}

/*****************************************************************************************************************/

// Empty reports whether the SIP correction is a no-op (no terms fit).
func (p SIP2DParameters) Empty() bool {
	return len(p.APower) == 0 && len(p.BPower) == 0
}

/*****************************************************************************************************************/

// Evaluate applies the SIP polynomial correction at a pixel offset (u, v) from CRPIX,
// returning the (du, dv) correction to add to the linear WCS prediction.
func (p SIP2DParameters) Evaluate(u, v float64) (du, dv float64) {
	if p.Empty() {
		return 0, 0
	}

	if len(p.APower) > 0 {
		du = evaluatePolynomial(u, v, p.AOrder, "A", p.APower)
	}

	if len(p.BPower) > 0 {
		dv = evaluatePolynomial(u, v, p.BOrder, "B", p.BPower)
	}

	return du, dv
}

/*****************************************************************************************************************/

func evaluatePolynomial(u, v float64, order int, prefix string, coeffs map[string]float64) float64 {
	keys := utils.GeneratePolynomialTermKeys(prefix, order)
	terms := utils.ComputePolynomialTerms(u, v, order)

	sum := 0.0

	for i, key := range keys {
		if i >= len(terms) {
			break
		}

		sum += coeffs[key] * terms[i]
	}

	return sum
}

/*****************************************************************************************************************/
