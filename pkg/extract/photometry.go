/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

package extract

/*****************************************************************************************************************/

import (
	"math"

	"github.com/stellarforge/platesolve/pkg/pixel"
	"github.com/stellarforge/platesolve/pkg/star"
)

/*****************************************************************************************************************/

// minAxis floors the ellipse semi-axes so a >= b > 0 always holds, even for a single-pixel
// or perfectly round detection where the second-moment fit alone would return zero.
const minAxis = 0.35

/*****************************************************************************************************************/

// kronScale is the fixed radius (in elliptical-normalized units) out to which the Kron
// radius integral is evaluated, per 4.3.1.
const kronScale = 6.0

/*****************************************************************************************************************/

// hfrMaxRadius is the fixed reference aperture half-flux radius is measured against, per
// 4.3.2.
const hfrMaxRadius = 50.0

/*****************************************************************************************************************/

// characterize computes the flux-weighted centroid, second-moment ellipse, Kron/circular
// aperture flux, magnitude and half-flux radius of a detected region, iterating the
// centroid a few times the way a moving-window photometric centroider does. buf is always
// the unconvolved, background-subtracted plane - photometry never measures off the
// detection-only convolved copy.
func characterize(buf *pixel.Buffer, reg region, params Params, rms float64) star.Star {
	cx, cy := float64(reg.peakX), float64(reg.peakY)

	iterations := params.CentroidIterations
	if iterations <= 0 {
		iterations = 1
	}

	for iter := 0; iter < iterations; iter++ {
		var sumFlux, sumX, sumY float64

		for _, idx := range reg.pixels {
			x := idx % buf.Width
			y := idx / buf.Width
			v := float64(buf.Data[idx])

			if v <= 0 {
				continue
			}

			sumFlux += v
			sumX += v * float64(x)
			sumY += v * float64(y)
		}

		if sumFlux <= 0 {
			break
		}

		newCx, newCy := sumX/sumFlux, sumY/sumFlux

		// Converge once the centroid stabilizes to better than a hundredth of a pixel:
		if math.Hypot(newCx-cx, newCy-cy) < 0.01 {
			cx, cy = newCx, newCy
			break
		}

		cx, cy = newCx, newCy
	}

	mxx, myy, mxy := secondMoments(buf, reg, cx, cy)

	a, b, theta := ellipseFromMoments(mxx, myy, mxy)

	rk := kronRadius(buf, cx, cy, a, b, theta)

	ap := chooseAperture(params.Aperture, a, b, theta, rk, params.KronFact, params.RMin)

	subpix := params.Subpix
	if subpix < 1 {
		subpix = 1
	}

	flux := apertureFlux(buf, cx, cy, ap, subpix)

	mag := params.MagZero - 2.5*math.Log10(flux)

	hfr := halfFluxRadius(buf, cx, cy)

	fwhm := 2 * math.Sqrt(2*math.Ln2) * a
	eccentricity := 0.0
	if a > 0 {
		eccentricity = math.Sqrt(1 - (b*b)/(a*a))
	}

	var flags star.Flags
	if reg.touchesEdge && params.InFlags&1 != 0 {
		flags |= star.FlagEdge
	}

	snr := 0.0
	if rms > 0 && len(reg.pixels) > 0 {
		snr = flux / (rms * math.Sqrt(float64(len(reg.pixels))))
	}

	return star.Star{
		X:            cx,
		Y:            cy,
		Flux:         flux,
		Mag:          mag,
		Peak:         reg.peak,
		A:            a,
		B:            b,
		Theta:        theta,
		FWHM:         fwhm,
		Eccentricity: eccentricity,
		HFR:          hfr,
		SNR:          snr,
		PixCount:     len(reg.pixels),
		Flags:        flags,
	}
}

/*****************************************************************************************************************/

// secondMoments computes the flux-weighted second central moments of a region about
// (cx, cy), the raw material for an ellipse fit (Source Extractor's A/B/THETA).
func secondMoments(buf *pixel.Buffer, reg region, cx, cy float64) (mxx, myy, mxy float64) {
	var sumFlux float64

	for _, idx := range reg.pixels {
		x := idx % buf.Width
		y := idx / buf.Width
		v := float64(buf.Data[idx])

		if v <= 0 {
			continue
		}

		dx := float64(x) - cx
		dy := float64(y) - cy

		mxx += v * dx * dx
		myy += v * dy * dy
		mxy += v * dx * dy
		sumFlux += v
	}

	if sumFlux <= 0 {
		return 0, 0, 0
	}

	return mxx / sumFlux, myy / sumFlux, mxy / sumFlux
}

/*****************************************************************************************************************/

// ellipseFromMoments diagonalizes the second-moment tensor into semi-axes (a, b) and a
// position angle theta (degrees), the same eigen-decomposition Source Extractor uses for
// its A_IMAGE/B_IMAGE/THETA_IMAGE. a is floored so a >= b > 0 always holds, even for a
// degenerate single-pixel detection.
func ellipseFromMoments(mxx, myy, mxy float64) (a, b, theta float64) {
	trace := mxx + myy
	diff := mxx - myy

	disc := diff*diff/4 + mxy*mxy
	if disc < 0 {
		disc = 0
	}

	root := math.Sqrt(disc)

	lambda1 := trace/2 + root // major axis variance
	lambda2 := trace/2 - root // minor axis variance

	if lambda2 < 0 {
		lambda2 = 0
	}

	a = math.Sqrt(lambda1)
	b = math.Sqrt(lambda2)

	if a < minAxis {
		a = minAxis
	}
	if b < minAxis {
		b = minAxis
	}
	if b > a {
		b = a
	}

	theta = 0.5 * math.Atan2(2*mxy, diff) * 180 / math.Pi

	return a, b, theta
}

/*****************************************************************************************************************/

// kronRadius computes the dimensionless Kron radius (4.3.1): the flux-weighted mean
// elliptical-normalized radius of every pixel within kronScale of the centroid, sampled
// directly off the buffer rather than the (possibly truncated) thresholded region, since
// the aperture it seeds can legitimately extend past the detection's own pixels.
func kronRadius(buf *pixel.Buffer, cx, cy, a, b, theta float64) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}

	thetaRad := theta * math.Pi / 180
	cosT, sinT := math.Cos(thetaRad), math.Sin(thetaRad)

	maxR := kronScale * math.Sqrt(a*b)

	x0 := int(math.Floor(cx - maxR))
	x1 := int(math.Ceil(cx + maxR))
	y0 := int(math.Floor(cy - maxR))
	y1 := int(math.Ceil(cy + maxR))

	var sumR, sumV float64

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			v := float64(buf.At(x, y))
			if math.IsNaN(v) || v <= 0 {
				continue
			}

			dx := float64(x) - cx
			dy := float64(y) - cy

			if dx*dx+dy*dy > maxR*maxR {
				continue
			}

			xp := dx*cosT + dy*sinT
			yp := -dx*sinT + dy*cosT

			rEll := math.Sqrt((xp*xp)/(a*a) + (yp*yp)/(b*b))
			if rEll > kronScale {
				continue
			}

			sumR += rEll * v
			sumV += v
		}
	}

	if sumV <= 0 {
		return 0
	}

	return sumR / sumV
}

/*****************************************************************************************************************/

// aperture is a circle or an oriented ellipse to integrate flux over, in pixel-offset
// coordinates relative to a detection's centroid.
type aperture struct {
	circular   bool
	radius     float64 // used when circular
	a, b       float64 // semi-axes when elliptical
	cosT, sinT float64
}

/*****************************************************************************************************************/

func (ap aperture) contains(dx, dy float64) bool {
	if ap.circular {
		return dx*dx+dy*dy <= ap.radius*ap.radius
	}

	xp := dx*ap.cosT + dy*ap.sinT
	yp := -dx*ap.sinT + dy*ap.cosT

	return (xp*xp)/(ap.a*ap.a)+(yp*yp)/(ap.b*ap.b) <= 1
}

/*****************************************************************************************************************/

func (ap aperture) boundingRadius() float64 {
	if ap.circular {
		return ap.radius
	}
	return math.Max(ap.a, ap.b)
}

/*****************************************************************************************************************/

// chooseAperture implements 4.3.1's auto/circle/ellipse selection: auto falls back to a
// circle of radius rMin whenever the Kron aperture would come out smaller than that floor,
// otherwise it scales the ellipse by kronFact*rk.
func chooseAperture(shape ApertureShape, a, b, theta, rk, kronFact, rMin float64) aperture {
	thetaRad := theta * math.Pi / 180
	cosT, sinT := math.Cos(thetaRad), math.Sin(thetaRad)

	ellipse := aperture{a: kronFact * rk * a, b: kronFact * rk * b, cosT: cosT, sinT: sinT}
	circle := aperture{circular: true, radius: rMin}

	switch shape {
	case ApertureCircle:
		return circle
	case ApertureEllipse:
		return ellipse
	default: // auto
		if rk*math.Sqrt(a*b) < rMin {
			return circle
		}
		return ellipse
	}
}

/*****************************************************************************************************************/

// apertureFlux sums background-subtracted flux inside ap, sub-pixel sampling every
// boundary-straddling pixel on a subpix x subpix grid (4.3.1's subpix control) so the
// aperture edge doesn't alias flux in or out in integer steps.
func apertureFlux(buf *pixel.Buffer, cx, cy float64, ap aperture, subpix int) float64 {
	maxR := ap.boundingRadius()
	if maxR <= 0 {
		return 0
	}

	x0 := int(math.Floor(cx - maxR - 1))
	x1 := int(math.Ceil(cx + maxR + 1))
	y0 := int(math.Floor(cy - maxR - 1))
	y1 := int(math.Ceil(cy + maxR + 1))

	step := 1.0 / float64(subpix)

	var flux float64

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			v := float64(buf.At(x, y))
			if math.IsNaN(v) {
				continue
			}

			var inside, total int

			for sy := 0; sy < subpix; sy++ {
				for sx := 0; sx < subpix; sx++ {
					px := float64(x) + (float64(sx)+0.5)*step - cx
					py := float64(y) + (float64(sy)+0.5)*step - cy

					total++

					if ap.contains(px, py) {
						inside++
					}
				}
			}

			if inside == 0 {
				continue
			}

			flux += v * float64(inside) / float64(total)
		}
	}

	return flux
}

/*****************************************************************************************************************/

// halfFluxRadius finds the radius around (cx, cy) containing half of the reference flux,
// where the reference flux is every background-subtracted sample out to the fixed 50px
// aperture of 4.3.2 - not just the thresholded detection pixels, which would usually fall
// well short of that radius.
func halfFluxRadius(buf *pixel.Buffer, cx, cy float64) float64 {
	type sample = struct {
		r, flux float64
	}

	x0 := int(math.Floor(cx - hfrMaxRadius))
	x1 := int(math.Ceil(cx + hfrMaxRadius))
	y0 := int(math.Floor(cy - hfrMaxRadius))
	y1 := int(math.Ceil(cy + hfrMaxRadius))

	var samples []sample
	var total float64

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			v := float64(buf.At(x, y))
			if math.IsNaN(v) {
				continue
			}

			r := math.Hypot(float64(x)-cx, float64(y)-cy)
			if r > hfrMaxRadius {
				continue
			}

			samples = append(samples, sample{r: r, flux: v})
			total += v
		}
	}

	if total <= 0 {
		return 0
	}

	sortSamplesByRadius(samples)

	running := 0.0
	half := total / 2

	for _, s := range samples {
		running += s.flux

		if running >= half {
			return s.r
		}
	}

	return hfrMaxRadius
}

/*****************************************************************************************************************/

// sortSamplesByRadius orders samples ascending by radius with a plain insertion sort. The
// fixed-radius reference aperture is at most pi*50^2 samples, small enough that this stays
// cheap without reaching for a generic sort.Slice closure per star.
func sortSamplesByRadius(samples []struct{ r, flux float64 }) {
	for i := 1; i < len(samples); i++ {
		j := i
		for j > 0 && samples[j-1].r > samples[j].r {
			samples[j-1], samples[j] = samples[j], samples[j-1]
			j--
		}
	}
}

/*****************************************************************************************************************/
