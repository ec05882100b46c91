/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

// Package verify scores a candidate quad correspondence against the full extracted-star
// field under a Bayesian log-odds model, deciding whether to bail, tune, keep, or accept it
// as a solution. It is the single acceptance gate every candidate match must pass through.
package verify

/*****************************************************************************************************************/

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/stellarforge/platesolve/pkg/projection"
	"github.com/stellarforge/platesolve/pkg/quad"
	"github.com/stellarforge/platesolve/pkg/star"
	"github.com/stellarforge/platesolve/pkg/transform"
	"github.com/stellarforge/platesolve/pkg/wcs"
)

/*****************************************************************************************************************/

// Decision is the outcome of scoring one candidate against the ladder of log-odds
// thresholds in Params.
type Decision int

/*****************************************************************************************************************/

const (
	Reject Decision = iota // score never cleared the keep threshold; drop the candidate
	Bail                   // score collapsed below the bail threshold; abandon immediately
	Keep                   // near-miss, remembered but not returned as a solution
	Solved                 // score cleared the solve threshold; accept as the solution
)

/*****************************************************************************************************************/

func (d Decision) String() string {
	switch d {
	case Bail:
		return "bail"
	case Keep:
		return "keep"
	case Solved:
		return "solved"
	default:
		return "reject"
	}
}

/*****************************************************************************************************************/

// Params configures the verifier's decision ladder. Field names follow the
// logratio_bail_threshold / logratio_totune / logratio_tosolve / logratio_tokeep naming used
// throughout the rest of the solve pipeline's configuration.
type Params struct {
	VerifyPix            float64 // match tolerance, in units of the trial pixel scale
	LogRatioBailThreshold float64
	LogRatioToTune        float64
	LogRatioToSolve       float64
	LogRatioToKeep        float64
	SearchParity          int  // +1, -1, or 0 for unconstrained
	BestHitOnly           bool
	TweakOrder            int // SIP polynomial order used by the internal tune step
}

/*****************************************************************************************************************/

var DefaultParams = Params{
	VerifyPix:             1.0,
	LogRatioBailThreshold: math.Log(1e-100),
	LogRatioToTune:        math.Log(1e6),
	LogRatioToSolve:       math.Log(1e9),
	LogRatioToKeep:        math.Log(1e3),
	SearchParity:          0,
	BestHitOnly:           true,
	TweakOrder:            2,
}

/*****************************************************************************************************************/

// Match pairs an extracted field star with the index star it was found to correspond to
// under the trial WCS.
type Match struct {
	Field star.Star
	Index star.Star
	SeparationDeg float64
}

/*****************************************************************************************************************/

// Result is the outcome of verifying one candidate quad correspondence.
type Result struct {
	WCS      wcs.WCS
	LogOdds  float64
	Decision Decision
	Matches  []Match
}

/*****************************************************************************************************************/

// Verify derives a trial WCS from the four field/index star correspondences implied by
// fieldQuad and indexQuad, scores it against the full extracted star list and the local
// index-star patch, and returns a decision per Params' ladder. pixelScale is the trial's
// arcsec-per-pixel scale, used to convert VerifyPix into an angular tolerance.
func Verify(fieldQuad, indexQuad quad.Quad, fieldStars, indexStars []star.Star, pixelScale float64, params Params) (Result, error) {
	trial, err := fitTrialWCS(fieldQuad, indexQuad)
	if err != nil {
		return Result{}, err
	}

	if params.SearchParity != 0 {
		det := trial.CD1_1*trial.CD2_2 - trial.CD1_2*trial.CD2_1
		if (params.SearchParity > 0) != (det > 0) {
			return Result{Decision: Bail}, nil
		}
	}

	tolDeg := params.VerifyPix * pixelScale / 3600.0

	score, matches := score(trial, fieldStars, indexStars, tolDeg, params.LogRatioBailThreshold)

	if score < params.LogRatioBailThreshold {
		return Result{WCS: trial, LogOdds: score, Decision: Bail}, nil
	}

	if score >= params.LogRatioToTune && score < params.LogRatioToSolve {
		if tuned, tunedScore, ok := tune(trial, matches, fieldStars, indexStars, tolDeg, params); ok {
			trial, score, matches = tuned, tunedScore, rematch(tuned, fieldStars, indexStars, tolDeg)
		}
	}

	switch {
	case score >= params.LogRatioToSolve:
		return Result{WCS: trial, LogOdds: score, Decision: Solved, Matches: matches}, nil
	case score >= params.LogRatioToKeep:
		return Result{WCS: trial, LogOdds: score, Decision: Keep, Matches: matches}, nil
	default:
		return Result{WCS: trial, LogOdds: score, Decision: Reject, Matches: matches}, nil
	}
}

/*****************************************************************************************************************/

// fitTrialWCS derives a linear WCS from the four star correspondences a matched quad pair
// implies: the field quad's pixel positions against the index quad's sky positions,
// projected about the index quad's own centroid as the tangent point.
func fitTrialWCS(fieldQuad, indexQuad quad.Quad) (wcs.WCS, error) {
	fieldPoints := []star.Star{fieldQuad.A, fieldQuad.B, fieldQuad.C, fieldQuad.D}
	indexPoints := []star.Star{indexQuad.A, indexQuad.B, indexQuad.C, indexQuad.D}

	// The index quad's own X/Y are the local tangent-plane coordinates it was built in, not
	// sky coordinates - the actual sky position of each reference star lives in RA/Dec. RA
	// is averaged circularly since a plain arithmetic mean breaks down for quads straddling
	// the 0h/24h wrap.
	ras := make([]float64, 4)
	var decSum float64

	for i, p := range indexPoints {
		ras[i] = projection.Radians(p.RA)
		decSum += p.Dec
	}

	crval1 := projection.Degrees(stat.CircularMean(ras, nil))
	if crval1 < 0 {
		crval1 += 360
	}
	crval2 := decSum / 4

	correspondences := make([]transform.Correspondence, 0, 4)

	for i := range fieldPoints {
		xr, yr := projection.ConvertEquatorialToGnomic(indexPoints[i].RA, indexPoints[i].Dec, crval1, crval2)

		correspondences = append(correspondences, transform.Correspondence{
			X:   fieldPoints[i].X,
			Y:   fieldPoints[i].Y,
			Xi:  projection.Degrees(xr),
			Eta: projection.Degrees(yr),
		})
	}

	affine, err := transform.FitAffine(correspondences)
	if err != nil {
		return wcs.WCS{}, err
	}

	crpix1, crpix2 := fieldQuad.PixelCenter()

	return wcs.FromAffine(crpix1, crpix2, crval1, crval2, affine, transform.SIP2DParameters{}), nil
}

/*****************************************************************************************************************/

// score projects every field star through trial and matches it against the nearest index
// star within tolDeg, accumulating the two-component mixture log-odds. It short-circuits
// once the running score plus the best possible contribution from the remaining stars can
// no longer clear bailThreshold.
func score(trial wcs.WCS, fieldStars, indexStars []star.Star, tolDeg, bailThreshold float64) (float64, []Match) {
	density := localDensity(indexStars, indexStars)

	pMatch := 0.7
	pChance := density * math.Pi * tolDeg * tolDeg

	if pChance <= 0 {
		pChance = 1e-12
	}

	if pChance >= 1 {
		pChance = 1 - 1e-9
	}

	gainOnMatch := math.Log(pMatch / pChance)
	lossOnMiss := math.Log(1 - pMatch)

	maxRemainingGain := gainOnMatch
	if lossOnMiss > maxRemainingGain {
		maxRemainingGain = lossOnMiss
	}

	var total float64
	var matches []Match

	for i, fs := range fieldStars {
		coord := trial.PixelToEquatorialCoordinate(fs.X, fs.Y)

		nearest, sep, ok := nearestStar(coord.RA, coord.Dec, indexStars)

		if ok && sep <= tolDeg {
			total += gainOnMatch
			matches = append(matches, Match{Field: fs, Index: nearest, SeparationDeg: sep})
		} else {
			total += lossOnMiss
		}

		remaining := float64(len(fieldStars) - i - 1)

		if total+remaining*maxRemainingGain < bailThreshold {
			return total, matches
		}
	}

	return total, matches
}

/*****************************************************************************************************************/

func rematch(trial wcs.WCS, fieldStars, indexStars []star.Star, tolDeg float64) []Match {
	_, matches := score(trial, fieldStars, indexStars, tolDeg, math.Inf(-1))
	return matches
}

/*****************************************************************************************************************/

// tune fits a SIP correction to the current matched correspondences and returns the
// refined WCS. It fails gracefully (returns ok=false) if the fit is singular or there are
// too few matches to constrain the chosen polynomial order, leaving the pre-tune WCS in
// place.
func tune(trial wcs.WCS, matches []Match, fieldStars, indexStars []star.Star, tolDeg float64, params Params) (wcs.WCS, float64, bool) {
	if len(matches) == 0 {
		return trial, 0, false
	}

	correspondences := make([]transform.Correspondence, 0, len(matches))

	for _, m := range matches {
		xr, yr := projection.ConvertEquatorialToGnomic(m.Index.RA, m.Index.Dec, trial.CRVAL1, trial.CRVAL2)

		correspondences = append(correspondences, transform.Correspondence{
			X:   m.Field.X,
			Y:   m.Field.Y,
			Xi:  projection.Degrees(xr),
			Eta: projection.Degrees(yr),
		})
	}

	affine := transform.Affine2DParameters{A: trial.CD1_1, B: trial.CD1_2, C: 0, D: trial.CD2_1, E: trial.CD2_2, F: 0}

	sip, err := transform.FitSIP(correspondences, affine, params.TweakOrder)
	if err != nil {
		return trial, 0, false
	}

	tuned := wcs.FromAffine(trial.CRPIX1, trial.CRPIX2, trial.CRVAL1, trial.CRVAL2, affine, sip)

	tunedScore, _ := score(tuned, fieldStars, indexStars, tolDeg, math.Inf(-1))

	return tuned, tunedScore, true
}

/*****************************************************************************************************************/

// nearestStar linear-scans the local index-star patch for the closest angular neighbor to
// (ra, dec). The patch handed to the verifier is already scoped to one HEALPix cell and
// scale band by the index catalog, so a linear scan over it is cheaper in practice than
// standing up a second spatial index purely for this lookup.
func nearestStar(ra, dec float64, indexStars []star.Star) (star.Star, float64, bool) {
	if len(indexStars) == 0 {
		return star.Star{}, 0, false
	}

	best := indexStars[0]
	bestSep := angularSeparationDeg(ra, dec, best.RA, best.Dec)

	for _, s := range indexStars[1:] {
		sep := angularSeparationDeg(ra, dec, s.RA, s.Dec)

		if sep < bestSep {
			best, bestSep = s, sep
		}
	}

	return best, bestSep, true
}

/*****************************************************************************************************************/

func angularSeparationDeg(ra1, dec1, ra2, dec2 float64) float64 {
	r1, d1 := projection.Radians(ra1), projection.Radians(dec1)
	r2, d2 := projection.Radians(ra2), projection.Radians(dec2)

	cosC := math.Sin(d1)*math.Sin(d2) + math.Cos(d1)*math.Cos(d2)*math.Cos(r1-r2)

	cosC = math.Max(-1, math.Min(1, cosC))

	return projection.Degrees(math.Acos(cosC))
}

/*****************************************************************************************************************/

// localDensity estimates the index-star surface density (stars per square degree) over the
// angular extent spanned by patch, used as the background "by chance" rate in the log-odds
// mixture.
func localDensity(patch, all []star.Star) float64 {
	if len(patch) < 2 {
		return 1e-6
	}

	minRA, maxRA := patch[0].RA, patch[0].RA
	minDec, maxDec := patch[0].Dec, patch[0].Dec

	for _, s := range patch[1:] {
		minRA = math.Min(minRA, s.RA)
		maxRA = math.Max(maxRA, s.RA)
		minDec = math.Min(minDec, s.Dec)
		maxDec = math.Max(maxDec, s.Dec)
	}

	area := (maxRA - minRA) * (maxDec - minDec)

	if area <= 0 {
		return 1e-6
	}

	return float64(len(all)) / area
}

/*****************************************************************************************************************/
