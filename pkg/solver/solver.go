/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

// Package solver is the plate-solve driver: it walks a depth ladder and a scale band
// against a catalog of pre-built indexes, handing every candidate quad correspondence to
// pkg/verify, and returns the first solution that crosses the solve threshold (or the best
// near-miss, on cancellation/timeout).
package solver

/*****************************************************************************************************************/

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stellarforge/platesolve/pkg/astrometry"
	"github.com/stellarforge/platesolve/pkg/engineerr"
	"github.com/stellarforge/platesolve/pkg/index"
	"github.com/stellarforge/platesolve/pkg/obslog"
	"github.com/stellarforge/platesolve/pkg/params"
	"github.com/stellarforge/platesolve/pkg/projection"
	"github.com/stellarforge/platesolve/pkg/quad"
	"github.com/stellarforge/platesolve/pkg/star"
	"github.com/stellarforge/platesolve/pkg/verify"
	"github.com/stellarforge/platesolve/pkg/wcs"

	"github.com/stellarforge/platesolve/internal/jobctl"
)

/*****************************************************************************************************************/

// State is one node of the solve job's state machine. Terminal states are sticky; Solving
// is the only state that re-enters itself across depths and scales.
type State int

/*****************************************************************************************************************/

const (
	New State = iota
	Extracting
	Filtering
	Solving
	Tweaking
	Solved
	Failed
	Aborted
	TimedOut
)

/*****************************************************************************************************************/

func (s State) String() string {
	switch s {
	case Extracting:
		return "EXTRACTING"
	case Filtering:
		return "FILTERING"
	case Solving:
		return "SOLVING"
	case Tweaking:
		return "TWEAKING"
	case Solved:
		return "SOLVED"
	case Failed:
		return "FAILED"
	case Aborted:
		return "ABORTED"
	case TimedOut:
		return "TIMED_OUT"
	default:
		return "NEW"
	}
}

/*****************************************************************************************************************/

// Solution is what a successful (or near-miss) solve job hands back: the fitted WCS plus
// the derived descriptive quantities a caller wants without having to project pixels
// itself.
type Solution struct {
	WCS wcs.WCS

	CenterRA, CenterDec             float64
	CenterRAString, CenterDecString string

	FieldWidthArcmin, FieldHeightArcmin float64
	OrientationDeg                      float64
	PixelScaleArcsecPerPix              float64
	Parity                              int

	PositionErrorArcsec float64 // -1 when no position hint was supplied

	LogOdds float64
	IndexID string
	Matches []verify.Match
}

/*****************************************************************************************************************/

// Request bundles everything one solve job needs: the extracted (and already filtered)
// star list, the original frame's pixel dimensions (pre-downsample), and the parameter
// bundle controlling the depth/scale ladder and the verifier's decision thresholds.
type Request struct {
	FieldStars []star.Star

	ImageWidthPx  int
	ImageHeightPx int

	Params params.Parameters

	Logger obslog.Logger
	Token  *jobctl.Token
}

/*****************************************************************************************************************/

// Result is the outcome of one Solve call: a terminal State, and - only for Solved,
// Aborted or TimedOut with a qualifying near-miss - a Solution.
type Result struct {
	State    State
	Solution *Solution
	Err      error
}

/*****************************************************************************************************************/

// Solver drives solve jobs against a shared, read-only index catalog. A single Solver may
// be used concurrently by independent Solve calls, provided each Request carries its own
// Token.
type Solver struct {
	Catalog *index.Catalog
}

/*****************************************************************************************************************/

// New returns a Solver over the given index catalog.
func New(catalog *index.Catalog) *Solver {
	return &Solver{Catalog: catalog}
}

/*****************************************************************************************************************/

// Solve runs the depth/scale ladder against req, returning once a candidate crosses the
// solve threshold, the ladder is exhausted, the job is cancelled, or ctx/the configured
// wall-clock budget expires.
func (s *Solver) Solve(ctx context.Context, req Request) Result {
	logger := req.Logger
	if logger == nil {
		logger = obslog.NoOp()
	}

	token := req.Token
	if token == nil {
		token = jobctl.New("", "")
	}

	if req.Params.Solver.TimeLimitSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.Params.Solver.TimeLimitSec*float64(time.Second)))
		defer cancel()
	}

	minArcsec, maxArcsec, err := scaleBandFor(req.Params, req.ImageWidthPx)
	if err != nil {
		return Result{State: Failed, Err: err}
	}

	positionHint, searchRadiusDeg := positionHintFor(req.Params)

	candidates, err := s.Catalog.Candidates(minArcsec, maxArcsec, positionHint, searchRadiusDeg)
	if err != nil {
		return Result{State: Failed, Err: engineerr.Internal("pkg/solver.Solve", err)}
	}

	if len(candidates) == 0 {
		return Result{State: Failed, Err: engineerr.ErrNoIndexes}
	}

	verifyParams := verifyParamsFor(req.Params)
	depthLadder := req.Params.DepthLadder()

	diagonal := math.Hypot(float64(req.ImageWidthPx), float64(req.ImageHeightPx))

	logger.Info("solve started",
		"candidates", len(candidates),
		"depth_passes", len(depthLadder),
		"min_arcsec_per_pix", minArcsec,
		"max_arcsec_per_pix", maxArcsec,
	)

	var mu sync.Mutex
	var best *Solution

	recordKeep := func(candidate Solution) {
		mu.Lock()
		defer mu.Unlock()

		if best == nil || candidate.LogOdds > best.LogOdds {
			best = &candidate
		}
	}

	solveOne := func(workCtx context.Context, idx *index.Index) (*Solution, error) {
		return s.solveAgainstIndex(workCtx, idx, req, depthLadder, diagonal, verifyParams, token, recordKeep, logger)
	}

	var winner *Solution
	var solveErr error

	if req.Params.Solver.InParallel && len(candidates) > 1 {
		group, gctx := errgroup.WithContext(ctx)

		var once sync.Once

		for _, candidate := range candidates {
			candidate := candidate

			group.Go(func() error {
				sol, err := solveOne(gctx, candidate)
				if err != nil {
					return err
				}

				if sol != nil {
					once.Do(func() {
						winner = sol
						token.MarkSolved()
					})
				}

				return nil
			})
		}

		if err := group.Wait(); err != nil {
			solveErr = err
		}
	} else {
		for _, candidate := range candidates {
			if token.Done() {
				break
			}

			sol, err := solveOne(ctx, candidate)
			if err != nil {
				solveErr = err
				break
			}

			if sol != nil {
				winner = sol
				token.MarkSolved()
				break
			}
		}
	}

	if winner != nil {
		logger.Info("solve succeeded", "index_id", winner.IndexID, "log_odds", winner.LogOdds)
		return Result{State: Solved, Solution: winner}
	}

	if solveErr != nil {
		return Result{State: Failed, Err: engineerr.Internal("pkg/solver.Solve", solveErr)}
	}

	if token.Cancelled() {
		logger.Warn("solve aborted", "had_near_miss", best != nil)
		return Result{State: Aborted, Solution: best, Err: engineerr.ErrCancelled}
	}

	if ctx.Err() != nil {
		logger.Warn("solve timed out", "had_near_miss", best != nil)
		return Result{State: TimedOut, Solution: best, Err: engineerr.ErrTimedOut}
	}

	logger.Warn("solve failed", "reason", "depth/scale ladder exhausted")

	return Result{State: Failed, Err: engineerr.ErrNoSolution}
}

/*****************************************************************************************************************/

// solveAgainstIndex walks the full depth ladder against one candidate index, returning a
// Solution the instant a candidate crosses the solve threshold. Near-misses are reported
// through recordKeep rather than returned, so a caller fanning this out across several
// indexes in parallel can still track the single best keep across all of them.
func (s *Solver) solveAgainstIndex(
	ctx context.Context,
	idx *index.Index,
	req Request,
	depthLadder []params.DepthRange,
	diagonal float64,
	verifyParams verify.Params,
	token *jobctl.Token,
	recordKeep func(Solution),
	logger obslog.Logger,
) (*Solution, error) {
	matcher, err := idx.Matcher()
	if err != nil {
		return nil, fmt.Errorf("solver: loading matcher for index %s: %w", idx.Record.IndexID, err)
	}

	patch, err := idx.StarsNear(idx.Record.ReferenceStarCRA, idx.Record.ReferenceStarDec, idx.Record.RadiusDeg)
	if err != nil {
		return nil, fmt.Errorf("solver: loading star patch for index %s: %w", idx.Record.IndexID, err)
	}

	ordered := sortedByFluxDescending(req.FieldStars)
	pixelScale := (idx.Record.MinArcsecPerPix + idx.Record.MaxArcsecPerPix) / 2

	for _, depth := range depthLadder {
		if ctx.Err() != nil || token.Done() {
			return nil, nil
		}

		subset := depthSubset(ordered, depth)
		if len(subset) < 4 {
			continue
		}

		quads := quad.BuildFromStars(subset, quad.DefaultBuildParams)

		for _, fieldQuad := range quads {
			if ctx.Err() != nil || token.Done() {
				return nil, nil
			}

			if diagonal > 0 && !quadWithinScaleBand(fieldQuad, diagonal) {
				continue
			}

			hits := matcher.WithinRadius(fieldQuad, idx.Record.CodeTol)

			for _, hit := range hits {
				if ctx.Err() != nil || token.Done() {
					return nil, nil
				}

				result, err := verify.Verify(fieldQuad, hit.Quad, req.FieldStars, patch, pixelScale, verifyParams)
				if err != nil {
					logger.Debug("verify failed", "err", err)
					continue
				}

				switch result.Decision {
				case verify.Solved:
					return solutionFrom(result, idx, req), nil

				case verify.Keep:
					recordKeep(*solutionFrom(result, idx, req))
				}
			}
		}
	}

	return nil, nil
}

/*****************************************************************************************************************/

func solutionFrom(result verify.Result, idx *index.Index, req Request) *Solution {
	downsample := req.Params.Solver.Downsample
	if downsample < 1 {
		downsample = 1
	}

	center := result.WCS.PixelToEquatorialCoordinate(result.WCS.CRPIX1, result.WCS.CRPIX2)

	det := result.WCS.CD1_1*result.WCS.CD2_2 - result.WCS.CD1_2*result.WCS.CD2_1

	parity := 1
	if det < 0 {
		parity = -1
	}

	scalePerSolvedPixel := pixelScaleOf(result.WCS)
	scalePerOriginalPixel := scalePerSolvedPixel * float64(downsample)

	orientation := orientationOf(result.WCS)

	positionError := -1.0
	if req.Params.Position != nil {
		positionError = angularSeparationArcsec(center.RA, center.Dec, req.Params.Position.RADeg, req.Params.Position.DecDeg)
	}

	return &Solution{
		WCS:                    result.WCS,
		CenterRA:               center.RA,
		CenterDec:              center.Dec,
		CenterRAString:         center.RAString(),
		CenterDecString:        center.DecString(),
		FieldWidthArcmin:       float64(req.ImageWidthPx) * scalePerOriginalPixel / 60,
		FieldHeightArcmin:      float64(req.ImageHeightPx) * scalePerOriginalPixel / 60,
		OrientationDeg:         orientation,
		PixelScaleArcsecPerPix: scalePerOriginalPixel,
		Parity:                 parity,
		PositionErrorArcsec:    positionError,
		LogOdds:                result.LogOdds,
		IndexID:                idx.Record.IndexID,
		Matches:                result.Matches,
	}
}

/*****************************************************************************************************************/

// pixelScaleOf derives the arcsec/pixel scale a fitted WCS implies, from the magnitude of
// the CD matrix's first column.
func pixelScaleOf(w wcs.WCS) float64 {
	return math.Hypot(w.CD1_1, w.CD2_1) * 3600
}

/*****************************************************************************************************************/

// orientationOf derives the position angle (degrees, east of north) the CD matrix implies.
func orientationOf(w wcs.WCS) float64 {
	return projection.Degrees(math.Atan2(w.CD2_1, w.CD1_1))
}

/*****************************************************************************************************************/

func verifyParamsFor(p params.Parameters) verify.Params {
	parity := 0

	switch p.Solver.SearchParity {
	case params.ParityPos:
		parity = 1
	case params.ParityNeg:
		parity = -1
	}

	return verify.Params{
		VerifyPix:             1.0,
		LogRatioBailThreshold: verify.DefaultParams.LogRatioBailThreshold,
		LogRatioToTune:        verify.DefaultParams.LogRatioToTune,
		LogRatioToSolve:       logOr(p.LogOdds.ToSolve, verify.DefaultParams.LogRatioToSolve),
		LogRatioToKeep:        logOr(p.LogOdds.ToKeep, verify.DefaultParams.LogRatioToKeep),
		SearchParity:          parity,
		BestHitOnly:           true,
		TweakOrder:            2,
	}
}

/*****************************************************************************************************************/

func logOr(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}

/*****************************************************************************************************************/

// scaleBandFor resolves Parameters into a concrete [min, max] arcsec-per-pixel band,
// converting whichever of the scale hint or min/max field width the caller supplied.
// focal_mm is not convertible without a sensor pixel pitch, which is not among this
// engine's parameters; a scale hint expressed that way falls back to min_width_deg /
// max_width_deg if present, or fails with ErrInvalidInput otherwise.
func scaleBandFor(p params.Parameters, imageWidthPx int) (float64, float64, error) {
	if p.Scale != nil {
		switch p.Scale.Unit {
		case "arcsec_per_pix":
			return minmax(p.Scale.Lo, p.Scale.Hi)

		case "arcmin_width":
			return widthToArcsecPerPix(p.Scale.Lo*60, p.Scale.Hi*60, imageWidthPx)

		case "deg_width":
			return widthToArcsecPerPix(p.Scale.Lo*3600, p.Scale.Hi*3600, imageWidthPx)
		}
	}

	if p.Solver.MinWidthDeg > 0 && p.Solver.MaxWidthDeg > 0 {
		return widthToArcsecPerPix(p.Solver.MinWidthDeg*3600, p.Solver.MaxWidthDeg*3600, imageWidthPx)
	}

	return 0, 0, engineerr.ErrInvalidInput
}

/*****************************************************************************************************************/

func widthToArcsecPerPix(loArcsec, hiArcsec float64, imageWidthPx int) (float64, float64, error) {
	if imageWidthPx <= 0 {
		return 0, 0, engineerr.ErrInvalidInput
	}

	return minmax(loArcsec/float64(imageWidthPx), hiArcsec/float64(imageWidthPx))
}

/*****************************************************************************************************************/

func minmax(a, b float64) (float64, float64, error) {
	if a <= 0 || b <= 0 {
		return 0, 0, engineerr.ErrInvalidInput
	}

	if a > b {
		a, b = b, a
	}

	return a, b, nil
}

/*****************************************************************************************************************/

func positionHintFor(p params.Parameters) (*astrometry.ICRSEquatorialCoordinate, float64) {
	if p.Position == nil {
		return nil, 0
	}

	radius := p.Position.RadiusDeg
	if radius <= 0 {
		radius = p.Solver.SearchRadiusDeg
	}
	if radius <= 0 {
		radius = 15
	}

	return &astrometry.ICRSEquatorialCoordinate{RA: p.Position.RADeg, Dec: p.Position.DecDeg}, radius
}

/*****************************************************************************************************************/

func sortedByFluxDescending(stars []star.Star) []star.Star {
	ordered := make([]star.Star, len(stars))
	copy(ordered, stars)

	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Flux > ordered[j].Flux })

	return ordered
}

/*****************************************************************************************************************/

// depthSubset slices the flux-sorted star list to one depth pass. {0,0} means the full
// list (the unbounded sentinel, already resolved by Parameters.DepthLadder before this is
// called).
func depthSubset(ordered []star.Star, depth params.DepthRange) []star.Star {
	if depth.Lo == 0 && depth.Hi == 0 {
		return ordered
	}

	lo := depth.Lo
	if lo > len(ordered) {
		lo = len(ordered)
	}

	hi := depth.Hi
	if hi == 0 || hi > len(ordered) {
		hi = len(ordered)
	}

	if lo >= hi {
		return nil
	}

	return ordered[lo:hi]
}

/*****************************************************************************************************************/

// quadWithinScaleBand rejects quads whose pixel footprint is an implausible fraction of
// the frame - degenerate quads built from clustered or near-antipodal stars are expensive
// to match against a reference index and never score well in the verifier, so they're
// culled here instead of being handed to the code-tree matcher.
func quadWithinScaleBand(q quad.Quad, diagonal float64) bool {
	fraction := q.Diameter() / diagonal

	return fraction > 0.001 && fraction < 1.0
}

/*****************************************************************************************************************/

func angularSeparationArcsec(ra1, dec1, ra2, dec2 float64) float64 {
	r1, d1 := projection.Radians(ra1), projection.Radians(dec1)
	r2, d2 := projection.Radians(ra2), projection.Radians(dec2)

	cosC := math.Sin(d1)*math.Sin(d2) + math.Cos(d1)*math.Cos(d2)*math.Cos(r1-r2)
	cosC = math.Max(-1, math.Min(1, cosC))

	return projection.Degrees(math.Acos(cosC)) * 3600
}

/*****************************************************************************************************************/
