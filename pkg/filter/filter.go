/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

// Package filter applies the ordered post-extraction cut pipeline to a raw star list: a
// magnitude resort, ellipse size cuts, count-based brightest/dimmest trims, an ellipticity
// cut, a saturation cut and a final keep-count cap.
package filter

/*****************************************************************************************************************/

import (
	"math"
	"sort"

	"github.com/stellarforge/platesolve/pkg/obslog"
	"github.com/stellarforge/platesolve/pkg/star"
)

/*****************************************************************************************************************/

// Params controls the ordered cut pipeline, named after spec.md's filtering table.
type Params struct {
	Resort              bool    // sort by ascending magnitude (brightest first) before anything else
	MaxSize             float64 // drop where a or b exceeds this, 0 = disabled
	MinSize             float64 // drop where a or b falls below this, 0 = disabled
	MaxEllipse          float64 // drop where a/b exceeds this, must be > 1 to take effect
	RemoveBrightestPct  float64 // drop this percentage of the brightest survivors, requires Resort
	RemoveDimmestPct    float64 // drop this percentage of the dimmest survivors, requires Resort
	SaturationLimitPct  float64 // drop where peak exceeds this percentage of the sample type's max value
	KeepNum             int     // truncate to this many stars, 0 = unlimited
	SampleMax           float64 // the originating buffer's sample type maximum value
	SampleMaxKnown      bool    // false for a float/double sample plane, where no fixed maximum exists
}

/*****************************************************************************************************************/

var DefaultParams = Params{Resort: true}

/*****************************************************************************************************************/

// Filter applies spec.md 4.4's eight-step ordered pipeline and returns the surviving stars.
// Rejected stars are simply dropped; Filter does not mutate or return them.
func Filter(stars []star.Star, params Params, logger obslog.Logger) []star.Star {
	if logger == nil {
		logger = obslog.NoOp()
	}

	out := make([]star.Star, len(stars))
	copy(out, stars)

	// 1. Sort by magnitude ascending (brightest first) if resort.
	if params.Resort {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Mag < out[j].Mag })
	}

	// 2. Drop where a > max_size or b > max_size.
	if params.MaxSize > 0 {
		out = rejectWhere(out, func(s star.Star) bool { return s.A > params.MaxSize || s.B > params.MaxSize })
	}

	// 3. Drop where a < min_size or b < min_size.
	if params.MinSize > 0 {
		out = rejectWhere(out, func(s star.Star) bool { return s.A < params.MinSize || s.B < params.MinSize })
	}

	// 4/5. Count-based brightest/dimmest trims, both measured against the list size
	// entering this step - not re-derived after the first trim shrinks it.
	if params.Resort {
		n := len(out)

		drop := func(pct float64) int {
			if pct <= 0 || pct >= 100 {
				return 0
			}
			return int(math.Floor(float64(n) * pct / 100))
		}

		lo := drop(params.RemoveBrightestPct)
		hi := drop(params.RemoveDimmestPct)

		if lo+hi >= len(out) {
			out = out[:0]
		} else {
			out = out[lo : len(out)-hi]
		}
	}

	// 6. Drop where a/b > max_ellipse.
	if params.MaxEllipse > 1 {
		out = rejectWhere(out, func(s star.Star) bool { return s.B > 0 && s.A/s.B > params.MaxEllipse })
	}

	// 7. Drop where peak exceeds saturation_limit_pct of the sample type's max value. For a
	// float/double sample plane the maximum is unknown, so the cut is skipped and logged.
	if params.SaturationLimitPct > 0 {
		if params.SampleMaxKnown {
			limit := params.SaturationLimitPct / 100 * params.SampleMax
			out = rejectWhere(out, func(s star.Star) bool { return s.Peak > limit })
		} else {
			logger.Warn("filter: saturation_limit_pct is set but the sample plane has no known maximum, skipping saturation cut")
		}
	}

	// 8. Final count cap.
	if params.KeepNum > 0 && len(out) > params.KeepNum {
		out = out[:params.KeepNum]
	}

	return out
}

/*****************************************************************************************************************/

// rejectWhere drops every star matching pred, compacting in place over the same backing
// array (safe here since the write cursor never runs ahead of the read cursor).
func rejectWhere(in []star.Star, pred func(star.Star) bool) []star.Star {
	out := in[:0]

	for _, s := range in {
		if pred(s) {
			continue
		}
		out = append(out, s)
	}

	return out
}

/*****************************************************************************************************************/
