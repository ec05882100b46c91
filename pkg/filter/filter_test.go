/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

package filter

/*****************************************************************************************************************/

import (
	"testing"

	"github.com/stellarforge/platesolve/pkg/obslog"
	"github.com/stellarforge/platesolve/pkg/star"
)

/*****************************************************************************************************************/

func TestFilterKeepsACleanStar(t *testing.T) {
	stars := []star.Star{
		{X: 50, Y: 50, Mag: 10, A: 3, B: 3},
	}

	out := Filter(stars, DefaultParams, nil)

	if len(out) != 1 {
		t.Fatalf("Expected the clean star to survive filtering, Got=%d", len(out))
	}
}

/*****************************************************************************************************************/

func TestFilterResortsByAscendingMagnitude(t *testing.T) {
	stars := []star.Star{
		{X: 10, Y: 50, Mag: 12, A: 3, B: 3},
		{X: 80, Y: 50, Mag: 8, A: 3, B: 3},
		{X: 50, Y: 10, Mag: 10, A: 3, B: 3},
	}

	out := Filter(stars, DefaultParams, nil)

	if len(out) != 3 {
		t.Fatalf("Expected all three stars to survive, Got=%d", len(out))
	}

	for i := 1; i < len(out); i++ {
		if out[i].Mag < out[i-1].Mag {
			t.Fatalf("Expected ascending magnitude order, Got=%v", out)
		}
	}
}

/*****************************************************************************************************************/

func TestFilterRejectsOversizedStars(t *testing.T) {
	stars := []star.Star{
		{X: 50, Y: 50, Mag: 10, A: 20, B: 18},
	}

	params := DefaultParams
	params.MaxSize = 10

	out := Filter(stars, params, nil)

	if len(out) != 0 {
		t.Errorf("Expected an oversized star to be rejected, Got=%d", len(out))
	}
}

/*****************************************************************************************************************/

func TestFilterRejectsUndersizedStars(t *testing.T) {
	stars := []star.Star{
		{X: 50, Y: 50, Mag: 10, A: 0.5, B: 0.4},
	}

	params := DefaultParams
	params.MinSize = 1

	out := Filter(stars, params, nil)

	if len(out) != 0 {
		t.Errorf("Expected an undersized star to be rejected, Got=%d", len(out))
	}
}

/*****************************************************************************************************************/

func TestFilterRejectsOverEllipticalStars(t *testing.T) {
	stars := []star.Star{
		{X: 50, Y: 50, Mag: 10, A: 10, B: 1},
	}

	params := DefaultParams
	params.MaxEllipse = 2

	out := Filter(stars, params, nil)

	if len(out) != 0 {
		t.Errorf("Expected an over-elongated star to be rejected, Got=%d", len(out))
	}
}

/*****************************************************************************************************************/

func TestFilterRejectsSaturatedStarsAgainstAKnownSampleMax(t *testing.T) {
	stars := []star.Star{
		{X: 50, Y: 50, Mag: 10, A: 3, B: 3, Peak: 70000},
	}

	params := DefaultParams
	params.SaturationLimitPct = 90
	params.SampleMax = 65535
	params.SampleMaxKnown = true

	out := Filter(stars, params, nil)

	if len(out) != 0 {
		t.Errorf("Expected a star above the saturation percentage of the sample max to be rejected, Got=%d", len(out))
	}
}

/*****************************************************************************************************************/

func TestFilterSkipsSaturationCutWhenSampleMaxIsUnknown(t *testing.T) {
	stars := []star.Star{
		{X: 50, Y: 50, Mag: 10, A: 3, B: 3, Peak: 1e9},
	}

	params := DefaultParams
	params.SaturationLimitPct = 90
	params.SampleMaxKnown = false

	out := Filter(stars, params, obslog.NoOp())

	if len(out) != 1 {
		t.Errorf("Expected the saturation cut to be skipped for an unknown sample max, Got=%d", len(out))
	}
}

/*****************************************************************************************************************/

func TestFilterKeepNumCapsTheSurvivorList(t *testing.T) {
	stars := []star.Star{
		{X: 10, Y: 50, Mag: 12, A: 3, B: 3},
		{X: 80, Y: 50, Mag: 8, A: 3, B: 3},
		{X: 50, Y: 10, Mag: 10, A: 3, B: 3},
	}

	params := DefaultParams
	params.KeepNum = 1

	out := Filter(stars, params, nil)

	if len(out) != 1 {
		t.Fatalf("Expected KeepNum to cap the survivor list to 1, Got=%d", len(out))
	}

	if out[0].Mag != 8 {
		t.Errorf("Expected the brightest star to survive the cap, Got mag=%f", out[0].Mag)
	}
}

/*****************************************************************************************************************/

// TestFilterBrightestAndDimmestPctTrimsAreCountedAgainstTheSameN builds 100 stars of
// strictly increasing magnitude (star N is the Nth brightest, 1-indexed) and checks that
// remove_brightest_pct=10/remove_dimmest_pct=20 leaves exactly 70 survivors, with the
// brightest surviving star at injection position 11 and the dimmest at position 80 - both
// percentages measured against the pre-trim count, not recomputed after the first trim.
func TestFilterBrightestAndDimmestPctTrimsAreCountedAgainstTheSameN(t *testing.T) {
	stars := make([]star.Star, 100)

	for i := range stars {
		stars[i] = star.Star{X: float64(i), Y: 0, Mag: float64(i + 1), A: 3, B: 3}
	}

	params := DefaultParams
	params.RemoveBrightestPct = 10
	params.RemoveDimmestPct = 20

	out := Filter(stars, params, nil)

	if len(out) != 70 {
		t.Fatalf("Expected exactly 70 survivors, Got=%d", len(out))
	}

	if out[0].Mag != 11 {
		t.Errorf("Expected the brightest survivor to be injection position 11, Got mag=%f", out[0].Mag)
	}

	if out[len(out)-1].Mag != 80 {
		t.Errorf("Expected the dimmest survivor to be injection position 80, Got mag=%f", out[len(out)-1].Mag)
	}
}

/*****************************************************************************************************************/

func TestFilterDoesNotMutateItsInput(t *testing.T) {
	stars := []star.Star{
		{X: 10, Y: 50, Mag: 12, A: 3, B: 3},
		{X: 80, Y: 50, Mag: 8, A: 3, B: 3},
	}

	_ = Filter(stars, DefaultParams, nil)

	if stars[0].Mag != 12 || stars[1].Mag != 8 {
		t.Fatalf("Expected Filter to leave its input slice's order untouched, Got=%v", stars)
	}
}
