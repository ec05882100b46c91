/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

package params

/*****************************************************************************************************************/

import (
	"os"
	"path/filepath"
	"testing"
)

/*****************************************************************************************************************/

func TestDefaultCleanParamSurvivesLoadMergeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.yaml")

	doc := "detection:\n  clean_param: 3.5\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.Detection.CleanParam != 3.5 {
		t.Errorf("Expected CleanParam=3.5 to survive Load, Got=%v", loaded.Detection.CleanParam)
	}

	merged := Merge(Default(), loaded)

	if merged.Detection.CleanParam != 3.5 {
		t.Errorf("Expected CleanParam=3.5 to survive Merge, Got=%v", merged.Detection.CleanParam)
	}
}

/*****************************************************************************************************************/

func TestDepthLadderSentinelUnboundedOnlyInParallel(t *testing.T) {
	p := Default()
	p.Solver.InParallel = true

	ladder := p.DepthLadder()

	if len(ladder) != 1 || ladder[0] != (DepthRange{Lo: 0, Hi: 0}) {
		t.Errorf("Expected a single unbounded range when InParallel, Got=%v", ladder)
	}
}

/*****************************************************************************************************************/

func TestDepthLadderCollapsesToDefaultWhenSequential(t *testing.T) {
	p := Default()
	p.Solver.InParallel = false

	ladder := p.DepthLadder()
	want := DefaultDepthLadder()

	if len(ladder) != len(want) {
		t.Fatalf("Expected the default ladder length %d, Got=%d", len(want), len(ladder))
	}

	for i := range want {
		if ladder[i] != want[i] {
			t.Errorf("Expected ladder[%d]=%v, Got=%v", i, want[i], ladder[i])
		}
	}
}

/*****************************************************************************************************************/

func TestDepthLadderExplicitOverrideWins(t *testing.T) {
	p := Default()
	p.Solver.Depth = DepthRange{Lo: 5, Hi: 40}

	ladder := p.DepthLadder()

	if len(ladder) != 1 || ladder[0] != (DepthRange{Lo: 5, Hi: 40}) {
		t.Errorf("Expected the explicit override to be used verbatim, Got=%v", ladder)
	}
}

/*****************************************************************************************************************/

func TestMergeLeavesBaseAloneWhenOverrideIsZeroValue(t *testing.T) {
	base := Default()
	merged := Merge(base, Parameters{})

	if merged.Detection.MagZero != base.Detection.MagZero {
		t.Errorf("Expected MagZero to be untouched by a zero-value override")
	}
	if merged.Aperture.Shape != base.Aperture.Shape {
		t.Errorf("Expected Aperture.Shape to be untouched by a zero-value override")
	}
}

/*****************************************************************************************************************/

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Errorf("Expected an error loading a nonexistent parameters file")
	}
}

/*****************************************************************************************************************/
