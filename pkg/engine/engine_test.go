/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

package engine

/*****************************************************************************************************************/

import (
	"context"
	"errors"
	"testing"

	"github.com/stellarforge/platesolve/pkg/engineerr"
	"github.com/stellarforge/platesolve/pkg/params"
	"github.com/stellarforge/platesolve/pkg/pixel"
)

/*****************************************************************************************************************/

func flatBuffer(t *testing.T, width, height int, value float32) *pixel.Buffer {
	t.Helper()

	data := make([]float32, width*height)
	for i := range data {
		data[i] = value
	}

	buf, err := pixel.NewBuffer(data, width, height)
	if err != nil {
		t.Fatalf("pixel.NewBuffer: %v", err)
	}

	return buf
}

/*****************************************************************************************************************/

func TestNewEngineRejectsNilBuffer(t *testing.T) {
	if _, err := NewEngine(nil); !errors.Is(err, engineerr.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for a nil buffer, Got=%v", err)
	}
}

/*****************************************************************************************************************/

func TestNewEngineRejectsEmptyBuffer(t *testing.T) {
	if _, err := NewEngine(&pixel.Buffer{}); !errors.Is(err, engineerr.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for a zero-dimension buffer, Got=%v", err)
	}
}

/*****************************************************************************************************************/

func TestNewEngineAppliesOptions(t *testing.T) {
	buf := flatBuffer(t, 16, 16, 100)

	custom := params.Default()
	custom.Name = "custom"

	eng, err := NewEngine(buf, WithParameters(custom))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	if eng.params.Name != "custom" {
		t.Errorf("Expected WithParameters to seed the engine's parameter bundle, Got=%+v", eng.params)
	}
}

/*****************************************************************************************************************/

func TestSetSubFrameClampsToBufferBounds(t *testing.T) {
	buf := flatBuffer(t, 100, 100, 0)

	eng, err := NewEngine(buf)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	if err := eng.SetSubFrame(50, 50, 1000, 1000); err != nil {
		t.Fatalf("SetSubFrame: %v", err)
	}

	if eng.subFrame.X1 != 100 || eng.subFrame.Y1 != 100 {
		t.Errorf("Expected the sub-frame to clamp to the buffer bounds, Got=%+v", eng.subFrame)
	}
}

/*****************************************************************************************************************/

func TestSetSubFrameRejectsEmptyWindow(t *testing.T) {
	buf := flatBuffer(t, 100, 100, 0)

	eng, err := NewEngine(buf)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	if err := eng.SetSubFrame(200, 200, 10, 10); !errors.Is(err, engineerr.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for a window entirely outside the buffer, Got=%v", err)
	}
}

/*****************************************************************************************************************/

func TestSetScaleHintUpdatesParameters(t *testing.T) {
	buf := flatBuffer(t, 16, 16, 0)

	eng, err := NewEngine(buf)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	eng.SetScaleHint(1.0, 2.0, "arcsec_per_pix")

	if eng.params.Scale == nil || eng.params.Scale.Lo != 1.0 || eng.params.Scale.Hi != 2.0 {
		t.Errorf("Expected SetScaleHint to set Parameters.Scale, Got=%+v", eng.params.Scale)
	}
}

/*****************************************************************************************************************/

func TestSetPositionHintUsesConfiguredSearchRadius(t *testing.T) {
	buf := flatBuffer(t, 16, 16, 0)

	custom := params.Default()
	custom.Solver.SearchRadiusDeg = 5.0

	eng, err := NewEngine(buf, WithParameters(custom))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	eng.SetPositionHint(10.0, 20.0)

	if eng.params.Position == nil {
		t.Fatalf("Expected SetPositionHint to set Parameters.Position")
	}

	if eng.params.Position.RADeg != 10.0 || eng.params.Position.DecDeg != 20.0 || eng.params.Position.RadiusDeg != 5.0 {
		t.Errorf("Expected the position hint to carry the configured search radius, Got=%+v", eng.params.Position)
	}
}

/*****************************************************************************************************************/

func TestExtractReturnsNoDetectionsForAFlatField(t *testing.T) {
	buf := flatBuffer(t, 64, 64, 100)

	eng, err := NewEngine(buf)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	stars, err := eng.Extract(context.Background())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if len(stars) != 0 {
		t.Errorf("Expected no detections in a flat field, Got=%d", len(stars))
	}
}

/*****************************************************************************************************************/

func TestSolveReturnsNoIndexesWithoutRegisteredCatalogs(t *testing.T) {
	buf := flatBuffer(t, 64, 64, 100)

	eng, err := NewEngine(buf)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	_, err = eng.Solve(context.Background())
	if !errors.Is(err, engineerr.ErrNoIndexes) {
		t.Errorf("Expected ErrNoIndexes when no index paths are registered, Got=%v", err)
	}
}

/*****************************************************************************************************************/

func TestPixelToSkyRequiresAPriorSolve(t *testing.T) {
	buf := flatBuffer(t, 16, 16, 0)

	eng, err := NewEngine(buf)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	if _, err := eng.PixelToSky(1, 1); !errors.Is(err, engineerr.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput before any Solve has completed, Got=%v", err)
	}

	if _, _, err := eng.SkyToPixel(10, 20); !errors.Is(err, engineerr.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput before any Solve has completed, Got=%v", err)
	}
}

/*****************************************************************************************************************/

func TestAbortIsSafeBeforeAnyCallStarts(t *testing.T) {
	buf := flatBuffer(t, 16, 16, 0)

	eng, err := NewEngine(buf)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	eng.Abort()

	if err := eng.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

/*****************************************************************************************************************/

func TestSetIndexPathsRejectsUnopenableDatabase(t *testing.T) {
	buf := flatBuffer(t, 16, 16, 0)

	eng, err := NewEngine(buf)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	if err := eng.SetIndexPaths([]string{"/nonexistent/directory/index.sqlite3"}); err == nil {
		t.Errorf("Expected an error opening a catalog at a path whose directory does not exist")
	}
}

/*****************************************************************************************************************/
