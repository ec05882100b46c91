/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

package partition

/*****************************************************************************************************************/

import (
	"context"
	"errors"
	"testing"

	"github.com/stellarforge/platesolve/pkg/pixel"
	"github.com/stellarforge/platesolve/pkg/star"
)

/*****************************************************************************************************************/

func TestPlanReturnsASingleTileForASmallFrame(t *testing.T) {
	tiles := Plan(100, 150, DefaultParams)

	if len(tiles) != 1 {
		t.Fatalf("Expected a single tile for a frame at or below the 200x200 threshold, Got=%d", len(tiles))
	}

	if tiles[0].Frame.X1 != 100 || tiles[0].Frame.Y1 != 150 {
		t.Errorf("Expected the single tile to cover the whole frame, Got=%+v", tiles[0].Frame)
	}
}

/*****************************************************************************************************************/

func TestPlanTilesALargeFrameIntoMultipleOverlappingPieces(t *testing.T) {
	tiles := Plan(1000, 1000, DefaultParams)

	if len(tiles) <= 1 {
		t.Fatalf("Expected a large frame to be split into multiple tiles, Got=%d", len(tiles))
	}

	if len(tiles) > DefaultParams.MaxWorkers {
		t.Errorf("Expected at most MaxWorkers=%d tiles, Got=%d", DefaultParams.MaxWorkers, len(tiles))
	}

	for _, tile := range tiles {
		if tile.Frame.X0 < 0 || tile.Frame.Y0 < 0 || tile.Frame.X1 > 1000 || tile.Frame.Y1 > 1000 {
			t.Errorf("Expected every tile to stay clamped within the frame, Got=%+v", tile.Frame)
		}
	}
}

/*****************************************************************************************************************/

func TestPlanCoversTheFullFrameWithNoGaps(t *testing.T) {
	tiles := Plan(1000, 1000, DefaultParams)

	covered := make([][]bool, 1000)
	for i := range covered {
		covered[i] = make([]bool, 1000)
	}

	for _, tile := range tiles {
		for y := tile.Frame.Y0; y < tile.Frame.Y1; y++ {
			for x := tile.Frame.X0; x < tile.Frame.X1; x++ {
				covered[y][x] = true
			}
		}
	}

	for y := 0; y < 1000; y++ {
		for x := 0; x < 1000; x++ {
			if !covered[y][x] {
				t.Fatalf("Expected the tiling (with overlap) to cover every pixel, gap at (%d, %d)", x, y)
			}
		}
	}
}

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

func TestRunTranslatesDetectionsToFrameRelativeCoordinates(t *testing.T) {
	buf := flatBuffer(t, 100, 100, 0)
	tiles := Plan(100, 100, DefaultParams)

	stars, err := Run(context.Background(), buf, tiles, func(_ context.Context, tile Tile, frame *pixel.Buffer) ([]star.Star, error) {
		return []star.Star{{X: 1, Y: 1, Flux: 10, PixCount: 5}}, nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(stars) != 1 {
		t.Fatalf("Expected exactly one detection from the single tile, Got=%d", len(stars))
	}

	if stars[0].X != 1+float64(tiles[0].OriginX) || stars[0].Y != 1+float64(tiles[0].OriginY) {
		t.Errorf("Expected the detection to be translated by the tile's origin, Got=(%.1f, %.1f)", stars[0].X, stars[0].Y)
	}
}

/*****************************************************************************************************************/

func TestRunPropagatesATileExtractionError(t *testing.T) {
	buf := flatBuffer(t, 100, 100, 0)
	tiles := Plan(100, 100, DefaultParams)

	wantErr := errors.New("boom")

	_, err := Run(context.Background(), buf, tiles, func(_ context.Context, tile Tile, frame *pixel.Buffer) ([]star.Star, error) {
		return nil, wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Errorf("Expected Run to propagate the extraction error, Got=%v", err)
	}
}

/*****************************************************************************************************************/

func TestDedupeCollapsesTwoCloseDetectionsFromDifferentTiles(t *testing.T) {
	stars := []star.Star{
		{X: 100, Y: 100, TileID: 0, HFR: 3, FWHM: 3, PixCount: 20},
		{X: 101, Y: 100, TileID: 1, HFR: 3, FWHM: 3, PixCount: 40},
	}

	out := dedupe(stars)

	if len(out) != 1 {
		t.Fatalf("Expected the two close detections from different tiles to collapse to one, Got=%d", len(out))
	}

	if out[0].PixCount != 40 {
		t.Errorf("Expected the fuller, larger-PixCount detection to survive, Got=%+v", out[0])
	}
}

/*****************************************************************************************************************/

func TestDedupeKeepsTwoDetectionsFromTheSameTile(t *testing.T) {
	stars := []star.Star{
		{X: 100, Y: 100, TileID: 0, HFR: 3, FWHM: 3, PixCount: 20},
		{X: 101, Y: 100, TileID: 0, HFR: 3, FWHM: 3, PixCount: 40},
	}

	out := dedupe(stars)

	if len(out) != 2 {
		t.Errorf("Expected two detections from the same tile to both survive (dedupe only compares across tiles), Got=%d", len(out))
	}
}

/*****************************************************************************************************************/

func TestDedupeKeepsWellSeparatedDetections(t *testing.T) {
	stars := []star.Star{
		{X: 10, Y: 10, TileID: 0, HFR: 3, FWHM: 3, PixCount: 20},
		{X: 900, Y: 900, TileID: 1, HFR: 3, FWHM: 3, PixCount: 20},
	}

	out := dedupe(stars)

	if len(out) != 2 {
		t.Errorf("Expected two well-separated detections to both survive, Got=%d", len(out))
	}
}

/*****************************************************************************************************************/
