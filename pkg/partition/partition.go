/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

// Package partition tiles large frames into overlapping rectangles so source extraction
// can run across them concurrently, then stitches the per-tile detections back into one
// deduplicated, frame-relative star list.
package partition

/*****************************************************************************************************************/

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/stellarforge/platesolve/pkg/pixel"
	"github.com/stellarforge/platesolve/pkg/star"
)

/*****************************************************************************************************************/

// Params controls how a frame is split for parallel extraction.
type Params struct {
	MaxWorkers  int // upper bound on the number of tiles, and goroutines run concurrently
	InnerMargin int // pixels of extra context fetched around each tile's nominal cell
	Overlap     int // pixels of deliberate overlap between adjacent tiles, the dedup window
	MinTileEdge int // tiling backs off below this many tiles per axis to keep edges this large
}

/*****************************************************************************************************************/

var DefaultParams = Params{MaxWorkers: 4, InnerMargin: 15, Overlap: 20, MinTileEdge: 200}

/*****************************************************************************************************************/

// Tile is one rectangular extraction region: Frame is the (possibly overlap-expanded)
// window to extract within, and OriginX/OriginY is the offset to add back to any detection
// made within it to recover frame-relative pixel coordinates.
type Tile struct {
	ID      int
	Frame   pixel.SubFrame
	OriginX int
	OriginY int
}

/*****************************************************************************************************************/

// Plan decides how to tile a width x height frame. Frames at or below 200x200 on either
// axis are not partitioned at all, matching the threshold the rest of the pipeline uses to
// decide whether a frame is worth splitting in the first place.
func Plan(width, height int, params Params) []Tile {
	if width <= 200 && height <= 200 {
		return []Tile{{
			ID:    0,
			Frame: pixel.SubFrame{X0: 0, Y0: 0, X1: width, Y1: height},
		}}
	}

	cols, rows := gridShape(width, height, params)

	cellW := width / cols
	cellH := height / rows

	tiles := make([]Tile, 0, cols*rows)
	id := 0

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			x0 := col * cellW
			y0 := row * cellH

			x1 := x0 + cellW
			y1 := y0 + cellH

			if col == cols-1 {
				x1 = width
			}

			if row == rows-1 {
				y1 = height
			}

			expand := params.InnerMargin + params.Overlap

			frame := pixel.SubFrame{
				X0: x0 - expand,
				Y0: y0 - expand,
				X1: x1 + expand,
				Y1: y1 + expand,
			}.Clamp(width, height)

			tiles = append(tiles, Tile{
				ID:      id,
				Frame:   frame,
				OriginX: frame.X0,
				OriginY: frame.Y0,
			})

			id++
		}
	}

	return tiles
}

/*****************************************************************************************************************/

// gridShape picks a cols x rows grid with at most params.MaxWorkers cells, backing off
// towards fewer, larger cells whenever a finer grid would leave an edge shorter than
// MinTileEdge.
func gridShape(width, height int, params Params) (cols, rows int) {
	maxWorkers := params.MaxWorkers
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	minEdge := params.MinTileEdge
	if minEdge < 1 {
		minEdge = 1
	}

	cols = width / minEdge
	rows = height / minEdge

	if cols < 1 {
		cols = 1
	}

	if rows < 1 {
		rows = 1
	}

	for cols*rows > maxWorkers {
		if cols >= rows && cols > 1 {
			cols--
		} else if rows > 1 {
			rows--
		} else {
			break
		}
	}

	return cols, rows
}

/*****************************************************************************************************************/

// ExtractFunc runs source extraction over one tile's cropped buffer.
type ExtractFunc func(ctx context.Context, tile Tile, frame *pixel.Buffer) ([]star.Star, error)

/*****************************************************************************************************************/

// Run extracts from every planned tile concurrently (bounded by an errgroup, replacing a
// bare sync.WaitGroup fan-out so a failing tile's error is captured without a data race on
// a shared error variable), translates every detection back to frame-relative pixel
// coordinates, and deduplicates detections that fall in more than one tile's overlap strip.
func Run(ctx context.Context, buf *pixel.Buffer, tiles []Tile, extract ExtractFunc) ([]star.Star, error) {
	results := make([][]star.Star, len(tiles))

	g, gctx := errgroup.WithContext(ctx)

	for i, tile := range tiles {
		i, tile := i, tile

		g.Go(func() error {
			cropped, err := buf.Crop(tile.Frame)
			if err != nil {
				return err
			}

			found, err := extract(gctx, tile, cropped)
			if err != nil {
				return err
			}

			translated := make([]star.Star, len(found))

			for j, s := range found {
				s.X += float64(tile.OriginX)
				s.Y += float64(tile.OriginY)
				s.TileID = tile.ID
				translated[j] = s
			}

			results[i] = translated

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []star.Star

	for _, r := range results {
		all = append(all, r...)
	}

	return dedupe(all), nil
}

/*****************************************************************************************************************/

// dedupe drops detections that are really the same star seen twice across adjacent tiles'
// overlap strips, keeping whichever copy was built from more pixels - the one that got a
// fuller, less edge-clipped view of the source.
func dedupe(stars []star.Star) []star.Star {
	kept := make([]bool, len(stars))

	for i := range stars {
		kept[i] = true
	}

	for i := range stars {
		if !kept[i] {
			continue
		}

		for j := i + 1; j < len(stars); j++ {
			if !kept[j] {
				continue
			}

			if stars[i].TileID == stars[j].TileID {
				continue
			}

			radius := math.Min(stars[i].A+stars[j].A, stars[i].B+stars[j].B)

			if radius <= 0 {
				radius = 2
			}

			if stars[i].EuclidianDistanceTo(stars[j]) > radius {
				continue
			}

			if stars[j].PixCount > stars[i].PixCount {
				kept[i] = false
				break
			}

			kept[j] = false
		}
	}

	out := make([]star.Star, 0, len(stars))

	for i, k := range kept {
		if k {
			out = append(out, stars[i].Clean())
		}
	}

	return out
}

/*****************************************************************************************************************/
