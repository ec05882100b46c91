/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

// Package background estimates the sky background and its noise level across a frame by
// fitting a coarse grid of cells and smoothing between them, in the spirit of automated
// background extraction used by most deep-sky image processing pipelines.
package background

/*****************************************************************************************************************/

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/stellarforge/platesolve/pkg/pixel"
)

/*****************************************************************************************************************/

// Model is a piecewise-constant background fit on a coarse grid over the frame, together
// with a single global RMS estimate of the noise level.
type Model struct {
	Width       int
	Height      int
	GridSpacing int
	NumCellCols int
	NumCellRows int
	Cells       []float32 // median of each grid cell, NaN where clipped as an outlier
	OutlierCells int
	GlobalRMS   float64
}

/*****************************************************************************************************************/

// Params controls how the background grid is built.
type Params struct {
	GridSpacing int     // cell edge length in pixels, e.g. 64
	ClipSigma   float64 // values more than ClipSigma * MAD above the cell median are excluded from the cell fit
	OutlierFrac float64 // fraction of the brightest cells to discard outright as outliers, e.g. 0.1
}

/*****************************************************************************************************************/

// DefaultParams mirror a reasonable default grid for a few-megapixel CMOS frame.
var DefaultParams = Params{GridSpacing: 64, ClipSigma: 2.0, OutlierFrac: 0.1}

/*****************************************************************************************************************/

// Estimate fits a background model to a pixel buffer.
func Estimate(buf *pixel.Buffer, params Params) (*Model, error) {
	if params.GridSpacing <= 0 {
		return nil, fmt.Errorf("background: grid spacing must be positive, got %d", params.GridSpacing)
	}

	numCellCols := (buf.Width + params.GridSpacing - 1) / params.GridSpacing
	numCellRows := (buf.Height + params.GridSpacing - 1) / params.GridSpacing
	numCells := numCellCols * numCellRows

	m := &Model{
		Width:       buf.Width,
		Height:      buf.Height,
		GridSpacing: params.GridSpacing,
		NumCellCols: numCellCols,
		NumCellRows: numCellRows,
		Cells:       make([]float32, numCells),
	}

	m.fitCells(buf, params)
	m.clipOutliers(params)
	m.smooth()
	m.GlobalRMS = m.estimateGlobalRMS(buf)

	return m, nil
}

/*****************************************************************************************************************/

// fitCells computes, for every grid cell, a sigma-clipped median of the pixels in that
// cell. A sample buffer is reused across cells to keep allocation pressure flat.
func (m *Model) fitCells(buf *pixel.Buffer, params Params) {
	sample := make([]float64, m.GridSpacing*m.GridSpacing)

	c := 0

	for yStart := 0; yStart < m.Height; yStart += m.GridSpacing {
		yEnd := yStart + m.GridSpacing
		if yEnd > m.Height {
			yEnd = m.Height
		}

		for xStart := 0; xStart < m.Width; xStart += m.GridSpacing {
			xEnd := xStart + m.GridSpacing
			if xEnd > m.Width {
				xEnd = m.Width
			}

			m.Cells[c] = fitCell(buf, xStart, xEnd, yStart, yEnd, params.ClipSigma, sample)
			c++
		}
	}
}

/*****************************************************************************************************************/

func fitCell(buf *pixel.Buffer, xStart, xEnd, yStart, yEnd int, clipSigma float64, sample []float64) float32 {
	n := 0

	for y := yStart; y < yEnd; y++ {
		for x := xStart; x < xEnd; x++ {
			sample[n] = float64(buf.At(x, y))
			n++
		}
	}

	values := sample[:n]

	median, mad := medianAndMAD(values)

	upperBound := median + clipSigma*mad

	trimmed := values[:0]

	for _, v := range values {
		if v < upperBound {
			trimmed = append(trimmed, v)
		}
	}

	if len(trimmed) == 0 {
		return float32(median)
	}

	return float32(medianOf(trimmed))
}

/*****************************************************************************************************************/

// medianAndMAD returns the median and the median absolute deviation, scaled by the usual
// 1.4826 factor so that it approximates a Gaussian standard deviation. values is left
// unchanged; medianOf sorts a copy.
func medianAndMAD(values []float64) (median, mad float64) {
	median = medianOf(values)

	deviations := make([]float64, len(values))

	for i, v := range values {
		deviations[i] = math.Abs(v - median)
	}

	return median, medianOf(deviations) * 1.4826
}

/*****************************************************************************************************************/

func medianOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

/*****************************************************************************************************************/

// clipOutliers discards the brightest OutlierFrac fraction of cells (typically cells that
// landed on a galaxy core, a bright nebula, or a saturated region) and fills them back in
// with the median of their surviving 8-neighborhood, iterating outward until everything
// that can be filled has been. Only cells strictly brighter than the brightest kept cell
// are discarded, so cells tied with it stay; a grid that would keep no cell is left as is.
func (m *Model) clipOutliers(params Params) {
	if params.OutlierFrac <= 0 || len(m.Cells) == 0 {
		return
	}

	sorted := append([]float32(nil), m.Cells...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	keep := int(float64(len(sorted)) * (1 - params.OutlierFrac))
	if keep >= len(sorted) {
		keep = len(sorted) - 1
	}
	if keep < 1 {
		return
	}

	threshold := sorted[keep-1]

	outliers := 0

	for i, c := range m.Cells {
		if c > threshold {
			m.Cells[i] = float32(math.NaN())
			outliers++
		}
	}

	m.OutlierCells = outliers

	for neighbors := 8; neighbors >= 0; neighbors-- {
		for m.interpolatePass(neighbors) > 0 {
		}
	}
}

/*****************************************************************************************************************/

var neighborOffsets = [8][2]int{{-1, -1}, {0, -1}, {1, -1}, {-1, 0}, {1, 0}, {-1, 1}, {0, 1}, {1, 1}}

/*****************************************************************************************************************/

func (m *Model) interpolatePass(minNeighbors int) int {
	changed := 0

	for y := 0; y < m.NumCellRows; y++ {
		for x := 0; x < m.NumCellCols; x++ {
			index := y*m.NumCellCols + x

			if !math.IsNaN(float64(m.Cells[index])) {
				continue
			}

			var gathered []float64

			for _, off := range neighborOffsets {
				nx, ny := x+off[0], y+off[1]

				if nx < 0 || nx >= m.NumCellCols || ny < 0 || ny >= m.NumCellRows {
					continue
				}

				v := m.Cells[ny*m.NumCellCols+nx]

				if !math.IsNaN(float64(v)) {
					gathered = append(gathered, float64(v))
				}
			}

			if len(gathered) >= minNeighbors && len(gathered) > 0 {
				m.Cells[index] = float32(medianOf(gathered))
				changed++
			}
		}
	}

	return changed
}

/*****************************************************************************************************************/

// smooth applies a small Gaussian blur across the cell grid so that the rendered
// background does not show hard cell boundaries.
func (m *Model) smooth() {
	weights := [3]float32{0.468592, 0.107973, 0.024879}

	out := make([]float32, len(m.Cells))

	for y := 0; y < m.NumCellRows; y++ {
		for x := 0; x < m.NumCellCols; x++ {
			var sum, weightSum float32

			for oy := -1; oy <= 1; oy++ {
				for ox := -1; ox <= 1; ox++ {
					nx, ny := x+ox, y+oy

					if nx < 0 || nx >= m.NumCellCols || ny < 0 || ny >= m.NumCellRows {
						continue
					}

					v := m.Cells[ny*m.NumCellCols+nx]
					w := weights[ox*ox+oy*oy]
					sum += v * w
					weightSum += w
				}
			}

			out[y*m.NumCellCols+x] = sum / weightSum
		}
	}

	m.Cells = out
}

/*****************************************************************************************************************/

// Render expands the cell grid back to a full-resolution per-pixel plane via bicubic
// interpolation between cell centers.
func (m *Model) Render() []float32 {
	dest := make([]float32, m.Width*m.Height)

	half := float32(m.GridSpacing) * 0.5
	inv := 1.0 / float32(m.GridSpacing)

	for y := 0; y < m.Height; y++ {
		ySrc := (float32(y) - half) * inv

		for x := 0; x < m.Width; x++ {
			xSrc := (float32(x) - half) * inv

			dest[y*m.Width+x] = m.bicubic(xSrc, ySrc)
		}
	}

	return dest
}

/*****************************************************************************************************************/

// cubicWeight is the Catmull-Rom convolution kernel (a = -0.5), the standard separable
// bicubic weighting function evaluated at a sample offset t cells away from the
// interpolated point.
func cubicWeight(t float64) float64 {
	const a = -0.5

	t = math.Abs(t)

	switch {
	case t <= 1:
		return (a+2)*t*t*t - (a+3)*t*t + 1
	case t < 2:
		return a*t*t*t - 5*a*t*t + 8*a*t - 4*a
	default:
		return 0
	}
}

/*****************************************************************************************************************/

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

/*****************************************************************************************************************/

// bicubic samples the smoothed cell grid at (xSrc, ySrc) - fractional cell coordinates -
// with a separable 4x4 Catmull-Rom kernel, replacing a bilinear 2x2 footprint with the
// wider, smoother one spec's background rendering calls for. Out-of-grid taps clamp to the
// nearest edge cell rather than extrapolating.
func (m *Model) bicubic(xSrc, ySrc float32) float32 {
	xl := int(math.Floor(float64(xSrc)))
	yl := int(math.Floor(float64(ySrc)))

	fx := float64(xSrc) - float64(xl)
	fy := float64(ySrc) - float64(yl)

	var sum, weightSum float64

	for m2 := -1; m2 <= 2; m2++ {
		wy := cubicWeight(float64(m2) - fy)
		if wy == 0 {
			continue
		}

		yi := clampInt(yl+m2, 0, m.NumCellRows-1)

		for n := -1; n <= 2; n++ {
			wx := cubicWeight(float64(n) - fx)
			if wx == 0 {
				continue
			}

			xi := clampInt(xl+n, 0, m.NumCellCols-1)

			w := wx * wy
			sum += float64(m.Cells[yi*m.NumCellCols+xi]) * w
			weightSum += w
		}
	}

	if weightSum == 0 {
		return 0
	}

	return float32(sum / weightSum)
}

/*****************************************************************************************************************/

// Subtract returns a copy of the buffer with the rendered background model subtracted.
func (m *Model) Subtract(buf *pixel.Buffer) *pixel.Buffer {
	bg := m.Render()

	out := make([]float32, len(buf.Data))

	for i, v := range buf.Data {
		out[i] = v - bg[i]
	}

	return &pixel.Buffer{Data: out, Width: buf.Width, Height: buf.Height, SampleType: buf.SampleType}
}

/*****************************************************************************************************************/

// estimateGlobalRMS estimates the frame-wide noise level using a sigma-clipped subsample
// of background-subtracted pixels, via gonum/stat's standard deviation over the trimmed
// population.
func (m *Model) estimateGlobalRMS(buf *pixel.Buffer) float64 {
	bg := m.Render()

	residuals := make([]float64, 0, len(buf.Data))

	for i, v := range buf.Data {
		residuals = append(residuals, float64(v)-float64(bg[i]))
	}

	sort.Float64s(residuals)

	// Trim the extreme 5% from each tail before computing the standard deviation, so that
	// stars do not inflate the noise estimate.
	lo := int(float64(len(residuals)) * 0.05)
	hi := len(residuals) - lo

	if hi <= lo {
		return 0
	}

	trimmed := residuals[lo:hi]

	return stat.StdDev(trimmed, nil)
}

/*****************************************************************************************************************/
