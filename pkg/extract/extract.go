/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

// Package extract detects point sources in a background-subtracted image by flood-filling
// connected regions above a noise threshold, deblending overlapping detections, then
// characterizing each region with a flux-weighted centroid, second-moment ellipse, Kron/
// circular aperture photometry and a half-flux radius.
package extract

/*****************************************************************************************************************/

import (
	"math"
	"sort"

	"github.com/stellarforge/platesolve/pkg/pixel"
	"github.com/stellarforge/platesolve/pkg/star"
)

/*****************************************************************************************************************/

// ApertureShape selects which photometric aperture characterize builds around a detection.
type ApertureShape string

/*****************************************************************************************************************/

const (
	ApertureAuto    ApertureShape = "auto"
	ApertureCircle  ApertureShape = "circle"
	ApertureEllipse ApertureShape = "ellipse"
)

/*****************************************************************************************************************/

// Params controls source detection sensitivity, deblending and photometry.
type Params struct {
	Threshold          float64 // detection threshold, in units of background RMS above the local background
	MinPixels          int     // minimum connected-region size to accept as a source
	MaxPixels          int     // maximum connected-region size before it is treated as a blend/saturation blob, 0 = unlimited
	CentroidIterations int     // maximum iterations for the iterative centroid refinement
	ConvFilter         []float64 // odd-sided square convolution kernel applied before thresholding, row-major, 0-length = none

	DeblendLevels   int     // > 1 enables the single-pass watershed split in deblend, <= 1 disables deblending; the count itself does not change how a region is split
	DeblendContrast float64 // minimum flux fraction a sub-peak must hold onto before it is split off as its own object

	Aperture ApertureShape // auto/circle/ellipse aperture selection (see 4.3.1)
	KronFact float64       // Kron radius scale factor applied to the auto/ellipse aperture
	RMin     float64       // minimum (and circle aperture's fixed) radius, in pixels
	Subpix   int           // sub-pixel integration grid side used when summing aperture flux
	InFlags  uint32        // bit 0: flag detections whose region touches the frame edge

	MagZero  float64 // zero-point used to convert aperture flux into instrumental magnitude
	InitialKeep int  // truncate the ellipse-size-sorted output to this many detections, 0 = keep all

	Clean      bool    // merge adjacent detections whose separation-to-size ratio is small
	CleanParam float64 // separation-to-size ratio below which a pair is merged; no fixed meaning beyond "smaller merges more"
}

/*****************************************************************************************************************/

var DefaultParams = Params{
	Threshold:          2.0,
	MinPixels:          3,
	MaxPixels:          0,
	CentroidIterations: 10,
	DeblendLevels:      32,
	DeblendContrast:    0.005,
	Aperture:           ApertureAuto,
	KronFact:           2.5,
	RMin:               3.5,
	Subpix:             5,
	MagZero:            25.0,
	Clean:              true,
	CleanParam:         1.0,
}

/*****************************************************************************************************************/

// region is an internal accumulator for a connected set of pixels above threshold.
type region struct {
	pixels       []int // flat index into the source buffer
	peak         float64
	peakX, peakY int
	touchesEdge  bool
}

/*****************************************************************************************************************/

// Extract detects sources in a background-subtracted buffer given the background RMS.
func Extract(buf *pixel.Buffer, rms float64, params Params) []star.Star {
	if rms <= 0 {
		rms = 1
	}

	detectBuf := buf
	if len(params.ConvFilter) > 0 {
		detectBuf = convolve(buf, params.ConvFilter)
	}

	threshold := float32(params.Threshold * rms)

	visited := make([]bool, len(detectBuf.Data))

	var stars []star.Star

	for y := 0; y < detectBuf.Height; y++ {
		for x := 0; x < detectBuf.Width; x++ {
			idx := y*detectBuf.Width + x

			if visited[idx] || detectBuf.Data[idx] < threshold {
				continue
			}

			reg := floodFill(detectBuf, visited, x, y, threshold)

			if len(reg.pixels) < params.MinPixels {
				continue
			}

			if params.MaxPixels > 0 && len(reg.pixels) > params.MaxPixels {
				continue
			}

			for _, child := range deblend(detectBuf, reg, threshold, params) {
				if len(child.pixels) < params.MinPixels {
					continue
				}

				stars = append(stars, characterize(buf, child, params, rms))
			}
		}
	}

	if params.Clean {
		stars = clean(stars, params.CleanParam)
	}

	// 4.3.3: sort by ellipse size, larger first, then truncate to InitialKeep. Magnitude
	// ordering is the filter's job, applied after this stage.
	sort.SliceStable(stars, func(i, j int) bool {
		return stars[i].A*stars[i].B > stars[j].A*stars[j].B
	})

	if params.InitialKeep > 0 && len(stars) > params.InitialKeep {
		stars = stars[:params.InitialKeep]
	}

	return stars
}

/*****************************************************************************************************************/

// convolve applies a normalized odd-sided square kernel to buf, producing the plane used
// only for detection thresholding; photometry is always measured against the original,
// unconvolved samples.
func convolve(buf *pixel.Buffer, kernel []float64) *pixel.Buffer {
	side := int(math.Sqrt(float64(len(kernel))))
	if side < 1 || side%2 == 0 || side*side != len(kernel) {
		return buf
	}

	half := side / 2

	var sum float64
	for _, k := range kernel {
		sum += k
	}
	if sum == 0 {
		sum = 1
	}

	out := make([]float32, len(buf.Data))

	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			var acc float64

			for ky := -half; ky <= half; ky++ {
				for kx := -half; kx <= half; kx++ {
					v := buf.At(x+kx, y+ky)
					if math.IsNaN(float64(v)) {
						continue
					}

					acc += float64(v) * kernel[(ky+half)*side+(kx+half)]
				}
			}

			out[y*buf.Width+x] = float32(acc / sum)
		}
	}

	return &pixel.Buffer{Data: out, Width: buf.Width, Height: buf.Height}
}

/*****************************************************************************************************************/

// clean merges adjacent detections whose centroid separation, divided by the sum of their
// major axes, falls below cleanParam - the brighter of each such pair survives and the
// fainter is dropped, the way a deblended wing or a noise spike riding a real star's profile
// would be merged back into its parent.
func clean(stars []star.Star, cleanParam float64) []star.Star {
	if cleanParam <= 0 || len(stars) < 2 {
		return stars
	}

	order := make([]int, len(stars))
	for i := range order {
		order[i] = i
	}

	sort.Slice(order, func(i, j int) bool { return stars[order[i]].Flux > stars[order[j]].Flux })

	kept := make([]bool, len(stars))
	for i := range kept {
		kept[i] = true
	}

	for oi, i := range order {
		if !kept[i] {
			continue
		}

		for _, j := range order[oi+1:] {
			if !kept[j] {
				continue
			}

			size := stars[i].A + stars[j].A
			if size <= 0 {
				continue
			}

			if stars[i].EuclidianDistanceTo(stars[j])/size < cleanParam {
				kept[j] = false
			}
		}
	}

	out := stars[:0]

	for i, k := range kept {
		if k {
			out = append(out, stars[i])
		}
	}

	return out
}

/*****************************************************************************************************************/

// floodFill walks an 8-connected region of pixels at or above threshold, starting from
// (x0, y0), marking every visited pixel so the outer scan never revisits it.
func floodFill(buf *pixel.Buffer, visited []bool, x0, y0 int, threshold float32) region {
	stack := [][2]int{{x0, y0}}

	reg := region{peak: math.Inf(-1)}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		x, y := p[0], p[1]

		if x < 0 || x >= buf.Width || y < 0 || y >= buf.Height {
			continue
		}

		idx := y*buf.Width + x

		if visited[idx] {
			continue
		}

		v := buf.Data[idx]

		if v < threshold {
			continue
		}

		visited[idx] = true
		reg.pixels = append(reg.pixels, idx)

		if x == 0 || y == 0 || x == buf.Width-1 || y == buf.Height-1 {
			reg.touchesEdge = true
		}

		if float64(v) > reg.peak {
			reg.peak = float64(v)
			reg.peakX, reg.peakY = x, y
		}

		for _, off := range [8][2]int{{-1, -1}, {0, -1}, {1, -1}, {-1, 0}, {1, 0}, {-1, 1}, {0, 1}, {1, 1}} {
			stack = append(stack, [2]int{x + off[0], y + off[1]})
		}
	}

	return reg
}

/*****************************************************************************************************************/
