/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

// Package pixel adapts an arbitrary row-major image buffer into the flat float32 sample
// plane the rest of the pipeline consumes, and exposes a cheap sub-frame view over it
// without copying the backing array.
package pixel

/*****************************************************************************************************************/

import (
	"fmt"
	"math"
)

/*****************************************************************************************************************/

// SampleType names the integer or floating-point type samples were decoded from before
// being normalized into Buffer's flat f32 plane, mirroring the Statistic descriptor's
// sample type. The zero value means unknown (as produced by NewBuffer/NewBufferFromFloat64,
// which have no type information to carry), and behaves like a float type: MaxValue
// reports not-known for it.
type SampleType string

/*****************************************************************************************************************/

const (
	SampleU8     SampleType = "u8"
	SampleI16    SampleType = "i16"
	SampleU16    SampleType = "u16"
	SampleI32    SampleType = "i32"
	SampleU32    SampleType = "u32"
	SampleFloat32 SampleType = "f32"
	SampleFloat64 SampleType = "f64"
)

/*****************************************************************************************************************/

// MaxValue reports the largest representable value for t, or ok=false for a float type (or
// the unknown zero value) where no fixed maximum exists.
func (t SampleType) MaxValue() (max float64, ok bool) {
	switch t {
	case SampleU8:
		return math.MaxUint8, true
	case SampleI16:
		return math.MaxInt16, true
	case SampleU16:
		return math.MaxUint16, true
	case SampleI32:
		return math.MaxInt32, true
	case SampleU32:
		return math.MaxUint32, true
	default:
		return 0, false
	}
}

/*****************************************************************************************************************/

// Buffer is a row-major plane of pixel samples together with the dimensions needed to
// address it. Data always has exactly Width*Height entries.
type Buffer struct {
	Data       []float32
	Width      int
	Height     int
	SampleType SampleType // original sample type, for filtering's saturation cut; "" if unknown
}

/*****************************************************************************************************************/

// NewBuffer validates and wraps a flat row-major sample plane.
func NewBuffer(data []float32, width, height int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("pixel: width and height must be positive, got %dx%d", width, height)
	}

	if len(data) != width*height {
		return nil, fmt.Errorf("pixel: data length %d does not match %dx%d", len(data), width, height)
	}

	return &Buffer{Data: data, Width: width, Height: height}, nil
}

/*****************************************************************************************************************/

// NewBufferFromFloat64 converts a flat float64 plane (as produced by synthetic test
// fixtures, or by readers that decode into float64) into a Buffer.
func NewBufferFromFloat64(data []float64, width, height int) (*Buffer, error) {
	converted := make([]float32, len(data))

	for i, v := range data {
		converted[i] = float32(v)
	}

	return NewBuffer(converted, width, height)
}

/*****************************************************************************************************************/

// At returns the sample at (x, y), or NaN if out of bounds.
func (b *Buffer) At(x, y int) float32 {
	if x < 0 || x >= b.Width || y < 0 || y >= b.Height {
		return float32(math.NaN())
	}

	return b.Data[y*b.Width+x]
}

/*****************************************************************************************************************/

// SubFrame describes a rectangular window into a Buffer, in the parent's pixel coordinates.
type SubFrame struct {
	X0, Y0 int // inclusive
	X1, Y1 int // exclusive
}

/*****************************************************************************************************************/

// Clamp returns a copy of the sub-frame clipped to the bounds of a width x height buffer.
func (s SubFrame) Clamp(width, height int) SubFrame {
	if s.X0 < 0 {
		s.X0 = 0
	}

	if s.Y0 < 0 {
		s.Y0 = 0
	}

	if s.X1 > width {
		s.X1 = width
	}

	if s.Y1 > height {
		s.Y1 = height
	}

	if s.X1 < s.X0 {
		s.X1 = s.X0
	}

	if s.Y1 < s.Y0 {
		s.Y1 = s.Y0
	}

	return s
}

/*****************************************************************************************************************/

func (s SubFrame) Width() int  { return s.X1 - s.X0 }
func (s SubFrame) Height() int { return s.Y1 - s.Y0 }

/*****************************************************************************************************************/

// Crop extracts a new, densely packed Buffer covering the given sub-frame, translating
// pixel coordinates so that the crop's own (0, 0) is the sub-frame's (X0, Y0).
func (b *Buffer) Crop(frame SubFrame) (*Buffer, error) {
	frame = frame.Clamp(b.Width, b.Height)

	w, h := frame.Width(), frame.Height()

	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("pixel: sub-frame %+v is empty against %dx%d buffer", frame, b.Width, b.Height)
	}

	out := make([]float32, w*h)

	for row := 0; row < h; row++ {
		srcStart := (frame.Y0+row)*b.Width + frame.X0
		copy(out[row*w:(row+1)*w], b.Data[srcStart:srcStart+w])
	}

	return &Buffer{Data: out, Width: w, Height: h, SampleType: b.SampleType}, nil
}

/*****************************************************************************************************************/

// Stats holds basic summary statistics over a pixel plane, cheap enough to compute in a
// single pass and used to seed the background estimator's outlier rejection.
type Stats struct {
	Min, Max, Mean float64
}

/*****************************************************************************************************************/

// Summarize computes Min/Max/Mean over the whole buffer in a single flat loop.
func (b *Buffer) Summarize() Stats {
	if len(b.Data) == 0 {
		return Stats{}
	}

	min := float64(b.Data[0])
	max := float64(b.Data[0])
	sum := 0.0

	for _, v := range b.Data {
		fv := float64(v)

		if fv < min {
			min = fv
		}

		if fv > max {
			max = fv
		}

		sum += fv
	}

	return Stats{Min: min, Max: max, Mean: sum / float64(len(b.Data))}
}

/*****************************************************************************************************************/
