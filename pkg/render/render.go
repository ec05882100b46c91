/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

// Package render draws a diagnostic PNG over a solved (or merely extracted) frame: the
// background-subtracted image itself, every detected star as a circle, and - once a solve
// has succeeded - the verifier's matched field/index star pairs plus a short WCS summary.
// It is not in the solve hot path; nothing under pkg/solver or pkg/engine imports it.
package render

/*****************************************************************************************************************/

import (
	"fmt"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/fogleman/gg"

	"github.com/stellarforge/platesolve/pkg/pixel"
	"github.com/stellarforge/platesolve/pkg/solver"
	"github.com/stellarforge/platesolve/pkg/star"
	"github.com/stellarforge/platesolve/pkg/verify"
)

/*****************************************************************************************************************/

// Options controls the cosmetics of an annotated render. The zero value is usable -
// DefaultOptions fills in circle radii and colors a caller does not otherwise set.
type Options struct {
	StarRadius  float64
	MatchRadius float64

	StarColor  color.Color
	MatchColor color.Color
	TextColor  color.Color
}

/*****************************************************************************************************************/

// DefaultOptions mirrors the teacher's own annotated-render palette.
var DefaultOptions = Options{
	StarRadius:  16.0,
	MatchRadius: 20.0,
	StarColor:   color.RGBA{R: 241, G: 245, B: 249, A: 255},
	MatchColor:  color.RGBA{R: 129, G: 140, B: 248, A: 255},
	TextColor:   color.RGBA{R: 255, G: 255, B: 255, A: 255},
}

/*****************************************************************************************************************/

func withDefaults(opts Options) Options {
	if opts.StarRadius <= 0 {
		opts.StarRadius = DefaultOptions.StarRadius
	}

	if opts.MatchRadius <= 0 {
		opts.MatchRadius = DefaultOptions.MatchRadius
	}

	if opts.StarColor == nil {
		opts.StarColor = DefaultOptions.StarColor
	}

	if opts.MatchColor == nil {
		opts.MatchColor = DefaultOptions.MatchColor
	}

	if opts.TextColor == nil {
		opts.TextColor = DefaultOptions.TextColor
	}

	return opts
}

/*****************************************************************************************************************/

// Annotate draws buf as a normalized grayscale frame, overlays every entry of stars as a
// circle, and - when solution is non-nil - the verifier's matched star pairs plus a short
// WCS summary in the corner. solution may be nil, for a plain extraction diagnostic.
func Annotate(buf *pixel.Buffer, stars []star.Star, solution *solver.Solution, opts Options) *gg.Context {
	opts = withDefaults(opts)

	dc := gg.NewContext(buf.Width, buf.Height)

	drawGrayscale(dc, buf)
	drawStars(dc, stars, opts)

	if solution != nil {
		drawMatches(dc, solution.Matches, opts)
		drawSummary(dc, solution, opts)
	}

	return dc
}

/*****************************************************************************************************************/

// SaveAnnotatedPNG renders an Annotate overlay and writes it to path as a PNG.
func SaveAnnotatedPNG(path string, buf *pixel.Buffer, stars []star.Star, solution *solver.Solution, opts Options) error {
	dc := Annotate(buf, stars, solution, opts)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("render: creating %s: %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, dc.Image()); err != nil {
		return fmt.Errorf("render: encoding %s: %w", path, err)
	}

	return nil
}

/*****************************************************************************************************************/

// drawGrayscale paints buf's samples onto dc, linearly stretched between its own min and
// max so a 16-bit-range frame is visible without a separate stretch pass.
func drawGrayscale(dc *gg.Context, buf *pixel.Buffer) {
	stats := buf.Summarize()

	span := stats.Max - stats.Min
	if span == 0 {
		span = 1
	}

	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			v := (float64(buf.At(x, y)) - stats.Min) / span

			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = 0
			}

			if v < 0 {
				v = 0
			}

			if v > 1 {
				v = 1
			}

			dc.SetRGB(v, v, v)
			dc.SetPixel(x, y)
		}
	}
}

/*****************************************************************************************************************/

func drawStars(dc *gg.Context, stars []star.Star, opts Options) {
	dc.SetColor(opts.StarColor)
	dc.SetLineWidth(2)

	for _, s := range stars {
		dc.DrawCircle(s.X, s.Y, opts.StarRadius)
		dc.Stroke()
	}
}

/*****************************************************************************************************************/

// drawMatches draws each verified field/index star pair as two linked circles, labelled
// with the index star's catalog designation.
func drawMatches(dc *gg.Context, matches []verify.Match, opts Options) {
	dc.SetColor(opts.MatchColor)
	dc.SetLineWidth(2)

	for _, m := range matches {
		dc.DrawCircle(m.Field.X, m.Field.Y, opts.MatchRadius)
		dc.Stroke()

		dc.DrawLine(m.Field.X, m.Field.Y, m.Field.X, m.Field.Y-opts.MatchRadius-10)
		dc.Stroke()

		dc.SetColor(opts.TextColor)
		dc.DrawString(m.Index.Designation, m.Field.X-opts.MatchRadius, m.Field.Y-opts.MatchRadius-14)
		dc.SetColor(opts.MatchColor)
	}
}

/*****************************************************************************************************************/

// drawSummary writes the solved center, pixel scale and orientation in the top-left
// corner, the way an observer would annotate a plate for their own records.
func drawSummary(dc *gg.Context, solution *solver.Solution, opts Options) {
	dc.SetColor(opts.TextColor)

	lines := []string{
		fmt.Sprintf("RA  %s", solution.CenterRAString),
		fmt.Sprintf("Dec %s", solution.CenterDecString),
		fmt.Sprintf("scale  %.3f arcsec/pix", solution.PixelScaleArcsecPerPix),
		fmt.Sprintf("field   %.1f' x %.1f'", solution.FieldWidthArcmin, solution.FieldHeightArcmin),
		fmt.Sprintf("log-odds %.1f", solution.LogOdds),
	}

	for i, line := range lines {
		dc.DrawString(line, 12, 16+float64(i)*16)
	}
}

/*****************************************************************************************************************/
