/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

// Package testutil generates deterministic synthetic star fields - Moffat-profile point
// sources over a Poisson/Gaussian background - for exercising pkg/background, pkg/extract
// and pkg/solver without a real FITS exposure. It is test support, not production surface,
// and lives outside pkg/ accordingly.
package testutil

/*****************************************************************************************************************/

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/stellarforge/platesolve/pkg/astrometry"
	"github.com/stellarforge/platesolve/pkg/catalog"
	stats "github.com/stellarforge/platesolve/pkg/statistics"
	"github.com/stellarforge/platesolve/pkg/transform"
	"github.com/stellarforge/platesolve/pkg/wcs"
)

/*****************************************************************************************************************/

// Params describes the simulated optical train and detector a SimulatedSkyImage renders
// sources through.
type Params struct {
	ExposureDuration         time.Duration // exposure duration
	MaxADU                   float64       // maximum ADU value
	BiasOffset               float64       // bias offset in units of ADU
	Gain                     float64       // gain in units of e-/ADU
	ReadNoise                float64       // read noise in units of e-/pixel
	DarkCurrent              float64       // dark current in units of e-/s/pixel
	PixelSizeX               float64       // pixel size on the x axis in units of meters
	PixelSizeY               float64       // pixel size on the y axis in units of meters
	FocalLength              float64       // focal length of the telescope in units of m
	ApertureDiameter         float64       // aperture diameter of the telescope in units of m
	SkyBackground            float64       // the sky background in units of e-/m2/arcsec2/s
	Seeing                   float64       // the perceived seeing in units of arcsec
	AverageQuantumEfficiency float64       // the average quantum efficiency of the CCD
}

/*****************************************************************************************************************/

// SimulatedSkyImage is a synthetic frame centered on a known sky coordinate with a known
// WCS, ready to have a background and a set of catalog sources rendered onto it.
type SimulatedSkyImage struct {
	RA, Dec                  float64
	WCS                      wcs.WCS
	Width, Height            int
	ExposureDuration         float64
	MaxADU                   float64
	BiasOffset               float64
	Gain                     float64
	ReadNoise                float64
	DarkCurrent              float64
	PixelScaleX              float64 // degrees/pixel
	PixelScaleY              float64 // degrees/pixel
	ApertureDiameter         float64
	SkyBackground            float64
	Seeing                   float64
	AverageQuantumEfficiency float64
}

/*****************************************************************************************************************/

// NewSimulatedSky builds a width x height frame centered on eq, with a tangent-plane WCS
// derived from the optical train in params.
func NewSimulatedSky(width, height int, eq astrometry.ICRSEquatorialCoordinate, params Params) (*SimulatedSkyImage, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("testutil: image dimensions must be positive")
	}

	if params.PixelSizeX <= 0 || params.PixelSizeY <= 0 {
		return nil, fmt.Errorf("testutil: pixel sizes must be positive")
	}

	if params.Seeing <= 0 {
		return nil, fmt.Errorf("testutil: seeing (FWHM) must be positive")
	}

	if params.ExposureDuration <= 0 {
		return nil, fmt.Errorf("testutil: exposure time must be positive")
	}

	pixelScaleX := (params.PixelSizeX / params.FocalLength) * (180 / math.Pi)
	pixelScaleY := (params.PixelSizeY / params.FocalLength) * (180 / math.Pi)

	affine := transform.Affine2DParameters{
		A: -pixelScaleX,
		B: 0,
		D: 0,
		E: pixelScaleY,
	}

	frameWCS := wcs.FromAffine(float64(width)/2, float64(height)/2, eq.RA, eq.Dec, affine, transform.SIP2DParameters{})

	return &SimulatedSkyImage{
		RA:                       eq.RA,
		Dec:                      eq.Dec,
		WCS:                      frameWCS,
		Width:                    width,
		Height:                   height,
		ExposureDuration:         params.ExposureDuration.Seconds(),
		MaxADU:                   params.MaxADU,
		BiasOffset:               params.BiasOffset,
		Gain:                     params.Gain,
		ReadNoise:                params.ReadNoise,
		DarkCurrent:              params.DarkCurrent,
		PixelScaleX:              pixelScaleX,
		PixelScaleY:              pixelScaleY,
		ApertureDiameter:         params.ApertureDiameter,
		SkyBackground:            params.SkyBackground,
		Seeing:                   params.Seeing,
		AverageQuantumEfficiency: params.AverageQuantumEfficiency,
	}, nil
}

/*****************************************************************************************************************/

// generateMoffatProfile renders a flattened Moffat PSF footprint over [xMin,xMax] x
// [yMin,yMax] centered at (x0, y0), normalized so it integrates to flux.
func generateMoffatProfile(
	x0, y0 float64,
	xMin, xMax, yMin, yMax int, flux float64,
	beta float64, precisionX, precisionY float64,
) ([]float64, int, int) {
	width := xMax - xMin + 1
	height := yMax - yMin + 1
	totalPixels := width * height
	profile := make([]float64, totalPixels)

	totalIntensity := 0.0

	for idx := 0; idx < totalPixels; idx++ {
		yIdx := idx / width
		xIdx := idx % width

		y := yMin + yIdx
		x := xMin + xIdx

		dy := float64(y) - y0 + 0.5
		dx := float64(x) - x0 + 0.5

		r := (dx*dx)*precisionX + (dy*dy)*precisionY

		intensity := math.Exp(-beta * math.Log(1.0+r))

		profile[idx] = intensity
		totalIntensity += intensity
	}

	scaleFactor := flux / totalIntensity
	for i := 0; i < totalPixels; i++ {
		profile[i] *= scaleFactor
	}

	return profile, width, height
}

/*****************************************************************************************************************/

func (s *SimulatedSkyImage) normalizeFieldImage(data []float64) []float32 {
	out := make([]float32, len(data))

	for i, v := range data {
		value := v/s.Gain + s.BiasOffset

		if value < 0 {
			value = 0
		}

		if value > s.MaxADU {
			value = s.MaxADU
		}

		out[i] = float32(value)
	}

	return out
}

/*****************************************************************************************************************/

// GenerateBackgroundImage returns a width*height plane built from one draw of dark current,
// read noise and sky background counts, in ADU-equivalent e- before gain/bias is applied,
// with every pixel scaled by its own uniform random factor in [0, 1).
func (s *SimulatedSkyImage) GenerateBackgroundImage() []float64 {
	apertureArea := math.Pi * math.Pow(s.ApertureDiameter/2.0, 2)

	skyBackgroundPerPixel := s.SkyBackground * apertureArea * s.PixelScaleX * s.PixelScaleY * 3600.0 * 3600.0

	image := make([]float64, s.Width*s.Height)

	background := stats.PoissonDistributedRandomNumber(s.DarkCurrent*s.ExposureDuration) +
		stats.NormalDistributedRandomNumber(0.0, s.ReadNoise) +
		stats.PoissonDistributedRandomNumber(skyBackgroundPerPixel*s.ExposureDuration)

	for i := range image {
		image[i] += background * rand.Float64()
	}

	return image
}

/*****************************************************************************************************************/

// GenerateFieldImage renders sources onto a fresh background image as Moffat-profile point
// sources, returning the full frame as a flat row-major float32 plane ready to hand to
// pixel.NewBuffer.
func (s *SimulatedSkyImage) GenerateFieldImage(sources []catalog.Source) []float32 {
	image := s.GenerateBackgroundImage()

	apertureArea := math.Pi * math.Pow(s.ApertureDiameter/2.0, 2)

	fluxDensity := s.AverageQuantumEfficiency * s.ExposureDuration * apertureArea

	fwhmPixelsX := s.Seeing / (s.PixelScaleX * 3600.0)
	fwhmPixelsY := s.Seeing / (s.PixelScaleY * 3600.0)

	precisionX := math.Pow(fwhmPixelsX, -2)
	precisionY := math.Pow(fwhmPixelsY, -2)

	beta := 3.0

	for _, source := range sources {
		e := source.PhotometricGMeanFlux * fluxDensity * math.Pow(10, -0.4*source.PhotometricGMeanMagnitude)

		scale := float64((s.Width+s.Height)/2) * math.Pow(10, -0.2*source.PhotometricGMeanMagnitude)

		renderRadiusX := fwhmPixelsX * scale
		renderRadiusY := fwhmPixelsY * scale

		x0, y0, err := s.WCS.EquatorialCoordinateToPixel(source.RA, source.Dec)
		if err != nil {
			continue
		}

		if x0 < 0 || x0 >= float64(s.Width) || y0 < 0 || y0 >= float64(s.Height) {
			continue
		}

		xMin := int(math.Max(0, x0-renderRadiusX))
		xMax := int(math.Min(float64(s.Width-1), x0+renderRadiusX))
		yMin := int(math.Max(0, y0-renderRadiusY))
		yMax := int(math.Min(float64(s.Height-1), y0+renderRadiusY))

		profile, width, height := generateMoffatProfile(x0, y0, xMin, xMax, yMin, yMax, e, beta, precisionX, precisionY)

		for idx := 0; idx < width*height; idx++ {
			yIdx := idx / width
			xIdx := idx % width

			imageY := yIdx + yMin
			imageX := xIdx + xMin

			if imageY >= 0 && imageY < s.Height && imageX >= 0 && imageX < s.Width {
				image[imageY*s.Width+imageX] += profile[idx]
			}
		}
	}

	return s.normalizeFieldImage(image)
}

/*****************************************************************************************************************/
