/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

package testutil

/*****************************************************************************************************************/

import (
	"testing"
	"time"

	"github.com/stellarforge/platesolve/pkg/astrometry"
	"github.com/stellarforge/platesolve/pkg/catalog"
)

/*****************************************************************************************************************/

func testParams() Params {
	return Params{
		ExposureDuration:         30 * time.Second,
		MaxADU:                  65535,
		BiasOffset:               100,
		Gain:                     1.5,
		ReadNoise:                5.0,
		DarkCurrent:              0.01,
		PixelSizeX:               5e-6,
		PixelSizeY:               5e-6,
		FocalLength:              1.0,
		ApertureDiameter:         0.2,
		SkyBackground:            1e-8,
		Seeing:                   2.5,
		AverageQuantumEfficiency: 0.8,
	}
}

/*****************************************************************************************************************/

func TestNewSimulatedSkyRejectsNonPositiveDimensions(t *testing.T) {
	eq := astrometry.ICRSEquatorialCoordinate{RA: 180, Dec: 0}

	if _, err := NewSimulatedSky(0, 100, eq, testParams()); err == nil {
		t.Errorf("Expected an error for a zero width")
	}
}

/*****************************************************************************************************************/

func TestNewSimulatedSkyRejectsNonPositivePixelSize(t *testing.T) {
	eq := astrometry.ICRSEquatorialCoordinate{RA: 180, Dec: 0}

	p := testParams()
	p.PixelSizeX = 0

	if _, err := NewSimulatedSky(100, 100, eq, p); err == nil {
		t.Errorf("Expected an error for a non-positive pixel size")
	}
}

/*****************************************************************************************************************/

func TestNewSimulatedSkyCentersTheWCSOnTheRequestedCoordinate(t *testing.T) {
	eq := astrometry.ICRSEquatorialCoordinate{RA: 180, Dec: 10}

	sky, err := NewSimulatedSky(256, 256, eq, testParams())
	if err != nil {
		t.Fatalf("NewSimulatedSky: %v", err)
	}

	got := sky.WCS.PixelToEquatorialCoordinate(128, 128)

	if got.RA < 179.9 || got.RA > 180.1 || got.Dec < 9.9 || got.Dec > 10.1 {
		t.Errorf("Expected the frame center to map back close to (180, 10), Got=%+v", got)
	}
}

/*****************************************************************************************************************/

func TestGenerateBackgroundImageFillsEveryPixel(t *testing.T) {
	eq := astrometry.ICRSEquatorialCoordinate{RA: 180, Dec: 0}

	sky, err := NewSimulatedSky(32, 32, eq, testParams())
	if err != nil {
		t.Fatalf("NewSimulatedSky: %v", err)
	}

	bg := sky.GenerateBackgroundImage()

	if len(bg) != 32*32 {
		t.Fatalf("Expected a 32x32 plane, Got=%d samples", len(bg))
	}

	for i, v := range bg {
		if v < 0 {
			t.Fatalf("Expected every background sample to be non-negative, Got bg[%d]=%f", i, v)
		}
	}
}

/*****************************************************************************************************************/

func TestGenerateFieldImagePlacesABrightSourceNearItsProjectedPixel(t *testing.T) {
	eq := astrometry.ICRSEquatorialCoordinate{RA: 180, Dec: 0}

	sky, err := NewSimulatedSky(64, 64, eq, testParams())
	if err != nil {
		t.Fatalf("NewSimulatedSky: %v", err)
	}

	sources := []catalog.Source{
		{
			Designation:               "test-source",
			RA:                        180,
			Dec:                       0,
			PhotometricGMeanFlux:      1e9,
			PhotometricGMeanMagnitude: 6.0,
		},
	}

	field := sky.GenerateFieldImage(sources)

	if len(field) != 64*64 {
		t.Fatalf("Expected a 64x64 plane, Got=%d samples", len(field))
	}

	background := sky.GenerateBackgroundImage()

	var peak float32
	for _, v := range field {
		if v > peak {
			peak = v
		}
	}

	var backgroundMean float64
	for _, v := range background {
		backgroundMean += v
	}
	backgroundMean /= float64(len(background))

	if float64(peak) <= backgroundMean {
		t.Errorf("Expected the rendered source to rise above the mean background, peak=%f mean=%f", peak, backgroundMean)
	}
}

/*****************************************************************************************************************/

func TestGenerateFieldImageSkipsSourcesOutsideTheFrame(t *testing.T) {
	eq := astrometry.ICRSEquatorialCoordinate{RA: 180, Dec: 0}

	sky, err := NewSimulatedSky(32, 32, eq, testParams())
	if err != nil {
		t.Fatalf("NewSimulatedSky: %v", err)
	}

	sources := []catalog.Source{
		{
			Designation:               "far-away-source",
			RA:                        0,
			Dec:                       89,
			PhotometricGMeanFlux:      1e9,
			PhotometricGMeanMagnitude: 6.0,
		},
	}

	if field := sky.GenerateFieldImage(sources); len(field) != 32*32 {
		t.Errorf("Expected GenerateFieldImage to still return a full plane, Got=%d samples", len(field))
	}
}

/*****************************************************************************************************************/
