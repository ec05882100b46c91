/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

package healpix

/*****************************************************************************************************************/

import (
	"testing"

	"github.com/stellarforge/platesolve/pkg/astrometry"
)

/*****************************************************************************************************************/

func TestNewHealPIXPixelCount(t *testing.T) {
	h := NewHealPIX(4, RING)

	got := h.GetNumberOfPixels()
	want := 12 * 4 * 4

	if got != want {
		t.Errorf("Expected GetNumberOfPixels()=%d, Got=%d", want, got)
	}
}

/*****************************************************************************************************************/

func TestNewHealPIXClampsNSide(t *testing.T) {
	h := NewHealPIX(0, NESTED)

	if h.NSide != 1 {
		t.Errorf("Expected NSide to be clamped to 1, Got=%d", h.NSide)
	}
}

/*****************************************************************************************************************/

func TestConvertEquatorialToPixelIndexInRange(t *testing.T) {
	h := NewHealPIX(8, RING)

	cases := []astrometry.ICRSEquatorialCoordinate{
		{RA: 0, Dec: 0},
		{RA: 359.9, Dec: 89.9},
		{RA: 180, Dec: -89.9},
		{RA: -10, Dec: 45},
	}

	for _, eq := range cases {
		idx := h.ConvertEquatorialToPixelIndex(eq)

		if idx < 0 || idx >= h.GetNumberOfPixels() {
			t.Errorf("Expected pixel index in [0, %d) for RA=%.1f Dec=%.1f, Got=%d", h.GetNumberOfPixels(), eq.RA, eq.Dec, idx)
		}
	}
}

/*****************************************************************************************************************/

func TestConvertPixelIndexToEquatorialRoundTrip(t *testing.T) {
	h := NewHealPIX(16, NESTED)

	for pixel := 0; pixel < h.GetNumberOfPixels(); pixel += 37 {
		eq := h.ConvertPixelIndexToEquatorial(pixel)
		back := h.ConvertEquatorialToPixelIndex(eq)

		if back != pixel {
			t.Errorf("Expected round trip for pixel=%d, Got=%d (via RA=%.3f Dec=%.3f)", pixel, back, eq.RA, eq.Dec)
		}
	}
}

/*****************************************************************************************************************/

func TestGetPixelRadialExtentPositive(t *testing.T) {
	h := NewHealPIX(32, RING)

	for pixel := 0; pixel < h.GetNumberOfPixels(); pixel += 101 {
		radius := h.GetPixelRadialExtent(pixel)

		if radius <= 0 {
			t.Errorf("Expected positive radial extent for pixel=%d, Got=%f", pixel, radius)
		}
	}
}

/*****************************************************************************************************************/

func TestGetPixelRadialExtentCoversNeighbours(t *testing.T) {
	h := NewHealPIX(12, RING)

	center := h.GetNumberOfPixels() / 2
	eq := h.ConvertPixelIndexToEquatorial(center)
	radius := h.GetPixelRadialExtent(center)

	neighbourDec := eq.Dec + (180.0 / float64(h.rows))
	neighbour := astrometry.ICRSEquatorialCoordinate{RA: eq.RA, Dec: neighbourDec}

	dRA := neighbour.RA - eq.RA
	dDec := neighbour.Dec - eq.Dec
	separation := (dRA*dRA + dDec*dDec)

	if separation > radius*radius*4 {
		t.Errorf("Expected radial extent to plausibly cover an adjacent row for pixel=%d, extent=%f", center, radius)
	}
}

/*****************************************************************************************************************/
