/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

package index

/*****************************************************************************************************************/

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stellarforge/platesolve/pkg/astrometry"
	"github.com/stellarforge/platesolve/pkg/catalog"
	"github.com/stellarforge/platesolve/pkg/healpix"
)

/*****************************************************************************************************************/

// fakeCatalog hands back a fixed set of sources regardless of where in the sky it is
// asked to search, which is enough to exercise an Indexer's pixel-membership filtering
// and quad-building path without a live TAP service.
type fakeCatalog struct {
	sources []catalog.Source
}

/*****************************************************************************************************************/

func (f fakeCatalog) PerformRadialSearch(eq astrometry.ICRSEquatorialCoordinate, radius float64) ([]catalog.Source, error) {
	return f.sources, nil
}

/*****************************************************************************************************************/

func clusteredSources(centerRA, centerDec float64) []catalog.Source {
	offsets := [][2]float64{
		{0.0, 0.0},
		{0.01, 0.0},
		{0.0, 0.01},
		{0.01, 0.01},
		{-0.01, -0.01},
		{0.005, -0.005},
	}

	sources := make([]catalog.Source, len(offsets))

	for i, o := range offsets {
		sources[i] = catalog.Source{
			UID:                       "star-" + string(rune('A'+i)),
			Designation:               "star-" + string(rune('A'+i)),
			RA:                        centerRA + o[0],
			Dec:                       centerDec + o[1],
			PhotometricGMeanFlux:      1000 - float64(i)*10,
			PhotometricGMeanMagnitude: float64(i),
		}
	}

	return sources
}

/*****************************************************************************************************************/

func TestBuildPixelProducesIndexAndRecord(t *testing.T) {
	dir := t.TempDir()

	hp := healpix.NewHealPIX(4, healpix.RING)

	pixel := hp.GetNumberOfPixels() / 2
	center := hp.ConvertPixelIndexToEquatorial(pixel)

	fake := fakeCatalog{sources: clusteredSources(center.RA, center.Dec)}

	store, err := OpenStore(filepath.Join(dir, "index.sqlite3"))
	if err != nil {
		t.Fatalf("Expected OpenStore to succeed, Got error: %v", err)
	}
	defer store.Close()

	indexer := NewIndexer(hp, fake, store, dir)

	built, err := indexer.BuildPixel(pixel, DefaultBuildParams)
	if err != nil {
		t.Fatalf("Expected BuildPixel to succeed, Got error: %v", err)
	}

	if !built {
		t.Fatalf("Expected BuildPixel to report true for a pixel with catalog coverage")
	}

	quadsPath := filepath.Join(dir, "4", indexFileName(pixel, "quads"))

	if _, err := os.Stat(quadsPath); err != nil {
		t.Errorf("Expected quads file to exist at %s, Got error: %v", quadsPath, err)
	}

	records, err := store.ScaleBand(DefaultBuildParams.MinArcsecPerPix, DefaultBuildParams.MaxArcsecPerPix)
	if err != nil {
		t.Fatalf("Expected ScaleBand to succeed, Got error: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("Expected exactly one registered record, Got=%d", len(records))
	}

	if records[0].Pixel != pixel {
		t.Errorf("Expected record.Pixel=%d, Got=%d", pixel, records[0].Pixel)
	}
}

/*****************************************************************************************************************/

func TestBuildPixelSkipsSparsePixel(t *testing.T) {
	dir := t.TempDir()

	hp := healpix.NewHealPIX(4, healpix.RING)
	pixel := 0

	fake := fakeCatalog{sources: nil}

	store, err := OpenStore(filepath.Join(dir, "index.sqlite3"))
	if err != nil {
		t.Fatalf("Expected OpenStore to succeed, Got error: %v", err)
	}
	defer store.Close()

	indexer := NewIndexer(hp, fake, store, dir)

	built, err := indexer.BuildPixel(pixel, DefaultBuildParams)
	if err != nil {
		t.Fatalf("Expected BuildPixel to succeed, Got error: %v", err)
	}

	if built {
		t.Errorf("Expected BuildPixel to report false for a pixel with no catalog coverage")
	}
}

/*****************************************************************************************************************/

func TestCatalogCandidatesFiltersByScaleBand(t *testing.T) {
	dir := t.TempDir()

	hp := healpix.NewHealPIX(4, healpix.RING)
	pixel := hp.GetNumberOfPixels() / 2
	center := hp.ConvertPixelIndexToEquatorial(pixel)

	fake := fakeCatalog{sources: clusteredSources(center.RA, center.Dec)}

	store, err := OpenStore(filepath.Join(dir, "index.sqlite3"))
	if err != nil {
		t.Fatalf("Expected OpenStore to succeed, Got error: %v", err)
	}
	defer store.Close()

	indexer := NewIndexer(hp, fake, store, dir)

	params := DefaultBuildParams
	params.MinArcsecPerPix = 1.0
	params.MaxArcsecPerPix = 2.0

	if _, err := indexer.BuildPixel(pixel, params); err != nil {
		t.Fatalf("Expected BuildPixel to succeed, Got error: %v", err)
	}

	cat := Catalog{store: store}

	matching, err := cat.Candidates(1.5, 1.5, nil, 0)
	if err != nil {
		t.Fatalf("Expected Candidates to succeed, Got error: %v", err)
	}

	if len(matching) != 1 {
		t.Errorf("Expected one candidate intersecting [1.5,1.5], Got=%d", len(matching))
	}

	nonMatching, err := cat.Candidates(500, 600, nil, 0)
	if err != nil {
		t.Fatalf("Expected Candidates to succeed, Got error: %v", err)
	}

	if len(nonMatching) != 0 {
		t.Errorf("Expected zero candidates for a non-intersecting band, Got=%d", len(nonMatching))
	}
}

/*****************************************************************************************************************/

func TestIndexStarsNearReturnsLocalPatch(t *testing.T) {
	dir := t.TempDir()

	hp := healpix.NewHealPIX(4, healpix.RING)
	pixel := hp.GetNumberOfPixels() / 2
	center := hp.ConvertPixelIndexToEquatorial(pixel)

	fake := fakeCatalog{sources: clusteredSources(center.RA, center.Dec)}

	store, err := OpenStore(filepath.Join(dir, "index.sqlite3"))
	if err != nil {
		t.Fatalf("Expected OpenStore to succeed, Got error: %v", err)
	}
	defer store.Close()

	indexer := NewIndexer(hp, fake, store, dir)

	if _, err := indexer.BuildPixel(pixel, DefaultBuildParams); err != nil {
		t.Fatalf("Expected BuildPixel to succeed, Got error: %v", err)
	}

	cat := Catalog{store: store}

	candidates, err := cat.Candidates(DefaultBuildParams.MinArcsecPerPix, DefaultBuildParams.MaxArcsecPerPix, nil, 0)
	if err != nil {
		t.Fatalf("Expected Candidates to succeed, Got error: %v", err)
	}

	if len(candidates) != 1 {
		t.Fatalf("Expected one candidate, Got=%d", len(candidates))
	}

	nearby, err := candidates[0].StarsNear(center.RA, center.Dec, 1.0)
	if err != nil {
		t.Fatalf("Expected StarsNear to succeed, Got error: %v", err)
	}

	if len(nearby) == 0 {
		t.Errorf("Expected at least one star within 1 degree of the pixel center")
	}
}

/*****************************************************************************************************************/
