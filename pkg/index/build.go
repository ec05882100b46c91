/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

// Package index builds and serves the reference quad/star index a solve is matched
// against: one HealPIX-pixel-scoped file per scale band, with a sqlite-backed metadata
// table (Store, in store.go) in front of them so a solve only ever pages in the quad/star
// payload of indexes whose scale band and sky position can plausibly match.
package index

/*****************************************************************************************************************/

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid"

	"github.com/stellarforge/platesolve/pkg/astrometry"
	"github.com/stellarforge/platesolve/pkg/catalog"
	"github.com/stellarforge/platesolve/pkg/healpix"
	"github.com/stellarforge/platesolve/pkg/projection"
	"github.com/stellarforge/platesolve/pkg/quad"
	"github.com/stellarforge/platesolve/pkg/star"
)

/*****************************************************************************************************************/

// BuildParams controls index construction for one HealPIX pixel.
type BuildParams struct {
	MinStarsPerPixel int     // below this many catalog stars found, the pixel is skipped entirely
	MaxStarsPerPixel int     // above this many, only the brightest are kept before quad enumeration
	MinArcsecPerPix  float64 // the scale band this index is built to serve
	MaxArcsecPerPix  float64
	CodeTol          float64 // code-space radius this index should be queried with at solve time
}

/*****************************************************************************************************************/

var DefaultBuildParams = BuildParams{
	MinStarsPerPixel: 5,
	MaxStarsPerPixel: 50,
	MinArcsecPerPix:  0.1,
	MaxArcsecPerPix:  1000,
	CodeTol:          0.01,
}

/*****************************************************************************************************************/

// RadialSearcher is the narrow slice of catalog.CatalogService the indexer needs - just
// enough to let tests exercise Indexer against an in-memory fake instead of a live TAP
// service.
type RadialSearcher interface {
	PerformRadialSearch(eq astrometry.ICRSEquatorialCoordinate, radius float64) ([]catalog.Source, error)
}

/*****************************************************************************************************************/

// Indexer builds reference quads for a HealPIX grid from a catalog, and registers each
// pixel's payload in a Store.
type Indexer struct {
	Catalog   RadialSearcher
	HealPIX   *healpix.HealPIX
	Store     *Store
	OutputDir string
}

/*****************************************************************************************************************/

func NewIndexer(hp *healpix.HealPIX, cat RadialSearcher, store *Store, outputDir string) *Indexer {
	return &Indexer{
		Catalog:   cat,
		HealPIX:   hp,
		Store:     store,
		OutputDir: outputDir,
	}
}

/*****************************************************************************************************************/

// starsForPixel fetches the catalog sources that actually land within pixel (the radial
// search catalog.PerformRadialSearch is handed is only a conservative bounding circle), and
// orders them brightest-first, trimming to maxStars.
func (i *Indexer) starsForPixel(pixel int, maxStars int) ([]star.Star, astrometry.ICRSEquatorialCoordinate, error) {
	center := i.HealPIX.ConvertPixelIndexToEquatorial(pixel)
	radius := i.HealPIX.GetPixelRadialExtent(pixel)

	sources, err := i.Catalog.PerformRadialSearch(center, radius)
	if err != nil {
		return nil, center, err
	}

	var stars []star.Star

	for _, source := range sources {
		eq := astrometry.ICRSEquatorialCoordinate{RA: source.RA, Dec: source.Dec}

		if i.HealPIX.ConvertEquatorialToPixelIndex(eq) != pixel {
			continue
		}

		stars = append(stars, star.Star{
			Designation: source.Designation,
			RA:          source.RA,
			Dec:         source.Dec,
			Flux:        source.PhotometricGMeanFlux,
		})
	}

	sortByFluxDescending(stars)

	if maxStars > 0 && len(stars) > maxStars {
		stars = stars[:maxStars]
	}

	return stars, center, nil
}

/*****************************************************************************************************************/

func indexFileName(pixel int, kind string) string {
	return fmt.Sprintf("%d.%s.json", pixel, kind)
}

/*****************************************************************************************************************/

func sortByFluxDescending(stars []star.Star) {
	for i := 1; i < len(stars); i++ {
		for j := i; j > 0 && stars[j].Flux > stars[j-1].Flux; j-- {
			stars[j], stars[j-1] = stars[j-1], stars[j]
		}
	}
}

/*****************************************************************************************************************/

// quadsForPixel builds the reference quads for one pixel. Unlike the original indexer
// (which handed catalog stars straight into quad construction with X/Y aliased to raw
// RA/Dec), this projects every catalog star onto the local tangent plane centered on the
// pixel first - quad.NewQuad's canonical invariant assumes a locally flat Euclidean frame,
// and RA/Dec only behaves like one extremely close to the celestial equator. Declination
// squeeze away from the equator would otherwise silently distort every quad's code.
func (i *Indexer) quadsForPixel(pixel int, params BuildParams) ([]quad.Quad, []star.Star, error) {
	stars, center, err := i.starsForPixel(pixel, params.MaxStarsPerPixel)
	if err != nil {
		return nil, nil, err
	}

	if len(stars) < params.MinStarsPerPixel {
		return nil, stars, nil
	}

	projected := make([]star.Star, len(stars))

	for j, s := range stars {
		x, y := projection.ConvertEquatorialToGnomic(s.RA, s.Dec, center.RA, center.Dec)

		projected[j] = s
		projected[j].X = x
		projected[j].Y = y
	}

	quads := quad.BuildFromStars(projected, quad.DefaultBuildParams)

	return quads, stars, nil
}

/*****************************************************************************************************************/

// BuildPixel builds, writes and registers the index for a single HealPIX pixel. It returns
// (false, nil) without writing anything when the pixel does not have enough catalog stars
// to form a single quad.
func (i *Indexer) BuildPixel(pixel int, params BuildParams) (bool, error) {
	quads, stars, err := i.quadsForPixel(pixel, params)
	if err != nil {
		return false, err
	}

	if len(quads) == 0 {
		return false, nil
	}

	directory := filepath.Join(i.OutputDir, fmt.Sprint(i.HealPIX.NSide))

	if err := os.MkdirAll(directory, 0755); err != nil {
		return false, err
	}

	quadsPath := filepath.Join(directory, indexFileName(pixel, "quads"))
	starsPath := filepath.Join(directory, indexFileName(pixel, "stars"))

	quadsBytes, err := json.Marshal(quads)
	if err != nil {
		return false, err
	}

	starsBytes, err := json.Marshal(stars)
	if err != nil {
		return false, err
	}

	if err := os.WriteFile(quadsPath, quadsBytes, 0644); err != nil {
		return false, err
	}

	if err := os.WriteFile(starsPath, starsBytes, 0644); err != nil {
		return false, err
	}

	center := i.HealPIX.ConvertPixelIndexToEquatorial(pixel)
	radius := i.HealPIX.GetPixelRadialExtent(pixel)

	record := Record{
		IndexID:          ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String(),
		NSide:            i.HealPIX.NSide,
		Pixel:            pixel,
		MinArcsecPerPix:  params.MinArcsecPerPix,
		MaxArcsecPerPix:  params.MaxArcsecPerPix,
		CodeTol:          params.CodeTol,
		QuadsFilePath:    quadsPath,
		StarsFilePath:    starsPath,
		ReferenceStarCRA: center.RA,
		ReferenceStarDec: center.Dec,
		RadiusDeg:        radius,
	}

	if err := i.Store.Put(record); err != nil {
		return false, err
	}

	return true, nil
}

/*****************************************************************************************************************/

// BuildAll walks every pixel in the HealPIX grid, building and registering the indexes
// that have enough catalog coverage. It returns the number of pixels that produced an
// index.
func (i *Indexer) BuildAll(params BuildParams) (int, error) {
	built := 0

	for pixel := 0; pixel < i.HealPIX.GetNumberOfPixels(); pixel++ {
		ok, err := i.BuildPixel(pixel, params)
		if err != nil {
			return built, fmt.Errorf("index: failed to build pixel %d: %w", pixel, err)
		}

		if ok {
			built++
		}
	}

	return built, nil
}

/*****************************************************************************************************************/
