/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

package index

/*****************************************************************************************************************/

import (
	"encoding/json"
	"math"
	"os"

	"github.com/stellarforge/platesolve/pkg/astrometry"
	"github.com/stellarforge/platesolve/pkg/quad"
	"github.com/stellarforge/platesolve/pkg/spatial"
	"github.com/stellarforge/platesolve/pkg/star"
)

/*****************************************************************************************************************/

// Index is one registered index file's metadata plus its lazily-loaded quad and star
// payload - a solve only pays the cost of reading and tree-building an index it actually
// queries.
type Index struct {
	Record Record

	quads       []quad.Quad
	stars       []star.Star
	quadMatcher *spatial.QuadMatcher
	starMatcher *spatial.StarMatcher
}

/*****************************************************************************************************************/

func (idx *Index) loadQuads() error {
	if idx.quads != nil {
		return nil
	}

	data, err := os.ReadFile(idx.Record.QuadsFilePath)
	if err != nil {
		return err
	}

	var quads []quad.Quad

	if err := json.Unmarshal(data, &quads); err != nil {
		return err
	}

	idx.quads = quads

	return nil
}

/*****************************************************************************************************************/

func (idx *Index) loadStars() error {
	if idx.stars != nil {
		return nil
	}

	data, err := os.ReadFile(idx.Record.StarsFilePath)
	if err != nil {
		return err
	}

	var stars []star.Star

	if err := json.Unmarshal(data, &stars); err != nil {
		return err
	}

	idx.stars = stars

	return nil
}

/*****************************************************************************************************************/

// Matcher returns this index's code-space quad vantage-point tree, building it on first use.
func (idx *Index) Matcher() (*spatial.QuadMatcher, error) {
	if idx.quadMatcher != nil {
		return idx.quadMatcher, nil
	}

	if err := idx.loadQuads(); err != nil {
		return nil, err
	}

	matcher, err := spatial.NewQuadMatcher(idx.quads)
	if err != nil {
		return nil, err
	}

	idx.quadMatcher = matcher

	return matcher, nil
}

/*****************************************************************************************************************/

// Stars returns this index's full reference star list.
func (idx *Index) Stars() ([]star.Star, error) {
	if err := idx.loadStars(); err != nil {
		return nil, err
	}

	return idx.stars, nil
}

/*****************************************************************************************************************/

// StarsNear returns the reference stars within radiusDeg of the given sky coordinate,
// building this index's star vantage-point tree on first use - the "local patch" the verifier scores
// a trial WCS's extracted stars against, rather than this index's entire reference list.
func (idx *Index) StarsNear(ra, dec, radiusDeg float64) ([]star.Star, error) {
	if err := idx.loadStars(); err != nil {
		return nil, err
	}

	if idx.starMatcher == nil {
		matcher, err := spatial.NewStarMatcher(idx.stars)
		if err != nil {
			return nil, err
		}

		idx.starMatcher = matcher
	}

	return idx.starMatcher.WithinRadius(ra, dec, radiusDeg), nil
}

/*****************************************************************************************************************/

// Catalog is the solve-time view over a Store: it resolves which registered indexes are
// worth querying for a given trial scale band and (optionally) position hint, without
// loading any index's quad/star payload until Matcher/Stars/StarsNear is actually called
// on one.
type Catalog struct {
	store *Store
}

/*****************************************************************************************************************/

// Open opens the sqlite metadata database at dbPath as a solve-time Catalog.
func Open(dbPath string) (*Catalog, error) {
	store, err := OpenStore(dbPath)
	if err != nil {
		return nil, err
	}

	return &Catalog{store: store}, nil
}

/*****************************************************************************************************************/

// Close releases the underlying metadata database connection.
func (c *Catalog) Close() error {
	return c.store.Close()
}

/*****************************************************************************************************************/

// Candidates returns every registered index whose scale band intersects
// [minArcsecPerPix, maxArcsecPerPix], additionally filtered by a position hint when one is
// given: an index is skipped if its HealPIX cell center lies beyond searchRadiusDeg plus
// the cell's own radial extent from the hint, mirroring the scale-band gate with a
// position gate before any quad payload is paged in.
func (c *Catalog) Candidates(
	minArcsecPerPix, maxArcsecPerPix float64,
	positionHint *astrometry.ICRSEquatorialCoordinate,
	searchRadiusDeg float64,
) ([]*Index, error) {
	records, err := c.store.ScaleBand(minArcsecPerPix, maxArcsecPerPix)
	if err != nil {
		return nil, err
	}

	indexes := make([]*Index, 0, len(records))

	for _, record := range records {
		if positionHint != nil {
			separation := angularSeparationDeg(
				positionHint.RA, positionHint.Dec,
				record.ReferenceStarCRA, record.ReferenceStarDec,
			)

			if separation > searchRadiusDeg+record.RadiusDeg {
				continue
			}
		}

		indexes = append(indexes, &Index{Record: record})
	}

	return indexes, nil
}

/*****************************************************************************************************************/

// All returns every index record this catalog's store holds, regardless of scale band or
// position hint - for offline inspection of an index directory rather than a solve.
func (c *Catalog) All() ([]Record, error) {
	return c.store.All()
}

/*****************************************************************************************************************/

// angularSeparationDeg is the haversine great-circle separation between two sky
// coordinates, in degrees - accurate at the small separations a position-hint gate deals
// with, unlike a flat Euclidean RA/Dec distance which breaks down near the poles.
func angularSeparationDeg(ra1, dec1, ra2, dec2 float64) float64 {
	r1, d1 := ra1*math.Pi/180, dec1*math.Pi/180
	r2, d2 := ra2*math.Pi/180, dec2*math.Pi/180

	dr := r2 - r1
	dd := d2 - d1

	a := math.Sin(dd/2)*math.Sin(dd/2) + math.Cos(d1)*math.Cos(d2)*math.Sin(dr/2)*math.Sin(dr/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return c * 180 / math.Pi
}

/*****************************************************************************************************************/
