/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

package index

/*****************************************************************************************************************/

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

/*****************************************************************************************************************/

// Record is one index file's metadata row: the scale band it was built for, where its
// quads and reference stars live on disk, and the code-space tolerance it should be
// queried with. This is the on-disk catalog the teacher's indexer wrote as loose JSON
// files under indexes/<nside>/<pixel>.json; here it is the row a solve looks up before
// ever touching the (much larger) quad/star payload itself.
type Record struct {
	gorm.Model
	IndexID          string  `gorm:"uniqueIndex"`
	NSide            int     `gorm:"index"`
	Pixel            int     `gorm:"index"`
	MinArcsecPerPix  float64 // smallest pixel scale this index's quads were built for
	MaxArcsecPerPix  float64 // largest pixel scale this index's quads were built for
	CodeTol          float64 // code-space radius to query this index's quad tree with
	QuadsFilePath    string
	StarsFilePath    string
	ReferenceStarCRA float64 // the pixel's HealPIX center RA, for position-hint gating
	ReferenceStarDec float64
	RadiusDeg        float64 // the pixel's radial extent, for position-hint gating
}

/*****************************************************************************************************************/

// Store wraps the sqlite-backed index metadata database. Splitting metadata (this, a small
// row-per-index table well suited to a relational store) from payload (the quad/star JSON
// files themselves, loaded lazily and only for indexes a solve actually needs) keeps a
// catalog of thousands of indexes cheap to query without paging every quad into memory.
type Store struct {
	db *gorm.DB
}

/*****************************************************************************************************************/

// OpenStore opens (creating if necessary) the sqlite database at path and ensures the
// Record schema is migrated.
func OpenStore(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

/*****************************************************************************************************************/

// Put inserts or updates an index's metadata row, keyed on IndexID.
func (s *Store) Put(record Record) error {
	return s.db.Where(Record{IndexID: record.IndexID}).Assign(record).FirstOrCreate(&Record{}).Error
}

/*****************************************************************************************************************/

// ScaleBand returns every index record whose [MinArcsecPerPix, MaxArcsecPerPix] band
// intersects the given trial band, per spec - indexes whose scale band does not intersect
// the current trial band are skipped before any quad payload is ever read.
func (s *Store) ScaleBand(minArcsecPerPix, maxArcsecPerPix float64) ([]Record, error) {
	var records []Record

	err := s.db.
		Where("min_arcsec_per_pix <= ? AND max_arcsec_per_pix >= ?", maxArcsecPerPix, minArcsecPerPix).
		Find(&records).Error

	return records, err
}

/*****************************************************************************************************************/

// All returns every registered index record, regardless of scale band or position - used by
// offline tooling that inspects an index directory rather than serving a solve.
func (s *Store) All() ([]Record, error) {
	var records []Record

	err := s.db.Find(&records).Error

	return records, err
}

/*****************************************************************************************************************/

// Close releases the underlying sqlite connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

/*****************************************************************************************************************/
