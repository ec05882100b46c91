/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

package indexer

/*****************************************************************************************************************/

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stellarforge/platesolve/pkg/catalog"
	"github.com/stellarforge/platesolve/pkg/healpix"
	"github.com/stellarforge/platesolve/pkg/index"
)

/*****************************************************************************************************************/

var (
	NSide           int
	Scheme          string
	OutputDir       string
	CatalogMagLimit float64
	CatalogRowLimit int
	MinArcsecPerPix float64
	MaxArcsecPerPix float64
	CodeTol         float64
)

/*****************************************************************************************************************/

var IndexCommand = &cobra.Command{
	Use:   "index",
	Short: "build a reference quad/star index from a catalog",
	Long:  "build a reference quad/star index from a catalog, keyed by HealPIX pixel and scale band",
	Run: func(cmd *cobra.Command, args []string) {
		var scheme healpix.Scheme

		switch strings.ToUpper(Scheme) {
		case "NESTED":
			scheme = healpix.NESTED
		case "RING":
			scheme = healpix.RING
		default:
			scheme = healpix.NESTED
		}

		params := RunIndexerParams{
			NSide:           NSide,
			Scheme:          scheme,
			OutputDir:       OutputDir,
			CatalogMagLimit: CatalogMagLimit,
			CatalogRowLimit: CatalogRowLimit,
			MinArcsecPerPix: MinArcsecPerPix,
			MaxArcsecPerPix: MaxArcsecPerPix,
			CodeTol:         CodeTol,
		}

		if err := RunIndexer(params); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	},
}

/*****************************************************************************************************************/

func init() {
	IndexCommand.Flags().IntVarP(&NSide, "nside", "n", 2, "the number of sides for the HealPIX grid")
	IndexCommand.MarkFlagRequired("nside")

	IndexCommand.Flags().StringVarP(&Scheme, "scheme", "s", "NESTED", "the HealPIX scheme to use (NESTED or RING)")

	IndexCommand.Flags().StringVarP(&OutputDir, "output", "o", "indexes", "directory to write index quad/star payloads under")

	IndexCommand.Flags().Float64Var(&CatalogMagLimit, "mag-limit", 16, "limiting magnitude for the catalog radial search")
	IndexCommand.Flags().IntVar(&CatalogRowLimit, "row-limit", 50, "maximum catalog rows fetched per pixel")

	IndexCommand.Flags().Float64Var(&MinArcsecPerPix, "min-arcsec-per-pix", 0.1, "minimum pixel scale this index serves")
	IndexCommand.Flags().Float64Var(&MaxArcsecPerPix, "max-arcsec-per-pix", 1000, "maximum pixel scale this index serves")
	IndexCommand.Flags().Float64Var(&CodeTol, "code-tol", 0.01, "code-space tolerance to register this index with")
}

/*****************************************************************************************************************/

// createdFilePaths tracks files written so far this run, so an interrupt can roll them back
// rather than leave a half-built index directory behind.
var createdFilePaths []string

/*****************************************************************************************************************/

type RunIndexerParams struct {
	NSide           int
	Scheme          healpix.Scheme
	OutputDir       string
	CatalogMagLimit float64
	CatalogRowLimit int
	MinArcsecPerPix float64
	MaxArcsecPerPix float64
	CodeTol         float64
}

/*****************************************************************************************************************/

func RunIndexer(params RunIndexerParams) error {
	service := catalog.NewCatalogService(catalog.GAIA, catalog.Params{
		Limit:     params.CatalogRowLimit,
		Threshold: params.CatalogMagLimit,
	})

	healPix := healpix.NewHealPIX(params.NSide, params.Scheme)

	if err := os.MkdirAll(params.OutputDir, 0755); err != nil {
		return err
	}

	dbPath := filepath.Join(params.OutputDir, "index.sqlite3")

	store, err := index.OpenStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-signalChannel
		fmt.Println("\nInterrupt received. Rolling back...")
		rollback(createdFilePaths)
		os.Exit(1)
	}()

	indexer := index.NewIndexer(healPix, service, store, params.OutputDir)

	buildParams := index.BuildParams{
		MinStarsPerPixel: index.DefaultBuildParams.MinStarsPerPixel,
		MaxStarsPerPixel: params.CatalogRowLimit,
		MinArcsecPerPix:  params.MinArcsecPerPix,
		MaxArcsecPerPix:  params.MaxArcsecPerPix,
		CodeTol:          params.CodeTol,
	}

	pixels := healPix.GetNumberOfPixels()

	for pixel := 0; pixel < pixels; pixel++ {
		built, err := indexer.BuildPixel(pixel, buildParams)
		if err != nil {
			fmt.Printf("failed to build pixel %d: %v\n", pixel, err)
			return err
		}

		if !built {
			continue
		}

		directory := filepath.Join(params.OutputDir, fmt.Sprint(params.NSide))
		createdFilePaths = append(createdFilePaths,
			filepath.Join(directory, fmt.Sprintf("%d.quads.json", pixel)),
			filepath.Join(directory, fmt.Sprintf("%d.stars.json", pixel)),
		)

		fmt.Printf("Index built for pixel %d/%d\n", pixel, pixels)
	}

	return nil
}

/*****************************************************************************************************************/

// rollback deletes created files in case of failure or interruption.
func rollback(filepaths []string) {
	for _, file := range filepaths {
		if err := os.Remove(file); err != nil {
			fmt.Printf("Warning: Failed to remove file %s: %v\n", file, err)
		} else {
			fmt.Printf("Rolled back: %s\n", file)
		}
	}
}

/*****************************************************************************************************************/

var InspectDir string

/*****************************************************************************************************************/

// InspectCommand lists every index record registered in an index directory's metadata
// database, without paging in any index's quad/star payload.
var InspectCommand = &cobra.Command{
	Use:   "inspect",
	Short: "list the index records registered in an index directory",
	Long:  "report the scale band, HealPIX cell and code tolerance of every index registered under an index directory",
	Run: func(cmd *cobra.Command, args []string) {
		if err := RunInspect(InspectDir); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	},
}

/*****************************************************************************************************************/

func init() {
	InspectCommand.Flags().StringVarP(&InspectDir, "output", "o", "indexes", "index directory written by `platesolve index`")
}

/*****************************************************************************************************************/

// RunInspect opens the index.sqlite3 metadata database under dir and prints one line per
// registered index record.
func RunInspect(dir string) error {
	dbPath := filepath.Join(dir, "index.sqlite3")

	cat, err := index.Open(dbPath)
	if err != nil {
		return err
	}
	defer cat.Close()

	records, err := cat.All()
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("no index records found")
		return nil
	}

	for _, r := range records {
		fmt.Printf(
			"%-24s nside=%-4d pixel=%-8d scale=[%.3f,%.3f] arcsec/pix code_tol=%.4f center=(%.4f,%.4f) radius=%.3f°\n",
			r.IndexID, r.NSide, r.Pixel, r.MinArcsecPerPix, r.MaxArcsecPerPix, r.CodeTol,
			r.ReferenceStarCRA, r.ReferenceStarDec, r.RadiusDeg,
		)
	}

	return nil
}

/*****************************************************************************************************************/
