/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

package solver

/*****************************************************************************************************************/

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stellarforge/platesolve/internal/loader"
	"github.com/stellarforge/platesolve/pkg/engine"
	"github.com/stellarforge/platesolve/pkg/engineerr"
	"github.com/stellarforge/platesolve/pkg/fov"
	"github.com/stellarforge/platesolve/pkg/obslog"
	"github.com/stellarforge/platesolve/pkg/params"
	"github.com/stellarforge/platesolve/pkg/render"
)

/*****************************************************************************************************************/

var (
	InputFileLocation string
	IndexPaths        []string
	RA                float64
	Dec               float64
	ScaleLo           float64
	ScaleHi           float64
	ScaleUnit         string
	SearchRadiusDeg   float64
	TimeLimitSec      float64
	InParallel        bool
	OutputPath        string
	RenderPath        string
	Verbose           bool
)

/*****************************************************************************************************************/

// ExtractCommand runs only the detection stage - background estimation, partitioned
// extraction and filtering - and reports the resulting star list, with no index lookup.
var ExtractCommand = &cobra.Command{
	Use:   "extract",
	Short: "extract stars from an image without attempting a plate solve",
	Long:  "detect, filter and report the star list for an image, without matching it against any reference index",
	Run: func(cmd *cobra.Command, args []string) {
		if err := RunExtract(RunExtractParams{
			InputFile:  InputFileLocation,
			OutputPath: OutputPath,
			RenderPath: RenderPath,
			Verbose:    Verbose,
		}); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

/*****************************************************************************************************************/

// SolveCommand performs a full astrometric plate solve: extract, then match against every
// registered index path, stopping at the first Solved result.
var SolveCommand = &cobra.Command{
	Use:   "solve",
	Short: "perform an astrometric plate solve on an image",
	Long:  "detect stars in an image and match them against one or more pre-built quad indexes to recover a WCS",
	Run: func(cmd *cobra.Command, args []string) {
		if err := RunSolve(RunSolveParams{
			InputFile:       InputFileLocation,
			IndexPaths:      IndexPaths,
			RA:              RA,
			Dec:             Dec,
			ScaleLo:         ScaleLo,
			ScaleHi:         ScaleHi,
			ScaleUnit:       ScaleUnit,
			SearchRadiusDeg: SearchRadiusDeg,
			TimeLimitSec:    TimeLimitSec,
			InParallel:      InParallel,
			OutputPath:      OutputPath,
			RenderPath:      RenderPath,
			Verbose:         Verbose,
		}); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

/*****************************************************************************************************************/

func init() {
	ExtractCommand.Flags().StringVarP(&InputFileLocation, "input", "i", "", "path to a binary PGM image")
	ExtractCommand.MarkFlagRequired("input")
	ExtractCommand.Flags().StringVarP(&OutputPath, "output", "o", "", "path to write the extracted star list as JSON")
	ExtractCommand.Flags().StringVar(&RenderPath, "render", "", "path to write a PNG diagnostic overlay")
	ExtractCommand.Flags().BoolVarP(&Verbose, "verbose", "v", false, "emit structured log output to stderr")

	SolveCommand.Flags().StringVarP(&InputFileLocation, "input", "i", "", "path to a binary PGM image")
	SolveCommand.MarkFlagRequired("input")
	SolveCommand.Flags().StringArrayVar(&IndexPaths, "index-dir", nil, "directory holding an index.sqlite3 to solve against (repeatable)")
	SolveCommand.MarkFlagRequired("index-dir")
	SolveCommand.Flags().Float64Var(&RA, "ra", 0, "position hint: approximate field center right ascension, in degrees")
	SolveCommand.Flags().Float64Var(&Dec, "dec", 0, "position hint: approximate field center declination, in degrees")
	SolveCommand.Flags().Float64Var(&ScaleLo, "scale-lo", 0, "lower bound of the pixel scale hint")
	SolveCommand.Flags().Float64Var(&ScaleHi, "scale-hi", 0, "upper bound of the pixel scale hint")
	SolveCommand.Flags().StringVar(&ScaleUnit, "scale-unit", "arcsec_per_pix", "unit of --scale-lo/--scale-hi (arcsec_per_pix or deg_per_pix)")
	SolveCommand.Flags().Float64Var(&SearchRadiusDeg, "search-radius-deg", 0, "override the position hint's search radius, in degrees")
	SolveCommand.Flags().Float64Var(&TimeLimitSec, "time-limit-sec", 0, "abort the solve after this many seconds (0 disables the limit)")
	SolveCommand.Flags().BoolVar(&InParallel, "in-parallel", false, "fan candidate indexes out across goroutines instead of trying them in sequence")
	SolveCommand.Flags().StringVarP(&OutputPath, "output", "o", "", "path to write the solution as JSON")
	SolveCommand.Flags().StringVar(&RenderPath, "render", "", "path to write a PNG diagnostic overlay annotated with the solution")
	SolveCommand.Flags().BoolVarP(&Verbose, "verbose", "v", false, "emit structured log output to stderr")
}

/*****************************************************************************************************************/

// RunExtractParams bundles an extract invocation's CLI flags.
type RunExtractParams struct {
	InputFile  string
	OutputPath string
	RenderPath string
	Verbose    bool
}

/*****************************************************************************************************************/

// RunExtract loads InputFile, runs the detection pipeline over the whole frame, and
// reports the resulting star list - to stdout by default, or to OutputPath/RenderPath
// when given.
func RunExtract(p RunExtractParams) error {
	buf, err := loader.LoadPGM(p.InputFile)
	if err != nil {
		return err
	}

	eng, err := engine.NewEngine(buf, engine.WithLogger(loggerFor(p.Verbose)))
	if err != nil {
		return err
	}
	defer eng.Close()

	stars, err := eng.Extract(context.Background())
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	fmt.Printf("Detected %d stars\n", len(stars))

	if p.OutputPath != "" {
		if err := writeJSON(p.OutputPath, stars); err != nil {
			return err
		}
	}

	if p.RenderPath != "" {
		if err := render.SaveAnnotatedPNG(p.RenderPath, buf, stars, nil, render.DefaultOptions); err != nil {
			return err
		}
	}

	return nil
}

/*****************************************************************************************************************/

// RunSolveParams bundles a solve invocation's CLI flags.
type RunSolveParams struct {
	InputFile  string
	IndexPaths []string

	RA, Dec          float64
	ScaleLo, ScaleHi float64
	ScaleUnit        string
	SearchRadiusDeg  float64

	TimeLimitSec float64
	InParallel   bool

	OutputPath string
	RenderPath string
	Verbose    bool
}

/*****************************************************************************************************************/

// RunSolve loads InputFile, registers IndexPaths, and walks engine.Solve to completion,
// reporting the recovered WCS or the terminal error - mirroring the teacher's own
// RunSolver's "load, configure, solve, report" shape, now delegated entirely to
// pkg/engine.Engine rather than assembling the extraction/matching pipeline inline.
func RunSolve(p RunSolveParams) error {
	buf, err := loader.LoadPGM(p.InputFile)
	if err != nil {
		return err
	}

	parameters := params.Default()
	parameters.Solver.InParallel = p.InParallel

	if p.TimeLimitSec > 0 {
		parameters.Solver.TimeLimitSec = p.TimeLimitSec
	}

	switch {
	case p.SearchRadiusDeg > 0:
		parameters.Solver.SearchRadiusDeg = p.SearchRadiusDeg
	case p.ScaleLo > 0 && p.ScaleHi > 0:
		// No explicit search radius was given - derive a sensible default cone from the
		// frame's own dimensions and the pixel scale hint, the same way the teacher
		// derived a catalog search radius from a FITS frame's NAXIS1/NAXIS2.
		degPerPix := scaleHintToDegPerPix(p.ScaleLo, p.ScaleHi, p.ScaleUnit)
		parameters.Solver.SearchRadiusDeg = fov.GetRadialExtent(float64(buf.Width), float64(buf.Height), fov.PixelScale{X: degPerPix, Y: degPerPix})
	}

	eng, err := engine.NewEngine(buf, engine.WithLogger(loggerFor(p.Verbose)), engine.WithParameters(parameters))
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.SetIndexPaths(indexDBPaths(p.IndexPaths)); err != nil {
		return err
	}

	if p.ScaleLo > 0 && p.ScaleHi > 0 {
		eng.SetScaleHint(p.ScaleLo, p.ScaleHi, p.ScaleUnit)
	}

	if p.RA != 0 || p.Dec != 0 {
		eng.SetPositionHint(p.RA, p.Dec)
	}

	ctx := context.Background()

	var cancel context.CancelFunc
	if p.TimeLimitSec > 0 {
		ctx, cancel = context.WithTimeout(ctx, time.Duration(p.TimeLimitSec*float64(time.Second)))
		defer cancel()
	}

	startTime := time.Now()

	solution, err := eng.Solve(ctx)
	if err != nil {
		if err == engineerr.ErrNoSolution {
			fmt.Println("no solution found")
			return nil
		}

		return fmt.Errorf("solve: %w", err)
	}

	elapsed := time.Since(startTime)

	fmt.Printf("Solved in %s\n", elapsed)
	fmt.Printf("Center: %s %s\n", solution.CenterRAString, solution.CenterDecString)
	fmt.Printf("Pixel scale: %.3f arcsec/pix, orientation %.2f deg\n", solution.PixelScaleArcsecPerPix, solution.OrientationDeg)
	fmt.Printf("Field size: %.1f' x %.1f'\n", solution.FieldWidthArcmin, solution.FieldHeightArcmin)
	fmt.Printf("Log-odds: %.2f, matches: %d\n", solution.LogOdds, len(solution.Matches))

	if p.OutputPath != "" {
		if err := writeJSON(p.OutputPath, solution); err != nil {
			return err
		}
	}

	if p.RenderPath != "" {
		stars, extractErr := eng.Extract(context.Background())
		if extractErr != nil {
			return extractErr
		}

		if err := render.SaveAnnotatedPNG(p.RenderPath, buf, stars, solution, render.DefaultOptions); err != nil {
			return err
		}
	}

	return nil
}

/*****************************************************************************************************************/

// indexDBPaths resolves a list of index directories (as produced by `platesolve index`,
// one index.sqlite3 each) down to the concrete database file SetIndexPaths expects.
func indexDBPaths(dirs []string) []string {
	paths := make([]string, len(dirs))

	for i, dir := range dirs {
		if strings.HasSuffix(dir, ".sqlite3") {
			paths[i] = dir
			continue
		}

		paths[i] = dir + "/index.sqlite3"
	}

	return paths
}

/*****************************************************************************************************************/

// scaleHintToDegPerPix converts the midpoint of a [lo, hi] pixel-scale hint into
// degrees/pixel, the unit pkg/fov's radius helpers work in.
func scaleHintToDegPerPix(lo, hi float64, unit string) float64 {
	mid := (lo + hi) / 2

	switch unit {
	case "deg_per_pix":
		return mid
	default:
		return mid / 3600.0
	}
}

/*****************************************************************************************************************/

func loggerFor(verbose bool) obslog.Logger {
	if !verbose {
		return obslog.NoOp()
	}

	return obslog.NewTextLogger(0)
}

/*****************************************************************************************************************/

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling output: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}

/*****************************************************************************************************************/
