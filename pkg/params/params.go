/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

// Package params defines the engine's tunable Parameters and layers them from a config
// file, then overriding flags, the way a viper-style configuration stack would - lowest
// precedence first, highest precedence last. No repo in this corpus imports spf13/viper, so
// the layering is hand-rolled on top of gopkg.in/yaml.v3 rather than pulling in a dependency
// that would sit unused beside it.
package params

/*****************************************************************************************************************/

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

/*****************************************************************************************************************/

// ApertureShape selects the photometric aperture used by the source extractor.
type ApertureShape string

/*****************************************************************************************************************/

const (
	ApertureAuto    ApertureShape = "auto"
	ApertureCircle  ApertureShape = "circle"
	ApertureEllipse ApertureShape = "ellipse"
)

/*****************************************************************************************************************/

// SearchParity constrains which mirror orientations the solver tries.
type SearchParity string

/*****************************************************************************************************************/

const (
	ParityBoth SearchParity = "both"
	ParityPos  SearchParity = "positive"
	ParityNeg  SearchParity = "negative"
)

/*****************************************************************************************************************/

// Aperture groups the photometric-aperture parameters.
type Aperture struct {
	Shape   ApertureShape `yaml:"aperture_shape"`
	KronFact float64      `yaml:"kron_fact"`
	Subpix  int           `yaml:"subpix"`
	RMin    float64       `yaml:"r_min"`
	InFlags uint32        `yaml:"inflags"`
}

/*****************************************************************************************************************/

// Detection groups the source-extraction/deblending parameters.
type Detection struct {
	MagZero         float64   `yaml:"magzero"`
	MinArea         int       `yaml:"minarea"`
	DeblendThresh   int       `yaml:"deblend_thresh"`
	DeblendContrast float64   `yaml:"deblend_contrast"`
	Clean           bool      `yaml:"clean"`
	CleanParam      float64   `yaml:"clean_param"`
	FWHM            float64   `yaml:"fwhm"`
	ConvFilter      []float64 `yaml:"conv_filter"`
}

/*****************************************************************************************************************/

// Filtering groups the star-filter parameters applied after extraction.
type Filtering struct {
	MaxSize             float64 `yaml:"max_size"`
	MinSize             float64 `yaml:"min_size"`
	MaxEllipse          float64 `yaml:"max_ellipse"`
	RemoveBrightestPct  float64 `yaml:"remove_brightest_pct"`
	RemoveDimmestPct    float64 `yaml:"remove_dimmest_pct"`
	SaturationLimitPct  float64 `yaml:"saturation_limit_pct"`
	KeepNum             int     `yaml:"keep_num"`
	InitialKeep         int     `yaml:"initial_keep"`
	Resort              bool    `yaml:"resort"`
}

/*****************************************************************************************************************/

// DepthRange bounds how many of the sorted stars a solve pass considers when forming
// quads. {0,0} is a sentinel: see Parameters.DepthLadder.
type DepthRange struct {
	Lo int `yaml:"lo"`
	Hi int `yaml:"hi"`
}

/*****************************************************************************************************************/

// Solver groups the solve-driver parameters: depth/scale ladder control, parallelism, and
// the search window hints.
type Solver struct {
	InParallel      bool         `yaml:"in_parallel"`
	TimeLimitSec    float64      `yaml:"solver_time_limit_sec"`
	MinWidthDeg     float64      `yaml:"min_width_deg"`
	MaxWidthDeg     float64      `yaml:"max_width_deg"`
	Downsample      int          `yaml:"downsample"`
	SearchParity    SearchParity `yaml:"search_parity"`
	SearchRadiusDeg float64      `yaml:"search_radius_deg"`
	Depth           DepthRange   `yaml:"depth"`
}

/*****************************************************************************************************************/

// LogOdds groups the three Bayesian log-odds thresholds that gate solver decisions. Values
// are natural logarithms of an odds ratio, not the ratio itself - ToSolve: 1e9 reads as
// "solved once a candidate is a billion times more likely true than chance", stored as
// math.Log(1e9), matching pkg/verify.Params' own LogRatio* fields.
type LogOdds struct {
	ToSolve float64 `yaml:"logratio_tosolve"`
	ToKeep  float64 `yaml:"logratio_tokeep"`
	ToTune  float64 `yaml:"logratio_totune"`
}

/*****************************************************************************************************************/

// ScaleHint narrows the solver's scale ladder to a known pixel-scale band.
type ScaleHint struct {
	Lo   float64 `yaml:"lo"`
	Hi   float64 `yaml:"hi"`
	Unit string  `yaml:"unit"`
}

/*****************************************************************************************************************/

// PositionHint narrows the solver's index-candidate search to a cone on the sky.
type PositionHint struct {
	RADeg     float64 `yaml:"ra_deg"`
	DecDeg    float64 `yaml:"dec_deg"`
	RadiusDeg float64 `yaml:"radius_deg"`
}

/*****************************************************************************************************************/

// Parameters is the full set of engine knobs, grouped the way spec.md's parameter table
// groups them. Name survives a Load/Merge round trip unchanged: this package never rewrites
// or aliases a parameter's identifier, it only layers values assigned to it.
type Parameters struct {
	Name string `yaml:"name,omitempty"`

	Aperture  Aperture  `yaml:"aperture"`
	Detection Detection `yaml:"detection"`
	Filtering Filtering `yaml:"filtering"`
	Solver    Solver    `yaml:"solver"`
	LogOdds   LogOdds   `yaml:"log_odds"`

	Scale    *ScaleHint    `yaml:"scale_hint,omitempty"`
	Position *PositionHint `yaml:"position_hint,omitempty"`
}

/*****************************************************************************************************************/

// Default returns the parameter set the engine falls back to when no config layer
// overrides a field. Values mirror the conventional defaults of the SExtractor-style
// extraction pipeline this component is modeled on.
func Default() Parameters {
	return Parameters{
		Aperture: Aperture{
			Shape:    ApertureAuto,
			KronFact: 2.5,
			Subpix:   5,
			RMin:     3.5,
			InFlags:  0,
		},
		Detection: Detection{
			MagZero:         25.0,
			MinArea:         5,
			DeblendThresh:   32,
			DeblendContrast: 0.005,
			Clean:           true,
			CleanParam:      1.0,
			FWHM:            2.0,
			ConvFilter:      []float64{1, 2, 1, 2, 4, 2, 1, 2, 1},
		},
		Filtering: Filtering{
			MaxSize:            0,
			MinSize:            0,
			MaxEllipse:         0,
			RemoveBrightestPct: 0,
			RemoveDimmestPct:   0,
			SaturationLimitPct: 0,
			KeepNum:            0,
			InitialKeep:        0,
			Resort:             true,
		},
		Solver: Solver{
			InParallel:      false,
			TimeLimitSec:    0,
			MinWidthDeg:     0,
			MaxWidthDeg:     0,
			Downsample:      1,
			SearchParity:    ParityBoth,
			SearchRadiusDeg: 0,
		},
		LogOdds: LogOdds{
			ToSolve: math.Log(1e9),
			ToKeep:  math.Log(1e6),
			ToTune:  math.Log(1e3),
		},
	}
}

/*****************************************************************************************************************/

// Load reads a YAML parameters file from path and merges it over Default().
func Load(path string) (Parameters, error) {
	p := Default()

	bytes, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("params: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(bytes, &p); err != nil {
		return p, fmt.Errorf("params: parsing %s: %w", path, err)
	}

	return p, nil
}

/*****************************************************************************************************************/

// Merge layers override on top of base: any field set to its zero value in override is
// left untouched, any non-zero field replaces the corresponding field in base. This mirrors
// the precedence order a CLI flag set is expected to take over a config file, which in turn
// takes over Default().
func Merge(base Parameters, override Parameters) Parameters {
	merged := base

	if override.Name != "" {
		merged.Name = override.Name
	}

	mergeAperture(&merged.Aperture, override.Aperture)
	mergeDetection(&merged.Detection, override.Detection)
	mergeFiltering(&merged.Filtering, override.Filtering)
	mergeSolver(&merged.Solver, override.Solver)
	mergeLogOdds(&merged.LogOdds, override.LogOdds)

	if override.Scale != nil {
		merged.Scale = override.Scale
	}

	if override.Position != nil {
		merged.Position = override.Position
	}

	return merged
}

/*****************************************************************************************************************/

func mergeAperture(dst *Aperture, src Aperture) {
	if src.Shape != "" {
		dst.Shape = src.Shape
	}
	if src.KronFact != 0 {
		dst.KronFact = src.KronFact
	}
	if src.Subpix != 0 {
		dst.Subpix = src.Subpix
	}
	if src.RMin != 0 {
		dst.RMin = src.RMin
	}
	if src.InFlags != 0 {
		dst.InFlags = src.InFlags
	}
}

/*****************************************************************************************************************/

func mergeDetection(dst *Detection, src Detection) {
	if src.MagZero != 0 {
		dst.MagZero = src.MagZero
	}
	if src.MinArea != 0 {
		dst.MinArea = src.MinArea
	}
	if src.DeblendThresh != 0 {
		dst.DeblendThresh = src.DeblendThresh
	}
	if src.DeblendContrast != 0 {
		dst.DeblendContrast = src.DeblendContrast
	}
	dst.Clean = dst.Clean || src.Clean
	if src.CleanParam != 0 {
		dst.CleanParam = src.CleanParam
	}
	if src.FWHM != 0 {
		dst.FWHM = src.FWHM
	}
	if len(src.ConvFilter) != 0 {
		dst.ConvFilter = src.ConvFilter
	}
}

/*****************************************************************************************************************/

func mergeFiltering(dst *Filtering, src Filtering) {
	if src.MaxSize != 0 {
		dst.MaxSize = src.MaxSize
	}
	if src.MinSize != 0 {
		dst.MinSize = src.MinSize
	}
	if src.MaxEllipse != 0 {
		dst.MaxEllipse = src.MaxEllipse
	}
	if src.RemoveBrightestPct != 0 {
		dst.RemoveBrightestPct = src.RemoveBrightestPct
	}
	if src.RemoveDimmestPct != 0 {
		dst.RemoveDimmestPct = src.RemoveDimmestPct
	}
	if src.SaturationLimitPct != 0 {
		dst.SaturationLimitPct = src.SaturationLimitPct
	}
	if src.KeepNum != 0 {
		dst.KeepNum = src.KeepNum
	}
	if src.InitialKeep != 0 {
		dst.InitialKeep = src.InitialKeep
	}
	dst.Resort = dst.Resort || src.Resort
}

/*****************************************************************************************************************/

func mergeSolver(dst *Solver, src Solver) {
	dst.InParallel = dst.InParallel || src.InParallel
	if src.TimeLimitSec != 0 {
		dst.TimeLimitSec = src.TimeLimitSec
	}
	if src.MinWidthDeg != 0 {
		dst.MinWidthDeg = src.MinWidthDeg
	}
	if src.MaxWidthDeg != 0 {
		dst.MaxWidthDeg = src.MaxWidthDeg
	}
	if src.Downsample != 0 {
		dst.Downsample = src.Downsample
	}
	if src.SearchParity != "" {
		dst.SearchParity = src.SearchParity
	}
	if src.SearchRadiusDeg != 0 {
		dst.SearchRadiusDeg = src.SearchRadiusDeg
	}
	if src.Depth.Lo != 0 || src.Depth.Hi != 0 {
		dst.Depth = src.Depth
	}
}

/*****************************************************************************************************************/

func mergeLogOdds(dst *LogOdds, src LogOdds) {
	if src.ToSolve != 0 {
		dst.ToSolve = src.ToSolve
	}
	if src.ToKeep != 0 {
		dst.ToKeep = src.ToKeep
	}
	if src.ToTune != 0 {
		dst.ToTune = src.ToTune
	}
}

/*****************************************************************************************************************/

// DefaultDepthLadder is the depth sequence the solver walks when Parameters.Solver.Depth
// does not override it: successive 10-star widenings of the sorted star list considered
// when forming quads, out to 200 stars deep.
func DefaultDepthLadder() []DepthRange {
	ladder := make([]DepthRange, 0, 20)
	for hi := 10; hi <= 200; hi += 10 {
		ladder = append(ladder, DepthRange{Lo: 0, Hi: hi})
	}
	return ladder
}

/*****************************************************************************************************************/

// DepthLadder resolves Parameters.Solver.Depth into the concrete sequence of depth ranges
// pkg/solver should walk.
//
// The {0,0} sentinel is overloaded: with InParallel true it means "no depth ceiling" - a
// single unbounded range, since the solver can afford to let child solvers race across an
// open-ended ladder. With InParallel false the same {0,0} value instead means "no override
// was given", and collapses to DefaultDepthLadder so a sequential solve still makes bounded
// progress against its wall-clock budget. A non-zero Depth always means exactly that one
// range, in either mode.
func (p Parameters) DepthLadder() []DepthRange {
	d := p.Solver.Depth

	if d.Lo == 0 && d.Hi == 0 {
		if p.Solver.InParallel {
			return []DepthRange{{Lo: 0, Hi: 0}}
		}
		return DefaultDepthLadder()
	}

	return []DepthRange{d}
}

/*****************************************************************************************************************/
