/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

// Package engine is the public façade over the rest of this module: one Engine owns a
// single pixel buffer, its current sub-frame and parameter bundle, and the set of index
// catalogs it may solve against. Everything downstream - background estimation,
// extraction, filtering, quad matching and WCS fitting - is reached only through Extract
// and Solve, so a caller never has to wire the pipeline stages together itself.
package engine

/*****************************************************************************************************************/

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/stellarforge/platesolve/pkg/astrometry"
	"github.com/stellarforge/platesolve/pkg/background"
	"github.com/stellarforge/platesolve/pkg/engineerr"
	"github.com/stellarforge/platesolve/pkg/extract"
	"github.com/stellarforge/platesolve/pkg/filter"
	"github.com/stellarforge/platesolve/pkg/index"
	"github.com/stellarforge/platesolve/pkg/obslog"
	"github.com/stellarforge/platesolve/pkg/params"
	"github.com/stellarforge/platesolve/pkg/partition"
	"github.com/stellarforge/platesolve/pkg/pixel"
	"github.com/stellarforge/platesolve/pkg/solver"
	"github.com/stellarforge/platesolve/pkg/star"

	"github.com/stellarforge/platesolve/internal/jobctl"
)

/*****************************************************************************************************************/

// Engine holds all per-job state for one pixel buffer: its sub-frame, its parameter
// bundle, the index catalogs it may be solved against, and the cancellation token shared
// by any in-flight Extract or Solve call. Nothing here is a package global, so two Engines
// over two different buffers never interfere with each other.
type Engine struct {
	mu sync.Mutex

	buffer   *pixel.Buffer
	subFrame pixel.SubFrame

	params params.Parameters
	logger obslog.Logger

	catalogs []*index.Catalog

	token      *jobctl.Token
	cancelFunc context.CancelFunc

	solution *solver.Solution
}

/*****************************************************************************************************************/

// Option configures an Engine at construction time.
type Option func(*Engine)

/*****************************************************************************************************************/

// WithLogger threads a structured logger through every component the engine drives.
func WithLogger(logger obslog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

/*****************************************************************************************************************/

// WithParameters seeds the engine with a parameter bundle other than params.Default().
func WithParameters(p params.Parameters) Option {
	return func(e *Engine) { e.params = p }
}

/*****************************************************************************************************************/

// NewEngine wraps buf - already adapted to an f32 plane by the pixel package, whatever its
// original sample type - as a new Engine with the full frame as its sub-frame and
// params.Default() as its parameter bundle.
func NewEngine(buf *pixel.Buffer, opts ...Option) (*Engine, error) {
	if buf == nil || buf.Width <= 0 || buf.Height <= 0 {
		return nil, engineerr.ErrInvalidInput
	}

	e := &Engine{
		buffer:   buf,
		subFrame: pixel.SubFrame{X0: 0, Y0: 0, X1: buf.Width, Y1: buf.Height},
		params:   params.Default(),
		logger:   obslog.NoOp(),
		token:    jobctl.New("", ""),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

/*****************************************************************************************************************/

// SetParameters replaces the engine's parameter bundle wholesale.
func (e *Engine) SetParameters(p params.Parameters) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.params = p
}

/*****************************************************************************************************************/

// SetIndexPaths opens a catalog over every given index database path, closing whichever
// catalogs this engine previously held. A failure to open any one path leaves the engine's
// existing catalogs untouched and closes whatever this call had already opened.
func (e *Engine) SetIndexPaths(paths []string) error {
	opened := make([]*index.Catalog, 0, len(paths))

	for _, p := range paths {
		cat, err := index.Open(p)
		if err != nil {
			for _, c := range opened {
				c.Close()
			}

			return fmt.Errorf("engine: opening index %s: %w", p, err)
		}

		opened = append(opened, cat)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, c := range e.catalogs {
		c.Close()
	}

	e.catalogs = opened

	return nil
}

/*****************************************************************************************************************/

// SetScaleHint narrows the solver's scale ladder to a known pixel-scale band, e.g.
// (1.0, 2.0, "arcsec_per_pix").
func (e *Engine) SetScaleHint(lo, hi float64, unit string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.params.Scale = &params.ScaleHint{Lo: lo, Hi: hi, Unit: unit}
}

/*****************************************************************************************************************/

// SetPositionHint narrows the solver's index-candidate search to a cone around
// (raDeg, decDeg), with the radius taken from the current Parameters.Solver.SearchRadiusDeg.
func (e *Engine) SetPositionHint(raDeg, decDeg float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	radius := e.params.Solver.SearchRadiusDeg

	e.params.Position = &params.PositionHint{RADeg: raDeg, DecDeg: decDeg, RadiusDeg: radius}
}

/*****************************************************************************************************************/

// SetSubFrame restricts Extract/Solve to a rectangular window of the original buffer, in
// that buffer's own pixel coordinates. The window is clamped to the buffer's bounds; an
// empty result after clamping is rejected as invalid input.
func (e *Engine) SetSubFrame(x, y, w, h int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	frame := pixel.SubFrame{X0: x, Y0: y, X1: x + w, Y1: y + h}.Clamp(e.buffer.Width, e.buffer.Height)

	if frame.Width() <= 0 || frame.Height() <= 0 {
		return engineerr.ErrInvalidInput
	}

	e.subFrame = frame

	return nil
}

/*****************************************************************************************************************/

// Close releases every index catalog this engine holds open and cleans up its cancellation
// token's sentinel files, if any were configured.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var firstErr error

	for _, c := range e.catalogs {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	e.catalogs = nil
	e.token.Cleanup()

	return firstErr
}

/*****************************************************************************************************************/

// Abort cancels whichever of Extract or Solve is currently in flight. It is safe to call at
// any time, including before either has started, in which case it pre-cancels the next call.
func (e *Engine) Abort() {
	e.mu.Lock()
	token := e.token
	cancel := e.cancelFunc
	e.mu.Unlock()

	token.Cancel()

	if cancel != nil {
		cancel()
	}
}

/*****************************************************************************************************************/

// withCancel derives a cancellable context from parent and records its cancel func so Abort
// can reach it, clearing the record once the caller is done with it.
func (e *Engine) withCancel(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	e.mu.Lock()
	e.cancelFunc = cancel
	e.mu.Unlock()

	return ctx, func() {
		cancel()

		e.mu.Lock()
		e.cancelFunc = nil
		e.mu.Unlock()
	}
}

/*****************************************************************************************************************/

// Extract runs the background/partition/extraction/filter pipeline over the engine's
// current sub-frame, returning a clean, flux-sorted star list in the full buffer's own
// 1-based pixel coordinates.
func (e *Engine) Extract(ctx context.Context) ([]star.Star, error) {
	e.mu.Lock()
	buf := e.buffer
	frame := e.subFrame
	p := e.params
	logger := e.logger
	e.mu.Unlock()

	cropped, err := buf.Crop(frame)
	if err != nil {
		return nil, engineerr.ErrInvalidInput
	}

	bg, err := background.Estimate(cropped, background.DefaultParams)
	if err != nil {
		return nil, engineerr.Internal("pkg/engine.Extract", err)
	}

	subtracted := bg.Subtract(cropped)

	tiles := partition.Plan(cropped.Width, cropped.Height, partition.DefaultParams)

	extractParams := extractParamsFor(p.Aperture, p.Detection)

	ctx, cancel := e.withCancel(ctx)
	defer cancel()

	found, err := partition.Run(ctx, subtracted, tiles, func(_ context.Context, _ partition.Tile, tileFrame *pixel.Buffer) ([]star.Star, error) {
		return extract.Extract(tileFrame, bg.GlobalRMS, extractParams), nil
	})
	if err != nil {
		return nil, engineerr.Internal("pkg/engine.Extract", err)
	}

	filtered := filter.Filter(found, filterParamsFor(p.Filtering, cropped.SampleType), logger)

	out := make([]star.Star, len(filtered))

	for i, s := range filtered {
		s.X += float64(frame.X0) + 1
		s.Y += float64(frame.Y0) + 1
		out[i] = s
	}

	logger.Info("extract complete", "sub_frame", frame, "detections", len(out))

	return out, nil
}

/*****************************************************************************************************************/

// extractParamsFor translates the caller-facing Aperture/Detection knobs into pkg/extract's
// own Params, leaving anything not configured at extract.DefaultParams.
func extractParamsFor(a params.Aperture, d params.Detection) extract.Params {
	out := extract.DefaultParams

	if a.Shape != "" {
		out.Aperture = extract.ApertureShape(a.Shape)
	}

	if a.KronFact > 0 {
		out.KronFact = a.KronFact
	}

	if a.Subpix > 0 {
		out.Subpix = a.Subpix
	}

	if a.RMin > 0 {
		out.RMin = a.RMin
	}

	out.InFlags = a.InFlags

	if d.MagZero != 0 {
		out.MagZero = d.MagZero
	}

	if d.MinArea > 0 {
		out.MinPixels = d.MinArea
	}

	if d.DeblendThresh > 0 {
		out.DeblendLevels = d.DeblendThresh
	}

	if d.DeblendContrast > 0 {
		out.DeblendContrast = d.DeblendContrast
	}

	if len(d.ConvFilter) > 0 {
		out.ConvFilter = d.ConvFilter
	}

	out.Clean = d.Clean

	if d.CleanParam > 0 {
		out.CleanParam = d.CleanParam
	}

	return out
}

/*****************************************************************************************************************/

// filterParamsFor translates Parameters.Filtering into pkg/filter's own Params, leaving
// anything not configured at filter.DefaultParams, and reads the saturation cut's reference
// maximum from the cropped buffer's own sample type.
func filterParamsFor(f params.Filtering, sampleType pixel.SampleType) filter.Params {
	out := filter.DefaultParams

	out.Resort = f.Resort
	out.MaxSize = f.MaxSize
	out.MinSize = f.MinSize
	out.MaxEllipse = f.MaxEllipse
	out.RemoveBrightestPct = f.RemoveBrightestPct
	out.RemoveDimmestPct = f.RemoveDimmestPct
	out.SaturationLimitPct = f.SaturationLimitPct
	out.KeepNum = f.KeepNum

	out.SampleMax, out.SampleMaxKnown = sampleType.MaxValue()

	return out
}

/*****************************************************************************************************************/

// Solve extracts the engine's current sub-frame and walks every configured index catalog in
// turn, returning the first Solution that crosses the solve threshold. Catalogs are tried in
// the order SetIndexPaths registered them; a Solved result from an earlier catalog short
// circuits the rest. Mirrors the driver's own child-solver propagation policy: the first
// non-NoSolution failure wins over a plain NoSolution from an earlier catalog.
func (e *Engine) Solve(ctx context.Context) (*solver.Solution, error) {
	fieldStars, err := e.Extract(ctx)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	catalogs := e.catalogs
	p := e.params
	logger := e.logger
	token := e.token
	width, height := e.buffer.Width, e.buffer.Height
	e.mu.Unlock()

	if len(catalogs) == 0 {
		return nil, engineerr.ErrNoIndexes
	}

	ctx, cancel := e.withCancel(ctx)
	defer cancel()

	req := solver.Request{
		FieldStars:    fieldStars,
		ImageWidthPx:  width,
		ImageHeightPx: height,
		Params:        p,
		Logger:        logger,
		Token:         token,
	}

	var lastErr error

	for _, cat := range catalogs {
		result := solver.New(cat).Solve(ctx, req)

		switch result.State {
		case solver.Solved:
			e.mu.Lock()
			e.solution = result.Solution
			e.mu.Unlock()

			return result.Solution, nil

		case solver.Aborted, solver.TimedOut:
			return result.Solution, result.Err

		case solver.Failed:
			switch {
			case lastErr == nil:
				lastErr = result.Err
			case errors.Is(lastErr, engineerr.ErrNoSolution) && !errors.Is(result.Err, engineerr.ErrNoSolution):
				lastErr = result.Err
			}
		}
	}

	if lastErr == nil {
		lastErr = engineerr.ErrNoSolution
	}

	return nil, lastErr
}

/*****************************************************************************************************************/

// PixelToSky converts a pixel coordinate to an equatorial coordinate under the most recent
// successful Solve's WCS. Returns ErrInvalidInput if no solution has been recorded yet.
func (e *Engine) PixelToSky(x, y float64) (astrometry.ICRSEquatorialCoordinate, error) {
	e.mu.Lock()
	sol := e.solution
	e.mu.Unlock()

	if sol == nil {
		return astrometry.ICRSEquatorialCoordinate{}, engineerr.ErrInvalidInput
	}

	wcs := sol.WCS

	return wcs.PixelToEquatorialCoordinate(x, y), nil
}

/*****************************************************************************************************************/

// SkyToPixel is the inverse of PixelToSky, converting an equatorial coordinate back to a
// pixel coordinate under the most recent successful Solve's WCS.
func (e *Engine) SkyToPixel(ra, dec float64) (float64, float64, error) {
	e.mu.Lock()
	sol := e.solution
	e.mu.Unlock()

	if sol == nil {
		return 0, 0, engineerr.ErrInvalidInput
	}

	wcs := sol.WCS

	x, y, err := wcs.EquatorialCoordinateToPixel(ra, dec)
	if err != nil {
		return 0, 0, engineerr.Internal("pkg/engine.SkyToPixel", err)
	}

	return x, y, nil
}

/*****************************************************************************************************************/
