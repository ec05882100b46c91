/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

package transform

/*****************************************************************************************************************/

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/stellarforge/platesolve/pkg/matrix"
	"github.com/stellarforge/platesolve/pkg/utils"
)

/*****************************************************************************************************************/

// Correspondence is one matched (pixel, sky-tangent-plane) pair used to fit a WCS. X/Y are
// pixel coordinates; Xi/Eta are the gnomonic tangent-plane coordinates of the matched
// catalog source about the same tangent point the fit is being built around.
type Correspondence struct {
	X, Y     float64
	Xi, Eta  float64
}

/*****************************************************************************************************************/

// FitAffine solves the 6-parameter affine transform (two independent 3-parameter linear
// systems, X' and Y') from a correspondence set using the closed-form normal equations.
// This is the minimum-match fast path: four correspondences are already enough to
// constrain the system, so a small fixed matrix inversion is cheaper than standing up a
// general-purpose linear-algebra routine for it. See pkg/matrix for why this does not use
// gonum/mat the way FitSIP below does.
func FitAffine(correspondences []Correspondence) (Affine2DParameters, error) {
	n := len(correspondences)

	if n < 3 {
		return Affine2DParameters{}, fmt.Errorf("transform: need at least 3 correspondences to fit an affine transform, got %d", n)
	}

	a := make([]float64, n*2*6)
	b := make([]float64, n*2)

	for i, c := range correspondences {
		row0 := 2 * i * 6
		a[row0+0], a[row0+1], a[row0+2] = c.X, c.Y, 1
		b[2*i] = c.Xi

		row1 := row0 + 6
		a[row1+3], a[row1+4], a[row1+5] = c.X, c.Y, 1
		b[2*i+1] = c.Eta
	}

	A, err := matrix.NewFromSlice(a, 2*n, 6)
	if err != nil {
		return Affine2DParameters{}, err
	}

	B, err := matrix.NewFromSlice(b, 2*n, 1)
	if err != nil {
		return Affine2DParameters{}, err
	}

	params, err := solveNormalEquations(A, B, 6)
	if err != nil {
		return Affine2DParameters{}, err
	}

	return Affine2DParameters{
		A: params[0], B: params[1], C: params[2],
		D: params[3], E: params[4], F: params[5],
	}, nil
}

/*****************************************************************************************************************/

// solveNormalEquations solves the least-squares system A*x = B via the normal equations
// x = (A^T A)^-1 A^T B, using the module's small fixed-size matrix type.
func solveNormalEquations(A, B *matrix.Matrix, numParams int) ([]float64, error) {
	aT, err := A.Transpose()
	if err != nil {
		return nil, err
	}

	aTa, err := aT.Multiply(A)
	if err != nil {
		return nil, err
	}

	aTb, err := aT.Multiply(B)
	if err != nil {
		return nil, err
	}

	aTaInv, err := aTa.Invert()
	if err != nil {
		return nil, fmt.Errorf("transform: normal equations are singular: %w", err)
	}

	params := make([]float64, numParams)

	for i := 0; i < numParams; i++ {
		for j := 0; j < numParams; j++ {
			v, _ := aTaInv.At(i, j)
			bj, _ := aTb.At(j, 0)
			params[i] += v * bj
		}
	}

	return params, nil
}

/*****************************************************************************************************************/

// FitSIP fits SIP distortion polynomials to the residuals left after an affine fit, using
// gonum/mat's general QR-based least-squares solver since the SIP design matrix is
// typically far from square (many more correspondences than terms) once a solve has
// picked up more than the minimum number of matches.
func FitSIP(correspondences []Correspondence, affine Affine2DParameters, order int) (SIP2DParameters, error) {
	numTerms := (order + 1) * (order + 2) / 2

	n := len(correspondences)

	if n < numTerms {
		return SIP2DParameters{}, fmt.Errorf("transform: need at least %d correspondences for a SIP order-%d fit, got %d", numTerms, order, n)
	}

	designA := mat.NewDense(n, numTerms, nil)
	designB := mat.NewDense(n, numTerms, nil)
	residualXi := mat.NewDense(n, 1, nil)
	residualEta := mat.NewDense(n, 1, nil)

	for i, c := range correspondences {
		predictedXi, predictedEta := affine.Apply(c.X, c.Y)

		terms := utils.ComputePolynomialTerms(c.X, c.Y, order)

		for j := 0; j < numTerms && j < len(terms); j++ {
			designA.Set(i, j, terms[j])
			designB.Set(i, j, terms[j])
		}

		residualXi.Set(i, 0, c.Xi-predictedXi)
		residualEta.Set(i, 0, c.Eta-predictedEta)
	}

	coeffsA, err := leastSquares(designA, residualXi)
	if err != nil {
		return SIP2DParameters{}, fmt.Errorf("transform: SIP A-term fit failed: %w", err)
	}

	coeffsB, err := leastSquares(designB, residualEta)
	if err != nil {
		return SIP2DParameters{}, fmt.Errorf("transform: SIP B-term fit failed: %w", err)
	}

	keysA := utils.GeneratePolynomialTermKeys("A", order)
	keysB := utils.GeneratePolynomialTermKeys("B", order)

	aPower := make(map[string]float64, numTerms)
	bPower := make(map[string]float64, numTerms)

	for i, key := range keysA {
		if i < len(coeffsA) {
			aPower[key] = coeffsA[i]
		}
	}

	for i, key := range keysB {
		if i < len(coeffsB) {
			bPower[key] = coeffsB[i]
		}
	}

	return SIP2DParameters{AOrder: order, APower: aPower, BOrder: order, BPower: bPower}, nil
}

/*****************************************************************************************************************/

// leastSquares solves the over-determined system design*x = target via gonum's QR
// decomposition and returns the coefficient vector.
func leastSquares(design, target *mat.Dense) ([]float64, error) {
	var qr mat.QR
	qr.Factorize(design)

	rows, cols := design.Dims()

	var x mat.Dense

	if err := qr.SolveTo(&x, false, target); err != nil {
		return nil, err
	}

	if rows < cols {
		return nil, errors.New("transform: underdetermined system")
	}

	coeffs := make([]float64, cols)

	for i := 0; i < cols; i++ {
		coeffs[i] = x.At(i, 0)
	}

	return coeffs, nil
}

/*****************************************************************************************************************/
