/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

package transform

/*****************************************************************************************************************/

// Affine2DParameters represents the parameters of a 2D affine transformation.
type Affine2DParameters struct {
	A, B, C float64 // Transformation for X: x' = A*x + B*y + C
	D, E, F float64 // Transformation for Y: y' = D*x + E*y + F
}

/*****************************************************************************************************************/

// Apply evaluates the affine transform at (x, y).
func (p Affine2DParameters) Apply(x, y float64) (float64, float64) {
	return p.A*x + p.B*y + p.C, p.D*x + p.E*y + p.F
}

/*****************************************************************************************************************/
