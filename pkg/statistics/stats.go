/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skysolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package stats

/*****************************************************************************************************************/

import (
	"math"
	"math/rand"
)

/*****************************************************************************************************************/

// NormalDistributedRandomNumber generates a normally distributed random number.
// mean: the mean of the distribution.
// stdDev: the standard deviation of the distribution.
func NormalDistributedRandomNumber(mean, stdDev float64) float64 {
	v := rand.Float64()
	return v*(stdDev*math.Sqrt(2*math.Pi)) + mean
}

/*****************************************************************************************************************/

// PoissonDistributedRandomNumber generates a Poisson-distributed random number with the
// given mean, via Knuth's product-of-uniforms algorithm. lambda <= 0 returns 0 rather than
// looping forever, since a non-positive rate has no meaningful Poisson sample.
func PoissonDistributedRandomNumber(lambda float64) float64 {
	if lambda <= 0 {
		return 0
	}

	l := math.Exp(-lambda)

	k := 0.0
	p := 1.0

	for {
		k++
		p *= rand.Float64()

		if p <= l {
			break
		}
	}

	return k - 1
}

/*****************************************************************************************************************/
