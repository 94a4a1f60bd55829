// Package regression implements the ordinary-least-squares and Pearson
// correlation primitives impact-model calibration needs. A fit this small
// doesn't warrant pulling in a statistics library, so it's built directly
// on math.
package regression

import "math"

const denomEpsilon = 1e-10

// Result is the outcome of an OLS fit: y = slope*x + intercept.
type Result struct {
	Slope     float64
	Intercept float64
	RSquared  float64
	StdError  float64
	N         int
}

// OLS fits an unweighted least-squares line through x, y, which must be of
// equal length ≥ 2. A near-zero denominator (|D| < 1e-10) degrades
// gracefully to a flat line at the mean rather than dividing by near-zero.
func OLS(x, y []float64) Result {
	n := len(x)
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1
	}
	return WeightedOLS(x, y, weights)
}

// WeightedOLS is OLS with every sum weighted by w_i
func WeightedOLS(x, y, w []float64) Result {
	n := len(x)
	if n != len(y) || n != len(w) || n < 2 {
		return Result{N: n}
	}

	var sumW, sumWX, sumWY, sumWXY, sumWX2, sumWY2 float64
	for i := 0; i < n; i++ {
		wi := w[i]
		sumW += wi
		sumWX += wi * x[i]
		sumWY += wi * y[i]
		sumWXY += wi * x[i] * y[i]
		sumWX2 += wi * x[i] * x[i]
		sumWY2 += wi * y[i] * y[i]
	}
	if sumW == 0 {
		return Result{N: n}
	}

	xBar := sumWX / sumW
	yBar := sumWY / sumW

	d := sumWX2 - sumW*xBar*xBar
	if math.Abs(d) < denomEpsilon {
		return Result{Slope: 0, Intercept: yBar, RSquared: 0, N: n}
	}

	slope := (sumWXY - sumW*xBar*yBar) / d
	intercept := yBar - slope*xBar

	ssTot := sumWY2 - sumW*yBar*yBar
	var ssRes float64
	for i := 0; i < n; i++ {
		yHat := slope*x[i] + intercept
		resid := y[i] - yHat
		ssRes += w[i] * resid * resid
	}

	rSquared := 1.0
	if math.Abs(ssTot) >= denomEpsilon {
		rSquared = 1 - ssRes/ssTot
		rSquared = math.Max(0, math.Min(1, rSquared))
	}

	var stdErr float64
	if n > 2 {
		stdErr = math.Sqrt(ssRes / float64(n-2))
	}

	return Result{Slope: slope, Intercept: intercept, RSquared: rSquared, StdError: stdErr, N: n}
}

// Correlation returns the Pearson correlation coefficient between x and y.
// Undefined denominators (either series constant) return 0.
func Correlation(x, y []float64) float64 {
	n := len(x)
	if n != len(y) || n == 0 {
		return 0
	}

	var sumX, sumY, sumXY, sumX2, sumY2 float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumX2 += x[i] * x[i]
		sumY2 += y[i] * y[i]
	}

	nf := float64(n)
	num := nf*sumXY - sumX*sumY
	denom := math.Sqrt((nf*sumX2 - sumX*sumX) * (nf*sumY2 - sumY*sumY))
	if math.Abs(denom) < denomEpsilon {
		return 0
	}
	return num / denom
}
