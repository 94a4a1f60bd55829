package impact

import (
	"math"
	"math/rand"
	"testing"
)

func TestModelTotalImpactSumsComponents(t *testing.T) {
	t.Parallel()

	m := Model{Exponent: 0.5, PermanentCoeff: 0.01, TemporaryCoeff: 0.02}
	got := m.TotalImpactBps(100, 10000)
	want := m.PermanentImpactBps(100, 10000) + m.TemporaryImpactBps(100, 10000)
	if got != want {
		t.Errorf("TotalImpactBps = %v, want %v", got, want)
	}
	if got <= 0 {
		t.Errorf("TotalImpactBps = %v, want positive", got)
	}
}

func TestModelZeroADVReturnsZero(t *testing.T) {
	t.Parallel()

	m := DefaultModel()
	if got := m.TotalImpactBps(100, 0); got != 0 {
		t.Errorf("TotalImpactBps with ADV=0 = %v, want 0", got)
	}
}

func TestCalibratorReturnsDefaultsBelowMinimumObservations(t *testing.T) {
	t.Parallel()

	c := NewCalibrator(nil)
	c.Record(Observation{Participation: 0.01, PriceImpact: 0.001})
	c.Record(Observation{Participation: 0.02, PriceImpact: 0.002})

	got := c.Calibrate(10000)
	want := DefaultModel()
	if got != want {
		t.Errorf("Calibrate with <3 observations = %+v, want defaults %+v", got, want)
	}
}

func TestCalibratorDiscardsObservationsBelowMinimums(t *testing.T) {
	t.Parallel()

	c := NewCalibrator(nil)
	c.Record(Observation{Participation: 1e-5, PriceImpact: 1e-5}) // below both minimums
	if len(c.Observations()) != 0 {
		t.Errorf("len(Observations()) = %d, want 0", len(c.Observations()))
	}
}

func TestCalibratorFitsPowerLawFromCleanObservations(t *testing.T) {
	t.Parallel()

	c := NewCalibrator(nil)
	// Generate data exactly on impact = 0.02 * participation^0.6 so the
	// fitted exponent/coefficient should land very close to those values.
	trueCoeff := 0.02
	trueExponent := 0.6
	for _, p := range []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1} {
		impact := trueCoeff * math.Pow(p, trueExponent)
		c.Record(Observation{Participation: p, PriceImpact: impact})
	}

	got := c.Calibrate(10000)
	if math.Abs(got.Exponent-trueExponent) > 1e-6 {
		t.Errorf("Exponent = %v, want ~%v", got.Exponent, trueExponent)
	}
	if math.Abs(got.PermanentCoeff-trueCoeff) > 1e-6 {
		t.Errorf("PermanentCoeff = %v, want ~%v", got.PermanentCoeff, trueCoeff)
	}
	if got.TemporaryCoeff != 2*got.PermanentCoeff {
		t.Errorf("TemporaryCoeff = %v, want 2x permanent (default heuristic)", got.TemporaryCoeff)
	}
}

func TestCalibratorRevertsToDefaultsWhenCoeffOutOfRange(t *testing.T) {
	t.Parallel()

	c := NewCalibrator(nil)
	// Observations implying a permanent coefficient far above 1.0.
	for _, p := range []float64{0.01, 0.02, 0.05} {
		c.Record(Observation{Participation: p, PriceImpact: 50 * p})
	}

	got := c.Calibrate(10000)
	if got.PermanentCoeff != defaultPermanentCoeff || got.TemporaryCoeff != defaultTemporaryCoeff {
		t.Errorf("got = %+v, want defaults after out-of-range revert", got)
	}
}

func TestCalibrateCopiesFitStatisticsAndMarksValidity(t *testing.T) {
	t.Parallel()

	c := NewCalibrator(nil)
	trueCoeff := 0.02
	trueExponent := 0.6
	for _, p := range []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1} {
		impact := trueCoeff * math.Pow(p, trueExponent)
		c.Record(Observation{Participation: p, PriceImpact: impact})
	}

	got := c.Calibrate(10000)
	if got.NumObservations != 6 {
		t.Errorf("NumObservations = %v, want 6", got.NumObservations)
	}
	if math.Abs(got.RSquared-1.0) > 1e-9 {
		t.Errorf("RSquared = %v, want ~1.0 for a perfect power-law fit", got.RSquared)
	}
	if got.StdError > 1e-6 {
		t.Errorf("StdError = %v, want ~0 for a perfect power-law fit", got.StdError)
	}
	// 6 observations is below the default MinN of 10, so the fit is not valid
	// despite the near-perfect r².
	if got.Valid {
		t.Errorf("Valid = true, want false when NumObservations (%d) < MinN (%d)", got.NumObservations, c.MinN)
	}

	c.MinN = 6
	got = c.Calibrate(10000)
	if !got.Valid {
		t.Errorf("Valid = false, want true once MinN is lowered to match NumObservations")
	}
}

func TestCalibrateMarksInvalidBelowMinRSquared(t *testing.T) {
	t.Parallel()

	c := NewCalibrator(nil)
	c.MinN = 3
	rng := rand.New(rand.NewSource(1))
	// 50 observations with a price impact uncorrelated to participation:
	// with that many points, the squared correlation from chance alone is
	// reliably far below 0.5.
	for i := 0; i < 50; i++ {
		p := 0.001 + rng.Float64()*0.1
		impact := math.Abs(rng.NormFloat64())*0.5 + 0.001
		c.Record(Observation{Participation: p, PriceImpact: impact})
	}

	got := c.Calibrate(10000)
	if got.RSquared >= c.MinRSquared {
		t.Fatalf("RSquared = %v, want < MinRSquared (%v) for uncorrelated noise", got.RSquared, c.MinRSquared)
	}
	if got.Valid {
		t.Errorf("Valid = true, want false when RSquared is below MinRSquared")
	}
}

func TestCalibrationRecoveryFromNoisyPowerLawSamples(t *testing.T) {
	t.Parallel()

	c := NewCalibrator(nil)
	rng := rand.New(rand.NewSource(42))
	const alpha = 0.015
	const trueExponent = 0.5
	for i := 0; i < 100; i++ {
		p := 0.0001 + rng.Float64()*0.2
		noise := 1 + rng.NormFloat64()*0.1
		impact := alpha * math.Pow(p, trueExponent) * noise
		if impact <= 0 {
			continue
		}
		c.Record(Observation{Participation: p, PriceImpact: impact})
	}

	got := c.Calibrate(10000)
	if math.Abs(got.Exponent-0.5) > 0.2 {
		t.Errorf("Exponent = %v, want within 0.5 ± 0.2", got.Exponent)
	}
	if got.RSquared <= 0.5 {
		t.Errorf("RSquared = %v, want > 0.5 for a noisy but genuine power law", got.RSquared)
	}
	if got.PermanentCoeff <= 0 {
		t.Errorf("PermanentCoeff = %v, want > 0", got.PermanentCoeff)
	}
	if !got.Valid {
		t.Errorf("Valid = false, want true for a clean 100-sample recovery")
	}
}

func TestCustomTemporaryCoeffFuncOverridesHeuristic(t *testing.T) {
	t.Parallel()

	c := NewCalibrator(nil)
	c.TemporaryCoeffFunc = func(permanent float64) float64 { return permanent + 1 }
	for _, p := range []float64{0.001, 0.01, 0.1} {
		c.Record(Observation{Participation: p, PriceImpact: 0.02 * math.Pow(p, 0.5)})
	}

	got := c.Calibrate(10000)
	if math.Abs(got.TemporaryCoeff-(got.PermanentCoeff+1)) > 1e-9 {
		t.Errorf("TemporaryCoeff = %v, want PermanentCoeff+1 = %v", got.TemporaryCoeff, got.PermanentCoeff+1)
	}
}
