// Package impact implements a power-law market-impact model and its
// log-log OLS calibrator, built on internal/regression.
package impact

import (
	"log/slog"
	"math"

	"lobengine/internal/regression"
)

// defaultPermanentCoeff and defaultTemporaryCoeff are the fallback
// parameters used whenever calibration is underspecified or produces an
// out-of-range coefficient.
const (
	defaultPermanentCoeff = 0.01
	defaultTemporaryCoeff = 0.02
	defaultExponent       = 0.5

	minObservationsToCalibrate = 3

	// defaultMinRSquared and defaultMinN gate whether a fitted Model is
	// trusted for live use; a fit below either bar is returned but marked
	// invalid rather than silently hidden.
	defaultMinRSquared = 0.5
	defaultMinN        = 10
)

// Model is the power-law impact model: impact_bps(V, ADV) = coeff *
// (V/ADV)^exponent * 10000, evaluated separately for permanent and
// temporary components. RSquared, StdError, and NumObservations describe
// the fit quality of the OLS regression that produced the coefficients;
// Valid reports whether that fit clears the calibrator's thresholds.
type Model struct {
	Exponent       float64
	PermanentCoeff float64
	TemporaryCoeff float64

	RSquared        float64
	StdError        float64
	NumObservations int
	Valid           bool
}

// DefaultModel returns the fallback parameters. It carries no fit
// statistics and is never marked valid.
func DefaultModel() Model {
	return Model{Exponent: defaultExponent, PermanentCoeff: defaultPermanentCoeff, TemporaryCoeff: defaultTemporaryCoeff}
}

func (m Model) componentImpactBps(volume, adv, coeff float64) float64 {
	if adv <= 0 {
		return 0
	}
	return coeff * math.Pow(volume/adv, m.Exponent) * 10000
}

// PermanentImpactBps returns the permanent component of impact, in bps.
func (m Model) PermanentImpactBps(volume, adv float64) float64 {
	return m.componentImpactBps(volume, adv, m.PermanentCoeff)
}

// TemporaryImpactBps returns the temporary component of impact, in bps.
func (m Model) TemporaryImpactBps(volume, adv float64) float64 {
	return m.componentImpactBps(volume, adv, m.TemporaryCoeff)
}

// TotalImpactBps is the sum of the permanent and temporary components.
func (m Model) TotalImpactBps(volume, adv float64) float64 {
	return m.PermanentImpactBps(volume, adv) + m.TemporaryImpactBps(volume, adv)
}

// ImplementationShortfallBps combines half the quoted spread with total
// impact
func (m Model) ImplementationShortfallBps(volume, adv, halfSpreadBps float64) float64 {
	return halfSpreadBps + m.TotalImpactBps(volume, adv)
}

// Observation is one (participation, impact) sample fed to the calibrator.
type Observation struct {
	Participation float64 // qty / ADV
	PriceImpact   float64 // |current - rolling mean| / rolling mean, or |Δprice|/price
	Weight        float64 // 0 means "unweighted" (treated as 1)
}

// TemporaryCoeffFunc derives the temporary coefficient from the fitted
// permanent coefficient. Defaulting to the heuristic
// (temporary = 2 * permanent) keeps the Open Question #1 resolution
// swappable without an API break.
type TemporaryCoeffFunc func(permanentCoeff float64) float64

func defaultTemporaryCoeffFunc(permanentCoeff float64) float64 { return 2 * permanentCoeff }

// Calibrator fits a Model from accumulated (participation, impact)
// observations via log-log OLS
type Calibrator struct {
	MinParticipationRate float64
	MinPriceImpact       float64
	TemporaryCoeffFunc   TemporaryCoeffFunc

	// MinRSquared and MinN are the validity thresholds a fit must clear,
	// alongside permanent_coeff > 0, before Calibrate marks it Valid.
	MinRSquared float64
	MinN        int

	logger *slog.Logger

	observations []Observation
}

// NewCalibrator creates a Calibrator with the default minimums
// (1e-4 for both participation and price impact), the default
// validity thresholds, and the default temporary-coefficient heuristic.
func NewCalibrator(logger *slog.Logger) *Calibrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Calibrator{
		MinParticipationRate: 1e-4,
		MinPriceImpact:       1e-4,
		MinRSquared:          defaultMinRSquared,
		MinN:                 defaultMinN,
		TemporaryCoeffFunc:   defaultTemporaryCoeffFunc,
		logger:               logger,
	}
}

// Record stores an observation if both fields exceed the configured
// minimums; otherwise it is discarded as noise.
func (c *Calibrator) Record(obs Observation) {
	if obs.Participation <= c.MinParticipationRate || obs.PriceImpact <= c.MinPriceImpact {
		return
	}
	c.observations = append(c.observations, obs)
}

// Observations returns every recorded observation, oldest first.
func (c *Calibrator) Observations() []Observation {
	out := make([]Observation, len(c.observations))
	copy(out, c.observations)
	return out
}

// Calibrate fits a Model from the accumulated log-log observations. Fewer
// than 3 observations returns the defaults untouched.
func (c *Calibrator) Calibrate(adv float64) Model {
	if len(c.observations) < minObservationsToCalibrate {
		return DefaultModel()
	}

	lnX := make([]float64, len(c.observations))
	lnY := make([]float64, len(c.observations))
	weights := make([]float64, len(c.observations))
	anyWeighted := false
	for i, o := range c.observations {
		lnX[i] = math.Log(o.Participation)
		lnY[i] = math.Log(o.PriceImpact)
		w := o.Weight
		if w == 0 {
			w = 1
		} else {
			anyWeighted = true
		}
		weights[i] = w
	}

	var fit regression.Result
	if anyWeighted {
		fit = regression.WeightedOLS(lnX, lnY, weights)
	} else {
		fit = regression.OLS(lnX, lnY)
	}

	exponent := fit.Slope
	permanentCoeff := math.Exp(fit.Intercept)
	temporaryCoeff := c.TemporaryCoeffFunc(permanentCoeff)

	if exponent < 0.1 || exponent > 2.0 {
		c.logger.Warn("impact calibration: exponent out of range, clamping", "exponent", exponent)
		exponent = math.Max(0.3, math.Min(1.0, exponent))
	}
	if permanentCoeff < 1e-6 || permanentCoeff > 1.0 {
		c.logger.Warn("impact calibration: permanent coefficient out of range, reverting to defaults", "permanent_coeff", permanentCoeff)
		permanentCoeff = defaultPermanentCoeff
		temporaryCoeff = defaultTemporaryCoeff
	}

	valid := fit.RSquared >= c.MinRSquared && fit.N >= c.MinN && permanentCoeff > 0

	return Model{
		Exponent:        exponent,
		PermanentCoeff:  permanentCoeff,
		TemporaryCoeff:  temporaryCoeff,
		RSquared:        fit.RSquared,
		StdError:        fit.StdError,
		NumObservations: fit.N,
		Valid:           valid,
	}
}

// CalibrateFromFills derives observations from consecutive fill prices and
// quantities, records them, and returns a freshly calibrated Model. prices
// and quantities must be the same length and in trade order.
func (c *Calibrator) CalibrateFromFills(prices, quantities []float64, adv float64) Model {
	for i := 1; i < len(prices) && i < len(quantities); i++ {
		if prices[i-1] == 0 || adv <= 0 {
			continue
		}
		participation := quantities[i] / adv
		priceImpact := math.Abs(prices[i]-prices[i-1]) / prices[i-1]
		c.Record(Observation{Participation: participation, PriceImpact: priceImpact})
	}
	return c.Calibrate(adv)
}
