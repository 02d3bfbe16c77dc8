package main

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/chrissnell/icemass/internal/constants"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Observation is one ablation stake reading over a period.
type Observation struct {
	Stake    string
	Start    time.Time
	End      time.Time
	PDDSnow  float64 // °C d over snow
	PDDIce   float64 // °C d over ice
	Ablation float64 // m w.e.
}

// ModelType represents the degree-day models that are compared
type ModelType string

const (
	ModelSingle    ModelType = "single"
	ModelTwoFactor ModelType = "two-factor"
)

// FitResult holds fitted degree-day factors in m w.e. °C⁻¹ d⁻¹.
type FitResult struct {
	ModelType      ModelType
	ModelName      string
	MeltFactorSnow float64
	MeltFactorIce  float64

	RSquared             float64
	MeanAbsoluteError    float64
	RootMeanSquaredError float64
	AIC                  float64
	BIC                  float64
	SampleCount          int
}

// PerYear converts a daily factor to the per-year factor used in the model config.
func PerYear(daily float64) float64 {
	return daily * constants.DaysPerYear
}

var errTooFewObservations = errors.New("not enough observations")

// fitModel fits ablation = fs*PDDsnow + fi*PDDice by least squares (QR). The
// single-factor model forces fs == fi.
func fitModel(obs []Observation, model ModelType) (FitResult, error) {
	k := 2
	name := "Snow and ice factors"
	if model == ModelSingle {
		k = 1
		name = "Single factor"
	}
	n := len(obs)
	if n < k+1 {
		return FitResult{}, fmt.Errorf("%w: %d for %d parameters", errTooFewObservations, n, k)
	}

	X := mat.NewDense(n, k, nil)
	y := mat.NewVecDense(n, nil)
	for i, o := range obs {
		if k == 1 {
			X.Set(i, 0, o.PDDSnow+o.PDDIce)
		} else {
			X.Set(i, 0, o.PDDSnow)
			X.Set(i, 1, o.PDDIce)
		}
		y.SetVec(i, o.Ablation)
	}

	var qr mat.QR
	qr.Factorize(X)
	coeffs := mat.NewVecDense(k, nil)
	if err := qr.SolveVecTo(coeffs, false, y); err != nil {
		return FitResult{}, fmt.Errorf("solving %s regression: %w", model, err)
	}

	result := FitResult{
		ModelType:      model,
		ModelName:      name,
		MeltFactorSnow: coeffs.AtVec(0),
		MeltFactorIce:  coeffs.AtVec(k - 1),
		SampleCount:    n,
	}

	observed := make([]float64, n)
	predicted := make([]float64, n)
	for i, o := range obs {
		observed[i] = o.Ablation
		predicted[i] = result.MeltFactorSnow*o.PDDSnow + result.MeltFactorIce*o.PDDIce
	}
	result.RSquared = calculateRSquared(observed, predicted)
	result.MeanAbsoluteError = calculateMAE(observed, predicted)
	result.RootMeanSquaredError = calculateRMSE(observed, predicted)
	result.AIC = calculateAIC(float64(n), result.RootMeanSquaredError, float64(k))
	result.BIC = calculateBIC(float64(n), result.RootMeanSquaredError, float64(k))
	return result, nil
}

// fitAll fits every model and returns them with the best by AIC.
func fitAll(obs []Observation) ([]FitResult, FitResult, error) {
	var results []FitResult
	for _, m := range []ModelType{ModelSingle, ModelTwoFactor} {
		r, err := fitModel(obs, m)
		if err != nil {
			return nil, FitResult{}, err
		}
		results = append(results, r)
	}

	best := results[0]
	for _, r := range results[1:] {
		if r.AIC < best.AIC {
			best = r
		}
	}
	return results, best, nil
}

func calculateRSquared(observed, predicted []float64) float64 {
	mean := stat.Mean(observed, nil)
	var ssTot, ssRes float64
	for i := range observed {
		ssTot += (observed[i] - mean) * (observed[i] - mean)
		ssRes += (observed[i] - predicted[i]) * (observed[i] - predicted[i])
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

func calculateMAE(observed, predicted []float64) float64 {
	diff := make([]float64, len(observed))
	floats.SubTo(diff, observed, predicted)
	var sum float64
	for _, d := range diff {
		sum += math.Abs(d)
	}
	return sum / float64(len(diff))
}

func calculateRMSE(observed, predicted []float64) float64 {
	return floats.Distance(observed, predicted, 2) / math.Sqrt(float64(len(observed)))
}

// calculateAIC uses AIC = 2k + n*ln(SSE/n), SSE = n*rmse².
func calculateAIC(n, rmse, k float64) float64 {
	sse := n * rmse * rmse
	if sse <= 0 {
		return math.Inf(-1)
	}
	return 2*k + n*math.Log(sse/n)
}

// calculateBIC uses BIC = k*ln(n) + n*ln(SSE/n).
func calculateBIC(n, rmse, k float64) float64 {
	sse := n * rmse * rmse
	if sse <= 0 {
		return math.Inf(-1)
	}
	return k*math.Log(n) + n*math.Log(sse/n)
}
