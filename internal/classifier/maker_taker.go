// Package classifier provides inference for the offline-trained maker/taker
// logistic model.
package classifier

import (
	"log/slog"
	"math"

	"github.com/alanyoungcy/costsim/internal/domain"
)

// FeatureCount is the width of the model's input vector:
// [notional USD, spread, imbalance, side flag].
const FeatureCount = 4

// Coefficients are the trained model parameters: standardization mean and
// scale per feature, linear weights, and the intercept. They are produced by
// the offline trainer and supplied through configuration as opaque data.
type Coefficients struct {
	Means     [FeatureCount]float64
	Scales    [FeatureCount]float64
	Weights   [FeatureCount]float64
	Intercept float64
}

// MakerTaker scores a feature vector into maker/taker probabilities. The
// model itself is fit offline; this type only standardizes features and
// applies the logistic transform.
type MakerTaker struct {
	coef   Coefficients
	logger *slog.Logger
}

// New creates a MakerTaker from trained coefficients.
func New(coef Coefficients, logger *slog.Logger) *MakerTaker {
	return &MakerTaker{
		coef:   coef,
		logger: logger.With(slog.String("component", "maker_taker_classifier")),
	}
}

// Predict returns the maker and taker probabilities for the feature vector
// [notional USD, spread, imbalance, side flag (0 buy, 1 sell)]. The two
// probabilities sum to 1 for any well-formed input. A degenerate
// standardization scale or a non-finite input degrades to {0, 0} rather than
// failing the estimate loop.
func (m *MakerTaker) Predict(features [FeatureCount]float64) domain.MakerTakerProba {
	z := m.coef.Intercept
	for i, x := range features {
		scale := m.coef.Scales[i]
		if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
			m.logger.Warn("degenerate feature scale, degrading prediction",
				slog.Int("feature", i),
				slog.Float64("scale", scale),
			)
			return domain.MakerTakerProba{}
		}
		if math.IsNaN(x) || math.IsInf(x, 0) {
			m.logger.Warn("non-finite feature, degrading prediction",
				slog.Int("feature", i),
			)
			return domain.MakerTakerProba{}
		}
		z += m.coef.Weights[i] * (x - m.coef.Means[i]) / scale
	}

	// The trained label is 1 for taker, so the sigmoid yields the taker
	// probability directly.
	taker := 1 / (1 + math.Exp(-z))
	return domain.MakerTakerProba{
		Maker: 1 - taker,
		Taker: taker,
	}
}
