package ml

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

type ConfidenceStatus string

const (
	ConfidenceAvailable   ConfidenceStatus = "available"
	ConfidenceUnsupported ConfidenceStatus = "unsupported"
	ConfidenceFailed      ConfidenceStatus = "failed"
)

type PredictionResult struct {
	Label            int              `json:"label"`
	HasDisease       bool             `json:"has_disease"`
	Confidence       *float64         `json:"confidence,omitempty"`
	ConfidenceStatus ConfidenceStatus `json:"confidence_status"`
}

// Predictor runs encode -> scale -> predict against one artifact bundle.
// Results are cached per observation; the bundle is read-only so a cached
// result stays valid for the predictor's lifetime.
type Predictor struct {
	artifacts *Artifacts
	cache     *lru.Cache[RawObservation, PredictionResult]
	logger    *zap.Logger
}

func NewPredictor(artifacts *Artifacts, cacheSize int, logger *zap.Logger) (*Predictor, error) {
	if artifacts == nil {
		return nil, errors.New("artifacts is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Predictor{artifacts: artifacts, logger: logger}
	if cacheSize > 0 {
		cache, err := lru.New[RawObservation, PredictionResult](cacheSize)
		if err != nil {
			return nil, err
		}
		p.cache = cache
	}
	return p, nil
}

func (p *Predictor) Artifacts() *Artifacts {
	return p.artifacts
}

func (p *Predictor) Predict(ctx context.Context, obs RawObservation) (PredictionResult, error) {
	if err := ctx.Err(); err != nil {
		return PredictionResult{}, err
	}
	if p.cache != nil {
		if result, ok := p.cache.Get(obs); ok {
			return result, nil
		}
	}

	if fields := obs.OutOfDomain(); len(fields) > 0 {
		p.logger.Warn("observation has categories outside the form domain", zap.Strings("fields", fields))
	}

	vector, err := Encode(obs, p.artifacts.Schema)
	if err != nil {
		return PredictionResult{}, err
	}
	scaled, err := p.artifacts.Scaler.Transform(vector)
	if err != nil {
		return PredictionResult{}, fmt.Errorf("scale: %w", err)
	}
	label, err := p.artifacts.Model.Predict(scaled)
	if err != nil {
		return PredictionResult{}, fmt.Errorf("predict: %w", err)
	}

	result := PredictionResult{
		Label:            label,
		HasDisease:       label == LabelDisease,
		ConfidenceStatus: ConfidenceUnsupported,
	}
	if estimator, ok := p.artifacts.Model.(ProbabilityEstimator); ok {
		confidence, err := confidenceOf(estimator, scaled)
		if err != nil {
			p.logger.Error("probability estimate failed", zap.Error(err))
			result.ConfidenceStatus = ConfidenceFailed
		} else {
			result.Confidence = &confidence
			result.ConfidenceStatus = ConfidenceAvailable
		}
	}

	if p.cache != nil && result.ConfidenceStatus != ConfidenceFailed {
		p.cache.Add(obs, result)
	}
	return result, nil
}

// confidenceOf is the largest class probability as a percentage.
func confidenceOf(estimator ProbabilityEstimator, scaled []float64) (float64, error) {
	proba, err := estimator.PredictProba(scaled)
	if err != nil {
		return 0, err
	}
	if len(proba) == 0 {
		return 0, errors.New("empty probability vector")
	}
	best := proba[0]
	for _, v := range proba[1:] {
		if v > best {
			best = v
		}
	}
	return best * 100, nil
}
