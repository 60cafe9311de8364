// Package scoring holds the pure health and sentiment rules of the engine.
// Nothing here touches storage; services feed it values and persist the results.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/straye-as/success-api/internal/domain"
)

// Health components combined into a score
const (
	ComponentUsageFrequency = "usage_frequency"
	ComponentBreadth        = "breadth"
	ComponentDepth          = "depth"
)

// Rule thresholds
const (
	// DipThreshold is the trend below which a health_dip alert is raised
	DipThreshold = -0.1
	// NegativeSentimentAlertThreshold is the score below which a sentiment_negative alert is raised
	NegativeSentimentAlertThreshold = -0.4
	// SentimentLabelBand separates neutral from positive and negative labels
	SentimentLabelBand = 0.2
	// WeightSumTolerance is the allowed deviation from 1.0 in strict mode
	WeightSumTolerance = 0.01

	HealthyThreshold = 0.70
	AtRiskThreshold  = 0.40
)

// Revenue-at-risk selection
const (
	RevenueAtRiskMinARR   = 100000
	RevenueAtRiskMaxScore = 0.50
)

var (
	ErrEmptyWeights     = errors.New("weights must not be empty")
	ErrInvalidWeight    = errors.New("weights must be finite and non-negative")
	ErrWeightSum        = errors.New("weights must sum to 1.0")
	ErrInvalidMetric    = errors.New("metric values must be finite")
	ErrEmptyComponent   = errors.New("component name must not be empty")
	ErrInvalidSentiment = errors.New("sentiment score must be finite")
)

// Weights maps a component name to its weight
type Weights map[string]float64

// Components returns the components that contribute to a score, in a stable order
func Components() []string {
	return []string{ComponentUsageFrequency, ComponentBreadth, ComponentDepth}
}

// DefaultWeights is used for any stage without configured weights
func DefaultWeights() Weights {
	return Weights{
		ComponentUsageFrequency: 0.4,
		ComponentBreadth:        0.3,
		ComponentDepth:          0.3,
	}
}

// Sum adds up all weights
func (w Weights) Sum() float64 {
	var sum float64
	for _, v := range w {
		sum += v
	}
	return sum
}

// ValidateWeights rejects empty maps, blank names, and negative or non-finite
// values. When strict is set the weights must also sum to 1.0 within tolerance.
func ValidateWeights(w Weights, strict bool) error {
	if len(w) == 0 {
		return ErrEmptyWeights
	}
	names := make([]string, 0, len(w))
	for name := range w {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return ErrEmptyComponent
		}
		v := w[name]
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s=%v", ErrInvalidWeight, name, v)
		}
	}
	if strict {
		if sum := w.Sum(); math.Abs(sum-1.0) > WeightSumTolerance {
			return fmt.Errorf("%w: got %.4f", ErrWeightSum, sum)
		}
	}
	return nil
}

// ValidateMetrics rejects NaN and infinite metric values
func ValidateMetrics(metrics map[string]float64) error {
	for name, v := range metrics {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s", ErrInvalidMetric, name)
		}
	}
	return nil
}

// Calculate combines metrics with weights over the known components.
// Unlisted metric keys are ignored; missing metrics and weights count as 0.
func Calculate(metrics map[string]float64, w Weights) float64 {
	var score float64
	for _, c := range Components() {
		score += metrics[c] * w[c]
	}
	return score
}

// Trend returns score minus the previous score, or nil without a previous score
func Trend(score float64, previous *float64) *float64 {
	if previous == nil {
		return nil
	}
	t := score - *previous
	return &t
}

// IsDip reports whether a trend warrants a health_dip alert. A nil trend
// (first score for an account) never does.
func IsDip(trend *float64) bool {
	return trend != nil && *trend < DipThreshold
}

// Category buckets a score for dashboards
func Category(score float64) domain.HealthCategory {
	switch {
	case score >= HealthyThreshold:
		return domain.HealthCategoryHealthy
	case score >= AtRiskThreshold:
		return domain.HealthCategoryAtRisk
	default:
		return domain.HealthCategoryCritical
	}
}

// IsRevenueAtRisk reports whether an account qualifies for the revenue-at-risk list
func IsRevenueAtRisk(arr, score float64) bool {
	return arr > RevenueAtRiskMinARR && score < RevenueAtRiskMaxScore
}

// ClampSentiment bounds a provider score to [-1, 1]
func ClampSentiment(score float64) float64 {
	return math.Max(-1, math.Min(1, score))
}

// SentimentLabel derives a label from a sentiment score
func SentimentLabel(score float64) domain.SentimentLabel {
	switch {
	case score < -SentimentLabelBand:
		return domain.SentimentNegative
	case score > SentimentLabelBand:
		return domain.SentimentPositive
	default:
		return domain.SentimentNeutral
	}
}

// ResolveSentimentLabel keeps a valid provider label and derives one otherwise
func ResolveSentimentLabel(provided string, score float64) domain.SentimentLabel {
	switch label := domain.SentimentLabel(strings.ToLower(strings.TrimSpace(provided))); label {
	case domain.SentimentNegative, domain.SentimentNeutral, domain.SentimentPositive:
		return label
	}
	return SentimentLabel(score)
}

// IsNegativeSentiment reports whether a score warrants a sentiment_negative alert
func IsNegativeSentiment(score float64) bool {
	return score < NegativeSentimentAlertThreshold
}
