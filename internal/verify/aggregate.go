package verify

import (
	"math"
	"sort"

	"github.com/veracitylab/veracity/internal/model"
)

// voteEpsilon treats weighted vote sums within this margin as a tie
const voteEpsilon = 1e-9

// aggregateClaim reconciles provider verdicts on one claim by weighted
// vote. Each provider's vote carries its configured static reliability
// weight. A supported/contradicted tie resolves to unverifiable with
// the disagreement flag set.
func aggregateClaim(claim model.Claim, verdicts []model.VerificationVerdict, weight func(name string) float64) model.ClaimVerdict {
	cv := model.ClaimVerdict{
		Claim:    claim,
		Verdicts: verdicts,
	}

	votes := make(map[model.Label]float64)
	var confidences []float64
	var weights []float64
	for _, v := range verdicts {
		if v.Failed {
			continue // Non-vote
		}
		w := weight(v.Provider)
		votes[v.Label] += w
		confidences = append(confidences, v.Confidence)
		weights = append(weights, w)
	}

	if len(confidences) == 0 {
		cv.Label = model.LabelUnverifiable
		cv.Confidence = 0
		return cv
	}

	supported := votes[model.LabelSupported]
	contradicted := votes[model.LabelContradicted]
	conflict := supported > 0 && contradicted > 0

	switch {
	case math.Abs(supported-contradicted) < voteEpsilon && supported > 0:
		cv.Label = model.LabelUnverifiable
		cv.Disagreement = true
	case supported > contradicted && supported >= votes[model.LabelUnverifiable]:
		cv.Label = model.LabelSupported
	case contradicted > supported && contradicted >= votes[model.LabelUnverifiable]:
		cv.Label = model.LabelContradicted
	default:
		cv.Label = model.LabelUnverifiable
	}

	confidence := weightedMean(confidences, weights)
	if conflict {
		// Disagreement penalty: scale down by the normalized variance
		// of the contributing confidences.
		confidence *= 1 - normalizedVariance(confidences)
		cv.Disagreement = true
	}
	cv.Confidence = clamp01(confidence)

	return cv
}

// aggregateArticle folds per-claim verdicts into the article-level
// result. Claims with higher individual confidence dominate both the
// label vote and the aggregate confidence.
func aggregateArticle(result *model.FactCheckResult, claims []model.ClaimVerdict, reviewThreshold float64) {
	result.Claims = claims

	votes := make(map[model.Label]float64)
	var confSum, confSqSum float64
	providers := make(map[string]bool)
	for _, cv := range claims {
		votes[cv.Label] += cv.Confidence
		confSum += cv.Confidence
		confSqSum += cv.Confidence * cv.Confidence
		if cv.Disagreement {
			result.Disagreement = true
		}
		for _, v := range cv.Verdicts {
			if !v.Failed {
				providers[v.Provider] = true
			}
		}
	}

	supported := votes[model.LabelSupported]
	contradicted := votes[model.LabelContradicted]
	switch {
	case math.Abs(supported-contradicted) < voteEpsilon && supported > 0:
		result.Label = model.LabelUnverifiable
		result.Disagreement = true
	case supported > contradicted && supported > 0:
		result.Label = model.LabelSupported
	case contradicted > supported && contradicted > 0:
		result.Label = model.LabelContradicted
	default:
		result.Label = model.LabelUnverifiable
	}

	if confSum > 0 {
		result.Confidence = clamp01(confSqSum / confSum)
	}

	for name := range providers {
		result.ModelsUsed = append(result.ModelsUsed, name)
	}
	sort.Strings(result.ModelsUsed)

	result.Rating = model.RatingFor(result.Label, result.Confidence)
	if result.Disagreement {
		result.Flags = append(result.Flags, FlagDisagreement)
		if result.Confidence < reviewThreshold {
			result.NeedsHumanReview = true
		}
	}
}

func weightedMean(values, weights []float64) float64 {
	var sum, wsum float64
	for i, v := range values {
		sum += v * weights[i]
		wsum += weights[i]
	}
	if wsum == 0 {
		return 0
	}
	return sum / wsum
}

// normalizedVariance maps the population variance of values in [0,1]
// onto [0,1]; 0.25 is the maximum possible variance on that interval.
func normalizedVariance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))

	return clamp01(variance / 0.25)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
