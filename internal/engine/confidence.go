package engine

import (
	"strings"

	"github.com/sells-group/site-quote/internal/model"
)

// Confidence weights. The base weights sum to 100.
const (
	weightBusinessName  = 10
	weightBusinessType  = 10
	weightPrimaryGoals  = 15
	weightContentFreq   = 15
	weightUserFeatures  = 15
	weightSellingOnline = 10
	weightTimeline      = 10
	weightBudget        = 15

	bonusManyGoals     = 5
	bonusManyFeatures  = 5
	bonusIntegrations  = 5
	maxConfidenceScore = 100
)

// Confidence scores how completely q was answered, from 0 to 100. It is a
// completeness heuristic over the answered fields, not a statistical
// measure of how likely the recommendation is to be right.
func Confidence(q *model.Questionnaire) int {
	score := 0

	if present(q.BusinessName) {
		score += weightBusinessName
	}
	if present(q.BusinessType) {
		score += weightBusinessType
	}
	if countItems(q.PrimaryGoals) > 0 {
		score += weightPrimaryGoals
	}
	if present(q.ContentUpdateFrequency) {
		score += weightContentFreq
	}
	if countItems(q.UserFeatures) > 0 {
		score += weightUserFeatures
	}
	if present(q.SellingOnline) {
		score += weightSellingOnline
	}
	if present(q.Timeline) {
		score += weightTimeline
	}
	if present(q.Budget) {
		score += weightBudget
	}

	// Richer answers earn bonuses; the total is clamped below.
	if countItems(q.PrimaryGoals) > 2 {
		score += bonusManyGoals
	}
	if countItems(q.UserFeatures) > 2 {
		score += bonusManyFeatures
	}
	if countItems(q.Integrations) > 0 {
		score += bonusIntegrations
	}

	return min(maxConfidenceScore, score)
}

func present(s string) bool {
	return strings.TrimSpace(s) != ""
}
