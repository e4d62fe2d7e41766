package engine

import "github.com/sells-group/site-quote/internal/model"

// Score runs every scoring rule against q and returns the accumulator
// totals. The static accumulator is never incremented; it is the floor the
// other two have to beat.
func Score(q *model.Questionnaire) model.Scores {
	var s model.Scores
	for _, r := range ScoringRules {
		if !r.Match(q) {
			continue
		}
		switch r.Target {
		case model.PackageEcommerce:
			s.Ecommerce += r.Weight
		case model.PackageDynamic:
			s.Dynamic += r.Weight
		default:
			s.Static += r.Weight
		}
	}
	return s
}

// MatchedRules returns the names of the scoring rules that fired for q, in
// rule order.
func MatchedRules(q *model.Questionnaire) []string {
	var names []string
	for _, r := range ScoringRules {
		if r.Match(q) {
			names = append(names, r.Name)
		}
	}
	return names
}

// Decide picks the package for a set of scores. Ecommerce must strictly beat
// both other accumulators, dynamic must strictly beat static, and static wins
// everything else, including an all-zero tie.
func Decide(s model.Scores) model.PackageType {
	switch {
	case s.Ecommerce > s.Dynamic && s.Ecommerce > s.Static:
		return model.PackageEcommerce
	case s.Dynamic > s.Static:
		return model.PackageDynamic
	default:
		return model.PackageStatic
	}
}

// Classify returns the recommended package for q.
func Classify(q *model.Questionnaire) model.PackageType {
	return Decide(Score(q))
}
