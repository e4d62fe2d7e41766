package engine

import (
	"strings"

	"github.com/sells-group/site-quote/internal/model"
	"github.com/sells-group/site-quote/internal/pricing"
)

// Rule adds Weight to the Target accumulator when Match holds.
type Rule struct {
	Name   string
	Target model.PackageType
	Weight int
	Match  func(q *model.Questionnaire) bool
}

// ScoringRules is the classifier rule set, evaluated in order. Every rule is
// evaluated independently; none short-circuits another.
var ScoringRules = []Rule{
	{
		Name: "business_type_commerce", Target: model.PackageEcommerce, Weight: 3,
		Match: func(q *model.Questionnaire) bool { return businessTypeHas(q, "ecommerce", "store", "retail") },
	},
	{
		Name: "business_type_publishing", Target: model.PackageDynamic, Weight: 2,
		Match: func(q *model.Questionnaire) bool { return businessTypeHas(q, "blog", "news", "media") },
	},
	{
		Name: "business_type_food", Target: model.PackageDynamic, Weight: 2,
		Match: func(q *model.Questionnaire) bool { return businessTypeHas(q, "restaurant", "food") },
	},
	{
		Name: "updates_daily", Target: model.PackageDynamic, Weight: 3,
		Match: func(q *model.Questionnaire) bool { return frequencyIs(q, "daily") },
	},
	{
		Name: "updates_weekly", Target: model.PackageDynamic, Weight: 2,
		Match: func(q *model.Questionnaire) bool { return frequencyIs(q, "weekly") },
	},
	{
		Name: "updates_monthly", Target: model.PackageDynamic, Weight: 1,
		Match: func(q *model.Questionnaire) bool { return frequencyIs(q, "monthly") },
	},
	{
		Name: "feature_user_accounts", Target: model.PackageDynamic, Weight: 2,
		Match: func(q *model.Questionnaire) bool { return listHas(q.UserFeatures, "user accounts") },
	},
	{
		Name: "feature_member_areas", Target: model.PackageDynamic, Weight: 2,
		Match: func(q *model.Questionnaire) bool { return listHas(q.UserFeatures, "member areas") },
	},
	{
		Name: "feature_customer_portal", Target: model.PackageDynamic, Weight: 1,
		Match: func(q *model.Questionnaire) bool { return listHas(q.UserFeatures, "customer portal") },
	},
	{
		Name: "selling_online", Target: model.PackageEcommerce, Weight: 4,
		Match: sellsOnline,
	},
	{
		Name: "goal_sell_products", Target: model.PackageEcommerce, Weight: 3,
		Match: func(q *model.Questionnaire) bool { return listHas(q.PrimaryGoals, "sell products online") },
	},
	{
		Name: "goal_build_community", Target: model.PackageDynamic, Weight: 2,
		Match: func(q *model.Questionnaire) bool { return listHas(q.PrimaryGoals, "build community") },
	},
	{
		Name: "goal_share_content", Target: model.PackageDynamic, Weight: 2,
		Match: func(q *model.Questionnaire) bool { return listHas(q.PrimaryGoals, "share content") },
	},
	{
		Name: "has_integrations", Target: model.PackageDynamic, Weight: 1,
		Match: func(q *model.Questionnaire) bool { return countItems(q.Integrations) > 0 },
	},
}

// AddonRule names an add-on recommended when Match holds. Feature is set for
// add-ons priced as a flat feature; unit-priced add-ons leave it empty and
// are itemized by quantity.
type AddonRule struct {
	Name    string
	Feature pricing.Feature
	Match   func(q *model.Questionnaire, pkg model.PackageType) bool
}

// Thresholds above which extra units are charged.
const (
	includedProducts        = 30
	includedPaymentGateways = 2
)

// AddonRules is the add-on rule set, evaluated in order.
var AddonRules = []AddonRule{
	{
		Name: "Advanced CMS", Feature: pricing.FeatureAdvancedCMS,
		Match: func(q *model.Questionnaire, _ model.PackageType) bool {
			return frequencyIs(q, "daily") || frequencyIs(q, "weekly")
		},
	},
	{
		Name: "Extra Products",
		Match: func(q *model.Questionnaire, pkg model.PackageType) bool {
			n, _ := q.ProductCount.Int()
			return pkg == model.PackageEcommerce && n > includedProducts
		},
	},
	{
		Name: "Extra Payment Gateways",
		Match: func(q *model.Questionnaire, pkg model.PackageType) bool {
			return pkg == model.PackageEcommerce && countItems(q.PaymentMethods) > includedPaymentGateways
		},
	},
	{
		Name: "User Dashboard", Feature: pricing.FeatureUserDashboard,
		Match: func(q *model.Questionnaire, _ model.PackageType) bool {
			return listHas(q.UserFeatures, "user accounts")
		},
	},
	{
		Name: "Google Maps Integration", Feature: pricing.FeatureMapsIntegration,
		Match: func(q *model.Questionnaire, _ model.PackageType) bool {
			return listHas(q.Integrations, "google maps")
		},
	},
	{
		Name: "Social Media Integration", Feature: pricing.FeatureSocialIntegration,
		Match: func(q *model.Questionnaire, _ model.PackageType) bool {
			return listHas(q.Integrations, "social media")
		},
	},
}

// normalize lower-cases s and collapses surrounding whitespace.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// businessTypeHas matches the business type against keywords. Hyphens are
// ignored so "E-Commerce" matches "ecommerce".
func businessTypeHas(q *model.Questionnaire, keywords ...string) bool {
	bt := normalize(q.BusinessType)
	if bt == "" {
		return false
	}
	return containsAny(bt, keywords...) || containsAny(strings.ReplaceAll(bt, "-", ""), keywords...)
}

func frequencyIs(q *model.Questionnaire, freq string) bool {
	return normalize(q.ContentUpdateFrequency) == freq
}

func sellsOnline(q *model.Questionnaire) bool {
	return strings.HasPrefix(normalize(q.SellingOnline), "yes")
}

// listHas reports whether any list item contains phrase, ignoring case.
func listHas(list []string, phrase string) bool {
	for _, item := range list {
		if strings.Contains(normalize(item), phrase) {
			return true
		}
	}
	return false
}

// countItems counts the non-blank entries of list.
func countItems(list []string) int {
	n := 0
	for _, item := range list {
		if strings.TrimSpace(item) != "" {
			n++
		}
	}
	return n
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
