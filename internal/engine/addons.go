package engine

import "github.com/sells-group/site-quote/internal/model"

// DeriveAddons returns the add-ons recommended for q under pkg, in rule
// order with duplicates removed.
func DeriveAddons(q *model.Questionnaire, pkg model.PackageType) []string {
	seen := make(map[string]bool, len(AddonRules))
	addons := make([]string, 0, len(AddonRules))
	for _, r := range AddonRules {
		if seen[r.Name] || !r.Match(q, pkg) {
			continue
		}
		seen[r.Name] = true
		addons = append(addons, r.Name)
	}
	return addons
}
