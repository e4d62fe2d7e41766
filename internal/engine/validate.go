package engine

import (
	"strings"

	"github.com/sells-group/site-quote/internal/model"
)

// ValidationError reports the questionnaire fields that stop the engine from
// producing a recommendation. Field names match the questionnaire's JSON
// keys.
type ValidationError struct {
	Missing []string `json:"missing,omitempty"`
	Invalid []string `json:"invalid,omitempty"`
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, ", "))
	}
	return "engine: questionnaire incomplete: " + strings.Join(parts, "; ")
}

// Validate checks q against the required fields for opts. It returns nil or
// a *ValidationError naming every failing field.
func Validate(q *model.Questionnaire, opts Options) error {
	verr := &ValidationError{}

	// Always required.
	if !present(q.BusinessType) {
		verr.Missing = append(verr.Missing, "businessType")
	}
	if opts.RequireFullForm && countItems(q.PrimaryGoals) == 0 {
		verr.Missing = append(verr.Missing, "primaryGoals")
	}
	if opts.RequireFullForm && !present(q.ContentUpdateFrequency) {
		verr.Missing = append(verr.Missing, "contentUpdateFrequency")
	}
	if opts.RequireFullForm && countItems(q.UserFeatures) == 0 {
		verr.Missing = append(verr.Missing, "userFeatures")
	}
	if !present(q.SellingOnline) {
		verr.Missing = append(verr.Missing, "sellingOnline")
	}
	if !present(q.Timeline) {
		verr.Missing = append(verr.Missing, "timeline")
	}
	if !present(q.Budget) {
		verr.Missing = append(verr.Missing, "budget")
	}

	if opts.StrictNumbers {
		counts := []struct {
			field string
			value model.Count
		}{
			{"pageCount", q.PageCount},
			{"productCount", q.ProductCount},
			{"emailAccounts", q.EmailAccounts},
		}
		for _, c := range counts {
			if _, ok := c.value.Exact(); !c.value.Empty() && !ok {
				verr.Invalid = append(verr.Invalid, c.field)
			}
		}
	}

	if len(verr.Missing) > 0 || len(verr.Invalid) > 0 {
		return verr
	}
	return nil
}
