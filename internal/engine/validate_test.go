package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/site-quote/internal/model"
)

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		q           model.Questionnaire
		opts        Options
		wantMissing []string
		wantInvalid []string
	}{
		{
			name: "minimal passes",
			q:    minimalQuestionnaire(),
		},
		{
			name:        "empty",
			q:           model.Questionnaire{},
			wantMissing: []string{"businessType", "sellingOnline", "timeline", "budget"},
		},
		{
			name:        "whitespace is missing",
			q:           model.Questionnaire{BusinessType: " ", SellingOnline: "No", Timeline: "ASAP", Budget: "\t"},
			wantMissing: []string{"businessType", "budget"},
		},
		{
			name:        "full form required",
			q:           minimalQuestionnaire(),
			opts:        Options{RequireFullForm: true},
			wantMissing: []string{"primaryGoals", "contentUpdateFrequency", "userFeatures"},
		},
		{
			name: "full form satisfied",
			q:    fullQuestionnaire(),
			opts: Options{RequireFullForm: true},
		},
		{
			name: "lenient numbers",
			q: func() model.Questionnaire {
				q := minimalQuestionnaire()
				q.ProductCount = "lots"
				return q
			}(),
		},
		{
			name: "strict numbers",
			q: func() model.Questionnaire {
				q := minimalQuestionnaire()
				q.PageCount = "12"
				q.ProductCount = "51-100"
				q.EmailAccounts = "-2"
				return q
			}(),
			opts:        Options{StrictNumbers: true},
			wantInvalid: []string{"productCount", "emailAccounts"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(&tt.q, tt.opts)
			if tt.wantMissing == nil && tt.wantInvalid == nil {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantMissing, verr.Missing)
			assert.Equal(t, tt.wantInvalid, verr.Invalid)
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	t.Parallel()
	err := &ValidationError{Missing: []string{"businessType", "budget"}, Invalid: []string{"pageCount"}}
	assert.Equal(t, "engine: questionnaire incomplete: missing businessType, budget; invalid pageCount", err.Error())

	err = &ValidationError{Missing: []string{"timeline"}}
	assert.Equal(t, "engine: questionnaire incomplete: missing timeline", err.Error())
}
