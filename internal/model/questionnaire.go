package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Questionnaire holds the answers collected by the project builder form.
// It is assembled one step at a time by the caller and treated as read-only
// once handed to the engine.
type Questionnaire struct {
	// Business
	BusinessName    string   `json:"businessName,omitempty" yaml:"businessName,omitempty"`
	BusinessType    string   `json:"businessType,omitempty" yaml:"businessType,omitempty"`
	Industry        string   `json:"industry,omitempty" yaml:"industry,omitempty"`
	CurrentPresence string   `json:"currentOnlinePresence,omitempty" yaml:"currentOnlinePresence,omitempty"`
	PrimaryGoals    []string `json:"primaryGoals,omitempty" yaml:"primaryGoals,omitempty"`
	TargetAudience  []string `json:"targetAudience,omitempty" yaml:"targetAudience,omitempty"`

	// Content
	ContentUpdateFrequency string   `json:"contentUpdateFrequency,omitempty" yaml:"contentUpdateFrequency,omitempty"`
	ContentTypes           []string `json:"contentTypes,omitempty" yaml:"contentTypes,omitempty"`
	PageCount              Count    `json:"pageCount,omitempty" yaml:"pageCount,omitempty"`

	// User experience
	UserFeatures       []string `json:"userFeatures,omitempty" yaml:"userFeatures,omitempty"`
	MobileImportance   string   `json:"mobileUsageImportance,omitempty" yaml:"mobileUsageImportance,omitempty"`
	AccessibilityNeeds []string `json:"accessibilityNeeds,omitempty" yaml:"accessibilityNeeds,omitempty"`
	SelectedFeatures   []string `json:"selectedFeatures,omitempty" yaml:"selectedFeatures,omitempty"`

	// E-commerce
	SellingOnline  string   `json:"sellingOnline,omitempty" yaml:"sellingOnline,omitempty"`
	ProductTypes   []string `json:"productTypes,omitempty" yaml:"productTypes,omitempty"`
	ProductCount   Count    `json:"productCount,omitempty" yaml:"productCount,omitempty"`
	PaymentMethods []string `json:"paymentMethods,omitempty" yaml:"paymentMethods,omitempty"`

	// Technical
	Integrations    []string `json:"integrations,omitempty" yaml:"integrations,omitempty"`
	SecurityNeeds   []string `json:"securityNeeds,omitempty" yaml:"securityNeeds,omitempty"`
	ComplianceNeeds []string `json:"complianceNeeds,omitempty" yaml:"complianceNeeds,omitempty"`
	EmailAccounts   Count    `json:"emailAccounts,omitempty" yaml:"emailAccounts,omitempty"`

	// Timeline and budget
	Timeline string `json:"timeline,omitempty" yaml:"timeline,omitempty"`
	Budget   string `json:"budget,omitempty" yaml:"budget,omitempty"`
	Urgency  string `json:"urgency,omitempty" yaml:"urgency,omitempty"`
}

// Count is a numeric answer kept in its raw form. Form widgets submit counts
// as numbers, numeric strings, or range labels such as "51-100", so the raw
// text is preserved and interpreted on demand.
type Count string

// Int returns the leading integer of the answer. The second return value is
// false when the answer is empty or does not start with a digit.
func (c Count) Int() (int, bool) {
	s := strings.TrimSpace(string(c))
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Exact parses the whole answer as a non-negative integer.
func (c Count) Exact() (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(string(c)))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Empty reports whether no answer was given.
func (c Count) Empty() bool {
	return strings.TrimSpace(string(c)) == ""
}

// UnmarshalJSON accepts any JSON value. Strings are unquoted, null clears
// the answer.
func (c *Count) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*c = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return eris.Wrap(err, "model: decode count")
		}
		*c = Count(s)
	default:
		// Numbers and anything else are kept verbatim; Int decides later.
		*c = Count(data)
	}
	return nil
}

// UnmarshalYAML keeps the scalar text regardless of its resolved YAML type.
func (c *Count) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return eris.Errorf("model: count must be a scalar, got kind %d", value.Kind)
	}
	if value.Tag == "!!null" {
		*c = ""
		return nil
	}
	*c = Count(value.Value)
	return nil
}
