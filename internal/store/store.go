package store

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/site-quote/internal/model"
	"github.com/sells-group/site-quote/internal/pricing"
)

// ErrNotFound is returned when a lead or pricing entry does not exist.
var ErrNotFound = eris.New("store: not found")

// defaultListLimit caps ListLeads when the filter sets no limit.
const defaultListLimit = 100

// LeadFilter specifies criteria for listing leads.
type LeadFilter struct {
	Package string `json:"package,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for leads and pricing.
type Store interface {
	// Leads
	SaveLead(ctx context.Context, lead *model.Lead) error
	GetLead(ctx context.Context, id string) (*model.Lead, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error)

	// Pricing
	LoadPricing(ctx context.Context) (pricing.Table, error)
	PutCurrencyPricing(ctx context.Context, currency string, entry pricing.Entry) error
	DeleteCurrencyPricing(ctx context.Context, currency string) error
	ImportPricing(ctx context.Context, table pricing.Table) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

var _ pricing.Source = Store(nil)

// prepareLead fills in the ID and creation time of a new lead.
func prepareLead(lead *model.Lead) {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}
}

// leadDocs holds the JSON columns of a lead row.
type leadDocs struct {
	questionnaire  []byte
	recommendation []byte
	quote          []byte
}

func marshalLead(lead *model.Lead) (leadDocs, error) {
	var d leadDocs
	var err error
	if d.questionnaire, err = json.Marshal(lead.Questionnaire); err != nil {
		return d, eris.Wrap(err, "store: marshal questionnaire")
	}
	if d.recommendation, err = json.Marshal(lead.Recommendation); err != nil {
		return d, eris.Wrap(err, "store: marshal recommendation")
	}
	if d.quote, err = json.Marshal(lead.Quote); err != nil {
		return d, eris.Wrap(err, "store: marshal quote")
	}
	return d, nil
}

func (d leadDocs) unmarshalInto(lead *model.Lead) error {
	if err := json.Unmarshal(d.questionnaire, &lead.Questionnaire); err != nil {
		return eris.Wrap(err, "store: unmarshal questionnaire")
	}
	if err := json.Unmarshal(d.recommendation, &lead.Recommendation); err != nil {
		return eris.Wrap(err, "store: unmarshal recommendation")
	}
	if err := json.Unmarshal(d.quote, &lead.Quote); err != nil {
		return eris.Wrap(err, "store: unmarshal quote")
	}
	return nil
}

// pricingKey normalizes and validates a currency code used as a pricing
// row key.
func pricingKey(currency string) (string, error) {
	if strings.TrimSpace(currency) == "" {
		return "", eris.New("store: currency is required")
	}
	code := pricing.NormalizeCurrency(currency)
	if err := pricing.ValidateCurrency(code); err != nil {
		return "", err
	}
	return code, nil
}

func marshalEntry(code string, entry pricing.Entry) ([]byte, error) {
	if err := entry.Validate(code); err != nil {
		return nil, err
	}
	data, err := json.Marshal(entry)
	return data, eris.Wrapf(err, "store: marshal pricing %s", code)
}

func unmarshalEntry(code string, data []byte) (pricing.Entry, error) {
	var entry pricing.Entry
	err := json.Unmarshal(data, &entry)
	return entry, eris.Wrapf(err, "store: unmarshal pricing %s", code)
}

func sortedCodes(table pricing.Table) []string {
	codes := make([]string, 0, len(table))
	for code := range table {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func listLimit(filter LeadFilter) int {
	if filter.Limit <= 0 {
		return defaultListLimit
	}
	return filter.Limit
}
