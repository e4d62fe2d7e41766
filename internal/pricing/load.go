package pricing

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Source supplies the pricing table for a quote session.
type Source interface {
	LoadPricing(ctx context.Context) (Table, error)
}

// Fixed is a Source that always returns the same table.
type Fixed Table

// LoadPricing returns the fixed table.
func (f Fixed) LoadPricing(_ context.Context) (Table, error) {
	return Table(f), nil
}

// File is a Source backed by a YAML pricing file. The file is read on every
// call so edits are picked up without a restart.
type File struct {
	Path string
}

// LoadPricing reads and validates the pricing file.
func (f File) LoadPricing(_ context.Context) (Table, error) {
	return LoadFile(f.Path)
}

// LoadFile reads a pricing table from a YAML file of the form
//
//	currencies:
//	  USD:
//	    setup: {static: 499, dynamic: 999, ecommerce: 1999}
//	    ...
func LoadFile(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pricing: read %s", path)
	}
	return Parse(data)
}

// Parse decodes a YAML pricing document, normalizes its currency codes and
// validates it.
func Parse(data []byte) (Table, error) {
	var doc struct {
		Currencies map[string]Entry `yaml:"currencies"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "pricing: parse")
	}
	if len(doc.Currencies) == 0 {
		return nil, eris.New("pricing: no currencies defined")
	}

	table := make(Table, len(doc.Currencies))
	for code, entry := range doc.Currencies {
		norm := NormalizeCurrency(code)
		if _, dup := table[norm]; dup {
			return nil, eris.Errorf("pricing: currency %s defined more than once", norm)
		}
		table[norm] = entry
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// Marshal encodes t in the same YAML layout Parse reads.
func (t Table) Marshal() ([]byte, error) {
	doc := struct {
		Currencies Table `yaml:"currencies"`
	}{Currencies: t}
	out, err := yaml.Marshal(doc)
	return out, eris.Wrap(err, "pricing: marshal")
}

// Validate checks that every currency code is ISO 4217, no price is
// negative, and discounts are percentages.
func (t Table) Validate() error {
	var errs []string

	codes := make([]string, 0, len(t))
	for code := range t {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		if err := ValidateCurrency(code); err != nil {
			errs = append(errs, fmt.Sprintf("%s: unknown currency code", code))
			continue
		}
		errs = append(errs, t[code].validate(code)...)
	}

	if len(errs) > 0 {
		return eris.Errorf("pricing: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Validate checks a single entry.
func (e Entry) Validate(code string) error {
	if errs := e.validate(code); len(errs) > 0 {
		return eris.Errorf("pricing: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (e Entry) validate(code string) []string {
	var errs []string
	nonNeg := func(field string, v *decimal.Decimal) {
		if v != nil && v.IsNegative() {
			errs = append(errs, fmt.Sprintf("%s.%s must be >= 0", code, field))
		}
	}

	nonNeg("setup.static", e.Setup.Static)
	nonNeg("setup.dynamic", e.Setup.Dynamic)
	nonNeg("setup.ecommerce", e.Setup.Ecommerce)
	nonNeg("monthly.static", e.Monthly.Static)
	nonNeg("monthly.dynamic", e.Monthly.Dynamic)
	nonNeg("monthly.ecommerce", e.Monthly.Ecommerce)
	nonNeg("units.extra_page", e.Units.ExtraPage)
	nonNeg("units.extra_product", e.Units.ExtraProduct)
	nonNeg("units.extra_payment_gateway", e.Units.ExtraPaymentGateway)
	nonNeg("units.extra_email_account", e.Units.ExtraEmailAccount)

	features := make([]string, 0, len(e.Features))
	for f := range e.Features {
		features = append(features, string(f))
	}
	sort.Strings(features)
	for _, f := range features {
		v := e.Features[Feature(f)]
		nonNeg("features."+f, &v)
	}

	hundred := decimal.NewFromInt(100)
	for years := 1; years <= 3; years++ {
		if d := e.Discounts.get(years); d != nil && (d.IsNegative() || d.GreaterThan(hundred)) {
			errs = append(errs, fmt.Sprintf("%s.%s must be between 0 and 100", code, discountField(years)))
		}
	}
	return errs
}
