package pricing

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/site-quote/internal/model"
)

// Prices holds one resolved price per package type.
type Prices struct {
	Static    decimal.Decimal `json:"static"`
	Dynamic   decimal.Decimal `json:"dynamic"`
	Ecommerce decimal.Decimal `json:"ecommerce"`
}

// For returns the price for pkg.
func (p Prices) For(pkg model.PackageType) decimal.Decimal {
	switch pkg {
	case model.PackageDynamic:
		return p.Dynamic
	case model.PackageEcommerce:
		return p.Ecommerce
	default:
		return p.Static
	}
}

// Resolved is a fully populated price set for one currency.
type Resolved struct {
	Requested           string                      `json:"requested"`
	Currency            string                      `json:"currency"`
	Setup               Prices                      `json:"setup"`
	Monthly             Prices                      `json:"monthly"`
	ExtraPage           decimal.Decimal             `json:"extra_page"`
	ExtraProduct        decimal.Decimal             `json:"extra_product"`
	ExtraPaymentGateway decimal.Decimal             `json:"extra_payment_gateway"`
	ExtraEmailAccount   decimal.Decimal             `json:"extra_email_account"`
	Features            map[Feature]decimal.Decimal `json:"features"`
	Discounts           map[int]decimal.Decimal     `json:"discounts"`
	// Fallbacks names every field the selected entry did not supply, in
	// resolution order.
	Fallbacks []string `json:"fallbacks,omitempty"`
}

// Feature returns the resolved price for f. Unknown features cost nothing.
func (r Resolved) Feature(f Feature) decimal.Decimal {
	if p, ok := r.Features[f]; ok {
		return p
	}
	return DefaultFeaturePrice(f)
}

// Resolve builds a complete price set for currency. The chain is the
// requested currency's entry, then the USD entry, applied field by field.
// A setup, monthly or unit price neither entry supplies is zero; feature
// prices and plan discounts fall back to their built-in constants. An
// unknown or absent currency resolves exactly as USD does. Resolve never
// fails.
func (t Table) Resolve(currency string) Resolved {
	requested := NormalizeCurrency(currency)

	selected := DefaultCurrency
	var chain []Entry
	if e, ok := t[requested]; ok {
		selected = requested
		chain = append(chain, e)
	}
	if selected != DefaultCurrency || len(chain) == 0 {
		if e, ok := t[DefaultCurrency]; ok {
			chain = append(chain, e)
		}
	}

	r := &resolver{chain: chain}
	out := Resolved{
		Requested: requested,
		Currency:  selected,
		Setup: Prices{
			Static:    r.price("setup.static", func(e Entry) *decimal.Decimal { return e.Setup.Static }, decimal.Zero),
			Dynamic:   r.price("setup.dynamic", func(e Entry) *decimal.Decimal { return e.Setup.Dynamic }, decimal.Zero),
			Ecommerce: r.price("setup.ecommerce", func(e Entry) *decimal.Decimal { return e.Setup.Ecommerce }, decimal.Zero),
		},
		Monthly: Prices{
			Static:    r.price("monthly.static", func(e Entry) *decimal.Decimal { return e.Monthly.Static }, decimal.Zero),
			Dynamic:   r.price("monthly.dynamic", func(e Entry) *decimal.Decimal { return e.Monthly.Dynamic }, decimal.Zero),
			Ecommerce: r.price("monthly.ecommerce", func(e Entry) *decimal.Decimal { return e.Monthly.Ecommerce }, decimal.Zero),
		},
		ExtraPage:           r.price("units.extra_page", func(e Entry) *decimal.Decimal { return e.Units.ExtraPage }, decimal.Zero),
		ExtraProduct:        r.price("units.extra_product", func(e Entry) *decimal.Decimal { return e.Units.ExtraProduct }, decimal.Zero),
		ExtraPaymentGateway: r.price("units.extra_payment_gateway", func(e Entry) *decimal.Decimal { return e.Units.ExtraPaymentGateway }, decimal.Zero),
		ExtraEmailAccount:   r.price("units.extra_email_account", func(e Entry) *decimal.Decimal { return e.Units.ExtraEmailAccount }, decimal.Zero),
		Features:            make(map[Feature]decimal.Decimal, len(defaultFeatures)),
		Discounts:           make(map[int]decimal.Decimal, len(defaultDiscounts)),
	}

	for _, f := range append(append([]Feature{}, Catalog...), FeatureAdvancedCMS, FeatureUserDashboard) {
		out.Features[f] = r.feature(f)
	}
	for years := 1; years <= 3; years++ {
		out.Discounts[years] = r.price(discountField(years), func(e Entry) *decimal.Decimal { return e.Discounts.get(years) }, defaultDiscounts[years])
	}
	out.Fallbacks = r.fallbacks

	if len(out.Fallbacks) > 0 || out.Currency != requested {
		zap.L().Debug("pricing: resolved with fallbacks",
			zap.String("requested", requested),
			zap.String("currency", out.Currency),
			zap.Strings("fields", out.Fallbacks),
		)
	}
	return out
}

// resolver walks the fallback chain and records which fields the first
// entry in the chain could not supply.
type resolver struct {
	chain     []Entry
	fallbacks []string
}

func (r *resolver) price(field string, get func(Entry) *decimal.Decimal, def decimal.Decimal) decimal.Decimal {
	for i, e := range r.chain {
		if v := get(e); v != nil {
			if i > 0 {
				r.fallbacks = append(r.fallbacks, field)
			}
			return *v
		}
	}
	r.fallbacks = append(r.fallbacks, field)
	return def
}

func (r *resolver) feature(f Feature) decimal.Decimal {
	return r.price("features."+string(f), func(e Entry) *decimal.Decimal {
		if v, ok := e.Features[f]; ok {
			return &v
		}
		return nil
	}, DefaultFeaturePrice(f))
}

func discountField(years int) string {
	switch years {
	case 1:
		return "discounts.one_year"
	case 2:
		return "discounts.two_year"
	default:
		return "discounts.three_year"
	}
}
