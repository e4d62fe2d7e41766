package pricing

import "github.com/shopspring/decimal"

// Built-in USD prices served by DefaultTable. Feature prices and plan
// discounts also back Resolve when no table entry supplies them.
var (
	defaultSetup = Prices{
		Static:    decimal.NewFromInt(499),
		Dynamic:   decimal.NewFromInt(999),
		Ecommerce: decimal.NewFromInt(1999),
	}
	defaultMonthly = Prices{
		Static:    decimal.NewFromInt(29),
		Dynamic:   decimal.NewFromInt(59),
		Ecommerce: decimal.NewFromInt(99),
	}

	defaultExtraPage           = decimal.NewFromInt(50)
	defaultExtraProduct        = decimal.NewFromInt(5)
	defaultExtraPaymentGateway = decimal.NewFromInt(100)
	defaultExtraEmailAccount   = decimal.NewFromInt(10)

	defaultFeatures = map[Feature]decimal.Decimal{
		FeatureContactForms:      decimal.NewFromInt(50),
		FeatureNewsletterSignup:  decimal.NewFromInt(75),
		FeatureSocialIntegration: decimal.NewFromInt(100),
		FeatureMapsIntegration:   decimal.NewFromInt(50),
		FeatureBookingSystem:     decimal.NewFromInt(300),
		FeatureLiveChat:          decimal.NewFromInt(150),
		FeatureMultiLanguage:     decimal.NewFromInt(400),
		FeatureSearch:            decimal.NewFromInt(150),
		FeatureGallery:           decimal.NewFromInt(100),
		FeatureVideo:             decimal.NewFromInt(150),
		FeatureAdvancedCMS:       decimal.NewFromInt(300),
		FeatureUserDashboard:     decimal.NewFromInt(500),
	}

	defaultDiscounts = map[int]decimal.Decimal{
		1: decimal.NewFromInt(10),
		2: decimal.NewFromInt(15),
		3: decimal.NewFromInt(20),
	}
)

// DefaultFeaturePrice returns the built-in price of f, or zero for an
// unknown feature.
func DefaultFeaturePrice(f Feature) decimal.Decimal {
	return defaultFeatures[f]
}

// DefaultTable returns a table holding only the built-in USD entry.
func DefaultTable() Table {
	ptr := func(d decimal.Decimal) *decimal.Decimal { return &d }

	features := make(map[Feature]decimal.Decimal, len(defaultFeatures))
	for f, p := range defaultFeatures {
		features[f] = p
	}

	return Table{
		DefaultCurrency: {
			Setup: PackagePrices{
				Static:    ptr(defaultSetup.Static),
				Dynamic:   ptr(defaultSetup.Dynamic),
				Ecommerce: ptr(defaultSetup.Ecommerce),
			},
			Monthly: PackagePrices{
				Static:    ptr(defaultMonthly.Static),
				Dynamic:   ptr(defaultMonthly.Dynamic),
				Ecommerce: ptr(defaultMonthly.Ecommerce),
			},
			Units: UnitPrices{
				ExtraPage:           ptr(defaultExtraPage),
				ExtraProduct:        ptr(defaultExtraProduct),
				ExtraPaymentGateway: ptr(defaultExtraPaymentGateway),
				ExtraEmailAccount:   ptr(defaultExtraEmailAccount),
			},
			Features: features,
			Discounts: Discounts{
				OneYear:   ptr(defaultDiscounts[1]),
				TwoYear:   ptr(defaultDiscounts[2]),
				ThreeYear: ptr(defaultDiscounts[3]),
			},
		},
	}
}
