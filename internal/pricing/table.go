// Package pricing holds the currency-indexed price table used to quote
// website packages and resolves it into a complete price set.
package pricing

import "github.com/shopspring/decimal"

// DefaultCurrency is the currency every other entry falls back to.
const DefaultCurrency = "USD"

// Feature identifies a separately priced optional feature.
type Feature string

const (
	FeatureContactForms      Feature = "contact_forms"
	FeatureNewsletterSignup  Feature = "newsletter_signup"
	FeatureSocialIntegration Feature = "social_integration"
	FeatureMapsIntegration   Feature = "maps_integration"
	FeatureBookingSystem     Feature = "booking_system"
	FeatureLiveChat          Feature = "live_chat"
	FeatureMultiLanguage     Feature = "multi_language"
	FeatureSearch            Feature = "search"
	FeatureGallery           Feature = "gallery"
	FeatureVideo             Feature = "video"
	FeatureAdvancedCMS       Feature = "advanced_cms"
	FeatureUserDashboard     Feature = "user_dashboard"
)

// Catalog is the set of features a visitor can pick directly, in the order
// they are itemized.
var Catalog = []Feature{
	FeatureContactForms,
	FeatureNewsletterSignup,
	FeatureSocialIntegration,
	FeatureMapsIntegration,
	FeatureBookingSystem,
	FeatureLiveChat,
	FeatureMultiLanguage,
	FeatureSearch,
	FeatureGallery,
	FeatureVideo,
}

var featureLabels = map[Feature]string{
	FeatureContactForms:      "Contact Forms",
	FeatureNewsletterSignup:  "Newsletter Signup",
	FeatureSocialIntegration: "Social Media Integration",
	FeatureMapsIntegration:   "Google Maps Integration",
	FeatureBookingSystem:     "Booking System",
	FeatureLiveChat:          "Live Chat",
	FeatureMultiLanguage:     "Multi-language",
	FeatureSearch:            "Search",
	FeatureGallery:           "Gallery",
	FeatureVideo:             "Video",
	FeatureAdvancedCMS:       "Advanced CMS",
	FeatureUserDashboard:     "User Dashboard",
}

// Label returns the display name used on quotes.
func (f Feature) Label() string {
	if l, ok := featureLabels[f]; ok {
		return l
	}
	return string(f)
}

// Table maps a currency code to its price entry.
type Table map[string]Entry

// Entry is the price record for one currency. Nil fields and missing feature
// keys are treated as absent and resolved from the fallback chain.
type Entry struct {
	Setup     PackagePrices               `json:"setup" yaml:"setup"`
	Monthly   PackagePrices               `json:"monthly" yaml:"monthly"`
	Units     UnitPrices                  `json:"units" yaml:"units"`
	Features  map[Feature]decimal.Decimal `json:"features,omitempty" yaml:"features,omitempty"`
	Discounts Discounts                   `json:"discounts" yaml:"discounts"`
}

// PackagePrices holds one price per package type.
type PackagePrices struct {
	Static    *decimal.Decimal `json:"static,omitempty" yaml:"static,omitempty"`
	Dynamic   *decimal.Decimal `json:"dynamic,omitempty" yaml:"dynamic,omitempty"`
	Ecommerce *decimal.Decimal `json:"ecommerce,omitempty" yaml:"ecommerce,omitempty"`
}

// UnitPrices holds per-unit prices for quantities above a package allowance.
type UnitPrices struct {
	ExtraPage           *decimal.Decimal `json:"extra_page,omitempty" yaml:"extra_page,omitempty"`
	ExtraProduct        *decimal.Decimal `json:"extra_product,omitempty" yaml:"extra_product,omitempty"`
	ExtraPaymentGateway *decimal.Decimal `json:"extra_payment_gateway,omitempty" yaml:"extra_payment_gateway,omitempty"`
	ExtraEmailAccount   *decimal.Decimal `json:"extra_email_account,omitempty" yaml:"extra_email_account,omitempty"`
}

// Discounts holds long-term commitment discounts as percentages.
type Discounts struct {
	OneYear   *decimal.Decimal `json:"one_year,omitempty" yaml:"one_year,omitempty"`
	TwoYear   *decimal.Decimal `json:"two_year,omitempty" yaml:"two_year,omitempty"`
	ThreeYear *decimal.Decimal `json:"three_year,omitempty" yaml:"three_year,omitempty"`
}

func (d Discounts) get(years int) *decimal.Decimal {
	switch years {
	case 1:
		return d.OneYear
	case 2:
		return d.TwoYear
	case 3:
		return d.ThreeYear
	}
	return nil
}
