package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Scores holds the raw accumulator totals produced by the classifier.
type Scores struct {
	Static    int `json:"static"`
	Dynamic   int `json:"dynamic"`
	Ecommerce int `json:"ecommerce"`
}

// Recommendation is the package decision for a questionnaire.
type Recommendation struct {
	Package    PackageType `json:"package"`
	Confidence int         `json:"confidence"`
	Addons     []string    `json:"addons"`
	Scores     Scores      `json:"scores"`
}

// LineItem is one priced entry of a quote.
type LineItem struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Price     decimal.Decimal `json:"price"`
}

// PaymentPlan is a long-term commitment option offered alongside a quote.
type PaymentPlan struct {
	Years           int             `json:"years"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Discount        decimal.Decimal `json:"discount"`
	Total           decimal.Decimal `json:"total"`
}

// Quote is the itemized price for a recommended package.
type Quote struct {
	Package           PackageType     `json:"package"`
	RequestedCurrency string          `json:"requested_currency"`
	Currency          string          `json:"currency"`
	BasePrice         decimal.Decimal `json:"base_price"`
	Items             []LineItem      `json:"items"`
	FeatureCost       decimal.Decimal `json:"feature_cost"`
	FinalPrice        decimal.Decimal `json:"final_price"`
	MonthlyFee        decimal.Decimal `json:"monthly_fee"`
	Plans             []PaymentPlan   `json:"plans,omitempty"`
	// Fallbacks lists the price fields that were not found for the
	// requested currency and were resolved further down the chain.
	Fallbacks []string `json:"fallbacks,omitempty"`
}

// Contact is the person a lead belongs to.
type Contact struct {
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
	Phone string `json:"phone,omitempty" yaml:"phone,omitempty"`
}

// Lead is a persisted questionnaire submission with its computed result.
type Lead struct {
	ID             string         `json:"id"`
	Contact        Contact        `json:"contact"`
	Questionnaire  Questionnaire  `json:"questionnaire"`
	Recommendation Recommendation `json:"recommendation"`
	Quote          Quote          `json:"quote"`
	CreatedAt      time.Time      `json:"created_at"`
}
