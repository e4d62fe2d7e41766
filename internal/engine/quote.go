package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sells-group/site-quote/internal/model"
	"github.com/sells-group/site-quote/internal/pricing"
)

// Allowances included in each package before extra pages or email accounts
// are charged.
var (
	includedPages = map[model.PackageType]int{
		model.PackageStatic:    5,
		model.PackageDynamic:   10,
		model.PackageEcommerce: 20,
	}
	includedEmailAccounts = map[model.PackageType]int{
		model.PackageStatic:    1,
		model.PackageDynamic:   3,
		model.PackageEcommerce: 5,
	}
)

// planYears are the long-term commitment terms offered with every quote.
var planYears = []int{1, 2, 3}

var (
	hundred        = decimal.NewFromInt(100)
	monthsPerYear  = decimal.NewFromInt(12)
	planRoundPlace = int32(2)
)

// BuildQuote prices pkg for q against table in currency. The currency is
// resolved through the table's fallback chain, so BuildQuote never fails;
// malformed optional counts are treated as zero.
func BuildQuote(q *model.Questionnaire, pkg model.PackageType, table pricing.Table, currency string) model.Quote {
	prices := table.Resolve(currency)

	quote := model.Quote{
		Package:           pkg,
		RequestedCurrency: prices.Requested,
		Currency:          prices.Currency,
		BasePrice:         prices.Setup.For(pkg),
		MonthlyFee:        prices.Monthly.For(pkg),
		Items:             []model.LineItem{},
		Fallbacks:         prices.Fallbacks,
	}

	itemized := make(map[pricing.Feature]bool)

	// Flat-priced add-ons, in add-on rule order.
	for _, r := range AddonRules {
		if r.Feature == "" || itemized[r.Feature] || !r.Match(q, pkg) {
			continue
		}
		itemized[r.Feature] = true
		quote.Items = append(quote.Items, flatItem(r.Name, prices.Feature(r.Feature)))
	}

	// Unit-priced extras.
	if products, _ := q.ProductCount.Int(); pkg == model.PackageEcommerce && products > includedProducts {
		quote.Items = append(quote.Items, unitItem("Extra Products", products-includedProducts, prices.ExtraProduct))
	}
	if gateways := countItems(q.PaymentMethods); gateways > includedPaymentGateways {
		quote.Items = append(quote.Items, unitItem("Extra Payment Gateways", gateways-includedPaymentGateways, prices.ExtraPaymentGateway))
	}
	if pages, _ := q.PageCount.Int(); pages > includedPages[pkg] {
		quote.Items = append(quote.Items, unitItem("Extra Pages", pages-includedPages[pkg], prices.ExtraPage))
	}
	if emails, _ := q.EmailAccounts.Int(); emails > includedEmailAccounts[pkg] {
		quote.Items = append(quote.Items, unitItem("Extra Email Accounts", emails-includedEmailAccounts[pkg], prices.ExtraEmailAccount))
	}

	// Features picked directly from the catalog, skipping any a rule already
	// priced.
	for _, f := range selectedFeatures(q) {
		if itemized[f] {
			continue
		}
		itemized[f] = true
		quote.Items = append(quote.Items, flatItem(f.Label(), prices.Feature(f)))
	}

	quote.FeatureCost = decimal.Zero
	for _, item := range quote.Items {
		quote.FeatureCost = quote.FeatureCost.Add(item.Price)
	}
	quote.FinalPrice = quote.BasePrice.Add(quote.FeatureCost)
	quote.Plans = buildPlans(quote.FinalPrice, quote.MonthlyFee, prices.Discounts)

	return quote
}

func flatItem(name string, price decimal.Decimal) model.LineItem {
	return model.LineItem{Name: name, Quantity: 1, UnitPrice: price, Price: price}
}

func unitItem(label string, qty int, unit decimal.Decimal) model.LineItem {
	return model.LineItem{
		Name:      fmt.Sprintf("%d %s", qty, label),
		Quantity:  qty,
		UnitPrice: unit,
		Price:     unit.Mul(decimal.NewFromInt(int64(qty))),
	}
}

// selectedFeatures maps the visitor's explicit picks onto the catalog, in
// catalog order. A pick matches by feature key or display label, ignoring
// case; unknown picks are dropped.
func selectedFeatures(q *model.Questionnaire) []pricing.Feature {
	if len(q.SelectedFeatures) == 0 {
		return nil
	}
	picked := make(map[string]bool, len(q.SelectedFeatures))
	for _, s := range q.SelectedFeatures {
		picked[normalize(s)] = true
	}
	var out []pricing.Feature
	for _, f := range pricing.Catalog {
		if picked[string(f)] || picked[normalize(f.Label())] {
			out = append(out, f)
		}
	}
	return out
}

// buildPlans prices each commitment term. The term's discount applies to the
// recurring monthly fees only; the one-off setup price is never discounted.
func buildPlans(final, monthly decimal.Decimal, discounts map[int]decimal.Decimal) []model.PaymentPlan {
	plans := make([]model.PaymentPlan, 0, len(planYears))
	for _, years := range planYears {
		pct := discounts[years]
		recurring := monthly.Mul(monthsPerYear).Mul(decimal.NewFromInt(int64(years)))
		discount := recurring.Mul(pct).Div(hundred).Round(planRoundPlace)
		subtotal := final.Add(recurring)
		plans = append(plans, model.PaymentPlan{
			Years:           years,
			DiscountPercent: pct,
			Subtotal:        subtotal,
			Discount:        discount,
			Total:           subtotal.Sub(discount),
		})
	}
	return plans
}
