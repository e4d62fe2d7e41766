// Package engine maps a project-builder questionnaire to a recommended
// website package, a completeness score, add-ons and an itemized quote.
//
// Every function in this package is pure: it reads its inputs, allocates
// new outputs and keeps no state, so it is safe to call from any number of
// goroutines.
package engine

import (
	"go.uber.org/zap"

	"github.com/sells-group/site-quote/internal/model"
	"github.com/sells-group/site-quote/internal/pricing"
)

// Options tunes how strictly the engine validates its input.
type Options struct {
	// RequireFullForm also requires primary goals, content-update frequency
	// and user features, the full set the intake form asks for.
	RequireFullForm bool
	// StrictNumbers rejects non-numeric count answers instead of treating
	// them as zero.
	StrictNumbers bool
}

// Result is the engine's output for one questionnaire.
type Result struct {
	Recommendation model.Recommendation `json:"recommendation"`
	Quote          model.Quote          `json:"quote"`
}

// Engine evaluates questionnaires under a fixed set of options.
type Engine struct {
	opts Options
}

// New creates an Engine.
func New(opts Options) *Engine {
	return &Engine{opts: opts}
}

// Options returns the engine's validation options.
func (e *Engine) Options() Options {
	return e.opts
}

// Recommend validates q and returns its recommendation.
func (e *Engine) Recommend(q *model.Questionnaire) (model.Recommendation, error) {
	if err := Validate(q, e.opts); err != nil {
		return model.Recommendation{}, err
	}
	return recommend(q), nil
}

// Evaluate validates q, recommends a package and prices it in currency
// against table. The only error it returns is a *ValidationError.
func (e *Engine) Evaluate(q *model.Questionnaire, table pricing.Table, currency string) (Result, error) {
	if err := Validate(q, e.opts); err != nil {
		return Result{}, err
	}

	rec := recommend(q)
	quote := BuildQuote(q, rec.Package, table, currency)

	zap.L().Debug("engine: evaluated questionnaire",
		zap.Stringer("package", rec.Package),
		zap.Int("confidence", rec.Confidence),
		zap.Int("score_dynamic", rec.Scores.Dynamic),
		zap.Int("score_ecommerce", rec.Scores.Ecommerce),
		zap.String("currency", quote.Currency),
		zap.String("final_price", quote.FinalPrice.String()),
	)

	return Result{Recommendation: rec, Quote: quote}, nil
}

func recommend(q *model.Questionnaire) model.Recommendation {
	scores := Score(q)
	pkg := Decide(scores)
	return model.Recommendation{
		Package:    pkg,
		Confidence: Confidence(q),
		Addons:     DeriveAddons(q, pkg),
		Scores:     scores,
	}
}
