package pricing

import (
	"context"

	"github.com/sells-group/site-quote/internal/resilience"
)

// Retrying wraps a Source and retries transient load failures.
type Retrying struct {
	Source Source
	Policy resilience.Policy
}

// LoadPricing loads from the wrapped source under the retry policy.
func (r Retrying) LoadPricing(ctx context.Context) (Table, error) {
	return resilience.DoVal(ctx, r.Policy, "pricing: load", r.Source.LoadPricing)
}
