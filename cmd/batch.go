package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/site-quote/internal/api"
	"github.com/sells-group/site-quote/internal/engine"
	"github.com/sells-group/site-quote/internal/model"
	"github.com/sells-group/site-quote/internal/pricing"
)

var (
	batchFile     string
	batchOut      string
	batchSave     bool
	batchCurrency string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Quote every questionnaire in a JSON-lines file",
	Long:  "Reads one quote request per line ({\"contact\":..., \"questionnaire\":..., \"currency\":...}), quotes them concurrently and writes one JSON result per line.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initQuoteEnv(ctx, "batch", batchSave)
		if err != nil {
			return err
		}
		defer env.Close()

		in, err := os.Open(batchFile)
		if err != nil {
			return eris.Wrap(err, "batch: open input")
		}
		defer in.Close() //nolint:errcheck

		items, err := readBatch(in)
		if err != nil {
			return err
		}

		table, err := env.Pricing.LoadPricing(ctx)
		if err != nil {
			return eris.Wrap(err, "batch: load pricing")
		}

		currency := batchCurrency
		if currency == "" {
			currency = cfg.Engine.DefaultCurrency
		}

		runner := &batchRunner{engine: env.Engine, table: table, currency: currency}
		if batchSave {
			runner.save = env.Store.SaveLead
		}

		results, stats := runner.run(ctx, items, cfg.Batch.Concurrency)

		out := io.Writer(os.Stdout)
		if batchOut != "" {
			f, err := os.Create(batchOut)
			if err != nil {
				return eris.Wrap(err, "batch: create output")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}
		if err := writeBatchResults(out, results); err != nil {
			return err
		}

		zap.L().Info("batch complete",
			zap.Int("total", len(items)),
			zap.Int64("succeeded", stats.succeeded),
			zap.Int64("failed", stats.failed),
			zap.Int64("saved", stats.saved),
		)
		return ctx.Err()
	},
}

func init() {
	batchCmd.Flags().StringVarP(&batchFile, "file", "f", "", "JSON-lines input file")
	batchCmd.Flags().StringVarP(&batchOut, "out", "o", "", "output file (default stdout)")
	batchCmd.Flags().BoolVar(&batchSave, "save", false, "save each quoted questionnaire as a lead")
	batchCmd.Flags().StringVar(&batchCurrency, "currency", "", "currency for lines that set none (default from config)")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

// batchItem is one input line. A line that failed to parse carries its
// error instead of a request.
type batchItem struct {
	Line     int
	Req      api.QuoteRequest
	ParseErr error
}

// batchResult is one output line.
type batchResult struct {
	Line   int            `json:"line"`
	LeadID string         `json:"lead_id,omitempty"`
	Result *engine.Result `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

type batchStats struct {
	succeeded, failed, saved int64
}

// readBatch parses a JSON-lines stream. Blank lines are skipped.
func readBatch(r io.Reader) ([]batchItem, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var items []batchItem
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		item := batchItem{Line: line}
		if err := json.Unmarshal([]byte(text), &item.Req); err != nil {
			item.ParseErr = eris.Wrapf(err, "line %d", line)
		}
		items = append(items, item)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "batch: read input")
	}
	return items, nil
}

// batchRunner quotes items against one pricing table. save is nil when
// results are not persisted.
type batchRunner struct {
	engine   *engine.Engine
	table    pricing.Table
	currency string
	save     func(ctx context.Context, lead *model.Lead) error
}

// run quotes items with at most concurrency in flight. One failing item
// never aborts the batch; results keep input order.
func (b *batchRunner) run(ctx context.Context, items []batchItem, concurrency int) ([]batchResult, batchStats) {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]batchResult, len(items))
	var succeeded, failed, saved atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, item := range items {
		g.Go(func() error {
			res := b.quote(gctx, item)
			results[i] = res
			switch {
			case res.Error != "":
				failed.Add(1)
				zap.L().Warn("batch: line failed", zap.Int("line", item.Line), zap.String("error", res.Error))
			default:
				succeeded.Add(1)
				if res.LeadID != "" {
					saved.Add(1)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	return results, batchStats{succeeded: succeeded.Load(), failed: failed.Load(), saved: saved.Load()}
}

func (b *batchRunner) quote(ctx context.Context, item batchItem) batchResult {
	out := batchResult{Line: item.Line}
	if item.ParseErr != nil {
		out.Error = item.ParseErr.Error()
		return out
	}
	if err := ctx.Err(); err != nil {
		out.Error = err.Error()
		return out
	}

	currency := item.Req.Currency
	if strings.TrimSpace(currency) == "" {
		currency = b.currency
	}

	res, err := b.engine.Evaluate(&item.Req.Questionnaire, b.table, currency)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Result = &res

	if b.save != nil {
		lead := &model.Lead{
			Contact:        item.Req.Contact,
			Questionnaire:  item.Req.Questionnaire,
			Recommendation: res.Recommendation,
			Quote:          res.Quote,
		}
		if err := b.save(ctx, lead); err != nil {
			out.Error = eris.Wrap(err, "save lead").Error()
			return out
		}
		out.LeadID = lead.ID
	}
	return out
}

func writeBatchResults(w io.Writer, results []batchResult) error {
	enc := json.NewEncoder(w)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return eris.Wrapf(err, "batch: write line %d", r.Line)
		}
	}
	return nil
}
