package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/site-quote/internal/engine"
	"github.com/sells-group/site-quote/internal/pricing"
)

var (
	quoteFile     string
	quoteCurrency string
	quoteOutput   string
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Recommend a package and price it for one questionnaire",
	Long:  "Reads a questionnaire from a JSON or YAML file and prints the recommended package, its add-ons and the itemized quote.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initQuoteEnv(ctx, "quote", false)
		if err != nil {
			return err
		}
		defer env.Close()

		q, err := readQuestionnaire(quoteFile)
		if err != nil {
			return err
		}

		table, err := env.Pricing.LoadPricing(ctx)
		if err != nil {
			return eris.Wrap(err, "quote: load pricing")
		}

		currency := quoteCurrency
		if currency == "" {
			currency = cfg.Engine.DefaultCurrency
		}

		res, err := env.Engine.Evaluate(q, table, currency)
		if err != nil {
			return err
		}

		switch quoteOutput {
		case "json":
			return writeJSON(os.Stdout, res)
		case "text", "":
			formatResult(os.Stdout, res)
			return nil
		default:
			return eris.Errorf("quote: unknown output %q", quoteOutput)
		}
	},
}

func init() {
	quoteCmd.Flags().StringVarP(&quoteFile, "file", "f", "", "questionnaire file (.json, .yaml)")
	quoteCmd.Flags().StringVar(&quoteCurrency, "currency", "", "quote currency (default from config)")
	quoteCmd.Flags().StringVarP(&quoteOutput, "output", "o", "text", "output format: text or json")
	_ = quoteCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(quoteCmd)
}

// formatResult prints a human-readable quote.
func formatResult(w io.Writer, res engine.Result) {
	rec, q := res.Recommendation, res.Quote

	fmt.Fprintf(w, "Package:     %s\n", rec.Package)
	fmt.Fprintf(w, "Confidence:  %d%%\n", rec.Confidence)
	if len(rec.Addons) > 0 {
		fmt.Fprintf(w, "Add-ons:     %s\n", strings.Join(rec.Addons, ", "))
	}
	if q.RequestedCurrency != q.Currency {
		fmt.Fprintf(w, "Currency:    %s (requested %s)\n", q.Currency, q.RequestedCurrency)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ITEM\tQTY\tPRICE\n")
	fmt.Fprintf(tw, "Base (%s)\t1\t%s\n", q.Package, pricing.FormatAmount(q.Currency, q.BasePrice))
	for _, item := range q.Items {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", item.Name, item.Quantity, pricing.FormatAmount(q.Currency, item.Price))
	}
	fmt.Fprintf(tw, "Total\t\t%s\n", pricing.FormatAmount(q.Currency, q.FinalPrice))
	tw.Flush() //nolint:errcheck

	fmt.Fprintf(w, "\nMonthly fee: %s\n", pricing.FormatAmount(q.Currency, q.MonthlyFee))
	for _, p := range q.Plans {
		fmt.Fprintf(w, "  %d-year plan: %s (saves %s)\n", p.Years,
			pricing.FormatAmount(q.Currency, p.Total), pricing.FormatAmount(q.Currency, p.Discount))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode json")
}
