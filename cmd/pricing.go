package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/site-quote/internal/pricing"
)

var pricingCmd = &cobra.Command{
	Use:   "pricing",
	Short: "Inspect and manage the price table",
}

// -- pricing show --

var pricingShowCurrency string

var pricingShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active price table, or the resolved prices for one currency",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initQuoteEnv(ctx, "quote", false)
		if err != nil {
			return err
		}
		defer env.Close()

		table, err := env.Pricing.LoadPricing(ctx)
		if err != nil {
			return eris.Wrap(err, "pricing show")
		}

		if pricingShowCurrency != "" {
			return writeJSON(os.Stdout, table.Resolve(pricingShowCurrency))
		}

		out, err := table.Marshal()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	},
}

// -- pricing import --

var pricingImportFile string

var pricingImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Load a YAML price table into the store",
	Long:  "Validates the file and upserts every currency entry it defines. Currencies already stored but absent from the file are kept.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}

		table, err := pricing.LoadFile(pricingImportFile)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.ImportPricing(ctx, table)
		if err != nil {
			return err
		}

		zap.L().Info("pricing imported", zap.String("file", pricingImportFile), zap.Int("currencies", n))
		fmt.Fprintf(os.Stderr, "Imported %d currencies.\n", n)
		return nil
	},
}

// -- pricing delete --

var pricingDeleteCmd = &cobra.Command{
	Use:   "delete <currency>",
	Short: "Remove one currency entry from the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.DeleteCurrencyPricing(ctx, args[0]); err != nil {
			return err
		}
		zap.L().Info("pricing deleted", zap.String("currency", pricing.NormalizeCurrency(args[0])))
		return nil
	},
}

func init() {
	pricingShowCmd.Flags().StringVar(&pricingShowCurrency, "currency", "", "resolve prices for this currency")
	pricingImportCmd.Flags().StringVarP(&pricingImportFile, "file", "f", "pricing.yaml", "YAML price table")

	pricingCmd.AddCommand(pricingShowCmd, pricingImportCmd, pricingDeleteCmd)
	rootCmd.AddCommand(pricingCmd)
}
