package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/site-quote/internal/export"
	"github.com/sells-group/site-quote/internal/model"
	"github.com/sells-group/site-quote/internal/pricing"
	"github.com/sells-group/site-quote/internal/store"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Inspect and export saved quotes",
}

var (
	leadsPackage string
	leadsLimit   int
	leadsOffset  int
)

// leadFilter builds a store filter from the shared leads flags.
func leadFilter() (store.LeadFilter, error) {
	f := store.LeadFilter{Limit: leadsLimit, Offset: leadsOffset}
	if leadsPackage != "" {
		pkg, err := model.ParsePackageType(leadsPackage)
		if err != nil {
			return f, err
		}
		f.Package = pkg.String()
	}
	return f, nil
}

// -- leads list --

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved quotes, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}
		filter, err := leadFilter()
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		leads, err := st.ListLeads(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "leads list")
		}
		if len(leads) == 0 {
			fmt.Fprintln(os.Stderr, "No leads found.")
			return nil
		}

		formatLeadsList(os.Stdout, leads)
		return nil
	},
}

func formatLeadsList(w io.Writer, leads []model.Lead) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tCREATED\tCONTACT\tPACKAGE\tTOTAL\n")
	for _, l := range leads {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			l.ID,
			l.CreatedAt.Format("2006-01-02 15:04"),
			l.Contact.Name,
			l.Recommendation.Package,
			pricing.FormatAmount(l.Quote.Currency, l.Quote.FinalPrice),
		)
	}
	tw.Flush() //nolint:errcheck
}

// -- leads export --

var (
	leadsExportFormat string
	leadsExportOut    string
)

var leadsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export saved quotes as CSV or XLSX",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}

		name := leadsExportFormat
		if name == "" {
			name = cfg.Export.Format
		}
		format, err := export.ParseFormat(name)
		if err != nil {
			return err
		}
		filter, err := leadFilter()
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		leads, err := st.ListLeads(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "leads export")
		}

		out := io.Writer(os.Stdout)
		if leadsExportOut != "" {
			f, err := os.Create(leadsExportOut)
			if err != nil {
				return eris.Wrap(err, "leads export: create output")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		if err := export.Write(out, format, cfg.Export.SheetName, leads); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Exported %d leads.\n", len(leads))
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{leadsListCmd, leadsExportCmd} {
		c.Flags().StringVar(&leadsPackage, "package", "", "filter by package (static, dynamic, ecommerce)")
		c.Flags().IntVar(&leadsLimit, "limit", 100, "max leads")
		c.Flags().IntVar(&leadsOffset, "offset", 0, "skip this many leads")
	}
	leadsExportCmd.Flags().StringVar(&leadsExportFormat, "format", "", "csv or xlsx (default from config)")
	leadsExportCmd.Flags().StringVarP(&leadsExportOut, "out", "o", "", "output file (default stdout)")

	leadsCmd.AddCommand(leadsListCmd, leadsExportCmd)
	rootCmd.AddCommand(leadsCmd)
}
