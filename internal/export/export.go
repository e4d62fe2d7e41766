// Package export writes saved leads as CSV or XLSX for sales follow-up.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/site-quote/internal/model"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DefaultSheetName is used for XLSX exports when no sheet name is given.
const DefaultSheetName = "Leads"

// Header is the column order of every export.
var Header = []string{
	"id", "created_at", "contact_name", "contact_email", "contact_phone",
	"business_name", "business_type", "package", "confidence", "addons",
	"currency", "base_price", "feature_cost", "final_price", "monthly_fee",
}

// ParseFormat converts a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", eris.Errorf("export: unknown format %q", s)
}

// Rows flattens leads into string rows matching Header. Free-text cells are
// neutralized against spreadsheet formula evaluation.
func Rows(leads []model.Lead) [][]string {
	rows := make([][]string, 0, len(leads))
	for _, l := range leads {
		rows = append(rows, []string{
			l.ID,
			l.CreatedAt.UTC().Format(time.RFC3339),
			safeText(l.Contact.Name),
			safeText(l.Contact.Email),
			safeText(l.Contact.Phone),
			safeText(l.Questionnaire.BusinessName),
			safeText(l.Questionnaire.BusinessType),
			l.Recommendation.Package.String(),
			strconv.Itoa(l.Recommendation.Confidence),
			safeText(strings.Join(l.Recommendation.Addons, "; ")),
			l.Quote.Currency,
			l.Quote.BasePrice.StringFixed(2),
			l.Quote.FeatureCost.StringFixed(2),
			l.Quote.FinalPrice.StringFixed(2),
			l.Quote.MonthlyFee.StringFixed(2),
		})
	}
	return rows
}

// safeText quotes s with a leading apostrophe when a spreadsheet would
// evaluate it as a formula.
func safeText(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}

// Write encodes leads to w in format. sheet names the XLSX worksheet and is
// ignored for CSV.
func Write(w io.Writer, format Format, sheet string, leads []model.Lead) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, leads)
	case FormatXLSX:
		return WriteXLSX(w, sheet, leads)
	}
	return eris.Errorf("export: unknown format %q", format)
}

// WriteCSV writes a header row followed by one row per lead.
func WriteCSV(w io.Writer, leads []model.Lead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	if err := cw.WriteAll(Rows(leads)); err != nil {
		return eris.Wrap(err, "export: write csv rows")
	}
	return nil
}

// WriteXLSX writes a workbook with a single sheet of leads.
func WriteXLSX(w io.Writer, sheetName string, leads []model.Lead) error {
	if sheetName == "" {
		sheetName = DefaultSheetName
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %q", sheetName)
	}

	addRow(sheet, Header)
	for _, row := range Rows(leads) {
		addRow(sheet, row)
	}

	return eris.Wrap(f.Write(w), "export: write xlsx")
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
