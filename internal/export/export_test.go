package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/site-quote/internal/model"
)

func testLeads() []model.Lead {
	return []model.Lead{
		{
			ID:        "lead-1",
			CreatedAt: time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
			Contact:   model.Contact{Name: "Jane Doe", Email: "jane@example.com", Phone: "555-0100"},
			Questionnaire: model.Questionnaire{
				BusinessName: "Acme, Inc.",
				BusinessType: "Online Store",
			},
			Recommendation: model.Recommendation{
				Package:    model.PackageEcommerce,
				Confidence: 60,
				Addons:     []string{"Extra Products", "Extra Payment Gateways"},
			},
			Quote: model.Quote{
				Currency:    "USD",
				BasePrice:   decimal.NewFromInt(1200),
				FeatureCost: decimal.NewFromInt(155),
				FinalPrice:  decimal.NewFromInt(1355),
				MonthlyFee:  decimal.NewFromInt(100),
			},
		},
		{
			ID:             "lead-2",
			CreatedAt:      time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
			Contact:        model.Contact{Name: "Sam", Email: "sam@example.com"},
			Recommendation: model.Recommendation{Package: model.PackageStatic, Confidence: 20},
			Quote: model.Quote{
				Currency:   "EUR",
				BasePrice:  decimal.RequireFromString("450.5"),
				FinalPrice: decimal.RequireFromString("450.5"),
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{" XLSX ", FormatXLSX, false},
		{"pdf", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestRows(t *testing.T) {
	t.Parallel()
	rows := Rows(testLeads())
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], len(Header))
	assert.Equal(t, []string{
		"lead-1", "2026-03-01T12:30:00Z", "Jane Doe", "jane@example.com", "555-0100",
		"Acme, Inc.", "Online Store", "ecommerce", "60", "Extra Products; Extra Payment Gateways",
		"USD", "1200.00", "155.00", "1355.00", "100.00",
	}, rows[0])
	assert.Equal(t, "450.50", rows[1][13])
	assert.Equal(t, "0.00", rows[1][14])
}

func formulaLead() model.Lead {
	return model.Lead{
		ID:            "lead-3",
		Contact:       model.Contact{Name: `=HYPERLINK("http://evil","x")`, Email: "@SUM(A1)", Phone: "+1 555 0100"},
		Questionnaire: model.Questionnaire{BusinessName: "-2+3", BusinessType: "\tBlog"},
	}
}

func TestRows_NeutralizesFormulas(t *testing.T) {
	t.Parallel()
	row := Rows([]model.Lead{formulaLead()})[0]

	assert.Equal(t, `'=HYPERLINK("http://evil","x")`, row[2])
	assert.Equal(t, "'@SUM(A1)", row[3])
	assert.Equal(t, "'+1 555 0100", row[4])
	assert.Equal(t, "'-2+3", row[5])
	assert.Equal(t, "'\tBlog", row[6])
}

func TestSafeText(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"Jane", "Jane"},
		{"=1+1", "'=1+1"},
		{"+44", "'+44"},
		{"-1", "'-1"},
		{"@cmd", "'@cmd"},
		{"\r=1", "'\r=1"},
		{"a=b", "a=b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeText(tt.in), "%q", tt.in)
	}
}

func TestWrite_FormulaCellsQuoted(t *testing.T) {
	t.Parallel()
	leads := []model.Lead{formulaLead()}

	var csvBuf bytes.Buffer
	require.NoError(t, WriteCSV(&csvBuf, leads))
	records, err := csv.NewReader(&csvBuf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, `'=HYPERLINK("http://evil","x")`, records[1][2])

	var xlsxBuf bytes.Buffer
	require.NoError(t, WriteXLSX(&xlsxBuf, "", leads))
	f, err := xlsx.OpenBinary(xlsxBuf.Bytes())
	require.NoError(t, err)
	cell := f.Sheet[DefaultSheetName].Rows[1].Cells[2]
	assert.Equal(t, `'=HYPERLINK("http://evil","x")`, cell.String())
	assert.Empty(t, cell.Formula())
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, "", testLeads()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Header, records[0])
	assert.Equal(t, "Acme, Inc.", records[1][5])
}

func TestWriteCSV_Empty(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestWriteXLSX(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, "Q1 Leads", testLeads()))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	sheet, ok := f.Sheet["Q1 Leads"]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "contact_name", sheet.Rows[0].Cells[2].String())
	assert.Equal(t, "1355.00", sheet.Rows[1].Cells[13].String())
	assert.Equal(t, "lead-2", sheet.Rows[2].Cells[0].String())
}

func TestWriteXLSX_DefaultSheet(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, "", nil))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	_, ok := f.Sheet[DefaultSheetName]
	assert.True(t, ok)
}

func TestWrite_UnknownFormat(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, Format("pdf"), "", testLeads()))
}
