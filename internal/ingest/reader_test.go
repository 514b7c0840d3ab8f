package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Checker-Finance/adviser-fees/pkg/model"
)

const sampleCSV = `Firm,Annual fee threshold 1,Annual fee Threshold 2,Flat Fee,Minimum investment (Amount/No),Negotiable (Yes/No)
Acme Advisors,"$0 - $1,000,000 (1.00%)","$1,000,000+ (0.75%)",No,"$250,000",Yes

Beta Wealth,$0+ (0.32% - 2.50%),,No,No,No
`

func TestReadCSV(t *testing.T) {
	table, err := ReadCSV(strings.NewReader(sampleCSV), "sample.csv")
	require.NoError(t, err)
	require.Len(t, table.Records, 2)
	assert.Len(t, table.Header, 6)

	first := table.Records[0]
	assert.Equal(t, "sample.csv", first.SourceFile)
	assert.Equal(t, 0, first.RowIndex)
	require.Len(t, first.Slots, 2)
	assert.Equal(t, model.RawValue("$0 - $1,000,000 (1.00%)"), first.Slots[0].Threshold)
	assert.Equal(t, model.RawValue("$1,000,000+ (0.75%)"), first.Slots[1].Threshold)
	assert.Equal(t, model.RawValue("No"), first.FlatFee)
	assert.Equal(t, model.RawValue("$250,000"), first.MinimumInvestment)
	assert.Equal(t, model.RawValue("Yes"), first.Negotiable)
	assert.Equal(t, "Acme Advisors", first.Columns[0])

	// the blank line is skipped but still counts toward the row index
	assert.Equal(t, 2, table.Records[1].RowIndex)
	assert.Equal(t, model.RawValue(""), table.Records[1].Slots[1].Threshold)
}

func TestReadCSV_RowIndexFollowsSourceRows(t *testing.T) {
	in := "Firm,Annual fee threshold 1\n" +
		"Acme,$0+ (1%)\n" +
		"\n" +
		",\n" +
		"\n" +
		"Beta,$0+ (2%)\n"

	table, err := ReadCSV(strings.NewReader(in), "gaps.csv")
	require.NoError(t, err)
	require.Len(t, table.Records, 2)
	assert.Equal(t, 0, table.Records[0].RowIndex)
	assert.Equal(t, 4, table.Records[1].RowIndex)
	assert.Equal(t, "Beta", table.Records[1].Columns[0])
}

func TestFromRows_BlankRowsKeepPosition(t *testing.T) {
	rows := [][]string{
		{ThresholdColumn(1)},
		{},
		{"  "},
		{"$0+ (1%)"},
	}

	table, err := FromRows("rows", rows)
	require.NoError(t, err)
	require.Len(t, table.Records, 1)
	assert.Equal(t, 2, table.Records[0].RowIndex)
}

func TestReadCSV_SeparateFeeColumns(t *testing.T) {
	in := "Annual fee threshold 1,Annual fee 1,Annual fee Threshold 3,Annual fee 3\n" +
		"$0+,1.00%,$500000+,0.80%\n"

	table, err := ReadCSV(strings.NewReader(in), "fees.csv")
	require.NoError(t, err)
	require.Len(t, table.Records, 1)

	slots := table.Records[0].Slots
	require.Len(t, slots, 3)
	assert.Equal(t, model.RawValue("1.00%"), slots[0].Fee)
	assert.Equal(t, model.RawSlot{}, slots[1])
	assert.Equal(t, model.RawValue("$500000+"), slots[2].Threshold)
	assert.Equal(t, model.RawValue("0.80%"), slots[2].Fee)
}

func TestReadCSV_HeaderMatchingIsLenient(t *testing.T) {
	in := "\ufeffANNUAL FEE  THRESHOLD 1 , flat fee\n$0+ (1%),No\n"

	table, err := ReadCSV(strings.NewReader(in), "x.csv")
	require.NoError(t, err)
	require.Len(t, table.Records, 1)
	assert.Equal(t, model.RawValue("$0+ (1%)"), table.Records[0].Slots[0].Threshold)
	assert.Equal(t, model.RawValue("No"), table.Records[0].FlatFee)
}

func TestReadCSV_NoFeeColumns(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("Firm,City\nAcme,Boston\n"), "x.csv")
	assert.ErrorIs(t, err, ErrNoFeeColumns)

	_, err = ReadCSV(strings.NewReader(""), "empty.csv")
	assert.ErrorIs(t, err, ErrNoFeeColumns)
}

func TestReadFile_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filing.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	table, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "filing.csv", table.Source)
	assert.Len(t, table.Records, 2)
}

func TestReadFile_Unsupported(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "notes.txt"))
	assert.Error(t, err)
}

func TestReadXLSX(t *testing.T) {
	tmpDir := t.TempDir()

	f := excelize.NewFile()
	// a leading sheet without fee columns is skipped
	f.SetSheetName(f.GetSheetName(0), "Cover")
	require.NoError(t, f.SetCellValue("Cover", "A1", "Generated report"))

	sheet := "Fees"
	_, err := f.NewSheet(sheet)
	require.NoError(t, err)

	rows := [][]interface{}{
		{"Firm", ThresholdColumn(1), ThresholdColumn(2), ColFlatFee},
		{"Acme", "$0+ (1.00%)", "$1,000,000+ (0.75%)", "No"},
	}
	for r, row := range rows {
		for c, val := range row {
			col, _ := excelize.ColumnNumberToName(c + 1)
			require.NoError(t, f.SetCellValue(sheet, col+string(rune('1'+r)), val))
		}
	}

	path := filepath.Join(tmpDir, "filing.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, table.Records, 1)
	assert.Equal(t, "filing.xlsx", table.Records[0].SourceFile)
	assert.Equal(t, model.RawValue("$1,000,000+ (0.75%)"), table.Records[0].Slots[1].Threshold)
}
