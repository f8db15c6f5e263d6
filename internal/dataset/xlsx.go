package dataset

import (
	"bytes"
	"encoding/csv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/cargoflow/partner-pulse/internal/model"
)

// XLSXOptions selects the worksheet holding the canonical dataset.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// LoadXLSX reads the canonical dataset from an XLSX worksheet. The first row
// must be the canonical header set; column order does not matter.
func LoadXLSX(path string, opts XLSXOptions) ([]model.OrderRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: open xlsx")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, nil
	}

	// Re-encode the sheet as CSV so both loaders share one header mapping.
	// Short rows are padded: xlsx omits trailing empty cells.
	width := len(sheet.Rows[0].Cells)
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range sheet.Rows {
		cells := rowToStrings(row)
		if len(cells) > width {
			cells = cells[:width]
		}
		for len(cells) < width {
			cells = append(cells, "")
		}
		if err := w.Write(cells); err != nil {
			return nil, eris.Wrap(err, "dataset: buffer xlsx row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, eris.Wrap(err, "dataset: flush xlsx rows")
	}

	return LoadCSV(&buf)
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("dataset: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("dataset: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
