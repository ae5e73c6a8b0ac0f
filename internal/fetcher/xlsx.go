package fetcher

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/geology-tools/ls4sm/internal/model"
)

// XLSXOptions configures spreadsheet parsing. Geotechnical IL tables are
// commonly exchanged as spreadsheets with one header row.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
	IDField    string // explicit column names; empty = alias lookup
	ILField    string
	SlopeField string
}

// ReadSitesXLSX reads site records from an XLSX workbook.
func ReadSitesXLSX(path string, opts XLSXOptions) ([]model.Site, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "xlsx: open %s", path)
	}

	sheet, err := pickSheet(f, opts)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("xlsx: sheet %q is empty", sheet.Name)
	}

	header := rowToStrings(sheet.Rows[0])
	cols, err := mapColumns(header, CSVOptions{
		IDField:    opts.IDField,
		ILField:    opts.ILField,
		SlopeField: opts.SlopeField,
	})
	if err != nil {
		return nil, err
	}

	var sites []model.Site
	for i, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		if blankRow(cells) {
			continue
		}
		site, err := parseSite(cells, cols)
		if err != nil {
			return nil, eris.Wrapf(err, "xlsx: row %d", i+2)
		}
		sites = append(sites, site)
	}

	return sites, nil
}

func pickSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex < 0 || opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (%d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	out := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		out[i] = cell.String()
	}
	return out
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
