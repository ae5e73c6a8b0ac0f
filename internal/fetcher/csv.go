// Package fetcher resolves and parses classification input sources: local
// CSV/XLSX files, zipped shapefile bundles, and HTTP or FTP URLs.
package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/geology-tools/ls4sm/internal/model"
)

// Column aliases accepted when no explicit field names are configured.
// INDEX and DN are the attribute names the original QGIS tool writes after
// the slope/IL intersection step.
var (
	idAliases    = []string{"id", "fid", "site_id", "polygon_id"}
	ilAliases    = []string{"il", "index", "liq_index"}
	slopeAliases = []string{"slope", "slope_pct", "dn"}
)

// CSVOptions configures site record parsing.
type CSVOptions struct {
	Delimiter  rune   // default ','
	Comment    rune   // comment character (0 = none)
	IDField    string // explicit column names; empty = alias lookup
	ILField    string
	SlopeField string
	Charset    string // IANA charset name, e.g. "latin1"; empty = UTF-8
}

// ReadSites parses site records from CSV. The first row must be a header;
// column order is free. Rows with non-numeric IL or slope fail the whole
// read so bad joins surface immediately instead of as invalid records.
func ReadSites(ctx context.Context, r io.Reader, opts CSVOptions) ([]model.Site, error) {
	if opts.Charset != "" {
		enc, err := htmlindex.Get(opts.Charset)
		if err != nil {
			return nil, eris.Wrapf(err, "csv: unknown charset %q", opts.Charset)
		}
		r = enc.NewDecoder().Reader(r)
	}

	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	if opts.Comment != 0 {
		reader.Comment = opts.Comment
	}
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("csv: empty input")
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}

	cols, err := mapColumns(header, opts)
	if err != nil {
		return nil, err
	}

	var sites []model.Site
	line := 1
	for {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "csv: context cancelled")
		}

		record, err := reader.Read()
		if err == io.EOF {
			return sites, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		line++

		site, err := parseSite(record, cols)
		if err != nil {
			return nil, eris.Wrapf(err, "csv: line %d", line)
		}
		sites = append(sites, site)
	}
}

// columnIndices locates the id, IL, and slope columns within a header row.
type columnIndices struct {
	id, il, slope int
}

func mapColumns(header []string, opts CSVOptions) (columnIndices, error) {
	var cols columnIndices
	var err error
	if cols.id, err = findColumn(header, opts.IDField, idAliases); err != nil {
		return cols, err
	}
	if cols.il, err = findColumn(header, opts.ILField, ilAliases); err != nil {
		return cols, err
	}
	if cols.slope, err = findColumn(header, opts.SlopeField, slopeAliases); err != nil {
		return cols, err
	}
	return cols, nil
}

func findColumn(header []string, explicit string, aliases []string) (int, error) {
	if explicit != "" {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), explicit) {
				return i, nil
			}
		}
		return 0, eris.Errorf("csv: column %q not found in header", explicit)
	}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, a := range aliases {
			if h == a {
				return i, nil
			}
		}
	}
	return 0, eris.Errorf("csv: none of columns %v found in header", aliases)
}

func parseSite(record []string, cols columnIndices) (model.Site, error) {
	need := cols.id
	if cols.il > need {
		need = cols.il
	}
	if cols.slope > need {
		need = cols.slope
	}
	if len(record) <= need {
		return model.Site{}, eris.Errorf("expected at least %d fields, got %d", need+1, len(record))
	}

	il, err := parseFloat(record[cols.il])
	if err != nil {
		return model.Site{}, eris.Wrapf(err, "liquefaction index %q", record[cols.il])
	}
	slope, err := parseFloat(record[cols.slope])
	if err != nil {
		return model.Site{}, eris.Wrapf(err, "slope %q", record[cols.slope])
	}

	return model.Site{
		ID:       strings.TrimSpace(record[cols.id]),
		IL:       il,
		SlopePct: slope,
	}, nil
}

// parseFloat accepts both dot and comma decimal separators; regional
// datasets routinely mix the two.
func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", ".")
	return strconv.ParseFloat(s, 64)
}

// WriteResults writes classification results as CSV. Unclassified records
// keep an empty code column rather than a guessed default.
func WriteResults(w io.Writer, results []model.Result) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"site_id", "code", "family", "label", "formula"}); err != nil {
		return eris.Wrap(err, "csv: write header")
	}

	for _, res := range results {
		code := ""
		if res.Classified() {
			code = strconv.Itoa(res.Code)
		}
		if err := cw.Write([]string{res.SiteID, code, res.Family, res.Label, res.Formula}); err != nil {
			return eris.Wrapf(err, "csv: write row for %s", res.SiteID)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "csv: flush")
	}
	return nil
}
