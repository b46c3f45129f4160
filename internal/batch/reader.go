// Package batch generates BIA documents for a list of business functions
// read from a CSV or XLSX file.
package batch

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/bia-service/internal/bia"
	"github.com/sells-group/bia-service/internal/model"
)

// Row is one request read from an input file. Line is the 1-based record
// number, header included.
type Row struct {
	Line    int
	Request bia.Request
}

// ReadFile reads requests from a .csv or .xlsx file. The first row is a
// header naming the columns; function_name and function_type are required,
// team, dri_name, dri_team, regions and created_by are optional. Regions are
// separated by semicolons. Rows with a blank function name are skipped.
func ReadFile(path string) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "batch: open csv")
		}
		defer f.Close() //nolint:errcheck
		return ReadCSV(f)
	case ".xlsx":
		return readXLSX(path)
	default:
		return nil, eris.Errorf("batch: unsupported file type %q (want .csv or .xlsx)", filepath.Ext(path))
	}
}

// ReadCSV reads requests from CSV data.
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "batch: read csv")
	}
	return parseRecords(records)
}

func readXLSX(path string) ([]Row, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "batch: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("batch: xlsx has no sheets")
	}

	sheet := f.Sheets[0]
	records := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			if cell != nil {
				cells[i] = cell.String()
			}
		}
		records = append(records, cells)
	}
	return parseRecords(records)
}

func parseRecords(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, eris.New("batch: file is empty")
	}

	cols := make(map[string]int)
	for i, h := range records[0] {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.ReplaceAll(key, " ", "_")
		if _, dup := cols[key]; !dup && key != "" {
			cols[key] = i
		}
	}
	for _, required := range []string{"function_name", "function_type"} {
		if _, ok := cols[required]; !ok {
			return nil, eris.Errorf("batch: header is missing column %q", required)
		}
	}

	get := func(rec []string, col string) string {
		i, ok := cols[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	rows := make([]Row, 0, len(records)-1)
	for n, rec := range records[1:] {
		name := get(rec, "function_name")
		if name == "" {
			continue
		}
		var regions []string
		for _, code := range strings.Split(get(rec, "regions"), ";") {
			if code = strings.TrimSpace(code); code != "" {
				regions = append(regions, code)
			}
		}
		rows = append(rows, Row{
			Line: n + 2,
			Request: bia.Request{
				FunctionName: name,
				FunctionType: model.FunctionType(get(rec, "function_type")),
				Team:         get(rec, "team"),
				DRIName:      get(rec, "dri_name"),
				DRITeam:      get(rec, "dri_team"),
				Regions:      regions,
				CreatedBy:    get(rec, "created_by"),
			},
		})
	}
	return rows, nil
}
