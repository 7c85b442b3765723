package importer

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"
	"unicode/utf8"
)

// csvColumns is the fixed positional layout of a CSV plan export. The header
// line is skipped, not matched: parsing is strictly positional by column
// index, so header text is cosmetic. This mirrors the generated template.
var csvColumns = []string{
	"project_code", "area_name", "system_name",
	"activity_code", "activity_name", "unit", "boq_qty", "weight",
}

// parseCSV extracts activity rows from a delimited plan export.
//
// Rows narrower than the positional layout (or the header, whichever is
// wider) are silently skipped, and non-numeric quantity/weight values fall
// back to zero (which the shared rules then surface as a warning). Both
// behaviors are long-standing contract with existing spreadsheet exports.
func parseCSV(data []byte, opts Options) ([]ParsedActivity, error) {
	records, err := readCSVRecords(sanitizeUTF8(data), opts)
	if err != nil {
		return nil, err
	}

	var rows []ParsedActivity
	headerSeen := false
	expectedCols := len(csvColumns)
	for _, record := range records {
		if isEmptyRecord(record) {
			continue
		}
		if !headerSeen {
			headerSeen = true
			// A wider header widens the skip threshold; it can never
			// narrow it below the positional layout.
			if len(record) > expectedCols {
				expectedCols = len(record)
			}
			continue
		}
		if len(record) < expectedCols {
			continue
		}
		rows = append(rows, ParsedActivity{
			ProjectCode:  cleanCell(record[0]),
			AreaName:     cleanCell(record[1]),
			SystemName:   cleanCell(record[2]),
			ActivityCode: cleanCell(record[3]),
			ActivityName: cleanCell(record[4]),
			Unit:         cleanCell(record[5]),
			BOQQty:       parseFloatOrZero(record[6]),
			Weight:       parseFloatOrZero(record[7]),
		})
	}
	return rows, nil
}

// readCSVRecords reads the file with the RFC 4180 grammar by default. The
// naive comma-split mode reproduces the historical parser byte-for-byte for
// files that relied on it; it does not honor quoted commas.
func readCSVRecords(data []byte, opts Options) ([][]string, error) {
	if opts.NaiveCSVSplit {
		var records [][]string
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimRight(line, "\r")
			if strings.TrimSpace(line) == "" {
				continue
			}
			records = append(records, strings.Split(line, ","))
		}
		return records, nil
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

// cleanCell trims whitespace and one layer of surrounding double quotes.
func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}

// parseFloatOrZero is the parse-or-zero numeric fallback: unparseable text
// becomes 0 so the greater-than-zero rule reports it as a warning instead of
// aborting the row.
func parseFloatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(cleanCell(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func isEmptyRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// sanitizeUTF8 replaces invalid byte sequences with the Unicode replacement
// character so downstream string handling is safe for exports saved in
// legacy encodings.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}
	return buf.Bytes()
}
