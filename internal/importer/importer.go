package importer

import "fmt"

// Parse classifies the uploaded file, runs the matching parser and applies
// the shared validation rules to every extracted row.
//
// Row-level problems never fail the call: every detected source record is
// present in the result with its status. The returned error is reserved for
// request-level failures (unsupported format, structurally unreadable input)
// where no reviewable result exists.
func Parse(filename string, data []byte, opts Options) (*ImportResult, error) {
	format, err := DetectFormat(filename, data)
	if err != nil {
		return nil, err
	}

	if format == FormatMPP {
		// Never decoded; the stub result keeps the review UI rendering.
		return rejectMPP(), nil
	}

	var rows []ParsedActivity
	switch format {
	case FormatCSV:
		rows, err = parseCSV(data, opts)
	case FormatXER:
		rows = parseXER(data)
	case FormatProjectXML:
		rows, err = parseProjectXML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", format.Label(), err)
	}

	for i := range rows {
		validate(&rows[i])
	}
	return buildResult(format.Label(), rows), nil
}

// buildResult aggregates validated rows into an ImportResult. Pure counting,
// no I/O.
func buildResult(fileType string, rows []ParsedActivity) *ImportResult {
	result := &ImportResult{
		TotalRows:  len(rows),
		Activities: rows,
		FileType:   fileType,
	}
	for _, a := range rows {
		switch a.Status {
		case StatusValid:
			result.ValidRows++
		case StatusWarning:
			result.WarningRows++
		case StatusError:
			result.ErrorRows++
		}
	}
	return result
}
