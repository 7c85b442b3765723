package importer

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned when an uploaded file cannot be routed to
// any parser. It is a request-level failure, never a per-row outcome.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Format identifies which parser handles an uploaded file.
type Format int

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatXER
	FormatProjectXML
	FormatMPP
)

// Label returns the human-readable file type reported in ImportResult.
func (f Format) Label() string {
	switch f {
	case FormatCSV:
		return "CSV"
	case FormatXER:
		return "Primavera P6 (.xer)"
	case FormatProjectXML:
		return "Microsoft Project (.xml)"
	case FormatMPP:
		return "Microsoft Project (.mpp)"
	default:
		return "Unknown"
	}
}

// projectRootMarker distinguishes a project-XML schedule export from
// arbitrary XML. Microsoft Project and compatible tools emit <Project> as
// the document root.
var projectRootMarker = []byte("<project")

// DetectFormat classifies an uploaded file by extension and, for XML, by
// sniffing the contents for a project root element. An .xml file without
// the root marker is rejected rather than fed to the task extractor.
func DetectFormat(filename string, data []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, nil
	case ".xer":
		return FormatXER, nil
	case ".mpp":
		return FormatMPP, nil
	case ".xml":
		if bytes.Contains(bytes.ToLower(data), projectRootMarker) {
			return FormatProjectXML, nil
		}
		return FormatUnknown, fmt.Errorf("%w: XML file has no <Project> root element", ErrUnsupportedFormat)
	default:
		return FormatUnknown, fmt.Errorf("%w: %q (expected .csv, .xer, .xml or .mpp)", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}
