package importer

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Defaults for scheduling fields a Task element may omit.
const (
	xmlProjectLabel  = "MSP-IMPORT"
	xmlDefaultArea   = "General"
	xmlDefaultSystem = "General"
	xmlUnit          = "h"
	xmlCodePrefix    = "MSP-"

	xmlDefaultQty    float64 = 1
	xmlDefaultWeight float64 = 0.1
)

// msTask is the subset of a project-XML <Task> element the importer reads.
type msTask struct {
	UID      string `xml:"UID"`
	Name     string `xml:"Name"`
	Duration string `xml:"Duration"`
	Work     string `xml:"Work"`
}

// parseProjectXML walks the document with a structural decoder and maps every
// <Task> element onto the normalized schema, wherever it sits in the tree.
// A document the decoder cannot read at all is a request-level failure.
//
// Tasks missing UID or Name still yield a row; the shared rules mark them as
// errors so the review screen shows them instead of silently dropping them.
func parseProjectXML(data []byte) ([]ParsedActivity, error) {
	dec := xml.NewDecoder(bytes.NewReader(sanitizeUTF8(data)))

	var rows []ParsedActivity
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed XML: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "Task" {
			continue
		}

		var task msTask
		if err := dec.DecodeElement(&task, &start); err != nil {
			return nil, fmt.Errorf("malformed XML: %w", err)
		}
		rows = append(rows, mapXMLTask(task))
	}
	return rows, nil
}

func mapXMLTask(task msTask) ParsedActivity {
	uid := strings.TrimSpace(task.UID)
	code := ""
	if uid != "" {
		code = xmlCodePrefix + uid
	}

	qty := xmlDefaultQty
	if v, ok := parseXMLDuration(task.Duration); ok {
		qty = v
	}

	// Work is scaled down so typical man-hour totals land in the same range
	// as hand-entered weights.
	weight := xmlDefaultWeight
	if v, ok := parseXMLDuration(task.Work); ok {
		weight = v / 100
	}

	return ParsedActivity{
		ProjectCode:  xmlProjectLabel,
		AreaName:     xmlDefaultArea,
		SystemName:   xmlDefaultSystem,
		ActivityCode: code,
		ActivityName: strings.TrimSpace(task.Name),
		Unit:         xmlUnit,
		BOQQty:       qty,
		Weight:       weight,
	}
}

// parseXMLDuration reads a scheduling duration either as a plain number or
// as the PT8H0M0S form project tools emit, returning hours. The second
// return is false when the value is missing or unparseable.
func parseXMLDuration(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}

	upper := strings.ToUpper(s)
	if !strings.HasPrefix(upper, "PT") {
		return 0, false
	}
	var total float64
	components := 0
	num := ""
	for _, r := range upper[2:] {
		switch {
		case r >= '0' && r <= '9' || r == '.':
			num += string(r)
		case r == 'H' || r == 'M' || r == 'S':
			v, err := strconv.ParseFloat(num, 64)
			if err != nil {
				return 0, false
			}
			switch r {
			case 'H':
				total += v
			case 'M':
				total += v / 60
			case 'S':
				total += v / 3600
			}
			components++
			num = ""
		default:
			return 0, false
		}
	}
	// Bare "PT" and trailing digits without a unit letter are malformed.
	if components == 0 || num != "" {
		return 0, false
	}
	return total, true
}
