package importer

import (
	"strconv"
	"strings"
)

// XER exchange files are tagged, tab-delimited database dumps. Each table
// opens with a %T line naming the table, followed by a %F line listing its
// columns and %R lines carrying rows; %E (or the next %T) ends the export
// section. Only the TASK table is extracted here.
const (
	xerTableMarker = "%T"
	xerFieldMarker = "%F"
	xerRowMarker   = "%R"
	xerEndMarker   = "%E"

	xerTaskTable = "TASK"
)

// Format-appropriate defaults for fields the XER schema has no direct
// equivalent for.
const (
	xerProjectLabel  = "XER-IMPORT"
	xerDefaultArea   = "General"
	xerDefaultSystem = "General"
	xerDefaultUnit   = "u"
	xerDefaultQty    = 1
	xerDefaultWeight = 0.1
)

// xerColumnIndex resolves a normalized field to a column position in the
// captured %F header. Exact case-insensitive matches from the allowlist win;
// a substring match is the fallback for schema variants (e.g. P6 exports
// name the remaining duration column remain_drtn_hr_cnt).
func xerColumnIndex(header []string, names ...string) int {
	for _, name := range names {
		for i, col := range header {
			if strings.EqualFold(strings.TrimSpace(col), name) {
				return i
			}
		}
	}
	for _, name := range names {
		for i, col := range header {
			if strings.Contains(strings.ToLower(col), strings.ToLower(name)) {
				return i
			}
		}
	}
	return -1
}

// parseXER scans the export line by line and maps TASK rows onto the
// normalized schema. The budgeted cost column is repurposed as the BOQ
// quantity and the remaining duration as the progress weight; both default
// when the export omits or blanks them.
func parseXER(data []byte) []ParsedActivity {
	var (
		rows   []ParsedActivity
		inTask bool
		header []string
	)

	for _, line := range strings.Split(string(sanitizeUTF8(data)), "\n") {
		line = strings.TrimRight(line, "\r")
		fields := strings.Split(line, "\t")
		marker := strings.TrimSpace(fields[0])

		switch marker {
		case xerTableMarker:
			inTask = len(fields) > 1 && strings.EqualFold(strings.TrimSpace(fields[1]), xerTaskTable)
			header = nil
		case xerEndMarker:
			inTask = false
			header = nil
		case xerFieldMarker:
			if inTask {
				header = fields[1:]
			}
		case xerRowMarker:
			if !inTask || header == nil {
				continue
			}
			rows = append(rows, mapXERRow(header, fields[1:]))
		}
	}
	return rows
}

func mapXERRow(header, values []string) ParsedActivity {
	get := func(idx, fallback int) string {
		if idx < 0 {
			idx = fallback
		}
		if idx < 0 || idx >= len(values) {
			return ""
		}
		return strings.TrimSpace(values[idx])
	}

	code := get(xerColumnIndex(header, "task_code"), 0)
	name := get(xerColumnIndex(header, "task_name"), 1)
	unit := get(xerColumnIndex(header, "unit_name", "unit"), -1)
	if unit == "" {
		unit = xerDefaultUnit
	}
	area := get(xerColumnIndex(header, "area_name"), -1)
	if area == "" {
		area = xerDefaultArea
	}
	system := get(xerColumnIndex(header, "system_name"), -1)
	if system == "" {
		system = xerDefaultSystem
	}

	// No true quantity in a P6 export; budgeted cost stands in for it.
	qty := parseFloatOrDefault(get(xerColumnIndex(header, "budgeted_total_cost", "target_cost"), -1), xerDefaultQty)
	weight := parseFloatOrDefault(get(xerColumnIndex(header, "remaining_duration", "remain_drtn_hr_cnt"), -1), xerDefaultWeight)

	return ParsedActivity{
		ProjectCode:  xerProjectLabel,
		AreaName:     area,
		SystemName:   system,
		ActivityCode: code,
		ActivityName: name,
		Unit:         unit,
		BOQQty:       qty,
		Weight:       weight,
	}
}

func parseFloatOrDefault(s string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return v
}
