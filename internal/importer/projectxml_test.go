package importer

import (
	"math"
	"strings"
	"testing"
)

func TestProjectXMLTaskMapping(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<Project xmlns="http://schemas.microsoft.com/project">
  <Name>Site works</Name>
  <Tasks>
    <Task>
      <UID>3</UID>
      <Name>Install rebar</Name>
      <Duration>PT16H0M0S</Duration>
      <Work>PT120H0M0S</Work>
    </Task>
  </Tasks>
</Project>`)

	result, err := Parse("plan.xml", data, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalRows != 1 {
		t.Fatalf("TotalRows = %d, want 1", result.TotalRows)
	}
	if result.FileType != "Microsoft Project (.xml)" {
		t.Errorf("FileType = %q", result.FileType)
	}

	row := result.Activities[0]
	if row.ActivityCode != "MSP-3" {
		t.Errorf("ActivityCode = %q, want MSP-3", row.ActivityCode)
	}
	if row.ActivityName != "Install rebar" {
		t.Errorf("ActivityName = %q", row.ActivityName)
	}
	if row.Unit != "h" {
		t.Errorf("Unit = %q, want h", row.Unit)
	}
	if row.BOQQty != 16 {
		t.Errorf("BOQQty = %v, want 16 (duration hours)", row.BOQQty)
	}
	if math.Abs(row.Weight-1.2) > 1e-9 {
		t.Errorf("Weight = %v, want 1.2 (work/100)", row.Weight)
	}
	if row.Status != StatusValid {
		t.Errorf("status = %s (%s)", row.Status, row.ErrorMessage)
	}
}

func TestProjectXMLDefaults(t *testing.T) {
	// No Duration/Work: quantity defaults to 1, weight to 0.1, row stays valid.
	data := []byte(`<Project><Tasks><Task><UID>7</UID><Name>Backfill</Name></Task></Tasks></Project>`)

	result, err := Parse("plan.xml", data, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	row := result.Activities[0]
	if row.BOQQty != 1 {
		t.Errorf("BOQQty = %v, want default 1", row.BOQQty)
	}
	if row.Weight != 0.1 {
		t.Errorf("Weight = %v, want default 0.1", row.Weight)
	}
	if row.Status != StatusValid {
		t.Errorf("status = %s (%s)", row.Status, row.ErrorMessage)
	}
}

func TestProjectXMLDegenerateDurationUsesDefault(t *testing.T) {
	// A truncated duration like PT8 is unparseable, so the quantity falls
	// back to the default instead of zeroing out into a warning.
	data := []byte(`<Project><Tasks><Task><UID>4</UID><Name>Grade</Name><Duration>PT8</Duration></Task></Tasks></Project>`)

	result, err := Parse("plan.xml", data, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	row := result.Activities[0]
	if row.BOQQty != 1 {
		t.Errorf("BOQQty = %v, want default 1", row.BOQQty)
	}
	if row.Status != StatusValid {
		t.Errorf("status = %s (%s)", row.Status, row.ErrorMessage)
	}
}

func TestProjectXMLIncompleteTasksSurfaceAsErrors(t *testing.T) {
	// Every detected Task yields a row; missing UID or Name is an error row,
	// not a silent drop.
	data := []byte(`<Project><Tasks>
		<Task><UID>1</UID><Name>Good</Name></Task>
		<Task><UID>2</UID></Task>
		<Task><Name>No UID</Name></Task>
	</Tasks></Project>`)

	result, err := Parse("plan.xml", data, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalRows != 3 {
		t.Fatalf("TotalRows = %d, want 3", result.TotalRows)
	}
	if result.ValidRows != 1 || result.ErrorRows != 2 {
		t.Errorf("valid/error = %d/%d, want 1/2", result.ValidRows, result.ErrorRows)
	}
}

func TestProjectXMLMalformedIsRequestLevel(t *testing.T) {
	data := []byte(`<Project><Tasks><Task><UID>1</UID>`)

	_, err := Parse("plan.xml", data, Options{})
	if err == nil {
		t.Fatal("want request-level error for malformed XML")
	}
	if !strings.Contains(err.Error(), "malformed XML") {
		t.Errorf("error = %v", err)
	}
}

func TestProjectXMLNestedTasksAnywhere(t *testing.T) {
	// The structural walk finds Task elements regardless of wrapper depth.
	data := []byte(`<Project><Schedule><Phase><Task><UID>9</UID><Name>Deep</Name></Task></Phase></Schedule></Project>`)

	result, err := Parse("plan.xml", data, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalRows != 1 || result.Activities[0].ActivityCode != "MSP-9" {
		t.Errorf("got %+v", result)
	}
}

func TestParseXMLDuration(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{in: "PT8H0M0S", want: 8, wantOK: true},
		{in: "PT1H30M0S", want: 1.5, wantOK: true},
		{in: "PT0H0M30S", want: 30.0 / 3600, wantOK: true},
		{in: "12.5", want: 12.5, wantOK: true},
		{in: "", wantOK: false},
		{in: "eight hours", wantOK: false},
		{in: "P2D", wantOK: false},
		{in: "PT", wantOK: false},
		{in: "PT8", wantOK: false},
		{in: "PT8H30", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseXMLDuration(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
