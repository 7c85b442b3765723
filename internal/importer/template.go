package importer

import (
	"bytes"
	"encoding/csv"
	"encoding/xml"
)

// TemplateCSV produces a skeleton CSV document with the expected column set
// and one example row for users to replace.
func TemplateCSV() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write(csvColumns)
	w.Write([]string{"DEMO", "Area 1", "System 1", "ACT-001", "Example activity", "m", "100", "1"})
	w.Flush()
	return buf.Bytes()
}

type templateTask struct {
	UID      string `xml:"UID"`
	Name     string `xml:"Name"`
	Duration string `xml:"Duration"`
	Work     string `xml:"Work"`
}

type templateProject struct {
	XMLName xml.Name       `xml:"Project"`
	Tasks   []templateTask `xml:"Tasks>Task"`
}

// TemplateXML produces a skeleton project-XML document with one example
// task, shaped the way the XML parser expects to read it back.
func TemplateXML() []byte {
	doc := templateProject{
		Tasks: []templateTask{{
			UID:      "1",
			Name:     "Example activity",
			Duration: "PT8H0M0S",
			Work:     "PT16H0M0S",
		}},
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		// Marshaling a fixed literal cannot fail.
		panic(err)
	}
	return append([]byte(xml.Header), out...)
}
