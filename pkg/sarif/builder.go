package sarif

import (
	"encoding/json"
	"io"
)

// Version is the SARIF version written by Builder.
const Version = "2.1.0"

// Schema is the SARIF 2.1.0 JSON schema location.
const Schema = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json"

// Builder constructs a single-run SARIF document.
type Builder struct {
	doc *Document
}

// NewBuilder creates a SARIF builder for the given tool.
func NewBuilder(toolName, toolVersion string) *Builder {
	return &Builder{doc: &Document{
		Version: Version,
		Schema:  Schema,
		Runs: []Run{{
			Tool:    Tool{Driver: Driver{Name: toolName, Version: toolVersion}},
			Results: []Result{},
		}},
	}}
}

// AddRule declares a rule ID with a one-line description.
func (b *Builder) AddRule(id, description string) *Builder {
	d := &b.doc.Runs[0].Tool.Driver
	d.Rules = append(d.Rules, Rule{ID: id, ShortDescription: Message{Text: description}})
	return b
}

// AddResult adds a finding to the run. An empty file adds no location.
func (b *Builder) AddResult(ruleID, level, message, file string, line, col int) *Builder {
	r := Result{RuleID: ruleID, Level: level, Message: Message{Text: message}}
	if file != "" {
		r.Locations = []Location{{
			PhysicalLocation: PhysicalLocation{
				ArtifactLocation: ArtifactLocation{URI: file},
				Region:           Region{StartLine: line, StartColumn: col},
			},
		}}
	}
	b.doc.Runs[0].Results = append(b.doc.Runs[0].Results, r)
	return b
}

// Document returns the constructed SARIF document.
func (b *Builder) Document() *Document {
	return b.doc
}

// WriteTo writes the SARIF document as indented JSON to w.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	data, err := json.MarshalIndent(b.doc, "", "  ")
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	n, err := w.Write(data)
	return int64(n), err
}
