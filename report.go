package main

import (
	"bufio"
	"encoding/json"
	"io"
	"os"

	"github.com/nodeadmin/snomed-dnf/normalform"
	"github.com/nodeadmin/snomed-dnf/reasoner"
)

const writerBufferSize = 256 * 1024 // 256 KB

type relationshipJSON struct {
	Type        string      `json:"type"`
	Destination string      `json:"destination"`
	Group       int         `json:"group"`
	UnionGroup  int         `json:"union_group,omitempty"`
	Universal   bool        `json:"universal,omitempty"`
	Negated     bool        `json:"negated,omitempty"`
	StatementID int64       `json:"statement_id,omitempty"`
	Values      []valueJSON `json:"values,omitempty"`
}

type valueJSON struct {
	Type        string `json:"type"`
	Value       string `json:"value"`
	DataType    string `json:"data_type"`
	Group       int    `json:"group"`
	StatementID int64  `json:"statement_id,omitempty"`
}

type replacementJSON[J any] struct {
	Removed J `json:"removed"`
	By      J `json:"by"`
}

type conceptChangesJSON[J any] struct {
	Concept      string               `json:"concept"`
	Added        []J                  `json:"added,omitempty"`
	Removed      []J                  `json:"removed,omitempty"`
	Replacements []replacementJSON[J] `json:"replacements,omitempty"`
}

type passJSON struct {
	Generator string `json:"generator"`
	Processed int    `json:"processed"`
	Generated int    `json:"generated"`
	Layers    int    `json:"layers"`
	Cancelled bool   `json:"cancelled,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
	Changed   int    `json:"changed"`
	Added     int    `json:"added"`
	Removed   int    `json:"removed"`
	Replaced  int    `json:"replaced"`
}

// changeReport is the JSON document written by the generate command.
type changeReport struct {
	Ontology      string                                 `json:"ontology,omitempty"`
	DataVersion   string                                 `json:"data_version,omitempty"`
	Stats         reasoner.ClassificationStats           `json:"stats"`
	Passes        []passJSON                             `json:"passes"`
	Relationships []conceptChangesJSON[relationshipJSON] `json:"relationship_changes"`
	Values        []conceptChangesJSON[valueJSON]        `json:"value_changes"`
}

// reportBuilder converts collector output to names as it arrives, so no
// property outlives the processor call.
type reportBuilder struct {
	symbols *reasoner.SymbolTable
	report  changeReport
}

func newReportBuilder(symbols *reasoner.SymbolTable) *reportBuilder {
	return &reportBuilder{
		symbols: symbols,
		report: changeReport{
			Relationships: []conceptChangesJSON[relationshipJSON]{},
			Values:        []conceptChangesJSON[valueJSON]{},
		},
	}
}

func (b *reportBuilder) relationship(r *normalform.Relationship) relationshipJSON {
	out := relationshipJSON{
		Type:        b.symbols.Name(r.TypeID),
		Destination: b.symbols.Name(r.DestinationID),
		Group:       r.Group,
		UnionGroup:  r.UnionGroup,
		Universal:   r.Universal,
		Negated:     r.DestinationNegated,
		StatementID: r.StatementID,
	}
	for _, v := range r.Values {
		out.Values = append(out.Values, b.value(v))
	}
	return out
}

func (b *reportBuilder) value(v *normalform.Value) valueJSON {
	f := v.Fragment()
	return valueJSON{
		Type:        b.symbols.Name(v.TypeID),
		Value:       f.Value,
		DataType:    f.DataType,
		Group:       f.Group,
		StatementID: f.StatementID,
	}
}

func (b *reportBuilder) addRelationshipChanges(ch normalform.ConceptChanges[*normalform.Relationship]) error {
	b.report.Relationships = append(b.report.Relationships, convertChanges(b.symbols, ch, b.relationship))
	return nil
}

func (b *reportBuilder) addValueChanges(ch normalform.ConceptChanges[*normalform.Value]) error {
	b.report.Values = append(b.report.Values, convertChanges(b.symbols, ch, b.value))
	return nil
}

func (b *reportBuilder) addPass(name string, res normalform.Result, stats normalform.ChangeStats) {
	b.report.Passes = append(b.report.Passes, passJSON{
		Generator: name,
		Processed: res.Processed,
		Generated: res.Generated,
		Layers:    res.Layers,
		Cancelled: res.Cancelled,
		ElapsedMs: res.Elapsed.Milliseconds(),
		Changed:   stats.Changed,
		Added:     stats.Added,
		Removed:   stats.Removed,
		Replaced:  stats.Replaced,
	})
}

func convertChanges[T, J any](st *reasoner.SymbolTable, ch normalform.ConceptChanges[T], conv func(T) J) conceptChangesJSON[J] {
	out := conceptChangesJSON[J]{Concept: st.Name(ch.ConceptID)}
	for _, a := range ch.Added {
		out.Added = append(out.Added, conv(a))
	}
	for _, r := range ch.Removed {
		out.Removed = append(out.Removed, conv(r))
	}
	for _, rp := range ch.Replacements {
		out.Replacements = append(out.Replacements, replacementJSON[J]{Removed: conv(rp.Removed), By: conv(rp.By)})
	}
	return out
}

// writeReport writes the report as JSON to w through a buffered writer.
func writeReport(w io.Writer, report *changeReport, pretty bool) error {
	bw := bufio.NewWriterSize(w, writerBufferSize)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(report); err != nil {
		return err
	}
	return bw.Flush()
}

// createOutput opens path for writing; "-" and "" mean stdout.
func createOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
