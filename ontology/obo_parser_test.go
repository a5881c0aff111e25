package ontology

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshot = `format-version: 1.2
data-version: 2026-09-01
ontology: sample

[Typedef]
id: 127489000
name: Has active ingredient
is_a: 762705008 ! Concept model object attribute
holds_over_chain: 127489000 738774007

[Term]
id: 776542003
name: Morphine sulfate-containing product
is_a: 440561001 ! Morphine-containing product
is_exhaustive: true
relationship: 127489000 60886004 {group="1", union_group="2", characteristic="stated", statement_id="42"} ! Morphine sulfate
relationship: 127489000 373529000 {characteristic="inferred", negated="true", universal="true", released="true"}
property_value: 1142139005 "1" xsd:integer {group="1", characteristic="inferred"}
property_value: 774160008 "tablet ! coated" xsd:string

[Instance]
id: ignored

[Term]
id: 999999999
is_obsolete: true
`

func TestParseOBO(t *testing.T) {
	ont, err := ParseOBO(strings.NewReader(snapshot))
	require.NoError(t, err)

	assert.Equal(t, "1.2", ont.FormatVersion)
	assert.Equal(t, "2026-09-01", ont.DataVersion)
	assert.Equal(t, "sample", ont.Ontology)

	require.Len(t, ont.TypeDefs, 1)
	td := ont.TypeDefs[0]
	assert.Equal(t, "127489000", td.ID)
	assert.Equal(t, []string{"762705008"}, td.IsA)
	assert.Equal(t, []ChainLink{{Source: "127489000", Destination: "738774007"}}, td.HoldsOverChain)

	require.Len(t, ont.Terms, 2)
	term := ont.Terms[0]
	assert.Equal(t, "776542003", term.ID)
	assert.Equal(t, []string{"440561001"}, term.IsA)
	assert.True(t, term.IsExhaustive)
	assert.True(t, ont.Terms[1].IsObsolete)

	require.Len(t, term.Relationships, 2)
	assert.Equal(t, Relationship{
		Type: "127489000", TargetID: "60886004", Group: 1, UnionGroup: 2,
		Characteristic: Stated, StatementID: 42,
	}, term.Relationships[0])
	assert.Equal(t, Relationship{
		Type: "127489000", TargetID: "373529000",
		Universal: true, Negated: true, Released: true, Characteristic: Inferred,
	}, term.Relationships[1])

	require.Len(t, term.PropertyValues, 2)
	assert.Equal(t, PropertyValue{Type: "1142139005", Value: "1", DataType: "xsd:integer", Group: 1, Characteristic: Inferred}, term.PropertyValues[0])
	assert.Equal(t, "tablet ! coated", term.PropertyValues[1].Value)
	assert.Equal(t, Stated, term.PropertyValues[1].Characteristic)
}

func TestParseOBOErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"relationship arity", `relationship: 127489000`, "needs type and target"},
		{"negative group", `relationship: 1 2 {group="-1"}`, "non-negative"},
		{"unquoted qualifier", `relationship: 1 2 {group=1}`, "must be quoted"},
		{"characteristic", `relationship: 1 2 {characteristic="asserted"}`, "unknown characteristic"},
		{"missing datatype", `property_value: 1 "5"`, "missing datatype"},
		{"unterminated value", `property_value: 1 "5 xsd:integer`, "unterminated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "[Term]\nid: 1\n" + tt.line + "\n"
			_, err := ParseOBO(strings.NewReader(input))
			require.Error(t, err)
			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, 3, pe.Line)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseOBOChainArity(t *testing.T) {
	_, err := ParseOBO(strings.NewReader("[Typedef]\nid: 1\nholds_over_chain: 2\n"))
	assert.ErrorContains(t, err, "holds_over_chain needs two attribute ids")
}

func TestParseOBOStatementMembers(t *testing.T) {
	input := "[Term]\nid: 1\n" +
		`relationship: 411116001 385055001 {group="1", statement_id="7001"}` + "\n" +
		`property_value: 1142135004 "250" xsd:decimal {group="1", statement="7001", characteristic="inferred"}` + "\n"
	ont, err := ParseOBO(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, ont.Terms[0].PropertyValues, 1)
	assert.Equal(t, PropertyValue{
		Type: "1142135004", Value: "250", DataType: "xsd:decimal",
		Group: 1, Statement: 7001, Characteristic: Inferred,
	}, ont.Terms[0].PropertyValues[0])

	_, err = ParseOBO(strings.NewReader("[Term]\nid: 1\n" + `property_value: 1 "5" xsd:integer {statement="x"}` + "\n"))
	assert.ErrorContains(t, err, "qualifier statement")
}
