package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeadmin/snomed-dnf/reasoner"
)

const sampleSnapshot = "testdata/sample.obo"

func execute(t *testing.T, args ...string) (string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	require.NoError(t, cmd.Execute(), stderr.String())
	return stdout.String(), stderr.String()
}

func findRelationshipChanges(report changeReport, concept string) *conceptChangesJSON[relationshipJSON] {
	for i := range report.Relationships {
		if report.Relationships[i].Concept == concept {
			return &report.Relationships[i]
		}
	}
	return nil
}

func TestGenerateReportsChainRedundancy(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "changes.json")
	metrics := filepath.Join(dir, "dnf.prom")

	_, stderr := execute(t, "generate", "--input", sampleSnapshot, "--output", out,
		"--metrics-textfile", metrics, "--log-format", "json")
	assert.Contains(t, stderr, `"msg":"normal form pass finished"`)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var report changeReport
	require.NoError(t, json.Unmarshal(data, &report))

	assert.Equal(t, "snomed-dnf-sample", report.Ontology)
	require.Len(t, report.Passes, 2)
	assert.Equal(t, "relationship", report.Passes[0].Generator)
	assert.Equal(t, "concrete-domain", report.Passes[1].Generator)
	assert.Equal(t, report.Stats.ConceptCount, report.Passes[0].Processed)

	sulfate := findRelationshipChanges(report, "776542003")
	require.NotNil(t, sulfate)
	require.Len(t, sulfate.Removed, 1)
	assert.Equal(t, relationshipJSON{Type: "127489000", Destination: "373529000", StatementID: 5002}, sulfate.Removed[0])
	require.Len(t, sulfate.Added, 1)
	assert.Equal(t, "60886004", sulfate.Added[0].Destination)
	require.Len(t, sulfate.Replacements, 1)
	assert.Equal(t, "60886004", sulfate.Replacements[0].By.Destination)

	assert.Nil(t, findRelationshipChanges(report, "440561001"), "already in normal form")

	require.Len(t, report.Values, 1)
	assert.Equal(t, "440561001", report.Values[0].Concept)
	assert.Equal(t, []valueJSON{{Type: "1142139005", Value: "1", DataType: "xsd:integer"}}, report.Values[0].Added)

	prom, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `dnf_concepts_processed_total{generator="relationship"}`)
	assert.Contains(t, string(prom), `dnf_changes_total{generator="concrete-domain",kind="added"} 1`)
}

func TestGenerateIsStableAcrossWorkerCounts(t *testing.T) {
	seq, _ := execute(t, "generate", "--input", sampleSnapshot, "--log-level", "error")
	par, _ := execute(t, "generate", "--input", sampleSnapshot, "--log-level", "error", "--workers", "4")

	var a, b changeReport
	require.NoError(t, json.Unmarshal([]byte(seq), &a))
	require.NoError(t, json.Unmarshal([]byte(par), &b))
	assert.Equal(t, a.Relationships, b.Relationships)
	assert.Equal(t, a.Values, b.Values)
}

func TestGenerateReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "dnf.yaml")
	out := filepath.Join(dir, "report.json")
	body := "input: " + sampleSnapshot + "\noutput: " + out + "\npretty: true\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o600))

	execute(t, "--config", cfgPath, "generate")
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  "), "pretty output")
}

func TestGenerateRejectsBadFlags(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"generate", "--input", sampleSnapshot, "--relationship-retention", "forever"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RelationshipRetention")
}

func TestTaxonomyCommand(t *testing.T) {
	stdout, _ := execute(t, "taxonomy", "--input", sampleSnapshot, "--log-level", "error")

	var h reasoner.ClassifiedHierarchy
	require.NoError(t, json.Unmarshal([]byte(stdout), &h))
	depth := make(map[string]int)
	for _, c := range h.Concepts {
		depth[c.ID] = c.Depth
	}
	assert.Equal(t, 0, depth["138875005"])
	assert.Equal(t, 4, depth["776542003"])
	assert.NotContains(t, depth, "999999999", "obsolete terms are skipped")
	assert.Equal(t, 1, h.Stats.PropertyChainCount)
}

const memberSnapshot = `format-version: 1.2

[Typedef]
id: 10
name: Has ingredient

[Typedef]
id: 11
is_a: 10

[Typedef]
id: 20
name: Strength

[Term]
id: 1

[Term]
id: 2
is_a: 1

[Term]
id: 3
is_a: 2

[Term]
id: 4
is_a: 1
relationship: 10 2 {statement_id="700"}
property_value: 20 "250" xsd:integer {statement="700"}

[Term]
id: 5
is_a: 4
relationship: 11 3
`

func TestGenerateKeepsRelationshipsWithAttachedValues(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "members.obo")
	out := filepath.Join(dir, "changes.json")
	require.NoError(t, os.WriteFile(in, []byte(memberSnapshot), 0o644))

	execute(t, "generate", "--input", in, "--output", out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var report changeReport
	require.NoError(t, json.Unmarshal(data, &report))

	child := findRelationshipChanges(report, "5")
	require.NotNil(t, child)
	var attributes []relationshipJSON
	for _, r := range child.Added {
		if r.Type != reasoner.IsAName {
			attributes = append(attributes, r)
		}
	}
	require.Len(t, attributes, 2)
	assert.Equal(t, "2", attributes[0].Destination)
	assert.Equal(t, []valueJSON{{Type: "20", Value: "250", DataType: "xsd:integer"}}, attributes[0].Values)
	assert.Equal(t, "3", attributes[1].Destination)
	assert.Empty(t, attributes[1].Values)
	assert.Empty(t, report.Values, "attached values are not concept values")
}
