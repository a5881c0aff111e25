package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeadmin/snomed-dnf/normalform"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dnf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, normalform.RetainUntilChildrenDone, cfg.RelationshipPolicy())
	assert.Equal(t, normalform.RetainAll, cfg.ConcreteDomainPolicy())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
input: snapshot.obo
output: report.json
pretty: true
generator:
  workers: 8
  relationship_retention: two-layers
log:
  level: debug
metrics:
  textfile: /tmp/dnf.prom
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "snapshot.obo", cfg.Input)
	assert.Equal(t, "report.json", cfg.Output)
	assert.True(t, cfg.Pretty)
	assert.Equal(t, 8, cfg.Generator.Workers)
	assert.Equal(t, normalform.RetainTwoLayers, cfg.RelationshipPolicy())
	assert.Equal(t, normalform.RetainAll, cfg.ConcreteDomainPolicy(), "unset keys keep defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "/tmp/dnf.prom", cfg.Metrics.Textfile)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("DNF_WORKERS", "3")
	t.Setenv("DNF_LOG_FORMAT", "json")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Generator.Workers)
	assert.Equal(t, "json", cfg.Log.Format)

	t.Setenv("DNF_WORKERS", "many")
	_, err = Load("")
	assert.ErrorContains(t, err, "DNF_WORKERS")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"workers", "generator:\n  workers: 0\n", "Workers"},
		{"retention", "generator:\n  concrete_domain_retention: forever\n", "ConcreteDomainRetention"},
		{"log level", "log:\n  level: loud\n", "Level"},
		{"input", "input: \"\"\n", "Input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "generator: [unclosed\n"))
	assert.ErrorContains(t, err, "parse config")
}
