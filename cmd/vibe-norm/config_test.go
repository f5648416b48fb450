package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func readSettings(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	settings := map[string]any{}
	require.NoError(t, yaml.Unmarshal(data, &settings))
	return settings
}

func TestRunConfigSet(t *testing.T) {
	t.Cleanup(viper.Reset)
	path := filepath.Join(t.TempDir(), "vibe-norm.yaml")
	var buf bytes.Buffer

	require.NoError(t, runConfigSet(&buf, path, "workers", "4"))
	require.NoError(t, runConfigSet(&buf, path, "fasta", "/data/ref.fa"))
	require.NoError(t, runConfigSet(&buf, path, "verbose", "yes"))

	assert.Equal(t, map[string]any{
		"workers": 4,
		"fasta":   "/data/ref.fa",
		"verbose": true,
	}, readSettings(t, path))
	assert.Contains(t, buf.String(), "Set workers = 4 in "+path)
	assert.Equal(t, 4, viper.GetInt("workers"))
}

func TestRunConfigSet_Invalid(t *testing.T) {
	t.Cleanup(viper.Reset)
	path := filepath.Join(t.TempDir(), "vibe-norm.yaml")
	var buf bytes.Buffer

	tests := []struct {
		name, key, value string
	}{
		{"unknown key", "annotations.alphamissense", "true"},
		{"non-numeric workers", "workers", "many"},
		{"negative workers", "workers", "-1"},
		{"output format", "output-format", "maf"},
		{"bool", "verbose", "sometimes"},
		{"empty path", "cache", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, runConfigSet(&buf, path, tt.key, tt.value))
		})
	}

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "no config written on invalid input")
}

func TestRunConfigUnset(t *testing.T) {
	t.Cleanup(viper.Reset)
	path := filepath.Join(t.TempDir(), "vibe-norm.yaml")
	var buf bytes.Buffer

	require.NoError(t, runConfigSet(&buf, path, "cache", "/tmp/norm.duckdb"))
	require.NoError(t, runConfigSet(&buf, path, "workers", "2"))
	require.NoError(t, runConfigUnset(&buf, path, "cache"))
	assert.Equal(t, map[string]any{"workers": 2}, readSettings(t, path))

	buf.Reset()
	require.NoError(t, runConfigUnset(&buf, path, "cache"))
	assert.Contains(t, buf.String(), "cache is not set")

	assert.Error(t, runConfigUnset(&buf, path, "nope"))
}

func TestConfigCmd_ShowAndGet(t *testing.T) {
	t.Cleanup(viper.Reset)
	cfg := writeFile(t, "config.yaml", "fasta: /data/ref.fa\nworkers: 3\n")

	run := func(args ...string) string {
		var out bytes.Buffer
		root := newRootCmd()
		root.SetOut(&out)
		root.SetArgs(append([]string{"--config", cfg}, args...))
		require.NoError(t, root.Execute())
		return out.String()
	}

	assert.Equal(t, "/data/ref.fa\n", run("config", "get", "fasta"))
	assert.Equal(t, "3\n", run("config", "get", "workers"))

	show := run("config")
	assert.Contains(t, show, "# "+cfg+"\n")
	assert.Contains(t, show, "fasta: /data/ref.fa\n")
	assert.Contains(t, show, "workers: 3\n")
	assert.Contains(t, show, "output-format: tab\n")

	run("config", "set", "output-format", "vcf")
	assert.Equal(t, "vcf", readSettings(t, cfg)["output-format"])
	assert.Equal(t, "/data/ref.fa", readSettings(t, cfg)["fasta"])
}

func TestRunConfigGet_Errors(t *testing.T) {
	t.Cleanup(viper.Reset)
	var buf bytes.Buffer
	assert.ErrorContains(t, runConfigGet(&buf, "nope"), "unknown config key")
	assert.ErrorContains(t, runConfigGet(&buf, "cache"), "not set")
}
