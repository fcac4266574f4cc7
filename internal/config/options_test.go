package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptionsDefaults(t *testing.T) {
	opts, err := ParseOptions([]byte("{}"), "empty.yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions(), *opts)
}

func TestParseOptionsOverrides(t *testing.T) {
	src := `
version: 1.2.0
strict_null_checks: false
exact_optional_property_types: true
any_propagation: strict
workers: 3
rules:
  freshness: false
  weak_types: false
  bivariant_param_count: true
`
	opts, err := ParseOptions([]byte(src), "opts.yaml")
	require.NoError(t, err)

	assert.False(t, opts.StrictNullChecks)
	assert.True(t, opts.StrictFunctionTypes, "unset fields keep their defaults")
	assert.True(t, opts.ExactOptionalPropertyTypes)
	assert.Equal(t, AnyStrict, opts.AnyPropagation)
	assert.Equal(t, 3, opts.WorkerCount())

	assert.False(t, opts.Rules.Freshness)
	assert.False(t, opts.Rules.WeakTypes)
	assert.True(t, opts.Rules.EnumNominality)
	assert.True(t, opts.Rules.VoidReturn)
	assert.True(t, opts.Rules.BivariantParamCount)
	assert.False(t, DefaultRules().BivariantParamCount)
}

func TestParseOptionsErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "bad any mode",
			src:  "any_propagation: sometimes",
			want: "any_propagation",
		},
		{
			name: "negative workers",
			src:  "workers: -1",
			want: "workers",
		},
		{
			name: "future schema",
			src:  "version: 2.0.0",
			want: "unsupported version",
		},
		{
			name: "garbage version",
			src:  "version: banana",
			want: "invalid version",
		},
		{
			name: "malformed yaml",
			src:  "rules: [",
			want: "parsing bad.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOptions([]byte(tt.src), "bad.yaml")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadOptions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tsolve.yaml")
	require.NoError(t, os.WriteFile(path, []byte("strict_function_types: false\n"), 0o644))

	opts, err := LoadOptions(path)
	require.NoError(t, err)
	assert.False(t, opts.StrictFunctionTypes)

	_, err = LoadOptions(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestWorkerCountDefaultsToProcs(t *testing.T) {
	opts := DefaultOptions()
	assert.Positive(t, opts.WorkerCount())
}

func TestCheckSchemaVersion(t *testing.T) {
	assert.NoError(t, CheckSchemaVersion(""))
	assert.NoError(t, CheckSchemaVersion("1.0.0"))
	assert.NoError(t, CheckSchemaVersion("1.9"))
	assert.Error(t, CheckSchemaVersion("0.9.0"))
}
