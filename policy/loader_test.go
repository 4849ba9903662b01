package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigLayersDefaults(t *testing.T) {
	data := []byte(`
version: 1
default:
  timeout_seconds: 60
  max_attempts: 2
operations:
  story_write:
    timeout_seconds: 300
    max_attempts: 3
  export:
    retry_on_failure_result: true
`)

	cfg, err := ParseConfig(data)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Version)

	// config default inherits unset fields from the engine defaults
	assert.Equal(t, 60, cfg.Default.TimeoutSeconds)
	assert.Equal(t, 2, cfg.Default.MaxAttempts)
	assert.Equal(t, 2, cfg.Default.RetryDelayBaseSeconds)
	assert.True(t, cfg.Default.ExponentialBackoff)
	assert.True(t, cfg.Default.RetryOnException)

	// overrides inherit every field they do not set from the config default
	story := cfg.Operations["story_write"]
	assert.Equal(t, 300, story.TimeoutSeconds)
	assert.Equal(t, 3, story.MaxAttempts)
	assert.True(t, story.ExponentialBackoff)
	assert.True(t, story.RetryOnException)

	export := cfg.Operations["export"]
	assert.Equal(t, 60, export.TimeoutSeconds)
	assert.Equal(t, 2, export.MaxAttempts)
	assert.True(t, export.RetryOnFailureResult)
}

func TestParseConfigAcceptsJSON(t *testing.T) {
	data := []byte(`{"version": 1, "default": {"timeout_seconds": 15}, "operations": {"export": {"max_attempts": 4}}}`)

	cfg, err := ParseConfig(data)
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.Default.TimeoutSeconds)
	assert.Equal(t, 4, cfg.Operations["export"].MaxAttempts)
	assert.Equal(t, 15, cfg.Operations["export"].TimeoutSeconds)
}

func TestParseConfigEmptyDocumentUsesEngineDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("version: 1\n"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg.Default)
	assert.Empty(t, cfg.Operations)
}

func TestParseConfigRejectsMalformedInput(t *testing.T) {
	_, err := ParseConfig([]byte("default: ["))
	require.Error(t, err)

	_, err = ParseConfig([]byte("default:\n  timeout_seconds: not_a_number\n"))
	require.Error(t, err)
}

func TestValidateRejectsNegativeValues(t *testing.T) {
	cfg := Config{Default: Default(), Operations: map[string]ExecutionPolicy{
		"export": {MaxAttempts: -1},
	}}
	require.Error(t, cfg.Validate())

	cfg = Config{Default: ExecutionPolicy{RetryDelayBaseSeconds: -2}}
	require.Error(t, cfg.Validate())
}

func TestConfigTableResolves(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
default:
  timeout_seconds: 30
operations:
  StoryWrite:
    timeout_seconds: 600
`))
	require.NoError(t, err)

	table := cfg.Table()
	assert.Equal(t, 600, table.Resolve("story_write", nil).TimeoutSeconds)
	assert.Equal(t, 30, table.Resolve("anything_else", nil).TimeoutSeconds)
}
