package common

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"resumepilot/internal/errors"
	"resumepilot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOutput() *types.GenerationOutput {
	return &types.GenerationOutput{
		Task:     "bio",
		Content:  "Backend engineer who likes boring infrastructure.",
		Provider: "gemini",
		Model:    "gemini-2.0-flash",
	}
}

func TestHandleOutputToWriter(t *testing.T) {
	var buf bytes.Buffer
	err := NewOutputHandler(nil).HandleOutput(sampleOutput(), CommandConfig{OutputFormat: "text", Stdout: &buf})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Backend engineer who likes boring infrastructure.")
	assert.Contains(t, buf.String(), "gemini")
}

func TestHandleOutputToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "bio.json")
	var buf bytes.Buffer

	err := NewOutputHandler(nil).HandleOutput(sampleOutput(), CommandConfig{OutputFile: out, OutputFormat: "json", Stdout: &buf})
	require.NoError(t, err)
	assert.Empty(t, buf.String())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"provider": "gemini"`)
}

func TestHandleOutputUnknownFormat(t *testing.T) {
	err := NewOutputHandler(nil).HandleOutput(sampleOutput(), CommandConfig{OutputFormat: "xml", Stdout: &bytes.Buffer{}})
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeInvalidFormat, appErr.Code)
}
