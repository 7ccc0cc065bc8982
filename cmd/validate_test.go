package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geofeedkit/geofeed/internal/config"
	"github.com/geofeedkit/geofeed/internal/report"
)

func writeFeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func textOpts() validateOptions {
	return validateOptions{Format: "text", Concurrency: 1}
}

func TestRunValidate_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantFail bool
		wantLine string
	}{
		{"minimal row", "2a0f:1cc0::/32,US\n", false, ""},
		{"lowercase country", "2a0f:1cc0::/32,us\n", true, ":1: Invalid country code format 'us'."},
		{"outside supernet", "2a0f:1cc8::/32,US\n", true, ":1: IP prefix '2a0f:1cc8::/32' is NOT within the allowed range 2a0f:1cc0::/29."},
		{"full row", "2a0f:1cc0::/32,US,US-CA,Los Angeles\n", false, ""},
		{"city without region", "2a0f:1cc0::/32,US,,Los Angeles\n", false, "  WARN: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFeed(t, tt.content)

			var out bytes.Buffer
			err := runValidate(context.Background(), &out, io.Discard, []string{path}, textOpts())

			if tt.wantFail {
				require.ErrorIs(t, err, errValidationFailed)
				assert.Contains(t, out.String(), "Validation FAILED. See errors above.")
			} else {
				require.NoError(t, err)
				assert.Contains(t, out.String(), "All changed geofeed files validated SUCCESSFULLY.")
			}
			if tt.wantLine != "" {
				assert.Contains(t, out.String(), tt.wantLine)
			} else {
				assert.Equal(t, "--- Validating file: "+path+" ---\n\nAll changed geofeed files validated SUCCESSFULLY.\n", out.String())
			}
		})
	}
}

func TestRunValidate_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deleted.csv")

	var out bytes.Buffer
	err := runValidate(context.Background(), &out, io.Discard, []string{path}, textOpts())
	require.NoError(t, err)

	assert.Contains(t, out.String(), "  INFO: File "+path+" not found (likely deleted in this PR). Skipping.")
}

func TestRunValidate_NoFiles(t *testing.T) {
	summary := filepath.Join(t.TempDir(), "summary.md")
	opts := textOpts()
	opts.StepSummary = summary

	var out bytes.Buffer
	err := runValidate(context.Background(), &out, io.Discard, nil, opts)
	require.NoError(t, err)

	assert.Equal(t, "No geofeed files to check. Skipping.\n", out.String())
	_, statErr := os.Stat(summary)
	assert.True(t, os.IsNotExist(statErr), "no summary should be written when nothing was checked")
}

func TestRunValidate_JSON(t *testing.T) {
	path := writeFeed(t, "2a0f:1cc0::/32,us\n")
	opts := textOpts()
	opts.Format = "json"

	var out bytes.Buffer
	err := runValidate(context.Background(), &out, io.Discard, []string{path}, opts)
	require.ErrorIs(t, err, errValidationFailed)

	assert.Contains(t, out.String(), `"failed": true`)
	assert.Contains(t, out.String(), `"rule": "country-code"`)
}

func TestRunValidate_StructuredOutputWithAnnotations(t *testing.T) {
	for _, format := range []string{"json", "yaml"} {
		t.Run(format, func(t *testing.T) {
			path := writeFeed(t, "2a0f:1cc0::/32,us\n")
			opts := textOpts()
			opts.Format = format
			opts.Annotations = true

			var out, errOut bytes.Buffer
			err := runValidate(context.Background(), &out, &errOut, []string{path}, opts)
			require.ErrorIs(t, err, errValidationFailed)

			assert.NotContains(t, out.String(), "::error")
			assert.Contains(t, errOut.String(), "::error file="+path+",line=1,title=geofeed country-code::")

			if format == "json" {
				var doc report.Document
				require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
				assert.True(t, doc.Failed)
			}
		})
	}
}

func TestRunValidate_UnknownFormat(t *testing.T) {
	path := writeFeed(t, "2a0f:1cc0::/32,US\n")
	opts := textOpts()
	opts.Format = "xml"

	err := runValidate(context.Background(), &bytes.Buffer{}, io.Discard, []string{path}, opts)
	require.Error(t, err)
	assert.NotErrorIs(t, err, errValidationFailed)
}

func TestRunValidate_GitHubIntegration(t *testing.T) {
	path := writeFeed(t, "2a0f:1cc0::/32,US\n2001:db8::/32,US\n")
	summary := filepath.Join(t.TempDir(), "summary.md")
	opts := textOpts()
	opts.Annotations = true
	opts.StepSummary = summary

	var out bytes.Buffer
	err := runValidate(context.Background(), &out, io.Discard, []string{path}, opts)
	require.ErrorIs(t, err, errValidationFailed)

	assert.Contains(t, out.String(), "::error file="+path+",line=2,title=geofeed containment::")

	md, readErr := os.ReadFile(summary)
	require.NoError(t, readErr)
	assert.True(t, strings.HasPrefix(string(md), "## Geofeed Validation"))
	assert.Contains(t, string(md), "**Result:** FAILED")
}

func TestResolveValidateOptions(t *testing.T) {
	orig := cfg
	t.Cleanup(func() { cfg = orig })

	cfg = &config.Config{
		Output:   config.OutputConfig{Format: "yaml"},
		Validate: config.ValidateConfig{Concurrency: 3},
		GitHub:   config.GitHubConfig{Annotations: true, StepSummary: "/tmp/summary.md"},
	}

	cmd := &cobra.Command{}
	cmd.Flags().String("format", "text", "")
	cmd.Flags().Int("concurrency", 1, "")
	cmd.Flags().Bool("github-annotations", false, "")
	cmd.Flags().String("step-summary", "", "")

	opts := resolveValidateOptions(cmd)
	assert.Equal(t, validateOptions{Format: "yaml", Concurrency: 3, Annotations: true, StepSummary: "/tmp/summary.md"}, opts)

	require.NoError(t, cmd.Flags().Set("format", "json"))
	require.NoError(t, cmd.Flags().Set("github-annotations", "false"))

	opts = resolveValidateOptions(cmd)
	assert.Equal(t, "json", opts.Format)
	assert.False(t, opts.Annotations)
	assert.Equal(t, 3, opts.Concurrency)
}
