package main

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geofeedkit/geofeed/internal/ci"
	"github.com/geofeedkit/geofeed/internal/geofeed"
	"github.com/geofeedkit/geofeed/internal/report"
)

// errValidationFailed is returned when any file has an error-level finding.
// main exits 1 without printing it; the report already explains why.
var errValidationFailed = eris.New("geofeed validation failed")

// validateOptions is the resolved configuration for one validate invocation.
type validateOptions struct {
	Format      string
	Concurrency int
	Annotations bool
	StepSummary string
}

var validateCmd = &cobra.Command{
	Use:   "validate [file...]",
	Short: "Validate geofeed CSV files",
	Long: `Validates each geofeed file in order and prints one line per finding.

Errors (bad column count, prefix, containment, country, or region) fail the
run with exit status 1. Warnings are advisory. Paths that no longer exist are
skipped, so the changed-file list of a pull request can be passed as is.

Examples:
  # Validate the feeds touched by a pull request
  geofeed validate client_feeds/acme.csv client_feeds/globex.csv

  # Machine-readable report
  geofeed validate --format json client_feeds/*.csv`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args, resolveValidateOptions(cmd))
	},
}

func init() {
	validateCmd.Flags().String("format", "text", "output format: text, json, or yaml")
	validateCmd.Flags().Int("concurrency", 1, "number of files validated at once")
	validateCmd.Flags().Bool("github-annotations", false, "emit GitHub Actions workflow annotations")
	validateCmd.Flags().String("step-summary", "", "append a Markdown summary to this file (default: $GITHUB_STEP_SUMMARY)")
	rootCmd.AddCommand(validateCmd)
}

// resolveValidateOptions layers explicitly set flags over the loaded config.
func resolveValidateOptions(cmd *cobra.Command) validateOptions {
	flags := cmd.Flags()

	var opts validateOptions
	opts.Format, _ = flags.GetString("format")
	opts.Concurrency, _ = flags.GetInt("concurrency")
	opts.Annotations, _ = flags.GetBool("github-annotations")
	opts.StepSummary, _ = flags.GetString("step-summary")
	if cfg == nil {
		return opts
	}

	if !flags.Changed("format") {
		opts.Format = cfg.Output.Format
	}
	if !flags.Changed("concurrency") {
		opts.Concurrency = cfg.Validate.Concurrency
	}
	if !flags.Changed("github-annotations") {
		opts.Annotations = cfg.GitHub.Annotations
	}
	if !flags.Changed("step-summary") {
		opts.StepSummary = cfg.GitHub.StepSummary
	}
	return opts
}

// runValidate validates paths, writes the report to w, and returns
// errValidationFailed when the run failed. With no paths nothing is opened.
// Annotations follow a text report on w; structured reports keep w parseable,
// so annotations go to errW instead.
func runValidate(ctx context.Context, w, errW io.Writer, paths []string, opts validateOptions) error {
	rep := geofeed.NewReport()
	if len(paths) > 0 {
		var err error
		rep, err = geofeed.Run(ctx, paths, geofeed.Options{Concurrency: opts.Concurrency})
		if err != nil {
			return eris.Wrap(err, "validate: run")
		}
	}

	if err := report.Write(w, opts.Format, rep); err != nil {
		return err
	}

	if opts.Annotations {
		annW := w
		if opts.Format != report.FormatText && opts.Format != "" {
			annW = errW
		}
		if _, err := io.WriteString(annW, ci.FormatAnnotations(rep)); err != nil {
			return eris.Wrap(err, "validate: write annotations")
		}
	}

	if opts.StepSummary != "" && len(paths) > 0 {
		if err := ci.AppendStepSummary(opts.StepSummary, ci.FormatMarkdown(rep)); err != nil {
			zap.L().Warn("validate: step summary not written", zap.Error(err))
		}
	}

	if rep.Failed() {
		return errValidationFailed
	}
	return nil
}
