// Package ci provides GitHub Actions integration for geofeed validation runs:
// workflow-command annotations and a Markdown job summary.
package ci

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/geofeedkit/geofeed/internal/geofeed"
)

// FileSummary holds aggregated finding counts for a single geofeed file.
type FileSummary struct {
	Path     string
	Status   geofeed.FileStatus
	Rows     int
	Errors   int
	Warnings int
}

// RunSummary holds the per-file summaries and the run total.
type RunSummary struct {
	Files  []FileSummary
	Total  FileSummary
	Failed bool
}

// Summarize aggregates a report into per-file counts. FATAL findings count as
// errors. File order follows the report.
func Summarize(rep *geofeed.Report) *RunSummary {
	sum := &RunSummary{
		Total:  FileSummary{Path: "total"},
		Failed: rep.Failed(),
	}

	for _, f := range rep.Files {
		fs := FileSummary{Path: f.Path, Status: f.Status, Rows: f.Rows}
		for _, fd := range f.Findings {
			switch {
			case fd.Severity.Fails():
				fs.Errors++
			case fd.Severity == geofeed.SeverityWarning:
				fs.Warnings++
			}
		}
		sum.Files = append(sum.Files, fs)
		sum.Total.Rows += fs.Rows
		sum.Total.Errors += fs.Errors
		sum.Total.Warnings += fs.Warnings
	}

	return sum
}

// FormatMarkdown produces a Markdown job summary: a per-file table followed by
// the failing findings.
func FormatMarkdown(rep *geofeed.Report) string {
	sum := Summarize(rep)
	var sb strings.Builder

	sb.WriteString("## Geofeed Validation\n\n")
	if sum.Failed {
		sb.WriteString("**Result:** FAILED\n\n")
	} else {
		sb.WriteString("**Result:** passed\n\n")
	}

	sb.WriteString("| File | Status | Rows | Errors | Warnings |\n")
	sb.WriteString("|:-----|:-------|-----:|-------:|---------:|\n")

	for _, f := range sum.Files {
		fmt.Fprintf(&sb, "| `%s` | %s | %d | %d | %d |\n",
			f.Path, f.Status, f.Rows, f.Errors, f.Warnings)
	}

	fmt.Fprintf(&sb, "| **Total** | | **%d** | **%d** | **%d** |\n",
		sum.Total.Rows, sum.Total.Errors, sum.Total.Warnings)

	if !sum.Failed {
		return sb.String()
	}

	sb.WriteString("\n### Errors\n\n")
	for _, f := range rep.Files {
		for _, fd := range f.Findings {
			if !fd.Severity.Fails() {
				continue
			}
			if fd.Line > 0 {
				fmt.Fprintf(&sb, "- `%s:%d` %s\n", f.Path, fd.Line, fd.Message)
			} else {
				fmt.Fprintf(&sb, "- `%s` %s\n", f.Path, fd.Message)
			}
		}
	}

	return sb.String()
}

// FormatAnnotations renders one workflow command per finding so the runner
// attaches it to the file and line in the pull request diff.
func FormatAnnotations(rep *geofeed.Report) string {
	var sb strings.Builder

	for _, f := range rep.Files {
		for _, fd := range f.Findings {
			props := "file=" + escapeProperty(f.Path)
			if fd.Line > 0 {
				props += fmt.Sprintf(",line=%d", fd.Line)
			}
			props += ",title=" + escapeProperty("geofeed "+string(fd.Rule))
			fmt.Fprintf(&sb, "::%s %s::%s\n", command(fd.Severity), props, escapeData(fd.Message))
		}
	}

	return sb.String()
}

// AppendStepSummary appends content to the job summary file at path.
func AppendStepSummary(path, content string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return eris.Wrapf(err, "ci: open step summary %s", path)
	}
	defer f.Close() //nolint:errcheck

	if _, err := f.WriteString(content); err != nil {
		return eris.Wrap(err, "ci: write step summary")
	}
	return nil
}

func command(s geofeed.Severity) string {
	switch s {
	case geofeed.SeverityError, geofeed.SeverityFatal:
		return "error"
	case geofeed.SeverityWarning:
		return "warning"
	default:
		return "notice"
	}
}

func escapeData(s string) string {
	r := strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")
	return r.Replace(s)
}

func escapeProperty(s string) string {
	r := strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A", ":", "%3A", ",", "%2C")
	return r.Replace(s)
}
