// Package report renders a geofeed validation run as text, JSON, or YAML.
package report

import (
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/geofeedkit/geofeed/internal/geofeed"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Summary banners printed after the text listing.
const (
	NothingToCheck = "No geofeed files to check. Skipping."
	FailedBanner   = "Validation FAILED. See errors above."
	PassedBanner   = "All changed geofeed files validated SUCCESSFULLY."
)

// Document is the structured form of a run used by the JSON and YAML outputs.
type Document struct {
	RunID  string               `json:"run_id" yaml:"run_id"`
	Failed bool                 `json:"failed" yaml:"failed"`
	Counts geofeed.Counts       `json:"counts" yaml:"counts"`
	Files  []geofeed.FileResult `json:"files" yaml:"files"`
}

// NewDocument builds the structured form of rep.
func NewDocument(rep *geofeed.Report) Document {
	return Document{
		RunID:  rep.RunID,
		Failed: rep.Failed(),
		Counts: rep.Counts(),
		Files:  rep.Files,
	}
}

// Write renders rep to w in the given format.
func Write(w io.Writer, format string, rep *geofeed.Report) error {
	var out []byte
	switch format {
	case FormatText, "":
		out = []byte(FormatTextReport(rep))
	case FormatJSON:
		b, err := json.MarshalIndent(NewDocument(rep), "", "  ")
		if err != nil {
			return eris.Wrap(err, "report: marshal json")
		}
		out = append(b, '\n')
	case FormatYAML:
		b, err := yaml.Marshal(NewDocument(rep))
		if err != nil {
			return eris.Wrap(err, "report: marshal yaml")
		}
		out = b
	default:
		return eris.Errorf("report: unknown format %q", format)
	}

	if _, err := w.Write(out); err != nil {
		return eris.Wrap(err, "report: write")
	}
	return nil
}

// FormatTextReport produces the line-oriented diagnostic listing: a header per
// file, one line per finding, then a pass/fail banner.
func FormatTextReport(rep *geofeed.Report) string {
	var b strings.Builder

	if len(rep.Files) == 0 {
		b.WriteString(NothingToCheck + "\n")
		return b.String()
	}

	for _, f := range rep.Files {
		fmt.Fprintf(&b, "--- Validating file: %s ---\n", f.Path)
		for _, fd := range f.Findings {
			b.WriteString(FormatFinding(f.Path, fd))
			b.WriteByte('\n')
		}
	}

	if rep.Failed() {
		b.WriteString("\n" + FailedBanner + "\n")
	} else {
		b.WriteString("\n" + PassedBanner + "\n")
	}
	return b.String()
}

// FormatFinding renders a single finding line.
func FormatFinding(path string, fd geofeed.Finding) string {
	switch fd.Severity {
	case geofeed.SeverityInfo:
		return fmt.Sprintf("  INFO: %s", fd.Message)
	case geofeed.SeverityFatal:
		return fmt.Sprintf("  FATAL: %s: %s", path, fd.Message)
	default:
		return fmt.Sprintf("  %s: %s:%d: %s", fd.Severity, path, fd.Line, fd.Message)
	}
}
