package geofeed

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options configures a validation run.
type Options struct {
	// Concurrency is the number of files validated at once. Values below 1
	// mean sequential.
	Concurrency int
}

// NewReport returns an empty report with a fresh run id.
func NewReport() *Report {
	return &Report{RunID: uuid.NewString(), Files: []FileResult{}}
}

// Run validates each path and returns the results in input order. Row and
// file problems are recorded as findings; the error is non-nil only when ctx
// is cancelled.
func Run(ctx context.Context, paths []string, opts Options) (*Report, error) {
	rep := NewReport()
	rep.Files = make([]FileResult, len(paths))

	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return eris.Wrap(err, "geofeed: run cancelled")
			}
			rep.Files[i] = ValidateFile(path)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	c := rep.Counts()
	zap.L().Info("geofeed: run complete",
		zap.String("run_id", rep.RunID),
		zap.Int("files", len(paths)),
		zap.Int("errors", c.Errors),
		zap.Int("warnings", c.Warnings),
		zap.Int("fatals", c.Fatals),
		zap.Int("skipped", c.Skipped),
	)
	return rep, nil
}

// ValidateFile reads and validates the geofeed at path. A missing file is an
// informational skip; any other read failure is fatal for the file.
func ValidateFile(path string) FileResult {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		zap.L().Debug("geofeed: file not found", zap.String("path", path))
		return FileResult{
			Path:   path,
			Status: StatusMissing,
			Findings: []Finding{{
				Severity: SeverityInfo,
				Rule:     RuleFileMissing,
				Message:  fmt.Sprintf("File %s not found (likely deleted in this PR). Skipping.", path),
			}},
		}
	}
	if err != nil {
		res := FileResult{Path: path, Status: StatusChecked}
		res.fatal(err)
		return res
	}
	return ValidateReader(path, bytes.NewReader(data))
}

// ValidateReader validates geofeed CSV content read from r. path is used only
// for labelling the result.
func ValidateReader(path string, r io.Reader) FileResult {
	log := zap.L().With(zap.String("path", path))
	res := FileResult{Path: path, Status: StatusChecked}

	data, err := io.ReadAll(r)
	if err != nil {
		res.fatal(eris.Wrap(err, "geofeed: read content"))
		return res
	}
	if !utf8.Valid(data) {
		res.fatal(eris.New("content is not valid UTF-8"))
		return res
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	checker := newRowChecker()
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.fatal(eris.Wrap(err, "geofeed: parse csv"))
			return res
		}
		line, _ := reader.FieldPos(0)

		if len(row) == 0 || strings.HasPrefix(strings.TrimSpace(row[0]), "#") {
			continue
		}
		// A trailing delimiter leaves one empty field behind.
		if row[len(row)-1] == "" {
			row = row[:len(row)-1]
		}

		res.Rows++
		res.add(checker.check(line, row)...)
	}

	log.Debug("geofeed: file validated",
		zap.Int("rows", res.Rows),
		zap.Int("findings", len(res.Findings)),
	)
	return res
}

// fatal records a file-level failure. Findings gathered so far are kept.
func (f *FileResult) fatal(err error) {
	zap.L().Warn("geofeed: could not process file", zap.String("path", f.Path), zap.Error(err))
	f.Status = StatusFatal
	f.add(Finding{
		Severity: SeverityFatal,
		Rule:     RuleFileUnreadable,
		Message:  fmt.Sprintf("Could not process file. Error: %v", err),
	})
}
