package geofeed

// Severity classifies a finding.
type Severity string

// Finding severities. Errors and fatals fail the run; warnings and infos never do.
const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARN"
	SeverityInfo    Severity = "INFO"
	SeverityFatal   Severity = "FATAL"
)

// Fails reports whether a finding of this severity fails the run.
func (s Severity) Fails() bool {
	return s == SeverityError || s == SeverityFatal
}

// Rule identifies which check produced a finding.
type Rule string

// Row and file rules.
const (
	RuleColumnCount       Rule = "column-count"
	RuleIPPrefix          Rule = "ip-prefix"
	RuleContainment       Rule = "containment"
	RuleCountryCode       Rule = "country-code"
	RuleRegionCode        Rule = "region-code"
	RuleCityLength        Rule = "city-length"
	RuleCityWithoutRegion Rule = "city-without-region"
	RuleUnknownCountry    Rule = "unknown-country"
	RuleRegionMismatch    Rule = "region-country-mismatch"
	RuleDuplicatePrefix   Rule = "duplicate-prefix"
	RuleFileMissing       Rule = "file-missing"
	RuleFileUnreadable    Rule = "file-unreadable"
)

// Finding is a single diagnostic. Line is 0 for file-level findings.
type Finding struct {
	Severity Severity `json:"severity" yaml:"severity"`
	Rule     Rule     `json:"rule" yaml:"rule"`
	Line     int      `json:"line,omitempty" yaml:"line,omitempty"`
	Message  string   `json:"message" yaml:"message"`
}

// FileStatus is the outcome of opening and reading one geofeed file.
type FileStatus string

// File statuses.
const (
	StatusChecked FileStatus = "checked"
	StatusMissing FileStatus = "missing"
	StatusFatal   FileStatus = "fatal"
)

// FileResult holds every finding for one input path, in row order.
type FileResult struct {
	Path     string     `json:"path" yaml:"path"`
	Status   FileStatus `json:"status" yaml:"status"`
	Rows     int        `json:"rows" yaml:"rows"`
	Findings []Finding  `json:"findings" yaml:"findings"`
}

// Failed reports whether any finding in the file fails the run.
func (f *FileResult) Failed() bool {
	for _, fd := range f.Findings {
		if fd.Severity.Fails() {
			return true
		}
	}
	return false
}

func (f *FileResult) add(findings ...Finding) {
	f.Findings = append(f.Findings, findings...)
}

// Report aggregates the results of one validation run, in input order.
type Report struct {
	RunID string       `json:"run_id" yaml:"run_id"`
	Files []FileResult `json:"files" yaml:"files"`
}

// Failed reports whether any file in the run failed.
func (r *Report) Failed() bool {
	for i := range r.Files {
		if r.Files[i].Failed() {
			return true
		}
	}
	return false
}

// Counts tallies findings by severity across the run.
type Counts struct {
	Errors   int `json:"errors" yaml:"errors"`
	Warnings int `json:"warnings" yaml:"warnings"`
	Fatals   int `json:"fatals" yaml:"fatals"`
	Skipped  int `json:"skipped" yaml:"skipped"`
}

// Counts returns finding totals for the run. Skipped counts missing files.
func (r *Report) Counts() Counts {
	var c Counts
	for _, f := range r.Files {
		if f.Status == StatusMissing {
			c.Skipped++
		}
		for _, fd := range f.Findings {
			switch fd.Severity {
			case SeverityError:
				c.Errors++
			case SeverityWarning:
				c.Warnings++
			case SeverityFatal:
				c.Fatals++
			}
		}
	}
	return c
}
