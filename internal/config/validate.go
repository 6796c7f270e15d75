package config

import (
	"fmt"
	"strings"

	"i94etl/internal/objectstore"
	csvparser "i94etl/internal/parser/csv"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Job.
//
// Path is a dotted path into the config (e.g. "warehouse.dsn",
// "input.demographics.options.comma"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidateJob performs static validation of a Job. It does not touch the
// filesystem or the network and does not mutate j.
func ValidateJob(j Job) []Issue {
	var issues []Issue

	if strings.TrimSpace(j.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	issues = append(issues, validateInput(j.Input)...)
	issues = append(issues, validateOutput(j.Output, j.AWS)...)
	issues = append(issues, validateRuntime(j.Runtime)...)
	issues = append(issues, validateWarehouse(j.Warehouse)...)
	issues = append(issues, validateMetrics(j.Metrics)...)

	return issues
}

func validateInput(in Input) []Issue {
	var issues []Issue

	sources := []struct {
		name string
		src  Source
		csv  bool
	}{
		{"immigration", in.Immigration, false},
		{"demographics", in.Demographics, true},
		{"temperature", in.Temperature, true},
		{"labels", in.Labels, false},
	}
	for _, s := range sources {
		if strings.TrimSpace(s.src.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "input." + s.name + ".path",
				Message:  "path must not be empty",
			})
		}
		if s.csv {
			issues = append(issues, validateCSVOptions("input."+s.name+".options", s.src.Options)...)
		} else if len(s.src.Options) > 0 {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "input." + s.name + ".options",
				Message:  "options are ignored for this source",
			})
		}
	}
	return issues
}

func validateCSVOptions(path string, o Options) []Issue {
	var issues []Issue

	if v, ok := o["comma"]; ok {
		s, isStr := v.(string)
		r := []rune(s)
		if !isStr || len(r) != 1 || r[0] == '"' || r[0] == '\n' || r[0] == '\r' {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".comma",
				Message:  fmt.Sprintf("comma must be a single delimiter character, got %v", v),
			})
		}
	}
	if cs := o.String("charset", ""); cs != "" {
		if _, err := csvparser.LookupCharset(cs); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".charset",
				Message:  fmt.Sprintf("unknown charset %q", cs),
			})
		}
	}
	if v, ok := o["header_map"]; ok {
		if _, isMap := v.(map[string]any); !isMap {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path + ".header_map",
				Message:  "header_map should be an object of source -> column names; ignoring",
			})
		}
	}
	if v, ok := o["scrub"]; ok {
		list, isList := v.([]any)
		if !isList || len(o.Replacements("scrub")) != len(list) {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path + ".scrub",
				Message:  "scrub should be a list of {old, new} with non-empty old; invalid entries are ignored",
			})
		}
	}
	return issues
}

func validateOutput(out Output, aws AWS) []Issue {
	var issues []Issue

	if strings.TrimSpace(out.Root) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.root",
			Message:  "output.root must not be empty",
		})
		return issues
	}
	if out.RowGroupRows < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.row_group_rows",
			Message:  "row_group_rows must not be negative",
		})
	}

	_, _, isS3, err := objectstore.ParseS3URL(out.Root)
	if err != nil {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.root",
			Message:  err.Error(),
		})
		return issues
	}
	if !isS3 {
		return issues
	}
	hasID, hasSecret := aws.AccessKeyID != "", aws.SecretAccessKey != ""
	switch {
	case hasID != hasSecret:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "aws",
			Message:  "access_key_id and secret_access_key must be set together",
		})
	case !hasID:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "aws",
			Message:  "no static credentials; the default AWS credential chain will be used",
		})
	}
	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue

	for _, f := range []struct {
		path string
		v    int
	}{
		{"runtime.read_workers", r.ReadWorkers},
		{"runtime.write_workers", r.WriteWorkers},
		{"runtime.sas_chunk_rows", r.SASChunkRows},
	} {
		if f.v < 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     f.path,
				Message:  fmt.Sprintf("%d must not be negative", f.v),
			})
		}
	}
	return issues
}

func validateWarehouse(w Warehouse) []Issue {
	var issues []Issue

	if strings.TrimSpace(w.Kind) == "" {
		return nil
	}
	known := map[string]struct{}{
		"postgres": {},
		"sqlite":   {},
	}
	if _, ok := known[w.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "warehouse.kind",
			Message:  fmt.Sprintf("unknown warehouse kind %q; ensure a matching backend is registered", w.Kind),
		})
	}
	if strings.TrimSpace(w.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "warehouse.dsn",
			Message:  "warehouse.dsn must not be empty when warehouse.kind is set",
		})
	}
	if w.BatchSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "warehouse.batch_size",
			Message:  "batch_size must not be negative",
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	switch m.Backend {
	case "", "none":
		return nil
	case "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			return []Issue{{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "pushgateway backend requires pushgateway_url",
			}}
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			return []Issue{{
				Severity: SeverityError,
				Path:     "metrics.datadog_addr",
				Message:  "datadog backend requires datadog_addr",
			}}
		}
	default:
		return []Issue{{
			Severity: SeverityWarning,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; metrics disabled", m.Backend),
		}}
	}
	return nil
}
