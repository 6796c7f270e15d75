// Package config defines the job configuration for the i94 batch run.
//
// A Job is decoded from a YAML or JSON file (see Load), optionally merged
// with legacy INI credentials and environment overrides, and linted with
// ValidateJob before the run starts. Defaults mirror the source layout of the
// original capstone data set, so an empty file is a runnable job.
//
// Example (trimmed):
//
//	job: i94
//	input:
//	  root: /data
//	  demographics: { path: us-cities-demographics.csv, options: { comma: ";" } }
//	output:
//	  root: s3://my-bucket/Capstone_Project/
//	warehouse: { kind: sqlite, dsn: /tmp/i94.db }
package config

import (
	"encoding/json"
	"path/filepath"

	csvparser "i94etl/internal/parser/csv"
)

// Default source locations, relative to Input.Root.
const (
	DefaultImmigrationDir   = "../../data/18-83510-I94-Data-2016/"
	DefaultDemographicsFile = "us-cities-demographics.csv"
	DefaultTemperatureGlob  = "../../data2/*.csv"
	DefaultLabelsFile       = "I94_SAS_Labels_Descriptions.SAS"
	DefaultOutputRoot       = "Capstone_Project/"
	DefaultJobName          = "i94"
)

// Job is the top-level object decoded from a job file.
type Job struct {
	// Job labels metrics and log lines for this run.
	Job string `yaml:"job" json:"job"`

	Input     Input         `yaml:"input" json:"input"`
	Output    Output        `yaml:"output" json:"output"`
	Runtime   RuntimeConfig `yaml:"runtime" json:"runtime"`
	Warehouse Warehouse     `yaml:"warehouse" json:"warehouse"`
	Metrics   Metrics       `yaml:"metrics" json:"metrics"`

	// AWS carries object store credentials. It is filled from the job file,
	// the legacy dl.cfg file and env overrides, never exported to the process
	// environment.
	AWS AWS `yaml:"aws" json:"aws"`
}

// Input locates the four sources. Every Path is resolved against Root.
type Input struct {
	Root string `yaml:"root" json:"root"`

	// Immigration.Path is a directory searched recursively for *.sas7bdat.
	Immigration Source `yaml:"immigration" json:"immigration"`
	// Demographics.Path is a single ";"-delimited CSV file.
	Demographics Source `yaml:"demographics" json:"demographics"`
	// Temperature.Path is a glob of ","-delimited CSV files.
	Temperature Source `yaml:"temperature" json:"temperature"`
	// Labels.Path is the SAS label description text file.
	Labels Source `yaml:"labels" json:"labels"`
}

// Source is one input location plus a parser options bag.
type Source struct {
	Path string `yaml:"path" json:"path"`

	// Options is interpreted by the reader for this source. For CSV sources
	// the keys are: comma (string), trim_space (bool), lazy_quotes (bool),
	// charset (string), header_map (object), scrub (list of {old, new}).
	Options Options `yaml:"options" json:"options"`
}

// Output locates the written star schema.
type Output struct {
	// Root is a local directory or an s3://bucket/prefix URL.
	Root string `yaml:"root" json:"root"`
	// StagingDir holds Parquet files before publish; empty uses os.TempDir.
	StagingDir string `yaml:"staging_dir" json:"staging_dir"`
	// RowGroupRows flushes a Parquet row group every N rows; 0 uses the writer default.
	RowGroupRows int `yaml:"row_group_rows" json:"row_group_rows"`
}

// RuntimeConfig controls the bounded worker pools.
type RuntimeConfig struct {
	ReadWorkers  int `yaml:"read_workers" json:"read_workers"`
	WriteWorkers int `yaml:"write_workers" json:"write_workers"`
	SASChunkRows int `yaml:"sas_chunk_rows" json:"sas_chunk_rows"`
}

// Warehouse optionally mirrors every written table into a SQL database.
type Warehouse struct {
	// Kind is a registered storage kind ("sqlite", "postgres"); empty disables the mirror.
	Kind      string `yaml:"kind" json:"kind"`
	DSN       string `yaml:"dsn" json:"dsn"`
	BatchSize int    `yaml:"batch_size" json:"batch_size"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is "pushgateway", "datadog" or "none".
	Backend        string   `yaml:"backend" json:"backend"`
	PushgatewayURL string   `yaml:"pushgateway_url" json:"pushgateway_url"`
	DatadogAddr    string   `yaml:"datadog_addr" json:"datadog_addr"`
	Namespace      string   `yaml:"namespace" json:"namespace"`
	Tags           []string `yaml:"tags" json:"tags"`
}

// AWS holds S3 credentials and endpoint overrides.
type AWS struct {
	Region          string `yaml:"region" json:"region"`
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" json:"secret_access_key"`
	SessionToken    string `yaml:"session_token" json:"session_token"`
	// Endpoint targets an S3-compatible service (e.g. MinIO) with path-style addressing.
	Endpoint string `yaml:"endpoint" json:"endpoint"`
}

// Default returns a Job populated with the historical source layout.
func Default() Job {
	return Job{
		Job: DefaultJobName,
		Input: Input{
			Immigration:  Source{Path: DefaultImmigrationDir},
			Demographics: Source{Path: DefaultDemographicsFile},
			Temperature:  Source{Path: DefaultTemperatureGlob},
			Labels:       Source{Path: DefaultLabelsFile},
		},
		Output: Output{Root: DefaultOutputRoot},
		Runtime: RuntimeConfig{
			ReadWorkers:  4,
			WriteWorkers: 4,
			SASChunkRows: 100_000,
		},
		Metrics: Metrics{Backend: "none"},
	}
}

// Resolve joins p onto the input root. Absolute paths are returned as-is.
func (in Input) Resolve(p string) string {
	if in.Root == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(in.Root, p)
}

// CSV builds parser options from the source's options bag. comma is used
// when the bag does not name a delimiter.
func (s Source) CSV(comma rune) csvparser.Options {
	o := s.Options
	return csvparser.Options{
		Comma:      o.Rune("comma", comma),
		TrimSpace:  o.Bool("trim_space", false),
		LazyQuotes: o.Bool("lazy_quotes", false),
		Charset:    o.String("charset", ""),
		HeaderMap:  o.StringMap("header_map"),
		Scrub:      o.Replacements("scrub"),
	}
}

// Options is a small helper to fetch typed values from arbitrary YAML/JSON
// maps. It performs only minimal type coercion and returns provided defaults
// when a key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object
// whose values are strings. Non-string values are ignored. Returns nil when the
// key is missing or the value is not an object.
func (o Options) StringMap(key string) map[string]string {
	v, ok := o[key]
	if !ok {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	res := make(map[string]string, len(m))
	for k, vv := range m {
		if s, ok := vv.(string); ok {
			res[k] = s
		}
	}
	return res
}

// Replacements decodes a list of {old, new} objects. Entries with an empty
// old value are skipped.
func (o Options) Replacements(key string) []csvparser.Replacement {
	list, ok := o[key].([]any)
	if !ok {
		return nil
	}
	var out []csvparser.Replacement
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		r := Options(m)
		if old := r.String("old", ""); old != "" {
			out = append(out, csvparser.Replacement{Old: old, New: r.String("new", "")})
		}
	}
	return out
}

// UnmarshalJSON makes a missing or null "options" object decode to a
// non-nil, empty Options map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
