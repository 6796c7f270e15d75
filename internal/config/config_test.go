package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	csvparser "i94etl/internal/parser/csv"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestLoad_EmptyPathGivesDefaults(t *testing.T) {
	t.Parallel()

	j, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if diff := cmp.Diff(Default(), j); diff != "" {
		t.Fatalf("Load(\"\") mismatch (-want +got):\n%s", diff)
	}
	if issues := ValidateJob(j); HasErrors(issues) {
		t.Fatalf("defaults have errors: %+v", issues)
	}
}

func TestLoad_YAMLOverlaysDefaults(t *testing.T) {
	t.Parallel()

	p := writeFile(t, "job.yaml", `
job: nightly
input:
  root: /data
  demographics:
    path: demo.csv
    options:
      charset: ISO-8859-1
      header_map: { "Median Age": median }
      scrub:
        - { old: " ", new: " " }
output:
  root: s3://bucket/star/
warehouse:
  kind: sqlite
  dsn: /tmp/i94.db
`)
	j, err := Load(p)
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if j.Job != "nightly" || j.Input.Root != "/data" || j.Output.Root != "s3://bucket/star/" {
		t.Fatalf("job = %+v", j)
	}
	if j.Input.Labels.Path != DefaultLabelsFile {
		t.Fatalf("labels path = %q, want default", j.Input.Labels.Path)
	}
	if j.Runtime.ReadWorkers != 4 {
		t.Fatalf("read_workers = %d, want default 4", j.Runtime.ReadWorkers)
	}

	got := j.Input.Demographics.CSV(';')
	want := csvparser.Options{
		Comma:     ';',
		Charset:   "ISO-8859-1",
		HeaderMap: map[string]string{"Median Age": "median"},
		Scrub:     []csvparser.Replacement{{Old: " ", New: " "}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("CSV options mismatch (-want +got):\n%s", diff)
	}
	if r := j.Input.Resolve(j.Input.Demographics.Path); r != filepath.Join("/data", "demo.csv") {
		t.Fatalf("Resolve = %q", r)
	}
}

func TestLoad_JSON(t *testing.T) {
	t.Parallel()

	p := writeFile(t, "job.json", `{"job":"j","input":{"temperature":{"path":"t/*.csv","options":{"comma":";","trim_space":true}}},"runtime":{"write_workers":8}}`)
	j, err := Load(p)
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if j.Runtime.WriteWorkers != 8 || j.Runtime.ReadWorkers != 4 {
		t.Fatalf("runtime = %+v", j.Runtime)
	}
	o := j.Input.Temperature.CSV(',')
	if o.Comma != ';' || !o.TrimSpace {
		t.Fatalf("temperature csv = %+v", o)
	}
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	for name, body := range map[string]string{
		"job.yaml": "outptu:\n  root: x\n",
		"job.json": `{"outptu":{"root":"x"}}`,
	} {
		if _, err := Load(writeFile(t, name, body)); err == nil {
			t.Fatalf("Load(%s) error = nil, want unknown field error", name)
		}
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("Load(missing) error = nil")
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		root, p, want string
	}{
		{"", "a.csv", "a.csv"},
		{"/in", "a.csv", "/in/a.csv"},
		{"/in", "/abs/a.csv", "/abs/a.csv"},
		{"/in/x", "../data2/*.csv", "/in/data2/*.csv"},
	}
	for _, tc := range tests {
		if got := (Input{Root: tc.root}).Resolve(tc.p); got != tc.want {
			t.Fatalf("Resolve(%q, %q) = %q, want %q", tc.root, tc.p, got, tc.want)
		}
	}
}

func TestLoadCredentials(t *testing.T) {
	t.Parallel()

	good := writeFile(t, "dl.cfg", "[AWS]\nAWS_ACCESS_KEY_ID = AKIA123\nAWS_SECRET_ACCESS_KEY = s3cr3t\n")
	var aws AWS
	if err := LoadCredentials(good, &aws); err != nil {
		t.Fatalf("LoadCredentials error = %v", err)
	}
	if aws.AccessKeyID != "AKIA123" || aws.SecretAccessKey != "s3cr3t" {
		t.Fatalf("aws = %+v", aws)
	}

	bad := map[string]string{
		"nosection.cfg": "[OTHER]\nAWS_ACCESS_KEY_ID = x\n",
		"partial.cfg":   "[AWS]\nAWS_ACCESS_KEY_ID = x\n",
	}
	for name, body := range bad {
		err := LoadCredentials(writeFile(t, name, body), &AWS{})
		if !errors.Is(err, ErrCredentials) {
			t.Fatalf("LoadCredentials(%s) = %v, want ErrCredentials", name, err)
		}
	}
	if err := LoadCredentials(filepath.Join(t.TempDir(), "none.cfg"), &AWS{}); !errors.Is(err, ErrCredentials) {
		t.Fatalf("LoadCredentials(missing) = %v, want ErrCredentials", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"AWS_ACCESS_KEY_ID":     "id",
		"AWS_SECRET_ACCESS_KEY": "secret",
		"AWS_REGION":            "us-west-2",
		"METRICS_BACKEND":       "pushgateway",
		"PUSHGATEWAY_URL":       "http://gw:9091",
		"WAREHOUSE_DSN":         "  ",
	}
	j := Default()
	j.Warehouse.DSN = "keep"
	ApplyEnv(&j, func(k string) string { return env[k] })

	if j.AWS.AccessKeyID != "id" || j.AWS.SecretAccessKey != "secret" || j.AWS.Region != "us-west-2" {
		t.Fatalf("aws = %+v", j.AWS)
	}
	if j.Metrics.Backend != "pushgateway" || j.Metrics.PushgatewayURL != "http://gw:9091" {
		t.Fatalf("metrics = %+v", j.Metrics)
	}
	if j.Warehouse.DSN != "keep" {
		t.Fatalf("blank env overrode dsn: %q", j.Warehouse.DSN)
	}
}

func TestOptionsAccessors(t *testing.T) {
	t.Parallel()

	o := Options{
		"s": "x", "b": true, "f": float64(3), "i": 4, "r": ";",
		"m":  map[string]any{"a": "b", "n": 1},
		"sc": []any{map[string]any{"old": "a", "new": "b"}, map[string]any{"old": ""}, "junk"},
	}
	if o.String("s", "d") != "x" || o.String("b", "d") != "d" {
		t.Fatalf("String")
	}
	if !o.Bool("b", false) || o.Bool("s", false) {
		t.Fatalf("Bool")
	}
	if o.Rune("r", ',') != ';' || o.Rune("missing", ',') != ',' {
		t.Fatalf("Rune")
	}
	if diff := cmp.Diff(map[string]string{"a": "b"}, o.StringMap("m")); diff != "" {
		t.Fatalf("StringMap (-want +got):\n%s", diff)
	}
	if got := o.Replacements("sc"); len(got) != 1 || got[0] != (csvparser.Replacement{Old: "a", New: "b"}) {
		t.Fatalf("Replacements = %+v", got)
	}
}
