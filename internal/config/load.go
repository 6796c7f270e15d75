package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// ErrCredentials reports an unusable credentials source.
var ErrCredentials = errors.New("config: credentials")

// Legacy credentials file layout.
const (
	CredentialsSection = "AWS"
	keyAccessKeyID     = "AWS_ACCESS_KEY_ID"
	keySecretAccessKey = "AWS_SECRET_ACCESS_KEY"
)

// Load reads a job file over Default(). The format follows the extension:
// .json is JSON, anything else is YAML. An empty path returns the defaults.
// Unknown keys are rejected so typos do not silently fall back to defaults.
func Load(path string) (Job, error) {
	j := Default()
	if path == "" {
		return j, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return j, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := Decode(b, strings.ToLower(filepath.Ext(path)) == ".json", &j); err != nil {
		return j, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return j, nil
}

// Decode unmarshals b into j, keeping any field b does not set.
func Decode(b []byte, isJSON bool, j *Job) error {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if isJSON {
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		return dec.Decode(j)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	return dec.Decode(j)
}

// LoadCredentials reads the [AWS] section of a legacy dl.cfg INI file into
// aws. Both keys must be present and non-empty.
func LoadCredentials(path string, aws *AWS) error {
	f, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("%w: load %s: %v", ErrCredentials, path, err)
	}
	sec, err := f.GetSection(CredentialsSection)
	if err != nil {
		return fmt.Errorf("%w: %s has no [%s] section", ErrCredentials, path, CredentialsSection)
	}
	id := strings.TrimSpace(sec.Key(keyAccessKeyID).String())
	secret := strings.TrimSpace(sec.Key(keySecretAccessKey).String())
	if id == "" || secret == "" {
		return fmt.Errorf("%w: %s [%s] needs %s and %s", ErrCredentials, path, CredentialsSection, keyAccessKeyID, keySecretAccessKey)
	}
	aws.AccessKeyID = id
	aws.SecretAccessKey = secret
	return nil
}

// ApplyEnv overrides j from environment variables read through getenv.
// Unset or empty variables leave the current value in place.
func ApplyEnv(j *Job, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&j.AWS.AccessKeyID, keyAccessKeyID)
	set(&j.AWS.SecretAccessKey, keySecretAccessKey)
	set(&j.AWS.SessionToken, "AWS_SESSION_TOKEN")
	set(&j.AWS.Region, "AWS_REGION")
	set(&j.Metrics.Backend, "METRICS_BACKEND")
	set(&j.Metrics.PushgatewayURL, "PUSHGATEWAY_URL")
	set(&j.Metrics.DatadogAddr, "DD_DOGSTATSD_ADDR")
	set(&j.Warehouse.DSN, "WAREHOUSE_DSN")
}
