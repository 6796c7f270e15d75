package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"i94etl/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_SESSION_TOKEN", "AWS_REGION",
		"METRICS_BACKEND", "PUSHGATEWAY_URL", "DD_DOGSTATSD_ADDR", "WAREHOUSE_DSN"} {
		t.Setenv(k, "")
	}
}

func executeCmd(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestValidate_ConfigFile(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	cfg := filepath.Join(dir, "job.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("job: nightly\noutput:\n  root: "+filepath.Join(dir, "out")+"\n"), 0o644))

	out, _, err := executeCmd(t, "validate", "--config", cfg)
	require.NoError(t, err)
	require.Contains(t, out, "configuration is valid: job=nightly")
}

func TestValidate_FlagOverridesBreakConfig(t *testing.T) {
	clearEnv(t)

	_, stderr, err := executeCmd(t, "validate", "--metrics-backend", "pushgateway")
	require.ErrorContains(t, err, "configuration is invalid")
	require.Contains(t, stderr, "error: metrics.pushgateway_url")
}

func TestExecute_StartupErrorIsPrinted(t *testing.T) {
	clearEnv(t)

	missing := filepath.Join(t.TempDir(), "nonexistent.yaml")
	var out, errOut bytes.Buffer
	code := execute([]string{"validate", "--config", missing}, &out, &errOut)
	require.Equal(t, 1, code)
	require.Empty(t, out.String())
	require.Contains(t, errOut.String(), "i94etl: config: read "+missing)

	errOut.Reset()
	code = execute([]string{"validate", "--credentials", filepath.Join(t.TempDir(), "dl.cfg")}, &out, &errOut)
	require.Equal(t, 1, code)
	require.Contains(t, errOut.String(), config.ErrCredentials.Error())

	errOut.Reset()
	require.Equal(t, 0, execute([]string{"validate"}, &out, &errOut))
}

func TestValidate_Credentials(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	creds := filepath.Join(dir, "dl.cfg")
	require.NoError(t, os.WriteFile(creds, []byte("[AWS]\nAWS_ACCESS_KEY_ID=AKIA\nAWS_SECRET_ACCESS_KEY=secret\n"), 0o600))

	f := flags{credentialsPath: creds}
	j, err := loadJob(f, &bytes.Buffer{})
	require.NoError(t, err)
	require.Equal(t, "AKIA", j.AWS.AccessKeyID)
	require.Equal(t, "secret", j.AWS.SecretAccessKey)

	f.credentialsPath = filepath.Join(dir, "missing.cfg")
	_, err = loadJob(f, &bytes.Buffer{})
	require.ErrorIs(t, err, config.ErrCredentials)
}

func TestSetupMetrics_DisabledAndUnknown(t *testing.T) {
	t.Parallel()

	for _, backend := range []string{"", "none", "statsite"} {
		j := config.Default()
		j.Metrics.Backend = backend
		flush := setupMetrics(j, zap.NewNop())
		flush()
	}
}
