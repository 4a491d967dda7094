package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"go.uber.org/zap/zapcore"
)

func runTest(t *testing.T, ctx context.Context, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	exitCode := run(ctx, args, &stdout, &stderr)
	return exitCode, stdout.String(), stderr.String()
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/geographiclib/geoids-distrib/egm96-5.tar.bz2":
			http.ServeFile(w, r, filepath.Join("..", "..", "data", "testdata", "egm96-5.tar.bz2"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestVersion(t *testing.T) {
	exitCode, stdout, _ := runTest(t, t.Context(), "--version")
	assert.Equal(t, exitSuccess, exitCode)
	assert.Equal(t, "geomodels-cli vdev\n", stdout)
}

func TestUsageErrors(t *testing.T) {
	for _, tc := range []struct {
		name           string
		args           []string
		expectedStderr string
	}{
		{
			name:           "no_command",
			args:           []string{},
			expectedStderr: "ERROR: no command specified",
		},
		{
			name:           "unknown_command",
			args:           []string{"frobnicate"},
			expectedStderr: "ERROR: unknown command",
		},
		{
			name:           "invalid_log_level",
			args:           []string{"--loglevel", "LOUD", "info"},
			expectedStderr: "invalid log level",
		},
		{
			name:           "missing_config",
			args:           []string{"--config", "missing.yaml", "info"},
			expectedStderr: "CRITICAL: ",
		},
		{
			name:           "install_data_no_model",
			args:           []string{"install-data"},
			expectedStderr: "expected exactly one model",
		},
		{
			name:           "install_data_unknown_model",
			args:           []string{"install-data", "--dry-run", "egm2020"},
			expectedStderr: "unknown model",
		},
		{
			name:           "eval_unknown_kind",
			args:           []string{"eval", "elevation", "45", "6"},
			expectedStderr: "unknown model kind",
		},
		{
			name:           "eval_invalid_coordinate",
			args:           []string{"eval", "geoid", "north", "6"},
			expectedStderr: "invalid syntax",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			exitCode, _, stderr := runTest(t, t.Context(), tc.args...)
			assert.Equal(t, exitFailure, exitCode)
			assert.Contains(t, stderr, tc.expectedStderr)
		})
	}
}

func TestHelp(t *testing.T) {
	exitCode, _, stderr := runTest(t, t.Context(), "-h")
	assert.Equal(t, exitSuccess, exitCode)
	assert.Contains(t, stderr, "install-data")
	assert.Contains(t, stderr, "import-igrf")
}

func TestParseLogLevel(t *testing.T) {
	for _, tc := range []struct {
		s        string
		expected zapcore.Level
	}{
		{s: "DEBUG", expected: zapcore.DebugLevel},
		{s: "info", expected: zapcore.InfoLevel},
		{s: "WARNING", expected: zapcore.WarnLevel},
		{s: "ERROR", expected: zapcore.ErrorLevel},
		{s: "CRITICAL", expected: zapcore.DPanicLevel},
	} {
		t.Run(tc.s, func(t *testing.T) {
			actual, err := parseLogLevel(tc.s)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestInfoData(t *testing.T) {
	dataDir := t.TempDir()
	assert.NoError(t, os.MkdirAll(filepath.Join(dataDir, "magnetic"), 0o777))
	assert.NoError(t, os.WriteFile(filepath.Join(dataDir, "magnetic", "wmm2015.wmm"), nil, 0o666))

	exitCode, stdout, _ := runTest(t, t.Context(), "info", "--data", "-d", dataDir)
	assert.Equal(t, exitSuccess, exitCode)
	assert.Contains(t, stdout, "data directory: ")
	assert.Contains(t, stdout, "* model: geoids ")
	assert.Contains(t, stdout, "  wmm2015      - INSTALLED\n")
	assert.Contains(t, stdout, "  wmm2015v2    - NOT INSTALLED\n")
	assert.Contains(t, stdout, "  egm96        - NOT INSTALLED\n")
	assert.NotContains(t, stdout, "GeographicLib version")
}

func TestInfoConfig(t *testing.T) {
	dataDir := t.TempDir()
	assert.NoError(t, os.MkdirAll(filepath.Join(dataDir, "gravity"), 0o777))
	assert.NoError(t, os.WriteFile(filepath.Join(dataDir, "gravity", "egm96.egm"), nil, 0o666))
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	assert.NoError(t, os.WriteFile(configFile, []byte("datadir: "+dataDir+"\nloglevel: DEBUG\n"), 0o666))

	exitCode, stdout, stderr := runTest(t, t.Context(), "--config", configFile, "info", "--data")
	assert.Equal(t, exitSuccess, exitCode)
	assert.Contains(t, stdout, "  egm96        - INSTALLED\n")
	assert.Contains(t, stderr, "DEBUG: running")

	exitCode, _, stderr = runTest(t, t.Context(), "--config", configFile, "-q", "info", "--data")
	assert.Equal(t, exitSuccess, exitCode)
	assert.Equal(t, "", stderr)
}

func TestInstallDataDryRun(t *testing.T) {
	server := newTestServer(t)
	dataDir := t.TempDir()

	exitCode, stdout, _ := runTest(t, t.Context(), "install-data", "--dry-run", "-b", server.URL+"/geographiclib/", "-d", dataDir, "egm96-5")
	assert.Equal(t, exitSuccess, exitCode)
	assert.Equal(t, "geoids/egm96-5       "+server.URL+"/geographiclib/geoids-distrib/egm96-5.tar.bz2 (200 B)\n", stdout)

	entries, err := os.ReadDir(dataDir)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(entries))
}

func TestDefaultDataDir(t *testing.T) {
	server := newTestServer(t)
	dataDir := t.TempDir()
	t.Setenv("GEOGRAPHICLIB_DATA", dataDir)
	assert.NoError(t, os.MkdirAll(filepath.Join(dataDir, "geoids"), 0o777))
	assert.NoError(t, os.WriteFile(filepath.Join(dataDir, "geoids", "egm96-5.pgm"), nil, 0o666))

	exitCode, stdout, _ := runTest(t, t.Context(), "info", "-a")
	assert.Equal(t, exitSuccess, exitCode)
	assert.Contains(t, stdout, "Default data path:         "+dataDir+"\n")
	assert.Contains(t, stdout, "data directory: \""+dataDir+"\"\n")
	assert.Contains(t, stdout, "  egm96-5      - INSTALLED\n")

	exitCode, stdout, _ = runTest(t, t.Context(), "install-data", "--dry-run", "-b", server.URL+"/geographiclib/", "egm96-5")
	assert.Equal(t, exitSuccess, exitCode)
	assert.Equal(t, "geoids/egm96-5       installed\n", stdout)
}

func TestInstallData(t *testing.T) {
	server := newTestServer(t)
	dataDir := filepath.Join(t.TempDir(), "GeographicLib")

	exitCode, _, stderr := runTest(t, t.Context(), "-v", "install-data", "--no-progress", "-b", server.URL+"/geographiclib/", "-d", dataDir, "egm96-5")
	assert.Equal(t, exitSuccess, exitCode)
	assert.Contains(t, stderr, "INFO: installed")
	_, err := os.Stat(filepath.Join(dataDir, "geoids", "egm96-5.pgm"))
	assert.NoError(t, err)

	exitCode, stdout, _ := runTest(t, t.Context(), "install-data", "--dry-run", "-b", server.URL+"/geographiclib/", "-d", dataDir, "egm96-5")
	assert.Equal(t, exitSuccess, exitCode)
	assert.Equal(t, "geoids/egm96-5       installed\n", stdout)
}

func TestInstallDataNotFound(t *testing.T) {
	server := newTestServer(t)

	exitCode, _, stderr := runTest(t, t.Context(), "install-data", "-b", server.URL+"/geographiclib/", "-d", t.TempDir(), "egm2008-1")
	assert.Equal(t, exitFailure, exitCode)
	assert.Contains(t, stderr, "404")
}

func TestInstallDataInterrupted(t *testing.T) {
	server := newTestServer(t)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	exitCode, _, stderr := runTest(t, ctx, "install-data", "-b", server.URL+"/geographiclib/", "-d", t.TempDir(), "egm96-5")
	assert.Equal(t, exitInterrupt, exitCode)
	assert.Contains(t, stderr, "WARN: interrupted")
}

func TestImportIGRF(t *testing.T) {
	outDir := t.TempDir()
	igrfPath := filepath.Join("..", "..", "wmmf", "testdata", "igrf99coeffs.txt")

	exitCode, _, stderr := runTest(t, t.Context(), "import-igrf", "-o", outDir, igrfPath)
	assert.Equal(t, exitSuccess, exitCode, stderr)
	_, err := os.Stat(filepath.Join(outDir, "igrf99.wmm"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(outDir, "igrf99.wmm.cof"))
	assert.NoError(t, err)

	exitCode, _, stderr = runTest(t, t.Context(), "import-igrf", "-o", outDir, igrfPath)
	assert.Equal(t, exitFailure, exitCode)
	assert.Contains(t, stderr, "file already exists")

	exitCode, _, _ = runTest(t, t.Context(), "import-igrf", "-o", outDir, "--force", igrfPath)
	assert.Equal(t, exitSuccess, exitCode)
}

func TestImportIGRFDefaultOutpath(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("GEOGRAPHICLIB_DATA", dataDir)

	exitCode, _, stderr := runTest(t, t.Context(), "import-igrf", filepath.Join("..", "..", "wmmf", "testdata", "igrf99coeffs.txt"))
	assert.Equal(t, exitSuccess, exitCode, stderr)
	_, err := os.Stat(filepath.Join(dataDir, "magnetic", "igrf99.wmm"))
	assert.NoError(t, err)
}

func TestEvalMissingData(t *testing.T) {
	exitCode, _, stderr := runTest(t, t.Context(), "eval", "geoid", "-d", t.TempDir(), "-n", "egm96-5", "16.7758", "-3.0094")
	assert.Equal(t, exitFailure, exitCode)
	assert.Contains(t, stderr, "ERROR: ")
}

func TestFormatBytes(t *testing.T) {
	for _, tc := range []struct {
		n        int64
		expected string
	}{
		{n: 0, expected: "0 B"},
		{n: 1023, expected: "1023 B"},
		{n: 1024, expected: "1.0 KiB"},
		{n: 1536, expected: "1.5 KiB"},
		{n: 5 << 20, expected: "5.0 MiB"},
	} {
		assert.Equal(t, tc.expected, formatBytes(tc.n))
	}
}

func TestFractionalYear(t *testing.T) {
	assert.Equal(t, 2025.0, fractionalYear(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2024.5, fractionalYear(time.Date(2024, time.July, 2, 0, 0, 0, 0, time.UTC)))
}
