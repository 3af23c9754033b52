package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

// newFlags returns a flag set with the shared flags parsed from args
func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("hblib", pflag.ContinueOnError)
	DefineFlags(fs, DefaultConfig())
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse(%v) unexpected error: %v", args, err)
	}
	return fs
}

func TestLoad_DefaultConfig(t *testing.T) {
	cfg, err := Load(newFlags(t))
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.DPI != 150 {
		t.Errorf("Load() DPI = %v, want %v", cfg.DPI, 150)
	}
	if cfg.TextBackend != "fitz" {
		t.Errorf("Load() TextBackend = %v, want %v", cfg.TextBackend, "fitz")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Load() LogLevel = %v, want %v", cfg.LogLevel, "info")
	}
	if cfg.ConfigFile != "" {
		t.Errorf("Load() ConfigFile = %v, want none", cfg.ConfigFile)
	}
}

func TestLoad_NilFlags(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load(nil) unexpected error: %v", err)
	}
	if cfg.MaxFileSize != DefaultMaxFileSize {
		t.Errorf("Load(nil) MaxFileSize = %v, want %v", cfg.MaxFileSize, DefaultMaxFileSize)
	}
}

func TestLoad_ValidFlags(t *testing.T) {
	root := t.TempDir()
	cfg, err := Load(newFlags(t,
		"--images-root="+root,
		"--dpi=300",
		"--text-backend=LEDONGTHUC",
		"--embedded-images",
		"--log-level=debug",
		"--log-format=json",
		"--port=9090",
	))
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.ImagesRoot != root {
		t.Errorf("Load() ImagesRoot = %v, want %v", cfg.ImagesRoot, root)
	}
	if cfg.DPI != 300 {
		t.Errorf("Load() DPI = %v, want %v", cfg.DPI, 300)
	}
	if cfg.TextBackend != "ledongthuc" {
		t.Errorf("Load() TextBackend = %v, want %v", cfg.TextBackend, "ledongthuc")
	}
	if !cfg.EmbeddedImages {
		t.Error("Load() EmbeddedImages = false, want true")
	}
	if cfg.LogFormat != "json" {
		t.Errorf("Load() LogFormat = %v, want %v", cfg.LogFormat, "json")
	}
	if cfg.Port != 9090 {
		t.Errorf("Load() Port = %v, want %v", cfg.Port, 9090)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("HBLIB_DPI", "200")
	t.Setenv("HBLIB_LOG_LEVEL", "warn")
	t.Setenv("HBLIB_MAX_FILE_SIZE", "200000000")
	t.Setenv("HBLIB_LIBRARY_ID", "hb-test")

	cfg, err := Load(newFlags(t))
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.DPI != 200 {
		t.Errorf("Load() DPI = %v, want %v", cfg.DPI, 200)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("Load() LogLevel = %v, want %v", cfg.LogLevel, "warn")
	}
	if cfg.MaxFileSize != 200000000 {
		t.Errorf("Load() MaxFileSize = %v, want %v", cfg.MaxFileSize, 200000000)
	}
	if cfg.LibraryID != "hb-test" {
		t.Errorf("Load() LibraryID = %v, want %v", cfg.LibraryID, "hb-test")
	}
}

func TestLoad_FlagOverridesEnvironment(t *testing.T) {
	t.Setenv("HBLIB_DPI", "200")
	t.Setenv("HBLIB_LOG_LEVEL", "warn")

	cfg, err := Load(newFlags(t, "--dpi=96", "--log-level=error"))
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.DPI != 96 {
		t.Errorf("Load() DPI = %v, want %v (should override env)", cfg.DPI, 96)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("Load() LogLevel = %v, want %v (should override env)", cfg.LogLevel, "error")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	content := "dpi: 72\ntext-backend: ledongthuc\nphase-rules: rules.yaml\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(newFlags(t, "--config="+path, "--dpi=100"))
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.ConfigFile != path {
		t.Errorf("Load() ConfigFile = %v, want %v", cfg.ConfigFile, path)
	}
	if cfg.TextBackend != "ledongthuc" {
		t.Errorf("Load() TextBackend = %v, want %v", cfg.TextBackend, "ledongthuc")
	}
	if cfg.PhaseRulesPath != "rules.yaml" {
		t.Errorf("Load() PhaseRulesPath = %v, want %v", cfg.PhaseRulesPath, "rules.yaml")
	}
	if cfg.DPI != 100 {
		t.Errorf("Load() DPI = %v, want %v (flag should override file)", cfg.DPI, 100)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(newFlags(t, "--config="+filepath.Join(t.TempDir(), "absent.yaml")))
	if err == nil {
		t.Fatal("Load() expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Load() error = %v, want error about config file", err)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "backend", args: []string{"--text-backend=pdftotext"}, wantErr: "invalid text backend"},
		{name: "log level", args: []string{"--log-level=verbose"}, wantErr: "invalid log level"},
		{name: "port", args: []string{"--port=99999"}, wantErr: "port must be between 1 and 65535"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(newFlags(t, tt.args...))
			if err == nil {
				t.Fatal("Load() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("HBLIB_TEST_DOTENV=loaded\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HBLIB_TEST_DOTENV", "")
	os.Unsetenv("HBLIB_TEST_DOTENV")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv() unexpected error: %v", err)
	}
	if got := os.Getenv("HBLIB_TEST_DOTENV"); got != "loaded" {
		t.Errorf("LoadDotEnv() HBLIB_TEST_DOTENV = %q, want %q", got, "loaded")
	}

	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("LoadDotEnv() missing file should not fail: %v", err)
	}
}
