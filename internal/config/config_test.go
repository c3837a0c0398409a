package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestFindConfig_Explicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	os.WriteFile(path, []byte("listen:\n  port: 9999\n"), 0600)

	got, err := FindConfig(path)
	if err != nil {
		t.Fatalf("FindConfig(%q) error: %v", path, err)
	}
	if got != path {
		t.Errorf("FindConfig(%q) = %q, want %q", path, got, path)
	}
}

func TestFindConfig_ExplicitMissing(t *testing.T) {
	_, err := FindConfig("/nonexistent/zefa.yaml")
	if err == nil {
		t.Fatal("FindConfig with missing explicit path should error")
	}
}

func TestFindConfig_CWD(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zefa.yaml")
	os.WriteFile(path, []byte("listen:\n  port: 8080\n"), 0600)

	orig, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(orig)

	got, err := FindConfig("")
	if err != nil {
		t.Fatalf("FindConfig(\"\") error: %v", err)
	}
	if got != "zefa.yaml" {
		t.Errorf("FindConfig(\"\") = %q, want %q", got, "zefa.yaml")
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zefa.yaml")
	os.WriteFile(path, []byte("listen:\n  port: 9090\n"), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Listen.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Listen.Port)
	}
	// Unset fields keep default values.
	if cfg.AI.Provider != "openai" {
		t.Errorf("provider = %q, want openai", cfg.AI.Provider)
	}
	if cfg.AI.MaxContextMessages != 20 {
		t.Errorf("max_context_messages = %d, want 20", cfg.AI.MaxContextMessages)
	}
	if cfg.AI.ToolsMode != "heuristic" {
		t.Errorf("tools_mode = %q, want heuristic", cfg.AI.ToolsMode)
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zefa.yaml")
	os.WriteFile(path, []byte("data_dir: ${ZEFA_TEST_DATA}\n"), 0600)
	t.Setenv("ZEFA_TEST_DATA", "/var/lib/zefa")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.DataDir != "/var/lib/zefa" {
		t.Errorf("data_dir = %q, want /var/lib/zefa", cfg.DataDir)
	}
}

func TestLoad_AITunables(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zefa.yaml")
	os.WriteFile(path, []byte(`
ai:
  provider: gemini
  model: gemini-2.0-flash
  tools_mode: always
  max_output_tokens: 2000
`), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.AI.Provider != "gemini" {
		t.Errorf("provider = %q, want gemini", cfg.AI.Provider)
	}
	if cfg.AI.Model != "gemini-2.0-flash" {
		t.Errorf("model = %q", cfg.AI.Model)
	}
	if cfg.AI.ToolsMode != "always" {
		t.Errorf("tools_mode = %q, want always", cfg.AI.ToolsMode)
	}
	if cfg.AI.MaxOutputTokens != 2000 {
		t.Errorf("max_output_tokens = %d, want 2000", cfg.AI.MaxOutputTokens)
	}
	// Untouched tunables keep their defaults.
	if cfg.AI.ToolResultsMaxChars != 4000 {
		t.Errorf("tool_results_max_chars = %d, want 4000", cfg.AI.ToolResultsMaxChars)
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{" debug ", slog.LevelDebug, false},
		{"trace", LevelTrace, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tc := range cases {
		got, err := ParseLogLevel(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseLogLevel(%q) should error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLogLevel(%q) error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
