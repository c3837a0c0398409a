// Package config handles zefad configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./zefa.yaml, ~/.config/zefa/zefa.yaml, /etc/zefa/zefa.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"zefa.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "zefa", "zefa.yaml"))
	}

	paths = append(paths, "/etc/zefa/zefa.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all zefad configuration.
type Config struct {
	Listen   ListenConfig `yaml:"listen"`
	AI       AIConfig     `yaml:"ai"`
	DataDir  string       `yaml:"data_dir"`
	LogLevel string       `yaml:"log_level"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// AIConfig defines the LLM provider and orchestration tunables.
// One provider is selected per process; there is no per-request routing.
type AIConfig struct {
	// Provider selects the backend wire protocol: openai, anthropic, gemini.
	Provider string `yaml:"provider"`
	// Model is the chat model name passed to the provider.
	Model string `yaml:"model"`
	// ToolsMode controls tool attachment: always, never, heuristic.
	ToolsMode string `yaml:"tools_mode"`
	// MaxContextMessages bounds how much raw history is sent per request,
	// and doubles as the summarization threshold.
	MaxContextMessages int `yaml:"max_context_messages"`
	// MaxOutputTokens caps provider output per call.
	MaxOutputTokens int `yaml:"max_output_tokens"`
	// ToolResultsMaxChars hard-caps the serialized tool results injected
	// back into the conversation.
	ToolResultsMaxChars int `yaml:"tool_results_max_chars"`
	// ContextPackTxLimit is the number of recent transactions included in
	// the finance context pack.
	ContextPackTxLimit int `yaml:"context_pack_tx_limit"`
	// SummaryTokenBudget caps the rolling conversation summary length
	// (chars ≈ tokens × 4).
	SummaryTokenBudget int `yaml:"summary_token_budget"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen:  ListenConfig{Port: 8080},
		DataDir: "data",
		AI: AIConfig{
			Provider:            "openai",
			Model:               "gpt-4o-mini",
			ToolsMode:           "heuristic",
			MaxContextMessages:  20,
			MaxOutputTokens:     1500,
			ToolResultsMaxChars: 4000,
			ContextPackTxLimit:  6,
			SummaryTokenBudget:  500,
		},
	}
}
