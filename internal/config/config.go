// Package config provides configuration types, defaults, and persistence
// for occhat.
package config

import "fmt"

// UIConfig holds user interface configuration options.
type UIConfig struct {
	ShowStatusBar bool   `mapstructure:"show_status_bar"`
	MarkdownStyle string `mapstructure:"markdown_style"` // "dark" (default) or "light"
}

// ThemeConfig holds color overrides as hex strings.
type ThemeConfig struct {
	Highlight string `mapstructure:"highlight"`
	Subtle    string `mapstructure:"subtle"`
	Error     string `mapstructure:"error"`
	Success   string `mapstructure:"success"`
}

// Config holds all configuration options for occhat.
type Config struct {
	// ServerURL is the base URL of the opencode server.
	ServerURL string `mapstructure:"server_url"`
	// Provider, Model and Mode select what each message is sent with.
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	Mode     string `mapstructure:"mode"`
	// Debug enables the file logger and the in-app log overlay.
	Debug bool `mapstructure:"debug"`
	// Tracing enables the OpenTelemetry file exporter.
	Tracing bool `mapstructure:"tracing"`

	UI    UIConfig    `mapstructure:"ui"`
	Theme ThemeConfig `mapstructure:"theme"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		ServerURL: "http://localhost:4096",
		Provider:  "anthropic",
		Model:     "claude-sonnet-4-5",
		Mode:      "build",
		UI: UIConfig{
			ShowStatusBar: true,
			MarkdownStyle: "dark",
		},
		Theme: ThemeConfig{
			Highlight: "#7C3AED",
			Subtle:    "#6B7280",
			Error:     "#EF4444",
			Success:   "#10B981",
		},
	}
}

// Validate checks that required fields are present.
func (c Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server_url must not be empty")
	}
	if c.Provider == "" || c.Model == "" {
		return fmt.Errorf("provider and model must not be empty")
	}
	return nil
}
