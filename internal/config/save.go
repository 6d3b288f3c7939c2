package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config with yaml tags for serialization.
// viper reads with mapstructure tags; writing goes through yaml.v3 directly
// so the emitted file keys match what viper expects back.
type fileConfig struct {
	ServerURL string `yaml:"server_url"`
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	Mode      string `yaml:"mode"`
	Debug     bool   `yaml:"debug"`
	Tracing   bool   `yaml:"tracing"`
	UI        struct {
		ShowStatusBar bool   `yaml:"show_status_bar"`
		MarkdownStyle string `yaml:"markdown_style"`
	} `yaml:"ui"`
	Theme struct {
		Highlight string `yaml:"highlight"`
		Subtle    string `yaml:"subtle"`
		Error     string `yaml:"error"`
		Success   string `yaml:"success"`
	} `yaml:"theme"`
}

const fileHeader = `# occhat configuration
# server_url: base URL of the opencode server
# provider/model/mode: defaults for sending messages
`

// WriteDefaultConfig writes the default configuration to path, creating
// parent directories as needed. Existing files are left untouched.
func WriteDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating config dir: %w", err)
		}
	}

	defaults := Defaults()
	var fc fileConfig
	fc.ServerURL = defaults.ServerURL
	fc.Provider = defaults.Provider
	fc.Model = defaults.Model
	fc.Mode = defaults.Mode
	fc.Debug = defaults.Debug
	fc.Tracing = defaults.Tracing
	fc.UI.ShowStatusBar = defaults.UI.ShowStatusBar
	fc.UI.MarkdownStyle = defaults.UI.MarkdownStyle
	fc.Theme.Highlight = defaults.Theme.Highlight
	fc.Theme.Subtle = defaults.Theme.Subtle
	fc.Theme.Error = defaults.Theme.Error
	fc.Theme.Success = defaults.Theme.Success

	data, err := yaml.Marshal(fc)
	if err != nil {
		return fmt.Errorf("marshaling defaults: %w", err)
	}

	if err := os.WriteFile(path, append([]byte(fileHeader), data...), 0644); err != nil { //nolint:gosec // G306: config file is not sensitive
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
