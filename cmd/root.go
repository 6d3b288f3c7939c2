// Package cmd wires configuration, logging, tracing, and the chat stack
// into the occhat root command.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"occhat/internal/chat"
	"occhat/internal/config"
	"occhat/internal/log"
	"occhat/internal/opencode"
	"occhat/internal/pubsub"
	"occhat/internal/stream"
	"occhat/internal/tracing"
	"occhat/internal/ui"
)

var (
	version = "dev"
	cfgFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:     "occhat",
	Short:   "A terminal chat client for an opencode server",
	Long:    `A terminal chat client that talks to a running opencode server over HTTP and SSE, streaming assistant output and tool progress into a live transcript.`,
	Version: version,
	RunE:    runApp,
}

// SetVersion overrides the version string shown by --version.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/occhat/config.yaml)")
	rootCmd.Flags().StringP("server", "s", "",
		"opencode server base URL")
	rootCmd.Flags().String("provider", "", "provider id for sends")
	rootCmd.Flags().String("model", "", "model id for sends")
	rootCmd.Flags().Bool("debug", false, "enable debug logging")

	_ = viper.BindPFlag("server_url", rootCmd.Flags().Lookup("server"))
	_ = viper.BindPFlag("provider", rootCmd.Flags().Lookup("provider"))
	_ = viper.BindPFlag("model", rootCmd.Flags().Lookup("model"))
	_ = viper.BindPFlag("debug", rootCmd.Flags().Lookup("debug"))
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("server_url", defaults.ServerURL)
	viper.SetDefault("provider", defaults.Provider)
	viper.SetDefault("model", defaults.Model)
	viper.SetDefault("mode", defaults.Mode)
	viper.SetDefault("ui.show_status_bar", defaults.UI.ShowStatusBar)
	viper.SetDefault("ui.markdown_style", defaults.UI.MarkdownStyle)
	viper.SetDefault("theme.highlight", defaults.Theme.Highlight)
	viper.SetDefault("theme.subtle", defaults.Theme.Subtle)
	viper.SetDefault("theme.error", defaults.Theme.Error)
	viper.SetDefault("theme.success", defaults.Theme.Success)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .occhat/config.yaml (current directory)
		// 2. ~/.config/occhat/config.yaml (user config)
		if _, err := os.Stat(".occhat/config.yaml"); err == nil {
			viper.SetConfigFile(".occhat/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "occhat"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			defaultPath := ".occhat/config.yaml"
			if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
				viper.SetConfigFile(defaultPath)
				_ = viper.ReadInConfig()
			}
			// If the write fails, continue with built-in defaults.
		}
	}

	_ = viper.Unmarshal(&cfg)
}

func runApp(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Debug || os.Getenv("OCCHAT_DEBUG") != "" {
		cleanup, err := log.InitWithTeaLog("occhat-debug.log", "occhat")
		if err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
		defer cleanup()
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	shutdownTracing, err := tracing.Init(cfg.Tracing, "occhat-trace.json", version)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	api := opencode.NewClient(cfg.ServerURL)
	sessions := chat.NewSessionStore()
	messages := chat.NewMessageStore()
	controller := chat.NewController(api, sessions, messages, chat.Selection{
		ProviderID: cfg.Provider,
		ModelID:    cfg.Model,
		Mode:       cfg.Mode,
	})

	// Stream state fans out to the UI over pubsub so the reader goroutine
	// never touches the tea model directly.
	states := pubsub.NewBroker[stream.State]()
	events := stream.New(api.EventURL(), stream.WithStateFunc(func(s stream.State) {
		states.Publish(pubsub.StreamStateEvent, s)
	}))
	controller.Bind(events)
	events.Connect(ctx)
	defer events.Disconnect()

	model := ui.New(ctx, cfg, api, controller, sessions, messages, states)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}
