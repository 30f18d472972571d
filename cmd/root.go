package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/melih-ucgun/certsync/internal/config"
	"github.com/melih-ucgun/certsync/internal/core"
	"github.com/melih-ucgun/certsync/internal/fleet"
	"github.com/melih-ucgun/certsync/internal/inventory"
)

var rootCmd = &cobra.Command{
	Use:   "certsync",
	Short: "Keep device trust anchors in sync.",
	Long:  `certsync pushes a CA certificate to embedded devices over SFTP, backing up and comparing the installed one first.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		// Keep stdout clean for rendered outcomes.
		console := cmd.OutOrStdout()
		if format, _ := cmd.Flags().GetString("output"); format != "" {
			console = cmd.ErrOrStderr()
		}
		setupConsole(console, verbose)
	},
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	setupConsole(os.Stdout, false)

	rootCmd.PersistentFlags().StringP("config", "c", "certsync.yaml", "config file path")
	rootCmd.PersistentFlags().StringP("output", "o", "", "render outcomes as yaml or json")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
}

// setupConsole points the pterm printers and the slog handler at w.
func setupConsole(w io.Writer, verbose bool) {
	pterm.SetDefaultOutput(w)
	for _, p := range []*pterm.PrefixPrinter{&pterm.Info, &pterm.Success, &pterm.Warning, &pterm.Error} {
		p.Writer = w
	}

	level := pterm.LogLevelInfo
	if verbose {
		level = pterm.LogLevelDebug
	}
	logger := pterm.DefaultLogger.WithLevel(level).WithWriter(w)
	slog.SetDefault(slog.New(pterm.NewSlogHandler(logger)))
}

// loadConfig loads the config file and merges the inventory into its hosts.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}

	if cfg.Inventory != "" {
		inv, err := inventory.LoadInventory(cfg.Inventory)
		if err != nil {
			return nil, err
		}
		cfg.Hosts = inventory.Merge(cfg.Hosts, inv)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func settings(cfg *config.Config) fleet.Settings {
	return fleet.Settings{
		Timeout:    cfg.Timeout,
		KnownHosts: cfg.KnownHosts,
		Logger:     slog.Default(),
	}
}

// findHost returns the configured host with the given name.
func findHost(cfg *config.Config, name string) (config.Host, error) {
	if name == "" {
		return config.Host{}, fmt.Errorf("--host is required")
	}
	h, ok := cfg.FindHost(name)
	if !ok {
		return config.Host{}, fmt.Errorf("host %q not found in configuration", name)
	}
	return h, nil
}

// renderOutcomes writes outcome records to w in the given format. It does
// nothing for the default console output.
func renderOutcomes(w io.Writer, format string, outcomes []*core.Outcome) error {
	switch strings.ToLower(format) {
	case "":
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(outcomes)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(outcomes)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
