package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/melih-ucgun/certsync/internal/config"
	"github.com/melih-ucgun/certsync/internal/core"
	"github.com/melih-ucgun/certsync/internal/reconcile"
)

var autoConfirm bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter certsync.yaml",
	Long:  `Writes a config file with one host. An existing file is never overwritten.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		return runInit(configFile)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&autoConfirm, "yes", "y", false, "Skip interactive prompts and write defaults")
}

func starterConfig() config.Config {
	return config.Config{
		Certificate: "ssl/cacert.pem",
		Backup:      "backup",
		RemotePath:  reconcile.DefaultRemotePath,
		Hosts: []config.Host{{
			Name:     "device-1",
			Address:  "192.168.1.10",
			Port:     config.DefaultPort,
			User:     "admin",
			Password: "${DEVICE_PASSWORD}",
		}},
	}
}

func runInit(path string) error {
	pterm.DefaultHeader.WithFullWidth().WithBackgroundStyle(pterm.NewStyle(pterm.BgMagenta)).
		WithTextStyle(pterm.NewStyle(pterm.FgBlack, pterm.Bold)).
		Println("certsync Initializer")

	cfg := starterConfig()
	if !autoConfirm {
		cfg.Certificate = ask("Local certificate", cfg.Certificate)
		cfg.Backup = ask("Backup directory", cfg.Backup)
		h := &cfg.Hosts[0]
		h.Name = ask("Host name", h.Name)
		h.Address = ask("Host address", h.Address)
		h.User = ask("SFTP user", h.User)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := core.WriteNewFile(data, path); err != nil {
		pterm.Error.Printf("Failed to write %s: %v\n", path, err)
		return err
	}

	pterm.Success.Printf("Config written to %s\n", path)
	pterm.Info.Println("Put DEVICE_PASSWORD in a .env file next to it, or store an encrypted password with 'certsync encrypt'.")
	return nil
}

func ask(label, current string) string {
	input, err := pterm.DefaultInteractiveTextInput.WithDefaultValue(current).Show(label)
	if err != nil || input == "" {
		return current
	}
	return input
}
