package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/melih-ucgun/certsync/internal/core"
	"github.com/melih-ucgun/certsync/internal/reconcile"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the certificate installed on a host",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		hostName, _ := cmd.Flags().GetString("host")
		h, err := findHost(cfg, hostName)
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = h.Name + ".pem"
		}

		remotePath := cfg.RemotePath
		if remotePath == "" {
			remotePath = reconcile.DefaultRemotePath
		}

		spinner, _ := pterm.DefaultSpinner.Start("Connecting to " + h.Name + "...")
		session, err := settings(cfg).Connect(cmd.Context(), h)
		if err != nil {
			spinner.Fail(err.Error())
			return err
		}
		defer session.Close()

		data, err := fetchCertificate(session, remotePath, out)
		if err != nil {
			spinner.Fail(err.Error())
			return err
		}
		spinner.Success("Saved " + h.Name + ":" + remotePath + " to " + out)
		pterm.Info.Println("SHA-256:", core.Fingerprint(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringP("host", "H", "", "host to read from")
	fetchCmd.Flags().String("out", "", "destination file, must not exist (default <host>.pem)")
}

// fetchCertificate copies remotePath into a new local file at out. An
// existing file at out is left untouched.
func fetchCertificate(session core.Session, remotePath, out string) ([]byte, error) {
	data, err := session.ReadAllBytes(remotePath)
	if err != nil {
		return nil, err
	}
	if err := core.WriteNewFile(data, out); err != nil {
		return nil, err
	}
	return data, nil
}
