package cmd

import (
	"errors"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/melih-ucgun/certsync/internal/config"
	"github.com/melih-ucgun/certsync/internal/crypto"
)

var encryptCmd = &cobra.Command{
	Use:   "encrypt [secret]",
	Short: "Encrypt a device password for certsync.yaml",
	Long:  `Encrypts a value with the master key (CERTSYNC_MASTER_KEY or ~/.certsync/master.key). Paste the output into a host's password field.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var secret string
		if len(args) == 1 {
			secret = args[0]
		} else {
			input, err := pterm.DefaultInteractiveTextInput.WithMask("*").Show("Secret")
			if err != nil {
				return err
			}
			secret = input
		}
		if secret == "" {
			return errors.New("nothing to encrypt")
		}

		key := config.MasterKey()
		if key == "" {
			return errors.New("no master key available")
		}

		sealed, err := crypto.Encrypt(secret, key)
		if err != nil {
			return err
		}
		fmt.Println(sealed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(encryptCmd)
}
