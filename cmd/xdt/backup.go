package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"xdt-go/internal/app"
)

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Encrypted catalog backups",
}

var backupInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the backup key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "backup init")
		if err != nil {
			return err
		}
		defer a.Close()

		pass, err := readPassphrase("Passphrase for the backup key: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if pass != confirm {
			return fmt.Errorf("passphrases do not match")
		}
		if err := a.SetupBackupKeys(pass); err != nil {
			return err
		}
		fmt.Println("Backup keys generated.")
		return nil
	},
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Snapshot and encrypt the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "backup create")
		if err != nil {
			return err
		}
		defer a.Close()

		dest, err := a.Backup(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Catalog backed up to %s\n", dest)
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore FILE",
	Short: "Replace the catalog with an encrypted backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		pass, err := readPassphrase("Passphrase for the backup key: ")
		if err != nil {
			return err
		}
		if err := app.RestoreCatalog(cfg, args[0], pass); err != nil {
			return err
		}
		fmt.Println("Catalog restored.")
		return nil
	},
}

func init() {
	backupCmd.AddCommand(backupInitCmd)
	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	rootCmd.AddCommand(backupCmd)
}
