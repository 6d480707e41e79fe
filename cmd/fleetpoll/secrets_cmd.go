package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nmslite/fleetpoll/internal/auth"
	"github.com/nmslite/fleetpoll/internal/config"
)

func newEncryptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encrypt <community>",
		Short: "Encrypt an SNMP community for snmp.community_encrypted",
		Long: `Encrypt a community string with AES-256-GCM so it can be stored in the
config file as snmp.community_encrypted.

The key is auth.encryption_key from --config, or FLEETPOLL_AUTH_ENCRYPTION_KEY.

Example:
  FLEETPOLL_AUTH_ENCRYPTION_KEY=... fleetpoll encrypt public`,
		Args: cobra.ExactArgs(1),
		RunE: runEncrypt,
	}
	cmd.Flags().StringP("config", "c", "", "path to config file")
	return cmd
}

func runEncrypt(cmd *cobra.Command, args []string) error {
	key := os.Getenv(config.EnvPrefix + "AUTH_ENCRYPTION_KEY")
	if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		key = cfg.Auth.EncryptionKey
	}
	if key == "" {
		return errors.New("no encryption key: set auth.encryption_key or FLEETPOLL_AUTH_ENCRYPTION_KEY")
	}

	c, err := auth.NewCipher(key)
	if err != nil {
		return err
	}
	enc, err := c.Encrypt(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), enc)
	return nil
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for auth.admin_password_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
