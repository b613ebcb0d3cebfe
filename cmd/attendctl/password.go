package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"schoolattend/internal/auth"
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print the bcrypt hash to use as ADMIN_PASSWORD_HASH",
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
