package cmd

import "github.com/spf13/cobra"

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the stored model provider API key",
}

func init() {
	rootCmd.AddCommand(authCmd)
}
