package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "questd",
	Short: "Quest and Check - team task board with photo evidence",
	Long: `Quest and Check lets employers post tasks to their teams and employees
reserve them, submit photo evidence and earn rewards once approved.

Run 'questd serve' to start the API, or 'questd import' to load tasks into a team.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
}
