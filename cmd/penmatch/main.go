package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "penmatch",
	Short:         "Student identifier (PEN) matching engine",
	Long:          `penmatch resolves a submitted student record to a Personal Education Number in the provincial registry.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(registryCmd)

	rootCmd.PersistentFlags().String("config", "", "path to a YAML config file (PENMATCH_* variables override it)")
	rootCmd.PersistentFlags().String("registry-seed", "", "JSON seed file for the in-memory registry")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
