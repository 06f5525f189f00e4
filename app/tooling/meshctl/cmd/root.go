// Package cmd contains the meshctl app
package cmd

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	url     string
	noColor bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the simulation service.")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output.")
}

var rootCmd = &cobra.Command{
	Use:          "meshctl",
	Short:        "Inspect and drive the mesh simulation",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
