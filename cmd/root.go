// Package cmd provides the command-line interface for shopfront.
package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
)

// NewRootCmd creates the shopfront command. Without a subcommand it runs
// the server.
func NewRootCmd() *cobra.Command {
	var (
		configFile string
		noColor    bool
	)

	rootCmd := &cobra.Command{
		Use:           "shopfront",
		Short:         "Storefront API server and color palette tools",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configFile, 0)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path (default: ./config.yaml if present)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(newServeCmd(&configFile))
	rootCmd.AddCommand(newSwatchesCmd())

	return rootCmd
}

// PrintError reports err on stderr the way the CLI reports failures.
func PrintError(cmd *cobra.Command, err error) {
	errorColor.Fprint(cmd.ErrOrStderr(), "Error: ")
	cmd.PrintErrln(err)
}
