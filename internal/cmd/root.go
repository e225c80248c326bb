/*
Package cmd provides the CLI commands for bulkmail.
*/
package cmd

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	debug   bool
	yes     bool
	dryRun  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bulkmail",
	Short: "A bulk-email campaign sender",
	Long: `Bulkmail reads a CSV of recipients, substitutes per-recipient
placeholders into an HTML template, and dispatches one message per
recipient through an SMTP relay, retrying failed sends twice.

Example:
  bulkmail send newsletter.html recipients.csv "March offers"
  bulkmail test newsletter.html "March offers"
  bulkmail count recipients.csv`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is bulkmail.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().BoolVarP(&yes, "yes", "y", false, "skip the interactive confirmation")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "print messages to stdout instead of sending")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(countCmd)
}

func initLogging() {
	if debug {
		log.SetLevel(log.DebugLevel)
		log.SetReportCaller(true)
	} else if verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}
