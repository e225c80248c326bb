package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shineum/bulkmail-lite/internal/recipients"
)

var countCmd = &cobra.Command{
	Use:   "count RECIPIENTS.csv",
	Short: "Count the valid recipients in a CSV without sending",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		csvPath := args[0]
		if filepath.Ext(csvPath) != ".csv" {
			return fmt.Errorf("recipient file must have a .csv extension, got %q", csvPath)
		}

		records, rejected, err := recipients.Load(csvPath)
		if err != nil {
			return err
		}

		fmt.Printf("%d valid recipients, %d rejected addresses\n", len(records), len(rejected))
		for _, addr := range rejected {
			fmt.Printf("rejected: %q\n", addr)
		}
		return nil
	},
}
