package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reextractLimit int32

var reextractCmd = &cobra.Command{
	Use:   "reextract",
	Short: "Re-run entity extraction over published pages to refresh the link graph",
	RunE:  runReextract,
}

func init() {
	reextractCmd.Flags().Int32Var(&reextractLimit, "limit", 100, "maximum number of pages to sweep")
	rootCmd.AddCommand(reextractCmd)
}

func runReextract(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.Logger.Warn("closing application", "error", err)
		}
	}()

	stats, err := a.Reextractor.Run(ctx, reextractLimit)
	if err != nil {
		return err
	}

	fmt.Printf("swept %d pages: %d mentions recorded, %d failures\n",
		stats.Pages, stats.Mentions, stats.Failures)
	return nil
}
