package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eddowding/mothersalmanac-sub002/internal/page"
	"github.com/eddowding/mothersalmanac-sub002/internal/wiki"
)

var regenerateCmd = &cobra.Command{
	Use:   "regenerate [slug]",
	Short: "Regenerate a page from its original query and force-publish the result",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegenerate,
}

func init() {
	rootCmd.AddCommand(regenerateCmd)
}

func runRegenerate(cmd *cobra.Command, args []string) error {
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

	// Regeneration is operator-initiated and idempotent, so transient model
	// or network failures are worth a bounded retry at this boundary.
	var p *page.Page
	err = wiki.Retry(ctx, wiki.DefaultRetryConfig(), a.Logger, func(ctx context.Context) error {
		var runErr error
		p, runErr = a.Generator.Regenerate(ctx, args[0])
		return runErr
	})
	if err != nil {
		return err
	}

	fmt.Println(p.Content)
	fmt.Fprintf(os.Stderr, "\nregenerated %s (confidence %.2f, published %v)\n",
		p.Slug, p.ConfidenceScore, p.Published)
	return nil
}
