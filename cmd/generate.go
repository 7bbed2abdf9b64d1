package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eddowding/mothersalmanac-sub002/internal/wiki"
)

var generateCmd = &cobra.Command{
	Use:   "generate [query]",
	Short: "Generate a wiki page for a query, streaming the article as it is written",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
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

	query := strings.Join(args, " ")
	events, err := a.Generator.Generate(ctx, query)
	if err != nil {
		return err
	}

	// Status lines go to stderr so stdout stays clean markdown.
	for ev := range events {
		switch ev.Type {
		case wiki.EventStatus:
			fmt.Fprintln(os.Stderr, ev.Message)
		case wiki.EventContent:
			fmt.Print(ev.Text)
		case wiki.EventDone:
			fmt.Println()
			fmt.Fprintf(os.Stderr, "\nslug: %s\nconfidence: %.2f  published: %v  cost: $%.4f\n",
				ev.Page.Slug, ev.Page.ConfidenceScore, ev.Page.Published,
				ev.Page.Metadata.EstimatedCostUSD)
		case wiki.EventError:
			return fmt.Errorf("generation failed: %s", ev.Message)
		}
	}
	return nil
}
