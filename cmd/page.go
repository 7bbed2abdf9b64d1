package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eddowding/mothersalmanac-sub002/internal/page"
)

var showMetadata bool

var pageCmd = &cobra.Command{
	Use:   "page [slug]",
	Short: "Show a generated page from the cache",
	Args:  cobra.ExactArgs(1),
	RunE:  runPage,
}

func init() {
	pageCmd.Flags().BoolVar(&showMetadata, "meta", false, "print page metadata as JSON instead of content")
	rootCmd.AddCommand(pageCmd)
}

func runPage(cmd *cobra.Command, args []string) error {
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

	p, err := a.Pages.Get(ctx, args[0])
	if errors.Is(err, page.ErrNotFound) {
		return fmt.Errorf("no page for slug %q; run 'almanac generate' first", args[0])
	}
	if err != nil {
		return err
	}

	if showMetadata {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p.Metadata)
	}

	fmt.Println(p.Content)
	if a.Pages.IsStale(p) {
		fmt.Fprintln(os.Stderr, "\nnote: this page is stale and will be regenerated on next request")
	}
	return nil
}
