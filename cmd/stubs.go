package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eddowding/mothersalmanac-sub002/internal/entity"
)

var (
	stubsLimit    int32
	stubsAllTiers bool
)

var stubsCmd = &cobra.Command{
	Use:   "stubs",
	Short: "List suggested topics that have been mentioned but not yet generated",
	RunE:  runStubs,
}

func init() {
	stubsCmd.Flags().Int32Var(&stubsLimit, "limit", 20, "maximum number of suggestions")
	stubsCmd.Flags().BoolVar(&stubsAllTiers, "all", false, "include weak-confidence suggestions")
	rootCmd.AddCommand(stubsCmd)
}

func runStubs(cmd *cobra.Command, _ []string) error {
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

	tiers := []entity.Tier{entity.TierStrong, entity.TierMedium}
	if stubsAllTiers {
		tiers = append(tiers, entity.TierWeak)
	}

	slugs, err := a.Graph.PendingStubs(ctx, tiers, stubsLimit)
	if err != nil {
		return err
	}
	if len(slugs) == 0 {
		fmt.Println("no pending topic suggestions")
		return nil
	}

	for _, slug := range slugs {
		fmt.Println(slug)
	}
	return nil
}
