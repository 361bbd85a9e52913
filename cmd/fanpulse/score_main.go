package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fanpulse/fanpulse/internal/application"
)

// newScoreCmd builds the one-off calculation commands used for backfills and
// spot checks.
func newScoreCmd() *cobra.Command {
	var (
		artistID string
		asOfStr  string
		allFlag  bool
	)

	scoreCmd := &cobra.Command{
		Use:   "score",
		Short: "Run scoring calculations",
		Long:  "Compute the Fan Value Score or Momentum Index for one artist or the whole population",
	}

	fvsCmd := &cobra.Command{
		Use:   "fvs",
		Short: "Compute the Fan Value Score",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd, "fvs", artistID, asOfStr, allFlag)
		},
	}

	momentumCmd := &cobra.Command{
		Use:   "momentum",
		Short: "Compute the Momentum Index",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd, "momentum", artistID, asOfStr, allFlag)
		},
	}

	breakoutCmd := &cobra.Command{
		Use:   "breakout",
		Short: "Predict breakout probability from the latest momentum",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBreakout(cmd, artistID)
		},
	}

	for _, cmd := range []*cobra.Command{fvsCmd, momentumCmd, breakoutCmd} {
		cmd.Flags().StringVar(&artistID, "artist", "", "Artist ID to score")
	}
	for _, cmd := range []*cobra.Command{fvsCmd, momentumCmd} {
		cmd.Flags().StringVar(&asOfStr, "as-of", "", "Calculation date (YYYY-MM-DD, default today UTC)")
		cmd.Flags().BoolVar(&allFlag, "all", false, "Score the whole artist population")
	}

	scoreCmd.AddCommand(fvsCmd, momentumCmd, breakoutCmd)
	return scoreCmd
}

func runScore(cmd *cobra.Command, kind, artistID, asOfStr string, all bool) error {
	asOf, err := parseAsOf(asOfStr)
	if err != nil {
		return err
	}
	if !all && artistID == "" {
		return fmt.Errorf("either --artist or --all is required")
	}

	svc, err := buildServices(configPath)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx := cmd.Context()

	if all {
		batchKind := batchKindFor(kind)
		summary, err := svc.batch.Run(ctx, batchKind, asOf)
		if err != nil {
			return err
		}
		return printJSON(summary)
	}

	switch kind {
	case "fvs":
		result, err := svc.scoring.CalculateFVS(ctx, artistID, asOf)
		if err != nil {
			return err
		}
		return printJSON(result)
	default:
		result, err := svc.scoring.CalculateMomentum(ctx, artistID, asOf)
		if err != nil {
			return err
		}
		return printJSON(result)
	}
}

func runBreakout(cmd *cobra.Command, artistID string) error {
	if artistID == "" {
		return fmt.Errorf("--artist is required")
	}

	svc, err := buildServices(configPath)
	if err != nil {
		return err
	}
	defer svc.Close()

	prediction, err := svc.scoring.PredictBreakout(cmd.Context(), artistID)
	if err != nil {
		return err
	}
	return printJSON(prediction)
}

func batchKindFor(kind string) application.BatchKind {
	if kind == "fvs" {
		return application.BatchFVS
	}
	return application.BatchMomentum
}

func parseAsOf(asOfStr string) (time.Time, error) {
	if asOfStr == "" {
		return time.Now().UTC().Truncate(24 * time.Hour), nil
	}
	asOf, err := time.Parse("2006-01-02", asOfStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --as-of date %q: %w", asOfStr, err)
	}
	return asOf, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
