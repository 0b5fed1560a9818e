package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Recompute and persist a period's ranking",
	Long:  "Runs the ranking engine for one tenant and period, persisting normalized scores and ranking rows. The consolidated period is computed but never persisted.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		tenantID, period, err := parseTarget()
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		deps, err := openRanking(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer deps.Close()

		snap, err := deps.jobs.RecomputeRanking(cmd.Context(), tenantID, period)
		if err != nil {
			return fmt.Errorf("recompute %s: %w", period, err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ranked %d employees for %s\n", len(snap.Results), period)
		for _, w := range snap.Warnings {
			fmt.Fprintf(out, "warning [%s]: %s\n", w.Code, w.Message)
		}
		return nil
	},
}

func init() {
	recomputeCmd.Flags().StringVar(&flagTenant, "tenant", "", "Tenant ID (required)")
	recomputeCmd.Flags().StringVar(&flagPeriod, "period", "", "Period: YYYY-MM, YYYY-MM-DD or consolidated (required)")
	for _, name := range []string{"tenant", "period"} {
		if err := recomputeCmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}
	rootCmd.AddCommand(recomputeCmd)
}
