package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"strengths_manager/internal/app"
	"strengths_manager/internal/infra/logger"

	"github.com/spf13/cobra"
)

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run one weekly campaign tick and exit",
	RunE:  runTick,
}

func runTick(cmd *cobra.Command, _ []string) error {
	c, err := build(cmd.Context())
	if err != nil {
		return err
	}
	defer c.db.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, c.cfg.TickTimeout)
	defer cancel()

	outcomes, err := c.engine.RunCampaignTick(ctx)
	if err != nil {
		return fmt.Errorf("campaign tick failed: %w", err)
	}
	summary := app.SummarizeOutcomes(outcomes)
	logger.Log.Info(summary.String())
	fmt.Fprintln(cmd.OutOrStdout(), summary.String())
	return nil
}
