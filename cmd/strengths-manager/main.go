package main

import (
	"context"
	"os"

	"strengths_manager/internal/infra/logger"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "strengths-manager",
	Short:         "Strengths Manager weekly coaching service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(serveCmd, tickCmd)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Log.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}
