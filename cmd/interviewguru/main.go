package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	slogctx "github.com/veqryn/slog-context"

	"InterviewGuru/internal/telemetry"
)

var (
	configPath string
	envFile    string
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the InterviewGuru version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", telemetry.ServiceName, telemetry.Version)
	},
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "interviewguru",
		Short:         "InterviewGuru mock interviewer",
		Long:          "InterviewGuru runs adaptive mock interviews backed by a local Ollama model.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	cmd.AddCommand(
		versionCmd,
		serveCmd(),
		voiceCmd(),
	)

	return cmd
}

func execute() error {
	ctx, cancelOnSignal := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancelOnSignal()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		slogctx.Error(ctx, "command failed", "error", err)
		_, _ = fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}

func main() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}
