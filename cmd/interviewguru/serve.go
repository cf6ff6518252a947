package main

import (
	"fmt"

	"github.com/spf13/cobra"

	slogctx "github.com/veqryn/slog-context"

	"InterviewGuru/internal/backend"
	"InterviewGuru/internal/config"
	"InterviewGuru/internal/interviewer"
	"InterviewGuru/internal/reply"
	"InterviewGuru/internal/server"
	"InterviewGuru/internal/session"
	"InterviewGuru/internal/telemetry"
)

func serveCmd() *cobra.Command {
	var console bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the interview HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(configPath, envFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			_, closeLog, err := telemetry.InitLogger(telemetry.LoggerOptions{
				Dir:     cfg.LogDir,
				File:    "interviewguru.log",
				Debug:   cfg.Debug,
				Console: console,
			})
			if err != nil {
				return fmt.Errorf("initializing logger: %w", err)
			}
			defer closeLog()

			tracer, meter, shutdownTelemetry, err := telemetry.InitTelemetry(ctx, cfg.LogDir)
			if err != nil {
				return fmt.Errorf("initializing telemetry: %w", err)
			}
			defer shutdownTelemetry()

			llm, err := backend.NewClient(backend.Config{
				Host:    cfg.OllamaHost,
				Model:   cfg.Model,
				Timeout: cfg.GenerateTimeout,
			}, tracer, meter)
			if err != nil {
				return fmt.Errorf("creating ollama client: %w", err)
			}

			store := session.NewMemoryStore(cfg.SessionTTL())
			go session.RunHousekeeper(ctx, store, cfg.SweepInterval)

			svc, err := interviewer.New(store, llm, reply.NewNormalizer(reply.DefaultBank()), tracer, meter)
			if err != nil {
				return fmt.Errorf("creating interviewer: %w", err)
			}

			router, err := server.NewRouter(server.NewHandler(svc, llm, llm.Model(), llm.Host()), tracer, meter)
			if err != nil {
				return err
			}

			slogctx.Info(ctx, "InterviewGuru starting",
				"version", telemetry.Version,
				"model", llm.Model(),
				"ollama_host", llm.Host(),
				"session_ttl", cfg.SessionTTL().String(),
			)

			return server.StartHTTPServer(ctx, cfg.Addr(), cfg.ShutdownTimeout, router)
		},
	}

	cmd.Flags().BoolVar(&console, "console", true, "also write logs to stderr")

	return cmd
}
