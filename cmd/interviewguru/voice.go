package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	slogctx "github.com/veqryn/slog-context"

	"InterviewGuru/internal/interviewer"
	"InterviewGuru/internal/telemetry"
	"InterviewGuru/internal/voice"
)

const endTimeout = 2 * time.Minute

func voiceCmd() *cobra.Command {
	var (
		serverURL string
		role      string
		level     string
		sessionID string
		summarize bool
		logDir    string
	)

	cmd := &cobra.Command{
		Use:   "voice",
		Short: "Run an interview from the terminal against a running server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			_, closeLog, err := telemetry.InitLogger(telemetry.LoggerOptions{
				Dir:  logDir,
				File: "interviewguru_voice.log",
			})
			if err != nil {
				return fmt.Errorf("initializing logger: %w", err)
			}
			defer closeLog()

			client := voice.NewClient(serverURL, endTimeout)
			out := cmd.OutOrStdout()

			if sessionID == "" {
				sess, err := client.CreateSession(ctx, role, level)
				if err != nil {
					return err
				}
				sessionID = sess.ID
			}
			sess, err := client.Session(ctx, sessionID)
			if err != nil {
				return err
			}

			fmt.Fprintln(out, "=== InterviewGuru ===")
			fmt.Fprintf(out, "Session: %s\n", sess.ID)
			fmt.Fprintf(out, "Role: %s (%s)\n", sess.Role, sess.Level)
			fmt.Fprintln(out, "Type /quit to stop")
			fmt.Fprintln(out)

			speaker := voice.NewWriterSpeaker(out)
			if last, ok := sess.LastInterviewerText(); ok {
				_ = speaker.Speak(ctx, last)
			}

			loop := voice.NewLoop(client, voice.NewLineCapturer(os.Stdin, out), speaker, sess.ID,
				voice.WithStatusHandler(func(s voice.Status) {
					slogctx.Debug(ctx, "voice status", "status", string(s))
				}))

			err = loop.Run(ctx)
			switch {
			case errors.Is(err, voice.ErrNoSpeech):
				fmt.Fprintln(out, "No input received, stopping.")
			case errors.Is(err, context.Canceled):
			case err != nil:
				return err
			}

			if !summarize {
				return nil
			}

			endCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), endTimeout)
			defer cancel()
			summary, err := client.End(endCtx, sess.ID)
			if err != nil {
				return err
			}

			fmt.Fprintln(out, "\n=== Summary ===")
			fmt.Fprintln(out, summary.Overall)
			fmt.Fprintf(out, "Communication: %s  Structure: %s  Technical: %s\n",
				scoreText(summary.Scores.Communication), scoreText(summary.Scores.Structure), scoreText(summary.Scores.Technical))
			if len(summary.Strengths) > 0 {
				fmt.Fprintf(out, "Strengths: %s\n", strings.Join(summary.Strengths, "; "))
			}
			if len(summary.TopImprovements) > 0 {
				fmt.Fprintf(out, "Improve: %s\n", strings.Join(summary.TopImprovements, "; "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:4000", "InterviewGuru server URL")
	cmd.Flags().StringVar(&role, "role", interviewer.DefaultRole, "role to interview for")
	cmd.Flags().StringVar(&level, "level", interviewer.DefaultLevel, "candidate level")
	cmd.Flags().StringVar(&sessionID, "session-id", "", "continue an existing session")
	cmd.Flags().BoolVar(&summarize, "summary", true, "request a summary when the loop ends")
	cmd.Flags().StringVar(&logDir, "log-dir", "logs", "directory for the client log")

	return cmd
}

func scoreText(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d/5", *v)
}
