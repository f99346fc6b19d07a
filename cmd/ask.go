package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aixone/knowledge-agent/internal/app"
	"github.com/aixone/knowledge-agent/internal/config"
	"github.com/aixone/knowledge-agent/internal/log"
)

var (
	askUser    string
	askSources bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question against the knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askUser, "user", "", "identity the permission filter evaluates access for (required)")
	askCmd.Flags().BoolVar(&askSources, "sources", false, "list the chunks the answer was built from")
	_ = askCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("question is empty")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := log.New(log.Config{Level: cfg.SlogLevel(), JSON: cfg.LogJSON})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger, app.Options{})
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	embedding, err := a.Gateway.EmbedOne(ctx, question)
	if err != nil {
		return fmt.Errorf("embedding question: %w", err)
	}

	answer, err := a.Querier.Answer(ctx, askUser, question, embedding, nil)
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), answer.Text)
	if askSources && len(answer.Chunks) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "\nSources:")
		for _, c := range answer.Chunks {
			fmt.Fprintf(cmd.OutOrStdout(), "  - chunk %s (document %s)\n", c.ID, c.DocumentID)
		}
	}
	return nil
}
