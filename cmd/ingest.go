package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aixone/knowledge-agent/internal/app"
	"github.com/aixone/knowledge-agent/internal/config"
	"github.com/aixone/knowledge-agent/internal/log"
)

var (
	ingestTitle  string
	ingestSource string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest a document into the knowledge base",
	Long: `Read a document from the given file (or stdin when no file is given),
split it into chunks, embed each chunk, and index it for retrieval.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "document title")
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "source locator (path, URL, upstream id)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	var content []byte
	var err error

	if len(args) == 1 {
		content, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		if ingestSource == "" {
			ingestSource = args[0]
		}
	} else {
		content, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
	}
	if len(content) == 0 {
		return fmt.Errorf("document content is empty")
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

	metadata := map[string]string{}
	if ingestTitle != "" {
		metadata["title"] = ingestTitle
	}
	if ingestSource != "" {
		metadata["source"] = ingestSource
	}

	doc, chunks, err := a.Ingestor.Ingest(ctx, string(content), metadata)
	if err != nil {
		return fmt.Errorf("ingesting document: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed document %s (%d chunks)\n", doc.ID, len(chunks))
	return nil
}
