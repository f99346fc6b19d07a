package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/aixone/knowledge-agent/internal/app"
	"github.com/aixone/knowledge-agent/internal/config"
	"github.com/aixone/knowledge-agent/internal/log"
	"github.com/aixone/knowledge-agent/internal/mcp"
)

var mcpMemory bool

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdio",
	Long: `Expose the knowledge base as MCP tools over stdio so agent hosts can
ingest documents and ask questions through the Model Context Protocol.`,
	RunE: func(*cobra.Command, []string) error {
		return runMCP()
	},
}

func init() {
	mcpCmd.Flags().BoolVar(&mcpMemory, "memory", false,
		"use the in-process store instead of PostgreSQL (development only)")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Stdout carries the MCP protocol; the logger writes to stderr.
	logger := log.New(log.Config{Level: cfg.SlogLevel(), JSON: cfg.LogJSON})
	logger.Info("starting MCP server", "version", Version)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger, app.Options{UseMemory: mcpMemory})
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	mcpServer, err := mcp.NewServer(mcp.Config{
		Name:     "knowledge-agent",
		Version:  Version,
		Ingestor: a.Ingestor,
		Answerer: a.Querier,
		Embedder: a.Gateway,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	logger.Info("MCP server ready", "transport", "stdio")
	if err := mcpServer.Run(ctx, &sdk.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}

	logger.Info("MCP server shut down")
	return nil
}
