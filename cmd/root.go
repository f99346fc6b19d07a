// Package cmd holds the CLI commands: serve (HTTP API), mcp (MCP
// stdio server), ingest, ask, and version.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "knowledge-agent",
	Short: "Knowledge base agent with permission-aware retrieval",
	Long: `knowledge-agent ingests documents into a vector-indexed knowledge base
and answers questions from it.

Ingestion splits documents into chunks, embeds each chunk, and indexes
them for similarity search. Queries retrieve candidate chunks, drop the
ones the asking user may not read, and generate a grounded answer.

Run "knowledge-agent serve" for the HTTP API or "knowledge-agent mcp"
to expose the pipelines as MCP tools.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
