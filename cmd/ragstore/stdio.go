package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/integhra/ragstore"
	"github.com/integhra/ragstore/internal/log"
	"github.com/integhra/ragstore/internal/mcp"
	"github.com/spf13/cobra"
)

func stdioCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "stdio",
		Short: "Start MCP server on stdio",
		Long: `Start the MCP (Model Context Protocol) server on stdio.

This allows AI assistants to search the product catalogue and look up
stored records. Configuration is loaded from environment variables and
the .env file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStdio(envFile)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")

	return cmd
}

func runStdio(envFile string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// stdout carries the MCP protocol, log to stderr
	logger := log.NewWithWriter(os.Stderr, cfg.LogFormat(), cfg.LogLevel())

	logger.Info("starting MCP server",
		slog.String("version", version),
		slog.String("data_dir", cfg.DataDir()))

	opts := append(clientOptions(cfg), ragstore.WithLogger(logger))
	client, err := ragstore.New(opts...)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close client", slog.Any("error", err))
		}
	}()

	mcpServer := mcp.NewServer(client.Search, client.Store, logger)

	return mcpServer.ServeStdio()
}
