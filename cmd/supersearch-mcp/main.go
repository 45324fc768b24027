// Package main implements the MCP server for the transcript search engine.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/finsearch/supersearch-mcp/internal/cache"
	"github.com/finsearch/supersearch-mcp/internal/config"
	"github.com/finsearch/supersearch-mcp/internal/retrieval"
	"github.com/finsearch/supersearch-mcp/internal/search"
	"github.com/finsearch/supersearch-mcp/internal/watch"
)

var (
	flagConfigFile string
	flagEnvFile    string
	flagCacheFile  string
	flagWatch      bool
)

func main() {
	cmd := &cobra.Command{
		Use:   "supersearch-mcp [transcripts-dir]",
		Short: "MCP server for financial transcript search",
		Long: `supersearch-mcp is a Model Context Protocol (MCP) server that indexes
a directory of local markdown transcripts (earnings calls, analyst
days, broker events) and exposes search, preview, token-budgeting,
and retrieval tools to any MCP-compatible AI harness.

File metadata is cached in a JSON sidecar next to the transcripts;
content is always re-read from disk so results stay current.`,
		Example: `supersearch-mcp ./transcripts`,
		Args:    cobra.MaximumNArgs(1),
		RunE:    runServer,
	}
	cmd.Flags().StringVar(&flagConfigFile, "config", "", "path to a YAML config file")
	cmd.Flags().StringVar(&flagEnvFile, "env-file", "", "path to an env file (default: .env if present)")
	cmd.Flags().StringVar(&flagCacheFile, "cache-file", "", "cache sidecar filename (default: "+cache.DefaultCacheFile+")")
	cmd.Flags().BoolVar(&flagWatch, "watch", false, "re-sync automatically when transcript files change")

	if err := fang.Execute(
		context.Background(),
		cmd,
		fang.WithVersion(version),
		fang.WithoutCompletions(),
		fang.WithoutManpage(),
	); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfigFile, flagEnvFile)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.TranscriptsDir = args[0]
	}
	if cfg.TranscriptsDir == "" {
		cfg.TranscriptsDir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
	}
	if flagCacheFile != "" {
		cfg.CacheFile = flagCacheFile
	}
	if flagWatch {
		cfg.Watch = true
	}

	// stdout carries the MCP wire; logs go to stderr.
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	store := cache.NewStore(cfg.TranscriptsDir, cfg.CacheFile, logger)
	app := &application{
		store:     store,
		search:    search.New(store, cfg.SafeResultLimit, logger),
		retrieval: retrieval.New(store, cfg.PreviewCharLimit, cfg.TokenWarnThreshold, logger),
	}

	if cfg.Watch {
		watcher, err := watch.New(store, cfg.WatchDebounce(), logger)
		if err != nil {
			return fmt.Errorf("failed to create file watcher: %w", err)
		}
		// Watching needs an initial index to diff against.
		if _, err := store.Sync(""); err != nil {
			return err
		}
		if err := watcher.Start(cmd.Context()); err != nil {
			return fmt.Errorf("failed to start file watcher: %w", err)
		}
		defer watcher.Close()
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "supersearch-mcp",
		Version: version,
	}, nil)

	app.registerTools(server)

	logger.Info("server starting",
		zap.String("transcripts", cfg.TranscriptsDir),
		zap.Bool("watch", cfg.Watch),
	)
	if err := server.Run(cmd.Context(), &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("error running server: %w", err)
	}
	return nil
}
