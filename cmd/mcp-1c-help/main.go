// Command mini-ai-1c-help runs the 1C:Enterprise 8.3 help MCP server: it
// discovers the installed platform, indexes its help corpus into a local
// full-text store, and serves search_1c_help, get_1c_help_topic,
// list_1c_help_versions and reindex_1c_help over stdio.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v2"

	"github.com/hawkxtreme/mini-ai-1c-help/internal/discovery"
	"github.com/hawkxtreme/mini-ai-1c-help/internal/lifecycle"
	"github.com/hawkxtreme/mini-ai-1c-help/internal/mcpserver"
	"github.com/hawkxtreme/mini-ai-1c-help/internal/statusline"
	"github.com/hawkxtreme/mini-ai-1c-help/internal/version"
)

func main() {
	app := &cli.App{
		Name:    "mini-ai-1c-help",
		Usage:   "MCP server exposing the 1C:Enterprise 8.3 help corpus to language-model clients",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "install-root",
				Usage: "Override the platform install roots scanned by platform discovery (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "reindex",
				Usage: "Force a clean rebuild of the help index on startup, ignoring any existing one",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "[1c-help] fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	status := statusline.New(os.Stderr)

	var opts []lifecycle.Option
	if roots := c.StringSlice("install-root"); len(roots) > 0 {
		opts = append(opts, lifecycle.WithFind(func() (discovery.Installation, bool) {
			return discovery.FindIn(roots)
		}))
	}

	ctrl := lifecycle.NewController(status, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ctrl.Startup(ctx); err != nil {
		return fmt.Errorf("startup: %w", err)
	}

	if c.Bool("reindex") {
		if err := ctrl.Reindex(ctx); err != nil {
			status.Logf("startup reindex request rejected: %v", err)
		}
	}

	server := mcpserver.New(ctrl, "mini-ai-1c-help", version.Version)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		status.Logf("starting MCP server on stdio")
		errCh <- server.Run(ctx, &mcp.StdioTransport{})
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	case sig := <-sigCh:
		status.Logf("received signal %v, shutting down", sig)
		cancel()
		<-errCh
		return nil
	}
}
