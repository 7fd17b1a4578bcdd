package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	nserrors "github.com/Aman-CERP/notesearch/internal/errors"
	"github.com/Aman-CERP/notesearch/internal/mcp"
	"github.com/Aman-CERP/notesearch/internal/search"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var transport string
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve note search to MCP clients",
		Long: `Rebuild the index, watch the notes folder and serve the
search_notes and index_status tools over the Model Context Protocol.

stdout carries JSON-RPC only; logs go to ~/.notesearch/logs/.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{mcpMode: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), root, transport, !noWatch)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport: stdio")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Serve the index without watching for changes")

	return cmd
}

// syncedSearcher is the part of search.Service that serve drives.
type syncedSearcher interface {
	mcp.Searcher
	StartWatcher(ctx context.Context) error
}

var _ syncedSearcher = (*search.Service)(nil)

func runServe(ctx context.Context, root *rootOptions, transport string, watch bool) error {
	if transport != "stdio" {
		return nserrors.ValidationError(fmt.Sprintf("unknown transport %q (supported: stdio)", transport), nil)
	}

	svc, err := search.New(ctx, root.cfg)
	if err != nil {
		slog.Error("serve_init_failed", nserrors.LogAttrs(err)...)
		return err
	}
	defer func() { _ = svc.Close() }()

	return serveSearcher(ctx, svc, transport, watch)
}

// serveSearcher starts syncing, when watch is set, and serves svc until ctx
// is done. A watcher that cannot subscribe aborts serving; --no-watch is the
// way to serve a static index.
func serveSearcher(ctx context.Context, svc syncedSearcher, transport string, watch bool) error {
	if watch {
		if err := svc.StartWatcher(ctx); err != nil {
			slog.Error("serve_watch_failed", nserrors.LogAttrs(err)...)
			return err
		}
	}

	server, err := mcp.NewServer(svc)
	if err != nil {
		return err
	}
	return server.Serve(ctx, transport)
}
