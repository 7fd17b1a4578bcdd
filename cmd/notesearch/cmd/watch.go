package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/notesearch/internal/search"
)

func newWatchCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Rebuild, then keep the index in sync until interrupted",
		Long: `Rebuild the index, then apply note changes as they happen.

Sync activity is logged to stderr and the log file. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context(), cmd, root)
		},
	}
}

func runWatch(ctx context.Context, cmd *cobra.Command, root *rootOptions) error {
	svc, err := search.New(ctx, root.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	if err := svc.StartWatcher(ctx); err != nil {
		return err
	}

	st, err := svc.Stats(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (%d notes, %s mode). Press Ctrl-C to stop.\n",
		st.NotesRoot, st.Documents, st.WatchMode)

	<-ctx.Done()

	st, _ = svc.Stats(context.Background())
	slog.Info("watch_stopped",
		slog.Uint64("events_applied", st.EventsApplied),
		slog.Uint64("events_failed", st.EventsFailed))
	return nil
}
