package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/notesearch/internal/search"
	"github.com/Aman-CERP/notesearch/internal/ui"
)

func newIndexCmd(root *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Rebuild the index from the notes folder",
		Long: `Walk the notes folder and bring the index in line with it.

New and changed notes are indexed, notes that no longer exist are removed.
Unreadable notes are skipped and reported in the counts.

An index that cannot be opened because its data is corrupt is left alone
unless --force is given, which discards it and indexes from scratch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd.Context(), cmd, root, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Discard the existing index data before rebuilding")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, root *rootOptions, force bool) error {
	opts := []search.Option{search.WithoutRebuild()}
	if force {
		opts = append(opts, search.WithReset())
	}
	svc, err := search.New(ctx, root.cfg, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	stats, err := svc.Rebuild(ctx)
	if err != nil {
		return err
	}

	styles := ui.GetStyles(ui.NewConfig(cmd.OutOrStdout()).NoColor)
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "%s %d notes from %s in %s\n",
		styles.Success.Render("Indexed"), stats.Indexed, root.cfg.NotesRoot, ui.FormatDuration(stats.Duration))
	if stats.Removed > 0 {
		_, _ = fmt.Fprintf(out, "  Removed: %d stale\n", stats.Removed)
	}
	if stats.Skipped > 0 {
		_, _ = fmt.Fprintf(out, "  %s %d unreadable (see log)\n", styles.Warning.Render("Skipped:"), stats.Skipped)
	}
	return nil
}
