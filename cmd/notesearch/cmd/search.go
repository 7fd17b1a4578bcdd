package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	nserrors "github.com/Aman-CERP/notesearch/internal/errors"
	"github.com/Aman-CERP/notesearch/internal/search"
	"github.com/Aman-CERP/notesearch/internal/ui"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit   int
	format  string
	rebuild bool
	noColor bool
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed notes",
		Long: `Search the indexed notes, best match first.

The index is used as it is on disk; pass --rebuild to re-read the notes
folder first.

Examples:
  notesearch search "meeting notes"
  notesearch search +project -archived
  notesearch search section:journal coffee --limit 5
  notesearch search "hello world" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, root, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (0 uses search.default_limit)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.rebuild, "rebuild", false, "Rebuild the index before searching")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, root *rootOptions, query string, opts searchOptions) error {
	format, ok := ui.ParseFormat(opts.format)
	if !ok {
		return nserrors.ValidationError(fmt.Sprintf("unknown format %q (supported: text, json)", opts.format), nil)
	}

	var svcOpts []search.Option
	if !opts.rebuild {
		svcOpts = append(svcOpts, search.WithoutRebuild())
	}
	svc, err := search.New(ctx, root.cfg, svcOpts...)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	start := time.Now()
	slog.Info("search_started", slog.String("query", query), slog.Int("limit", opts.limit))

	results, err := svc.Search(ctx, query, opts.limit)
	if err != nil {
		slog.Warn("search_failed", nserrors.LogAttrs(err)...)
		if format == ui.FormatJSON {
			if b, jerr := nserrors.FormatJSON(err); jerr == nil {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			}
		}
		return err
	}
	slog.Info("search_completed",
		slog.Int("result_count", len(results)),
		slog.Duration("duration", time.Since(start)))

	if len(results) == 0 && !opts.rebuild {
		if st, err := svc.Stats(ctx); err == nil && st.Documents == 0 {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "The index is empty. Run 'notesearch index' or pass --rebuild.")
		}
	}

	renderer := ui.NewResultsRenderer(ui.NewConfig(cmd.OutOrStdout(), noColorOption(opts.noColor)...))
	if format == ui.FormatJSON {
		return renderer.RenderJSON(strings.TrimSpace(query), results)
	}
	return renderer.Render(strings.TrimSpace(query), results)
}

// noColorOption forces plain output when requested and otherwise leaves
// detection to ui.NewConfig.
func noColorOption(noColor bool) []ui.ConfigOption {
	if noColor {
		return []ui.ConfigOption{ui.WithNoColor(true)}
	}
	return nil
}
