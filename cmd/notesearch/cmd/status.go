package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/notesearch/internal/search"
	"github.com/Aman-CERP/notesearch/internal/ui"
)

func newStatusCmd(root *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index status",
		Long:  `Show the number of indexed notes, the backend and where the index lives.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), cmd, root, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")

	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, root *rootOptions, jsonOutput bool) error {
	svc, err := search.New(ctx, root.cfg, search.WithoutRebuild())
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	st, err := svc.Stats(ctx)
	if err != nil {
		return err
	}

	r := ui.NewStatusRenderer(ui.NewConfig(cmd.OutOrStdout()))
	if jsonOutput {
		return r.RenderJSON(st)
	}
	return r.Render(st)
}
