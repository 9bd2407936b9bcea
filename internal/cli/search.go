package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"itemforge/internal/retrieval"
)

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		limit  int
		rerank string
	)
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := retrieval.ParseCriteria(rerank)
			if err != nil {
				return err
			}
			a, err := opts.open(cmd.Context(), appOptions{offline: true})
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.items.Search(cmd.Context(), strings.Join(args, " "), limit, criteria...)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "Max results (default: retrieval.top_k)")
	cmd.Flags().StringVar(&rerank, "rerank", "", "Comma separated re-ranking: high_cl, low_cost")
	return cmd
}
