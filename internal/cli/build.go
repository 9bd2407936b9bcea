package cli

import (
	"github.com/spf13/cobra"

	"itemforge/internal/ingest"
)

type buildSummary struct {
	BuildID   string        `json:"build_id"`
	Records   int           `json:"records"`
	Documents int           `json:"documents"`
	Skipped   []ingest.Skip `json:"skipped"`
	Duration  string        `json:"duration"`
}

func newBuildCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "build [sources...]",
		Short: "Build the knowledge base from JSON sources",
		Long:  "Loads JSON files, directories or glob patterns (the configured sources by default), embeds every entry and replaces the persisted knowledge base.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context(), appOptions{offline: true})
			if err != nil {
				return err
			}
			defer a.Close()

			res, skipped, err := a.rebuild(cmd.Context(), args)
			if err != nil {
				return err
			}
			out := buildSummary{
				BuildID:   res.BuildID,
				Records:   len(res.Records),
				Documents: res.Documents,
				Skipped:   append([]ingest.Skip{}, skipped...),
				Duration:  res.Duration.String(),
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}
