package cli

import (
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"itemforge/internal/retrieval"
	"itemforge/internal/tui"
)

func newTUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Interactive search and item generation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			a, err := opts.open(cmd.Context(), appOptions{logPath: filepath.Join(cfg.KnowledgeBase.DataDir, "itemforge.log")})
			if err != nil {
				return err
			}
			defer a.Close()

			m := tui.New(cmd.Context(), a.items, kbSummary(a.retrieval.Stats()))
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
}

func kbSummary(st retrieval.Stats) string {
	if st.Status != retrieval.StatusReady {
		return "Knowledge base not built. Run `itemforge build` first."
	}
	return fmt.Sprintf("%d records • build %s • %s/%s", st.Records, st.BuildID, st.Embedder, st.Metric)
}
