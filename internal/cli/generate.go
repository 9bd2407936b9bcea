package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"itemforge/internal/render"
)

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "generate [request]",
		Short: "Draft, price and validate a magic item",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := render.ParseFormat(format)
			if err != nil {
				return err
			}
			a, err := opts.open(cmd.Context(), appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := a.items.Generate(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if f == render.FormatJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			if err := render.Render(cmd.OutOrStdout(), out.Item, f); err != nil {
				return err
			}
			for _, msg := range out.Item.ValidationErrors {
				fmt.Fprintf(cmd.ErrOrStderr(), "checklist: %s\n", msg)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json, standard or tournament")
	return cmd
}
