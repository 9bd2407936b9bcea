package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"itemforge/internal/domain"
	"itemforge/internal/render"
)

func newPriceCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "price [file|-]",
		Short: "Price an item draft read from a JSON file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			var d domain.Draft
			if err := json.Unmarshal(data, &d); err != nil {
				return fmt.Errorf("decode draft: %w", err)
			}
			a, err := opts.open(cmd.Context(), appOptions{offline: true})
			if err != nil {
				return err
			}
			defer a.Close()
			return writeJSON(cmd.OutOrStdout(), a.items.Price(cmd.Context(), d))
		},
	}
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var (
		format  string
		reprice bool
	)
	cmd := &cobra.Command{
		Use:   "validate [file|-]",
		Short: "Check a priced item against the magic item checklist",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := render.ParseFormat(format)
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			var item domain.PricedItem
			if err := json.Unmarshal(data, &item); err != nil {
				return fmt.Errorf("decode item: %w", err)
			}
			a, err := opts.open(cmd.Context(), appOptions{offline: true})
			if err != nil {
				return err
			}
			defer a.Close()

			var out domain.ValidatedItem
			if reprice {
				out = a.items.Process(cmd.Context(), item.Draft)
			} else {
				out = a.items.Validate(item)
			}
			return render.Render(cmd.OutOrStdout(), out, f)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json, standard or tournament")
	cmd.Flags().BoolVar(&reprice, "reprice", false, "Derive price, CL and aura before validating")
	return cmd
}
