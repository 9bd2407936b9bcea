package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"itemforge/internal/httpapi"
	"itemforge/internal/watch"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		addr      string
		watchSrcs bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.open(ctx, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()
			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			srv := httpapi.New(a.items, a.retrieval,
				httpapi.WithAllowedOrigins(a.cfg.Server.AllowedOrigins...),
				httpapi.WithTimeout(time.Duration(a.cfg.Server.TimeoutSecs)*time.Second),
				httpapi.WithLogger(a.logger))

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.ListenAndServe(ctx, addr) })
			if watchSrcs {
				w, err := watch.New(a.cfg.KnowledgeBase.Sources, func(ctx context.Context) error {
					_, _, err := a.rebuild(ctx, nil)
					return err
				}, watch.WithLogger(a.logger))
				if err != nil {
					return err
				}
				g.Go(func() error { return w.Run(ctx) })
			}
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr)")
	cmd.Flags().BoolVarP(&watchSrcs, "watch", "w", false, "Rebuild the knowledge base when sources change")
	return cmd
}
