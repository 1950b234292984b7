package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ufwcfg/pkg/header"
	"ufwcfg/pkg/metrics"
	"ufwcfg/pkg/selection"
	"ufwcfg/pkg/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		output      string
		extra       []string
		debounce    time.Duration
		metricsAddr string
		metricsUser string
		opts        header.Options
	)
	cmd := &cobra.Command{
		Use:   "watch <selection> -o <Configuration.h>",
		Short: "Regenerate the header whenever the selection changes",
		Long: `Render the header once, then again every time the selection file (or a
file given with --also) changes. An invalid edit is reported and the last
good header stays in place.

With --metrics-addr, Prometheus metrics are served on /metrics next to
/health and /ready. Set UFW_METRICS_PASSWORD to protect /metrics with basic
auth for --metrics-user.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return fmt.Errorf("watch needs --output")
			}
			opts.Source = filepath.Base(args[0])

			var (
				m   *metrics.Metrics
				srv *metrics.Server
			)
			if metricsAddr != "" {
				m = metrics.New()
				cfg := metrics.DefaultServerConfig()
				cfg.Address = metricsAddr
				cfg.Username = metricsUser
				cfg.Password = a.getenv("UFW_METRICS_PASSWORD")
				srv = metrics.NewServer(m, cfg)
			}

			st := newStyles(a.errOut)
			w, err := watch.New(watch.Options{
				Input:    args[0],
				Extra:    extra,
				Output:   output,
				Header:   opts,
				Debounce: debounce,
				Load: func(path string) (selection.Selection, []selection.Warning, error) {
					return a.load(path)
				},
				Metrics: m,
				OnResult: func(r watch.Result) {
					if srv != nil {
						srv.SetReady(r.Err == nil)
					}
					ts := st.Muted.Render(time.Now().Format("15:04:05"))
					switch {
					case r.Err != nil:
						fmt.Fprintf(a.errOut, "%s %s %v\n", ts, st.Error.Render("invalid:"), r.Err)
					case r.Written:
						fmt.Fprintf(a.errOut, "%s %s %s (%s)\n", ts, st.OK.Render("wrote"), output, r.Digest[:12])
					}
					a.printWarnings(r.Warnings)
				},
			})
			if err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return w.Run(ctx) })
			if srv != nil {
				g.Go(func() error { return srv.Run(ctx) })
			}
			return g.Wait()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Header path to keep up to date")
	cmd.Flags().StringSliceVar(&extra, "also", nil, "Further files whose changes trigger a regeneration")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period after a change before regenerating")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9100)")
	cmd.Flags().StringVar(&metricsUser, "metrics-user", "", "Basic auth user for /metrics")
	cmd.Flags().StringVar(&opts.Date, "date", "", "Value for STRING_DISTRIBUTION_DATE")
	cmd.Flags().BoolVar(&opts.OmitDerived, "omit-derived", false, "Leave derived constants to the firmware backend")
	return cmd
}
