package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/invoice-scanner/internal/async"
	"github.com/joseph-ayodele/invoice-scanner/internal/bootstrap"
	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/ingest"
	"github.com/joseph-ayodele/invoice-scanner/internal/server"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Process the input folder, then again whenever new PDFs arrive",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := slog.Default()

		sink := newTerminalSink()
		defer sink.Close()

		app, err := bootstrap.Build(cmd.Context(), cfg, sink, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		deps := map[string]server.Pinger{}
		if app.Journal != nil {
			deps["journal"] = app.Journal
		}
		hs := server.NewHealthServer(logger, deps)

		queue := async.NewRunQueue(func(ctx context.Context, req async.Request) error {
			res, err := app.Processor.Run(ctx)
			hs.MarkPipeline(!common.IsFatal(err))
			if len(res.Outcomes) > 0 {
				if rerr := renderResults(res); rerr != nil {
					logger.Warn("watch.render_failed", "error", rerr)
				}
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}, logger)

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			return hs.ListenAndServe(ctx, cfg.Watch.HealthAddr)
		})
		g.Go(func() error {
			defer queue.Shutdown(ctx)

			triggers, watchErrs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
				Dir:      cfg.Paths.Input,
				Debounce: cfg.Watch.Debounce,
			}, logger)
			if err != nil {
				return common.NewEnumerationError("watch input folder", err)
			}
			pterm.Info.Printfln("Watching %s", cfg.Paths.Input)
			if err := queue.Enqueue(ctx, async.Request{Reason: "startup"}); err != nil {
				return err
			}

			for {
				select {
				case <-ctx.Done():
					return nil
				case err, ok := <-watchErrs:
					if !ok {
						watchErrs = nil
						continue
					}
					logger.Warn("watch.error", "error", err)
				case _, ok := <-triggers:
					if !ok {
						return nil
					}
					if err := queue.Enqueue(ctx, async.Request{Reason: "fsnotify"}); err != nil {
						return err
					}
				}
			}
		})

		return g.Wait()
	},
}
