package ingest

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Dir         string        // input directory, watched non-recursively
	InitialScan bool          // emit one trigger right away if documents are waiting
	Debounce    time.Duration // coalesce bursts of create/write/rename events
}

// StartWatcher signals on the returned channel whenever eligible documents
// appeared in the input directory and the directory has been quiet for the
// debounce interval. A trigger carries no file list: the consumer re-lists
// the directory, which makes missed or duplicate events harmless.
func StartWatcher(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan struct{}, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.Dir) == "" {
		logger.Error("watch.start_failed", "error", "no directory provided")
		return nil, nil, errors.New("no directory provided")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("watch.create_failed", "error", err)
		return nil, nil, err
	}
	if err := w.Add(cfg.Dir); err != nil {
		logger.Error("watch.add_failed", "dir", cfg.Dir, "error", err)
		_ = w.Close()
		return nil, nil, err
	}

	trigCh := make(chan struct{}, 1)
	errCh := make(chan error, 1)

	signal := func() {
		select {
		case trigCh <- struct{}{}:
		default:
			// a trigger is already queued
		}
	}

	if cfg.InitialScan {
		if names, err := ListDocuments(cfg.Dir); err == nil && len(names) > 0 {
			signal()
		}
	}

	go func() {
		defer close(trigCh)
		defer close(errCh)
		defer func(w *fsnotify.Watcher) {
			err := w.Close()
			if err != nil {
				logger.Warn("watch.close_failed", "error", err)
			}
		}(w)

		var timer *time.Timer
		fire := make(chan struct{}, 1)
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case <-fire:
				signal()
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if !Eligible(e.Name) || e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				logger.Debug("watch.event", "path", e.Name, "op", e.Op.String())
				if cfg.Debounce <= 0 {
					signal()
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(cfg.Debounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watch.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return trigCh, errCh, nil
}
