package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joseph-ayodele/invoice-scanner/internal/common"
)

const (
	exitOK     = 0
	exitFatal  = 1
	exitLedger = 2
)

var (
	configFile string
	logFormat  string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "invoice-scanner",
	Short: "Rename, file and log scanned invoices",
	Long: `invoice-scanner reads every PDF in an input folder, extracts the invoice
number, date, total and sender, moves the document into the output folder
under a name built from those fields, and appends one row per document to an
xlsx log.

Commands:
  run      process the input folder once
  watch    process, then keep watching the input folder
  extract  print the text a strategy extracts from one PDF`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogger()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file (yaml, toml or json)")
	pf.StringVar(&logFormat, "log-format", "text", "log format: text or json")
	pf.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pf.String("input", "", "input folder (INPUT_DIR)")
	pf.String("output", "", "output folder (OUTPUT_DIR)")
	pf.String("ledger", "", "xlsx log file (LEDGER_PATH)")
	pf.String("method", "", "extraction method: pdf-parse, pdfreader or mistral (EXTRACTION_METHOD)")

	rootCmd.AddCommand(runCmd, watchCmd, extractCmd)
}

func setupLogger() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return common.NewConfigError(fmt.Sprintf("invalid log level %q", logLevel))
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(logFormat) {
	case "json":
		h = slog.NewJSONHandler(os.Stderr, opts)
	case "text", "":
		// messages with variables but no time/level
		opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		}
		h = slog.NewTextHandler(os.Stderr, opts)
	default:
		return common.NewConfigError(fmt.Sprintf("invalid log format %q", logFormat))
	}
	slog.SetDefault(slog.New(h))
	return nil
}

// loadConfig layers defaults, the config file, the environment and then any
// flag the user actually set.
func loadConfig(cmd *cobra.Command) (*common.Config, error) {
	v, err := common.NewViper(configFile)
	if err != nil {
		return nil, err
	}
	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}
	return common.LoadWithViper(v)
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for key, flag := range map[string]string{
		"paths.input":       "input",
		"paths.output":      "output",
		"paths.ledger":      "ledger",
		"extraction.method": "method",
	} {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case common.IsFatal(err):
		return exitFatal
	case errors.Is(err, common.ErrLedger):
		return exitLedger
	default:
		return exitFatal
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		slog.Error("cli.failed", "error", err)
	}
	stop()
	os.Exit(exitCode(err))
}
