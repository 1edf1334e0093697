package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nitesh/bill_monitor/internal/app"
	"github.com/nitesh/bill_monitor/internal/config"
	"github.com/nitesh/bill_monitor/internal/logging"
)

var (
	flagPreview bool
	flagLimit   int
	flagHistory int
)

var rootCmd = &cobra.Command{
	Use:   "digest",
	Short: "Run the daily bill digest once",
	Long: `Fetch the bill dataset, mail the bills not seen before and record them as seen.

With --preview only the first bills of the dataset are examined and the seen set is left untouched.`,
	SilenceUsage: true,
	RunE:         runDigest,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent digest runs (requires SEEN_STORE=postgres)",
	RunE:  runHistory,
}

func init() {
	rootCmd.Flags().BoolVar(&flagPreview, "preview", false, "examine the first bills only, without touching the seen set")
	rootCmd.Flags().IntVar(&flagLimit, "limit", 0, "number of bills in a preview (default from DIGEST_PREVIEW_LIMIT)")
	historyCmd.Flags().IntVarP(&flagHistory, "number", "n", 10, "number of runs to show")
	rootCmd.AddCommand(historyCmd)
}

func setup(ctx context.Context) (*app.App, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return a, logger, nil
}

func runDigest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, logger, err := setup(ctx)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer a.Close()

	var found int
	if flagPreview {
		found, err = a.Service.PreviewDigest(ctx, flagLimit)
	} else {
		found, err = a.Service.RunDigest(ctx)
	}
	if err != nil {
		return err
	}
	return printJSON(map[string]any{"success": true, "preview": flagPreview, "foundBills": found})
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, logger, err := setup(ctx)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer a.Close()

	if a.Postgres == nil {
		return errors.New("run history is kept only with SEEN_STORE=postgres")
	}
	runs, err := a.Postgres.RecentRuns(ctx, flagHistory)
	if err != nil {
		return err
	}
	return printJSON(runs)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
