package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/finthetix/sidecar/internal/config"
	"github.com/finthetix/sidecar/internal/logger"
	"github.com/finthetix/sidecar/internal/metrics"
	"github.com/finthetix/sidecar/pkg/stakingErrors"
	"github.com/finthetix/sidecar/pkg/stakingFetcher"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	percentageFlag = "percentage"
	outputFlag     = "output"
	fromBlockFlag  = "from-block"
	toBlockFlag    = "to-block"
	eventsFlag     = "events"

	outputTable = "table"
	outputJson  = "json"
	outputCsv   = "csv"
)

// runOneShot builds a fetcher from the global flags, runs fn and exits non-zero with the
// user facing message when it fails.
func runOneShot(cmd *cobra.Command, fn func(ctx context.Context, f *stakingFetcher.StakingFetcher) error) {
	initCommandFlags(cmd)
	cfg := config.NewConfig()

	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})

	f, closeStore, err := newStakingFetcher(cfg, metrics.NewNoopMetricsSink(), l)
	if err != nil {
		l.Sugar().Fatalw("Failed to setup staking fetcher", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = fn(ctx, f)
	cancel()
	closeStore()

	if err != nil {
		l.Sugar().Debugw("Command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, stakingErrors.UserMessageOf(err))
		os.Exit(1)
	}
}

func outputFormat(cmd *cobra.Command, allowed ...string) (string, error) {
	format, err := cmd.Flags().GetString(outputFlag)
	if err != nil {
		return "", err
	}
	for _, a := range allowed {
		if format == a {
			return format, nil
		}
	}
	return "", stakingErrors.Newf(stakingErrors.ErrorKind_InvalidInput, stakingErrors.Op_ParseInput,
		"unsupported output format '%s'", format)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTable(w io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.AppendBulk(rows)
	table.Render()
}

func formatAmount(a stakingFetcher.Amount, symbol string) string {
	if a.Readable == a.Raw.Value {
		return fmt.Sprintf("%s %s", a.Readable, symbol)
	}
	return fmt.Sprintf("%s %s (%s)", a.Readable, symbol, a.Raw.Value)
}

func formatCooldown(c stakingFetcher.Cooldown) string {
	switch {
	case !c.Enabled:
		return "disabled"
	case c.IsCoolingDown:
		return c.TimeLeft
	default:
		return "ready"
	}
}
