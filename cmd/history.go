package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/finthetix/sidecar/pkg/stakingFetcher"
	"github.com/gocarina/gocsv"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type eventRow struct {
	BlockNumber      uint64 `csv:"block_number"`
	TransactionIndex uint64 `csv:"transaction_index"`
	LogIndex         uint64 `csv:"log_index"`
	TransactionHash  string `csv:"transaction_hash"`
	Name             string `csv:"event"`
	TimestampMs      int64  `csv:"timestamp_ms"`
	Value            string `csv:"value"`
	ReadableValue    string `csv:"readable_value"`
}

var historyCmd = &cobra.Command{
	Use:   "history <address>",
	Short: "Scan the staking and reward history of a staker",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runOneShot(cmd, func(ctx context.Context, f *stakingFetcher.StakingFetcher) error {
			format, err := outputFormat(cmd, outputTable, outputJson, outputCsv)
			if err != nil {
				return err
			}
			req, err := historyRequest(cmd, args[0])
			if err != nil {
				return err
			}

			var bar *progressbar.ProgressBar
			req.Progress = func(scanned, total uint64) {
				if bar == nil {
					bar = progressbar.NewOptions64(int64(total),
						progressbar.OptionSetWriter(os.Stderr),
						progressbar.OptionSetDescription("scanning blocks"),
						progressbar.OptionShowCount(),
						progressbar.OptionClearOnFinish(),
					)
				}
				_ = bar.Set64(int64(scanned))
			}

			history, err := f.GetHistory(ctx, req)
			if bar != nil {
				_ = bar.Finish()
			}
			if err != nil {
				return err
			}

			events, _ := cmd.Flags().GetBool(eventsFlag)
			switch format {
			case outputJson:
				return printJSON(os.Stdout, history)
			case outputCsv:
				if events {
					return gocsv.Marshal(eventRows(history.Events), os.Stdout)
				}
				return gocsv.Marshal(history.Graph, os.Stdout)
			}

			fmt.Printf("%s: blocks %d to %d\n", history.Address, history.FromBlock, history.ToBlock)
			if events {
				rows := make([][]string, 0, len(history.Events))
				for _, e := range eventRows(history.Events) {
					rows = append(rows, []string{
						fmt.Sprintf("%d", e.BlockNumber),
						fmt.Sprintf("%d", e.TransactionIndex),
						e.Name,
						e.ReadableValue,
						e.TransactionHash,
					})
				}
				printTable(os.Stdout, []string{"Block", "Tx", "Event", "Value", "Hash"}, rows)
				return nil
			}

			rows := make([][]string, 0, len(history.Graph))
			for _, p := range history.Graph {
				rows = append(rows, []string{p.ReadableTimestamp, fmt.Sprintf("%d", p.BlockNumber), p.ReadableStakedAmt, p.ReadableRewardBal})
			}
			printTable(os.Stdout, []string{"Time (UTC)", "Block", "Staked", "Reward balance"}, rows)
			return nil
		})
	},
}

func historyRequest(cmd *cobra.Command, address string) (*stakingFetcher.HistoryRequest, error) {
	req := &stakingFetcher.HistoryRequest{Address: address}
	if cmd.Flags().Changed(fromBlockFlag) {
		v, err := cmd.Flags().GetUint64(fromBlockFlag)
		if err != nil {
			return nil, err
		}
		req.FromBlock = &v
	}
	if cmd.Flags().Changed(toBlockFlag) {
		v, err := cmd.Flags().GetUint64(toBlockFlag)
		if err != nil {
			return nil, err
		}
		req.ToBlock = &v
	}
	return req, nil
}

func eventRows(entries []*stakingFetcher.HistoryEntry) []*eventRow {
	rows := make([]*eventRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, &eventRow{
			BlockNumber:      e.BlockNumber,
			TransactionIndex: e.TransactionIndex,
			LogIndex:         e.LogIndex,
			TransactionHash:  e.TransactionHash,
			Name:             e.Name,
			TimestampMs:      e.TimestampMs,
			Value:            e.Value.Raw.Value,
			ReadableValue:    e.Value.Readable,
		})
	}
	return rows
}
