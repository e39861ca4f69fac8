package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/finthetix/sidecar/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "finthetix",
	Short: "Finthetix computes live staking rewards and cooldowns from the staking contract",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	initConfig(rootCmd)

	rootCmd.PersistentFlags().Bool(config.Debug, false, `"true" or "false"`)
	rootCmd.PersistentFlags().StringP(config.ChainFlag, "c", "mainnet", "The chain to use (mainnet, sepolia, local)")

	rootCmd.PersistentFlags().String(config.EthereumRpcBaseUrl, "", `e.g. "http://<hostname>:8545"`)
	rootCmd.PersistentFlags().Bool(config.EthereumRpcUseNativeBatchCall, true, `Use the native JSON-RPC batch for multi-read calls`)
	rootCmd.PersistentFlags().Int(config.EthereumRpcNativeBatchCallSize, 500, `The number of calls to batch together when using native batching`)
	rootCmd.PersistentFlags().Int(config.EthereumRpcChunkedBatchCallSize, 10, `The number of calls to make in parallel when native batching is disabled`)
	rootCmd.PersistentFlags().String(config.EthereumRpcContractCaller, string(config.ContractCaller_Batch), `How contract reads are made (batch, sequential)`)

	rootCmd.PersistentFlags().String(config.ContractsStakingContract, "", `Address of the Finthetix staking contract`)
	rootCmd.PersistentFlags().String(config.ContractsStakingToken, "", `Address of the staking token (discovered from the staking contract if empty)`)
	rootCmd.PersistentFlags().String(config.ContractsRewardToken, "", `Address of the reward token (discovered from the staking contract if empty)`)

	rootCmd.PersistentFlags().String(config.RewardsFormulaVariant, "divided", `Accrual formula (divided, undivided)`)

	rootCmd.PersistentFlags().String(config.DatabaseDriverFlag, string(config.DatabaseDriver_Sqlite), `Snapshot database (sqlite, postgres, none)`)
	rootCmd.PersistentFlags().String(config.DatabaseSqlitePath, "", `SQLite file path (in-memory if empty)`)
	rootCmd.PersistentFlags().String(config.DatabaseHost, "localhost", `PostgreSQL host`)
	rootCmd.PersistentFlags().Int(config.DatabasePort, 5432, `PostgreSQL port`)
	rootCmd.PersistentFlags().String(config.DatabaseUser, "finthetix", `PostgreSQL username`)
	rootCmd.PersistentFlags().String(config.DatabasePassword, "", `PostgreSQL password`)
	rootCmd.PersistentFlags().String(config.DatabaseDbName, "finthetix", `PostgreSQL database name`)
	rootCmd.PersistentFlags().String(config.DatabaseSchemaName, "", `PostgreSQL schema name (default "public")`)
	rootCmd.PersistentFlags().String(config.DatabaseSSLMode, "disable", `PostgreSQL ssl mode (disable, require, verify-ca, verify-full)`)

	rootCmd.PersistentFlags().Int(config.RpcGrpcPort, 7100, `gRPC port`)
	rootCmd.PersistentFlags().Int(config.RpcHttpPort, 7101, `http rpc port`)
	rootCmd.PersistentFlags().String(config.RpcCorsAllowedOrigins, "", `Comma separated list of allowed CORS origins (all if empty)`)

	rootCmd.PersistentFlags().Bool(config.DataDogStatsdEnabled, false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().String(config.DataDogStatsdUrl, "", `e.g. "localhost:8125"`)
	rootCmd.PersistentFlags().Float64(config.DataDogStatsdSampleRate, 1.0, `The sample rate to use for statsd metrics`)

	rootCmd.PersistentFlags().Bool(config.PrometheusEnabled, false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().Int(config.PrometheusPort, 2112, `The port to run the prometheus server on`)

	rootCmd.PersistentFlags().Uint64(config.HistoryBlockChunkSize, 5000, `Blocks per eth_getLogs request when scanning history`)
	rootCmd.PersistentFlags().Uint64(config.HistoryDefaultLookbackBlocks, 50000, `Blocks scanned back from the latest block when no start block is given`)
	rootCmd.PersistentFlags().Uint64(config.HistoryMaxRangeBlocks, 500000, `Largest block span a single history scan may cover (0 for no limit)`)
	rootCmd.PersistentFlags().Int(config.HistoryBlockTimestampCacheSize, 1024, `Number of block timestamps kept in memory`)

	rootCmd.PersistentFlags().Int(config.CacheStaticCacheTimeSeconds, 300, `max-age for cacheable responses (0 disables caching)`)

	// setup sub commands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(rewardsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(metadataCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(runVersionCmd)

	// bind any subcommand flags
	rewardsCmd.Flags().Uint64(percentageFlag, 0, `Also preview this percentage (0-100) of the wallet balance, stake and rewards`)
	rewardsCmd.Flags().StringP(outputFlag, "o", outputTable, `Output format (table, json)`)
	statusCmd.Flags().StringP(outputFlag, "o", outputTable, `Output format (table, json)`)
	metadataCmd.Flags().StringP(outputFlag, "o", outputTable, `Output format (table, json)`)
	historyCmd.Flags().Uint64(fromBlockFlag, 0, `First block to scan (defaults to the configured lookback)`)
	historyCmd.Flags().Uint64(toBlockFlag, 0, `Last block to scan (defaults to the latest block)`)
	historyCmd.Flags().StringP(outputFlag, "o", outputTable, `Output format (table, json, csv)`)
	historyCmd.Flags().Bool(eventsFlag, false, `Print the raw events instead of the graph`)

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		key := config.KebabToSnakeCase(f.Name)
		viper.BindPFlag(key, f) //nolint:errcheck
		viper.BindEnv(key)      //nolint:errcheck
	})
}

func initConfig(cmd *cobra.Command) {
	viper.SetEnvPrefix(config.ENV_PREFIX)

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.AutomaticEnv()
}

// initCommandFlags binds the flags local to a sub command.
func initCommandFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err := viper.BindPFlag(config.KebabToSnakeCase(f.Name), f); err != nil {
			fmt.Printf("Failed to bind flag '%s' - %+v\n", f.Name, err)
		}
		if err := viper.BindEnv(f.Name); err != nil {
			fmt.Printf("Failed to bind env '%s' - %+v\n", f.Name, err)
		}
	})
}
