package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

const ENV_PREFIX = "FINTHETIX"

type Chain string

const (
	Chain_Mainnet Chain = "mainnet"
	Chain_Sepolia Chain = "sepolia"
	Chain_Local   Chain = "local"
)

func ParseChain(c string) Chain {
	switch strings.ToLower(c) {
	case "mainnet":
		return Chain_Mainnet
	case "sepolia":
		return Chain_Sepolia
	default:
		return Chain_Local
	}
}

type DatabaseDriver string

const (
	DatabaseDriver_None     DatabaseDriver = "none"
	DatabaseDriver_Sqlite   DatabaseDriver = "sqlite"
	DatabaseDriver_Postgres DatabaseDriver = "postgres"
)

type Config struct {
	Debug             bool
	Chain             Chain
	EthereumRpcConfig EthereumRpcConfig
	ContractsConfig   ContractsConfig
	RewardsConfig     RewardsConfig
	DatabaseConfig    DatabaseConfig
	RpcConfig         RpcConfig
	PrometheusConfig  PrometheusConfig
	DataDogConfig     DataDogConfig
	HistoryConfig     HistoryConfig
	CacheConfig       CacheConfig
}

type EthereumRpcConfig struct {
	BaseUrl              string
	UseNativeBatchCall   bool
	NativeBatchCallSize  int
	ChunkedBatchCallSize int
	ContractCaller       ContractCallerType
}

type ContractCallerType string

const (
	// ContractCaller_Batch sends every read of a snapshot in one JSON-RPC batch
	ContractCaller_Batch ContractCallerType = "batch"
	// ContractCaller_Sequential makes one bound contract call per read
	ContractCaller_Sequential ContractCallerType = "sequential"
)

// ContractsConfig holds the deployed contract addresses. The token addresses are
// optional and discovered from the staking contract when left empty.
type ContractsConfig struct {
	StakingContractAddress string
	StakingTokenAddress    string
	RewardTokenAddress     string
}

// Accepted values of rewards.formula-variant. Empty selects divided.
const (
	FormulaVariant_Divided   = "divided"
	FormulaVariant_Undivided = "undivided"
)

type RewardsConfig struct {
	FormulaVariant string
}

type DatabaseConfig struct {
	Driver     DatabaseDriver
	SqlitePath string
	Host       string
	Port       int
	User       string
	Password   string
	DbName     string
	SchemaName string
	SSLMode    string
}

type RpcConfig struct {
	GrpcPort           int
	HttpPort           int
	CorsAllowedOrigins []string
}

type PrometheusConfig struct {
	Enabled bool
	Port    int
}

type DataDogConfig struct {
	StatsdConfig StatsdConfig
}

type StatsdConfig struct {
	Enabled    bool
	Url        string
	SampleRate float64
}

type HistoryConfig struct {
	BlockChunkSize          uint64
	DefaultLookbackBlocks   uint64
	MaxRangeBlocks          uint64
	BlockTimestampCacheSize int
}

type CacheConfig struct {
	StaticCacheTimeSeconds int
}

// CacheControl mirrors the static asset caching policy of the dApp server.
func (c CacheConfig) CacheControl() string {
	if c.StaticCacheTimeSeconds < 1 {
		return "no-store"
	}
	staleWhileRevalidate := c.StaticCacheTimeSeconds * 9 / 10
	return fmt.Sprintf("max-age=%d, stale-while-revalidate=%d", c.StaticCacheTimeSeconds, staleWhileRevalidate)
}

var (
	Debug     = "debug"
	ChainFlag = "chain"

	EthereumRpcBaseUrl              = "ethereum.rpc-url"
	EthereumRpcUseNativeBatchCall   = "ethereum.use-native-batch-call"
	EthereumRpcNativeBatchCallSize  = "ethereum.native-batch-call-size"
	EthereumRpcChunkedBatchCallSize = "ethereum.chunked-batch-call-size"
	EthereumRpcContractCaller       = "ethereum.contract-caller"

	ContractsStakingContract = "contracts.staking-contract"
	ContractsStakingToken    = "contracts.staking-token"
	ContractsRewardToken     = "contracts.reward-token"

	RewardsFormulaVariant = "rewards.formula-variant"

	DatabaseDriverFlag = "database.driver"
	DatabaseSqlitePath = "database.sqlite-path"
	DatabaseHost       = "database.host"
	DatabasePort       = "database.port"
	DatabaseUser       = "database.user"
	DatabasePassword   = "database.password"
	DatabaseDbName     = "database.db-name"
	DatabaseSchemaName = "database.schema-name"
	DatabaseSSLMode    = "database.ssl-mode"

	RpcGrpcPort           = "rpc.grpc-port"
	RpcHttpPort           = "rpc.http-port"
	RpcCorsAllowedOrigins = "rpc.cors-allowed-origins"

	PrometheusEnabled = "prometheus.enabled"
	PrometheusPort    = "prometheus.port"

	DataDogStatsdEnabled    = "datadog.statsd.enabled"
	DataDogStatsdUrl        = "datadog.statsd.url"
	DataDogStatsdSampleRate = "datadog.statsd.sample-rate"

	HistoryBlockChunkSize          = "history.block-chunk-size"
	HistoryDefaultLookbackBlocks   = "history.default-lookback-blocks"
	HistoryMaxRangeBlocks          = "history.max-range-blocks"
	HistoryBlockTimestampCacheSize = "history.block-timestamp-cache-size"

	CacheStaticCacheTimeSeconds = "cache.static-cache-time-seconds"
)

func NewConfig() *Config {
	return &Config{
		Debug: viper.GetBool(normalizeFlagName(Debug)),
		Chain: ParseChain(viper.GetString(normalizeFlagName(ChainFlag))),

		EthereumRpcConfig: EthereumRpcConfig{
			BaseUrl:              viper.GetString(normalizeFlagName(EthereumRpcBaseUrl)),
			UseNativeBatchCall:   viper.GetBool(normalizeFlagName(EthereumRpcUseNativeBatchCall)),
			NativeBatchCallSize:  viper.GetInt(normalizeFlagName(EthereumRpcNativeBatchCallSize)),
			ChunkedBatchCallSize: viper.GetInt(normalizeFlagName(EthereumRpcChunkedBatchCallSize)),
			ContractCaller:       ContractCallerType(StringWithDefault(viper.GetString(normalizeFlagName(EthereumRpcContractCaller)), string(ContractCaller_Batch))),
		},

		ContractsConfig: ContractsConfig{
			StakingContractAddress: strings.ToLower(viper.GetString(normalizeFlagName(ContractsStakingContract))),
			StakingTokenAddress:    strings.ToLower(viper.GetString(normalizeFlagName(ContractsStakingToken))),
			RewardTokenAddress:     strings.ToLower(viper.GetString(normalizeFlagName(ContractsRewardToken))),
		},

		RewardsConfig: RewardsConfig{
			FormulaVariant: viper.GetString(normalizeFlagName(RewardsFormulaVariant)),
		},

		DatabaseConfig: DatabaseConfig{
			Driver:     DatabaseDriver(StringWithDefault(viper.GetString(normalizeFlagName(DatabaseDriverFlag)), string(DatabaseDriver_Sqlite))),
			SqlitePath: viper.GetString(normalizeFlagName(DatabaseSqlitePath)),
			Host:       viper.GetString(normalizeFlagName(DatabaseHost)),
			Port:       viper.GetInt(normalizeFlagName(DatabasePort)),
			User:       viper.GetString(normalizeFlagName(DatabaseUser)),
			Password:   viper.GetString(normalizeFlagName(DatabasePassword)),
			DbName:     viper.GetString(normalizeFlagName(DatabaseDbName)),
			SchemaName: viper.GetString(normalizeFlagName(DatabaseSchemaName)),
			SSLMode:    viper.GetString(normalizeFlagName(DatabaseSSLMode)),
		},

		RpcConfig: RpcConfig{
			GrpcPort:           viper.GetInt(normalizeFlagName(RpcGrpcPort)),
			HttpPort:           viper.GetInt(normalizeFlagName(RpcHttpPort)),
			CorsAllowedOrigins: parseListValue(viper.GetString(normalizeFlagName(RpcCorsAllowedOrigins))),
		},

		PrometheusConfig: PrometheusConfig{
			Enabled: viper.GetBool(normalizeFlagName(PrometheusEnabled)),
			Port:    viper.GetInt(normalizeFlagName(PrometheusPort)),
		},

		DataDogConfig: DataDogConfig{
			StatsdConfig: StatsdConfig{
				Enabled:    viper.GetBool(normalizeFlagName(DataDogStatsdEnabled)),
				Url:        viper.GetString(normalizeFlagName(DataDogStatsdUrl)),
				SampleRate: viper.GetFloat64(normalizeFlagName(DataDogStatsdSampleRate)),
			},
		},

		HistoryConfig: HistoryConfig{
			BlockChunkSize:          viper.GetUint64(normalizeFlagName(HistoryBlockChunkSize)),
			DefaultLookbackBlocks:   viper.GetUint64(normalizeFlagName(HistoryDefaultLookbackBlocks)),
			MaxRangeBlocks:          viper.GetUint64(normalizeFlagName(HistoryMaxRangeBlocks)),
			BlockTimestampCacheSize: viper.GetInt(normalizeFlagName(HistoryBlockTimestampCacheSize)),
		},

		CacheConfig: CacheConfig{
			StaticCacheTimeSeconds: viper.GetInt(normalizeFlagName(CacheStaticCacheTimeSeconds)),
		},
	}
}

func (c *Config) GetChainId() uint64 {
	switch c.Chain {
	case Chain_Mainnet:
		return 1
	case Chain_Sepolia:
		return 11155111
	default:
		return 31337
	}
}

var (
	ErrMissingRpcUrl          = errors.New("ethereum rpc url is required")
	ErrMissingStakingContract = errors.New("staking contract address is required")
)

// ValidateChainAccess checks the settings every command that reads from chain depends on.
func (c *Config) ValidateChainAccess() error {
	if c.EthereumRpcConfig.BaseUrl == "" {
		return ErrMissingRpcUrl
	}
	if c.ContractsConfig.StakingContractAddress == "" {
		return ErrMissingStakingContract
	}
	for _, addr := range []string{
		c.ContractsConfig.StakingContractAddress,
		c.ContractsConfig.StakingTokenAddress,
		c.ContractsConfig.RewardTokenAddress,
	} {
		if addr != "" && !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid contract address '%s'", addr)
		}
	}
	switch c.EthereumRpcConfig.ContractCaller {
	case ContractCaller_Batch, ContractCaller_Sequential:
	default:
		return fmt.Errorf("unsupported contract caller '%s'", c.EthereumRpcConfig.ContractCaller)
	}
	switch c.DatabaseConfig.Driver {
	case DatabaseDriver_None, DatabaseDriver_Sqlite, DatabaseDriver_Postgres:
	default:
		return fmt.Errorf("unsupported database driver '%s'", c.DatabaseConfig.Driver)
	}
	switch c.RewardsConfig.FormulaVariant {
	case "", FormulaVariant_Divided, FormulaVariant_Undivided:
	default:
		return fmt.Errorf("unsupported formula variant '%s'", c.RewardsConfig.FormulaVariant)
	}
	if maxRange := c.HistoryConfig.MaxRangeBlocks; maxRange > 0 && c.HistoryConfig.DefaultLookbackBlocks >= maxRange {
		return fmt.Errorf("history lookback of %d blocks must be below the max range of %d blocks", c.HistoryConfig.DefaultLookbackBlocks, maxRange)
	}
	return nil
}

func StringWithDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

func parseListValue(value string) []string {
	if value == "" {
		return []string{}
	}
	l := make([]string, 0)
	for _, s := range strings.Split(value, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			l = append(l, s)
		}
	}
	return l
}

func KebabToSnakeCase(str string) string {
	return strings.ReplaceAll(str, "-", "_")
}

func normalizeFlagName(name string) string {
	return KebabToSnakeCase(name)
}
