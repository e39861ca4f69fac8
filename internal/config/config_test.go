package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func Test_Config(t *testing.T) {
	t.Run("Reads values set through viper", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)

		viper.Set(KebabToSnakeCase(ChainFlag), "sepolia")
		viper.Set(KebabToSnakeCase(EthereumRpcBaseUrl), "http://localhost:8545")
		viper.Set(KebabToSnakeCase(ContractsStakingContract), "0xAbC0000000000000000000000000000000000001")
		viper.Set(KebabToSnakeCase(RpcCorsAllowedOrigins), "http://localhost:3000, https://finthetix.app,")
		viper.Set(KebabToSnakeCase(HistoryBlockChunkSize), 500)

		cfg := NewConfig()

		assert.Equal(t, Chain_Sepolia, cfg.Chain)
		assert.Equal(t, uint64(11155111), cfg.GetChainId())
		assert.Equal(t, "http://localhost:8545", cfg.EthereumRpcConfig.BaseUrl)
		assert.Equal(t, "0xabc0000000000000000000000000000000000001", cfg.ContractsConfig.StakingContractAddress)
		assert.Equal(t, []string{"http://localhost:3000", "https://finthetix.app"}, cfg.RpcConfig.CorsAllowedOrigins)
		assert.Equal(t, uint64(500), cfg.HistoryConfig.BlockChunkSize)
		assert.Equal(t, DatabaseDriver_Sqlite, cfg.DatabaseConfig.Driver)
		assert.Equal(t, ContractCaller_Batch, cfg.EthereumRpcConfig.ContractCaller)
		assert.Nil(t, cfg.ValidateChainAccess())
	})
	t.Run("Validation catches missing and malformed values", func(t *testing.T) {
		cfg := &Config{
			EthereumRpcConfig: EthereumRpcConfig{ContractCaller: ContractCaller_Batch},
			DatabaseConfig:    DatabaseConfig{Driver: DatabaseDriver_None},
		}
		assert.ErrorIs(t, cfg.ValidateChainAccess(), ErrMissingRpcUrl)

		cfg.EthereumRpcConfig.BaseUrl = "http://localhost:8545"
		assert.ErrorIs(t, cfg.ValidateChainAccess(), ErrMissingStakingContract)

		cfg.ContractsConfig.StakingContractAddress = "not-an-address"
		assert.NotNil(t, cfg.ValidateChainAccess())

		cfg.ContractsConfig.StakingContractAddress = "0xabc0000000000000000000000000000000000001"
		assert.Nil(t, cfg.ValidateChainAccess())

		cfg.EthereumRpcConfig.ContractCaller = "multicall"
		assert.NotNil(t, cfg.ValidateChainAccess())

		cfg.EthereumRpcConfig.ContractCaller = ContractCaller_Sequential
		cfg.DatabaseConfig.Driver = "mongo"
		assert.NotNil(t, cfg.ValidateChainAccess())
	})
	t.Run("Formula variant must be known", func(t *testing.T) {
		cfg := &Config{
			EthereumRpcConfig: EthereumRpcConfig{BaseUrl: "http://localhost:8545", ContractCaller: ContractCaller_Batch},
			ContractsConfig:   ContractsConfig{StakingContractAddress: "0xabc0000000000000000000000000000000000001"},
			DatabaseConfig:    DatabaseConfig{Driver: DatabaseDriver_None},
		}
		for _, v := range []string{"", FormulaVariant_Divided, FormulaVariant_Undivided} {
			cfg.RewardsConfig.FormulaVariant = v
			assert.Nil(t, cfg.ValidateChainAccess(), v)
		}

		cfg.RewardsConfig.FormulaVariant = "undivded"
		err := cfg.ValidateChainAccess()
		assert.NotNil(t, err)
		assert.Contains(t, err.Error(), "undivded")
	})
	t.Run("History lookback must fit the max range", func(t *testing.T) {
		cfg := &Config{
			EthereumRpcConfig: EthereumRpcConfig{BaseUrl: "http://localhost:8545", ContractCaller: ContractCaller_Batch},
			ContractsConfig:   ContractsConfig{StakingContractAddress: "0xabc0000000000000000000000000000000000001"},
			DatabaseConfig:    DatabaseConfig{Driver: DatabaseDriver_None},
			HistoryConfig:     HistoryConfig{DefaultLookbackBlocks: 50000, MaxRangeBlocks: 50000},
		}
		assert.NotNil(t, cfg.ValidateChainAccess())

		cfg.HistoryConfig.MaxRangeBlocks = 500000
		assert.Nil(t, cfg.ValidateChainAccess())

		cfg.HistoryConfig.MaxRangeBlocks = 0
		assert.Nil(t, cfg.ValidateChainAccess())
	})
	t.Run("Cache control header", func(t *testing.T) {
		assert.Equal(t, "max-age=3600, stale-while-revalidate=3240", CacheConfig{StaticCacheTimeSeconds: 3600}.CacheControl())
		assert.Equal(t, "max-age=15, stale-while-revalidate=13", CacheConfig{StaticCacheTimeSeconds: 15}.CacheControl())
		assert.Equal(t, "no-store", CacheConfig{}.CacheControl())
	})
	t.Run("Chain parsing falls back to local", func(t *testing.T) {
		assert.Equal(t, Chain_Mainnet, ParseChain("MAINNET"))
		assert.Equal(t, Chain_Local, ParseChain("anvil"))
		assert.Equal(t, uint64(31337), (&Config{Chain: Chain_Local}).GetChainId())
	})
}
