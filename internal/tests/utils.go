package tests

import (
	"fmt"
	"strings"

	"github.com/finthetix/sidecar/internal/config"
	"github.com/google/uuid"
)

const (
	TestStakingContract = "0x5fbdb2315678afecb367f032d93f642f64180aa3"
	TestStakingToken    = "0xe7f1725e7734ce288f8367e1bb143e90bb3f0512"
	TestRewardToken     = "0x9fe46736679d2d9a65f0992f2272de9f3c7fa6e0"
)

// GetConfig returns a config pointed at the fake ethereum node with a local chain.
func GetConfig() *config.Config {
	return &config.Config{
		Chain: config.Chain_Local,
		EthereumRpcConfig: config.EthereumRpcConfig{
			BaseUrl:              FakeEthereumNodeUrl,
			UseNativeBatchCall:   true,
			NativeBatchCallSize:  100,
			ChunkedBatchCallSize: 10,
			ContractCaller:       config.ContractCaller_Batch,
		},
		ContractsConfig: config.ContractsConfig{
			StakingContractAddress: TestStakingContract,
		},
		DatabaseConfig: config.DatabaseConfig{
			Driver: config.DatabaseDriver_Sqlite,
		},
		HistoryConfig: config.HistoryConfig{
			BlockChunkSize:          10,
			DefaultLookbackBlocks:   100,
			MaxRangeBlocks:          1000,
			BlockTimestampCacheSize: 64,
		},
		CacheConfig: config.CacheConfig{
			StaticCacheTimeSeconds: 60,
		},
	}
}

func GenerateTestDbName() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("test_%s", strings.ReplaceAll(id.String(), "-", "")), nil
}
