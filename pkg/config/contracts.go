package config

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Network identifies the chain the contracts are deployed on
type Network struct {
	ChainID int64  `yaml:"chain_id"`
	Name    string `yaml:"name"`
}

// ContractAddresses holds the deployed MemeChain contract addresses
type ContractAddresses struct {
	BattleManager     string `yaml:"battle_manager"`
	MemeRegistry      string `yaml:"meme_registry"`
	VotingEngine      string `yaml:"voting_engine"`
	RewardDistributor string `yaml:"reward_distributor"`
	USDC              string `yaml:"usdc"`
}

// ContractsConfig is the deployment the client talks to
type ContractsConfig struct {
	Network   Network           `yaml:"network"`
	Contracts ContractAddresses `yaml:"contracts"`
}

// DefaultContracts returns the Base Sepolia deployment
func DefaultContracts() *ContractsConfig {
	return &ContractsConfig{
		Network: Network{ChainID: 84532, Name: "base-sepolia"},
		Contracts: ContractAddresses{
			BattleManager:     "0x61B45999173dCBf1aA38c9cd24a375be1CcB1089",
			MemeRegistry:      "0xB06F35DDd2328E459D0aFaACdB009f58A76E89c6",
			VotingEngine:      "0x734215936637C524aEF6EE33eE1e51b7a288515C",
			RewardDistributor: "0xfd76f5fE3799F3dD6878a009881b385801903a9f",
			USDC:              "0x25a55219711875C81445F30BE44725900B4d5ea3",
		},
	}
}

// LoadContractsConfig loads contract addresses from a YAML file.
// An empty path yields DefaultContracts.
func LoadContractsConfig(path string) (*ContractsConfig, error) {
	if path == "" {
		return DefaultContracts(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read contracts config file: %w", err)
	}

	var config ContractsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse contracts config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate validates the contracts configuration
func (c *ContractsConfig) Validate() error {
	if c.Network.ChainID <= 0 {
		return fmt.Errorf("invalid chain_id for network %s", c.Network.Name)
	}

	addresses := map[string]string{
		"battle_manager":     c.Contracts.BattleManager,
		"meme_registry":      c.Contracts.MemeRegistry,
		"voting_engine":      c.Contracts.VotingEngine,
		"reward_distributor": c.Contracts.RewardDistributor,
		"usdc":               c.Contracts.USDC,
	}
	for name, addr := range addresses {
		if addr == "" {
			return fmt.Errorf("%s address is required", name)
		}
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("%s address %q is not a valid hex address", name, addr)
		}
	}

	return nil
}

// MatchesChain reports whether the deployment lives on chainID
func (c *ContractsConfig) MatchesChain(chainID int64) bool {
	return c.Network.ChainID == chainID
}
