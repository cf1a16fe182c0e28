package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"RPC_URL", "CHAIN_ID", "JWT_SECRET", "ACTIVATION_WAIT", "ACTIVATION_POLL_INTERVAL", "APPROVAL_AMOUNT", "ENV", "PINATA_JWT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(84532), cfg.ChainID)
	assert.Equal(t, 30*time.Second, cfg.ActivationWait)
	assert.Equal(t, time.Second, cfg.ActivationPollInterval)
	assert.Equal(t, DefaultApprovalAmount, cfg.ApprovalAmount.String())
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.HasSigner())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CHAIN_ID", "31337")
	t.Setenv("ACTIVATION_WAIT", "5")
	t.Setenv("ACTIVATION_POLL_INTERVAL", "250ms")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("APPROVAL_AMOUNT", "5000000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(31337), cfg.ChainID)
	assert.Equal(t, 5*time.Second, cfg.ActivationWait)
	assert.Equal(t, 250*time.Millisecond, cfg.ActivationPollInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "5000000", cfg.ApprovalAmount.String())
}

func TestLoad_InvalidApprovalAmount(t *testing.T) {
	t.Setenv("APPROVAL_AMOUNT", "lots")

	_, err := Load()
	assert.ErrorContains(t, err, "APPROVAL_AMOUNT")
}

func TestValidate(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")
	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET must be at least 32 characters")

	t.Setenv("JWT_SECRET", "")
	t.Setenv("ENV", "production")
	t.Setenv("PINATA_JWT", "")
	_, err = Load()
	assert.ErrorContains(t, err, "PINATA_JWT is required in production")
}

func TestValidateServer(t *testing.T) {
	cfg := &Config{}
	assert.ErrorContains(t, cfg.ValidateServer(), "JWT_SECRET is required")

	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, cfg.ValidateServer())
}

func TestLoadContractsConfig_Default(t *testing.T) {
	cfg, err := LoadContractsConfig("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.MatchesChain(84532))
	assert.Equal(t, "0x61B45999173dCBf1aA38c9cd24a375be1CcB1089", cfg.Contracts.BattleManager)
}

func TestLoadContractsConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contracts.yaml")
	content := `
network:
  chain_id: 31337
  name: anvil
contracts:
  battle_manager: "0x5FbDB2315678afecb367f032d93F642f64180aa3"
  meme_registry: "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"
  voting_engine: "0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0"
  reward_distributor: "0xCf7Ed3AccA5a467e9e704C703E8D87F634fB0Fc9"
  usdc: "0xDc64a140Aa3E981100a9becA4E685f962f0cF6C9"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadContractsConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "anvil", cfg.Network.Name)
	assert.Equal(t, "0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0", cfg.Contracts.VotingEngine)
}

func TestLoadContractsConfig_InvalidAddress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contracts.yaml")
	content := `
network:
  chain_id: 1
contracts:
  battle_manager: "not-an-address"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := LoadContractsConfig(path)
	assert.Error(t, err)
}

func TestLoadContractsConfig_MissingFile(t *testing.T) {
	_, err := LoadContractsConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read contracts config file")
}
