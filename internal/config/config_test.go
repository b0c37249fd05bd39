package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTempHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("WHITELIST_HOME", dir)
	for _, key := range []string{"WHITELIST_RPC_URL", "WHITELIST_PRIVATE_KEY", "WHITELIST_CONTRACT_ADDRESS", "WHITELIST_CHAIN_ID"} {
		t.Setenv(key, "")
	}
	return dir
}

func TestLoadConfigCreatesDefault(t *testing.T) {
	dir := useTempHome(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.ActiveProfile)
	assert.Equal(t, uint64(DefaultChainID), cfg.GetChainID())
	assert.False(t, cfg.IsValid())
	assert.Equal(t, DefaultReadTimeout, cfg.ReadTimeout())
	assert.Equal(t, DefaultWriteTimeout, cfg.WriteTimeout())
	assert.True(t, cfg.ShouldAutoConnect())

	_, err = os.Stat(filepath.Join(dir, ".whitelist", "config.json"))
	assert.NoError(t, err)
}

func TestSaveAndReload(t *testing.T) {
	useTempHome(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	cfg.Profiles["local"] = Profile{
		RPCURL:          "http://127.0.0.1:8545",
		ChainID:         31337,
		ContractAddress: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		PrivateKey:      "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
	}
	cfg.ActiveProfile = "local"
	cfg.ReadTimeoutSeconds = 3
	require.NoError(t, cfg.Save())

	reloaded, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, reloaded.IsValid())
	assert.Equal(t, uint64(31337), reloaded.GetChainID())
	assert.Equal(t, "http://127.0.0.1:8545", reloaded.GetRPCURL())
	assert.Equal(t, "0x5FbDB2315678afecb367f032d93F642f64180aa3", reloaded.GetContractAddress().Hex())
	assert.Equal(t, 3*time.Second, reloaded.ReadTimeout())
}

func TestEnvOverridesProfile(t *testing.T) {
	useTempHome(t)
	t.Setenv("WHITELIST_RPC_URL", "http://rpc.example")
	t.Setenv("WHITELIST_PRIVATE_KEY", "0x01")
	t.Setenv("WHITELIST_CONTRACT_ADDRESS", "0x5FbDB2315678afecb367f032d93F642f64180aa3")
	t.Setenv("WHITELIST_CHAIN_ID", "11155111")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://rpc.example", cfg.GetRPCURL())
	assert.Equal(t, uint64(11155111), cfg.GetChainID())

	// Overrides stay out of the saved file.
	require.NoError(t, cfg.Save())
	t.Setenv("WHITELIST_RPC_URL", "")
	reloaded, err := LoadConfig()
	require.NoError(t, err)
	assert.Empty(t, reloaded.Profiles["default"].RPCURL)
}

func TestMissingActiveProfileFallsBack(t *testing.T) {
	useTempHome(t)
	cfg, err := LoadConfig()
	require.NoError(t, err)
	cfg.ActiveProfile = "gone"
	require.NoError(t, cfg.Save())

	reloaded, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "default", reloaded.ActiveProfile)
}

func TestValidateMessages(t *testing.T) {
	cfg := &Config{currentProfile: &Profile{}}
	assert.EqualError(t, cfg.Validate(), "rpc_url is not set")

	cfg.currentProfile.RPCURL = "http://x"
	assert.EqualError(t, cfg.Validate(), "private_key or keystore_path is not set")

	cfg.currentProfile.KeystorePath = "/tmp/key.json"
	assert.Error(t, cfg.Validate())

	cfg.currentProfile.ContractAddress = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	assert.NoError(t, cfg.Validate())
}

func TestLoadDeployConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RPC_URL", "")
	t.Setenv("QUICKNODE_HTTP_URL", "")
	t.Setenv("PRIVATE_KEY", "")

	_, err := LoadDeployConfig()
	assert.ErrorContains(t, err, "RPC_URL")

	t.Setenv("QUICKNODE_HTTP_URL", "http://quicknode.example")
	t.Setenv("PRIVATE_KEY", "0x01")
	t.Setenv("CHAIN_ID", "")
	t.Setenv("WHITELIST_ARTIFACT", "")
	t.Setenv("GAS_FEE_CAP", "")
	t.Setenv("GAS_TIP_CAP", "")
	t.Setenv("DEPLOY_TIMEOUT_SECONDS", "")

	cfg, err := LoadDeployConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://quicknode.example", cfg.RPCURL)
	assert.Equal(t, uint64(DefaultChainID), cfg.ChainID)
	assert.Empty(t, cfg.ArtifactPath)
	assert.Equal(t, 600*time.Second, cfg.Timeout)

	t.Setenv("GAS_TIP_CAP", "3000000000")
	_, err = LoadDeployConfig()
	assert.ErrorContains(t, err, "GAS_TIP_CAP")
}

func TestLoadDeployConfigRejectsMalformedNumbers(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RPC_URL", "http://rpc.example")
	t.Setenv("PRIVATE_KEY", "0x01")
	t.Setenv("WHITELIST_ARTIFACT", "")
	t.Setenv("GAS_FEE_CAP", "")
	t.Setenv("GAS_TIP_CAP", "")

	for key, value := range map[string]string{
		"CHAIN_ID":               "abc",
		"DEPLOY_TIMEOUT_SECONDS": "x",
		"GAS_FEE_CAP":            "2 gwei",
	} {
		t.Run(key, func(t *testing.T) {
			t.Setenv("CHAIN_ID", "")
			t.Setenv("DEPLOY_TIMEOUT_SECONDS", "")
			t.Setenv(key, value)

			cfg, err := LoadDeployConfig()
			assert.Nil(t, cfg)
			assert.ErrorContains(t, err, key)
			assert.ErrorContains(t, err, value)
		})
	}
}

func TestMalformedChainIDOverride(t *testing.T) {
	useTempHome(t)
	t.Setenv("WHITELIST_CHAIN_ID", "goerli")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "WHITELIST_CHAIN_ID")
}

func TestLoadDeployConfigReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("RPC_URL", "")
	t.Setenv("QUICKNODE_HTTP_URL", "")
	t.Setenv("PRIVATE_KEY", "")
	os.Unsetenv("RPC_URL")
	os.Unsetenv("QUICKNODE_HTTP_URL")
	os.Unsetenv("PRIVATE_KEY")

	env := "RPC_URL=http://from-dotenv\nPRIVATE_KEY=0x02\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600))

	cfg, err := LoadDeployConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://from-dotenv", cfg.RPCURL)
	assert.Equal(t, "0x02", cfg.PrivateKey)
}
