package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
)

// DeployConfig drives `whitelist deploy`. It comes from the environment (and
// a .env file in the working directory), never from flags. An empty
// ArtifactPath selects the embedded contract.
type DeployConfig struct {
	RPCURL       string
	ChainID      uint64
	PrivateKey   string
	ArtifactPath string
	GasFeeCap    int64
	GasTipCap    int64
	Timeout      time.Duration
}

func LoadDeployConfig() (*DeployConfig, error) {
	_ = godotenv.Load()

	chainID, chainErr := envUint64("CHAIN_ID", DefaultChainID)
	feeCap, feeErr := envInt64("GAS_FEE_CAP", 2_000_000_000)
	tipCap, tipErr := envInt64("GAS_TIP_CAP", 1_000_000_000)
	timeout, timeoutErr := envInt64("DEPLOY_TIMEOUT_SECONDS", 600)
	if err := errors.Join(chainErr, feeErr, tipErr, timeoutErr); err != nil {
		return nil, fmt.Errorf("invalid deploy configuration: %w", err)
	}

	cfg := &DeployConfig{
		RPCURL:       envOr("RPC_URL", envOr("QUICKNODE_HTTP_URL", "")),
		ChainID:      chainID,
		PrivateKey:   envOr("PRIVATE_KEY", ""),
		ArtifactPath: envOr("WHITELIST_ARTIFACT", ""),
		GasFeeCap:    feeCap,
		GasTipCap:    tipCap,
		Timeout:      time.Duration(timeout) * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid deploy configuration: %w", err)
	}
	return cfg, nil
}

func (c *DeployConfig) Validate() error {
	if c.RPCURL == "" {
		return errors.New("RPC_URL cannot be empty")
	}
	if c.PrivateKey == "" {
		return errors.New("PRIVATE_KEY cannot be empty")
	}
	if c.ChainID == 0 {
		return errors.New("CHAIN_ID must be > 0")
	}
	if c.GasFeeCap <= 0 || c.GasTipCap <= 0 {
		return errors.New("GAS_FEE_CAP and GAS_TIP_CAP must be > 0")
	}
	if c.GasTipCap > c.GasFeeCap {
		return errors.New("GAS_TIP_CAP cannot exceed GAS_FEE_CAP")
	}
	if c.Timeout <= 0 {
		return errors.New("DEPLOY_TIMEOUT_SECONDS must be > 0")
	}
	return nil
}
