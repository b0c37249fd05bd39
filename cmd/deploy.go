package cmd

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Rorical/whitelist-dapp/internal/chain"
	"github.com/Rorical/whitelist-dapp/internal/config"
	"github.com/Rorical/whitelist-dapp/internal/wallet"
	"github.com/Rorical/whitelist-dapp/internal/whitelist"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy the Whitelist contract",
	Long: `Deploy a Whitelist contract capped at 100 addresses and print its address.

Configuration comes from the environment or a .env file:
  RPC_URL (or QUICKNODE_HTTP_URL)  JSON-RPC endpoint
  PRIVATE_KEY                      deployer key, hex
  CHAIN_ID                         expected chain id (default 5)
  WHITELIST_ARTIFACT               hardhat artifact to deploy instead of the built-in one
  GAS_FEE_CAP, GAS_TIP_CAP         EIP-1559 caps in wei
  DEPLOY_TIMEOUT_SECONDS           how long to wait for inclusion (default 600)`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadDeployConfig()
		if err != nil {
			exitErr(err)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
		defer cancel()

		if _, err := runDeploy(ctx, cfg, cmd.OutOrStdout()); err != nil {
			cancel()
			exitErr(err)
		}
	},
}

// runDeploy deploys one Whitelist contract and reports progress to out.
func runDeploy(ctx context.Context, cfg *config.DeployConfig, out io.Writer) (common.Address, error) {
	art, err := loadArtifact(cfg.ArtifactPath)
	if err != nil {
		return common.Address{}, err
	}

	account, err := chain.ParsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return common.Address{}, err
	}

	client, err := chain.Dial(cfg.RPCURL)
	if err != nil {
		return common.Address{}, err
	}
	defer client.Close()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return common.Address{}, err
	}
	if chainID != cfg.ChainID {
		return common.Address{}, &wallet.WrongNetworkError{Got: wallet.NetworkFor(chainID), Want: wallet.NetworkFor(cfg.ChainID)}
	}

	fees := chain.Fees{
		GasFeeCap: big.NewInt(cfg.GasFeeCap),
		GasTipCap: big.NewInt(cfg.GasTipCap),
	}
	tx := chain.NewTransactor(client, account, chainID, fees)

	fmt.Fprintf(out, "Deploying %s (max %d addresses) from %s on %s\n",
		whitelist.Name(), whitelist.DefaultMaxAddresses, account.Address().Hex(), wallet.NetworkFor(chainID))

	result, err := whitelist.Deploy(ctx, tx, art, whitelist.DefaultMaxAddresses)
	if err != nil {
		return common.Address{}, err
	}

	fmt.Fprintf(out, "Deployment transaction: %s\n", result.TxHash.Hex())
	fmt.Fprintf(out, "Whitelist contract address: %s\n", result.ContractAddress.Hex())
	return result.ContractAddress, nil
}

// loadArtifact falls back to the contract compiled into the binary.
func loadArtifact(path string) (*whitelist.Artifact, error) {
	if path == "" {
		return whitelist.EmbeddedArtifact()
	}
	return whitelist.LoadArtifact(path)
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func init() {
	rootCmd.AddCommand(deployCmd)
}
