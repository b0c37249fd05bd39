package whitelist

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Rorical/whitelist-dapp/internal/chain"
)

// Deploy creates a new Whitelist capped at maxAddresses and blocks until the
// creation transaction is mined.
func Deploy(ctx context.Context, tx *chain.Transactor, art *Artifact, maxAddresses uint8) (chain.DeployResult, error) {
	if maxAddresses == 0 {
		return chain.DeployResult{}, errors.New("max addresses must be positive")
	}

	args, err := EncodeConstructor(maxAddresses)
	if err != nil {
		return chain.DeployResult{}, fmt.Errorf("encode constructor: %w", err)
	}
	code := make([]byte, 0, len(art.Bytecode)+len(args))
	code = append(code, art.Bytecode...)
	code = append(code, args...)

	result, err := tx.Deploy(ctx, code, DeployGasLimit)
	if err != nil {
		return chain.DeployResult{}, fmt.Errorf("deploy %s: %w", name, err)
	}

	receipt, err := tx.Client().WaitMined(ctx, result.TxHash)
	if err != nil {
		return chain.DeployResult{}, fmt.Errorf("wait %s deployment: %w", name, err)
	}
	if receipt.ContractAddress != (common.Address{}) {
		result.ContractAddress = receipt.ContractAddress
	}

	deployed, err := tx.Client().CodeAt(ctx, result.ContractAddress)
	if err != nil {
		return chain.DeployResult{}, err
	}
	if len(deployed) == 0 {
		return chain.DeployResult{}, fmt.Errorf("%s address %s has no code", name, result.ContractAddress.Hex())
	}
	return result, nil
}
