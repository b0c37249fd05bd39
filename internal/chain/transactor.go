package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/lmittmann/w3/w3types"
)

var (
	DefaultGasFeeCap = big.NewInt(2_000_000_000)
	DefaultGasTipCap = big.NewInt(1_000_000_000)
)

// Fees are the EIP-1559 caps applied to every transaction.
type Fees struct {
	GasFeeCap *big.Int
	GasTipCap *big.Int
}

func DefaultFees() Fees {
	return Fees{
		GasFeeCap: new(big.Int).Set(DefaultGasFeeCap),
		GasTipCap: new(big.Int).Set(DefaultGasTipCap),
	}
}

type DeployResult struct {
	TxHash          common.Hash
	ContractAddress common.Address
}

// Transactor signs and submits transactions for one account on one chain.
type Transactor struct {
	client  *Client
	account *Account
	chainID *big.Int
	signer  types.Signer
	fees    Fees
}

func NewTransactor(client *Client, account *Account, chainID uint64, fees Fees) *Transactor {
	if fees.GasFeeCap == nil || fees.GasTipCap == nil {
		fees = DefaultFees()
	}
	id := new(big.Int).SetUint64(chainID)
	return &Transactor{
		client:  client,
		account: account,
		chainID: id,
		signer:  types.NewLondonSigner(id),
		fees:    fees,
	}
}

func (t *Transactor) Address() common.Address {
	return t.account.Address()
}

func (t *Transactor) Client() *Client {
	return t.client
}

// Simulate runs the call from this account so reverts surface before signing.
func (t *Transactor) Simulate(ctx context.Context, to common.Address, data []byte) error {
	return t.client.Simulate(ctx, &w3types.Message{
		From:  t.account.Address(),
		To:    &to,
		Input: data,
	})
}

// Send signs and submits a transaction. A nil to creates a contract.
func (t *Transactor) Send(ctx context.Context, to *common.Address, data []byte, gasLimit uint64) (common.Hash, error) {
	nonce, err := t.client.Nonce(ctx, t.account.Address())
	if err != nil {
		return common.Hash{}, err
	}
	return t.sendWithNonce(ctx, nonce, to, data, gasLimit)
}

// Deploy submits a contract creation transaction. The contract address is
// derived from the sender and nonce, so it is known before inclusion.
func (t *Transactor) Deploy(ctx context.Context, code []byte, gasLimit uint64) (DeployResult, error) {
	nonce, err := t.client.Nonce(ctx, t.account.Address())
	if err != nil {
		return DeployResult{}, err
	}

	contractAddr := crypto.CreateAddress(t.account.Address(), nonce)

	txHash, err := t.sendWithNonce(ctx, nonce, nil, code, gasLimit)
	if err != nil {
		return DeployResult{}, err
	}

	return DeployResult{
		TxHash:          txHash,
		ContractAddress: contractAddr,
	}, nil
}

func (t *Transactor) sendWithNonce(ctx context.Context, nonce uint64, to *common.Address, data []byte, gasLimit uint64) (common.Hash, error) {
	//  EIP-1559 only
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   t.chainID,
		Nonce:     nonce,
		To:        to,
		GasFeeCap: t.fees.GasFeeCap,
		GasTipCap: t.fees.GasTipCap,
		Gas:       gasLimit,
		Data:      data,
	})

	signedTx, err := types.SignTx(tx, t.signer, t.account.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}
	return t.client.SendTx(ctx, signedTx)
}
