package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lmittmann/w3"
	"github.com/lmittmann/w3/module/eth"
	"github.com/lmittmann/w3/w3types"
)

const DefaultPollInterval = 2 * time.Second

// Caller is the subset of *w3.Client used here.
type Caller interface {
	CallCtx(ctx context.Context, calls ...w3types.RPCCaller) error
	Close() error
}

// Client is a read-only view of an EVM JSON-RPC endpoint.
type Client struct {
	caller       Caller
	PollInterval time.Duration
}

func NewClient(caller Caller) *Client {
	return &Client{
		caller:       caller,
		PollInterval: DefaultPollInterval,
	}
}

func Dial(rpcURL string) (*Client, error) {
	c, err := w3.Dial(rpcURL)
	if err != nil {
		return nil, &TransientNetworkError{Op: "dial rpc", Err: err}
	}
	return NewClient(c), nil
}

func (c *Client) Close() error {
	return c.caller.Close()
}

func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	var id uint64
	if err := c.caller.CallCtx(ctx, eth.ChainID().Returns(&id)); err != nil {
		return 0, &TransientNetworkError{Op: "get chain id", Err: err}
	}
	return id, nil
}

// CallFunc runs a read-only contract call and decodes its return values.
func (c *Client) CallFunc(ctx context.Context, contract common.Address, fn w3types.Func, args []any, returns ...any) error {
	if err := c.caller.CallCtx(ctx, eth.CallFunc(contract, fn, args...).Returns(returns...)); err != nil {
		return classify("call "+funcName(fn), err)
	}
	return nil
}

// Simulate executes msg against the latest state without sending it.
func (c *Client) Simulate(ctx context.Context, msg *w3types.Message) error {
	var out []byte
	if err := c.caller.CallCtx(ctx, eth.Call(msg, nil, nil).Returns(&out)); err != nil {
		return classify("simulate", err)
	}
	return nil
}

func (c *Client) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	var code []byte
	if err := c.caller.CallCtx(ctx, eth.Code(addr, nil).Returns(&code)); err != nil {
		return nil, &TransientNetworkError{Op: "get code", Err: err}
	}
	return code, nil
}

func (c *Client) Nonce(ctx context.Context, addr common.Address) (uint64, error) {
	var nonce uint64
	if err := c.caller.CallCtx(ctx, eth.Nonce(addr, nil).Returns(&nonce)); err != nil {
		return 0, &TransientNetworkError{Op: "get nonce", Err: err}
	}
	return nonce, nil
}

func (c *Client) SendTx(ctx context.Context, tx *types.Transaction) (common.Hash, error) {
	var hash common.Hash
	if err := c.caller.CallCtx(ctx, eth.SendTx(tx).Returns(&hash)); err != nil {
		return common.Hash{}, classify("send tx", err)
	}
	return tx.Hash(), nil
}

// WaitForReceipt polls until the receipt for txHash is available or ctx ends.
func (c *Client) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	interval := c.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		var receipt *types.Receipt
		err := c.caller.CallCtx(ctx, eth.TxReceipt(txHash).Returns(&receipt))
		if err == nil && receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, &TransientNetworkError{Op: "wait for receipt " + txHash.Hex(), Err: ctx.Err()}
		case <-ticker.C:
		}
	}
}

// WaitMined waits for txHash and fails with a *RevertedError when the
// transaction was included with a failed status.
func (c *Client) WaitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	receipt, err := c.WaitForReceipt(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, &RevertedError{TxHash: txHash}
	}
	return receipt, nil
}

func funcName(fn w3types.Func) string {
	if f, ok := fn.(*w3.Func); ok {
		return f.Signature
	}
	return fmt.Sprintf("%T", fn)
}
