// Package whitelist binds the Whitelist contract: a capped set of addresses
// that any account can join once.
package whitelist

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"

	"github.com/Rorical/whitelist-dapp/internal/chain"
)

const (
	name = "Whitelist"

	DefaultMaxAddresses = 100
	AddGasLimit         = 100_000
	DeployGasLimit      = 600_000
)

var (
	funcWhitelisted    = w3.MustNewFunc("whitelistedAddresses(address)", "bool")
	funcNumWhitelisted = w3.MustNewFunc("numAddressesWhitelisted()", "uint8")
	funcMaxWhitelisted = w3.MustNewFunc("maxWhitelistedAddresses()", "uint8")
	funcAdd            = w3.MustNewFunc("addAddressToWhitelist()", "")
	funcConstructor    = w3.MustNewFunc("constructor(uint8)", "")
)

func Name() string { return name }

// Contract is a deployed Whitelist reachable through client.
type Contract struct {
	client  *chain.Client
	address common.Address
}

func New(client *chain.Client, address common.Address) *Contract {
	return &Contract{client: client, address: address}
}

func (c *Contract) Address() common.Address {
	return c.address
}

// IsWhitelisted reports whether addr has joined.
func (c *Contract) IsWhitelisted(ctx context.Context, addr common.Address) (bool, error) {
	var ok bool
	if err := c.client.CallFunc(ctx, c.address, funcWhitelisted, []any{addr}, &ok); err != nil {
		return false, fmt.Errorf("whitelistedAddresses: %w", err)
	}
	return ok, nil
}

// Count returns how many addresses have joined.
func (c *Contract) Count(ctx context.Context) (uint64, error) {
	var n uint8
	if err := c.client.CallFunc(ctx, c.address, funcNumWhitelisted, nil, &n); err != nil {
		return 0, fmt.Errorf("numAddressesWhitelisted: %w", err)
	}
	return uint64(n), nil
}

// MaxAddresses returns the cap fixed at construction.
func (c *Contract) MaxAddresses(ctx context.Context) (uint64, error) {
	var n uint8
	if err := c.client.CallFunc(ctx, c.address, funcMaxWhitelisted, nil, &n); err != nil {
		return 0, fmt.Errorf("maxWhitelistedAddresses: %w", err)
	}
	return uint64(n), nil
}

// AddSelf submits addAddressToWhitelist from tx's account and returns the
// transaction hash without waiting for inclusion. The call is simulated
// first so a duplicate or a full list is reported with the contract's reason
// and nothing is signed.
func (c *Contract) AddSelf(ctx context.Context, tx *chain.Transactor) (common.Hash, error) {
	data, err := funcAdd.EncodeArgs()
	if err != nil {
		return common.Hash{}, fmt.Errorf("encode addAddressToWhitelist: %w", err)
	}
	if err := tx.Simulate(ctx, c.address, data); err != nil {
		return common.Hash{}, fmt.Errorf("addAddressToWhitelist: %w", err)
	}
	hash, err := tx.Send(ctx, &c.address, data, AddGasLimit)
	if err != nil {
		return common.Hash{}, fmt.Errorf("addAddressToWhitelist: %w", err)
	}
	return hash, nil
}

// EncodeConstructor ABI-encodes the constructor argument, to be appended to
// the creation bytecode.
func EncodeConstructor(maxAddresses uint8) ([]byte, error) {
	return funcConstructor.Args.Pack(maxAddresses)
}
