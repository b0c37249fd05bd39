package whitelist_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rorical/whitelist-dapp/internal/chain"
	"github.com/Rorical/whitelist-dapp/internal/chain/chaintest"
	"github.com/Rorical/whitelist-dapp/internal/whitelist"
)

const testChainID = 5

const testABI = `[
  {"type":"constructor","inputs":[{"name":"_maxWhitelistedAddresses","type":"uint8"}],"stateMutability":"nonpayable"},
  {"type":"function","name":"addAddressToWhitelist","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"maxWhitelistedAddresses","inputs":[],"outputs":[{"name":"","type":"uint8"}],"stateMutability":"view"},
  {"type":"function","name":"numAddressesWhitelisted","inputs":[],"outputs":[{"name":"","type":"uint8"}],"stateMutability":"view"},
  {"type":"function","name":"whitelistedAddresses","inputs":[{"name":"","type":"address"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"view"}
]`

type fixture struct {
	node     *chaintest.Node
	client   *chain.Client
	contract *whitelist.Contract
}

func setup(t *testing.T, maxAddresses uint8) *fixture {
	t.Helper()
	node := chaintest.NewNode(testChainID)
	t.Cleanup(node.Close)
	client := chain.NewClient(node.Client())
	client.PollInterval = 5 * time.Millisecond
	addr := node.DeployWhitelist(maxAddresses)
	return &fixture{
		node:     node,
		client:   client,
		contract: whitelist.New(client, addr),
	}
}

func (f *fixture) newTransactor(t *testing.T) *chain.Transactor {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return chain.NewTransactor(f.client, chain.NewAccount(key), testChainID, chain.DefaultFees())
}

func (f *fixture) join(t *testing.T, tx *chain.Transactor) error {
	t.Helper()
	ctx := context.Background()
	hash, err := f.contract.AddSelf(ctx, tx)
	if err != nil {
		return err
	}
	_, err = f.client.WaitMined(ctx, hash)
	return err
}

func TestReadsAreIdempotent(t *testing.T) {
	f := setup(t, whitelist.DefaultMaxAddresses)
	tx := f.newTransactor(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := f.contract.IsWhitelisted(ctx, tx.Address())
		require.NoError(t, err)
		assert.False(t, ok)

		n, err := f.contract.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), n)
	}

	limit, err := f.contract.MaxAddresses(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(whitelist.DefaultMaxAddresses), limit)
}

func TestAddSelfIncrementsByOne(t *testing.T) {
	f := setup(t, whitelist.DefaultMaxAddresses)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, f.join(t, f.newTransactor(t)))
	}

	tx := f.newTransactor(t)
	before, err := f.contract.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), before)

	require.NoError(t, f.join(t, tx))

	ok, err := f.contract.IsWhitelisted(ctx, tx.Address())
	require.NoError(t, err)
	assert.True(t, ok)

	after, err := f.contract.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)
}

func TestAddSelfTwiceReverts(t *testing.T) {
	f := setup(t, whitelist.DefaultMaxAddresses)
	tx := f.newTransactor(t)
	require.NoError(t, f.join(t, tx))

	err := f.join(t, tx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, chain.ErrReverted))
	assert.Contains(t, err.Error(), chaintest.ReasonAlreadyWhitelisted)

	n, err := f.contract.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestCapIsEnforced(t *testing.T) {
	f := setup(t, whitelist.DefaultMaxAddresses)
	ctx := context.Background()

	for i := 0; i < whitelist.DefaultMaxAddresses; i++ {
		require.NoError(t, f.join(t, f.newTransactor(t)), "join %d", i)
	}

	err := f.join(t, f.newTransactor(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, chain.ErrReverted))
	assert.Contains(t, err.Error(), chaintest.ReasonLimitReached)

	n, err := f.contract.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(whitelist.DefaultMaxAddresses), n)
}

func TestEncodeConstructor(t *testing.T) {
	data, err := whitelist.EncodeConstructor(100)
	require.NoError(t, err)
	require.Len(t, data, 32)
	assert.Equal(t, byte(100), data[31])
}

func writeArtifact(t *testing.T, bytecode string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Whitelist.json")
	body := `{"contractName":"Whitelist","abi":` + testABI + `,"bytecode":"` + bytecode + `"}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadArtifact(t *testing.T) {
	art, err := whitelist.LoadArtifact(writeArtifact(t, "0x6080604052"))
	require.NoError(t, err)
	assert.Equal(t, "Whitelist", art.ContractName)
	assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40, 0x52}, art.Bytecode)

	_, err = whitelist.LoadArtifact(writeArtifact(t, "0x"))
	assert.Error(t, err)

	_, err = whitelist.ParseArtifact([]byte(`{"contractName":"Other","abi":[],"bytecode":"0x60"}`))
	assert.Error(t, err)
}

func TestEmbeddedArtifact(t *testing.T) {
	art, err := whitelist.EmbeddedArtifact()
	require.NoError(t, err)
	assert.Equal(t, whitelist.Name(), art.ContractName)
	require.NotEmpty(t, art.Bytecode)

	// The runtime dispatches on every selector the ABI declares.
	for name, m := range art.ABI.Methods {
		assert.Equal(t, crypto.Keccak256([]byte(m.Sig))[:4], m.ID, name)
		assert.True(t, bytes.Contains(art.Bytecode, m.ID), "bytecode has no dispatch for %s", name)
	}
	// The revert reasons are the ones callers match on.
	assert.True(t, bytes.Contains(art.Bytecode, []byte(chaintest.ReasonAlreadyWhitelisted)))
	assert.True(t, bytes.Contains(art.Bytecode, []byte(chaintest.ReasonLimitReached)))
}

func TestDeploy(t *testing.T) {
	node := chaintest.NewNode(testChainID)
	defer node.Close()
	client := chain.NewClient(node.Client())
	client.PollInterval = 5 * time.Millisecond

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	tx := chain.NewTransactor(client, chain.NewAccount(key), testChainID, chain.DefaultFees())

	art, err := whitelist.LoadArtifact(writeArtifact(t, "0x6080604052"))
	require.NoError(t, err)

	result, err := whitelist.Deploy(context.Background(), tx, art, whitelist.DefaultMaxAddresses)
	require.NoError(t, err)
	assert.Equal(t, crypto.CreateAddress(tx.Address(), 0), result.ContractAddress)
	assert.Equal(t, whitelist.DefaultMaxAddresses, node.MaxAddresses(result.ContractAddress))

	n, err := whitelist.New(client, result.ContractAddress).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
