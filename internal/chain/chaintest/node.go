// Package chaintest provides an in-process EVM JSON-RPC node that hosts
// whitelist contracts, so chain-facing code can be tested without a network.
package chaintest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http/httptest"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/lmittmann/w3"
)

const (
	ReasonAlreadyWhitelisted = "Sender has already been whitelisted"
	ReasonLimitReached       = "More addresses cant be added, limit reached"
)

var (
	selWhitelisted    = selector("whitelistedAddresses(address)")
	selNumWhitelisted = selector("numAddressesWhitelisted()")
	selMaxWhitelisted = selector("maxWhitelistedAddresses()")
	selAdd            = selector("addAddressToWhitelist()")

	contractCode = []byte{0x60, 0x80, 0x60, 0x40, 0x52}
)

type whitelist struct {
	max     uint8
	count   uint8
	members map[common.Address]bool
}

// Node is a minimal chain: every transaction is mined on arrival, one per
// block.
type Node struct {
	mu        sync.Mutex
	chainID   uint64
	block     uint64
	nonces    map[common.Address]uint64
	contracts map[common.Address]*whitelist
	receipts  map[common.Hash]*types.Receipt
	calls     map[string]int
	failCalls error
	holdRcpts bool
	deployed  int

	server *rpc.Server
	http   *httptest.Server
}

func NewNode(chainID uint64) *Node {
	n := &Node{
		chainID:   chainID,
		nonces:    make(map[common.Address]uint64),
		contracts: make(map[common.Address]*whitelist),
		receipts:  make(map[common.Hash]*types.Receipt),
		calls:     make(map[string]int),
	}
	n.server = rpc.NewServer()
	if err := n.server.RegisterName("eth", &API{node: n}); err != nil {
		panic(fmt.Sprintf("register eth api: %v", err))
	}
	return n
}

// Client returns a w3 client connected in-process.
func (n *Node) Client() *w3.Client {
	return w3.NewClient(rpc.DialInProc(n.server))
}

// URL starts an HTTP endpoint on first use.
func (n *Node) URL() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.http == nil {
		n.http = httptest.NewServer(n.server)
	}
	return n.http.URL
}

func (n *Node) Close() {
	n.mu.Lock()
	srv := n.http
	n.http = nil
	n.mu.Unlock()
	if srv != nil {
		srv.Close()
	}
	n.server.Stop()
}

func (n *Node) SetChainID(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.chainID = id
}

// FailCalls makes every eth_call fail with err until cleared with nil.
func (n *Node) FailCalls(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failCalls = err
}

// HoldReceipts hides receipts while hold is true, keeping writes in flight.
func (n *Node) HoldReceipts(hold bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.holdRcpts = hold
}

// CallCount reports how often an RPC method (e.g. "eth_call") was served.
func (n *Node) CallCount(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

// DeployWhitelist installs a contract directly, bypassing transactions.
func (n *Node) DeployWhitelist(max uint8, members ...common.Address) common.Address {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deployed++
	addr := crypto.CreateAddress(common.HexToAddress("0xdead"), uint64(n.deployed))
	wl := newWhitelist(max)
	for _, m := range members {
		if !wl.members[m] {
			wl.members[m] = true
			wl.count++
		}
	}
	n.contracts[addr] = wl
	return addr
}

func (n *Node) IsMember(contract, addr common.Address) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	wl, ok := n.contracts[contract]
	return ok && wl.members[addr]
}

func (n *Node) Count(contract common.Address) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	wl, ok := n.contracts[contract]
	if !ok {
		return 0
	}
	return int(wl.count)
}

func (n *Node) MaxAddresses(contract common.Address) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	wl, ok := n.contracts[contract]
	if !ok {
		return 0
	}
	return int(wl.max)
}

func newWhitelist(max uint8) *whitelist {
	return &whitelist{max: max, members: make(map[common.Address]bool)}
}

func (n *Node) count(method string) {
	n.calls[method]++
}

// execute runs a contract call; commit applies state changes.
func (n *Node) execute(from *common.Address, to common.Address, data []byte, commit bool) ([]byte, error) {
	wl, ok := n.contracts[to]
	if !ok {
		return nil, nil
	}
	if len(data) < 4 {
		return nil, revert("")
	}

	var sel [4]byte
	copy(sel[:], data[:4])
	switch sel {
	case selWhitelisted:
		if len(data) < 36 {
			return nil, revert("")
		}
		addr := common.BytesToAddress(data[16:36])
		return boolWord(wl.members[addr]), nil
	case selNumWhitelisted:
		return uintWord(wl.count), nil
	case selMaxWhitelisted:
		return uintWord(wl.max), nil
	case selAdd:
		if from == nil {
			return nil, revert("")
		}
		if wl.members[*from] {
			return nil, revert(ReasonAlreadyWhitelisted)
		}
		if wl.count >= wl.max {
			return nil, revert(ReasonLimitReached)
		}
		if commit {
			wl.members[*from] = true
			wl.count++
		}
		return nil, nil
	}
	return nil, revert("")
}

func (n *Node) applyTx(tx *types.Transaction) (common.Hash, error) {
	signer := types.LatestSignerForChainID(new(big.Int).SetUint64(n.chainID))
	from, err := types.Sender(signer, tx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid sender: %w", err)
	}
	if want := n.nonces[from]; tx.Nonce() != want {
		return common.Hash{}, fmt.Errorf("invalid nonce: have %d, want %d", tx.Nonce(), want)
	}
	n.nonces[from]++
	n.block++

	receipt := &types.Receipt{
		Type:              tx.Type(),
		Status:            types.ReceiptStatusSuccessful,
		CumulativeGasUsed: 21_000,
		GasUsed:           21_000,
		Logs:              []*types.Log{},
		TxHash:            tx.Hash(),
		BlockNumber:       new(big.Int).SetUint64(n.block),
		BlockHash:         crypto.Keccak256Hash(new(big.Int).SetUint64(n.block).Bytes()),
	}

	if tx.To() == nil {
		maxAddresses, ok := constructorArg(tx.Data())
		if ok {
			addr := crypto.CreateAddress(from, tx.Nonce())
			n.contracts[addr] = newWhitelist(maxAddresses)
			receipt.ContractAddress = addr
		} else {
			receipt.Status = types.ReceiptStatusFailed
		}
	} else if _, err := n.execute(&from, *tx.To(), tx.Data(), true); err != nil {
		receipt.Status = types.ReceiptStatusFailed
	}

	n.receipts[tx.Hash()] = receipt
	return tx.Hash(), nil
}

// constructorArg reads the trailing ABI-encoded uint8 of creation data.
func constructorArg(data []byte) (uint8, bool) {
	if len(data) <= 32 {
		return 0, false
	}
	word := data[len(data)-32:]
	for _, b := range word[:31] {
		if b != 0 {
			return 0, false
		}
	}
	return word[31], true
}

// API is served under the "eth" namespace.
type API struct {
	node *Node
}

type CallArgs struct {
	From  *common.Address `json:"from"`
	To    *common.Address `json:"to"`
	Data  hexutil.Bytes   `json:"data"`
	Input hexutil.Bytes   `json:"input"`
}

func (api *API) ChainId() hexutil.Uint64 {
	n := api.node
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count("eth_chainId")
	return hexutil.Uint64(n.chainID)
}

func (api *API) Call(args CallArgs, block *string, overrides *json.RawMessage) (hexutil.Bytes, error) {
	n := api.node
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count("eth_call")
	if n.failCalls != nil {
		return nil, n.failCalls
	}
	if args.To == nil {
		return nil, errors.New("missing to")
	}
	data := args.Input
	if len(data) == 0 {
		data = args.Data
	}
	from := args.From
	if from != nil && *from == (common.Address{}) {
		from = nil
	}
	return n.execute(from, *args.To, data, false)
}

func (api *API) GetTransactionCount(addr common.Address, block *string) hexutil.Uint64 {
	n := api.node
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count("eth_getTransactionCount")
	return hexutil.Uint64(n.nonces[addr])
}

func (api *API) GetCode(addr common.Address, block *string) hexutil.Bytes {
	n := api.node
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count("eth_getCode")
	if _, ok := n.contracts[addr]; ok {
		return contractCode
	}
	return hexutil.Bytes{}
}

func (api *API) SendRawTransaction(raw hexutil.Bytes) (common.Hash, error) {
	n := api.node
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count("eth_sendRawTransaction")
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, fmt.Errorf("decode tx: %w", err)
	}
	return n.applyTx(tx)
}

func (api *API) GetTransactionReceipt(hash common.Hash) (*types.Receipt, error) {
	n := api.node
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count("eth_getTransactionReceipt")
	if n.holdRcpts {
		return nil, nil
	}
	return n.receipts[hash], nil
}

func revert(reason string) error {
	if reason == "" {
		return errors.New("execution reverted")
	}
	return errors.New("execution reverted: " + reason)
}

func selector(sig string) [4]byte {
	var s [4]byte
	copy(s[:], crypto.Keccak256([]byte(sig))[:4])
	return s
}

func boolWord(v bool) []byte {
	word := make([]byte, 32)
	if v {
		word[31] = 1
	}
	return word
}

func uintWord(v uint8) []byte {
	word := make([]byte, 32)
	word[31] = v
	return word
}
