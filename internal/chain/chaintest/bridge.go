package chaintest

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Rorical/whitelist-dapp/internal/chain"
)

// Bridge is a wallet bridge whose connections go to a Node in-process.
type Bridge struct {
	node    *Node
	account *chain.Account

	mu    sync.Mutex
	dials int
}

// NewBridge creates a bridge for a freshly generated account.
func (n *Node) NewBridge() *Bridge {
	key, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}
	return &Bridge{node: n, account: chain.NewAccount(key)}
}

func (b *Bridge) Account() *chain.Account { return b.account }
func (b *Bridge) Endpoint() string        { return "inproc://chaintest" }

func (b *Bridge) Dial(ctx context.Context) (chain.Caller, error) {
	b.mu.Lock()
	b.dials++
	b.mu.Unlock()
	return b.node.Client(), nil
}

func (b *Bridge) Dials() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dials
}
