package wallet

import (
	"context"

	"github.com/lmittmann/w3"

	"github.com/Rorical/whitelist-dapp/internal/chain"
)

// KeyBridge signs with a local key and talks to a JSON-RPC endpoint.
type KeyBridge struct {
	account *chain.Account
	rpcURL  string
}

func NewKeyBridge(account *chain.Account, rpcURL string) *KeyBridge {
	return &KeyBridge{account: account, rpcURL: rpcURL}
}

func (b *KeyBridge) Account() *chain.Account {
	return b.account
}

func (b *KeyBridge) Endpoint() string {
	return b.rpcURL
}

func (b *KeyBridge) Dial(ctx context.Context) (chain.Caller, error) {
	client, err := w3.Dial(b.rpcURL)
	if err != nil {
		return nil, &chain.TransientNetworkError{Op: "dial " + b.rpcURL, Err: err}
	}
	return client, nil
}
