// Package wallet owns the connection between one UI session and the chain:
// it dials lazily, asks the user before connecting or signing, and refuses to
// hand out accessors while the endpoint is on the wrong network.
package wallet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Rorical/whitelist-dapp/internal/chain"
)

// Bridge is the source of the signing account and the RPC connection.
type Bridge interface {
	Account() *chain.Account
	Endpoint() string
	Dial(ctx context.Context) (chain.Caller, error)
}

// Confirmator asks the user to approve an action. It returns an error, not a
// refusal, when no answer could be obtained.
type Confirmator interface {
	RequestConfirmation(ctx context.Context, operation, detail string) (bool, error)
}

// Session is the read-capable accessor returned by a successful connect.
type Session struct {
	Client  *chain.Client
	Account common.Address
	Network Network
}

type Provider struct {
	bridge       Bridge
	confirmator  Confirmator
	expected     Network
	fees         chain.Fees
	pollInterval time.Duration

	mu     sync.Mutex
	client *chain.Client
}

type Option func(*Provider)

func WithFees(fees chain.Fees) Option {
	return func(p *Provider) { p.fees = fees }
}

func WithPollInterval(d time.Duration) Option {
	return func(p *Provider) { p.pollInterval = d }
}

func NewProvider(bridge Bridge, confirmator Confirmator, expectedChainID uint64, opts ...Option) *Provider {
	p := &Provider{
		bridge:       bridge,
		confirmator:  confirmator,
		expected:     NetworkFor(expectedChainID),
		fees:         chain.DefaultFees(),
		pollInterval: chain.DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Expected() Network {
	return p.expected
}

func (p *Provider) Account() common.Address {
	return p.bridge.Account().Address()
}

// Connected reports whether a connection has been established.
func (p *Provider) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client != nil
}

// Reader connects if needed and returns a read-only session.
func (p *Provider) Reader(ctx context.Context) (*Session, error) {
	client, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}
	return &Session{
		Client:  client,
		Account: p.Account(),
		Network: p.expected,
	}, nil
}

// Signer connects if needed and, after the user authorizes purpose, returns
// a transactor for the session account.
func (p *Provider) Signer(ctx context.Context, purpose string) (*chain.Transactor, error) {
	client, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}
	detail := fmt.Sprintf("%s from %s on %s", purpose, p.Account().Hex(), p.expected)
	approved, err := p.confirmator.RequestConfirmation(ctx, "Sign transaction", detail)
	if err != nil {
		return nil, err
	}
	if !approved {
		return nil, ErrUserRejected
	}
	return chain.NewTransactor(client, p.bridge.Account(), p.expected.ChainID, p.fees), nil
}

func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}

// Connect asks the user to approve the session and dials the endpoint. It
// does nothing once connected. The network is checked by Reader and Signer.
func (p *Provider) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.dial(ctx)
	return err
}

// dial must be called with mu held.
func (p *Provider) dial(ctx context.Context) (*chain.Client, error) {
	if p.client != nil {
		return p.client, nil
	}
	detail := fmt.Sprintf("%s to %s", p.Account().Hex(), p.bridge.Endpoint())
	approved, err := p.confirmator.RequestConfirmation(ctx, "Connect wallet", detail)
	if err != nil {
		return nil, err
	}
	if !approved {
		return nil, ErrUserRejected
	}
	caller, err := p.bridge.Dial(ctx)
	if err != nil {
		return nil, err
	}
	client := chain.NewClient(caller)
	client.PollInterval = p.pollInterval
	p.client = client
	return client, nil
}

// connect reuses the session connection and re-checks the network on every
// call, since the endpoint may have changed chains since the last one.
func (p *Provider) connect(ctx context.Context) (*chain.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.dial(ctx); err != nil {
		return nil, err
	}

	got, err := p.client.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	if got != p.expected.ChainID {
		return nil, &WrongNetworkError{Got: NetworkFor(got), Want: p.expected}
	}
	return p.client, nil
}
