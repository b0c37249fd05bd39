package core

import (
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Rorical/whitelist-dapp/internal/models"
	"github.com/Rorical/whitelist-dapp/internal/wallet"
)

// ErrWriteInFlight is returned when a join is requested while another one
// has not resolved yet.
var ErrWriteInFlight = errors.New("a whitelist transaction is already pending")

// WhitelistState is the cached mirror of the contract for one session. It is
// never authoritative: values only change after a successful query, and a
// failed query leaves the previous value in place.
type WhitelistState struct {
	mu          sync.RWMutex
	profile     string
	configured  bool
	contract    common.Address
	connected   bool
	account     common.Address
	network     wallet.Network
	whitelisted bool
	total       uint64
	max         uint64
	pending     bool
	busy        int
	lastTx      common.Hash
	lastError   error
	messages    []models.Message
}

func NewWhitelistState(profile string, configured bool, contract common.Address) *WhitelistState {
	return &WhitelistState{
		profile:    profile,
		configured: configured,
		contract:   contract,
		messages:   make([]models.Message, 0),
	}
}

func (ws *WhitelistState) SetConnected(account common.Address, network wallet.Network) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.connected = true
	ws.account = account
	ws.network = network
}

func (ws *WhitelistState) IsConnected() bool {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.connected
}

func (ws *WhitelistState) SetWhitelisted(whitelisted bool) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	// A pending write decides membership itself.
	if !ws.pending {
		ws.whitelisted = whitelisted
	}
}

func (ws *WhitelistState) SetTotal(total uint64) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.total = total
}

func (ws *WhitelistState) SetMax(max uint64) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.max = max
}

func (ws *WhitelistState) Max() uint64 {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.max
}

// BeginOp marks a read-side operation (connect, refresh) as running.
func (ws *WhitelistState) BeginOp() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.busy++
	ws.lastError = nil
}

func (ws *WhitelistState) EndOp() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.busy > 0 {
		ws.busy--
	}
}

// BeginWrite atomically claims the single write slot of the session.
func (ws *WhitelistState) BeginWrite() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.pending {
		return ErrWriteInFlight
	}
	ws.pending = true
	ws.lastError = nil
	ws.lastTx = common.Hash{}
	return nil
}

func (ws *WhitelistState) IsPending() bool {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.pending
}

func (ws *WhitelistState) SetLastTx(hash common.Hash) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.lastTx = hash
}

// FinishWriteJoined resolves the pending write as included.
func (ws *WhitelistState) FinishWriteJoined() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.pending = false
	ws.whitelisted = true
	ws.lastError = nil
}

// FinishWriteFailed resolves the pending write as failed; membership keeps
// its cached value.
func (ws *WhitelistState) FinishWriteFailed(err error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.pending = false
	ws.lastError = err
}

func (ws *WhitelistState) SetError(err error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.lastError = err
}

func (ws *WhitelistState) GetLastError() error {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.lastError
}

func (ws *WhitelistState) AddMessage(t models.MessageType, content string) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.messages = append(ws.messages, models.Message{
		Content: content,
		Type:    t,
		Time:    time.Now(),
	})
}

func (ws *WhitelistState) AddTxMessage(content string, hash common.Hash) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.messages = append(ws.messages, models.Message{
		Content: content,
		Type:    models.Tx,
		Time:    time.Now(),
		TxHash:  hash.Hex(),
	})
}

func (ws *WhitelistState) GetMessages() []models.Message {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	result := make([]models.Message, len(ws.messages))
	copy(result, ws.messages)
	return result
}

func (ws *WhitelistState) Snapshot() models.Snapshot {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	s := models.Snapshot{
		Profile:    ws.profile,
		Configured: ws.configured,
		Connected:  ws.connected,
		Joined:     ws.whitelisted,
		Pending:    ws.pending,
		Busy:       ws.busy > 0,
		Count:      ws.total,
		Max:        ws.max,
	}
	if ws.configured {
		s.Contract = ws.contract.Hex()
	}
	if ws.connected {
		s.Account = ws.account.Hex()
		s.Network = ws.network.String()
	}
	if ws.lastTx != (common.Hash{}) {
		s.LastTx = ws.lastTx.Hex()
	}
	return s
}
