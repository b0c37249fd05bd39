package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/google/uuid"

	"github.com/Rorical/whitelist-dapp/internal/chain"
	"github.com/Rorical/whitelist-dapp/internal/config"
	"github.com/Rorical/whitelist-dapp/internal/eventbus"
	"github.com/Rorical/whitelist-dapp/internal/models"
	"github.com/Rorical/whitelist-dapp/internal/wallet"
	"github.com/Rorical/whitelist-dapp/internal/whitelist"
)

// WhitelistService owns the wallet session and the cached whitelist state.
// It reacts to UI events and pushes snapshots back over the event bus.
type WhitelistService struct {
	config   *config.Config
	provider *wallet.Provider // nil when the profile is not configured
	state    *WhitelistState
	eventBus *eventbus.EventBus
	logger   *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	ops      sync.WaitGroup

	pushMutex     sync.Mutex
	lastSentCount int // how many messages the UI has already received

	pendingConfirms map[string]chan bool
	confirmMutex    sync.RWMutex
}

// NewWhitelistService creates a service even for an invalid profile, so the
// UI always has state to render. bridge may be nil in that case.
func NewWhitelistService(cfg *config.Config, bridge wallet.Bridge, eb *eventbus.EventBus, logger *slog.Logger, opts ...wallet.Option) *WhitelistService {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	configured := cfg.IsValid() && bridge != nil
	service := &WhitelistService{
		config:          cfg,
		state:           NewWhitelistState(cfg.ActiveProfile, configured, cfg.GetContractAddress()),
		eventBus:        eb,
		logger:          logger.With("component", "whitelist"),
		ctx:             ctx,
		cancel:          cancel,
		pendingConfirms: make(map[string]chan bool),
	}

	if configured {
		opts = append([]wallet.Option{wallet.WithFees(profileFees(cfg.Current()))}, opts...)
		service.provider = wallet.NewProvider(bridge, service, cfg.GetChainID(), opts...)
	}

	service.addWelcomeMessages()
	return service
}

func profileFees(p config.Profile) chain.Fees {
	fees := chain.DefaultFees()
	if p.GasFeeCap > 0 {
		fees.GasFeeCap = big.NewInt(p.GasFeeCap)
	}
	if p.GasTipCap > 0 {
		fees.GasTipCap = big.NewInt(p.GasTipCap)
	}
	return fees
}

// Start runs the core logic in a goroutine
func (ws *WhitelistService) Start() {
	// Send initial state to UI immediately
	ws.pushStateToUI()
	go ws.eventLoop()

	if ws.provider != nil && ws.config.ShouldAutoConnect() {
		ws.spawn(ws.connect)
	}
}

// Stop cancels in-flight operations, waits for them and closes the session.
func (ws *WhitelistService) Stop() {
	ws.cancel()
	ws.ops.Wait()
	if ws.provider != nil {
		if err := ws.provider.Close(); err != nil {
			ws.logger.Warn("close wallet session", "err", err)
		}
	}
}

func (ws *WhitelistService) State() *WhitelistState {
	return ws.state
}

func (ws *WhitelistService) eventLoop() {
	for {
		select {
		case <-ws.ctx.Done():
			return
		case event, ok := <-ws.eventBus.UIToCore():
			if !ok {
				return
			}
			ws.handleUIEvent(event)
		}
	}
}

func (ws *WhitelistService) handleUIEvent(event eventbus.UIEvent) {
	switch e := event.(type) {
	case eventbus.ConnectEvent:
		ws.spawn(ws.connect)
	case eventbus.RefreshEvent:
		ws.spawn(ws.refresh)
	case eventbus.JoinEvent:
		if !ws.state.IsConnected() {
			ws.state.AddMessage(models.Error, "Connect your wallet before joining")
			ws.pushStateToUI()
			return
		}
		// Claim the write slot before any goroutine starts, so a second key
		// press is refused even if the first join has not begun yet.
		if err := ws.state.BeginWrite(); err != nil {
			ws.logger.Info("join ignored", "err", err)
			ws.state.AddMessage(models.Error, err.Error())
			ws.pushStateToUI()
			return
		}
		ws.pushStateToUI()
		ws.spawn(ws.join)
	case eventbus.ConfirmationResponseEvent:
		ws.handleConfirmationResponse(e)
	}
}

// spawn runs op off the event loop so confirmations keep flowing while it
// waits on the network or the user.
func (ws *WhitelistService) spawn(op func()) {
	if ws.ctx.Err() != nil {
		return
	}
	ws.ops.Add(1)
	go func() {
		defer ws.ops.Done()
		op()
	}()
}

func (ws *WhitelistService) notConfigured() error {
	if err := ws.config.Validate(); err != nil {
		return fmt.Errorf("profile %q is not configured: %w", ws.config.ActiveProfile, err)
	}
	return errors.New("no wallet available for this profile")
}

func (ws *WhitelistService) connect() {
	if ws.provider == nil {
		ws.fail("connect", ws.notConfigured())
		return
	}

	ws.state.BeginOp()
	defer ws.finishOp()
	ws.pushStateToUI()

	// Waiting on the user shares the write budget; the read timeout only
	// bounds network calls.
	approveCtx, approveCancel := context.WithTimeout(ws.ctx, ws.config.WriteTimeout())
	defer approveCancel()
	if err := ws.provider.Connect(approveCtx); err != nil {
		ws.fail("connect", err)
		return
	}

	ctx, cancel := context.WithTimeout(ws.ctx, ws.config.ReadTimeout())
	defer cancel()

	session, err := ws.provider.Reader(ctx)
	if err != nil {
		ws.fail("connect", err)
		return
	}

	first := !ws.state.IsConnected()
	ws.state.SetConnected(session.Account, session.Network)
	if first {
		ws.logger.Info("wallet connected", "account", session.Account.Hex(), "network", session.Network.String())
		ws.state.AddMessage(models.Info, fmt.Sprintf("Connected %s on %s", session.Account.Hex(), session.Network))
	}
	ws.readWhitelist(ctx, session)
}

func (ws *WhitelistService) refresh() {
	if !ws.state.IsConnected() {
		ws.connect()
		return
	}

	ws.state.BeginOp()
	defer ws.finishOp()
	ws.pushStateToUI()

	ctx, cancel := context.WithTimeout(ws.ctx, ws.config.ReadTimeout())
	defer cancel()

	session, err := ws.provider.Reader(ctx)
	if err != nil {
		ws.fail("refresh", err)
		return
	}
	ws.readWhitelist(ctx, session)
}

// readWhitelist re-queries membership and count. Each value is only
// replaced on success.
func (ws *WhitelistService) readWhitelist(ctx context.Context, session *wallet.Session) {
	contract := whitelist.New(session.Client, ws.config.GetContractAddress())

	if ws.state.Max() == 0 {
		if limit, err := contract.MaxAddresses(ctx); err != nil {
			ws.logger.Warn("read max addresses", "err", err)
		} else {
			ws.state.SetMax(limit)
		}
	}

	joined, err := contract.IsWhitelisted(ctx, session.Account)
	if err != nil {
		ws.fail("read membership", err)
	} else {
		ws.state.SetWhitelisted(joined)
	}

	ws.refreshCount(ctx, contract)
}

func (ws *WhitelistService) refreshCount(ctx context.Context, contract *whitelist.Contract) {
	total, err := contract.Count(ctx)
	if err != nil {
		ws.fail("read count", err)
		return
	}
	ws.state.SetTotal(total)
	ws.logger.Debug("whitelist count", "count", total)
}

// join expects BeginWrite to have succeeded. It always resolves the write
// slot, either as joined or as failed.
func (ws *WhitelistService) join() {
	ctx, cancel := context.WithTimeout(ws.ctx, ws.config.WriteTimeout())
	defer cancel()

	if ws.provider == nil {
		ws.failWrite(ws.notConfigured())
		return
	}

	tx, err := ws.provider.Signer(ctx, "addAddressToWhitelist")
	if err != nil {
		ws.failWrite(err)
		return
	}

	contract := whitelist.New(tx.Client(), ws.config.GetContractAddress())
	hash, err := contract.AddSelf(ctx, tx)
	if err != nil {
		ws.failWrite(err)
		return
	}
	ws.logger.Info("join submitted", "tx", hash.Hex())
	ws.state.SetLastTx(hash)
	ws.state.AddTxMessage("Transaction sent, waiting for it to be mined", hash)
	ws.pushStateToUI()

	receipt, err := tx.Client().WaitMined(ctx, hash)
	if err != nil {
		ws.failWrite(err)
		return
	}

	ws.logger.Info("joined whitelist", "tx", hash.Hex(), "block", receipt.BlockNumber)
	ws.state.FinishWriteJoined()
	ws.state.AddTxMessage(fmt.Sprintf("Joined the whitelist in block %s", receipt.BlockNumber), hash)
	ws.pushStateToUI()

	readCtx, readCancel := context.WithTimeout(ws.ctx, ws.config.ReadTimeout())
	defer readCancel()
	ws.refreshCount(readCtx, contract)
	ws.pushStateToUI()
}

func (ws *WhitelistService) finishOp() {
	ws.state.EndOp()
	ws.pushStateToUI()
}

// fail records a non-write failure. Cached values stay as they were.
func (ws *WhitelistService) fail(op string, err error) {
	ws.logger.Error(op+" failed", "err", err, "kind", errorKind(err))
	ws.state.SetError(err)
	ws.state.AddMessage(models.Error, describeError(err))
	ws.pushStateToUI()
}

func (ws *WhitelistService) failWrite(err error) {
	ws.logger.Error("join failed", "err", err, "kind", errorKind(err))
	ws.state.FinishWriteFailed(err)
	ws.state.AddMessage(models.Error, describeError(err))
	ws.pushStateToUI()
}

func errorKind(err error) string {
	var wrong *wallet.WrongNetworkError
	var transient *chain.TransientNetworkError
	switch {
	case errors.As(err, &wrong):
		return "wrong_network"
	case errors.Is(err, wallet.ErrUserRejected):
		return "user_rejected"
	case errors.Is(err, chain.ErrReverted):
		return "reverted"
	case errors.Is(err, ErrWriteInFlight):
		return "write_in_flight"
	case errors.As(err, &transient):
		return "transient"
	default:
		return "other"
	}
}

func describeError(err error) string {
	var wrong *wallet.WrongNetworkError
	var reverted *chain.RevertedError
	switch {
	case errors.As(err, &wrong):
		return "Wrong network: " + wrong.Error()
	case errors.Is(err, wallet.ErrUserRejected):
		return "Request rejected in wallet"
	case errors.Is(err, context.DeadlineExceeded):
		return "Timed out: " + err.Error()
	case errors.As(err, &reverted):
		if reverted.Reason == "" {
			return "Transaction reverted"
		}
		return "Transaction reverted: " + reverted.Reason
	default:
		return "Error: " + err.Error()
	}
}

func (ws *WhitelistService) pushStateToUI() {
	ws.pushMutex.Lock()
	defer ws.pushMutex.Unlock()

	allMessages := ws.state.GetMessages()

	// Only send new messages to reduce resource usage
	newMessages := allMessages[ws.lastSentCount:]
	ws.lastSentCount = len(allMessages)

	if err := ws.eventBus.SendToUI(eventbus.StateUpdateEvent{
		Snapshot: ws.state.Snapshot(),
		Messages: newMessages,
		Error:    ws.state.GetLastError(),
	}); err != nil {
		ws.logger.Warn("send state to UI", "err", err)
	}
}

// GetInitialMessages returns the messages queued before the UI started.
func (ws *WhitelistService) GetInitialMessages() []models.Message {
	return ws.state.GetMessages()
}

func (ws *WhitelistService) addWelcomeMessages() {
	cfg := ws.config
	ws.state.AddMessage(models.Program, "-- WHITELIST --")

	if ws.provider != nil {
		ws.state.AddMessage(models.Program, fmt.Sprintf("Active Profile: %s [OK]", cfg.ActiveProfile))
		ws.state.AddMessage(models.Program, fmt.Sprintf("Contract: %s on %s", cfg.GetContractAddress().Hex(), wallet.NetworkFor(cfg.GetChainID())))
		ws.state.AddMessage(models.Program, "Keys: c connect, enter join, r refresh")
	} else {
		ws.state.AddMessage(models.Program, fmt.Sprintf("Active Profile: %s [NOT CONFIGURED]", cfg.ActiveProfile))
		ws.state.AddMessage(models.Program, "Configure your profile to connect:")
		ws.state.AddMessage(models.Program, "• Run: whitelist profile add <name>")
		ws.state.AddMessage(models.Program, "• Or edit: ~/.whitelist/config.json")
	}

	ws.state.AddMessage(models.Program, "Controls: Ctrl+C or 'q' to exit")
}

// RequestConfirmation implements wallet.Confirmator: the UI plays the part of
// the wallet popup. If ctx ends first the prompt is withdrawn and the expiry
// is reported as a transient error, never as a refusal.
func (ws *WhitelistService) RequestConfirmation(ctx context.Context, operation, detail string) (bool, error) {
	id := uuid.NewString()

	responseChan := make(chan bool, 1)

	ws.confirmMutex.Lock()
	ws.pendingConfirms[id] = responseChan
	ws.confirmMutex.Unlock()

	defer func() {
		ws.confirmMutex.Lock()
		delete(ws.pendingConfirms, id)
		ws.confirmMutex.Unlock()
	}()

	request := eventbus.ConfirmationRequestEvent{
		ID:        id,
		Operation: operation,
		Detail:    detail,
	}
	if err := ws.eventBus.SendToUI(request); err != nil {
		ws.logger.Warn("send confirmation request", "err", err, "operation", operation)
		return false, fmt.Errorf("ask for %s approval: %w", operation, err)
	}

	select {
	case approved := <-responseChan:
		ws.logger.Info("confirmation answered", "operation", operation, "approved", approved)
		return approved, nil
	case <-ctx.Done():
		ws.withdrawConfirmation(id, operation)
		return false, &chain.TransientNetworkError{Op: "wait for " + operation + " approval", Err: ctx.Err()}
	case <-ws.ctx.Done():
		return false, ws.ctx.Err()
	}
}

func (ws *WhitelistService) withdrawConfirmation(id, operation string) {
	ws.logger.Warn("confirmation expired", "operation", operation)
	if err := ws.eventBus.SendToUI(eventbus.ConfirmationCancelEvent{ID: id}); err != nil {
		ws.logger.Warn("withdraw confirmation request", "err", err, "operation", operation)
	}
}

// handleConfirmationResponse handles confirmation responses from the UI
func (ws *WhitelistService) handleConfirmationResponse(response eventbus.ConfirmationResponseEvent) {
	ws.confirmMutex.RLock()
	responseChan, exists := ws.pendingConfirms[response.ID]
	ws.confirmMutex.RUnlock()

	if exists {
		select {
		case responseChan <- response.Approved:
		default:
		}
	}
}
