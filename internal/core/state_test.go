package core

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rorical/whitelist-dapp/internal/models"
	"github.com/Rorical/whitelist-dapp/internal/wallet"
)

func connectedState() *WhitelistState {
	ws := NewWhitelistState("test", true, common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"))
	ws.SetConnected(common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"), wallet.NetworkFor(5))
	ws.SetTotal(3)
	return ws
}

func TestBeginWriteGuardsSingleWrite(t *testing.T) {
	ws := connectedState()

	require.NoError(t, ws.BeginWrite())
	assert.ErrorIs(t, ws.BeginWrite(), ErrWriteInFlight)
	assert.Equal(t, models.Pending, ws.Snapshot().Phase())

	ws.FinishWriteJoined()
	assert.Equal(t, models.Joined, ws.Snapshot().Phase())
	assert.NoError(t, ws.BeginWrite())
}

func TestFailedWriteReturnsToNotJoined(t *testing.T) {
	ws := connectedState()
	require.NoError(t, ws.BeginWrite())

	boom := errors.New("boom")
	ws.FinishWriteFailed(boom)

	s := ws.Snapshot()
	assert.Equal(t, models.NotJoined, s.Phase())
	assert.Equal(t, uint64(3), s.Count)
	assert.Equal(t, boom, ws.GetLastError())
}

func TestMembershipReadDoesNotOverridePendingWrite(t *testing.T) {
	ws := connectedState()
	require.NoError(t, ws.BeginWrite())

	ws.SetWhitelisted(true)
	assert.Equal(t, models.Pending, ws.Snapshot().Phase())

	ws.FinishWriteFailed(errors.New("reverted"))
	assert.Equal(t, models.NotJoined, ws.Snapshot().Phase())
}

func TestSnapshotFormatting(t *testing.T) {
	ws := connectedState()
	ws.SetLastTx(common.HexToHash("0x01"))
	ws.BeginOp()

	s := ws.Snapshot()
	assert.Equal(t, "goerli (5)", s.Network)
	assert.Equal(t, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", s.Account)
	assert.Equal(t, "0x5FbDB2315678afecb367f032d93F642f64180aa3", s.Contract)
	assert.True(t, s.Busy)
	assert.Equal(t, common.HexToHash("0x01").Hex(), s.LastTx)

	ws.EndOp()
	ws.EndOp()
	assert.False(t, ws.Snapshot().Busy)
}

func TestMessagesAreCopied(t *testing.T) {
	ws := NewWhitelistState("test", false, common.Address{})
	ws.AddMessage(models.Info, "hello")
	ws.AddTxMessage("sent", common.HexToHash("0x02"))

	msgs := ws.GetMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, models.Tx, msgs[1].Type)
	assert.Equal(t, common.HexToHash("0x02").Hex(), msgs[1].TxHash)

	msgs[0].Content = "changed"
	assert.Equal(t, "hello", ws.GetMessages()[0].Content)
	assert.Empty(t, ws.Snapshot().Contract)
}
