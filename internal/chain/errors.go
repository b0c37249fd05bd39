package chain

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrReverted matches any *RevertedError with errors.Is.
var ErrReverted = errors.New("transaction reverted")

const revertMarker = "execution reverted"

// RevertedError is returned when the contract rejected a call or a mined
// transaction finished with a failed status.
type RevertedError struct {
	Reason string
	TxHash common.Hash
}

func (e *RevertedError) Error() string {
	msg := ErrReverted.Error()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.TxHash != (common.Hash{}) {
		msg += " (tx " + e.TxHash.Hex() + ")"
	}
	return msg
}

func (e *RevertedError) Is(target error) bool {
	return target == ErrReverted
}

// TransientNetworkError wraps a failure to reach or get an answer from the
// RPC endpoint. Callers keep their cached state and let the user retry.
type TransientNetworkError struct {
	Op  string
	Err error
}

func (e *TransientNetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransientNetworkError) Unwrap() error {
	return e.Err
}

// classify turns a raw RPC error into a *RevertedError when the node reported
// an execution revert, and a *TransientNetworkError otherwise.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var reverted *RevertedError
	if errors.As(err, &reverted) {
		return err
	}
	msg := err.Error()
	if idx := strings.Index(msg, revertMarker); idx >= 0 {
		reason := strings.TrimSpace(strings.TrimPrefix(msg[idx+len(revertMarker):], ":"))
		return &RevertedError{Reason: reason}
	}
	return &TransientNetworkError{Op: op, Err: err}
}
