package models

// Phase is what the whitelist page shows. It is derived, never stored by
// the core.
type Phase int

const (
	Disconnected Phase = iota
	NotJoined
	Pending
	Joined
)

func (p Phase) String() string {
	switch p {
	case NotJoined:
		return "connected, not joined"
	case Pending:
		return "pending"
	case Joined:
		return "joined"
	default:
		return "disconnected"
	}
}

// DerivePhase maps session presence, membership and the in-flight write flag
// onto a Phase.
func DerivePhase(connected, joined, pending bool) Phase {
	switch {
	case !connected:
		return Disconnected
	case pending:
		return Pending
	case joined:
		return Joined
	default:
		return NotJoined
	}
}

// Snapshot is the core's cached view of the session and the contract.
type Snapshot struct {
	Profile    string
	Configured bool
	Connected  bool
	Account    string
	Network    string
	Contract   string
	Joined     bool
	Pending    bool
	Busy       bool // a connect or refresh is in flight
	Count      uint64
	Max        uint64
	LastTx     string
}

func (s Snapshot) Phase() Phase {
	return DerivePhase(s.Connected, s.Joined, s.Pending)
}

// ConfirmationRequest represents a confirmation request (avoiding import cycle)
type ConfirmationRequest struct {
	ID        string
	Operation string
	Detail    string
}

// AppModel represents the UI state - only local UI concerns
type AppModel struct {
	Snapshot            Snapshot             // Last state pushed by core
	Activity            []Message            // Activity log
	Status              string               // Status bar text
	Loading             bool                 // Pending write or busy read
	LoadingDots         int                  // Animation counter for loading dots
	Width               int                  // Terminal width
	Height              int                  // Terminal height
	PendingConfirmation *ConfirmationRequest // Current confirmation request
}

func (m AppModel) Phase() Phase {
	return m.Snapshot.Phase()
}
