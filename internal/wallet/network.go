package wallet

import (
	"errors"
	"fmt"
)

// ErrUserRejected is returned when the user declines a connection or signing prompt.
var ErrUserRejected = errors.New("user rejected the request")

type Network struct {
	ChainID uint64
	Name    string
}

const DefaultChainID = 5

var knownNetworks = map[uint64]string{
	1:        "mainnet",
	5:        "goerli",
	17000:    "holesky",
	31337:    "hardhat",
	11155111: "sepolia",
}

// NetworkFor names a chain id, falling back to "chain <id>".
func NetworkFor(chainID uint64) Network {
	name, ok := knownNetworks[chainID]
	if !ok {
		name = fmt.Sprintf("chain %d", chainID)
	}
	return Network{ChainID: chainID, Name: name}
}

func (n Network) String() string {
	return fmt.Sprintf("%s (%d)", n.Name, n.ChainID)
}

// WrongNetworkError means the endpoint serves a chain other than the expected
// one. Nothing is read or written until the user switches.
type WrongNetworkError struct {
	Got  Network
	Want Network
}

func (e *WrongNetworkError) Error() string {
	return fmt.Sprintf("change network to %s: connected to %s", e.Want, e.Got)
}
