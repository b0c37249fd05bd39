// Package contracts ships the Whitelist contract: its Solidity source and the
// compiled creation bytecode and ABI the deployer uses by default.
package contracts

import _ "embed"

//go:embed Whitelist.bin
var WhitelistBin string

//go:embed Whitelist.abi
var WhitelistABI string
