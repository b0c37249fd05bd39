package whitelist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/Rorical/whitelist-dapp/contracts"
)

// Artifact is the subset of a hardhat compilation artifact the deployer needs.
type Artifact struct {
	ContractName string
	ABI          abi.ABI
	Bytecode     []byte
}

type artifactFile struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`
}

func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return ParseArtifact(data)
}

// EmbeddedArtifact returns the Whitelist build shipped with the binary.
func EmbeddedArtifact() (*Artifact, error) {
	art, err := newArtifact(name, []byte(contracts.WhitelistABI), contracts.WhitelistBin)
	if err != nil {
		return nil, fmt.Errorf("embedded %s: %w", name, err)
	}
	return art, nil
}

// ParseArtifact reads a hardhat artifact JSON file.
func ParseArtifact(data []byte) (*Artifact, error) {
	var f artifactFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return newArtifact(f.ContractName, f.ABI, f.Bytecode)
}

func newArtifact(contractName string, abiJSON []byte, bytecodeHex string) (*Artifact, error) {
	parsed, err := abi.JSON(bytes.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}

	code := strings.TrimSpace(bytecodeHex)
	if code == "" || code == "0x" {
		return nil, errors.New("artifact has no bytecode")
	}
	if !strings.HasPrefix(code, "0x") {
		code = "0x" + code
	}
	bytecode, err := hexutil.Decode(code)
	if err != nil {
		return nil, fmt.Errorf("decode bytecode: %w", err)
	}

	art := &Artifact{
		ContractName: contractName,
		ABI:          parsed,
		Bytecode:     bytecode,
	}
	if err := art.Validate(); err != nil {
		return nil, err
	}
	return art, nil
}

// Validate checks that the ABI exposes the surface this client calls.
func (a *Artifact) Validate() error {
	if a.ContractName != "" && a.ContractName != name {
		return fmt.Errorf("artifact is for %s, want %s", a.ContractName, name)
	}
	for _, fn := range []string{"whitelistedAddresses", "numAddressesWhitelisted", "maxWhitelistedAddresses", "addAddressToWhitelist"} {
		if _, ok := a.ABI.Methods[fn]; !ok {
			return fmt.Errorf("abi is missing %s", fn)
		}
	}
	if len(a.ABI.Constructor.Inputs) != 1 || a.ABI.Constructor.Inputs[0].Type.String() != "uint8" {
		return errors.New("abi constructor must take a single uint8")
	}
	return nil
}
