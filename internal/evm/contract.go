package evm

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// DefaultABI is the soulbound token interface used when no ABI file is configured.
//
//go:embed abi/soulbound.json
var DefaultABI []byte

// Default contract method names.
const (
	DefaultMintMethod      = "mint"
	DefaultBatchMintMethod = "batchMint"
)

// Contract encodes calls to the fixed soulbound token contract and decodes its reverts.
type Contract struct {
	address     common.Address
	abi         abi.ABI
	mintMethod  string
	batchMethod string
}

// NewContract parses abiJSON and checks that the mint methods exist with the expected
// inputs: mintMethod(address) and batchMethod(address[]).
func NewContract(address common.Address, abiJSON []byte, mintMethod, batchMethod string) (*Contract, error) {
	if len(abiJSON) == 0 {
		abiJSON = DefaultABI
	}
	if mintMethod == "" {
		mintMethod = DefaultMintMethod
	}
	if batchMethod == "" {
		batchMethod = DefaultBatchMintMethod
	}

	parsed, err := abi.JSON(bytes.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %w", err)
	}

	if err := checkMethod(parsed, mintMethod, "address"); err != nil {
		return nil, err
	}
	if err := checkMethod(parsed, batchMethod, "address[]"); err != nil {
		return nil, err
	}

	return &Contract{
		address:     address,
		abi:         parsed,
		mintMethod:  mintMethod,
		batchMethod: batchMethod,
	}, nil
}

func checkMethod(parsed abi.ABI, name, inputType string) error {
	m, ok := parsed.Methods[name]
	if !ok {
		return fmt.Errorf("contract abi has no method %q", name)
	}
	if len(m.Inputs) != 1 || m.Inputs[0].Type.String() != inputType {
		return fmt.Errorf("contract method %q must take a single %s argument, has %s", name, inputType, m.Sig)
	}
	return nil
}

// Address returns the contract address.
func (c *Contract) Address() common.Address {
	return c.address
}

// PackMintTo encodes a mint-to-one call.
func (c *Contract) PackMintTo(to common.Address) ([]byte, error) {
	data, err := c.abi.Pack(c.mintMethod, to)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", c.mintMethod, err)
	}
	return data, nil
}

// PackMintBatch encodes a mint-to-many call.
func (c *Contract) PackMintBatch(recipients []common.Address) ([]byte, error) {
	data, err := c.abi.Pack(c.batchMethod, recipients)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", c.batchMethod, err)
	}
	return data, nil
}

// DecodeRevert turns ABI-encoded revert data into a readable reason.
// Handles Error(string), Panic(uint256) and the contract's custom errors.
// Returns "" when data cannot be decoded.
func (c *Contract) DecodeRevert(data []byte) string {
	if len(data) < 4 {
		return ""
	}

	if reason, err := abi.UnpackRevert(data); err == nil {
		return reason
	}

	for _, e := range c.abi.Errors {
		if !bytes.Equal(data[:4], e.ID[:4]) {
			continue
		}
		args, err := e.Inputs.Unpack(data[4:])
		if err != nil {
			return e.Name
		}
		return e.Name + "(" + formatArgs(args) + ")"
	}

	return ""
}

func formatArgs(args []interface{}) string {
	parts := make([]string, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case common.Address:
			parts[i] = v.Hex()
		case []byte:
			parts[i] = fmt.Sprintf("%#x", v)
		default:
			parts[i] = fmt.Sprintf("%v", v)
		}
	}
	return strings.Join(parts, ", ")
}
