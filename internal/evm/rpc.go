package evm

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// RPCClient defines the Ethereum JSON-RPC surface the wallet transport needs.
type RPCClient interface {
	// ChainID returns the chain the endpoint is currently on.
	ChainID(ctx context.Context) (uint64, error)

	// Accounts returns the accounts exposed without prompting the user.
	Accounts(ctx context.Context) ([]common.Address, error)

	// RequestAccounts asks the wallet to connect and expose its accounts.
	RequestAccounts(ctx context.Context) ([]common.Address, error)

	// EstimateGas simulates a call and returns its gas requirement.
	EstimateGas(ctx context.Context, tx TxRequest) (uint64, error)

	// SendTransaction asks the wallet to sign and broadcast tx. Returns the tx hash.
	SendTransaction(ctx context.Context, tx TxRequest) (common.Hash, error)

	// GetTransactionReceipt returns nil without error while the tx is unmined.
	GetTransactionReceipt(ctx context.Context, hash common.Hash) (*Receipt, error)

	// GetTransactionByHash returns nil without error for unknown transactions.
	GetTransactionByHash(ctx context.Context, hash common.Hash) (*Transaction, error)

	// Call executes a read-only call at the given block ("latest" when blockNumber is nil).
	Call(ctx context.Context, tx TxRequest, blockNumber *uint64) ([]byte, error)

	// SwitchChain asks the wallet to change its active chain.
	SwitchChain(ctx context.Context, chainID uint64) error

	// AddChain registers a chain with the wallet.
	AddChain(ctx context.Context, params AddChainParams) error
}

// TxRequest is an unsigned call or transaction. The wallet fills nonce and fees.
type TxRequest struct {
	From common.Address
	To   common.Address
	Data []byte
	Gas  uint64 // 0 lets the wallet estimate
}

// Transaction is the subset of a mined or pending transaction the minter reads.
type Transaction struct {
	Hash        common.Hash
	From        common.Address
	To          *common.Address
	Input       []byte
	BlockNumber *uint64
}

// Receipt is the subset of a transaction receipt the minter reads.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	Status      uint64 // 1 success, 0 reverted
	GasUsed     uint64
	From        common.Address
	To          *common.Address
}

// Succeeded reports whether the transaction executed without reverting.
func (r *Receipt) Succeeded() bool {
	return r.Status == 1
}

// AddChainParams mirrors the wallet_addEthereumChain parameter object.
type AddChainParams struct {
	ChainID           uint64
	ChainName         string
	RPCURLs           []string
	BlockExplorerURLs []string
	CurrencyName      string
	CurrencySymbol    string
	Decimals          uint8
}
