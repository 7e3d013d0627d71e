package stub

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"sbt-minter/internal/domain"
	"sbt-minter/internal/evm"
)

// Wallet implements evm.Wallet for testing.
// Script it through the exported fields before use; calls are recorded for assertions.
type Wallet struct {
	mu sync.Mutex

	ChainID    uint64
	SwitchErr  error
	Account    common.Address
	AccountErr error

	SubmitHash common.Hash
	SubmitErr  error

	ReceiptStatus uint64
	WaitErr       error

	// Hold, when set, blocks WaitForConfirmation until it is closed or ctx ends.
	Hold chan struct{}

	Submitted []evm.TxRequest
	Waited    []common.Hash
	Switches  []uint64
}

var _ evm.Wallet = (*Wallet)(nil)

// NewWallet creates a connected stub wallet on chainID whose submissions succeed.
func NewWallet(chainID uint64, account common.Address) *Wallet {
	return &Wallet{
		ChainID:       chainID,
		Account:       account,
		SubmitHash:    common.HexToHash("0x5e1f0a7c2c9b1b7d8e3a4f6c0d2e9b8a7c6d5e4f3a2b1c0d9e8f7a6b5c4d3e2f"),
		ReceiptStatus: 1,
	}
}

// ActiveNetwork returns the scripted chain id.
func (w *Wallet) ActiveNetwork(_ context.Context) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ChainID, nil
}

// SwitchNetwork records the request and moves to the target unless SwitchErr is set.
func (w *Wallet) SwitchNetwork(_ context.Context, target domain.Network) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Switches = append(w.Switches, target.ChainID)
	if w.SwitchErr != nil {
		return w.SwitchErr
	}
	w.ChainID = target.ChainID
	return nil
}

// ConnectedAddress returns the scripted account.
func (w *Wallet) ConnectedAddress(_ context.Context) (common.Address, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.AccountErr != nil {
		return common.Address{}, w.AccountErr
	}
	if w.Account == (common.Address{}) {
		return common.Address{}, domain.ErrWalletNotConnected
	}
	return w.Account, nil
}

// SubmitTransaction records tx and returns the scripted hash or error.
func (w *Wallet) SubmitTransaction(_ context.Context, tx evm.TxRequest) (common.Hash, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Submitted = append(w.Submitted, tx)
	if w.SubmitErr != nil {
		return common.Hash{}, w.SubmitErr
	}
	return w.SubmitHash, nil
}

// WaitForConfirmation returns a receipt with the scripted status.
func (w *Wallet) WaitForConfirmation(ctx context.Context, hash common.Hash) (*evm.Receipt, error) {
	w.mu.Lock()
	w.Waited = append(w.Waited, hash)
	hold := w.Hold
	w.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.WaitErr != nil {
		return nil, w.WaitErr
	}

	receipt := &evm.Receipt{TxHash: hash, BlockNumber: 1, Status: w.ReceiptStatus}
	if !receipt.Succeeded() {
		return receipt, &evm.RevertError{TxHash: hash.Hex()}
	}
	return receipt, nil
}

// SubmitCount returns how many transactions were submitted.
func (w *Wallet) SubmitCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.Submitted)
}

// Release unblocks a held WaitForConfirmation.
func (w *Wallet) Release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.Hold != nil {
		close(w.Hold)
		w.Hold = nil
	}
}
