package evm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"sbt-minter/internal/domain"
)

// DefaultPollInterval is how often receipts are polled while no head arrives.
const DefaultPollInterval = 2 * time.Second

// Wallet is the wallet/transport collaborator the mint orchestrator consumes.
// It does not sign anything itself; signing and broadcast belong to the endpoint.
type Wallet interface {
	// ActiveNetwork returns the chain id the wallet is currently on.
	ActiveNetwork(ctx context.Context) (uint64, error)

	// SwitchNetwork asks the wallet to move to the target network.
	SwitchNetwork(ctx context.Context, target domain.Network) error

	// ConnectedAddress returns the account transactions are sent from.
	ConnectedAddress(ctx context.Context) (common.Address, error)

	// SubmitTransaction sends one transaction and returns its hash.
	SubmitTransaction(ctx context.Context, tx TxRequest) (common.Hash, error)

	// WaitForConfirmation blocks until the transaction is mined or ctx ends.
	// A mined but reverted transaction returns its receipt and a *RevertError.
	WaitForConfirmation(ctx context.Context, hash common.Hash) (*Receipt, error)
}

// RevertDecoder turns ABI-encoded revert data into a readable reason.
type RevertDecoder func(data []byte) string

// RPCWallet implements Wallet over a JSON-RPC wallet endpoint.
type RPCWallet struct {
	rpc          RPCClient
	heads        HeadSubscriber
	decode       RevertDecoder
	pollInterval time.Duration
	logger       logrus.FieldLogger
}

// RPCWalletOptions configures RPCWallet.
type RPCWalletOptions struct {
	RPC          RPCClient
	Heads        HeadSubscriber // optional, wakes receipt polling on new blocks
	Decoder      RevertDecoder  // optional
	PollInterval time.Duration
	Logger       logrus.FieldLogger
}

// NewRPCWallet creates a wallet transport.
func NewRPCWallet(opts RPCWalletOptions) *RPCWallet {
	w := &RPCWallet{
		rpc:          opts.RPC,
		heads:        opts.Heads,
		decode:       opts.Decoder,
		pollInterval: opts.PollInterval,
		logger:       opts.Logger,
	}
	if w.pollInterval <= 0 {
		w.pollInterval = DefaultPollInterval
	}
	if w.logger == nil {
		w.logger = logrus.StandardLogger()
	}
	if w.decode == nil {
		w.decode = func([]byte) string { return "" }
	}
	return w
}

// ActiveNetwork returns the wallet's chain id.
func (w *RPCWallet) ActiveNetwork(ctx context.Context) (uint64, error) {
	id, err := w.rpc.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("get chain id: %w", err)
	}
	return id, nil
}

// SwitchNetwork asks the wallet to switch, registering the chain first if the
// wallet does not know it.
func (w *RPCWallet) SwitchNetwork(ctx context.Context, target domain.Network) error {
	err := w.rpc.SwitchChain(ctx, target.ChainID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrUnknownChain) {
		return fmt.Errorf("switch to chain %d: %w", target.ChainID, err)
	}

	w.logger.WithField("chain_id", target.ChainID).Info("chain unknown to wallet, adding it")
	if err := w.rpc.AddChain(ctx, AddChainParams{
		ChainID:           target.ChainID,
		ChainName:         target.Name,
		RPCURLs:           target.RPCURLs,
		BlockExplorerURLs: target.ExplorerURLs,
		CurrencyName:      target.CurrencyName,
		CurrencySymbol:    target.CurrencySymbol,
		Decimals:          target.Decimals,
	}); err != nil {
		return fmt.Errorf("add chain %d: %w", target.ChainID, err)
	}

	if err := w.rpc.SwitchChain(ctx, target.ChainID); err != nil {
		return fmt.Errorf("switch to chain %d: %w", target.ChainID, err)
	}
	return nil
}

// ConnectedAddress returns the first exposed account, asking the wallet to
// connect when none is exposed yet.
func (w *RPCWallet) ConnectedAddress(ctx context.Context) (common.Address, error) {
	accounts, err := w.rpc.Accounts(ctx)
	if err != nil {
		return common.Address{}, fmt.Errorf("get accounts: %w", err)
	}

	if len(accounts) == 0 {
		accounts, err = w.rpc.RequestAccounts(ctx)
		if err != nil {
			if errors.Is(err, ErrUserRejected) || errors.Is(err, ErrMethodNotSupported) {
				return common.Address{}, domain.ErrWalletNotConnected
			}
			return common.Address{}, fmt.Errorf("request accounts: %w", err)
		}
	}

	if len(accounts) == 0 {
		return common.Address{}, domain.ErrWalletNotConnected
	}
	return accounts[0], nil
}

// SubmitTransaction preflights tx with eth_estimateGas, so contract rejections
// surface before anything is broadcast, then sends it exactly once.
func (w *RPCWallet) SubmitTransaction(ctx context.Context, tx TxRequest) (common.Hash, error) {
	if tx.Gas == 0 {
		gas, err := w.rpc.EstimateGas(ctx, tx)
		if err != nil {
			return common.Hash{}, w.asRevert(err, "")
		}
		tx.Gas = gas
	}

	hash, err := w.rpc.SendTransaction(ctx, tx)
	if err != nil {
		return common.Hash{}, w.asRevert(err, "")
	}
	return hash, nil
}

// WaitForConfirmation polls for the receipt on every poll interval and every new head.
func (w *RPCWallet) WaitForConfirmation(ctx context.Context, hash common.Hash) (*Receipt, error) {
	log := w.logger.WithField("tx_hash", hash.Hex())

	var heads <-chan Head
	if w.heads != nil {
		ch, release, err := w.heads.SubscribeNewHeads(ctx)
		if err != nil {
			log.WithError(err).Warn("head subscription unavailable, polling only")
		} else {
			defer release()
			heads = ch
		}
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := w.rpc.GetTransactionReceipt(ctx, hash)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// The transaction is already broadcast. A failed read says nothing about its outcome.
			log.WithError(err).Warn("receipt poll failed, retrying")
		case receipt != nil:
			if receipt.Succeeded() {
				return receipt, nil
			}
			log.WithField("block", receipt.BlockNumber).Warn("transaction reverted")
			return receipt, w.revertReason(ctx, hash, receipt)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		case _, ok := <-heads:
			if !ok {
				heads = nil
			}
		}
	}
}

// revertReason replays a reverted transaction with eth_call at its block to
// recover the revert data the receipt does not carry.
func (w *RPCWallet) revertReason(ctx context.Context, hash common.Hash, receipt *Receipt) error {
	revert := &RevertError{TxHash: hash.Hex()}

	tx, err := w.rpc.GetTransactionByHash(ctx, hash)
	if err != nil || tx == nil || tx.To == nil {
		return revert
	}

	block := receipt.BlockNumber
	_, err = w.rpc.Call(ctx, TxRequest{From: tx.From, To: *tx.To, Data: tx.Input}, &block)
	if err == nil {
		// The replay succeeded, usually because state moved on. No reason to report.
		return revert
	}

	var replayed *RevertError
	if errors.As(w.asRevert(err, hash.Hex()), &replayed) {
		return replayed
	}
	return revert
}

// asRevert converts a JSON-RPC execution error into a *RevertError carrying the
// decoded reason. Other errors are returned unchanged.
func (w *RPCWallet) asRevert(err error, txHash string) error {
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		return err
	}

	if !rpcErr.IsRevert() {
		return err
	}

	data := rpcErr.RevertData()
	reason := w.decode(data)
	if reason == "" {
		reason = rpcErr.RevertMessage()
	}
	return &RevertError{TxHash: txHash, Reason: reason, Data: data}
}
