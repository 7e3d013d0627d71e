// Package minter turns mint intents into exactly one wallet transaction each
// and tracks the single live MintStatus.
// Flow: validate → wallet and network gates → Pending → submit → confirm → Success | Failed
package minter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"sbt-minter/internal/domain"
	"sbt-minter/internal/evm"
	"sbt-minter/internal/observability"
)

// Orchestrator coordinates mint submissions against one contract on one network.
// At most one submission is in flight; while it is, every submit call is refused.
type Orchestrator struct {
	wallet   evm.Wallet
	contract *evm.Contract
	network  domain.Network
	logger   logrus.FieldLogger
	now      func() time.Time

	mu     sync.Mutex
	busy   bool
	status domain.MintStatus
}

// Options for creating Orchestrator.
type Options struct {
	Wallet   evm.Wallet
	Contract *evm.Contract
	Network  domain.Network
	Logger   logrus.FieldLogger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Orchestrator{
		wallet:   opts.Wallet,
		contract: opts.Contract,
		network:  opts.Network,
		logger:   logger.WithField("component", "minter"),
		now:      time.Now,
		status:   domain.IdleStatus(),
	}
}

// submission is a validated intent ready to hand to the wallet.
type submission struct {
	id         string
	kind       domain.MintKind
	tx         evm.TxRequest
	recipients int
	startedAt  time.Time
}

// Status returns a snapshot of the live status.
func (o *Orchestrator) Status() domain.MintStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Busy reports whether submit controls should be disabled.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.busy
}

// ValidateAddress validates a single mint target.
func (o *Orchestrator) ValidateAddress(text string) (domain.Address, error) {
	return domain.ValidateAddress(text)
}

// ParseBatch splits raw batch text into address tokens.
func (o *Orchestrator) ParseBatch(text string) []string {
	return domain.ParseBatch(text)
}

// Network returns the wallet's chain alongside the target chain.
func (o *Orchestrator) Network(ctx context.Context) (domain.NetworkContext, error) {
	current, err := o.wallet.ActiveNetwork(ctx)
	if err != nil {
		return domain.NetworkContext{}, err
	}
	return domain.NetworkContext{
		CurrentChainID: current,
		TargetChainID:  o.network.ChainID,
		TargetName:     o.network.Name,
	}, nil
}

// CheckNetwork reports whether the wallet is on the target network.
func (o *Orchestrator) CheckNetwork(ctx context.Context) (bool, error) {
	nc, err := o.Network(ctx)
	if err != nil {
		return false, err
	}
	return nc.Matches(), nil
}

// RequestNetworkSwitch asks the wallet to move to the target network.
// When the wallet refuses, the returned *domain.NetworkSwitchError tells the user
// to switch manually.
func (o *Orchestrator) RequestNetworkSwitch(ctx context.Context) error {
	log := o.logger.WithField("chain_id", o.network.ChainID)

	if err := o.wallet.SwitchNetwork(ctx, o.network); err != nil {
		log.WithError(err).Warn("network switch refused")
		observability.RecordNetworkSwitch("failed")
		return &domain.NetworkSwitchError{Target: o.network, Err: err}
	}

	log.Info("wallet switched to target network")
	observability.RecordNetworkSwitch("ok")
	return nil
}

// SubmitSelf mints to the connected wallet address and waits for the outcome.
func (o *Orchestrator) SubmitSelf(ctx context.Context) (domain.MintStatus, error) {
	return o.Submit(ctx, domain.SelfIntent())
}

// SubmitSingle mints to one address and waits for the outcome.
func (o *Orchestrator) SubmitSingle(ctx context.Context, address string) (domain.MintStatus, error) {
	return o.Submit(ctx, domain.SingleIntent(address))
}

// SubmitBatch mints to every address in text as one transaction and waits for the outcome.
func (o *Orchestrator) SubmitBatch(ctx context.Context, text string) (domain.MintStatus, error) {
	return o.Submit(ctx, domain.BatchIntent(text))
}

// Submit runs one intent to a terminal status. The returned status is the
// terminal one, or the untouched live status when ErrMintInProgress is returned.
func (o *Orchestrator) Submit(ctx context.Context, intent domain.MintIntent) (domain.MintStatus, error) {
	sub, _, err := o.prepare(ctx, intent)
	if err != nil {
		return o.Status(), err
	}
	return o.execute(ctx, sub)
}

// SubmitAsync validates intent and moves the status to Pending before returning.
// The submission then completes in the background; its terminal status is sent on
// the returned channel, which is closed afterwards. Cancelling ctx abandons the wait
// and settles the submission as Failed.
func (o *Orchestrator) SubmitAsync(ctx context.Context, intent domain.MintIntent) (domain.MintStatus, <-chan domain.MintStatus, error) {
	sub, pending, err := o.prepare(ctx, intent)
	if err != nil {
		return o.Status(), nil, err
	}

	done := make(chan domain.MintStatus, 1)
	go func() {
		defer close(done)
		status, _ := o.execute(ctx, sub)
		done <- status
	}()

	return pending, done, nil
}

// prepare claims the single-flight gate, validates the intent and, on success,
// publishes the Pending status. On failure the gate is released and the status
// settles to Failed, except for ErrMintInProgress which changes nothing.
func (o *Orchestrator) prepare(ctx context.Context, intent domain.MintIntent) (*submission, domain.MintStatus, error) {
	if !intent.Kind.IsValid() {
		return nil, domain.MintStatus{}, fmt.Errorf("unknown mint kind %q", intent.Kind)
	}

	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return nil, domain.MintStatus{}, domain.ErrMintInProgress
	}
	o.busy = true
	o.mu.Unlock()

	id := uuid.NewString()
	log := o.logger.WithFields(logrus.Fields{"submission_id": id, "kind": intent.Kind})

	sub, err := o.build(ctx, id, intent)
	if err != nil {
		now := o.now()
		status := domain.MintStatus{
			SubmissionID: id,
			Kind:         intent.Kind,
			Phase:        domain.PhaseFailed,
			Reason:       FailureReason(err),
			StartedAt:    now,
			FinishedAt:   now,
		}

		o.mu.Lock()
		o.status = status
		o.busy = false
		o.mu.Unlock()

		log.WithError(err).Warn("mint rejected before submission")
		if label, ok := rejectionLabel(err); ok {
			observability.RecordValidationRejection(intent.Kind.String(), label)
		}
		return nil, status, err
	}

	pending := domain.MintStatus{
		SubmissionID: id,
		Kind:         intent.Kind,
		Phase:        domain.PhasePending,
		Recipients:   sub.recipients,
		StartedAt:    sub.startedAt,
	}

	o.mu.Lock()
	o.status = pending
	o.mu.Unlock()

	observability.SetMintInFlight(true)
	log.WithField("recipients", sub.recipients).Info("mint pending")
	return sub, pending, nil
}

// build runs every local and wallet-side precondition and encodes the call.
// Validation comes first so malformed input never costs a wallet round trip.
func (o *Orchestrator) build(ctx context.Context, id string, intent domain.MintIntent) (*submission, error) {
	recipients, err := intent.Recipients()
	if err != nil {
		return nil, err
	}

	from, err := o.wallet.ConnectedAddress(ctx)
	if err != nil {
		return nil, err
	}

	if intent.Kind == domain.MintKindSelf {
		if from == domain.ZeroAddress {
			return nil, &domain.ValidationError{Err: domain.ErrZeroAddress, Input: from.Hex()}
		}
		recipients = []domain.Address{from}
	}

	chainID, err := o.wallet.ActiveNetwork(ctx)
	if err != nil {
		return nil, fmt.Errorf("check network: %w", err)
	}
	if chainID != o.network.ChainID {
		observability.RecordNetworkMismatch()
		return nil, &domain.NetworkMismatchError{Current: chainID, Target: o.network}
	}

	var data []byte
	if intent.Kind == domain.MintKindBatch {
		data, err = o.contract.PackMintBatch(recipients)
	} else {
		data, err = o.contract.PackMintTo(recipients[0])
	}
	if err != nil {
		return nil, err
	}

	return &submission{
		id:         id,
		kind:       intent.Kind,
		tx:         evm.TxRequest{From: from, To: o.contract.Address(), Data: data},
		recipients: len(recipients),
		startedAt:  o.now(),
	}, nil
}

// execute sends the transaction and waits for its confirmation.
// It always settles the submission and releases the gate.
func (o *Orchestrator) execute(ctx context.Context, sub *submission) (domain.MintStatus, error) {
	log := o.logger.WithFields(logrus.Fields{"submission_id": sub.id, "kind": sub.kind})

	hash, err := o.wallet.SubmitTransaction(ctx, sub.tx)
	if err != nil {
		log.WithError(err).Warn("wallet refused transaction")
		return o.settle(sub, "", err)
	}

	observability.RecordMintSubmitted(sub.kind.String())
	log = log.WithField("tx_hash", hash.Hex())
	log.Info("transaction submitted, waiting for confirmation")

	o.mu.Lock()
	if o.status.SubmissionID == sub.id {
		o.status.TxHash = hash.Hex()
	}
	o.mu.Unlock()

	receipt, err := o.wallet.WaitForConfirmation(ctx, hash)
	if err != nil {
		log.WithError(err).Warn("transaction failed")
		return o.settle(sub, hash.Hex(), err)
	}

	txHash := hash.Hex()
	if receipt != nil && receipt.TxHash != (common.Hash{}) {
		txHash = receipt.TxHash.Hex()
	}
	log.Info("transaction confirmed")
	return o.settle(sub, txHash, nil)
}

// settle records the terminal phase and releases the single-flight gate.
func (o *Orchestrator) settle(sub *submission, txHash string, cause error) (domain.MintStatus, error) {
	finished := o.now()
	status := domain.MintStatus{
		SubmissionID: sub.id,
		Kind:         sub.kind,
		Phase:        domain.PhaseSuccess,
		TxHash:       txHash,
		Recipients:   sub.recipients,
		StartedAt:    sub.startedAt,
		FinishedAt:   finished,
	}

	var err error
	if cause != nil {
		status.Phase = domain.PhaseFailed
		status.Reason = FailureReason(cause)
		err = &domain.SubmissionError{Reason: status.Reason, Err: cause}
	}

	o.mu.Lock()
	if o.status.SubmissionID == sub.id {
		o.status = status
	}
	o.busy = false
	o.mu.Unlock()

	observability.SetMintInFlight(false)
	observability.RecordMintOutcome(sub.kind.String(), string(status.Phase),
		finished.Sub(sub.startedAt).Seconds(), finished.Unix())
	return status, err
}
