package domain

import (
	"strings"
	"time"
)

// MintKind identifies which mint action a status belongs to.
type MintKind string

const (
	MintKindSelf   MintKind = "self"
	MintKindSingle MintKind = "single"
	MintKindBatch  MintKind = "batch"
)

// String returns the string representation of MintKind.
func (k MintKind) String() string {
	return string(k)
}

// IsValid checks if the kind is a valid value.
func (k MintKind) IsValid() bool {
	return k == MintKindSelf || k == MintKindSingle || k == MintKindBatch
}

// Phase is the lifecycle position of a mint submission.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhasePending Phase = "pending"
	PhaseSuccess Phase = "success"
	PhaseFailed  Phase = "failed"
)

// IsTerminal reports whether no further transition is possible for the submission.
func (p Phase) IsTerminal() bool {
	return p == PhaseSuccess || p == PhaseFailed
}

// MintIntent is a user request to mint. It is consumed by exactly one submission.
type MintIntent struct {
	Kind MintKind
	Raw  string // address text for single, raw list for batch, unused for self
}

// SelfIntent mints to the connected wallet address.
func SelfIntent() MintIntent {
	return MintIntent{Kind: MintKindSelf}
}

// SingleIntent mints to one address given as text.
func SingleIntent(address string) MintIntent {
	return MintIntent{Kind: MintKindSingle, Raw: address}
}

// BatchIntent mints to every address in comma or newline separated text.
func BatchIntent(text string) MintIntent {
	return MintIntent{Kind: MintKindBatch, Raw: text}
}

// Recipients resolves the intent's targets. Self intents resolve to nothing here;
// their recipient is the connected account.
func (i MintIntent) Recipients() ([]Address, error) {
	switch i.Kind {
	case MintKindSingle:
		addr, err := ValidateAddress(strings.TrimSpace(i.Raw))
		if err != nil {
			return nil, err
		}
		return []Address{addr}, nil
	case MintKindBatch:
		return ValidateBatch(i.Raw)
	default:
		return nil, nil
	}
}

// MintStatus is the single live view of the most recent submission.
type MintStatus struct {
	SubmissionID string    `json:"submission_id,omitempty"`
	Kind         MintKind  `json:"kind"`
	Phase        Phase     `json:"phase"`
	TxHash       string    `json:"tx_hash,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	Recipients   int       `json:"recipients,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// IdleStatus is the status before any submission.
func IdleStatus() MintStatus {
	return MintStatus{Kind: MintKindSelf, Phase: PhaseIdle}
}
