package domain

// Network describes the single chain the minter operates on.
// Fields beyond ChainID are only used when the wallet must be told about the chain.
type Network struct {
	ChainID        uint64
	Name           string
	RPCURLs        []string
	ExplorerURLs   []string
	CurrencyName   string
	CurrencySymbol string
	Decimals       uint8
}

// NetworkContext pairs the wallet's active chain with the required target.
type NetworkContext struct {
	CurrentChainID uint64 `json:"current_chain_id"`
	TargetChainID  uint64 `json:"target_chain_id"`
	TargetName     string `json:"target_name"`
}

// Matches reports whether the wallet is on the target chain.
func (n NetworkContext) Matches() bool {
	return n.CurrentChainID == n.TargetChainID
}
