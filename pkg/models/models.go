package models

import (
	"github.com/shopspring/decimal"
)

// SafeInfo is the snapshot the Safe Info Provider reports for the active Safe.
type SafeInfo struct {
	Address   string
	Threshold Optional[int]
	Owners    Optional[[]string]
	Loading   bool
}

// BalancesView holds the aggregate value of the active Safe in the selected currency.
//
// Currency is the ISO code FiatTotal is valued in. It lags the selected
// currency until re-pricing succeeds; empty means the selected currency.
type BalancesView struct {
	FiatTotal string
	Currency  string
}

// Chain is the subset of chain metadata the header needs.
type Chain struct {
	Name                     string `json:"name"`
	ShortName                string `json:"short_name"`
	ChainID                  int64  `json:"chain_id,omitempty"`
	BlockExplorerURITemplate string `json:"block_explorer_uri_template"`
}

// ShortNameSettings controls EIP-3770 style chain prefixes.
type ShortNameSettings struct {
	Copy bool `json:"copy"`
}

// Settings holds the user settings read by the header.
type Settings struct {
	ShortName ShortNameSettings `json:"short_name"`
}

// IconStatus distinguishes a loading icon from a rendered one.
type IconStatus string

const (
	IconLoading IconStatus = "loading"
	IconReady   IconStatus = "ready"
)

// IconState describes what the Safe icon should show. Only Ready carries data.
type IconState struct {
	Status     IconStatus    `json:"status" yaml:"status"`
	Address    string        `json:"address,omitempty" yaml:"address,omitempty"`
	Threshold  Optional[int] `json:"threshold" yaml:"threshold"`
	OwnerCount int           `json:"owner_count" yaml:"owner_count"`
}

func LoadingIcon() IconState {
	return IconState{Status: IconLoading}
}

func ReadyIcon(address string, threshold Optional[int], ownerCount int) IconState {
	return IconState{Status: IconReady, Address: address, Threshold: threshold, OwnerCount: ownerCount}
}

// Label is a header text that is either still loading or ready to display.
type Label struct {
	Loading bool   `json:"loading" yaml:"loading"`
	Text    string `json:"text" yaml:"text"`
}

func LoadingLabel() Label {
	return Label{Loading: true}
}

func TextLabel(text string) Label {
	return Label{Text: text}
}

// ExplorerLink points into a block explorer for an address.
type ExplorerLink struct {
	Href  string `json:"href" yaml:"href"`
	Title string `json:"title" yaml:"title"`
}

// SafeOnChain is what the Safe contract reports about itself.
type SafeOnChain struct {
	Address   string
	Threshold int
	Owners    []string
}

// Holdings are the balances of an address on one chain, in whole units.
type Holdings struct {
	Native decimal.Decimal
	Tokens map[string]decimal.Decimal // Key: Token Symbol
}

// ChainResult holds check results for a specific chain.
type ChainResult struct {
	Name            string      `json:"name"`
	ShortName       string      `json:"short_name"`
	ConfigChainID   int64       `json:"config_chain_id"`
	RPCs            []RPCResult `json:"rpcs"`
	Inconsistent    bool        `json:"inconsistent"`
	ChainIDUpdated  bool        `json:"chain_id_updated"`
	ObservedChainID int64       `json:"observed_chain_id,omitempty"`
}

// RPCResult holds check results for a specific RPC URL.
type RPCResult struct {
	URL     string `json:"url"`
	Status  string `json:"status"` // "ok" or "error"
	ChainID int64  `json:"chain_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// TestReport holds the results of the configuration check.
type TestReport struct {
	ConfigPath         string        `json:"config_path"`
	ValidStructure     bool          `json:"valid_structure"`
	StructureErrors    []string      `json:"structure_errors,omitempty"`
	Warnings           []string      `json:"warnings,omitempty"`
	SafeCount          int           `json:"safe_count"`
	ChainCount         int           `json:"chain_count"`
	Chains             []ChainResult `json:"chains,omitempty"`
	InconsistentChains []string      `json:"inconsistent_chains,omitempty"`
	ConfigUpdated      bool          `json:"config_updated"`
	SaveError          string        `json:"save_error,omitempty"`
	DryRun             bool          `json:"dry_run"`
}
