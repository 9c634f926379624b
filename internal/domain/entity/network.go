package entity

// NetworkDefinition holds the configuration for a specific blockchain network.
// This structure is defined at the domain level to be used across application and infrastructure layers.
type NetworkDefinition struct {
	ChainID          uint64   `json:"chainId" yaml:"chainId"`
	Name             string   `json:"name" yaml:"name"`
	Identifier       string   `json:"identifier" yaml:"identifier"` // e.g. "ethereum", "sepolia"
	NativeSymbol     string   `json:"nativeSymbol" yaml:"nativeSymbol"`
	Decimals         uint8    `json:"decimals" yaml:"decimals"` // native token decimals
	BlockExplorerURL string   `json:"blockExplorerUrl,omitempty" yaml:"blockExplorerUrl,omitempty"`
	HistoryAPIURL    string   `json:"historyApiUrl,omitempty" yaml:"historyApiUrl,omitempty"` // Etherscan-compatible API
}
