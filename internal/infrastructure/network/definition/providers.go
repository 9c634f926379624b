package networkdefinition

import (
	"fmt"
	"sort"
	"strings"

	"wallet_session/internal/app/port"
	"wallet_session/internal/domain/entity"
)

// etherscanV2API serves every chain below; the chain is selected with the chainid query parameter.
const etherscanV2API = "https://api.etherscan.io/v2/api"

// NetworkDefinitionProvider provides network definitions.
type NetworkDefinitionProvider struct {
	logger         port.Logger
	allNetworkDefs map[string]entity.NetworkDefinition
}

// Predefined network definitions
var ( //nolint:gochecknoglobals // Global for definitions
	Ethereum = entity.NetworkDefinition{
		ChainID:          1,
		Name:             "Ethereum Mainnet",
		Identifier:       "ethereum",
		NativeSymbol:     "ETH",
		Decimals:         18,
		BlockExplorerURL: "https://etherscan.io",
		HistoryAPIURL:    etherscanV2API,
	}
	Sepolia = entity.NetworkDefinition{
		ChainID:          11155111,
		Name:             "Sepolia Testnet",
		Identifier:       "sepolia",
		NativeSymbol:     "ETH",
		Decimals:         18,
		BlockExplorerURL: "https://sepolia.etherscan.io",
		HistoryAPIURL:    etherscanV2API,
	}
	BSC = entity.NetworkDefinition{
		ChainID:          56,
		Name:             "BNB Smart Chain",
		Identifier:       "bsc",
		NativeSymbol:     "BNB",
		Decimals:         18,
		BlockExplorerURL: "https://bscscan.com",
		HistoryAPIURL:    etherscanV2API,
	}
	Polygon = entity.NetworkDefinition{
		ChainID:          137,
		Name:             "Polygon PoS",
		Identifier:       "polygon",
		NativeSymbol:     "POL",
		Decimals:         18,
		BlockExplorerURL: "https://polygonscan.com",
		HistoryAPIURL:    etherscanV2API,
	}
	Arbitrum = entity.NetworkDefinition{
		ChainID:          42161,
		Name:             "Arbitrum One",
		Identifier:       "arbitrum",
		NativeSymbol:     "ETH",
		Decimals:         18,
		BlockExplorerURL: "https://arbiscan.io",
		HistoryAPIURL:    etherscanV2API,
	}
	Optimism = entity.NetworkDefinition{
		ChainID:          10,
		Name:             "OP Mainnet",
		Identifier:       "optimism",
		NativeSymbol:     "ETH",
		Decimals:         18,
		BlockExplorerURL: "https://optimistic.etherscan.io",
		HistoryAPIURL:    etherscanV2API,
	}
	Base = entity.NetworkDefinition{
		ChainID:          8453,
		Name:             "Base Mainnet",
		Identifier:       "base",
		NativeSymbol:     "ETH",
		Decimals:         18,
		BlockExplorerURL: "https://basescan.org",
		HistoryAPIURL:    etherscanV2API,
	}
)

var allKnownDefinitions = map[string]entity.NetworkDefinition{ //nolint:gochecknoglobals
	Ethereum.Identifier: Ethereum,
	Sepolia.Identifier:  Sepolia,
	BSC.Identifier:      BSC,
	Polygon.Identifier:  Polygon,
	Arbitrum.Identifier: Arbitrum,
	Optimism.Identifier: Optimism,
	Base.Identifier:     Base,
}

// NewNetworkDefinitionProvider creates a new NetworkDefinitionProvider over the built-in table.
func NewNetworkDefinitionProvider(log port.Logger) *NetworkDefinitionProvider {
	p := &NetworkDefinitionProvider{
		logger:         log,
		allNetworkDefs: make(map[string]entity.NetworkDefinition, len(allKnownDefinitions)),
	}
	for id, def := range allKnownDefinitions {
		p.allNetworkDefs[id] = def
	}
	p.logger.Debug(fmt.Sprintf("NetworkDefinitionProvider initialized with %d networks", len(p.allNetworkDefs)))
	return p
}

// GetAllNetworkDefinitions returns every known network ordered by chain ID.
func (p *NetworkDefinitionProvider) GetAllNetworkDefinitions() []entity.NetworkDefinition {
	if p == nil {
		return []entity.NetworkDefinition{}
	}
	defs := make([]entity.NetworkDefinition, 0, len(p.allNetworkDefs))
	for _, def := range p.allNetworkDefs {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ChainID < defs[j].ChainID })
	return defs
}

// GetNetworkDefinitionByName returns a specific network definition by its identifier (case-insensitive).
func (p *NetworkDefinitionProvider) GetNetworkDefinitionByName(identifier string) (entity.NetworkDefinition, bool) {
	if p == nil {
		return entity.NetworkDefinition{}, false
	}
	def, ok := p.allNetworkDefs[strings.ToLower(strings.TrimSpace(identifier))]
	return def, ok
}

// GetNetworkDefinitionByChainID returns a specific network definition by its chain ID.
func (p *NetworkDefinitionProvider) GetNetworkDefinitionByChainID(chainID uint64) (entity.NetworkDefinition, bool) {
	if p == nil {
		return entity.NetworkDefinition{}, false
	}
	for _, def := range p.allNetworkDefs {
		if def.ChainID == chainID {
			return def, true
		}
	}
	p.logger.Warn(fmt.Sprintf("Network with ChainID %d is not in the known definitions.", chainID))
	return entity.NetworkDefinition{}, false
}
