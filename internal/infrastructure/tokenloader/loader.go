package tokenloader

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"wallet_session/internal/app/port"
	"wallet_session/internal/domain/entity"
	"wallet_session/internal/pkg/utils"
)

const defaultTokenDirectoryPath = "data/tokens"

// TokenFileLoader implements the port.TokenProvider interface.
// Seed tokens for a network live in <dir>/<network identifier>.json.
type TokenFileLoader struct {
	tokenDirPath string
	logger       port.Logger
}

// NewTokenLoader creates a new TokenFileLoader reading from dir.
func NewTokenLoader(dir string, l port.Logger) port.TokenProvider {
	if dir == "" {
		dir = defaultTokenDirectoryPath
	}
	return &TokenFileLoader{
		tokenDirPath: dir,
		logger:       l,
	}
}

// GetTokensForNetwork reads the seed file of netDef and drops entries that are malformed,
// duplicated or declared for another chain. A missing file yields no tokens and no error.
func (l *TokenFileLoader) GetTokensForNetwork(netDef entity.NetworkDefinition) ([]entity.TokenInfo, error) {
	filePath := filepath.Join(l.tokenDirPath, strings.ToLower(netDef.Identifier)+".json")

	tokensInFile, err := utils.LoadTokensFromJSON(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.Info("No seed token file for network", "network", netDef.Identifier, "path", filePath)
			return []entity.TokenInfo{}, nil
		}
		return nil, fmt.Errorf("failed to load seed tokens for %s: %w", netDef.Identifier, err)
	}

	valid := make([]entity.TokenInfo, 0, len(tokensInFile))
	seen := make(map[string]struct{}, len(tokensInFile))
	for _, token := range tokensInFile {
		if token.ChainID != 0 && token.ChainID != netDef.ChainID {
			l.logger.Warn("Token has mismatched ChainID in file, skipping token.",
				"file", filePath, "token_symbol", token.Symbol, "token_address", token.Address,
				"token_chain_id", token.ChainID, "expected_chain_id", netDef.ChainID)
			continue
		}
		addr, err := entity.ParseAddress(token.Address)
		if err != nil {
			l.logger.Warn("Token has malformed address in file, skipping token.", "file", filePath, "error", err)
			continue
		}
		if _, dup := seen[addr.Hex()]; dup {
			l.logger.Warn("Token listed twice in file, skipping duplicate.", "file", filePath, "token_address", addr.Hex())
			continue
		}
		seen[addr.Hex()] = struct{}{}

		token.ChainID = netDef.ChainID
		token.Address = addr.Hex()
		valid = append(valid, token)
	}

	l.logger.Info("Loaded seed tokens", "network", netDef.Identifier, "file", filePath, "count", len(valid))
	return valid, nil
}
