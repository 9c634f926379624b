package entity

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ParseAddress parses a 0x-prefixed, 40 hex digit address in any letter case.
// The returned value prints in its EIP-55 checksummed form via Hex().
func ParseAddress(raw string) (common.Address, error) {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, errors.New("address must start with 0x")
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.New("address must have 40 hex digits")
	}
	return common.HexToAddress(s), nil
}
