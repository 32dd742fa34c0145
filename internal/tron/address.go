package tron

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/fbsobreira/gotron-sdk/pkg/address"
)

// parseAddress decodes a base58check address and checks the 0x41 mainnet prefix.
func parseAddress(s string) (address.Address, error) {
	addr, err := address.Base58ToAddress(s)
	if err != nil {
		return nil, fmt.Errorf("invalid tron address %s: %w", s, err)
	}
	if len(addr) != address.AddressLength || addr[0] != address.TronBytePrefix {
		return nil, fmt.Errorf("invalid tron address %s: bad length or prefix", s)
	}
	return addr, nil
}

// fromEVMBytes turns a 20-byte EVM-style account into a base58 TRON address.
func fromEVMBytes(b []byte) string {
	if len(b) > 20 {
		b = b[len(b)-20:]
	}
	raw := make([]byte, 0, address.AddressLength)
	raw = append(raw, address.TronBytePrefix)
	raw = append(raw, make([]byte, 20-len(b))...)
	raw = append(raw, b...)
	return address.Address(raw).String()
}

// normalizeAddress returns base58 for either a base58 or a 41-prefixed hex address.
func normalizeAddress(s string) string {
	if len(s) == 2*address.AddressLength && strings.HasPrefix(s, "41") {
		b, err := hex.DecodeString(s)
		if err == nil {
			return address.Address(b).String()
		}
	}
	return s
}
