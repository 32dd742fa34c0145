package address

import (
	"github.com/btcsuite/btcd/chaincfg"
)

// UTXOAddress is a decoded address on a UTXO chain.
type UTXOAddress interface {
	// String returns the encoded address, e.g. "bc1q..." or "1...".
	String() string

	// ScriptAddress returns the raw 20-byte pubkey hash or script hash.
	ScriptAddress() []byte

	// PayToAddrScript generates the scriptPubKey for paying to this address.
	PayToAddrScript() ([]byte, error)

	// IsSegwit reports whether spends from this address carry witness data.
	IsSegwit() bool
}

// Decode parses addrStr and checks it belongs to params' network.
func Decode(addrStr string, params *chaincfg.Params) (UTXOAddress, error) {
	return NewBTCAddress(addrStr, params)
}
