package address

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// BTCAddress wraps a btcutil.Address to implement UTXOAddress.
type BTCAddress struct {
	addr btcutil.Address
}

// NewBTCAddress creates a BTCAddress from an address string.
func NewBTCAddress(addrStr string, params *chaincfg.Params) (*BTCAddress, error) {
	addr, err := btcutil.DecodeAddress(addrStr, params)
	if err != nil {
		return nil, err
	}
	if !addr.IsForNet(params) {
		return nil, fmt.Errorf("address %s is not for network %s", addrStr, params.Name)
	}
	return &BTCAddress{addr: addr}, nil
}

// NewBTCAddressFromPubKeyHash creates a BTCAddress from a pubkey hash.
func NewBTCAddressFromPubKeyHash(pubKeyHash []byte, segwit bool, params *chaincfg.Params) (*BTCAddress, error) {
	var addr btcutil.Address
	var err error
	if segwit {
		addr, err = btcutil.NewAddressWitnessPubKeyHash(pubKeyHash, params)
	} else {
		addr, err = btcutil.NewAddressPubKeyHash(pubKeyHash, params)
	}
	if err != nil {
		return nil, err
	}
	return &BTCAddress{addr: addr}, nil
}

// NewBTCAddressFromPubKey hashes a serialized public key into a P2WPKH or P2PKH address.
func NewBTCAddressFromPubKey(pubKey []byte, segwit bool, params *chaincfg.Params) (*BTCAddress, error) {
	return NewBTCAddressFromPubKeyHash(btcutil.Hash160(pubKey), segwit, params)
}

func (a *BTCAddress) String() string        { return a.addr.EncodeAddress() }
func (a *BTCAddress) ScriptAddress() []byte { return a.addr.ScriptAddress() }
func (a *BTCAddress) PayToAddrScript() ([]byte, error) {
	return txscript.PayToAddrScript(a.addr)
}

func (a *BTCAddress) IsSegwit() bool {
	switch a.addr.(type) {
	case *btcutil.AddressWitnessPubKeyHash, *btcutil.AddressWitnessScriptHash, *btcutil.AddressTaproot:
		return true
	default:
		return false
	}
}
