package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// NetworkID identifies one of the supported transaction models.
type NetworkID string

const (
	NetworkUTXO     NetworkID = "UTXO"
	NetworkEVM      NetworkID = "EVM"
	NetworkResource NetworkID = "RESOURCE"
	NetworkCell     NetworkID = "CELL"
)

// Networks lists every NetworkID in registry order.
func Networks() []NetworkID {
	return []NetworkID{NetworkUTXO, NetworkEVM, NetworkResource, NetworkCell}
}

func (n NetworkID) String() string { return string(n) }

// Valid reports whether n is a member of the closed NetworkID set.
func (n NetworkID) Valid() bool {
	switch n {
	case NetworkUTXO, NetworkEVM, NetworkResource, NetworkCell:
		return true
	default:
		return false
	}
}

// DefaultDecimals returns the native subunit scale of the network.
func (n NetworkID) DefaultDecimals() int32 {
	switch n {
	case NetworkUTXO:
		return 8
	case NetworkEVM:
		return 18
	case NetworkResource:
		return 6
	case NetworkCell:
		return 9
	default:
		return 0
	}
}

type CurrencyKind string

const (
	KindFiat   CurrencyKind = "fiat"
	KindCrypto CurrencyKind = "crypto"
)

// Currency is an immutable registry entry. Network and Decimals are set iff Kind is crypto,
// TokenContract only for token currencies.
type Currency struct {
	ID            int
	Code          string
	Kind          CurrencyKind
	Network       NetworkID
	TokenContract string
	Decimals      *int32
}

func (c Currency) IsToken() bool { return c.TokenContract != "" }

// Scale returns the declared decimals, or the network default when absent.
func (c Currency) Scale() int32 {
	if c.Decimals != nil {
		return *c.Decimals
	}
	return c.Network.DefaultDecimals()
}

func (c Currency) String() string {
	if c.Code != "" {
		return c.Code
	}
	return fmt.Sprintf("currency#%d", c.ID)
}

// Validate checks the kind/network/decimals invariant.
func (c Currency) Validate() error {
	switch c.Kind {
	case KindFiat:
		if c.Network != "" || c.Decimals != nil || c.TokenContract != "" {
			return fmt.Errorf("fiat currency %s must not declare network metadata", c)
		}
	case KindCrypto:
		if c.Network == "" {
			return fmt.Errorf("crypto currency %s: %w", c, ErrMissingNetwork)
		}
		if !c.Network.Valid() {
			return fmt.Errorf("crypto currency %s: unknown network %q", c, c.Network)
		}
		if c.Decimals == nil {
			return fmt.Errorf("crypto currency %s must declare decimals", c)
		}
	default:
		return fmt.Errorf("currency %s: unknown kind %q", c, c.Kind)
	}
	return nil
}

// TxResult is produced once per successful send.
type TxResult struct {
	Currency   Currency `json:"currency"`
	TxHash     string   `json:"txHash"`
	SentAmount string   `json:"sentAmount"`
	Fee        string   `json:"fee"`
}

// TxReceipt is the normalized view of an on-chain transaction.
type TxReceipt struct {
	IsSuccess      bool            `json:"isSuccess"`
	Receiver       string          `json:"receiver,omitempty"`
	ReceivedAmount decimal.Decimal `json:"receivedAmount"`
}

// GeneratedAddress is a freshly derived key pair rendered for its network.
type GeneratedAddress struct {
	Address    string `json:"address"`
	PrivateKey string `json:"privateKey"`
}
