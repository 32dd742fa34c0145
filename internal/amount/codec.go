package amount

import (
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vultisig/txengine/internal/types"
)

// MaxSafeInteger is the largest integer a double represents exactly (2^53 - 1).
var MaxSafeInteger = big.NewInt(1<<53 - 1)

var (
	maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	maxInt64   = new(big.Int).SetInt64(math.MaxInt64)
	// TON coins are VarUInteger 16: at most 15 bytes of value.
	maxCoins = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 120), big.NewInt(1))
)

// Codec converts between human decimal amounts and integer subunits for one scale.
type Codec struct {
	Decimals int32
	// Strict rejects amounts with more fractional digits than Decimals
	// instead of truncating them.
	Strict bool
	// Max bounds the subunit value; nil means unbounded.
	Max *big.Int
}

// ForNetwork returns the codec for a network's native asset.
func ForNetwork(n types.NetworkID) Codec {
	switch n {
	case types.NetworkUTXO:
		return Codec{Decimals: 8, Strict: true, Max: MaxSafeInteger}
	case types.NetworkEVM:
		return Codec{Decimals: 18, Max: maxUint256}
	case types.NetworkResource:
		return Codec{Decimals: 6, Max: maxInt64}
	case types.NetworkCell:
		return Codec{Decimals: 9, Max: maxCoins}
	default:
		return Codec{Decimals: n.DefaultDecimals()}
	}
}

// ForCurrency returns the network codec rescaled to the currency's declared decimals.
func ForCurrency(c types.Currency) Codec {
	codec := ForNetwork(c.Network)
	codec.Decimals = c.Scale()
	if c.IsToken() {
		// token amounts are uint256 on both EVM and TRON
		codec.Max = maxUint256
	}
	return codec
}

// Parse reads an arbitrary-precision decimal string.
func Parse(s string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return decimal.Zero, types.InvalidAmount(s, "amount cannot be empty")
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, types.InvalidAmount(s, err.Error())
	}
	return d, nil
}

// FromFloat converts a double using its shortest exact decimal representation.
func FromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, types.InvalidAmount("non-finite float", "")
	}
	return decimal.NewFromFloat(f), nil
}

// FromBigInt treats b as a whole-unit integer.
func FromBigInt(b *big.Int) decimal.Decimal {
	if b == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(b, 0)
}

// Canonicalize normalizes a decimal string: no exponent, no trailing fractional zeros.
func Canonicalize(s string) (string, error) {
	d, err := Parse(s)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}

// ToSubunits converts a human amount to base units,
// e.g. "10" with 6 decimals -> 10000000.
// The fractional part is padded or cut as a string, never through float math.
func (c Codec) ToSubunits(v decimal.Decimal) (*big.Int, error) {
	str := v.String()
	if v.Sign() < 0 {
		return nil, types.InvalidAmount(str, "amount cannot be negative")
	}

	parts := strings.SplitN(str, ".", 2)
	whole := parts[0]
	frac := ""
	if len(parts) > 1 {
		frac = parts[1]
	}

	decimals := int(c.Decimals)
	if len(frac) > decimals {
		if c.Strict {
			return nil, types.PrecisionExceeded(str, c.Decimals)
		}
		frac = frac[:decimals]
	} else {
		frac += strings.Repeat("0", decimals-len(frac))
	}

	combined := strings.TrimLeft(whole+frac, "0")
	if combined == "" {
		combined = "0"
	}

	result, ok := new(big.Int).SetString(combined, 10)
	if !ok {
		return nil, types.InvalidAmount(str, "not a decimal number")
	}

	if c.Max != nil && result.Cmp(c.Max) > 0 {
		return nil, types.OutOfRange(str, c.Max.String())
	}
	return result, nil
}

// SendAmount is ToSubunits for an outgoing transfer: zero is rejected.
func (c Codec) SendAmount(v decimal.Decimal) (*big.Int, error) {
	sub, err := c.ToSubunits(v)
	if err != nil {
		return nil, err
	}
	if sub.Sign() == 0 {
		return nil, types.InvalidAmount(v.String(), "amount must be positive")
	}
	return sub, nil
}

// Format converts base units to a human-readable amount,
// e.g. 10000000 with 6 decimals -> "10".
func (c Codec) Format(amount *big.Int) string {
	return FromSubunits(amount, c.Decimals)
}

// Decimal is Format returning a decimal value.
func (c Codec) Decimal(amount *big.Int) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -c.Decimals)
}

// FromSubunits renders amount scaled down by decimals without trailing zeros.
func FromSubunits(amount *big.Int, decimals int32) string {
	if amount == nil {
		return "0"
	}

	str := amount.String()
	negative := false
	if strings.HasPrefix(str, "-") {
		negative = true
		str = str[1:]
	}

	d := int(decimals)
	if len(str) <= d {
		str = strings.Repeat("0", d-len(str)+1) + str
	}

	insertPos := len(str) - d
	whole := str[:insertPos]
	frac := strings.TrimRight(str[insertPos:], "0")

	result := whole
	if frac != "" {
		result = whole + "." + frac
	}
	if negative {
		result = "-" + result
	}
	return result
}
