package types

import "fmt"

const (
	USDTERC20Contract = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
	USDTTRC20Contract = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
)

func decimals(d int32) *int32 { return &d }

var currencies = []Currency{
	{ID: 1, Code: "USD", Kind: KindFiat},
	{ID: 2, Code: "EUR", Kind: KindFiat},
	{ID: 3, Code: "RUB", Kind: KindFiat},
	{ID: 10, Code: "BTC", Kind: KindCrypto, Network: NetworkUTXO, Decimals: decimals(8)},
	{ID: 20, Code: "ETH", Kind: KindCrypto, Network: NetworkEVM, Decimals: decimals(18)},
	{ID: 21, Code: "USDT-ERC20", Kind: KindCrypto, Network: NetworkEVM, TokenContract: USDTERC20Contract, Decimals: decimals(6)},
	{ID: 30, Code: "TRX", Kind: KindCrypto, Network: NetworkResource, Decimals: decimals(6)},
	{ID: 31, Code: "USDT-TRC20", Kind: KindCrypto, Network: NetworkResource, TokenContract: USDTTRC20Contract, Decimals: decimals(6)},
	{ID: 40, Code: "TON", Kind: KindCrypto, Network: NetworkCell, Decimals: decimals(9)},
}

// Currencies returns a copy of the static registry.
func Currencies() []Currency {
	out := make([]Currency, len(currencies))
	copy(out, currencies)
	return out
}

// CurrencyByID looks a currency up in the static registry.
func CurrencyByID(id int) (Currency, error) {
	for _, c := range currencies {
		if c.ID == id {
			return c, nil
		}
	}
	return Currency{}, fmt.Errorf("unknown currency id %d", id)
}

// CurrencyByCode looks a currency up by its ticker code.
func CurrencyByCode(code string) (Currency, error) {
	for _, c := range currencies {
		if c.Code == code {
			return c, nil
		}
	}
	return Currency{}, fmt.Errorf("unknown currency code %q", code)
}
