package address

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPubKeyHex = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"

func TestNewBTCAddressFromPubKey(t *testing.T) {
	pub, err := hex.DecodeString(testPubKeyHex)
	require.NoError(t, err)

	segwit, err := NewBTCAddressFromPubKey(pub, true, &chaincfg.MainNetParams)
	require.NoError(t, err)
	assert.Equal(t, "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", segwit.String())
	assert.True(t, segwit.IsSegwit())

	legacy, err := NewBTCAddressFromPubKey(pub, false, &chaincfg.MainNetParams)
	require.NoError(t, err)
	assert.Equal(t, "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH", legacy.String())
	assert.False(t, legacy.IsSegwit())
	assert.Equal(t, segwit.ScriptAddress(), legacy.ScriptAddress())
}

func TestDecodeRejectsOtherNetwork(t *testing.T) {
	_, err := Decode("bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", &chaincfg.TestNet3Params)
	require.Error(t, err)

	addr, err := Decode("bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", &chaincfg.MainNetParams)
	require.NoError(t, err)

	script, err := addr.PayToAddrScript()
	require.NoError(t, err)
	assert.Len(t, script, 22)
}
