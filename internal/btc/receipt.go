package btc

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/vultisig/txengine/internal/utxo/address"
)

// resolveReceiver returns the first positive output not paying back to one of senders.
// When every output pays a sender it falls back to the first positive output,
// which misreports self-sends; that is accepted.
func resolveReceiver(tx *wire.MsgTx, senders map[string]struct{}, params *chaincfg.Params) (*wire.TxOut, string) {
	var (
		fallback     *wire.TxOut
		fallbackAddr string
	)
	for _, out := range tx.TxOut {
		if out.Value <= 0 {
			continue
		}
		addr := outputAddress(out.PkScript, params)
		if fallback == nil {
			fallback, fallbackAddr = out, addr
		}
		if addr == "" {
			continue
		}
		if _, isSender := senders[addr]; !isSender {
			return out, addr
		}
	}
	return fallback, fallbackAddr
}

// senderAddresses merges the spent-output addresses reported by the indexer with
// the P2WPKH and P2PKH addresses recoverable from the inputs' public keys.
// The indexer list covers every script type; the recovered keys cover indexers
// that omit prevouts.
func senderAddresses(tx *wire.MsgTx, spent []string, params *chaincfg.Params) map[string]struct{} {
	senders := make(map[string]struct{}, len(spent))
	for _, addr := range spent {
		senders[addr] = struct{}{}
	}
	for _, in := range tx.TxIn {
		if len(in.Witness) == 2 && isPubKey(in.Witness[1]) {
			addr, err := address.NewBTCAddressFromPubKey(in.Witness[1], true, params)
			if err == nil {
				senders[addr.String()] = struct{}{}
			}
			continue
		}

		pushes, err := txscript.PushedData(in.SignatureScript)
		if err != nil || len(pushes) < 2 {
			continue
		}
		pub := pushes[len(pushes)-1]
		if !isPubKey(pub) {
			continue
		}
		addr, err := address.NewBTCAddressFromPubKey(pub, false, params)
		if err == nil {
			senders[addr.String()] = struct{}{}
		}
	}
	return senders
}

func isPubKey(b []byte) bool {
	_, err := btcec.ParsePubKey(b)
	return err == nil
}

func outputAddress(pkScript []byte, params *chaincfg.Params) string {
	_, addrs, _, err := txscript.ExtractPkScriptAddrs(pkScript, params)
	if err != nil || len(addrs) == 0 {
		return ""
	}
	return addrs[0].EncodeAddress()
}
