package btc

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/vultisig/txengine/internal/utxo"
	"github.com/vultisig/txengine/internal/utxo/address"
)

type prevTxFetcher interface {
	GetTransaction(ctx context.Context, txHash string) (*wire.MsgTx, error)
}

// SignerService signs transactions spending the sender's outputs with a single WIF key.
type SignerService struct {
	key    *btcutil.WIF
	from   address.UTXOAddress
	prevTx prevTxFetcher
}

func NewSignerService(key *btcutil.WIF, from address.UTXOAddress, prevTx prevTxFetcher) *SignerService {
	return &SignerService{
		key:    key,
		from:   from,
		prevTx: prevTx,
	}
}

// Sign wraps tx in a PSBT, attaches the previous output of every input,
// signs, finalizes and extracts the network-ready transaction.
// inputs must be in the same order as tx.TxIn.
func (s *SignerService) Sign(ctx context.Context, tx *wire.MsgTx, inputs []utxo.Utxo) (*wire.MsgTx, error) {
	if len(inputs) != len(tx.TxIn) {
		return nil, fmt.Errorf("inputs mismatch: %d utxos for %d tx inputs", len(inputs), len(tx.TxIn))
	}

	packet, err := psbt.NewFromUnsignedTx(tx)
	if err != nil {
		return nil, fmt.Errorf("failed to create psbt: %w", err)
	}

	fetcher, err := s.populateInputs(ctx, packet, inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to populate psbt inputs: %w", err)
	}

	updater, err := psbt.NewUpdater(packet)
	if err != nil {
		return nil, fmt.Errorf("failed to create psbt updater: %w", err)
	}

	sigHashes := txscript.NewTxSigHashes(packet.UnsignedTx, fetcher)
	pubKey := s.key.SerializePubKey()

	for i, txIn := range packet.UnsignedTx.TxIn {
		prevOut := fetcher.FetchPrevOutput(txIn.PreviousOutPoint)

		var sig []byte
		if s.from.IsSegwit() {
			sig, err = txscript.RawTxInWitnessSignature(
				packet.UnsignedTx, sigHashes, i, prevOut.Value, prevOut.PkScript, txscript.SigHashAll, s.key.PrivKey,
			)
		} else {
			sig, err = txscript.RawTxInSignature(
				packet.UnsignedTx, i, prevOut.PkScript, txscript.SigHashAll, s.key.PrivKey,
			)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to sign input %d: %w", i, err)
		}

		outcome, er := updater.Sign(i, sig, pubKey, nil, nil)
		if er != nil {
			return nil, fmt.Errorf("failed to attach signature to input %d: %w", i, er)
		}
		if outcome != psbt.SignSuccesful {
			return nil, fmt.Errorf("input %d not signed, outcome %d", i, outcome)
		}
	}

	err = psbt.MaybeFinalizeAll(packet)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize psbt: %w", err)
	}

	signed, err := psbt.Extract(packet)
	if err != nil {
		return nil, fmt.Errorf("failed to extract signed tx: %w", err)
	}
	return signed, nil
}

// populateInputs sets WitnessUtxo for segwit spends and NonWitnessUtxo for legacy
// spends, fetching each distinct previous transaction once.
func (s *SignerService) populateInputs(
	ctx context.Context,
	packet *psbt.Packet,
	inputs []utxo.Utxo,
) (*txscript.MultiPrevOutFetcher, error) {
	script, err := s.from.PayToAddrScript()
	if err != nil {
		return nil, fmt.Errorf("failed to create sender script: %w", err)
	}

	fetcher := txscript.NewMultiPrevOutFetcher(make(map[wire.OutPoint]*wire.TxOut, len(inputs)))
	prevTxs := make(map[string]*wire.MsgTx)

	for i, in := range inputs {
		outPoint := packet.UnsignedTx.TxIn[i].PreviousOutPoint

		if s.from.IsSegwit() {
			prevOut := wire.NewTxOut(int64(in.Value), script)
			packet.Inputs[i].WitnessUtxo = prevOut
			fetcher.AddPrevOut(outPoint, prevOut)
			continue
		}

		prev, ok := prevTxs[in.TxID]
		if !ok {
			prev, err = s.prevTx.GetTransaction(ctx, in.TxID)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch previous tx %s: %w", in.TxID, err)
			}
			prevTxs[in.TxID] = prev
		}
		if int(in.OutputIndex) >= len(prev.TxOut) {
			return nil, fmt.Errorf("previous tx %s has no output %d", in.TxID, in.OutputIndex)
		}

		packet.Inputs[i].NonWitnessUtxo = prev
		fetcher.AddPrevOut(outPoint, prev.TxOut[in.OutputIndex])
	}

	return fetcher, nil
}
