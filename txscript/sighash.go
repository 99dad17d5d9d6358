// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"encoding/binary"

	"github.com/embercoin/emberd/chaincfg/chainhash"
	"github.com/embercoin/emberd/wire"
)

// SigHashType represents hash type bits at the end of a signature.
type SigHashType byte

// Hash type bits from the end of a signature.
const (
	SigHashAll          SigHashType = 0x1
	SigHashNone         SigHashType = 0x2
	SigHashSingle       SigHashType = 0x3
	SigHashAnyOneCanPay SigHashType = 0x80

	// sigHashMask defines the number of bits of the hash type which are
	// used to identify which outputs are signed.
	sigHashMask = 0x1f
)

// singleInputSentinel is the signature hash produced for SigHashSingle when
// the input index references an output that does not exist.  Historically the
// reference implementation returned the constant 1 as the hash to sign in
// that situation rather than failing, and the behavior is consensus-critical,
// so it is retained here.
var singleInputSentinel = chainhash.Hash{31: 0x01}

// CalcSignatureHash computes the signature hash for the transaction input
// referenced by idx, committing to the passed script (the public key script
// of the output being spent, or the redeem script for a pay-to-script-hash
// spend) under the semantics selected by hashType.
//
// The calculation builds a modified copy of the transaction: every input
// script is cleared, the script of the input being signed is replaced with
// scriptCode, and the input and output sets are filtered per the base hash
// type before the copy is serialized and double hashed along with the
// 4-byte little-endian hash type.
func CalcSignatureHash(scriptCode []byte, hashType SigHashType, tx *wire.MsgTx, idx int) (chainhash.Hash, error) {
	if idx < 0 || idx >= len(tx.TxIn) {
		return chainhash.Hash{}, scriptError(ErrInvalidIndex,
			"input index %d references a non-existent input (%d inputs)",
			idx, len(tx.TxIn))
	}

	// The SigHashSingle hash type signs only the output at the same index
	// as the input.  When no such output exists, sign the sentinel value
	// instead of failing.
	if hashType&sigHashMask == SigHashSingle && idx >= len(tx.TxOut) {
		return singleInputSentinel, nil
	}

	// Build the input set.  With SigHashAnyOneCanPay only the input being
	// signed is committed to; otherwise every input is, with its script
	// cleared.  The output committed to by SigHashSingle is always the
	// one at the original input index, so it is captured before the
	// anyone-can-pay case collapses the input set down to a single entry.
	origIdx := idx
	txCopy := wire.MsgTx{
		Version:  tx.Version,
		LockTime: tx.LockTime,
	}
	anyoneCanPay := hashType&SigHashAnyOneCanPay != 0
	if anyoneCanPay {
		txCopy.TxIn = []*wire.TxIn{{
			PreviousOutPoint: tx.TxIn[idx].PreviousOutPoint,
			SignatureScript:  scriptCode,
			Sequence:         tx.TxIn[idx].Sequence,
		}}
		idx = 0
	} else {
		txCopy.TxIn = make([]*wire.TxIn, len(tx.TxIn))
		for i, txIn := range tx.TxIn {
			script := []byte(nil)
			if i == idx {
				script = scriptCode
			}
			txCopy.TxIn[i] = &wire.TxIn{
				PreviousOutPoint: txIn.PreviousOutPoint,
				SignatureScript:  script,
				Sequence:         txIn.Sequence,
			}
		}
	}

	// Build the output set per the base hash type.
	switch hashType & sigHashMask {
	case SigHashAll:
		txCopy.TxOut = tx.TxOut

	case SigHashNone:
		txCopy.TxOut = nil
		if !anyoneCanPay {
			for i := range txCopy.TxIn {
				if i != idx {
					txCopy.TxIn[i].Sequence = 0
				}
			}
		}

	case SigHashSingle:
		txCopy.TxOut = tx.TxOut[origIdx : origIdx+1]
		if !anyoneCanPay {
			for i := range txCopy.TxIn {
				if i != idx {
					txCopy.TxIn[i].Sequence = 0
				}
			}
		}

	default:
		return chainhash.Hash{}, scriptError(ErrInvalidSigHashType,
			"invalid hash type 0x%x", uint8(hashType))
	}

	// The final preimage is the serialized modified transaction followed
	// by the hash type encoded as a little-endian 32-bit value.
	buf := bytes.NewBuffer(make([]byte, 0, txCopy.SerializeSize()+4))
	_ = txCopy.Serialize(buf)
	var ht [4]byte
	binary.LittleEndian.PutUint32(ht[:], uint32(hashType))
	buf.Write(ht[:])

	return chainhash.DoubleHashH(buf.Bytes()), nil
}
