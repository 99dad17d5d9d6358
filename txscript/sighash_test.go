// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"errors"
	"testing"

	"github.com/embercoin/emberd/chaincfg/chainhash"
	"github.com/embercoin/emberd/wire"
)

// multiInputTx returns a transaction with two inputs and two outputs for
// exercising the signature hash calculation.
func multiInputTx() *wire.MsgTx {
	prevHash1 := chainhash.DoubleHashH([]byte("prev tx 1"))
	prevHash2 := chainhash.DoubleHashH([]byte("prev tx 2"))
	tx := wire.NewMsgTx()
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prevHash1, 0), nil))
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prevHash2, 1), nil))
	tx.AddTxOut(wire.NewTxOut(100000000, []byte{OP_TRUE}))
	tx.AddTxOut(wire.NewTxOut(200000000, []byte{OP_TRUE}))
	return tx
}

// TestCalcSignatureHashTypes exercises the different hash type semantics.
func TestCalcSignatureHashTypes(t *testing.T) {
	scriptCode := []byte{OP_DUP}

	// Hashes for different hash types over the same transaction must all be
	// distinct since the committed data differs.
	tx := multiInputTx()
	seen := make(map[chainhash.Hash]SigHashType)
	for _, hashType := range []SigHashType{SigHashAll, SigHashNone,
		SigHashAll | SigHashAnyOneCanPay} {

		hash, err := CalcSignatureHash(scriptCode, hashType, tx, 0)
		if err != nil {
			t.Fatalf("CalcSignatureHash(%v): %v", hashType, err)
		}
		if prev, ok := seen[hash]; ok {
			t.Fatalf("hash types %v and %v produced the same digest",
				prev, hashType)
		}
		seen[hash] = hashType
	}

	// The digest must be deterministic.
	first, err := CalcSignatureHash(scriptCode, SigHashAll, tx, 0)
	if err != nil {
		t.Fatalf("CalcSignatureHash: %v", err)
	}
	second, err := CalcSignatureHash(scriptCode, SigHashAll, tx, 0)
	if err != nil {
		t.Fatalf("CalcSignatureHash: %v", err)
	}
	if first != second {
		t.Fatal("signature hash is not deterministic")
	}
}

// TestCalcSignatureHashAnyOneCanPay ensures the ANYONECANPAY flag removes the
// commitment to the other inputs.
func TestCalcSignatureHashAnyOneCanPay(t *testing.T) {
	scriptCode := []byte{OP_DUP}

	tx := multiInputTx()
	withFlag, err := CalcSignatureHash(scriptCode,
		SigHashAll|SigHashAnyOneCanPay, tx, 0)
	if err != nil {
		t.Fatalf("CalcSignatureHash: %v", err)
	}

	// Changing the second input does not affect the digest when only the
	// first input is committed to.
	mutated := tx.Copy()
	mutated.TxIn[1].Sequence = 7
	mutatedHash, err := CalcSignatureHash(scriptCode,
		SigHashAll|SigHashAnyOneCanPay, mutated, 0)
	if err != nil {
		t.Fatalf("CalcSignatureHash: %v", err)
	}
	if withFlag != mutatedHash {
		t.Fatal("ANYONECANPAY digest commits to other inputs")
	}

	// Without the flag the digest must change.
	without, err := CalcSignatureHash(scriptCode, SigHashAll, tx, 0)
	if err != nil {
		t.Fatalf("CalcSignatureHash: %v", err)
	}
	mutatedWithout, err := CalcSignatureHash(scriptCode, SigHashAll, mutated, 0)
	if err != nil {
		t.Fatalf("CalcSignatureHash: %v", err)
	}
	if without == mutatedWithout {
		t.Fatal("SigHashAll digest does not commit to other inputs")
	}
}

// TestCalcSignatureHashSingleBug ensures the historical behavior for
// SigHashSingle with an input index beyond the outputs: the fixed sentinel
// digest 0x00..01 is signed rather than an error being returned.
func TestCalcSignatureHashSingleBug(t *testing.T) {
	tx := multiInputTx()
	tx.TxOut = tx.TxOut[:1]

	hash, err := CalcSignatureHash(nil, SigHashSingle, tx, 1)
	if err != nil {
		t.Fatalf("CalcSignatureHash: %v", err)
	}

	want := chainhash.Hash{31: 0x01}
	if hash != want {
		t.Fatalf("unexpected digest - got %v, want %v", hash, want)
	}

	// An in-range index hashes normally.
	hash, err = CalcSignatureHash(nil, SigHashSingle, tx, 0)
	if err != nil {
		t.Fatalf("CalcSignatureHash: %v", err)
	}
	if hash == want {
		t.Fatal("in-range SigHashSingle returned the sentinel digest")
	}
}

// TestCalcSignatureHashSingleAnyOneCanPay ensures the combination of
// SigHashSingle and SigHashAnyOneCanPay at an input index beyond zero
// commits to the output at the input index, not the first output, even
// though the committed input set collapses to a single entry.
func TestCalcSignatureHashSingleAnyOneCanPay(t *testing.T) {
	const hashType = SigHashSingle | SigHashAnyOneCanPay
	scriptCode := []byte{OP_DUP}

	tx := multiInputTx()
	base, err := CalcSignatureHash(scriptCode, hashType, tx, 1)
	if err != nil {
		t.Fatalf("CalcSignatureHash: %v", err)
	}

	// Mutating the same-index output must change the digest.
	sameIdxOut := tx.Copy()
	sameIdxOut.TxOut[1].Value++
	mutated, err := CalcSignatureHash(scriptCode, hashType, sameIdxOut, 1)
	if err != nil {
		t.Fatalf("CalcSignatureHash: %v", err)
	}
	if base == mutated {
		t.Fatal("digest does not commit to the output at the input index")
	}

	// Mutating the first output must not, since only the output at the
	// input index is signed.
	firstOut := tx.Copy()
	firstOut.TxOut[0].Value++
	mutated, err = CalcSignatureHash(scriptCode, hashType, firstOut, 1)
	if err != nil {
		t.Fatalf("CalcSignatureHash: %v", err)
	}
	if base != mutated {
		t.Fatal("digest commits to the first output instead of the " +
			"output at the input index")
	}
}

// TestCalcSignatureHashErrors ensures invalid parameters are rejected.
func TestCalcSignatureHashErrors(t *testing.T) {
	tx := multiInputTx()

	// Out of range input index.
	_, err := CalcSignatureHash(nil, SigHashAll, tx, 2)
	if !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("unexpected error %v", err)
	}
	_, err = CalcSignatureHash(nil, SigHashAll, tx, -1)
	if !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("unexpected error %v", err)
	}

	// Unsupported base hash type.
	_, err = CalcSignatureHash(nil, 0x04, tx, 0)
	if !errors.Is(err, ErrInvalidSigHashType) {
		t.Errorf("unexpected error %v", err)
	}
}
