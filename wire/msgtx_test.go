// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/embercoin/emberd/chaincfg/chainhash"
)

// coinbaseTx returns a minimal coinbase transaction: a single input with a
// null previous outpoint and empty signature script, and a single output
// paying the full subsidy to an empty script.
func coinbaseTx() *MsgTx {
	tx := NewMsgTx()
	tx.AddTxIn(&TxIn{
		PreviousOutPoint: OutPoint{
			Hash:  chainhash.Hash{},
			Index: MaxPrevOutIndex,
		},
		SignatureScript: []byte{},
		Sequence:        MaxTxInSequenceNum,
	})
	tx.AddTxOut(&TxOut{
		Value:    5000000000,
		PkScript: []byte{},
	})
	return tx
}

// coinbaseTxEncoded is the canonical serialization of the transaction
// returned by coinbaseTx.
var coinbaseTxEncoded = []byte{
	0x01, 0x00, 0x00, 0x00, // Version
	0x01, // Varint for number of input transactions
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // Previous output hash
	0xff, 0xff, 0xff, 0xff, // Previous output index
	0x00,                   // Varint for length of signature script
	0xff, 0xff, 0xff, 0xff, // Sequence
	0x01,                                           // Varint for number of output transactions
	0x00, 0xf2, 0x05, 0x2a, 0x01, 0x00, 0x00, 0x00, // Transaction amount
	0x00,                   // Varint for length of pk script
	0x00, 0x00, 0x00, 0x00, // Lock time
}

// coinbaseTxID is the expected transaction hash of the transaction returned
// by coinbaseTx, in internal byte order.
var coinbaseTxID = chainhash.Hash{
	0xeb, 0x12, 0x24, 0x2e, 0xe6, 0xd8, 0x07, 0xb6,
	0xe5, 0x42, 0x19, 0xb7, 0x71, 0x58, 0xed, 0xb4,
	0x62, 0x88, 0x86, 0x57, 0x13, 0x73, 0x68, 0x1c,
	0xef, 0x94, 0xd4, 0x57, 0x0a, 0x67, 0xd9, 0x12,
}

// TestTxSerialize tests MsgTx serialize and deserialize against the canonical
// coinbase encoding.
func TestTxSerialize(t *testing.T) {
	tx := coinbaseTx()

	// Serialize the transaction and compare against the canonical bytes.
	var buf bytes.Buffer
	err := tx.Serialize(&buf)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), coinbaseTxEncoded) {
		t.Fatalf("Serialize:\n got: %s want: %s",
			spew.Sdump(buf.Bytes()), spew.Sdump(coinbaseTxEncoded))
	}

	if got := tx.SerializeSize(); got != len(coinbaseTxEncoded) {
		t.Fatalf("SerializeSize: got %d, want %d", got,
			len(coinbaseTxEncoded))
	}

	// Deserialize the transaction and ensure it matches the original.
	var decoded MsgTx
	err = decoded.Deserialize(bytes.NewReader(coinbaseTxEncoded))
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !reflect.DeepEqual(&decoded, tx) {
		t.Fatalf("Deserialize:\n got: %s want: %s",
			spew.Sdump(&decoded), spew.Sdump(tx))
	}
}

// TestTxHash tests that the transaction identity is the double sha256 of the
// canonical serialization.
func TestTxHash(t *testing.T) {
	tx := coinbaseTx()

	// Hash identity is dsha256(serialize(tx)).
	wantHash := chainhash.DoubleHashH(coinbaseTxEncoded)
	if got := tx.TxHash(); got != wantHash {
		t.Errorf("TxHash: got %v, want %v", got, wantHash)
	}

	// The saved test vector pins the exact identity.
	if got := tx.TxHash(); got != coinbaseTxID {
		t.Errorf("TxHash: got %v, want %v", got, coinbaseTxID)
	}

	if !tx.IsCoinBase() {
		t.Error("IsCoinBase: coinbase transaction not detected")
	}
}

// TestTxFromBytesTrailing ensures deserializing a transaction with extra
// bytes after the final element fails with the trailing bytes error.
func TestTxFromBytesTrailing(t *testing.T) {
	encoded := make([]byte, 0, len(coinbaseTxEncoded)+1)
	encoded = append(encoded, coinbaseTxEncoded...)
	encoded = append(encoded, 0x00)

	var tx MsgTx
	err := tx.FromBytes(encoded)
	if !errors.Is(err, ErrTrailingBytes) {
		t.Fatalf("FromBytes: unexpected error %v", err)
	}

	// The exact encoding still decodes.
	err = tx.FromBytes(coinbaseTxEncoded)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
}

// TestTxTruncated ensures deserializing truncated transaction streams fails
// with the truncated stream error for every possible split point.
func TestTxTruncated(t *testing.T) {
	for i := 0; i < len(coinbaseTxEncoded); i++ {
		var tx MsgTx
		err := tx.Deserialize(bytes.NewReader(coinbaseTxEncoded[:i]))
		if !errors.Is(err, ErrTruncatedStream) {
			t.Fatalf("Deserialize with %d bytes: unexpected error %v",
				i, err)
		}
	}
}

// TestTxOverflowErrors ensures deserializing transactions which claim to have
// more inputs or outputs than fit in a message return the expected error.
func TestTxOverflowErrors(t *testing.T) {
	tests := [][]byte{
		// Transaction that claims to have ~uint64(0) inputs.
		{
			0x01, 0x00, 0x00, 0x00, // Version
			0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
			0xff, // Varint for number of input transactions
		},
		// Transaction that claims to have ~uint64(0) outputs.
		{
			0x01, 0x00, 0x00, 0x00, // Version
			0x00, // Varint for number of input transactions
			0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
			0xff, // Varint for number of output transactions
		},
	}

	for i, buf := range tests {
		var tx MsgTx
		err := tx.Deserialize(bytes.NewReader(buf))
		if !errors.Is(err, ErrVarIntOverflow) {
			t.Errorf("Deserialize #%d: unexpected error %v", i, err)
		}
	}
}

// TestTxCopy tests that copying a transaction yields a deep copy.
func TestTxCopy(t *testing.T) {
	tx := coinbaseTx()
	tx.TxIn[0].SignatureScript = []byte{0x51}
	tx.TxOut[0].PkScript = []byte{0x52}

	newTx := tx.Copy()
	if !reflect.DeepEqual(tx, newTx) {
		t.Fatalf("Copy:\n got: %s want: %s", spew.Sdump(newTx),
			spew.Sdump(tx))
	}

	// Mutating the copy must not affect the original.
	newTx.TxIn[0].SignatureScript[0] = 0x00
	if tx.TxIn[0].SignatureScript[0] != 0x51 {
		t.Fatal("Copy: signature script not deep copied")
	}
	newTx.TxOut[0].PkScript[0] = 0x00
	if tx.TxOut[0].PkScript[0] != 0x52 {
		t.Fatal("Copy: pk script not deep copied")
	}
}

// TestOutPoint exercises outpoint helpers.
func TestOutPoint(t *testing.T) {
	hash, err := chainhash.NewHashFromStr("01")
	if err != nil {
		t.Fatalf("NewHashFromStr: %v", err)
	}

	op := NewOutPoint(hash, 2)
	if op.IsNull() {
		t.Error("IsNull: non-null outpoint reported as null")
	}

	nullOp := OutPoint{Index: MaxPrevOutIndex}
	if !nullOp.IsNull() {
		t.Error("IsNull: null outpoint not detected")
	}

	// An all-zero hash with a non-max index is not the null outpoint.
	zeroIdx := OutPoint{Index: 0}
	if zeroIdx.IsNull() {
		t.Error("IsNull: zero-index outpoint reported as null")
	}
}
