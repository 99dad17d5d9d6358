// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"errors"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/embercoin/emberd/chaincfg/chainhash"
	"github.com/embercoin/emberd/wire"
)

// testKey deterministically derives a private key for tests from the passed
// seed byte.
func testKey(seed byte) *secp256k1.PrivateKey {
	keyBytes := make([]byte, 32)
	keyBytes[31] = seed
	keyBytes[0] = 0x01
	return secp256k1.PrivKeyFromBytes(keyBytes)
}

// spendingTx returns a transaction with a single input that references an
// arbitrary previous outpoint and a single output, suitable for exercising
// script verification.
func spendingTx() *wire.MsgTx {
	prevHash := chainhash.DoubleHashH([]byte("previous transaction"))
	tx := wire.NewMsgTx()
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prevHash, 0), nil))
	tx.AddTxOut(wire.NewTxOut(4000000000, nil))
	return tx
}

// TestSignAndVerifyP2PKH builds a pay-to-pubkey-hash output, signs a spend of
// it, and ensures the engine accepts the spend and rejects a spend signed by
// the wrong key.
func TestSignAndVerifyP2PKH(t *testing.T) {
	key := testKey(1)
	pubKey := key.PubKey().SerializeCompressed()
	pkScript, err := PayToPubKeyHashScriptForKey(pubKey)
	if err != nil {
		t.Fatalf("PayToPubKeyHashScriptForKey: %v", err)
	}

	tx := spendingTx()
	sigScript, err := SignatureScript(tx, 0, pkScript, SigHashAll, key, true)
	if err != nil {
		t.Fatalf("SignatureScript: %v", err)
	}
	tx.TxIn[0].SignatureScript = sigScript

	if !VerifyScript(sigScript, pkScript, tx, 0, nil) {
		t.Fatal("valid P2PKH spend rejected")
	}

	// A signature from a different key must fail, since the pubkey hash
	// does not match.
	wrongKey := testKey(2)
	badSigScript, err := SignatureScript(tx, 0, pkScript, SigHashAll, wrongKey, true)
	if err != nil {
		t.Fatalf("SignatureScript: %v", err)
	}
	if VerifyScript(badSigScript, pkScript, tx, 0, nil) {
		t.Fatal("P2PKH spend with wrong key accepted")
	}

	// Mutating the transaction after signing must invalidate the
	// signature since the signature hash commits to the outputs.
	mutated := tx.Copy()
	mutated.TxOut[0].Value++
	if VerifyScript(sigScript, pkScript, mutated, 0, nil) {
		t.Fatal("signature survived transaction mutation")
	}
}

// TestSignAndVerifyP2PK ensures a pay-to-pubkey output can be spent with a
// bare signature push.
func TestSignAndVerifyP2PK(t *testing.T) {
	key := testKey(3)
	pubKey := key.PubKey().SerializeCompressed()
	pkScript, err := PayToPubKeyScript(pubKey)
	if err != nil {
		t.Fatalf("PayToPubKeyScript: %v", err)
	}

	tx := spendingTx()
	sig, err := RawTxInSignature(tx, 0, pkScript, SigHashAll, key)
	if err != nil {
		t.Fatalf("RawTxInSignature: %v", err)
	}
	sigScript, err := NewScriptBuilder().AddData(sig).Script()
	if err != nil {
		t.Fatalf("Script: %v", err)
	}

	if !VerifyScript(sigScript, pkScript, tx, 0, nil) {
		t.Fatal("valid P2PK spend rejected")
	}
}

// TestSignAndVerifyMultiSig builds a 2-of-3 multisig output and ensures two
// distinct keys satisfy it, two signatures by the same key do not, and the
// dummy element is consumed.
func TestSignAndVerifyMultiSig(t *testing.T) {
	key1, key2, key3 := testKey(10), testKey(11), testKey(12)
	pk1 := key1.PubKey().SerializeCompressed()
	pk2 := key2.PubKey().SerializeCompressed()
	pk3 := key3.PubKey().SerializeCompressed()

	pkScript, err := MultiSigScript(2, pk1, pk2, pk3)
	if err != nil {
		t.Fatalf("MultiSigScript: %v", err)
	}

	tx := spendingTx()
	sign := func(key *secp256k1.PrivateKey) []byte {
		sig, err := RawTxInSignature(tx, 0, pkScript, SigHashAll, key)
		if err != nil {
			t.Fatalf("RawTxInSignature: %v", err)
		}
		return sig
	}

	// Any two of the three keys work, in key order, with the leading
	// dummy push.
	combos := [][2]*secp256k1.PrivateKey{
		{key1, key2}, {key1, key3}, {key2, key3},
	}
	for i, combo := range combos {
		sigScript, err := NewScriptBuilder().AddOp(OP_0).
			AddData(sign(combo[0])).AddData(sign(combo[1])).Script()
		if err != nil {
			t.Fatalf("Script: %v", err)
		}
		if !VerifyScript(sigScript, pkScript, tx, 0, nil) {
			t.Fatalf("combo #%d: valid 2-of-3 spend rejected", i)
		}
	}

	// Two signatures by the same key must not satisfy two slots.
	dupSig := sign(key2)
	sigScript, err := NewScriptBuilder().AddOp(OP_0).
		AddData(dupSig).AddData(dupSig).Script()
	if err != nil {
		t.Fatalf("Script: %v", err)
	}
	if VerifyScript(sigScript, pkScript, tx, 0, nil) {
		t.Fatal("duplicate-key 2-of-3 spend accepted")
	}

	// A single signature is not enough.
	sigScript, err = NewScriptBuilder().AddOp(OP_0).AddData(sign(key1)).Script()
	if err != nil {
		t.Fatalf("Script: %v", err)
	}
	if VerifyScript(sigScript, pkScript, tx, 0, nil) {
		t.Fatal("1 signature satisfied a 2-of-3 output")
	}

	// Omitting the dummy element must fail with a stack underflow.
	vm, err := NewEngine([]byte{}, []byte{OP_0, OP_0, OP_CHECKMULTISIG}, tx, 0, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := vm.Execute(); !errors.Is(err, ErrStackUnderflow) {
		t.Fatalf("missing dummy: unexpected error %v", err)
	}
}

// TestSignAndVerifyP2SH ensures a pay-to-script-hash output redeems with the
// committed script and that a redeem script whose hash does not match is
// rejected.
func TestSignAndVerifyP2SH(t *testing.T) {
	key := testKey(20)
	pk := key.PubKey().SerializeCompressed()

	redeemScript, err := MultiSigScript(1, pk)
	if err != nil {
		t.Fatalf("MultiSigScript: %v", err)
	}
	pkScript, err := PayToScriptHashScript(redeemScript)
	if err != nil {
		t.Fatalf("PayToScriptHashScript: %v", err)
	}

	tx := spendingTx()

	// Signatures inside a P2SH spend commit to the redeem script.
	sig, err := RawTxInSignature(tx, 0, redeemScript, SigHashAll, key)
	if err != nil {
		t.Fatalf("RawTxInSignature: %v", err)
	}
	sigScript, err := NewScriptBuilder().AddOp(OP_0).AddData(sig).
		AddData(redeemScript).Script()
	if err != nil {
		t.Fatalf("Script: %v", err)
	}

	if !VerifyScript(sigScript, pkScript, tx, 0, nil) {
		t.Fatal("valid P2SH spend rejected")
	}

	// Using a different redeem script with the same shape must fail the
	// hash comparison.
	otherRedeem, err := MultiSigScript(1, testKey(21).PubKey().SerializeCompressed())
	if err != nil {
		t.Fatalf("MultiSigScript: %v", err)
	}
	badSigScript, err := NewScriptBuilder().AddOp(OP_0).AddData(sig).
		AddData(otherRedeem).Script()
	if err != nil {
		t.Fatalf("Script: %v", err)
	}
	if VerifyScript(badSigScript, pkScript, tx, 0, nil) {
		t.Fatal("P2SH spend with mismatched redeem script accepted")
	}
}

// TestEngineErrors exercises the distinct failure kinds of the interpreter.
func TestEngineErrors(t *testing.T) {
	tx := spendingTx()

	tests := []struct {
		name         string
		scriptSig    []byte
		scriptPubKey []byte
		wantErr      error
	}{{
		name:         "unknown opcode",
		scriptSig:    nil,
		scriptPubKey: []byte{0x50},
		wantErr:      ErrBadOpcode,
	}, {
		name:         "op_return executed",
		scriptSig:    nil,
		scriptPubKey: []byte{OP_RETURN},
		wantErr:      ErrBadOpcode,
	}, {
		name:         "dup underflow",
		scriptSig:    nil,
		scriptPubKey: []byte{OP_DUP},
		wantErr:      ErrStackUnderflow,
	}, {
		name:         "verify failed",
		scriptSig:    []byte{OP_0},
		scriptPubKey: []byte{OP_VERIFY},
		wantErr:      ErrVerifyFailed,
	}, {
		name:         "equalverify failed",
		scriptSig:    []byte{OP_1, OP_2},
		scriptPubKey: []byte{OP_EQUALVERIFY},
		wantErr:      ErrVerifyFailed,
	}, {
		name:         "empty final stack",
		scriptSig:    nil,
		scriptPubKey: nil,
		wantErr:      ErrEvalFalse,
	}, {
		name:         "false final stack",
		scriptSig:    []byte{OP_0},
		scriptPubKey: nil,
		wantErr:      ErrEvalFalse,
	}, {
		name:         "equal true",
		scriptSig:    []byte{OP_1, OP_1},
		scriptPubKey: []byte{OP_EQUAL},
		wantErr:      nil,
	}}

	for _, test := range tests {
		vm, err := NewEngine(test.scriptSig, test.scriptPubKey, tx, 0, nil)
		if err != nil {
			t.Errorf("%s: NewEngine: %v", test.name, err)
			continue
		}
		if err := vm.Execute(); !errors.Is(err, test.wantErr) {
			t.Errorf("%s: unexpected error - got %v, want %v",
				test.name, err, test.wantErr)
		}
	}
}

// TestEngineOpsLimit ensures scripts with more than the maximum number of
// non-push operations are rejected, and that data pushes do not count.
func TestEngineOpsLimit(t *testing.T) {
	tx := spendingTx()

	// MaxOpsPerScript OP_DUP operations on top of an initial push is fine.
	script := make([]byte, 0, MaxOpsPerScript+1)
	script = append(script, OP_1)
	for i := 0; i < MaxOpsPerScript; i++ {
		script = append(script, OP_DUP)
	}
	vm, err := NewEngine(nil, script, tx, 0, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := vm.Execute(); err != nil {
		t.Fatalf("Execute at op limit: %v", err)
	}

	// One more operation crosses the limit.
	script = append(script, OP_DUP)
	vm, err = NewEngine(nil, script, tx, 0, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := vm.Execute(); !errors.Is(err, ErrTooManyOperations) {
		t.Fatalf("Execute past op limit: unexpected error %v", err)
	}
}

// TestEngineStackLimit ensures execution fails once the stack exceeds the
// maximum number of items.
func TestEngineStackLimit(t *testing.T) {
	tx := spendingTx()

	// Push data tokens do not count against the operation limit, so a
	// script of MaxStackSize+1 pushes exercises the stack bound.
	script := make([]byte, 0, MaxStackSize+1)
	for i := 0; i < MaxStackSize+1; i++ {
		script = append(script, OP_1)
	}
	vm, err := NewEngine(nil, script, tx, 0, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := vm.Execute(); !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("unexpected error %v", err)
	}
}

// TestEngineInvalidIndex ensures engine creation rejects out of range input
// indices.
func TestEngineInvalidIndex(t *testing.T) {
	tx := spendingTx()
	_, err := NewEngine(nil, nil, tx, 1, nil)
	if !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("unexpected error %v", err)
	}
}

// TestEngineSigCache ensures a cached signature verifies on a second
// execution.
func TestEngineSigCache(t *testing.T) {
	key := testKey(30)
	pubKey := key.PubKey().SerializeCompressed()
	pkScript, err := PayToPubKeyHashScriptForKey(pubKey)
	if err != nil {
		t.Fatalf("PayToPubKeyHashScriptForKey: %v", err)
	}

	tx := spendingTx()
	sigScript, err := SignatureScript(tx, 0, pkScript, SigHashAll, key, true)
	if err != nil {
		t.Fatalf("SignatureScript: %v", err)
	}

	sigCache, err := NewSigCache(100)
	if err != nil {
		t.Fatalf("NewSigCache: %v", err)
	}

	for i := 0; i < 2; i++ {
		if !VerifyScript(sigScript, pkScript, tx, 0, sigCache) {
			t.Fatalf("pass %d: valid spend rejected", i)
		}
	}
}
