// Copyright (c) 2016 The btcsuite developers
// Copyright (c) 2016-2020 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/embercoin/emberd/blockchain"
	"github.com/embercoin/emberd/chaincfg"
	"github.com/embercoin/emberd/txscript"
	"github.com/embercoin/emberd/wire"
)

// solveBlock iterates the nonce until the passed block satisfies its claimed
// difficulty.  The simulation network difficulty makes this fast.
func solveBlock(t *testing.T, block *wire.MsgBlock) {
	t.Helper()
	target := blockchain.CompactToBig(block.Header.Bits)
	for nonce := uint32(0); ; nonce++ {
		block.Header.Nonce = nonce
		hash := block.Header.BlockHash()
		if blockchain.HashToBig(&hash).Cmp(target) <= 0 {
			return
		}
	}
}

// testSetup returns a fresh simnet chain, a template generator for it, a
// mining key, and the matching pay-to-pubkey-hash script.
func testSetup(t *testing.T) (*blockchain.BlockChain, *BlkTmplGenerator, *secp256k1.PrivateKey, []byte) {
	t.Helper()

	params := &chaincfg.SimNetParams
	chain, err := blockchain.New(params, nil)
	if err != nil {
		t.Fatalf("blockchain.New: %v", err)
	}

	keyBytes := make([]byte, 32)
	keyBytes[0] = 0x03
	keyBytes[31] = 0x07
	key := secp256k1.PrivKeyFromBytes(keyBytes)
	script, err := txscript.PayToPubKeyHashScriptForKey(
		key.PubKey().SerializeCompressed())
	if err != nil {
		t.Fatalf("PayToPubKeyHashScriptForKey: %v", err)
	}

	return chain, NewBlkTmplGenerator(params, chain), key, script
}

// TestNewBlockTemplateEmpty ensures a template built over an empty mempool
// contains exactly a coinbase paying the subsidy and that, once solved, the
// chain accepts it.
func TestNewBlockTemplateEmpty(t *testing.T) {
	chain, generator, _, script := testSetup(t)
	params := &chaincfg.SimNetParams

	template, err := generator.NewBlockTemplate(script, 1)
	if err != nil {
		t.Fatalf("NewBlockTemplate: %v", err)
	}

	if len(template.Transactions) != 1 {
		t.Fatalf("template has %d transactions, want 1",
			len(template.Transactions))
	}
	coinbase := template.Transactions[0]
	if !coinbase.IsCoinBase() {
		t.Fatal("first template transaction is not a coinbase")
	}
	if coinbase.TxOut[0].Value != params.BaseSubsidy {
		t.Fatalf("coinbase pays %d, want %d", coinbase.TxOut[0].Value,
			params.BaseSubsidy)
	}
	if template.Header.PrevBlock != *params.GenesisHash {
		t.Fatalf("template builds on %v, want genesis",
			template.Header.PrevBlock)
	}
	if template.Header.Bits != params.PowLimitBits {
		t.Fatalf("template bits %08x, want %08x", template.Header.Bits,
			params.PowLimitBits)
	}

	solveBlock(t, template)
	if err := chain.ProcessBlock(template); err != nil {
		t.Fatalf("ProcessBlock: %v", err)
	}
	if best := chain.BestSnapshot(); best.Height != 1 {
		t.Fatalf("chain height %d after template connect, want 1",
			best.Height)
	}
}

// TestNewBlockTemplateWithMempool mines the chain past coinbase maturity,
// submits a spend to the mempool, and ensures the next template includes it
// with its fee collected by the coinbase.
func TestNewBlockTemplateWithMempool(t *testing.T) {
	chain, generator, key, script := testSetup(t)
	params := &chaincfg.SimNetParams

	// Mine blocks until the first coinbase after genesis is mature.
	var firstCoinbase *wire.MsgTx
	for i := 0; i < int(params.CoinbaseMaturity)+1; i++ {
		template, err := generator.NewBlockTemplate(script, uint64(i+10))
		if err != nil {
			t.Fatalf("NewBlockTemplate: %v", err)
		}
		solveBlock(t, template)
		if err := chain.ProcessBlock(template); err != nil {
			t.Fatalf("ProcessBlock at height %d: %v", i+1, err)
		}
		if i == 0 {
			firstCoinbase = template.Transactions[0]
		}
	}

	// Spend the matured coinbase with a 1000 atom fee.
	const fee = 1000
	spend := wire.NewMsgTx()
	spend.AddTxIn(wire.NewTxIn(&wire.OutPoint{
		Hash:  firstCoinbase.TxHash(),
		Index: 0,
	}, nil))
	spend.AddTxOut(wire.NewTxOut(firstCoinbase.TxOut[0].Value-fee, script))
	sigScript, err := txscript.SignatureScript(spend, 0, script,
		txscript.SigHashAll, key, true)
	if err != nil {
		t.Fatalf("SignatureScript: %v", err)
	}
	spend.TxIn[0].SignatureScript = sigScript

	if err := chain.AcceptTransaction(spend); err != nil {
		t.Fatalf("AcceptTransaction: %v", err)
	}

	template, err := generator.NewBlockTemplate(script, 99)
	if err != nil {
		t.Fatalf("NewBlockTemplate: %v", err)
	}
	if len(template.Transactions) != 2 {
		t.Fatalf("template has %d transactions, want 2",
			len(template.Transactions))
	}
	if template.Transactions[1].TxHash() != spend.TxHash() {
		t.Fatal("mempool transaction missing from template")
	}
	wantPayout := params.BaseSubsidy + fee
	if got := template.Transactions[0].TxOut[0].Value; got != wantPayout {
		t.Fatalf("coinbase pays %d, want %d", got, wantPayout)
	}

	// The template must connect, confirming the spend.
	solveBlock(t, template)
	if err := chain.ProcessBlock(template); err != nil {
		t.Fatalf("ProcessBlock: %v", err)
	}
	if len(chain.MempoolTxns()) != 0 {
		t.Fatal("mempool not drained after template connected")
	}
}
