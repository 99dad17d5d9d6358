// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/embercoin/emberd/chaincfg"
	"github.com/embercoin/emberd/chaincfg/chainhash"
	"github.com/embercoin/emberd/txscript"
	"github.com/embercoin/emberd/wire"
)

// testHarness provides a chain instance on the simulation network along with
// helpers for building and solving blocks on top of arbitrary parents, so
// tests can construct competing branches.
type testHarness struct {
	t      *testing.T
	chain  *BlockChain
	params *chaincfg.Params

	// key and minerScript receive the coinbase payouts of generated
	// blocks so spend tests can sign for them.
	key         *secp256k1.PrivateKey
	minerScript []byte

	// heights and times track the generated blocks so a child can be
	// built on any of them.
	heights map[chainhash.Hash]int64
	times   map[chainhash.Hash]int64

	// extraNonce differentiates the coinbases of generated blocks so
	// competing branches built from the same parent have distinct
	// transactions and therefore distinct block hashes.
	extraNonce int64
}

// newTestHarness returns a test harness with a fresh simnet chain.
func newTestHarness(t *testing.T) *testHarness {
	params := &chaincfg.SimNetParams

	chain, err := New(params, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	keyBytes := make([]byte, 32)
	keyBytes[0] = 0x02
	keyBytes[31] = 0x01
	key := secp256k1.PrivKeyFromBytes(keyBytes)
	minerScript, err := txscript.PayToPubKeyHashScriptForKey(
		key.PubKey().SerializeCompressed())
	if err != nil {
		t.Fatalf("PayToPubKeyHashScriptForKey: %v", err)
	}

	genesisHash := params.GenesisBlock.BlockHash()
	return &testHarness{
		t:           t,
		chain:       chain,
		params:      params,
		key:         key,
		minerScript: minerScript,
		heights:     map[chainhash.Hash]int64{genesisHash: 0},
		times:       map[chainhash.Hash]int64{genesisHash: params.GenesisBlock.Header.Timestamp.Unix()},
	}
}

// coinbaseScript returns a minimal coinbase signature script encoding the
// passed block height and extra nonce.
func coinbaseScript(t *testing.T, height, extraNonce int64) []byte {
	script, err := txscript.NewScriptBuilder().AddInt64(height).
		AddInt64(extraNonce).Script()
	if err != nil {
		t.Fatalf("coinbase script: %v", err)
	}
	return script
}

// buildBlock creates and solves a block on top of the passed parent hash
// containing a coinbase paying subsidy plus the passed fees to the harness
// miner script, followed by the passed transactions.  The block is not
// submitted to the chain.
func (h *testHarness) buildBlock(parentHash chainhash.Hash, fees int64, txns ...*wire.MsgTx) *wire.MsgBlock {
	h.t.Helper()

	parentHeight, ok := h.heights[parentHash]
	if !ok {
		h.t.Fatalf("buildBlock: unknown parent %v", parentHash)
	}
	height := parentHeight + 1

	h.extraNonce++
	coinbase := wire.NewMsgTx()
	coinbase.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Index: wire.MaxPrevOutIndex},
		SignatureScript:  coinbaseScript(h.t, height, h.extraNonce),
		Sequence:         wire.MaxTxInSequenceNum,
	})
	coinbase.AddTxOut(wire.NewTxOut(h.params.BaseSubsidy+fees, h.minerScript))

	blockTxns := append([]*wire.MsgTx{coinbase}, txns...)
	header := wire.BlockHeader{
		Version:    1,
		PrevBlock:  parentHash,
		MerkleRoot: CalcMerkleRoot(blockTxns),
		Timestamp:  time.Unix(h.times[parentHash]+1, 0),
		Bits:       h.params.PowLimitBits,
	}
	block := &wire.MsgBlock{Header: header, Transactions: blockTxns}
	h.solve(block)

	blockHash := block.BlockHash()
	h.heights[blockHash] = height
	h.times[blockHash] = block.Header.Timestamp.Unix()
	return block
}

// solve iterates the nonce until the block header hash satisfies the claimed
// difficulty bits.  The simulation network difficulty is low enough that
// this takes a handful of attempts.
func (h *testHarness) solve(block *wire.MsgBlock) {
	h.t.Helper()

	target := CompactToBig(block.Header.Bits)
	for nonce := uint32(0); ; nonce++ {
		block.Header.Nonce = nonce
		hash := block.Header.BlockHash()
		if HashToBig(&hash).Cmp(target) <= 0 {
			return
		}
		if nonce == ^uint32(0) {
			h.t.Fatal("solve: exhausted nonce space")
		}
	}
}

// acceptBlock builds a block on the parent and requires the chain to accept
// it.
func (h *testHarness) acceptBlock(parentHash chainhash.Hash, fees int64, txns ...*wire.MsgTx) *wire.MsgBlock {
	h.t.Helper()

	block := h.buildBlock(parentHash, fees, txns...)
	if err := h.chain.ProcessBlock(block); err != nil {
		h.t.Fatalf("ProcessBlock(%v): %v", block.BlockHash(), err)
	}
	return block
}

// extendChain mines numBlocks empty blocks on top of the passed parent and
// returns the hash of the last one.
func (h *testHarness) extendChain(parentHash chainhash.Hash, numBlocks int) chainhash.Hash {
	h.t.Helper()

	for i := 0; i < numBlocks; i++ {
		block := h.acceptBlock(parentHash, 0)
		parentHash = block.BlockHash()
	}
	return parentHash
}

// spendCoinbase returns a signed transaction spending the coinbase output of
// the passed block to the harness miner script, paying the passed fee.
func (h *testHarness) spendCoinbase(block *wire.MsgBlock, fee int64) *wire.MsgTx {
	h.t.Helper()

	coinbase := block.Transactions[0]
	prevOut := wire.OutPoint{Hash: coinbase.TxHash(), Index: 0}

	tx := wire.NewMsgTx()
	tx.AddTxIn(wire.NewTxIn(&prevOut, nil))
	tx.AddTxOut(wire.NewTxOut(coinbase.TxOut[0].Value-fee, h.minerScript))

	sigScript, err := txscript.SignatureScript(tx, 0, h.minerScript,
		txscript.SigHashAll, h.key, true)
	if err != nil {
		h.t.Fatalf("SignatureScript: %v", err)
	}
	tx.TxIn[0].SignatureScript = sigScript
	return tx
}

// unspentSet returns the chain's unspent output set keyed by outpoint for
// comparisons between chains.
func (h *testHarness) unspentSet() map[wire.OutPoint]int64 {
	set := make(map[wire.OutPoint]int64)
	for _, u := range h.chain.ListUnspent(nil) {
		set[u.OutPoint] = u.Amount
	}
	return set
}
