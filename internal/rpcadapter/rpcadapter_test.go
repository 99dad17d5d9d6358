// Copyright (c) 2017 The btcsuite developers
// Copyright (c) 2018-2021 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpcadapter

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/embercoin/emberd/blockchain"
	"github.com/embercoin/emberd/chaincfg"
	"github.com/embercoin/emberd/txscript"
	"github.com/embercoin/emberd/wire"
	"github.com/gorilla/websocket"
)

// buildSolvedBlock returns a solved empty block on top of the simnet
// genesis block.
func buildSolvedBlock(t *testing.T) *wire.MsgBlock {
	t.Helper()
	params := &chaincfg.SimNetParams

	script, err := txscript.NewScriptBuilder().AddInt64(1).AddInt64(7).Script()
	if err != nil {
		t.Fatalf("Script: %v", err)
	}
	coinbase := wire.NewMsgTx()
	coinbase.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Index: wire.MaxPrevOutIndex},
		SignatureScript:  script,
		Sequence:         wire.MaxTxInSequenceNum,
	})
	coinbase.AddTxOut(wire.NewTxOut(params.BaseSubsidy, []byte{txscript.OP_TRUE}))

	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:    1,
			PrevBlock:  params.GenesisBlock.BlockHash(),
			MerkleRoot: blockchain.CalcMerkleRoot([]*wire.MsgTx{coinbase}),
			Timestamp:  time.Unix(time.Now().Unix(), 0),
			Bits:       params.PowLimitBits,
		},
		Transactions: []*wire.MsgTx{coinbase},
	}
	target := blockchain.CompactToBig(params.PowLimitBits)
	for nonce := uint32(0); ; nonce++ {
		block.Header.Nonce = nonce
		hash := block.Header.BlockHash()
		if blockchain.HashToBig(&hash).Cmp(target) <= 0 {
			return block
		}
	}
}

// TestAdapterQueriesAndSubmission exercises the projection surface end to
// end: submitting a serialized block and reading it back through the query
// methods.
func TestAdapterQueriesAndSubmission(t *testing.T) {
	params := &chaincfg.SimNetParams
	chain, err := blockchain.New(params, nil)
	if err != nil {
		t.Fatalf("blockchain.New: %v", err)
	}
	adapter := New(chain)

	// The initial tip is the genesis block.
	tip := adapter.GetTip()
	if tip.Hash != *params.GenesisHash || tip.Height != 0 {
		t.Fatalf("unexpected tip %v height %d", tip.Hash, tip.Height)
	}

	// Submit a solved block as raw bytes.
	block := buildSolvedBlock(t)
	var buf bytes.Buffer
	if err := block.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	gotHash, err := adapter.SubmitBlock(buf.Bytes())
	if err != nil {
		t.Fatalf("SubmitBlock: %v", err)
	}
	if *gotHash != block.BlockHash() {
		t.Fatalf("SubmitBlock hash %v, want %v", gotHash,
			block.BlockHash())
	}

	// The tip, block, transaction, balance, and unspent queries reflect
	// the submission.
	if tip := adapter.GetTip(); tip.Height != 1 {
		t.Fatalf("tip height %d after submission, want 1", tip.Height)
	}
	gotBlock, err := adapter.GetBlock(gotHash)
	if err != nil {
		t.Fatalf("GetBlock: %v", err)
	}
	if gotBlock.BlockHash() != block.BlockHash() {
		t.Fatal("GetBlock returned a different block")
	}
	coinbaseHash := block.Transactions[0].TxHash()
	if _, err := adapter.GetTransaction(&coinbaseHash); err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	wantBalance := 2 * params.BaseSubsidy // genesis + submitted block
	if got := adapter.GetBalance(nil); got != wantBalance {
		t.Fatalf("GetBalance: got %d, want %d", got, wantBalance)
	}
	if got := adapter.ListUnspent([]byte{txscript.OP_TRUE}); len(got) != 1 {
		t.Fatalf("ListUnspent: got %d entries, want 1", len(got))
	}

	// Trailing garbage after the block is a codec error surfaced to the
	// caller.
	_, err = adapter.SubmitBlock(append(buf.Bytes(), 0x00))
	if !errors.Is(err, wire.ErrTrailingBytes) {
		t.Fatalf("trailing bytes: unexpected error %v", err)
	}

	// A duplicate submission is rejected.
	_, err = adapter.SubmitBlock(buf.Bytes())
	if !errors.Is(err, blockchain.ErrDuplicateBlock) {
		t.Fatalf("duplicate: unexpected error %v", err)
	}
}

// TestSubmitTransactionErrors ensures codec and validation failures surface
// to the caller and never reach the mempool.
func TestSubmitTransactionErrors(t *testing.T) {
	chain, err := blockchain.New(&chaincfg.SimNetParams, nil)
	if err != nil {
		t.Fatalf("blockchain.New: %v", err)
	}
	adapter := New(chain)

	// Truncated stream.
	_, err = adapter.SubmitTransaction([]byte{0x01, 0x00})
	if !errors.Is(err, wire.ErrTruncatedStream) {
		t.Fatalf("truncated: unexpected error %v", err)
	}

	// Structurally valid but spending a missing output.
	tx := wire.NewMsgTx()
	prevHash := chaincfg.SimNetParams.GenesisBlock.BlockHash()
	tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Hash: prevHash, Index: 5}, nil))
	tx.AddTxOut(wire.NewTxOut(1, []byte{txscript.OP_TRUE}))
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	_, err = adapter.SubmitTransaction(buf.Bytes())
	if !errors.Is(err, blockchain.ErrMissingTxOut) {
		t.Fatalf("missing output: unexpected error %v", err)
	}
	if len(chain.MempoolTxns()) != 0 {
		t.Fatal("rejected transaction reached the mempool")
	}
}

// TestNotificationWebsocket ensures a websocket subscriber receives a chain
// update push when a block connects.
func TestNotificationWebsocket(t *testing.T) {
	chain, err := blockchain.New(&chaincfg.SimNetParams, nil)
	if err != nil {
		t.Fatalf("blockchain.New: %v", err)
	}
	adapter := New(chain)

	server := httptest.NewServer(http.HandlerFunc(adapter.ServeNotifications))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	// Give the server handler a moment to register the subscriber before
	// the block connects.
	time.Sleep(100 * time.Millisecond)

	block := buildSolvedBlock(t)
	if err := chain.ProcessBlock(block); err != nil {
		t.Fatalf("ProcessBlock: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var update ChainUpdate
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	blockHash := block.BlockHash()
	if update.Hash != blockHash.String() || update.Height != 1 {
		t.Fatalf("unexpected update %+v", update)
	}
}
