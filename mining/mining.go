// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"fmt"
	"time"

	"github.com/embercoin/emberd/blockchain"
	"github.com/embercoin/emberd/chaincfg"
	"github.com/embercoin/emberd/chaincfg/chainhash"
	"github.com/embercoin/emberd/txscript"
	"github.com/embercoin/emberd/wire"
)

// CoinbaseFlags is embedded in the coinbase signature script after the block
// height and extra nonce.
const CoinbaseFlags = "/emberd/"

// BlkTmplGenerator provides a type that can be used to generate block
// templates based on a given mining policy and source of transactions to
// choose from.  It also houses additional state required in order to ensure
// the templates are built on top of the current best chain.
type BlkTmplGenerator struct {
	chainParams *chaincfg.Params
	chain       *blockchain.BlockChain
}

// NewBlkTmplGenerator returns a new block template generator for the given
// chain parameters and chain instance.
func NewBlkTmplGenerator(chainParams *chaincfg.Params, chain *blockchain.BlockChain) *BlkTmplGenerator {
	return &BlkTmplGenerator{
		chainParams: chainParams,
		chain:       chain,
	}
}

// standardCoinbaseScript returns a standard script suitable for use as the
// signature script of the coinbase transaction of a new block.  It encodes
// the block height the coinbase is intended for so the transaction hash is
// unique per height, followed by the extra nonce and the generator flags.
func standardCoinbaseScript(nextBlockHeight int64, extraNonce uint64) ([]byte, error) {
	return txscript.NewScriptBuilder().AddInt64(nextBlockHeight).
		AddInt64(int64(extraNonce)).AddData([]byte(CoinbaseFlags)).
		Script()
}

// createCoinbaseTx returns a coinbase transaction paying an appropriate
// subsidy plus the passed fees to the passed public key script.
func createCoinbaseTx(coinbaseScript []byte, value int64, pkScript []byte) *wire.MsgTx {
	tx := wire.NewMsgTx()
	tx.AddTxIn(&wire.TxIn{
		// Coinbase transactions have no inputs, so previous outpoint
		// is the null outpoint.
		PreviousOutPoint: wire.OutPoint{
			Hash:  chainhash.Hash{},
			Index: wire.MaxPrevOutIndex,
		},
		SignatureScript: coinbaseScript,
		Sequence:        wire.MaxTxInSequenceNum,
	})
	tx.AddTxOut(wire.NewTxOut(value, pkScript))
	return tx
}

// txFee returns the fee the passed unconfirmed transaction pays as seen from
// the current chain state and the set of transactions already chosen for the
// template, or an error when one of its inputs cannot be resolved.
func (g *BlkTmplGenerator) txFee(tx *wire.MsgTx, chosen map[chainhash.Hash]*wire.MsgTx) (int64, error) {
	var totalIn int64
	for _, txIn := range tx.TxIn {
		prevOut := txIn.PreviousOutPoint
		if entry := g.chain.FetchUtxoEntry(prevOut); entry != nil {
			totalIn += entry.Amount()
			continue
		}

		// The input may spend the output of another transaction that
		// is also being included in this template.
		if prevTx, ok := chosen[prevOut.Hash]; ok {
			if prevOut.Index < uint32(len(prevTx.TxOut)) {
				totalIn += prevTx.TxOut[prevOut.Index].Value
				continue
			}
		}
		return 0, fmt.Errorf("input %v cannot be resolved", prevOut)
	}

	var totalOut int64
	for _, txOut := range tx.TxOut {
		totalOut += txOut.Value
	}
	return totalIn - totalOut, nil
}

// NewBlockTemplate returns a new block template that is ready to be solved
// using the transactions from the memory pool and a coinbase that pays the
// subsidy plus the fees of the selected transactions to the passed script.
//
// Transactions are selected in dependency order so a transaction spending
// the output of another unconfirmed transaction lands after it, and
// transactions whose inputs cannot be resolved against the current chain
// state (for example because a reorganization stole their inputs) are left
// out.
func (g *BlkTmplGenerator) NewBlockTemplate(payToScript []byte, extraNonce uint64) (*wire.MsgBlock, error) {
	best := g.chain.BestSnapshot()
	nextHeight := best.Height + 1

	coinbaseScript, err := standardCoinbaseScript(nextHeight, extraNonce)
	if err != nil {
		return nil, err
	}

	// Choose the mempool transactions, resolving dependencies between
	// unconfirmed transactions by deferring a transaction until its
	// inputs are available.
	sourceTxns := g.chain.MempoolTxns()
	chosen := make(map[chainhash.Hash]*wire.MsgTx, len(sourceTxns))
	blockTxns := make([]*wire.MsgTx, 0, len(sourceTxns)+1)
	var totalFees int64
	for len(sourceTxns) > 0 {
		var deferred []*wire.MsgTx
		progress := false
		for _, tx := range sourceTxns {
			fee, err := g.txFee(tx, chosen)
			if err != nil {
				deferred = append(deferred, tx)
				continue
			}
			chosen[tx.TxHash()] = tx
			blockTxns = append(blockTxns, tx)
			totalFees += fee
			progress = true
		}
		if !progress {
			// The remaining transactions have unresolvable inputs
			// and are not minable right now.
			for _, tx := range deferred {
				log.Debugf("Skipping unminable transaction %v",
					tx.TxHash())
			}
			break
		}
		sourceTxns = deferred
	}

	coinbaseTx := createCoinbaseTx(coinbaseScript,
		g.chainParams.BaseSubsidy+totalFees, payToScript)
	blockTxns = append([]*wire.MsgTx{coinbaseTx}, blockTxns...)

	// The timestamp is the later of the median time of the recent blocks
	// and the wall clock, so it never falls below the median time.
	ts := best.MedianTime
	if now := time.Now().Unix(); now > ts {
		ts = now
	}

	template := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:    1,
			PrevBlock:  best.Hash,
			MerkleRoot: blockchain.CalcMerkleRoot(blockTxns),
			Timestamp:  time.Unix(ts, 0),
			Bits:       g.chain.CalcNextRequiredDifficulty(),
			Nonce:      0,
		},
		Transactions: blockTxns,
	}

	log.Debugf("Created new block template (%d transactions, %d in fees, "+
		"target %08x)", len(blockTxns), totalFees, template.Header.Bits)
	return template, nil
}
