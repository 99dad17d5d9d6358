// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"time"

	"github.com/embercoin/emberd/txscript"
	"github.com/embercoin/emberd/wire"
)

const (
	// MaxOutputValue is the maximum value, in atoms, a single transaction
	// output may carry.
	MaxOutputValue = 21e14

	// MinCoinbaseScriptLen is the minimum length a coinbase signature
	// script can be.
	MinCoinbaseScriptLen = 2

	// MaxCoinbaseScriptLen is the maximum length a coinbase signature
	// script can be.
	MaxCoinbaseScriptLen = 100

	// LockTimeThreshold is the number below which a lock time is
	// interpreted as a block height and at or above which it is
	// interpreted as a unix timestamp.
	LockTimeThreshold = 5e8
)

// utxoView provides read access to some view of the unspent transaction
// output set.  The authoritative UtxoSet implements it directly, and block
// validation overlays it with the in-block spends and outputs of the
// transactions ordered earlier in the block being checked.
type utxoView interface {
	LookupEntry(wire.OutPoint) *UtxoEntry
}

// blockUtxoView overlays a base view with the effects of the transactions
// ordered earlier in the block being validated: outputs they created are
// visible and outputs they spent are not.
type blockUtxoView struct {
	base    utxoView
	spent   map[wire.OutPoint]struct{}
	created map[wire.OutPoint]*UtxoEntry
}

// newBlockUtxoView returns an overlay view on top of the passed base view.
func newBlockUtxoView(base utxoView) *blockUtxoView {
	return &blockUtxoView{
		base:    base,
		spent:   make(map[wire.OutPoint]struct{}),
		created: make(map[wire.OutPoint]*UtxoEntry),
	}
}

// LookupEntry returns the entry for the outpoint in the overlaid view.
func (v *blockUtxoView) LookupEntry(outpoint wire.OutPoint) *UtxoEntry {
	if _, ok := v.spent[outpoint]; ok {
		return nil
	}
	if entry, ok := v.created[outpoint]; ok {
		return entry
	}
	return v.base.LookupEntry(outpoint)
}

// applyTransaction records the spends and spendable outputs of a validated
// transaction so later transactions in the same block observe them.
func (v *blockUtxoView) applyTransaction(tx *wire.MsgTx, blockHeight int64) {
	for _, txIn := range tx.TxIn {
		v.spent[txIn.PreviousOutPoint] = struct{}{}
	}
	txHash := tx.TxHash()
	for txOutIdx, txOut := range tx.TxOut {
		if txscript.IsUnspendable(txOut.PkScript) {
			continue
		}
		outpoint := wire.OutPoint{Hash: txHash, Index: uint32(txOutIdx)}
		v.created[outpoint] = &UtxoEntry{
			amount:      txOut.Value,
			pkScript:    txOut.PkScript,
			blockHeight: blockHeight,
			isCoinBase:  false,
		}
	}
}

// CheckTransactionSanity performs the context free checks on a transaction:
// its structure, serialized size, output values, and, for a coinbase, its
// signature script size.  These checks are independent of the position of
// the transaction in the chain.
func CheckTransactionSanity(tx *wire.MsgTx) error {
	// A transaction must have at least one input and one output.
	if len(tx.TxIn) == 0 {
		return ruleError(ErrNoTxInputs, "transaction has no inputs")
	}
	if len(tx.TxOut) == 0 {
		return ruleError(ErrNoTxOutputs, "transaction has no outputs")
	}

	// A transaction must not exceed the maximum allowed payload when
	// serialized.
	serializedSize := tx.SerializeSize()
	if serializedSize > wire.MaxTxSize {
		str := fmt.Sprintf("serialized transaction is too big - got %d, "+
			"max %d", serializedSize, wire.MaxTxSize)
		return ruleError(ErrTxTooBig, str)
	}

	// Ensure the transaction amounts are in range.  Each transaction
	// output must not be negative or more than the max allowed per
	// output.
	for _, txOut := range tx.TxOut {
		if txOut.Value < 0 {
			str := fmt.Sprintf("transaction output has negative value "+
				"of %v", txOut.Value)
			return ruleError(ErrBadTxOutValue, str)
		}
		if txOut.Value > MaxOutputValue {
			str := fmt.Sprintf("transaction output value of %v is "+
				"higher than max allowed value of %v", txOut.Value,
				MaxOutputValue)
			return ruleError(ErrBadTxOutValue, str)
		}
	}

	// The signature script of a coinbase must be within the allowed size
	// range.  Coinbase inputs reference nothing, so no further input
	// checks apply.
	if tx.IsCoinBase() {
		slen := len(tx.TxIn[0].SignatureScript)
		if slen < MinCoinbaseScriptLen || slen > MaxCoinbaseScriptLen {
			str := fmt.Sprintf("coinbase transaction script length of "+
				"%d is out of range (min: %d, max: %d)", slen,
				MinCoinbaseScriptLen, MaxCoinbaseScriptLen)
			return ruleError(ErrBadCoinbaseScriptLen, str)
		}
	}

	return nil
}

// checkTransactionInputs performs a series of checks on the inputs of a
// transaction against the provided view of the unspent output set to ensure
// they spend existing mature outputs, do not create value, authorize the
// spends via their scripts, and have reached their lock time.  It returns
// the fee the transaction pays.
//
// The view must already reflect the spends and outputs of any transactions
// ordered before this one in the same block.
//
// spendHeight is the height of the block containing the transaction, or the
// next block height for an unconfirmed transaction.  medianTimePast is the
// time against which timestamp based lock times are compared; for an
// unconfirmed transaction the caller passes the current wall clock.
func (b *BlockChain) checkTransactionInputs(tx *wire.MsgTx, view utxoView, spendHeight int64, medianTimePast int64) (int64, error) {
	// Coinbase transactions have no inputs to validate.
	if tx.IsCoinBase() {
		return 0, nil
	}

	coinbaseMaturity := int64(b.chainParams.CoinbaseMaturity)
	var totalAtomsIn int64
	for txInIndex, txIn := range tx.TxIn {
		// Ensure the referenced output exists and is unspent in the
		// view.
		entry := view.LookupEntry(txIn.PreviousOutPoint)
		if entry == nil {
			str := fmt.Sprintf("output %v referenced from input %d "+
				"either does not exist or has already been spent",
				txIn.PreviousOutPoint, txInIndex)
			return 0, ruleError(ErrMissingTxOut, str)
		}

		// Ensure the transaction is not spending coins which have not
		// yet reached the required coinbase maturity.
		if entry.IsCoinBase() {
			blocksSincePrev := spendHeight - entry.BlockHeight()
			if blocksSincePrev < coinbaseMaturity {
				str := fmt.Sprintf("tried to spend coinbase output "+
					"%v from height %v at height %v before required "+
					"maturity of %v blocks", txIn.PreviousOutPoint,
					entry.BlockHeight(), spendHeight,
					coinbaseMaturity)
				return 0, ruleError(ErrImmatureSpend, str)
			}
		}

		totalAtomsIn += entry.Amount()
	}

	var totalAtomsOut int64
	for _, txOut := range tx.TxOut {
		totalAtomsOut += txOut.Value
	}

	// The total output value must not exceed the total input value: a
	// transaction never creates coins, it only reassigns them, with any
	// difference collected by the miner as a fee.
	if totalAtomsIn < totalAtomsOut {
		str := fmt.Sprintf("total value of all transaction inputs for "+
			"transaction %v is %v which is less than the amount spent "+
			"of %v", tx.TxHash(), totalAtomsIn, totalAtomsOut)
		return 0, ruleError(ErrSpendTooHigh, str)
	}

	// Every input must present an unlocking script that satisfies the
	// locking script of the output it spends.
	for txInIndex, txIn := range tx.TxIn {
		entry := view.LookupEntry(txIn.PreviousOutPoint)
		if !txscript.VerifyScript(txIn.SignatureScript, entry.PkScript(),
			tx, txInIndex, b.sigCache) {

			str := fmt.Sprintf("script validation failed for input %d "+
				"of transaction %v", txInIndex, tx.TxHash())
			return 0, ruleError(ErrScriptValidation, str)
		}
	}

	// A non-zero lock time gates the transaction on either a block height
	// or a timestamp depending on its magnitude.
	if tx.LockTime != 0 {
		var met bool
		if tx.LockTime < LockTimeThreshold {
			met = int64(tx.LockTime) < spendHeight
		} else {
			met = int64(tx.LockTime) < medianTimePast
		}
		if !met {
			str := fmt.Sprintf("transaction %v has lock time %d which "+
				"is not yet met", tx.TxHash(), tx.LockTime)
			return 0, ruleError(ErrUnfinalizedTx, str)
		}
	}

	return totalAtomsIn - totalAtomsOut, nil
}

// checkBlockSanity performs the context free block checks: version, claimed
// proof of work, timestamp bound, merkle commitment, and the coinbase
// placement rules.
func (b *BlockChain) checkBlockSanity(block *wire.MsgBlock) error {
	header := &block.Header

	// Reject outdated block versions.
	if header.Version < 1 {
		str := fmt.Sprintf("block version %d is no longer valid",
			header.Version)
		return ruleError(ErrBlockVersionTooOld, str)
	}

	// A block timestamp must not be further into the future than the
	// maximum allowed offset.
	maxTimestamp := time.Now().Add(b.chainParams.MaxTimeOffset)
	if header.Timestamp.After(maxTimestamp) {
		str := fmt.Sprintf("block timestamp of %v is too far in the "+
			"future", header.Timestamp)
		return ruleError(ErrTimeTooNew, str)
	}

	// The block hash must not exceed the claimed target.
	blockHash := header.BlockHash()
	if err := b.checkProofOfWork(&blockHash, header.Bits); err != nil {
		return err
	}

	// A block must have at least one transaction, and that transaction
	// must be a coinbase.  No other transaction may be one.
	if len(block.Transactions) == 0 {
		return ruleError(ErrNoTransactions, "block does not contain any "+
			"transactions")
	}
	if !block.Transactions[0].IsCoinBase() {
		return ruleError(ErrFirstTxNotCoinbase, "first transaction in "+
			"block is not the coinbase")
	}
	for i, tx := range block.Transactions[1:] {
		if tx.IsCoinBase() {
			str := fmt.Sprintf("block contains second coinbase at "+
				"index %d", i+1)
			return ruleError(ErrMultipleCoinbases, str)
		}
	}

	// The coinbase itself must be structurally valid, have at least one
	// output, and generate a positive amount.  The exact generated value
	// is bounded against the subsidy plus fees when the block connects.
	coinbase := block.Transactions[0]
	if err := CheckTransactionSanity(coinbase); err != nil {
		return err
	}
	if coinbase.TxOut[0].Value <= 0 {
		return ruleError(ErrBadCoinbaseValue, "coinbase transaction "+
			"does not generate a positive value in its first output")
	}

	// The merkle root in the header must match the root calculated over
	// the block transactions.
	calculatedMerkleRoot := CalcMerkleRoot(block.Transactions)
	if header.MerkleRoot != calculatedMerkleRoot {
		str := fmt.Sprintf("block merkle root is invalid - block header "+
			"indicates %v, but calculated value is %v",
			header.MerkleRoot, calculatedMerkleRoot)
		return ruleError(ErrBadMerkleRoot, str)
	}

	return nil
}

// checkConnectBlock performs the validation checks which require the view of
// the unspent output set the block builds on: per-transaction input
// validation, double spend prevention within the block, and the bound on the
// coinbase payout.  The checks mutate nothing.
func (b *BlockChain) checkConnectBlock(block *wire.MsgBlock, utxoSet *UtxoSet, blockHeight int64, medianTimePast int64) error {
	view := newBlockUtxoView(utxoSet)

	var totalFees int64
	for _, tx := range block.Transactions[1:] {
		if err := CheckTransactionSanity(tx); err != nil {
			return err
		}

		// A repeated spend within the block surfaces as a missing
		// entry in the overlay view, but it is detected explicitly
		// here to produce the more precise error.
		for txInIndex, txIn := range tx.TxIn {
			if _, ok := view.spent[txIn.PreviousOutPoint]; ok {
				str := fmt.Sprintf("transaction %v input %d spends "+
					"output %v already spent in the same block",
					tx.TxHash(), txInIndex, txIn.PreviousOutPoint)
				return ruleError(ErrDoubleSpend, str)
			}
		}

		fee, err := b.checkTransactionInputs(tx, view, blockHeight,
			medianTimePast)
		if err != nil {
			return err
		}
		totalFees += fee

		view.applyTransaction(tx, blockHeight)
	}

	// The coinbase may not claim more than the subsidy plus the fees of
	// the transactions in the block.
	var coinbasePays int64
	for _, txOut := range block.Transactions[0].TxOut {
		coinbasePays += txOut.Value
	}
	maxPayout := b.chainParams.BaseSubsidy + totalFees
	if coinbasePays > maxPayout {
		str := fmt.Sprintf("coinbase transaction for block pays %v "+
			"which is more than expected value of %v", coinbasePays,
			maxPayout)
		return ruleError(ErrBadCoinbaseValue, str)
	}

	return nil
}
