// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"
	"fmt"

	"github.com/embercoin/emberd/txscript"
	"github.com/embercoin/emberd/wire"
)

// UtxoEntry houses details about an individual unspent transaction output
// such as its value, the public key script that encumbers it, and whether or
// not it was created by a coinbase transaction along with the height of the
// block that contains it.
//
// The struct is treated as immutable once created; spending an output
// removes the entry rather than mutating it.
type UtxoEntry struct {
	amount      int64
	pkScript    []byte
	blockHeight int64
	isCoinBase  bool
}

// Amount returns the amount of the output.
func (entry *UtxoEntry) Amount() int64 {
	return entry.amount
}

// PkScript returns the public key script for the output.
func (entry *UtxoEntry) PkScript() []byte {
	return entry.pkScript
}

// BlockHeight returns the height of the block containing the output.
func (entry *UtxoEntry) BlockHeight() int64 {
	return entry.blockHeight
}

// IsCoinBase returns whether or not the output was contained in a coinbase
// transaction.
func (entry *UtxoEntry) IsCoinBase() bool {
	return entry.isCoinBase
}

// UtxoSet is the authoritative set of unspent transaction outputs, keyed by
// outpoint.  Alongside the live entries it keeps a cache of recently spent
// entries so disconnecting a block during a reorganization can restore the
// outputs the block spent.
//
// The set is not safe for concurrent access on its own; the chain state
// serializes all access under its lock.
type UtxoSet struct {
	entries map[wire.OutPoint]*UtxoEntry

	// spent caches entries removed by Spend, keyed by outpoint, so they
	// can be restored when the spending block is disconnected.  Entries
	// are evicted once the block that spent them is buried beyond the
	// deepest supported reorganization.
	spent map[wire.OutPoint]spentEntry

	// spendHeight is the height attributed to subsequent Spend calls for
	// the purposes of spent cache eviction.  ConnectBlock maintains it.
	spendHeight int64
}

// spentEntry pairs a cached spent output with the height of the block that
// spent it so the cache can be bounded by reorganization depth.
type spentEntry struct {
	entry  *UtxoEntry
	height int64
}

// NewUtxoSet returns a new empty unspent transaction output set.
func NewUtxoSet() *UtxoSet {
	return &UtxoSet{
		entries: make(map[wire.OutPoint]*UtxoEntry),
		spent:   make(map[wire.OutPoint]spentEntry),
	}
}

// LookupEntry returns details for the provided outpoint, or nil when the
// outpoint is not unspent.
func (u *UtxoSet) LookupEntry(outpoint wire.OutPoint) *UtxoEntry {
	return u.entries[outpoint]
}

// IsUnspent returns whether the provided outpoint is an unspent output.
func (u *UtxoSet) IsUnspent(outpoint wire.OutPoint) bool {
	_, ok := u.entries[outpoint]
	return ok
}

// addTxOuts adds every spendable output of the passed transaction to the
// set.  Outputs that are provably unspendable are skipped and never enter
// the set.
func (u *UtxoSet) addTxOuts(tx *wire.MsgTx, blockHeight int64, isCoinBase bool) {
	txHash := tx.TxHash()
	for txOutIdx, txOut := range tx.TxOut {
		if txscript.IsUnspendable(txOut.PkScript) {
			continue
		}

		outpoint := wire.OutPoint{Hash: txHash, Index: uint32(txOutIdx)}
		u.entries[outpoint] = &UtxoEntry{
			amount:      txOut.Value,
			pkScript:    txOut.PkScript,
			blockHeight: blockHeight,
			isCoinBase:  isCoinBase,
		}
	}
}

// Spend removes the entry for the provided outpoint and caches it for a
// potential later restore.  Attempting to spend an outpoint that is not
// unspent is an error.
func (u *UtxoSet) Spend(outpoint wire.OutPoint) error {
	entry, ok := u.entries[outpoint]
	if !ok {
		str := fmt.Sprintf("output %v is not unspent", outpoint)
		return ruleError(ErrMissingTxOut, str)
	}

	u.spent[outpoint] = spentEntry{entry: entry, height: u.spendHeight}
	delete(u.entries, outpoint)
	return nil
}

// ConnectBlock updates the set to reflect the passed block being appended to
// the chain at the given height: the inputs of every non-coinbase
// transaction are spent in input order first, then every output of every
// transaction is added.
func (u *UtxoSet) ConnectBlock(block *wire.MsgBlock, blockHeight int64) error {
	u.spendHeight = blockHeight
	for _, tx := range block.Transactions {
		if tx.IsCoinBase() {
			continue
		}
		for _, txIn := range tx.TxIn {
			if err := u.Spend(txIn.PreviousOutPoint); err != nil {
				return err
			}
		}
	}

	for _, tx := range block.Transactions {
		u.addTxOuts(tx, blockHeight, tx.IsCoinBase())
	}

	return nil
}

// DisconnectBlock updates the set to remove the effects of the passed block,
// which must be the most recently connected block: every output the block
// created is deleted and every output it spent is restored from the spent
// cache.
//
// A missing spent cache entry means the set can no longer be returned to its
// pre-block state, so the error must be treated as fatal by the caller
// rather than leaving the set partially rewound.
func (u *UtxoSet) DisconnectBlock(block *wire.MsgBlock) error {
	// Remove the outputs created by the block.  Unspendable outputs were
	// never added, so they are skipped here as well.
	for _, tx := range block.Transactions {
		txHash := tx.TxHash()
		for txOutIdx, txOut := range tx.TxOut {
			if txscript.IsUnspendable(txOut.PkScript) {
				continue
			}
			delete(u.entries, wire.OutPoint{Hash: txHash, Index: uint32(txOutIdx)})
		}
	}

	// Restore the outputs the block spent.
	for _, tx := range block.Transactions {
		if tx.IsCoinBase() {
			continue
		}
		for _, txIn := range tx.TxIn {
			outpoint := txIn.PreviousOutPoint
			se, ok := u.spent[outpoint]
			if !ok {
				str := fmt.Sprintf("no spent cache entry for %v "+
					"while disconnecting block %v", outpoint,
					block.BlockHash())
				return ruleError(ErrReorgStateInconsistent, str)
			}
			u.entries[outpoint] = se.entry
			delete(u.spent, outpoint)
		}
	}

	return nil
}

// evictSpentBefore drops cached spent entries whose spending block is buried
// deeper than the supported reorganization depth.  It bounds the memory the
// reorg support costs.
func (u *UtxoSet) evictSpentBefore(height int64) {
	for outpoint, se := range u.spent {
		if se.height < height {
			delete(u.spent, outpoint)
		}
	}
}

// Balance sums the value of every entry whose public key script matches the
// passed filter script.  A nil filter matches every entry.
func (u *UtxoSet) Balance(filterScript []byte) int64 {
	var total int64
	for _, entry := range u.entries {
		if filterScript == nil || bytes.Equal(entry.pkScript, filterScript) {
			total += entry.amount
		}
	}
	return total
}

// Entries invokes the passed function for every unspent entry in the set,
// stopping early when the function returns false.  The iteration order is
// unspecified.
func (u *UtxoSet) Entries(fn func(wire.OutPoint, *UtxoEntry) bool) {
	for outpoint, entry := range u.entries {
		if !fn(outpoint, entry) {
			return
		}
	}
}
