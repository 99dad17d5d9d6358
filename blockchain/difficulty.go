// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"math/big"

	"github.com/decred/dcrd/blockchain/standalone/v2"
	"github.com/embercoin/emberd/chaincfg/chainhash"
)

// CompactToBig converts the compact representation used to encode difficulty
// targets in the bits field of a block header to an unsigned 256-bit integer.
// The representation is a floating point value with a base-256 exponent in
// the high byte and a 23-bit mantissa in the low bytes.
func CompactToBig(compact uint32) *big.Int {
	return standalone.CompactToBig(compact)
}

// BigToCompact converts a whole number N to the compact representation with
// the minimal exponent such that the mantissa fits in 23 bits.  When the sign
// bit of the truncated mantissa would be set, the mantissa is shifted down a
// byte and the exponent incremented, so the round trip through CompactToBig
// is exact for every value this function emits.
func BigToCompact(n *big.Int) uint32 {
	return standalone.BigToCompact(n)
}

// CalcWork calculates a work value from difficulty bits.  It is the amount
// of work, expressed as 2^256 / (target + 1), a single block with the given
// bits adds to the cumulative work of a chain.
func CalcWork(bits uint32) *big.Int {
	return standalone.CalcWork(bits)
}

// HashToBig converts a chainhash.Hash into a big.Int that can be used to
// perform math comparisons.  The hash is interpreted as a big-endian number
// after byte reversal since hashes are stored in little-endian internal
// order.
func HashToBig(hash *chainhash.Hash) *big.Int {
	// A Hash is in little-endian, but the big package wants the bytes in
	// big-endian, so reverse them.
	buf := *hash
	blen := len(buf)
	for i := 0; i < blen/2; i++ {
		buf[i], buf[blen-1-i] = buf[blen-1-i], buf[i]
	}

	return new(big.Int).SetBytes(buf[:])
}

// checkProofOfWork ensures the block header hash is less than or equal to
// the target difficulty encoded by its bits field and that the claimed
// target is in the valid range for the network.
func (b *BlockChain) checkProofOfWork(hash *chainhash.Hash, bits uint32) error {
	target := CompactToBig(bits)
	if target.Sign() <= 0 {
		str := fmt.Sprintf("block target difficulty of %064x is too low",
			target)
		return ruleError(ErrHighHash, str)
	}
	if target.Cmp(b.chainParams.PowLimit) > 0 {
		str := fmt.Sprintf("block target difficulty of %064x is higher "+
			"than max of %064x", target, b.chainParams.PowLimit)
		return ruleError(ErrHighHash, str)
	}

	hashNum := HashToBig(hash)
	if hashNum.Cmp(target) > 0 {
		str := fmt.Sprintf("block hash of %064x is higher than expected "+
			"max of %064x", hashNum, target)
		return ruleError(ErrHighHash, str)
	}

	return nil
}

// calcNextRequiredDifficulty calculates the required difficulty for the
// block after the passed previous block node based on the difficulty
// retarget rules.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) calcNextRequiredDifficulty(prevNode *blockNode) uint32 {
	params := b.chainParams

	// Genesis block.
	if prevNode == nil {
		return params.PowLimitBits
	}

	// Return the previous block's difficulty requirements when this block
	// is not at a difficulty retarget interval.
	nextHeight := prevNode.height + 1
	if nextHeight%params.WorkDiffInterval != 0 {
		return prevNode.bits
	}

	// Get the block node at the previous retarget (targetTimespan worth of
	// blocks back).
	firstNode := prevNode
	for i := int64(0); i < params.WorkDiffInterval && firstNode != nil; i++ {
		firstNode = firstNode.parent
	}
	if firstNode == nil {
		return params.PowLimitBits
	}

	// Limit the amount of adjustment that can occur to the previous
	// difficulty.
	targetTimespan := int64(params.TargetTimespan.Seconds())
	adjustmentFactor := params.RetargetAdjustmentFactor
	actualTimespan := prevNode.timestamp - firstNode.timestamp
	if actualTimespan < targetTimespan/adjustmentFactor {
		actualTimespan = targetTimespan / adjustmentFactor
	} else if actualTimespan > targetTimespan*adjustmentFactor {
		actualTimespan = targetTimespan * adjustmentFactor
	}

	// Calculate the new target difficulty as:
	//  currentDifficulty * (adjustedTimespan / targetTimespan)
	// The result uses integer division which means it will be slightly
	// rounded down.
	oldTarget := CompactToBig(prevNode.bits)
	newTarget := new(big.Int).Mul(oldTarget, big.NewInt(actualTimespan))
	newTarget.Div(newTarget, big.NewInt(targetTimespan))

	// Limit new value to the proof of work limit.
	if newTarget.Cmp(params.PowLimit) > 0 {
		newTarget.Set(params.PowLimit)
	}

	return BigToCompact(newTarget)
}

// CalcNextRequiredDifficulty calculates the required difficulty for the
// block after the current best chain tip.
//
// This function is safe for concurrent access.
func (b *BlockChain) CalcNextRequiredDifficulty() uint32 {
	b.chainLock.Lock()
	bits := b.calcNextRequiredDifficulty(b.index.tip)
	b.chainLock.Unlock()
	return bits
}
