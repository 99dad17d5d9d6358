// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2019 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/embercoin/emberd/chaincfg/chainhash"
	"github.com/embercoin/emberd/wire"
)

// hashMerkleBranches takes two hashes, treated as the left and right tree
// nodes, and returns the hash of their concatenation.  This is a helper
// function used to aid in the generation of a merkle tree.
func hashMerkleBranches(left *chainhash.Hash, right *chainhash.Hash) chainhash.Hash {
	// Concatenate the left and right nodes.
	var hash [chainhash.HashSize * 2]byte
	copy(hash[:chainhash.HashSize], left[:])
	copy(hash[chainhash.HashSize:], right[:])

	return chainhash.DoubleHashH(hash[:])
}

// CalcMerkleRootOfHashes calculates the merkle root over the passed leaf
// hashes.  Levels with an odd number of nodes duplicate their final hash
// before pairing, matching the historical bitcoin construction.  An empty
// set of leaves produces the zero hash, though no valid block has one since
// every block carries at least a coinbase.
func CalcMerkleRootOfHashes(hashes []chainhash.Hash) chainhash.Hash {
	if len(hashes) == 0 {
		return chainhash.Hash{}
	}

	// Reduce level by level until a single root remains.  The last hash
	// of a level with an odd number of entries is paired with itself.
	for len(hashes) > 1 {
		if len(hashes)%2 != 0 {
			hashes = append(hashes, hashes[len(hashes)-1])
		}

		next := make([]chainhash.Hash, 0, len(hashes)/2)
		for i := 0; i < len(hashes); i += 2 {
			next = append(next, hashMerkleBranches(&hashes[i], &hashes[i+1]))
		}
		hashes = next
	}

	return hashes[0]
}

// CalcMerkleRoot calculates the merkle root commitment for the transactions
// of a block.
func CalcMerkleRoot(transactions []*wire.MsgTx) chainhash.Hash {
	hashes := make([]chainhash.Hash, 0, len(transactions))
	for _, tx := range transactions {
		hashes = append(hashes, tx.TxHash())
	}
	return CalcMerkleRootOfHashes(hashes)
}
