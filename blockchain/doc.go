// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2015-2019 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package blockchain implements embercoin block handling and chain selection
rules.

The chain state is the composition of three structures guarded by a single
lock: a tree of all known block headers with the cumulative-work best tip
threaded through it, the authoritative unspent transaction output set, and
the memory pool of unconfirmed transactions.  The invariant the package
maintains is that the unspent output set always equals a replay of the main
chain from the genesis block to the tip.

Processing a block performs the following checks before the state mutates:

 1. The block is not a duplicate and its parent is known
 2. The header is sane: acceptable version, timestamp not too far in the
    future, and a hash that satisfies the claimed difficulty target
 3. The merkle root commits to the block transactions
 4. The first transaction is the only coinbase
 5. Every other transaction spends existing mature unspent outputs, pays a
    non-negative fee, satisfies the scripts of the outputs it spends, and
    has reached its lock time
 6. The coinbase pays no more than the subsidy plus the block's fees

When a block extends a branch whose cumulative work exceeds the current best
tip, the main chain reorganizes: the unspent output set is rewound block by
block to the fork point using the spent output cache and advanced along the
new branch.  The transition is transactional — a branch that fails
validation partway is fully unwound — and an unwind failure is treated as a
consensus bug that halts the node.

# Errors

Errors returned by this package are either the vanilla error type or of type
blockchain.RuleError wrapping a blockchain.ErrorKind.  The caller can
differentiate recoverable validation failures from everything else with the
standard errors.As function.
*/
package blockchain
