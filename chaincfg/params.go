// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"
	"time"

	"github.com/decred/dcrd/blockchain/standalone/v2"
	"github.com/embercoin/emberd/chaincfg/chainhash"
	"github.com/embercoin/emberd/wire"
)

var (
	// bigOne is 1 represented as a big.Int.  It is defined here to avoid
	// the overhead of creating it multiple times.
	bigOne = big.NewInt(1)

	// mainPowLimit is the highest proof of work value an embercoin block
	// can have for the main network.  It is the value 2^224 - 1, just
	// above the target 2^224 - 2^208 encoded by the launch difficulty bits
	// 0x1d00ffff.
	mainPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 224), bigOne)

	// simNetPowLimit is the highest proof of work value an embercoin block
	// can have for the simulation test network.  It is the value encoded
	// by the compact difficulty 0x207fffff, which roughly one in every two
	// hashes satisfies.
	simNetPowLimit = standalone.CompactToBig(0x207fffff)
)

// Params defines an embercoin network by its parameters.  These parameters
// may be used by embercoin applications to differentiate networks as well as
// addresses and keys for one network from those intended for use on another
// network.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// Net defines the magic bytes used to identify the network.
	Net wire.CurrencyNet

	// DefaultPort defines the default peer-to-peer port for the network.
	DefaultPort string

	// GenesisBlock defines the first block of the chain.
	GenesisBlock *wire.MsgBlock

	// GenesisHash is the starting block hash.
	GenesisHash *chainhash.Hash

	// PowLimit defines the highest allowed proof of work value for a block
	// as a uint256.
	PowLimit *big.Int

	// PowLimitBits defines the highest allowed proof of work value for a
	// block in compact form.
	PowLimitBits uint32

	// TargetTimespan is the desired amount of time that should elapse
	// before the block difficulty requirement is examined to determine how
	// it should be changed in order to maintain the desired block
	// generation rate.
	TargetTimespan time.Duration

	// TargetTimePerBlock is the desired amount of time to generate each
	// block.
	TargetTimePerBlock time.Duration

	// RetargetAdjustmentFactor is the adjustment factor used to limit the
	// minimum and maximum amount of adjustment that can occur between
	// difficulty retargets.
	RetargetAdjustmentFactor int64

	// WorkDiffInterval is the number of blocks between each difficulty
	// retarget.  It is derived from the timespan and the time per block.
	WorkDiffInterval int64

	// BaseSubsidy is the starting subsidy amount, in atoms, for mined
	// blocks.  There is no reduction schedule.
	BaseSubsidy int64

	// CoinbaseMaturity is the number of blocks required before newly mined
	// coins can be spent.
	CoinbaseMaturity uint16

	// MaxTimeOffset is the maximum amount a block timestamp is allowed to
	// be ahead of the current time.
	MaxTimeOffset time.Duration

	// MedianTimeBlocks is the number of previous blocks which should be
	// used to calculate the median time used to validate block timestamps.
	MedianTimeBlocks int

	// MaxReorgDepth is the deepest chain reorganization the node commits
	// to being able to undo.  It bounds the spent-output cache kept for
	// reconnecting disconnected blocks.
	MaxReorgDepth int64
}

// MainNetParams defines the network parameters for the main embercoin
// network.
var MainNetParams = Params{
	Name:        "mainnet",
	Net:         wire.MainNet,
	DefaultPort: "9337",

	// Chain parameters
	GenesisBlock:             &genesisBlock,
	GenesisHash:              &genesisHash,
	PowLimit:                 mainPowLimit,
	PowLimitBits:             0x1d00ffff,
	TargetTimespan:           time.Hour * 24 * 14, // 14 days
	TargetTimePerBlock:       time.Minute * 10,    // 10 minutes
	RetargetAdjustmentFactor: 4,                   // 25% less, 400% more
	WorkDiffInterval:         2016,
	BaseSubsidy:              5000000000,
	CoinbaseMaturity:         100,
	MaxTimeOffset:            time.Hour * 2,
	MedianTimeBlocks:         11,
	MaxReorgDepth:            100,
}

// SimNetParams defines the network parameters for the simulation test
// network.  This network is similar to the main network except it is
// intended for private use within a group of individuals doing simulation
// testing.  The functionality is intended to differ in that the only nodes
// which are specifically specified are used to create the network rather
// than following normal discovery rules.  This is important as otherwise it
// would just turn into another public testnet.
var SimNetParams = Params{
	Name:        "simnet",
	Net:         wire.SimNet,
	DefaultPort: "19337",

	// Chain parameters
	GenesisBlock:             &simNetGenesisBlock,
	GenesisHash:              &simNetGenesisHash,
	PowLimit:                 simNetPowLimit,
	PowLimitBits:             0x207fffff,
	TargetTimespan:           time.Hour * 24 * 14, // 14 days
	TargetTimePerBlock:       time.Minute * 10,    // 10 minutes
	RetargetAdjustmentFactor: 4,                   // 25% less, 400% more
	WorkDiffInterval:         2016,
	BaseSubsidy:              5000000000,
	CoinbaseMaturity:         100,
	MaxTimeOffset:            time.Hour * 2,
	MedianTimeBlocks:         11,
	MaxReorgDepth:            100,
}
