// Copyright (c) 2014 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"time"

	"github.com/embercoin/emberd/chaincfg/chainhash"
	"github.com/embercoin/emberd/wire"
)

// genesisCoinbaseTx is the coinbase transaction for the genesis blocks for
// the main network and simulation network.  The signature script commits to
// the launch difficulty and the launch phrase; the output pays the initial
// subsidy to the launch public key.
var genesisCoinbaseTx = wire.MsgTx{
	Version: 1,
	TxIn: []*wire.TxIn{{
		PreviousOutPoint: wire.OutPoint{
			Hash:  chainhash.Hash{},
			Index: wire.MaxPrevOutIndex,
		},
		// 04ffff001d 0104 24 "Embers outlast the blaze 20/May/2024"
		SignatureScript: []byte{
			0x04, 0xff, 0xff, 0x00, 0x1d, 0x01, 0x04, 0x24,
			0x45, 0x6d, 0x62, 0x65, 0x72, 0x73, 0x20, 0x6f,
			0x75, 0x74, 0x6c, 0x61, 0x73, 0x74, 0x20, 0x74,
			0x68, 0x65, 0x20, 0x62, 0x6c, 0x61, 0x7a, 0x65,
			0x20, 0x32, 0x30, 0x2f, 0x4d, 0x61, 0x79, 0x2f,
			0x32, 0x30, 0x32, 0x34,
		},
		Sequence: wire.MaxTxInSequenceNum,
	}},
	TxOut: []*wire.TxOut{{
		Value: 5000000000,
		PkScript: []byte{
			0x41, // OP_DATA_65
			0x04, 0x59, 0x00, 0x7f, 0xd6, 0x46, 0x15, 0xc5,
			0xd9, 0x0f, 0x28, 0x7e, 0x59, 0xf4, 0x8d, 0xc5,
			0xed, 0xa7, 0xb0, 0x8f, 0x37, 0xfe, 0xaa, 0x5d,
			0x9b, 0x2a, 0x1c, 0x8f, 0x1f, 0x47, 0xb1, 0x3b,
			0x86, 0x9a, 0x7c, 0xce, 0x03, 0x6f, 0x06, 0x24,
			0xa6, 0x81, 0x3d, 0x3a, 0xc8, 0x36, 0x3c, 0x08,
			0x48, 0xff, 0x2d, 0x65, 0xba, 0x19, 0x51, 0x86,
			0xb9, 0x58, 0x37, 0x8a, 0xa8, 0x96, 0xea, 0x51,
			0xa6,
			0xac, // OP_CHECKSIG
		},
	}},
	LockTime: 0,
}

// genesisMerkleRoot is the hash of the first transaction in the genesis
// blocks, which is the merkle root of a single-transaction tree.
var genesisMerkleRoot = chainhash.Hash{
	0x37, 0x03, 0xf4, 0xa4, 0x2b, 0x39, 0xde, 0xd7,
	0xe1, 0x29, 0xce, 0x99, 0xd0, 0x31, 0x81, 0x60,
	0x45, 0x6d, 0x4d, 0xe5, 0xb5, 0x62, 0x2f, 0x44,
	0x93, 0x39, 0x76, 0x81, 0x29, 0x71, 0x21, 0x8f,
}

// genesisBlock defines the genesis block of the block chain which serves as
// the public transaction ledger for the main network.
var genesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: genesisMerkleRoot,
		Timestamp:  time.Unix(1716163200, 0), // 2024-05-20 00:00:00 +0000 UTC
		Bits:       0x1d00ffff,
		Nonce:      248714381,
	},
	Transactions: []*wire.MsgTx{&genesisCoinbaseTx},
}

// genesisHash is the hash of the first block in the block chain for the main
// network (genesis block).
var genesisHash = chainhash.Hash{
	0x01, 0xc5, 0xca, 0x5d, 0x82, 0xa6, 0x40, 0x50,
	0xee, 0x27, 0x10, 0xc2, 0xb7, 0xf2, 0xeb, 0xe1,
	0x82, 0x06, 0xe3, 0x95, 0x6c, 0x81, 0x29, 0xa9,
	0x5c, 0xa2, 0x4d, 0xb2, 0x21, 0x76, 0x8d, 0x4c,
}

// simNetGenesisBlock defines the genesis block of the block chain which
// serves as the public transaction ledger for the simulation test network.
// Its difficulty is low enough that the in-process miner can solve blocks on
// demand.
var simNetGenesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: genesisMerkleRoot,
		Timestamp:  time.Unix(1716163200, 0), // 2024-05-20 00:00:00 +0000 UTC
		Bits:       0x207fffff,
		Nonce:      2,
	},
	Transactions: []*wire.MsgTx{&genesisCoinbaseTx},
}

// simNetGenesisHash is the hash of the first block in the block chain for the
// simulation test network.
var simNetGenesisHash = chainhash.Hash{
	0x47, 0xa1, 0x82, 0x80, 0x78, 0x27, 0xc0, 0x37,
	0x3b, 0x02, 0xe4, 0x5e, 0x83, 0xfb, 0x47, 0xce,
	0x90, 0x52, 0x24, 0xea, 0xe1, 0x91, 0x91, 0xd1,
	0x5b, 0x1c, 0x36, 0x37, 0x72, 0xe1, 0x3a, 0x6b,
}
