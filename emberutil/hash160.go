// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2015 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package emberutil

import (
	"hash"

	"github.com/decred/dcrd/crypto/ripemd160"
	"github.com/embercoin/emberd/chaincfg/chainhash"
)

// calcHash calculates the hash of the provided bytes using the specified hash
// function.
func calcHash(buf []byte, hasher hash.Hash) []byte {
	hasher.Write(buf)
	return hasher.Sum(nil)
}

// Hash160 calculates the hash ripemd160(sha256(b)).
func Hash160(buf []byte) []byte {
	return calcHash(chainhash.HashB(buf), ripemd160.New())
}
