// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2015-2020 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package wire implements the embercoin wire protocol.

This package deals with the bit-exact serialization of the data structures
that make up the consensus contract (transactions, block headers, blocks, and
inventory style messages) along with the variable length integer ("compact
size") encoding they share.

All integers are encoded little endian.  Hashes are encoded in internal byte
order; the byte-reversed form commonly shown to humans is strictly a display
concern handled by chainhash.Hash.String.

# Errors

Errors returned by this package are of type wire.MessageError wrapping a
wire.ErrorKind, so the specific failure (truncated stream, trailing bytes,
varint overflow, ...) can be detected with the standard errors.Is function.
*/
package wire
