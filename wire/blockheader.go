// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2020 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"
	"time"

	"github.com/embercoin/emberd/chaincfg/chainhash"
)

// MaxBlockHeaderPayload is the maximum number of bytes a block header can be.
// Version 4 bytes + PrevBlock and MerkleRoot hashes + Timestamp 4 bytes +
// Bits 4 bytes + Nonce 4 bytes.
const MaxBlockHeaderPayload = 16 + (chainhash.HashSize * 2)

// BlockHeader defines information about a block and is used in the embercoin
// block (MsgBlock) message.
type BlockHeader struct {
	// Version of the block.  This is not the same as the protocol version.
	Version int32

	// Hash of the previous block in the block chain.
	PrevBlock chainhash.Hash

	// Merkle tree reference to hash of all transactions for the block.
	MerkleRoot chainhash.Hash

	// Time the block was created.  This is, unfortunately, encoded as a
	// uint32 on the wire and therefore is limited to 2106.
	Timestamp time.Time

	// Difficulty target for the block.
	Bits uint32

	// Nonce used to generate the block.
	Nonce uint32
}

// blockHeaderLen is a constant that represents the number of bytes for a block
// header.
const blockHeaderLen = 80

// BlockHash computes the block identifier hash for the given block header.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	// Encode the header and double sha256 everything prior to the number
	// of transactions.  Ignore the error returns since there is no way the
	// encode could fail except being out of memory which would cause a
	// run-time panic.
	buf := bytes.NewBuffer(make([]byte, 0, MaxBlockHeaderPayload))
	_ = writeBlockHeader(buf, 0, h)

	return chainhash.DoubleHashH(buf.Bytes())
}

// BtcDecode decodes r using the wire protocol encoding into the receiver.
// This is part of the Message interface implementation.
// See Deserialize for decoding block headers stored to disk, such as in a
// database, as opposed to decoding block headers from the wire.
func (h *BlockHeader) BtcDecode(r io.Reader, pver uint32) error {
	return readBlockHeader(r, pver, h)
}

// BtcEncode encodes the receiver to w using the wire protocol encoding.
// This is part of the Message interface implementation.
// See Serialize for encoding block headers to be stored to disk, such as in a
// database, as opposed to encoding block headers for the wire.
func (h *BlockHeader) BtcEncode(w io.Writer, pver uint32) error {
	return writeBlockHeader(w, pver, h)
}

// Deserialize decodes a block header from r into the receiver using a format
// that is suitable for long-term storage such as a database while respecting
// the Version field.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	// At the current time, there is no difference between the wire encoding
	// and the stable long-term storage format.  As a result, make use of
	// readBlockHeader.
	return readBlockHeader(r, 0, h)
}

// Serialize encodes the receiver to w using a format
// that is suitable for long-term storage such as a database while respecting
// the Version field.
func (h *BlockHeader) Serialize(w io.Writer) error {
	// At the current time, there is no difference between the wire encoding
	// and the stable long-term storage format.  As a result, make use of
	// writeBlockHeader.
	return writeBlockHeader(w, 0, h)
}

// Bytes returns the serialized block header, which is always exactly 80
// bytes.
func (h *BlockHeader) Bytes() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, MaxBlockHeaderPayload))
	_ = h.Serialize(buf)
	return buf.Bytes()
}

// NewBlockHeader returns a new BlockHeader using the provided previous block
// hash, merkle root hash, difficulty bits, and nonce with the timestamp set
// to the current time truncated to one second precision, which the wire
// encoding requires.
func NewBlockHeader(prevHash *chainhash.Hash, merkleRootHash *chainhash.Hash,
	bits uint32, nonce uint32) *BlockHeader {

	return &BlockHeader{
		Version:    1,
		PrevBlock:  *prevHash,
		MerkleRoot: *merkleRootHash,
		Timestamp:  time.Unix(time.Now().Unix(), 0),
		Bits:       bits,
		Nonce:      nonce,
	}
}

// readBlockHeader reads an embercoin block header from r.
func readBlockHeader(r io.Reader, pver uint32, bh *BlockHeader) error {
	version, err := readUint32("readBlockHeader", r)
	if err != nil {
		return err
	}
	bh.Version = int32(version)

	if err := readHash("readBlockHeader", r, &bh.PrevBlock); err != nil {
		return err
	}
	if err := readHash("readBlockHeader", r, &bh.MerkleRoot); err != nil {
		return err
	}

	timestamp, err := readUint32("readBlockHeader", r)
	if err != nil {
		return err
	}
	bh.Timestamp = time.Unix(int64(timestamp), 0)

	bh.Bits, err = readUint32("readBlockHeader", r)
	if err != nil {
		return err
	}

	bh.Nonce, err = readUint32("readBlockHeader", r)
	return err
}

// writeBlockHeader writes an embercoin block header to w.
func writeBlockHeader(w io.Writer, pver uint32, bh *BlockHeader) error {
	if err := writeUint32(w, uint32(bh.Version)); err != nil {
		return err
	}
	if err := writeHash(w, &bh.PrevBlock); err != nil {
		return err
	}
	if err := writeHash(w, &bh.MerkleRoot); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(bh.Timestamp.Unix())); err != nil {
		return err
	}
	if err := writeUint32(w, bh.Bits); err != nil {
		return err
	}
	return writeUint32(w, bh.Nonce)
}
