// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2020 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/embercoin/emberd/chaincfg/chainhash"
)

// testBlock returns a block with a single coinbase transaction and fixed
// header fields for use throughout the block serialization tests.
func testBlock() *MsgBlock {
	prevHash, _ := chainhash.NewHashFromStr("01")
	merkleRoot := coinbaseTx().TxHash()
	header := BlockHeader{
		Version:    1,
		PrevBlock:  *prevHash,
		MerkleRoot: merkleRoot,
		Timestamp:  time.Unix(0x66462f80, 0),
		Bits:       0x1d00ffff,
		Nonce:      0x9962e301,
	}
	block := NewMsgBlock(&header)
	block.AddTransaction(coinbaseTx())
	return block
}

// TestBlockHeaderSerialize ensures the header serialization is exactly 80
// bytes and round-trips.
func TestBlockHeaderSerialize(t *testing.T) {
	header := &testBlock().Header

	var buf bytes.Buffer
	if err := header.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if buf.Len() != blockHeaderLen {
		t.Fatalf("Serialize: got %d bytes, want %d", buf.Len(),
			blockHeaderLen)
	}

	var decoded BlockHeader
	if err := decoded.Deserialize(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !reflect.DeepEqual(&decoded, header) {
		t.Fatalf("Deserialize:\n got: %s want: %s", spew.Sdump(&decoded),
			spew.Sdump(header))
	}

	// The block hash is the double sha256 of the 80 header bytes.
	wantHash := chainhash.DoubleHashH(buf.Bytes())
	if got := header.BlockHash(); got != wantHash {
		t.Fatalf("BlockHash: got %v, want %v", got, wantHash)
	}
}

// TestBlockSerialize tests block serialize and deserialize round-trips along
// with rejection of trailing data.
func TestBlockSerialize(t *testing.T) {
	block := testBlock()

	var buf bytes.Buffer
	if err := block.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if got := block.SerializeSize(); got != buf.Len() {
		t.Fatalf("SerializeSize: got %d, want %d", got, buf.Len())
	}

	// Round trip.
	var decoded MsgBlock
	if err := decoded.FromBytes(buf.Bytes()); err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	var reencoded bytes.Buffer
	if err := decoded.Serialize(&reencoded); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !bytes.Equal(reencoded.Bytes(), buf.Bytes()) {
		t.Fatalf("round trip mismatch:\n got: %s want: %s",
			spew.Sdump(reencoded.Bytes()), spew.Sdump(buf.Bytes()))
	}

	// Any bytes after the final transaction are an error.
	withTrailing := append(buf.Bytes(), 0xde, 0xad)
	err := decoded.FromBytes(withTrailing)
	if !errors.Is(err, ErrTrailingBytes) {
		t.Fatalf("FromBytes: unexpected error %v", err)
	}

	// Truncated streams are an error at every split point.
	for i := 0; i < buf.Len(); i++ {
		var short MsgBlock
		err := short.Deserialize(bytes.NewReader(buf.Bytes()[:i]))
		if !errors.Is(err, ErrTruncatedStream) {
			t.Fatalf("Deserialize with %d bytes: unexpected error %v",
				i, err)
		}
	}
}

// TestBlockTxHashes ensures transaction hash generation over a block works.
func TestBlockTxHashes(t *testing.T) {
	block := testBlock()
	hashes := block.TxHashes()
	if len(hashes) != 1 {
		t.Fatalf("TxHashes: got %d hashes, want 1", len(hashes))
	}
	if hashes[0] != coinbaseTxID {
		t.Fatalf("TxHashes: got %v, want %v", hashes[0], coinbaseTxID)
	}
}

// TestBlockOverflowErrors ensures decoding blocks that claim an absurd number
// of transactions returns the expected error.
func TestBlockOverflowErrors(t *testing.T) {
	block := testBlock()
	var buf bytes.Buffer
	if err := block.Header.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	// Claim ~uint64(0) transactions follow.
	buf.Write([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})

	var decoded MsgBlock
	err := decoded.Deserialize(bytes.NewReader(buf.Bytes()))
	if !errors.Is(err, ErrTooManyTxs) {
		t.Fatalf("Deserialize: unexpected error %v", err)
	}
}
