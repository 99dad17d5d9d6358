// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2020 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/embercoin/emberd/chaincfg/chainhash"
)

const (
	// MaxVarIntPayload is the maximum payload size for a variable length
	// integer.
	MaxVarIntPayload = 9
)

// littleEndian is a convenience variable since binary.LittleEndian is quite
// long.
var littleEndian = binary.LittleEndian

// readBytes reads exactly len(buf) bytes from r, converting a short read into
// a truncated stream error so callers can discriminate it from other IO
// failures.
func readBytes(op string, r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		str := fmt.Sprintf("unexpected end of stream while reading %d bytes",
			len(buf))
		return messageError(op, ErrTruncatedStream, str)
	}
	return err
}

// readUint32 reads a little-endian uint32 from r.
func readUint32(op string, r io.Reader) (uint32, error) {
	var buf [4]byte
	if err := readBytes(op, r, buf[:]); err != nil {
		return 0, err
	}
	return littleEndian.Uint32(buf[:]), nil
}

// writeUint32 writes a little-endian uint32 to w.
func writeUint32(w io.Writer, val uint32) error {
	var buf [4]byte
	littleEndian.PutUint32(buf[:], val)
	_, err := w.Write(buf[:])
	return err
}

// readUint64 reads a little-endian uint64 from r.
func readUint64(op string, r io.Reader) (uint64, error) {
	var buf [8]byte
	if err := readBytes(op, r, buf[:]); err != nil {
		return 0, err
	}
	return littleEndian.Uint64(buf[:]), nil
}

// writeUint64 writes a little-endian uint64 to w.
func writeUint64(w io.Writer, val uint64) error {
	var buf [8]byte
	littleEndian.PutUint64(buf[:], val)
	_, err := w.Write(buf[:])
	return err
}

// readHash reads a 32-byte hash from r in internal byte order.
func readHash(op string, r io.Reader, hash *chainhash.Hash) error {
	return readBytes(op, r, hash[:])
}

// writeHash writes a 32-byte hash to w in internal byte order.
func writeHash(w io.Writer, hash *chainhash.Hash) error {
	_, err := w.Write(hash[:])
	return err
}

// ReadVarInt reads a variable length integer from r and returns it as a
// uint64.
func ReadVarInt(r io.Reader, pver uint32) (uint64, error) {
	var buf [1]byte
	if err := readBytes("ReadVarInt", r, buf[:]); err != nil {
		return 0, err
	}
	discriminant := buf[0]

	var rv uint64
	switch discriminant {
	case 0xff:
		sv, err := readUint64("ReadVarInt", r)
		if err != nil {
			return 0, err
		}
		rv = sv

		// The encoding is not canonical if the value could have been
		// encoded using fewer bytes.
		min := uint64(0x100000000)
		if rv < min {
			return 0, messageError("ReadVarInt", ErrVarIntOverflow,
				nonCanonicalVarIntStr(rv, discriminant, min))
		}

	case 0xfe:
		sv, err := readUint32("ReadVarInt", r)
		if err != nil {
			return 0, err
		}
		rv = uint64(sv)

		min := uint64(0x10000)
		if rv < min {
			return 0, messageError("ReadVarInt", ErrVarIntOverflow,
				nonCanonicalVarIntStr(rv, discriminant, min))
		}

	case 0xfd:
		var sbuf [2]byte
		if err := readBytes("ReadVarInt", r, sbuf[:]); err != nil {
			return 0, err
		}
		rv = uint64(littleEndian.Uint16(sbuf[:]))

		min := uint64(0xfd)
		if rv < min {
			return 0, messageError("ReadVarInt", ErrVarIntOverflow,
				nonCanonicalVarIntStr(rv, discriminant, min))
		}

	default:
		rv = uint64(discriminant)
	}

	return rv, nil
}

// nonCanonicalVarIntStr returns the description for a non-canonically encoded
// variable length integer.
func nonCanonicalVarIntStr(rv uint64, discriminant byte, min uint64) string {
	return fmt.Sprintf("non-canonical varint %x - discriminant %x must "+
		"encode a value of at least %x", rv, discriminant, min)
}

// WriteVarInt serializes val to w using a variable number of bytes depending
// on its value.
func WriteVarInt(w io.Writer, pver uint32, val uint64) error {
	if val < 0xfd {
		_, err := w.Write([]byte{uint8(val)})
		return err
	}

	if val <= 0xffff {
		var buf [3]byte
		buf[0] = 0xfd
		littleEndian.PutUint16(buf[1:], uint16(val))
		_, err := w.Write(buf[:])
		return err
	}

	if val <= 0xffffffff {
		var buf [5]byte
		buf[0] = 0xfe
		littleEndian.PutUint32(buf[1:], uint32(val))
		_, err := w.Write(buf[:])
		return err
	}

	var buf [9]byte
	buf[0] = 0xff
	littleEndian.PutUint64(buf[1:], val)
	_, err := w.Write(buf[:])
	return err
}

// writeVarIntCount serializes the passed count to w.  Counts originate as
// signed integers in several of the message structures, so negative values
// are rejected here rather than silently wrapping around.
func writeVarIntCount(w io.Writer, pver uint32, count int) error {
	if count < 0 {
		str := fmt.Sprintf("count %d may not be negative", count)
		return messageError("writeVarIntCount", ErrNegativeCount, str)
	}
	return WriteVarInt(w, pver, uint64(count))
}

// VarIntSerializeSize returns the number of bytes it would take to serialize
// val as a variable length integer.
func VarIntSerializeSize(val uint64) int {
	// The value is small enough to be represented by itself, so it's
	// just 1 byte.
	if val < 0xfd {
		return 1
	}

	// Discriminant 1 byte plus 2 bytes for the uint16.
	if val <= 0xffff {
		return 3
	}

	// Discriminant 1 byte plus 4 bytes for the uint32.
	if val <= 0xffffffff {
		return 5
	}

	// Discriminant 1 byte plus 8 bytes for the uint64.
	return 9
}

// ReadVarBytes reads a variable length byte array.  A byte array is encoded
// as a varInt containing the length of the array followed by the bytes
// themselves.  An error is returned if the length is greater than the passed
// maxAllowed parameter which helps protect against memory exhaustion attacks
// and forced panics through malformed messages.
func ReadVarBytes(r io.Reader, pver uint32, maxAllowed uint32, fieldName string) ([]byte, error) {
	count, err := ReadVarInt(r, pver)
	if err != nil {
		return nil, err
	}

	// Prevent byte array larger than the max message size.  It would
	// be possible to cause memory exhaustion and panics without a sane
	// upper bound on this count.
	if count > uint64(maxAllowed) {
		str := fmt.Sprintf("%s is larger than the max allowed size "+
			"[count %d, max %d]", fieldName, count, maxAllowed)
		return nil, messageError("ReadVarBytes", ErrVarBytesTooLong, str)
	}

	b := make([]byte, count)
	if err := readBytes("ReadVarBytes", r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// WriteVarBytes serializes a variable length byte array to w as a varInt
// containing the number of bytes, followed by the bytes themselves.
func WriteVarBytes(w io.Writer, pver uint32, bytes []byte) error {
	err := WriteVarInt(w, pver, uint64(len(bytes)))
	if err != nil {
		return err
	}

	_, err = w.Write(bytes)
	return err
}
