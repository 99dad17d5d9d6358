// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "encoding/binary"

const (
	// MaxScriptSize is the maximum allowed length in bytes of a script.
	MaxScriptSize = 10000

	// MaxStackSize is the maximum combined number of stack items allowed
	// during execution.
	MaxStackSize = 1000

	// MaxOpsPerScript is the maximum number of non-push operations allowed
	// per script.
	MaxOpsPerScript = 201

	// MaxPubKeysPerMultiSig is the maximum number of public keys allowed
	// in an OP_CHECKMULTISIG operation.
	MaxPubKeysPerMultiSig = 20
)

// parsedOpcode represents a single token resulting from parsing a script.  A
// token is either a data push, in which case data holds the pushed bytes, or
// a bare opcode.
type parsedOpcode struct {
	opcode byte
	data   []byte
}

// isPush returns whether the token pushes data onto the stack.  OP_0 and
// OP_1 through OP_16 are considered push operations since they only push
// small integers.
func (pop *parsedOpcode) isPush() bool {
	switch {
	case pop.opcode <= OP_PUSHDATA4:
		return true
	case pop.opcode >= OP_1 && pop.opcode <= OP_16:
		return true
	}
	return false
}

// parseScript parses the raw script bytes into a slice of tokens.  Each byte
// is interpreted left to right as either a data push, in which case the
// indicated number of following bytes belong to the token, or a bare opcode.
//
// Data pushes that extend past the end of the script make the entire script
// unparseable and return ErrBadOpcode.  Opcodes outside the supported set
// are accepted by the parser and rejected later during execution so that the
// unexecuted branches of scripts do not poison parsing, matching the
// consensus behavior of only checking the final result.
func parseScript(script []byte) ([]parsedOpcode, error) {
	if len(script) > MaxScriptSize {
		return nil, scriptError(ErrScriptTooBig, "script of size %d "+
			"exceeds max allowed size %d", len(script), MaxScriptSize)
	}

	retScript := make([]parsedOpcode, 0, len(script))
	for i := 0; i < len(script); {
		op := script[i]
		i++

		switch {
		// Direct small data push: the opcode is the number of bytes to
		// push.
		case op >= OP_DATA_1 && op <= OP_DATA_75:
			n := int(op)
			if i+n > len(script) {
				return nil, scriptError(ErrBadOpcode,
					"opcode %d pushes %d bytes, but script only "+
						"has %d remaining", op, n, len(script)-i)
			}
			retScript = append(retScript, parsedOpcode{op, script[i : i+n]})
			i += n

		case op == OP_PUSHDATA1:
			if i+1 > len(script) {
				return nil, scriptError(ErrBadOpcode,
					"OP_PUSHDATA1 is missing its length byte")
			}
			n := int(script[i])
			i++
			if i+n > len(script) {
				return nil, scriptError(ErrBadOpcode,
					"OP_PUSHDATA1 pushes %d bytes, but script only "+
						"has %d remaining", n, len(script)-i)
			}
			retScript = append(retScript, parsedOpcode{op, script[i : i+n]})
			i += n

		case op == OP_PUSHDATA2:
			if i+2 > len(script) {
				return nil, scriptError(ErrBadOpcode,
					"OP_PUSHDATA2 is missing its length bytes")
			}
			n := int(binary.LittleEndian.Uint16(script[i : i+2]))
			i += 2
			if i+n > len(script) {
				return nil, scriptError(ErrBadOpcode,
					"OP_PUSHDATA2 pushes %d bytes, but script only "+
						"has %d remaining", n, len(script)-i)
			}
			retScript = append(retScript, parsedOpcode{op, script[i : i+n]})
			i += n

		case op == OP_PUSHDATA4:
			if i+4 > len(script) {
				return nil, scriptError(ErrBadOpcode,
					"OP_PUSHDATA4 is missing its length bytes")
			}
			n := int(binary.LittleEndian.Uint32(script[i : i+4]))
			i += 4
			if n < 0 || i+n > len(script) {
				return nil, scriptError(ErrBadOpcode,
					"OP_PUSHDATA4 pushes %d bytes, but script only "+
						"has %d remaining", n, len(script)-i)
			}
			retScript = append(retScript, parsedOpcode{op, script[i : i+n]})
			i += n

		default:
			retScript = append(retScript, parsedOpcode{opcode: op})
		}
	}

	return retScript, nil
}

// IsPushOnlyScript returns whether or not the passed script only pushes data.
// Unparseable scripts are not push only.
func IsPushOnlyScript(script []byte) bool {
	pops, err := parseScript(script)
	if err != nil {
		return false
	}
	for i := range pops {
		if !pops[i].isPush() {
			return false
		}
	}
	return true
}

// IsPayToScriptHash returns true if the script is in the standard
// pay-to-script-hash (P2SH) format, false otherwise.  The script hash
// pattern is matched on the raw bytes, so the script must be exactly
// OP_HASH160 <20-byte push> OP_EQUAL.
func IsPayToScriptHash(script []byte) bool {
	return len(script) == 23 &&
		script[0] == OP_HASH160 &&
		script[1] == OP_DATA_20 &&
		script[22] == OP_EQUAL
}

// ExtractScriptHash extracts the script hash from the passed script if it is
// a standard pay-to-script-hash script.  It will return nil otherwise.
func ExtractScriptHash(script []byte) []byte {
	if IsPayToScriptHash(script) {
		return script[2:22]
	}
	return nil
}

// IsUnspendable returns whether the passed public key script is unspendable.
// An output whose script begins with OP_RETURN can provably never be spent
// and must never enter the unspent output set.
func IsUnspendable(pkScript []byte) bool {
	return len(pkScript) > 0 && pkScript[0] == OP_RETURN
}

// asBool gets the boolean value of the byte array.  An empty array and an
// array of all zero bytes are false; anything else is true.
func asBool(t []byte) bool {
	for _, b := range t {
		if b != 0 {
			return true
		}
	}
	return false
}

// asInt interprets the byte array as a little-endian signed integer of
// variable length.  An empty array is zero.  This format is used by the
// interpreter for the multisig key and signature counts.
func asInt(v []byte) int64 {
	if len(v) == 0 {
		return 0
	}

	var result int64
	for i, val := range v {
		result |= int64(val) << uint8(8*i)
	}

	// When the most significant byte of the input has the sign bit set,
	// the result is negative.  Clear the sign bit from the result and
	// negate it.
	if v[len(v)-1]&0x80 != 0 {
		result &= ^(int64(0x80) << uint8(8*(len(v)-1)))
		return -result
	}

	return result
}

// fromBool converts a boolean into the appropriate byte array for pushing
// onto the stack.
func fromBool(v bool) []byte {
	if v {
		return []byte{0x01}
	}
	return []byte{0x00}
}
