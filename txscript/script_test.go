// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"errors"
	"testing"
)

// TestParseScript ensures the script tokenizer accepts well-formed scripts
// and rejects malformed data pushes.
func TestParseScript(t *testing.T) {
	tests := []struct {
		name    string
		script  []byte
		numOps  int
		wantErr error
	}{{
		name:   "empty script",
		script: nil,
		numOps: 0,
	}, {
		name:   "p2pkh shape",
		script: append(append([]byte{OP_DUP, OP_HASH160, OP_DATA_20}, make([]byte, 20)...), OP_EQUALVERIFY, OP_CHECKSIG),
		numOps: 5,
	}, {
		name:   "pushdata1",
		script: append([]byte{OP_PUSHDATA1, 0x03}, []byte{0x01, 0x02, 0x03}...),
		numOps: 1,
	}, {
		name:   "pushdata2",
		script: append([]byte{OP_PUSHDATA2, 0x02, 0x00}, []byte{0x01, 0x02}...),
		numOps: 1,
	}, {
		name:   "pushdata4",
		script: append([]byte{OP_PUSHDATA4, 0x01, 0x00, 0x00, 0x00}, 0xaa),
		numOps: 1,
	}, {
		name:    "direct push past end of script",
		script:  []byte{OP_DATA_5, 0x01},
		wantErr: ErrBadOpcode,
	}, {
		name:    "pushdata1 missing length",
		script:  []byte{OP_PUSHDATA1},
		wantErr: ErrBadOpcode,
	}, {
		name:    "pushdata2 short data",
		script:  []byte{OP_PUSHDATA2, 0xff, 0x00, 0x01},
		wantErr: ErrBadOpcode,
	}, {
		name:    "script too large",
		script:  make([]byte, MaxScriptSize+1),
		wantErr: ErrScriptTooBig,
	}}

	for _, test := range tests {
		pops, err := parseScript(test.script)
		if !errors.Is(err, test.wantErr) {
			t.Errorf("%s: unexpected error - got %v, want %v", test.name,
				err, test.wantErr)
			continue
		}
		if err == nil && len(pops) != test.numOps {
			t.Errorf("%s: unexpected number of tokens - got %d, want %d",
				test.name, len(pops), test.numOps)
		}
	}
}

// TestScriptBuilderPushData ensures the script builder produces the shortest
// possible data push for every size class.
func TestScriptBuilderPushData(t *testing.T) {
	data76 := bytes.Repeat([]byte{0x49}, 76)
	data256 := bytes.Repeat([]byte{0x49}, 256)
	data65536 := bytes.Repeat([]byte{0x49}, 65536)

	tests := []struct {
		name     string
		data     []byte
		expected []byte
		useFull  bool // use AddFullData instead of AddData.
	}{{
		name:     "push empty byte sequence",
		data:     nil,
		expected: []byte{OP_0},
	}, {
		name:     "push 1 byte 0x00",
		data:     []byte{0x00},
		expected: []byte{OP_0},
	}, {
		name:     "push 1 byte 0x10",
		data:     []byte{0x10},
		expected: []byte{OP_16},
	}, {
		name:     "push 1 byte 0x11",
		data:     []byte{0x11},
		expected: []byte{OP_DATA_1, 0x11},
	}, {
		name:     "push 75 bytes",
		data:     bytes.Repeat([]byte{0x49}, 75),
		expected: append([]byte{OP_DATA_75}, bytes.Repeat([]byte{0x49}, 75)...),
	}, {
		name:     "push data len 76",
		data:     data76,
		expected: append([]byte{OP_PUSHDATA1, 76}, data76...),
	}, {
		name:     "push data len 256",
		data:     data256,
		expected: append([]byte{OP_PUSHDATA2, 0x00, 0x01}, data256...),
	}, {
		name:     "push data len 65536",
		data:     data65536,
		expected: append([]byte{OP_PUSHDATA4, 0x00, 0x00, 0x01, 0x00}, data65536...),
		useFull:  true,
	}}

	builder := NewScriptBuilder()
	for _, test := range tests {
		builder.Reset()
		if test.useFull {
			builder.AddFullData(test.data)
		} else {
			builder.AddData(test.data)
		}
		result, err := builder.Script()
		if err != nil {
			t.Errorf("%s: unexpected error: %v", test.name, err)
			continue
		}
		if !bytes.Equal(result, test.expected) {
			t.Errorf("%s: unexpected result - got %x, want %x",
				test.name, result, test.expected)
		}
	}
}

// TestPayToScriptHashDetection ensures the pay-to-script-hash pattern is
// matched exactly.
func TestPayToScriptHashDetection(t *testing.T) {
	redeemScript := []byte{OP_1}
	p2sh, err := PayToScriptHashScript(redeemScript)
	if err != nil {
		t.Fatalf("PayToScriptHashScript: %v", err)
	}
	if !IsPayToScriptHash(p2sh) {
		t.Error("IsPayToScriptHash: generated script not detected")
	}
	if got := ExtractScriptHash(p2sh); len(got) != 20 {
		t.Errorf("ExtractScriptHash: got %d bytes, want 20", len(got))
	}

	// Any deviation from the exact pattern is not P2SH.
	notP2SH := [][]byte{
		nil,
		{OP_HASH160},
		append(append([]byte{OP_HASH160, OP_DATA_21}, make([]byte, 21)...), OP_EQUAL),
		append(append([]byte{OP_HASH160, OP_DATA_20}, make([]byte, 20)...), OP_EQUALVERIFY),
	}
	for i, script := range notP2SH {
		if IsPayToScriptHash(script) {
			t.Errorf("IsPayToScriptHash #%d: false positive", i)
		}
	}
}

// TestIsUnspendable ensures provably unspendable outputs are detected.
func TestIsUnspendable(t *testing.T) {
	nullData, err := NullDataScript([]byte("arbitrary data"))
	if err != nil {
		t.Fatalf("NullDataScript: %v", err)
	}

	tests := []struct {
		pkScript []byte
		expected bool
	}{
		{nullData, true},
		{[]byte{OP_RETURN}, true},
		{nil, false},
		{[]byte{OP_TRUE}, false},
	}

	for i, test := range tests {
		if got := IsUnspendable(test.pkScript); got != test.expected {
			t.Errorf("IsUnspendable #%d: got %v, want %v", i, got,
				test.expected)
		}
	}
}

// TestAsInt ensures the little-endian signed number decoding used by the
// interpreter behaves correctly including the negative encodings.
func TestAsInt(t *testing.T) {
	tests := []struct {
		in   []byte
		want int64
	}{
		{nil, 0},
		{[]byte{0x01}, 1},
		{[]byte{0x14}, 20},
		{[]byte{0x81}, -1},
		{[]byte{0xff, 0x00}, 255},
		{[]byte{0xff, 0x80}, -255},
		{[]byte{0x00, 0x01}, 256},
	}

	for i, test := range tests {
		if got := asInt(test.in); got != test.want {
			t.Errorf("asInt #%d (%x): got %d, want %d", i, test.in,
				got, test.want)
		}
	}
}

// TestAsBool ensures stack items convert to booleans per the empty/all-zero
// rule.
func TestAsBool(t *testing.T) {
	tests := []struct {
		in   []byte
		want bool
	}{
		{nil, false},
		{[]byte{0x00}, false},
		{[]byte{0x00, 0x00}, false},
		{[]byte{0x01}, true},
		{[]byte{0x00, 0x01}, true},
	}

	for i, test := range tests {
		if got := asBool(test.in); got != test.want {
			t.Errorf("asBool #%d (%x): got %v, want %v", i, test.in,
				got, test.want)
		}
	}
}

// TestGetScriptClass ensures standard scripts are classified correctly.
func TestGetScriptClass(t *testing.T) {
	pubKey := make([]byte, 33)
	pubKey[0] = 0x02
	p2pk, _ := PayToPubKeyScript(pubKey)
	p2pkh, _ := PayToPubKeyHashScript(make([]byte, 20))
	p2sh, _ := PayToScriptHashScript([]byte{OP_1})
	multisig, _ := MultiSigScript(1, pubKey)
	nullData, _ := NullDataScript([]byte{0x01})

	tests := []struct {
		script []byte
		class  ScriptClass
	}{
		{p2pk, PubKeyTy},
		{p2pkh, PubKeyHashTy},
		{p2sh, ScriptHashTy},
		{multisig, MultiSigTy},
		{nullData, NullDataTy},
		{[]byte{OP_TRUE}, NonStandardTy},
	}

	for i, test := range tests {
		if got := GetScriptClass(test.script); got != test.class {
			t.Errorf("GetScriptClass #%d: got %v, want %v", i, got,
				test.class)
		}
	}
}
