// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

// These constants are the values of the embercoin script opcodes.  The
// interpreter supports a closed subset of the historical bitcoin opcode
// space; any byte outside of this set fails script execution with
// ErrBadOpcode.
const (
	OP_0         = 0x00 // 0
	OP_FALSE     = 0x00 // 0 - AKA OP_0
	OP_DATA_1    = 0x01 // 1
	OP_DATA_2    = 0x02 // 2
	OP_DATA_3    = 0x03 // 3
	OP_DATA_4    = 0x04 // 4
	OP_DATA_5    = 0x05 // 5
	OP_DATA_6    = 0x06 // 6
	OP_DATA_7    = 0x07 // 7
	OP_DATA_8    = 0x08 // 8
	OP_DATA_9    = 0x09 // 9
	OP_DATA_10   = 0x0a // 10
	OP_DATA_11   = 0x0b // 11
	OP_DATA_12   = 0x0c // 12
	OP_DATA_13   = 0x0d // 13
	OP_DATA_14   = 0x0e // 14
	OP_DATA_15   = 0x0f // 15
	OP_DATA_16   = 0x10 // 16
	OP_DATA_17   = 0x11 // 17
	OP_DATA_18   = 0x12 // 18
	OP_DATA_19   = 0x13 // 19
	OP_DATA_20   = 0x14 // 20
	OP_DATA_21   = 0x15 // 21
	OP_DATA_22   = 0x16 // 22
	OP_DATA_23   = 0x17 // 23
	OP_DATA_24   = 0x18 // 24
	OP_DATA_25   = 0x19 // 25
	OP_DATA_26   = 0x1a // 26
	OP_DATA_27   = 0x1b // 27
	OP_DATA_28   = 0x1c // 28
	OP_DATA_29   = 0x1d // 29
	OP_DATA_30   = 0x1e // 30
	OP_DATA_31   = 0x1f // 31
	OP_DATA_32   = 0x20 // 32
	OP_DATA_33   = 0x21 // 33
	OP_DATA_34   = 0x22 // 34
	OP_DATA_35   = 0x23 // 35
	OP_DATA_36   = 0x24 // 36
	OP_DATA_37   = 0x25 // 37
	OP_DATA_38   = 0x26 // 38
	OP_DATA_39   = 0x27 // 39
	OP_DATA_40   = 0x28 // 40
	OP_DATA_41   = 0x29 // 41
	OP_DATA_42   = 0x2a // 42
	OP_DATA_43   = 0x2b // 43
	OP_DATA_44   = 0x2c // 44
	OP_DATA_45   = 0x2d // 45
	OP_DATA_46   = 0x2e // 46
	OP_DATA_47   = 0x2f // 47
	OP_DATA_48   = 0x30 // 48
	OP_DATA_49   = 0x31 // 49
	OP_DATA_50   = 0x32 // 50
	OP_DATA_51   = 0x33 // 51
	OP_DATA_52   = 0x34 // 52
	OP_DATA_53   = 0x35 // 53
	OP_DATA_54   = 0x36 // 54
	OP_DATA_55   = 0x37 // 55
	OP_DATA_56   = 0x38 // 56
	OP_DATA_57   = 0x39 // 57
	OP_DATA_58   = 0x3a // 58
	OP_DATA_59   = 0x3b // 59
	OP_DATA_60   = 0x3c // 60
	OP_DATA_61   = 0x3d // 61
	OP_DATA_62   = 0x3e // 62
	OP_DATA_63   = 0x3f // 63
	OP_DATA_64   = 0x40 // 64
	OP_DATA_65   = 0x41 // 65
	OP_DATA_66   = 0x42 // 66
	OP_DATA_67   = 0x43 // 67
	OP_DATA_68   = 0x44 // 68
	OP_DATA_69   = 0x45 // 69
	OP_DATA_70   = 0x46 // 70
	OP_DATA_71   = 0x47 // 71
	OP_DATA_72   = 0x48 // 72
	OP_DATA_73   = 0x49 // 73
	OP_DATA_74   = 0x4a // 74
	OP_DATA_75   = 0x4b // 75
	OP_PUSHDATA1 = 0x4c // 76
	OP_PUSHDATA2 = 0x4d // 77
	OP_PUSHDATA4 = 0x4e // 78

	OP_1    = 0x51 // 81 - AKA OP_TRUE
	OP_TRUE = 0x51 // 81
	OP_2    = 0x52 // 82
	OP_3    = 0x53 // 83
	OP_4    = 0x54 // 84
	OP_5    = 0x55 // 85
	OP_6    = 0x56 // 86
	OP_7    = 0x57 // 87
	OP_8    = 0x58 // 88
	OP_9    = 0x59 // 89
	OP_10   = 0x5a // 90
	OP_11   = 0x5b // 91
	OP_12   = 0x5c // 92
	OP_13   = 0x5d // 93
	OP_14   = 0x5e // 94
	OP_15   = 0x5f // 95
	OP_16   = 0x60 // 96

	OP_VERIFY = 0x69 // 105
	OP_RETURN = 0x6a // 106
	OP_DUP    = 0x76 // 118

	OP_EQUAL       = 0x87 // 135
	OP_EQUALVERIFY = 0x88 // 136

	OP_HASH160       = 0xa9 // 169
	OP_CHECKSIG      = 0xac // 172
	OP_CHECKMULTISIG = 0xae // 174
)

// opcodeName holds the human-readable names for the supported opcodes, used
// in error messages and disassembly.
var opcodeName = map[byte]string{
	OP_0:             "OP_0",
	OP_PUSHDATA1:     "OP_PUSHDATA1",
	OP_PUSHDATA2:     "OP_PUSHDATA2",
	OP_PUSHDATA4:     "OP_PUSHDATA4",
	OP_1:             "OP_1",
	OP_2:             "OP_2",
	OP_3:             "OP_3",
	OP_4:             "OP_4",
	OP_5:             "OP_5",
	OP_6:             "OP_6",
	OP_7:             "OP_7",
	OP_8:             "OP_8",
	OP_9:             "OP_9",
	OP_10:            "OP_10",
	OP_11:            "OP_11",
	OP_12:            "OP_12",
	OP_13:            "OP_13",
	OP_14:            "OP_14",
	OP_15:            "OP_15",
	OP_16:            "OP_16",
	OP_VERIFY:        "OP_VERIFY",
	OP_RETURN:        "OP_RETURN",
	OP_DUP:           "OP_DUP",
	OP_EQUAL:         "OP_EQUAL",
	OP_EQUALVERIFY:   "OP_EQUALVERIFY",
	OP_HASH160:       "OP_HASH160",
	OP_CHECKSIG:      "OP_CHECKSIG",
	OP_CHECKMULTISIG: "OP_CHECKMULTISIG",
}
