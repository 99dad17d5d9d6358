// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"github.com/embercoin/emberd/emberutil"
)

// ScriptClass is an enumeration for the list of standard types of script.
type ScriptClass byte

// Classes of script payment known about in the blockchain.
const (
	NonStandardTy ScriptClass = iota // None of the recognized forms.
	PubKeyTy                         // Pay to pubkey.
	PubKeyHashTy                     // Pay to pubkey hash.
	ScriptHashTy                     // Pay to script hash.
	MultiSigTy                       // Multi signature.
	NullDataTy                       // Empty data-only (provably prunable).
)

var scriptClassToName = []string{
	NonStandardTy: "nonstandard",
	PubKeyTy:      "pubkey",
	PubKeyHashTy:  "pubkeyhash",
	ScriptHashTy:  "scripthash",
	MultiSigTy:    "multisig",
	NullDataTy:    "nulldata",
}

// String implements the Stringer interface by returning the name of the enum
// script class.  If the enum is invalid then "Invalid" will be returned.
func (t ScriptClass) String() string {
	if int(t) >= len(scriptClassToName) || int(t) < 0 {
		return "Invalid"
	}
	return scriptClassToName[t]
}

// ExtractPubKeyHash extracts the public key hash from the passed script if it
// is a standard pay-to-pubkey-hash script.  It will return nil otherwise.
func ExtractPubKeyHash(script []byte) []byte {
	// A pay-to-pubkey-hash script is of the form:
	//  OP_DUP OP_HASH160 <20-byte hash> OP_EQUALVERIFY OP_CHECKSIG
	if len(script) == 25 &&
		script[0] == OP_DUP &&
		script[1] == OP_HASH160 &&
		script[2] == OP_DATA_20 &&
		script[23] == OP_EQUALVERIFY &&
		script[24] == OP_CHECKSIG {

		return script[3:23]
	}

	return nil
}

// ExtractPubKey extracts either a compressed or uncompressed public key from
// the passed script if it is a standard pay-to-pubkey script.  It will
// return nil otherwise.
func ExtractPubKey(script []byte) []byte {
	// A pay-to-compressed-pubkey script is of the form:
	//  OP_DATA_33 <33-byte compressed pubkey> OP_CHECKSIG
	if len(script) == 35 &&
		script[34] == OP_CHECKSIG &&
		script[0] == OP_DATA_33 &&
		(script[1] == 0x02 || script[1] == 0x03) {

		return script[1:34]
	}

	// A pay-to-uncompressed-pubkey script is of the form:
	//  OP_DATA_65 <65-byte uncompressed pubkey> OP_CHECKSIG
	if len(script) == 67 &&
		script[66] == OP_CHECKSIG &&
		script[0] == OP_DATA_65 &&
		script[1] == 0x04 {

		return script[1:66]
	}

	return nil
}

// isMultisigScript returns whether or not the passed script is a standard
// multisig script.
func isMultisigScript(pops []parsedOpcode) bool {
	// The absolute minimum is 1 pubkey:
	//  OP_0/OP_1-16 <pubkey> OP_1 OP_CHECKMULTISIG
	l := len(pops)
	if l < 4 {
		return false
	}
	if !isSmallInt(pops[0].opcode) {
		return false
	}
	if !isSmallInt(pops[l-2].opcode) {
		return false
	}
	if pops[l-1].opcode != OP_CHECKMULTISIG {
		return false
	}

	// Verify the number of pubkeys specified matches the actual number
	// of pubkeys provided.
	if l-2-1 != asSmallInt(pops[l-2].opcode) {
		return false
	}

	for _, pop := range pops[1 : l-2] {
		// Valid pubkeys are either 33 or 65 bytes.
		if len(pop.data) != 33 && len(pop.data) != 65 {
			return false
		}
	}
	return true
}

// isSmallInt returns whether or not the opcode is considered a small integer,
// which is an OP_0, or OP_1 through OP_16.
func isSmallInt(op byte) bool {
	return op == OP_0 || (op >= OP_1 && op <= OP_16)
}

// asSmallInt returns the passed opcode, which must be true according to
// isSmallInt, as an integer.
func asSmallInt(op byte) int {
	if op == OP_0 {
		return 0
	}
	return int(op - (OP_1 - 1))
}

// GetScriptClass returns the class of the script passed.
//
// NonStandardTy will be returned when the script does not parse.
func GetScriptClass(script []byte) ScriptClass {
	switch {
	case ExtractPubKey(script) != nil:
		return PubKeyTy
	case ExtractPubKeyHash(script) != nil:
		return PubKeyHashTy
	case IsPayToScriptHash(script):
		return ScriptHashTy
	case IsUnspendable(script):
		return NullDataTy
	}

	pops, err := parseScript(script)
	if err != nil {
		return NonStandardTy
	}
	if isMultisigScript(pops) {
		return MultiSigTy
	}
	return NonStandardTy
}

// PayToPubKeyScript creates a new script to pay a transaction output to the
// passed serialized public key.
func PayToPubKeyScript(serializedPubKey []byte) ([]byte, error) {
	return NewScriptBuilder().AddData(serializedPubKey).
		AddOp(OP_CHECKSIG).Script()
}

// PayToPubKeyHashScript creates a new script to pay a transaction output to
// the passed public key hash.  The hash must be exactly 20 bytes.
func PayToPubKeyHashScript(pubKeyHash []byte) ([]byte, error) {
	if len(pubKeyHash) != 20 {
		return nil, scriptError(ErrBadOpcode, "pubkey hash must be 20 "+
			"bytes, got %d", len(pubKeyHash))
	}
	return NewScriptBuilder().AddOp(OP_DUP).AddOp(OP_HASH160).
		AddData(pubKeyHash).AddOp(OP_EQUALVERIFY).AddOp(OP_CHECKSIG).
		Script()
}

// PayToPubKeyHashScriptForKey is a convenience function that hashes the
// passed serialized public key and generates a pay-to-pubkey-hash script for
// the result.
func PayToPubKeyHashScriptForKey(serializedPubKey []byte) ([]byte, error) {
	return PayToPubKeyHashScript(emberutil.Hash160(serializedPubKey))
}

// PayToScriptHashScript creates a new script to pay a transaction output to
// the hash of the passed redeem script.
func PayToScriptHashScript(redeemScript []byte) ([]byte, error) {
	return NewScriptBuilder().AddOp(OP_HASH160).
		AddData(emberutil.Hash160(redeemScript)).AddOp(OP_EQUAL).Script()
}

// MultiSigScript returns a valid script for a multisignature redemption where
// nrequired of the keys in the passed serialized public keys are required to
// have signed the transaction for success.
func MultiSigScript(nrequired int, pubKeys ...[]byte) ([]byte, error) {
	if len(pubKeys) < nrequired {
		return nil, scriptError(ErrInvalidSignatureCount, "unable to "+
			"generate multisig script with %d required signatures and "+
			"%d public keys", nrequired, len(pubKeys))
	}
	if len(pubKeys) > MaxPubKeysPerMultiSig {
		return nil, scriptError(ErrInvalidPubKeyCount, "unable to "+
			"generate multisig script with %d public keys which is "+
			"more than the max of %d", len(pubKeys),
			MaxPubKeysPerMultiSig)
	}

	builder := NewScriptBuilder().AddInt64(int64(nrequired))
	for _, key := range pubKeys {
		builder.AddData(key)
	}
	builder.AddInt64(int64(len(pubKeys)))
	builder.AddOp(OP_CHECKMULTISIG)

	return builder.Script()
}

// NullDataScript creates a provably prunable script containing OP_RETURN
// followed by the passed data.
func NullDataScript(data []byte) ([]byte, error) {
	return NewScriptBuilder().AddOp(OP_RETURN).AddData(data).Script()
}
