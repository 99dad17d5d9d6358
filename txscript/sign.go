// Copyright (c) 2013-2015 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/embercoin/emberd/wire"
)

// RawTxInSignature returns the serialized ECDSA signature for the input idx
// of the given transaction, with hashType appended to it.
func RawTxInSignature(tx *wire.MsgTx, idx int, scriptCode []byte, hashType SigHashType, key *secp256k1.PrivateKey) ([]byte, error) {
	sigHash, err := CalcSignatureHash(scriptCode, hashType, tx, idx)
	if err != nil {
		return nil, err
	}
	signature := ecdsa.Sign(key, sigHash[:])

	return append(signature.Serialize(), byte(hashType)), nil
}

// SignatureScript creates an input signature script for tx to spend coins
// sent from a previous output to the owner of a private key.  tx must include
// all transaction inputs and outputs, however txin scripts are allowed to be
// filled or empty.  The returned script is calculated to be used as the idx'th
// txin sigscript for tx.  scriptCode is the script of the previous output
// being used as the idx'th input.  privKey is serialized in either a
// compressed or uncompressed format based on compress.
func SignatureScript(tx *wire.MsgTx, idx int, scriptCode []byte, hashType SigHashType, privKey *secp256k1.PrivateKey, compress bool) ([]byte, error) {
	sig, err := RawTxInSignature(tx, idx, scriptCode, hashType, privKey)
	if err != nil {
		return nil, err
	}

	pk := privKey.PubKey()
	var pkData []byte
	if compress {
		pkData = pk.SerializeCompressed()
	} else {
		pkData = pk.SerializeUncompressed()
	}

	return NewScriptBuilder().AddData(sig).AddData(pkData).Script()
}
