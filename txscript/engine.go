// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/embercoin/emberd/emberutil"
	"github.com/embercoin/emberd/wire"
)

// Engine is the virtual machine that executes scripts.
//
// Execution is a two-pass evaluation against a single main stack of byte
// vectors: the unlocking script (signature script) runs first, then the
// locking script (public key script) runs against the resulting stack.  When
// the locking script is a pay-to-script-hash pattern, the top item left by
// the unlocking script is additionally parsed and executed as the redeem
// script.
type Engine struct {
	scriptSig    []byte
	scriptPubKey []byte
	tx           *wire.MsgTx
	txIdx        int
	sigCache     *SigCache

	// stack is the shared main stack.  The engine has no alt stack.
	stack [][]byte

	// scriptCode is the script committed to by signature hashes for the
	// script currently being executed.
	scriptCode []byte

	// numOps counts the non-push operations executed by the current script
	// in order to enforce MaxOpsPerScript.
	numOps int
}

// NewEngine returns a new script engine for the provided transaction input
// which spends an output locked by scriptPubKey.  The engine does not execute
// until Execute is called.
//
// The sigCache parameter may be nil, in which case signature verification
// results are not cached.
func NewEngine(scriptSig, scriptPubKey []byte, tx *wire.MsgTx, txIdx int, sigCache *SigCache) (*Engine, error) {
	// The provided transaction input index must refer to a valid input.
	if txIdx < 0 || txIdx >= len(tx.TxIn) {
		return nil, scriptError(ErrInvalidIndex, "transaction input "+
			"index %d is negative or >= %d", txIdx, len(tx.TxIn))
	}

	// Scripts larger than the max size are never valid, so there is no
	// point in even attempting execution.
	if len(scriptSig) > MaxScriptSize {
		return nil, scriptError(ErrScriptTooBig, "signature script size "+
			"%d is larger than the max allowed size %d", len(scriptSig),
			MaxScriptSize)
	}
	if len(scriptPubKey) > MaxScriptSize {
		return nil, scriptError(ErrScriptTooBig, "public key script size "+
			"%d is larger than the max allowed size %d",
			len(scriptPubKey), MaxScriptSize)
	}

	return &Engine{
		scriptSig:    scriptSig,
		scriptPubKey: scriptPubKey,
		tx:           tx,
		txIdx:        txIdx,
		sigCache:     sigCache,
	}, nil
}

// Execute runs the engine to completion.  A nil return means the spend is
// authorized: the final stack is non-empty and its top item is true.  Any
// failure during execution, including an unknown opcode, a stack violation,
// or a final false result, is reported as an error; the distinct failure
// kinds are only diagnostic since consensus checks nothing beyond the final
// boolean.
func (vm *Engine) Execute() error {
	// First pass: the unlocking script populates the stack.  Signature
	// hashes always commit to the locking script governing the spend, so
	// that is the script code here as well even though the unlocking
	// script is the one executing.
	sigOps, err := parseScript(vm.scriptSig)
	if err != nil {
		return err
	}
	if err := vm.evalScript(sigOps, vm.scriptPubKey); err != nil {
		return err
	}

	// A pay-to-script-hash locking script redeems with the script whose
	// hash it commits to, so the top item the unlocking script left is
	// both data (hashed by the locking script) and code (executed after
	// the hash matches).
	if IsPayToScriptHash(vm.scriptPubKey) {
		if len(vm.stack) == 0 {
			return scriptError(ErrStackUnderflow, "no redeem script "+
				"on stack for pay-to-script-hash spend")
		}
		redeemScript := vm.stack[len(vm.stack)-1]

		// Snapshot the stack before the locking script consumes the
		// redeem script and its hash comparison result.
		snapshot := make([][]byte, len(vm.stack))
		copy(snapshot, vm.stack)

		pkOps, err := parseScript(vm.scriptPubKey)
		if err != nil {
			return err
		}
		if err := vm.evalScript(pkOps, vm.scriptPubKey); err != nil {
			return err
		}
		if len(vm.stack) == 0 || !asBool(vm.stack[len(vm.stack)-1]) {
			return scriptError(ErrEvalFalse, "script hash does not "+
				"match redeem script")
		}
		vm.stack = vm.stack[:len(vm.stack)-1]

		// Execute the redeem script against the snapshot minus the
		// redeem script itself.
		redeemOps, err := parseScript(redeemScript)
		if err != nil {
			return err
		}
		vm.stack = snapshot[:len(snapshot)-1]
		if err := vm.evalScript(redeemOps, redeemScript); err != nil {
			return err
		}

		return vm.checkFinalState()
	}

	// Second pass: the locking script determines the result.
	pkOps, err := parseScript(vm.scriptPubKey)
	if err != nil {
		return err
	}
	if err := vm.evalScript(pkOps, vm.scriptPubKey); err != nil {
		return err
	}

	return vm.checkFinalState()
}

// checkFinalState verifies the engine stack represents a successful spend:
// non-empty with a true top item.
func (vm *Engine) checkFinalState() error {
	if len(vm.stack) == 0 {
		return scriptError(ErrEvalFalse, "stack empty at end of script "+
			"execution")
	}
	if !asBool(vm.stack[len(vm.stack)-1]) {
		return scriptError(ErrEvalFalse, "script returned false")
	}
	return nil
}

// push places an item on top of the stack while enforcing the maximum stack
// size.
func (vm *Engine) push(item []byte) error {
	if len(vm.stack)+1 > MaxStackSize {
		return scriptError(ErrStackOverflow, "stack size %d exceeds "+
			"the max allowed %d", len(vm.stack)+1, MaxStackSize)
	}
	vm.stack = append(vm.stack, item)
	return nil
}

// pop removes and returns the top stack item.
func (vm *Engine) pop() ([]byte, error) {
	if len(vm.stack) == 0 {
		return nil, scriptError(ErrStackUnderflow, "attempt to pop an "+
			"empty stack")
	}
	item := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return item, nil
}

// evalScript executes the parsed script tokens against the shared stack.
// scriptCode is the raw locking script that signature hashes inside this
// pass commit to: the public key script for the ordinary passes and the
// redeem script for the pay-to-script-hash redeem pass.
func (vm *Engine) evalScript(pops []parsedOpcode, scriptCode []byte) error {
	vm.scriptCode = scriptCode
	vm.numOps = 0

	for i := range pops {
		pop := &pops[i]

		// Non-push operations count towards the per-script limit.
		if !pop.isPush() {
			vm.numOps++
			if vm.numOps > MaxOpsPerScript {
				return scriptError(ErrTooManyOperations, "exceeded "+
					"max operation limit of %d", MaxOpsPerScript)
			}
		}

		if err := vm.executeOpcode(pop); err != nil {
			return err
		}
	}

	return nil
}

// executeOpcode executes a single token.
func (vm *Engine) executeOpcode(pop *parsedOpcode) error {
	op := pop.opcode
	switch {
	case op == OP_0:
		return vm.push(nil)

	case op >= OP_DATA_1 && op <= OP_PUSHDATA4:
		return vm.push(pop.data)

	case op >= OP_1 && op <= OP_16:
		return vm.push([]byte{op - (OP_1 - 1)})

	case op == OP_DUP:
		if len(vm.stack) == 0 {
			return scriptError(ErrStackUnderflow, "OP_DUP requires "+
				"one stack item")
		}
		return vm.push(vm.stack[len(vm.stack)-1])

	case op == OP_HASH160:
		data, err := vm.pop()
		if err != nil {
			return err
		}
		return vm.push(hash160(data))

	case op == OP_EQUAL, op == OP_EQUALVERIFY:
		if len(vm.stack) < 2 {
			return scriptError(ErrStackUnderflow, "%s requires two "+
				"stack items", opcodeName[op])
		}
		a, _ := vm.pop()
		b, _ := vm.pop()
		if err := vm.push(fromBool(bytes.Equal(a, b))); err != nil {
			return err
		}
		if op == OP_EQUALVERIFY {
			return vm.opVerify(op)
		}
		return nil

	case op == OP_VERIFY:
		return vm.opVerify(op)

	case op == OP_CHECKSIG:
		return vm.opCheckSig()

	case op == OP_CHECKMULTISIG:
		return vm.opCheckMultiSig()

	default:
		// OP_RETURN is an output-only marker and is never valid in an
		// executed position, so it falls through to here along with
		// every opcode outside the supported set.
		name, ok := opcodeName[op]
		if !ok {
			name = "unknown"
		}
		return scriptError(ErrBadOpcode, "attempt to execute invalid "+
			"opcode %s (0x%02x)", name, op)
	}
}

// opVerify pops the top stack item and fails if it is not true.
func (vm *Engine) opVerify(op byte) error {
	item, err := vm.pop()
	if err != nil {
		return err
	}
	if !asBool(item) {
		return scriptError(ErrVerifyFailed, "%s failed", opcodeName[op])
	}
	return nil
}

// checkSignature verifies the passed DER signature over the signature hash
// derived from hashType against the passed serialized public key, consulting
// and populating the signature cache when one is associated with the engine.
func (vm *Engine) checkSignature(derSig []byte, hashType SigHashType, pkBytes []byte) bool {
	sigHash, err := CalcSignatureHash(vm.scriptCode, hashType, vm.tx, vm.txIdx)
	if err != nil {
		return false
	}

	signature, err := ecdsa.ParseDERSignature(derSig)
	if err != nil {
		return false
	}
	pubKey, err := secp256k1.ParsePubKey(pkBytes)
	if err != nil {
		return false
	}

	if vm.sigCache != nil {
		if vm.sigCache.Exists(sigHash, signature, pubKey) {
			return true
		}
	}

	if !signature.Verify(sigHash[:], pubKey) {
		return false
	}

	if vm.sigCache != nil {
		vm.sigCache.Add(sigHash, signature, pubKey, vm.tx)
	}
	return true
}

// opCheckSig implements the OP_CHECKSIG contract: pop the public key and
// signature, split the hash type byte off the end of the signature, and push
// the result of ECDSA verification over the derived signature hash.
func (vm *Engine) opCheckSig() error {
	pkBytes, err := vm.pop()
	if err != nil {
		return err
	}
	fullSig, err := vm.pop()
	if err != nil {
		return err
	}

	// An empty signature trivially fails verification rather than
	// aborting the script.
	if len(fullSig) < 1 {
		return vm.push(fromBool(false))
	}

	hashType := SigHashType(fullSig[len(fullSig)-1])
	derSig := fullSig[:len(fullSig)-1]

	return vm.push(fromBool(vm.checkSignature(derSig, hashType, pkBytes)))
}

// opCheckMultiSig implements the OP_CHECKMULTISIG contract: pop the key
// count, that many keys, the signature count, that many signatures, and one
// extra dummy item (the historical off-by-one).  Signatures are matched to
// the keys in script order without reuse, and the result is true when every
// signature found a match.
func (vm *Engine) opCheckMultiSig() error {
	numKeysItem, err := vm.pop()
	if err != nil {
		return err
	}
	numPubKeys := asInt(numKeysItem)
	if numPubKeys < 0 || numPubKeys > MaxPubKeysPerMultiSig {
		return scriptError(ErrInvalidPubKeyCount, "number of pubkeys "+
			"%d is negative or greater than %d", numPubKeys,
			MaxPubKeysPerMultiSig)
	}

	if int64(len(vm.stack)) < numPubKeys {
		return scriptError(ErrStackUnderflow, "stack has %d items, "+
			"need %d pubkeys", len(vm.stack), numPubKeys)
	}
	// Keys pop in reverse script order; reverse so pubKeys is in script
	// order.
	pubKeys := make([][]byte, numPubKeys)
	for i := int(numPubKeys) - 1; i >= 0; i-- {
		pubKeys[i], _ = vm.pop()
	}

	numSigsItem, err := vm.pop()
	if err != nil {
		return err
	}
	numSigs := asInt(numSigsItem)
	if numSigs < 0 || numSigs > numPubKeys {
		return scriptError(ErrInvalidSignatureCount, "number of "+
			"signatures %d is negative or greater than the number of "+
			"pubkeys %d", numSigs, numPubKeys)
	}

	if int64(len(vm.stack)) < numSigs {
		return scriptError(ErrStackUnderflow, "stack has %d items, "+
			"need %d signatures", len(vm.stack), numSigs)
	}
	signatures := make([][]byte, numSigs)
	for i := int(numSigs) - 1; i >= 0; i-- {
		signatures[i], _ = vm.pop()
	}

	// The historical implementation pops one item beyond the counts and
	// ignores it.
	if _, err := vm.pop(); err != nil {
		return err
	}

	// Walk the signatures and keys in script order.  A key that fails to
	// verify a signature is consumed, never revisited, so duplicate
	// signatures by the same key cannot satisfy two slots.
	validCount := 0
	keyIdx := 0
	for _, fullSig := range signatures {
		if len(fullSig) < 1 {
			continue
		}
		hashType := SigHashType(fullSig[len(fullSig)-1])
		derSig := fullSig[:len(fullSig)-1]

		for keyIdx < len(pubKeys) {
			matched := vm.checkSignature(derSig, hashType, pubKeys[keyIdx])
			keyIdx++
			if matched {
				validCount++
				break
			}
		}
	}

	return vm.push(fromBool(int64(validCount) >= numSigs))
}

// hash160 returns ripemd160(sha256(b)).
func hash160(b []byte) []byte {
	return emberutil.Hash160(b)
}

// VerifyScript is a convenience function that executes the passed unlocking
// and locking scripts for the given transaction input in a fresh engine and
// reports whether the spend is authorized.  Callers that need the specific
// failure reason should use NewEngine and Execute directly.
func VerifyScript(scriptSig, scriptPubKey []byte, tx *wire.MsgTx, txIdx int, sigCache *SigCache) bool {
	vm, err := NewEngine(scriptSig, scriptPubKey, tx, txIdx, sigCache)
	if err != nil {
		return false
	}
	return vm.Execute() == nil
}
