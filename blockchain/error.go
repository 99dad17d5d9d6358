// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

// ErrorKind identifies a kind of error.  It has full support for errors.Is
// and errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific RuleError.
const (
	// ------------------------------------------
	// Errors related to transaction validation.
	// ------------------------------------------

	// ErrNoTxInputs indicates a transaction does not have any inputs.
	ErrNoTxInputs = ErrorKind("ErrNoTxInputs")

	// ErrNoTxOutputs indicates a transaction does not have any outputs.
	ErrNoTxOutputs = ErrorKind("ErrNoTxOutputs")

	// ErrTxTooBig indicates a transaction exceeds the maximum allowed size
	// when serialized.
	ErrTxTooBig = ErrorKind("ErrTxTooBig")

	// ErrBadTxOutValue indicates an output value for a transaction is
	// invalid in some way such as being out of range.
	ErrBadTxOutValue = ErrorKind("ErrBadTxOutValue")

	// ErrSpendTooHigh indicates a transaction is attempting to spend more
	// value than the sum of all of its inputs.
	ErrSpendTooHigh = ErrorKind("ErrSpendTooHigh")

	// ErrMissingTxOut indicates a transaction references an output which
	// does not exist in the unspent output set.
	ErrMissingTxOut = ErrorKind("ErrMissingTxOut")

	// ErrImmatureSpend indicates a transaction is attempting to spend a
	// coinbase that has not yet reached the required maturity.
	ErrImmatureSpend = ErrorKind("ErrImmatureSpend")

	// ErrBadCoinbaseScriptLen indicates the length of the signature script
	// for a coinbase transaction is not within the valid range.
	ErrBadCoinbaseScriptLen = ErrorKind("ErrBadCoinbaseScriptLen")

	// ErrUnfinalizedTx indicates a transaction has not reached the height
	// or time required by its lock time.
	ErrUnfinalizedTx = ErrorKind("ErrUnfinalizedTx")

	// ErrScriptValidation indicates the result of executing a transaction
	// input script failed.
	ErrScriptValidation = ErrorKind("ErrScriptValidation")

	// ErrDoubleSpend indicates a transaction is attempting to spend an
	// output that was already spent, either by an earlier transaction in
	// the same block or by a conflicting unconfirmed transaction.
	ErrDoubleSpend = ErrorKind("ErrDoubleSpend")

	// ErrDuplicateTx indicates a transaction is already known, either in
	// the mempool or confirmed in the main chain.
	ErrDuplicateTx = ErrorKind("ErrDuplicateTx")

	// ErrUnexpectedCoinbase indicates a coinbase transaction showed up
	// somewhere other than the first position of a block, such as being
	// submitted to the mempool on its own.
	ErrUnexpectedCoinbase = ErrorKind("ErrUnexpectedCoinbase")

	// ------------------------------------------
	// Errors related to block validation.
	// ------------------------------------------

	// ErrBadPrevHash indicates a block's previous block hash field does
	// not reference the expected block.
	ErrBadPrevHash = ErrorKind("ErrBadPrevHash")

	// ErrTimeTooNew indicates a block's timestamp is too far in the
	// future.
	ErrTimeTooNew = ErrorKind("ErrTimeTooNew")

	// ErrBlockVersionTooOld indicates a block's version is no longer
	// accepted.
	ErrBlockVersionTooOld = ErrorKind("ErrBlockVersionTooOld")

	// ErrHighHash indicates a block's hash does not satisfy the target
	// difficulty encoded by its bits field.
	ErrHighHash = ErrorKind("ErrHighHash")

	// ErrBadMerkleRoot indicates the calculated merkle root does not match
	// the expected value in the block header.
	ErrBadMerkleRoot = ErrorKind("ErrBadMerkleRoot")

	// ErrNoTransactions indicates a block does not have at least one
	// transaction.  A valid block must have at least the coinbase
	// transaction.
	ErrNoTransactions = ErrorKind("ErrNoTransactions")

	// ErrFirstTxNotCoinbase indicates the first transaction in a block is
	// not a coinbase transaction.
	ErrFirstTxNotCoinbase = ErrorKind("ErrFirstTxNotCoinbase")

	// ErrMultipleCoinbases indicates a block contains more than one
	// coinbase transaction.
	ErrMultipleCoinbases = ErrorKind("ErrMultipleCoinbases")

	// ErrBadCoinbaseValue indicates the amount generated by a coinbase
	// transaction is invalid, either because it has no outputs, a
	// non-positive first output, or pays more than the subsidy plus the
	// fees of the transactions in its block.
	ErrBadCoinbaseValue = ErrorKind("ErrBadCoinbaseValue")

	// ------------------------------------------
	// Errors related to the chain itself.
	// ------------------------------------------

	// ErrOrphan indicates the parent of a block is not known to the block
	// index.  Out-of-order delivery is the responsibility of the sync
	// layer, which buffers such blocks until the parent connects.
	ErrOrphan = ErrorKind("ErrOrphan")

	// ErrDuplicateBlock indicates a block with the same hash already
	// exists in the block index.
	ErrDuplicateBlock = ErrorKind("ErrDuplicateBlock")

	// ErrDuplicateGenesis indicates an attempt to create a second genesis
	// block.
	ErrDuplicateGenesis = ErrorKind("ErrDuplicateGenesis")

	// ErrReorgStateInconsistent indicates a reorganization could not be
	// unwound after a failure partway through.  It is indicative of a
	// consensus bug and is fatal: the chain state can no longer be
	// trusted, so the node must halt.
	ErrReorgStateInconsistent = ErrorKind("ErrReorgStateInconsistent")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// RuleError identifies a rule violation.  It is used to indicate that
// processing of a block or transaction failed due to one of the many
// validation rules.  The caller can use type assertions to determine if a
// failure was specifically due to a rule violation and use the Err field to
// access the underlying error, which will be either an ErrorKind.
type RuleError struct {
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e RuleError) Unwrap() error {
	return e.Err
}

// ruleError creates a RuleError given a set of arguments.
func ruleError(kind ErrorKind, desc string) RuleError {
	return RuleError{Err: kind, Description: desc}
}
