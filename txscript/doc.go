// Copyright (c) 2013-2015 The btcsuite developers
// Copyright (c) 2015-2019 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package txscript implements the embercoin transaction script language.

The interpreter is a two-pass stack machine over byte vectors: the unlocking
script of the input being validated executes first, then the locking script
of the output being spent executes against the resulting stack, with an
additional redeem script pass for pay-to-script-hash spends.  The opcode
alphabet is a closed subset of the historical bitcoin opcode space; executing
anything outside of it fails the script.

This package also provides the signature hash calculation that ECDSA
signatures commit to, script builders for the standard payment forms
(pay-to-pubkey, pay-to-pubkey-hash, multisig, and pay-to-script-hash), input
signing helpers, and a verification cache that short-circuits repeated checks
of the same signature.

# Errors

Errors returned by this package are of type txscript.Error wrapping a
txscript.ErrorKind, so the specific failure can be detected with the standard
errors.Is function.  Script execution failures are ordinary, expected events
and consensus only cares about the final boolean result; the distinct kinds
exist for diagnostics.
*/
package txscript
