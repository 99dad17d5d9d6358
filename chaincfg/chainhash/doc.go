// Copyright (c) 2015 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package chainhash provides abstracted hash functionality.

This package provides a generic hash type and associated functions that allows
the specific hash algorithm to be abstracted.  Embercoin uses double sha256 for
block and transaction identity.
*/
package chainhash
