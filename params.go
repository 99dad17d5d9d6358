// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2019 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import "github.com/embercoin/emberd/chaincfg"

// params is used to group parameters for various networks such as the main
// network and simulation test network.
type params struct {
	*chaincfg.Params
	rpcPort string
}

// mainNetParams contains parameters specific to the main network.  The RPC
// port is intentionally different from the reference implementation ports.
var mainNetParams = params{
	Params:  &chaincfg.MainNetParams,
	rpcPort: "9338",
}

// simNetParams contains parameters specific to the simulation test network.
var simNetParams = params{
	Params:  &chaincfg.SimNetParams,
	rpcPort: "19338",
}

// activeNetParams is a pointer to the parameters specific to the currently
// active network.
var activeNetParams = &mainNetParams
