// Copyright (c) 2014 The btcsuite developers
// Copyright (c) 2015-2019 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines chain configuration parameters.
//
// In addition to the main embercoin network, which is intended for the
// transfer of monetary value, there is the simulation test network whose
// proof of work difficulty is low enough that blocks can be solved on demand
// by the in-process miner.  Rather than duplicating the parameter values
// throughout the codebase, callers accept a *chaincfg.Params and all
// consensus decisions flow from it.
package chaincfg
