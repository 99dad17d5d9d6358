// Copyright (c) 2017 The btcsuite developers
// Copyright (c) 2018-2020 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package netsync implements a concurrency safe block syncing protocol.

The provided implementation of SyncManager communicates with connected peers
through the narrow Peer interface: the gossip overlay owns the sockets,
framing, and peer lifecycle and calls into the manager with decoded
messages.  The manager negotiates the download window with block locators,
fetches announced inventory, buffers blocks that arrive before their
parents, and commits everything to the chain in height order.  Requests that
make no progress are re-issued with a fresh locator after a timeout, and a
disconnecting peer only cancels its own in-flight requests — buffered blocks
are retained since another peer can still complete the gap.
*/
package netsync
