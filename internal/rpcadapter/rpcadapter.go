// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package rpcadapter provides the thin projection of the chain state and
// mempool that the RPC and gossip collaborators consume.  Wire framing,
// method routing, and authentication all belong to those collaborators; the
// adapter only exposes query and submission primitives plus a websocket
// endpoint that pushes chain update notifications.
package rpcadapter

import (
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/embercoin/emberd/blockchain"
	"github.com/embercoin/emberd/chaincfg/chainhash"
	"github.com/embercoin/emberd/wire"
	"github.com/gorilla/websocket"
)

// Adapter projects the chain state for external collaborators.
type Adapter struct {
	chain *blockchain.BlockChain

	// clients holds the websocket connections subscribed to chain update
	// notifications.
	clientsMtx sync.Mutex
	clients    map[*websocket.Conn]struct{}

	upgrader websocket.Upgrader
}

// ChainUpdate is the notification payload pushed to websocket subscribers
// after each committed chain update.
type ChainUpdate struct {
	Hash   string `json:"hash"`
	Height int64  `json:"height"`
}

// New returns an adapter over the passed chain instance.  The adapter
// subscribes to chain updates for the lifetime of the chain.
func New(chain *blockchain.BlockChain) *Adapter {
	a := &Adapter{
		chain:   chain,
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	chain.Subscribe(func(block *wire.MsgBlock) {
		best := chain.BestSnapshot()
		a.broadcast(&ChainUpdate{
			Hash:   best.Hash.String(),
			Height: best.Height,
		})
	})

	return a
}

// GetTip returns the current best chain state.
func (a *Adapter) GetTip() *blockchain.BestState {
	return a.chain.BestSnapshot()
}

// GetBlock returns the block with the given hash.
func (a *Adapter) GetBlock(hash *chainhash.Hash) (*wire.MsgBlock, error) {
	return a.chain.GetBlock(hash)
}

// GetTransaction returns the transaction with the given hash from the
// mempool or the main chain.
func (a *Adapter) GetTransaction(txHash *chainhash.Hash) (*wire.MsgTx, error) {
	return a.chain.GetTransaction(txHash)
}

// GetBalance sums the unspent outputs locked by the passed script.  A nil
// filter sums the entire unspent set.
func (a *Adapter) GetBalance(filterScript []byte) int64 {
	return a.chain.Balance(filterScript)
}

// ListUnspent returns the unspent outputs locked by the passed script.  A
// nil filter returns the entire unspent set.
func (a *Adapter) ListUnspent(filterScript []byte) []blockchain.UnspentOutput {
	return a.chain.ListUnspent(filterScript)
}

// SubmitTransaction decodes a serialized transaction and submits it to the
// mempool.  Codec errors surface to the caller since the submitter is a
// trusted local source, unlike gossip input which is recovered at the
// connection boundary.
func (a *Adapter) SubmitTransaction(serializedTx []byte) (*chainhash.Hash, error) {
	var tx wire.MsgTx
	if err := tx.FromBytes(serializedTx); err != nil {
		return nil, err
	}
	if err := a.chain.AcceptTransaction(&tx); err != nil {
		return nil, err
	}
	txHash := tx.TxHash()
	return &txHash, nil
}

// SubmitBlock decodes a serialized block and submits it to the chain.
func (a *Adapter) SubmitBlock(serializedBlock []byte) (*chainhash.Hash, error) {
	var block wire.MsgBlock
	if err := block.FromBytes(serializedBlock); err != nil {
		return nil, err
	}
	if err := a.chain.ProcessBlock(&block); err != nil {
		return nil, err
	}
	blockHash := block.BlockHash()
	return &blockHash, nil
}

// SubmitTransactionHex is a convenience wrapper over SubmitTransaction for
// collaborators that traffic in hexadecimal.
func (a *Adapter) SubmitTransactionHex(txHex string) (*chainhash.Hash, error) {
	serialized, err := hex.DecodeString(txHex)
	if err != nil {
		return nil, err
	}
	return a.SubmitTransaction(serialized)
}

// ServeNotifications upgrades the request to a websocket connection and
// streams chain update notifications to it until the client goes away.
func (a *Adapter) ServeNotifications(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed to upgrade websocket connection: %v", err)
		return
	}

	a.clientsMtx.Lock()
	a.clients[conn] = struct{}{}
	a.clientsMtx.Unlock()

	// Drain (and discard) client messages so connection level errors are
	// noticed and the entry is reaped.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				a.removeClient(conn)
				return
			}
		}
	}()
}

// removeClient drops the passed connection from the subscriber set.
func (a *Adapter) removeClient(conn *websocket.Conn) {
	a.clientsMtx.Lock()
	if _, ok := a.clients[conn]; ok {
		delete(a.clients, conn)
		conn.Close()
	}
	a.clientsMtx.Unlock()
}

// broadcast pushes the passed update to every websocket subscriber,
// dropping subscribers whose connections fail.
func (a *Adapter) broadcast(update *ChainUpdate) {
	a.clientsMtx.Lock()
	conns := make([]*websocket.Conn, 0, len(a.clients))
	for conn := range a.clients {
		conns = append(conns, conn)
	}
	a.clientsMtx.Unlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(update); err != nil {
			log.Debugf("Dropping notification subscriber: %v", err)
			a.removeClient(conn)
		}
	}
}
