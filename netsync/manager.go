// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"errors"
	"sync"
	"time"

	"github.com/decred/dcrd/container/apbf"
	"github.com/decred/dcrd/lru"
	"github.com/embercoin/emberd/blockchain"
	"github.com/embercoin/emberd/chaincfg/chainhash"
	"github.com/embercoin/emberd/wire"
)

const (
	// maxInvPerRequest is the maximum number of blocks requested from a
	// single inventory announcement.
	maxInvPerRequest = 500

	// maxOrphanBlocks is the maximum number of out-of-order blocks
	// buffered while waiting for their parents.
	maxOrphanBlocks = 500

	// stallTimeout is the duration after which an in-flight request with
	// no progress is abandoned and re-issued with a fresh locator.
	stallTimeout = 30 * time.Second

	// stallSampleInterval is how often the stall detector examines the
	// progress of the sync peer.
	stallSampleInterval = 5 * time.Second

	// maxKnownInventory is the bound of the duplicate-inventory filter.
	// Matching items in inventory announced to the node are silently
	// ignored, which is what makes repeated gossip delivery idempotent.
	// Inventory the node sends is not checked against the filter.
	maxKnownInventory = 50000

	// maxRejectedTxns is the number of recently rejected transaction
	// hashes tracked to avoid revalidating the same garbage.
	maxRejectedTxns = 1000
)

// Peer represents a remote peer from the point of view of the sync manager.
// The gossip overlay owns the sockets and framing; the manager only pushes
// protocol messages through this interface.
type Peer interface {
	// Addr returns a human-readable identifier for the peer.
	Addr() string

	// KnownHeight returns the best block height the peer claims to have.
	KnownHeight() int64

	// PushGetBlocks sends a getblocks message with the passed locator.
	PushGetBlocks(locator []chainhash.Hash, hashStop *chainhash.Hash) error

	// PushGetData requests the passed inventory.
	PushGetData(invVects []*wire.InvVect) error

	// PushInv advertises the passed inventory.
	PushInv(invVects []*wire.InvVect) error

	// PushBlock delivers a block to the peer.
	PushBlock(block *wire.MsgBlock) error

	// PushTx delivers a transaction to the peer.
	PushTx(tx *wire.MsgTx) error
}

// syncState identifies where a peer sync is in its lifecycle.
type syncState int

const (
	// syncStateIdle indicates no sync is in progress.
	syncStateIdle syncState = iota

	// syncStateRequesting indicates a getblocks request is outstanding
	// and the matching inventory has not arrived yet.
	syncStateRequesting

	// syncStateDownloading indicates block data requests are in flight.
	syncStateDownloading
)

// Config holds the configuration options related to the sync manager.
type Config struct {
	// Chain is the chain instance blocks and transactions are committed
	// to.
	Chain *blockchain.BlockChain
}

// SyncManager coordinates the initial block download against a single sync
// peer and funnels gossiped blocks and transactions into the chain.  Blocks
// arriving before their parents are buffered and connected in height order
// once the gap fills.
//
// The manager is driven entirely by the On* callbacks the gossip overlay
// invokes from its message dispatcher, plus an internal stall timer.
type SyncManager struct {
	cfg Config

	mtx          sync.Mutex
	state        syncState
	syncPeer     Peer
	lastProgress time.Time

	// requestedBlocks tracks the block hashes requested via getdata that
	// have not arrived yet.
	requestedBlocks map[chainhash.Hash]struct{}

	// orphans buffers blocks whose parents have not connected, keyed by
	// block hash, with the secondary index mapping a missing parent hash
	// to the orphans waiting on it.
	orphans       map[chainhash.Hash]*wire.MsgBlock
	orphansByPrev map[chainhash.Hash][]chainhash.Hash

	// knownInventory suppresses duplicate processing of inventory
	// announced by peers; outgoing inventory is not filtered.
	knownInventory *apbf.Filter

	// rejectedTxns caches recently rejected transaction hashes.
	rejectedTxns lru.Cache

	wg   sync.WaitGroup
	quit chan struct{}
}

// New returns a new sync manager for the given configuration.  Use Start to
// begin the stall detector.
func New(cfg *Config) *SyncManager {
	return &SyncManager{
		cfg:             *cfg,
		requestedBlocks: make(map[chainhash.Hash]struct{}),
		orphans:         make(map[chainhash.Hash]*wire.MsgBlock),
		orphansByPrev:   make(map[chainhash.Hash][]chainhash.Hash),
		knownInventory:  apbf.NewFilter(maxKnownInventory, 0.0001),
		rejectedTxns:    lru.NewCache(maxRejectedTxns),
		quit:            make(chan struct{}),
	}
}

// Start launches the stall detector.
func (m *SyncManager) Start() {
	m.wg.Add(1)
	go m.stallHandler()
}

// Stop shuts down the stall detector and waits for it to finish.
func (m *SyncManager) Stop() {
	close(m.quit)
	m.wg.Wait()
}

// stallHandler periodically checks whether the sync peer has made progress
// and re-issues the block request with a fresh locator when it has not.
func (m *SyncManager) stallHandler() {
	defer m.wg.Done()

	ticker := time.NewTicker(stallSampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mtx.Lock()
			stalled := m.state != syncStateIdle &&
				time.Since(m.lastProgress) > stallTimeout
			peer := m.syncPeer
			m.mtx.Unlock()

			if stalled && peer != nil {
				log.Warnf("Sync peer %s stalled, re-requesting blocks",
					peer.Addr())
				m.requestBlocks(peer)
			}

		case <-m.quit:
			return
		}
	}
}

// StartSync begins downloading blocks from the passed peer when it claims
// more cumulative chain than is available locally.  It is a no-op when the
// local chain is already caught up to the peer.
func (m *SyncManager) StartSync(peer Peer) {
	best := m.cfg.Chain.BestSnapshot()
	if peer.KnownHeight() <= best.Height {
		return
	}

	m.mtx.Lock()
	m.syncPeer = peer
	m.mtx.Unlock()

	log.Infof("Syncing to block height %d from peer %v",
		peer.KnownHeight(), peer.Addr())
	m.requestBlocks(peer)
}

// requestBlocks sends a getblocks request with a locator for the current
// tip and moves the sync into the requesting state.
func (m *SyncManager) requestBlocks(peer Peer) {
	locator := m.cfg.Chain.BlockLocatorFromTip()
	if err := peer.PushGetBlocks(locator, &chainhash.Hash{}); err != nil {
		log.Errorf("Failed to push getblocks to %s: %v", peer.Addr(), err)
		return
	}

	m.mtx.Lock()
	m.state = syncStateRequesting
	m.lastProgress = time.Now()
	m.mtx.Unlock()
}

// invKey produces the key used in the duplicate-inventory filter.
func invKey(iv *wire.InvVect) []byte {
	key := make([]byte, 4+chainhash.HashSize)
	key[0] = byte(iv.Type)
	key[1] = byte(iv.Type >> 8)
	key[2] = byte(iv.Type >> 16)
	key[3] = byte(iv.Type >> 24)
	copy(key[4:], iv.Hash[:])
	return key
}

// OnInv handles inv messages: unknown blocks and transactions announced by
// the peer are fetched with getdata.  Announcements already seen recently
// are ignored, making duplicate delivery idempotent.
func (m *SyncManager) OnInv(peer Peer, msg *wire.MsgInv) {
	gdInv := make([]*wire.InvVect, 0, len(msg.InvList))
	m.mtx.Lock()
	for _, iv := range msg.InvList {
		key := invKey(iv)
		if m.knownInventory.Contains(key) {
			continue
		}

		switch iv.Type {
		case wire.InvTypeBlock:
			if m.cfg.Chain.HaveBlock(&iv.Hash) {
				continue
			}
			if _, ok := m.orphans[iv.Hash]; ok {
				continue
			}
			if _, ok := m.requestedBlocks[iv.Hash]; ok {
				continue
			}
			if len(gdInv) >= maxInvPerRequest {
				continue
			}
			m.requestedBlocks[iv.Hash] = struct{}{}
			m.knownInventory.Add(key)
			gdInv = append(gdInv, iv)

		case wire.InvTypeTx:
			if m.cfg.Chain.HaveTransaction(&iv.Hash) {
				continue
			}
			if m.rejectedTxns.Contains(iv.Hash) {
				continue
			}
			m.knownInventory.Add(key)
			gdInv = append(gdInv, iv)
		}
	}
	requestingBlocks := len(m.requestedBlocks) > 0
	m.mtx.Unlock()

	if len(gdInv) == 0 {
		return
	}
	if err := peer.PushGetData(gdInv); err != nil {
		log.Errorf("Failed to push getdata to %s: %v", peer.Addr(), err)
		return
	}

	if requestingBlocks {
		m.mtx.Lock()
		m.state = syncStateDownloading
		m.lastProgress = time.Now()
		m.mtx.Unlock()
	}
}

// OnBlock handles a block delivered by a peer.  Blocks without a known
// parent are buffered until the parent connects; everything else is
// committed to the chain, after which any buffered descendants connect in
// height order.
func (m *SyncManager) OnBlock(peer Peer, block *wire.MsgBlock) {
	blockHash := block.BlockHash()

	m.mtx.Lock()
	delete(m.requestedBlocks, blockHash)
	m.lastProgress = time.Now()
	m.mtx.Unlock()

	// Buffer blocks that arrived before their parent.  The parent is
	// either still in flight or available from another peer later; the
	// buffered block survives peer disconnects.
	if !m.cfg.Chain.HaveBlock(&block.Header.PrevBlock) {
		m.addOrphan(block)
		return
	}

	if !m.processBlock(peer, block) {
		return
	}
	m.processOrphans(blockHash)
	m.maybeFinishSync(peer)
}

// processBlock commits a block to the chain and reports whether it was
// accepted.  Duplicates count as accepted for the purposes of continuing
// with buffered descendants.
func (m *SyncManager) processBlock(peer Peer, block *wire.MsgBlock) bool {
	err := m.cfg.Chain.ProcessBlock(block)
	switch {
	case err == nil:
		return true

	case errors.Is(err, blockchain.ErrDuplicateBlock):
		return true

	case errors.Is(err, blockchain.ErrOrphan):
		// Raced with a reorg of the parent lookup; buffer it.
		m.addOrphan(block)
		return false

	default:
		// Validation failure: the block is rejected and the chain is
		// untouched.  Scoring the peer down is the gossip layer's
		// concern.
		log.Warnf("Rejected block %v from %s: %v", block.BlockHash(),
			peer.Addr(), err)
		return false
	}
}

// addOrphan buffers a block whose parent is not yet known.
func (m *SyncManager) addOrphan(block *wire.MsgBlock) {
	blockHash := block.BlockHash()
	prevHash := block.Header.PrevBlock

	m.mtx.Lock()
	defer m.mtx.Unlock()

	if _, ok := m.orphans[blockHash]; ok {
		return
	}
	if len(m.orphans) >= maxOrphanBlocks {
		log.Debugf("Orphan buffer full, dropping block %v", blockHash)
		return
	}
	m.orphans[blockHash] = block
	m.orphansByPrev[prevHash] = append(m.orphansByPrev[prevHash], blockHash)
	log.Debugf("Buffered orphan block %v (parent %v, %d buffered)",
		blockHash, prevHash, len(m.orphans))
}

// processOrphans connects any buffered blocks that descend from the passed
// hash, cascading through the buffer in height order.
func (m *SyncManager) processOrphans(connectedHash chainhash.Hash) {
	work := []chainhash.Hash{connectedHash}
	for len(work) > 0 {
		parentHash := work[0]
		work = work[1:]

		m.mtx.Lock()
		children := m.orphansByPrev[parentHash]
		delete(m.orphansByPrev, parentHash)
		blocks := make([]*wire.MsgBlock, 0, len(children))
		for _, childHash := range children {
			if block, ok := m.orphans[childHash]; ok {
				delete(m.orphans, childHash)
				blocks = append(blocks, block)
			}
		}
		m.mtx.Unlock()

		for _, block := range blocks {
			err := m.cfg.Chain.ProcessBlock(block)
			if err != nil && !errors.Is(err, blockchain.ErrDuplicateBlock) {
				log.Warnf("Rejected buffered block %v: %v",
					block.BlockHash(), err)
				continue
			}
			work = append(work, block.BlockHash())
		}
	}
}

// maybeFinishSync transitions back to idle once the local chain has caught
// up with the sync peer, or requests the next batch when it has not and no
// requests remain in flight.
func (m *SyncManager) maybeFinishSync(peer Peer) {
	m.mtx.Lock()
	if m.state == syncStateIdle {
		m.mtx.Unlock()
		return
	}
	inFlight := len(m.requestedBlocks)
	m.mtx.Unlock()

	best := m.cfg.Chain.BestSnapshot()
	if best.Height >= peer.KnownHeight() {
		m.mtx.Lock()
		m.state = syncStateIdle
		m.syncPeer = nil
		m.mtx.Unlock()
		log.Infof("Sync complete at height %d", best.Height)
		return
	}

	if inFlight == 0 {
		// The batch is exhausted but the peer has more; negotiate the
		// next window.
		m.requestBlocks(peer)
	}
}

// OnTx handles a transaction delivered by a peer by submitting it to the
// mempool.  Rejected transactions are remembered so repeated delivery does
// not trigger revalidation.
func (m *SyncManager) OnTx(peer Peer, tx *wire.MsgTx) {
	txHash := tx.TxHash()

	m.mtx.Lock()
	rejected := m.rejectedTxns.Contains(txHash)
	m.mtx.Unlock()
	if rejected {
		return
	}

	if err := m.cfg.Chain.AcceptTransaction(tx); err != nil {
		m.mtx.Lock()
		m.rejectedTxns.Add(txHash)
		m.mtx.Unlock()
		log.Debugf("Rejected transaction %v from %s: %v", txHash,
			peer.Addr(), err)
	}
}

// OnGetBlocks answers a getblocks request with an inv naming up to 500 main
// chain block hashes following the first locator entry found in the main
// chain.
func (m *SyncManager) OnGetBlocks(peer Peer, msg *wire.MsgGetBlocks) {
	locator := make([]chainhash.Hash, 0, len(msg.BlockLocatorHashes))
	for _, hash := range msg.BlockLocatorHashes {
		locator = append(locator, *hash)
	}

	var hashStop *chainhash.Hash
	if msg.HashStop != (chainhash.Hash{}) {
		hashStop = &msg.HashStop
	}

	hashes := m.cfg.Chain.MainChainAfter(locator, hashStop,
		maxInvPerRequest)
	if len(hashes) == 0 {
		return
	}

	invVects := make([]*wire.InvVect, 0, len(hashes))
	for i := range hashes {
		invVects = append(invVects,
			wire.NewInvVect(wire.InvTypeBlock, &hashes[i]))
	}
	if err := peer.PushInv(invVects); err != nil {
		log.Errorf("Failed to push inv to %s: %v", peer.Addr(), err)
	}
}

// OnGetData answers a getdata request by delivering the requested blocks
// and transactions the node has.  Unknown items are silently skipped; the
// notfound handling belongs to the gossip layer.
func (m *SyncManager) OnGetData(peer Peer, msg *wire.MsgGetData) {
	for _, iv := range msg.InvList {
		switch iv.Type {
		case wire.InvTypeBlock:
			block, err := m.cfg.Chain.GetBlock(&iv.Hash)
			if err != nil {
				continue
			}
			if err := peer.PushBlock(block); err != nil {
				log.Errorf("Failed to push block to %s: %v",
					peer.Addr(), err)
				return
			}

		case wire.InvTypeTx:
			tx, err := m.cfg.Chain.GetTransaction(&iv.Hash)
			if err != nil {
				continue
			}
			if err := peer.PushTx(tx); err != nil {
				log.Errorf("Failed to push transaction to %s: %v",
					peer.Addr(), err)
				return
			}
		}
	}
}

// DonePeer cancels the in-flight requests associated with the passed peer
// when it disconnects.  Buffered orphan blocks are retained: they may still
// connect when delivered by, or filled in from, another peer.
func (m *SyncManager) DonePeer(peer Peer) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.syncPeer != peer {
		return
	}
	m.syncPeer = nil
	m.state = syncStateIdle
	m.requestedBlocks = make(map[chainhash.Hash]struct{})
	log.Infof("Lost sync peer %s, in-flight requests cancelled",
		peer.Addr())
}

// OrphanCount returns the number of buffered out-of-order blocks.
func (m *SyncManager) OrphanCount() int {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return len(m.orphans)
}
