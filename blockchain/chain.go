// Copyright (c) 2013-2018 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/embercoin/emberd/chaincfg"
	"github.com/embercoin/emberd/chaincfg/chainhash"
	"github.com/embercoin/emberd/txscript"
	"github.com/embercoin/emberd/wire"
)

// NotificationCallback is a callback function registered via Subscribe that
// receives the block at the tip of the main chain after each committed chain
// update.  For a reorganization, a single notification carrying the new tip
// is delivered.
//
// Callbacks run outside the chain state lock, in commit order, and a panic
// inside one callback does not prevent delivery to the others.
type NotificationCallback func(*wire.MsgBlock)

// BestState houses information about the current best block and other info
// related to the state of the main chain as it exists from the point of view
// of the current best block.
//
// The BestSnapshot method can be used to obtain access to this information
// in a concurrent safe manner and the data will not be changed out from
// under the caller when chain state changes occur as the function name
// implies.
type BestState struct {
	Hash       chainhash.Hash // The hash of the block.
	Height     int64          // The height of the block.
	Bits       uint32         // The difficulty bits of the block.
	MedianTime int64          // Median time as per CalcPastMedianTime.
	Timestamp  int64          // The timestamp of the block.
}

// BlockChain provides functions for working with the embercoin block chain.
// It composes the block index tree, the unspent transaction output set, and
// the memory pool of unconfirmed transactions into a single consistent
// state: the set always equals a replay of the main chain from the genesis
// block to the tip.
//
// All three structures are guarded by a single chain state lock so every
// update is observed atomically.  Methods whose comments say they "MUST be
// called with the chain state lock held" form the internal layer; the
// exported methods acquire the lock themselves.
type BlockChain struct {
	chainParams *chaincfg.Params
	sigCache    *txscript.SigCache

	// chainLock protects the index, the utxo set, the block store, the
	// transaction index, and the mempool as a unit.
	chainLock sync.Mutex

	index   *blockIndex
	utxoSet *UtxoSet

	// blocks stores the full block for every accepted block, main chain
	// and side chain alike, keyed by block hash.  Side chain bodies are
	// required to connect their branch should it ever become the best
	// chain.
	blocks map[chainhash.Hash]*wire.MsgBlock

	// mainTxns indexes the transactions of the current main chain by
	// hash.  Entries are added as blocks connect and removed as they
	// disconnect.
	mainTxns map[chainhash.Hash]*wire.MsgTx

	// mempool holds the unconfirmed transactions keyed by hash, with
	// outpoints tracking which outputs the pool already spends so a
	// conflicting double spend is rejected on entry.
	mempool          map[chainhash.Hash]*wire.MsgTx
	mempoolOutpoints map[wire.OutPoint]chainhash.Hash

	// notifySendLock ensures the callbacks for chain updates are
	// delivered in the order the updates were committed.  It is acquired
	// while the chain lock is still held and released only after the
	// callbacks have run.
	notifySendLock sync.Mutex

	// subscribersLock protects the subscriber list.
	subscribersLock sync.RWMutex
	subscribers     []NotificationCallback
}

// New returns a BlockChain instance using the provided chain parameters with
// the genesis block connected.  The sigCache may be nil to disable signature
// caching.
func New(chainParams *chaincfg.Params, sigCache *txscript.SigCache) (*BlockChain, error) {
	b := &BlockChain{
		chainParams:      chainParams,
		sigCache:         sigCache,
		index:            newBlockIndex(),
		utxoSet:          NewUtxoSet(),
		blocks:           make(map[chainhash.Hash]*wire.MsgBlock),
		mainTxns:         make(map[chainhash.Hash]*wire.MsgTx),
		mempool:          make(map[chainhash.Hash]*wire.MsgTx),
		mempoolOutpoints: make(map[wire.OutPoint]chainhash.Hash),
	}

	// Install the genesis block.  It is the root of the index tree and
	// its outputs seed the unspent output set; it is not subject to the
	// usual validation.
	genesis := chainParams.GenesisBlock
	node, _, _, err := b.index.AddNode(&genesis.Header)
	if err != nil {
		return nil, err
	}
	if err := b.utxoSet.ConnectBlock(genesis, node.height); err != nil {
		return nil, err
	}
	b.blocks[node.hash] = genesis
	for _, tx := range genesis.Transactions {
		b.mainTxns[tx.TxHash()] = tx
	}

	log.Infof("Chain initialized with genesis block %v", node.hash)
	return b, nil
}

// Subscribe registers a callback to be invoked after each committed chain
// update.  There is no facility for unsubscribing; subscribers live as long
// as the chain.
//
// Callbacks must not call ProcessBlock synchronously since deliveries are
// serialized: submit follow-up blocks from another goroutine instead.
func (b *BlockChain) Subscribe(callback NotificationCallback) {
	b.subscribersLock.Lock()
	b.subscribers = append(b.subscribers, callback)
	b.subscribersLock.Unlock()
}

// notifySubscribers invokes every registered callback with the new tip
// block.  A panicking subscriber is contained so one bad listener cannot
// stall the chain.
//
// This function MUST NOT be called with the chain state lock held.
func (b *BlockChain) notifySubscribers(tipBlock *wire.MsgBlock) {
	b.subscribersLock.RLock()
	subscribers := make([]NotificationCallback, len(b.subscribers))
	copy(subscribers, b.subscribers)
	b.subscribersLock.RUnlock()

	for _, callback := range subscribers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("Chain update subscriber panicked: %v", r)
				}
			}()
			callback(tipBlock)
		}()
	}
}

// ProcessBlock is the main workhorse for handling insertion of new blocks
// into the block chain.  It includes functionality such as rejecting
// duplicate blocks, ensuring blocks follow all rules, and insertion into the
// block index tree along with best chain selection and reorganization of the
// unspent output set.
//
// A block whose parent is not known is rejected with ErrOrphan; buffering
// such blocks until the parent arrives is the responsibility of the sync
// layer.
//
// This function is safe for concurrent access.
func (b *BlockChain) ProcessBlock(block *wire.MsgBlock) error {
	b.chainLock.Lock()

	blockHash := block.BlockHash()
	if b.index.LookupNode(&blockHash) != nil {
		b.chainLock.Unlock()
		str := fmt.Sprintf("already have block %v", blockHash)
		return ruleError(ErrDuplicateBlock, str)
	}

	// The parent must already be part of the index since the genesis
	// block is installed at creation time.
	parent := b.index.LookupNode(&block.Header.PrevBlock)
	if parent == nil {
		b.chainLock.Unlock()
		str := fmt.Sprintf("parent block %v is unknown",
			block.Header.PrevBlock)
		return ruleError(ErrOrphan, str)
	}

	// Perform the context free checks before the index is touched so a
	// rejected block leaves no trace.
	if err := b.checkBlockSanity(block); err != nil {
		b.chainLock.Unlock()
		return err
	}

	// Link the block into the index tree.  This selects the best chain
	// and rewires the main chain threading when the new block's branch
	// has the most cumulative work.
	node, detached, attached, err := b.index.AddNode(&block.Header)
	if err != nil {
		b.chainLock.Unlock()
		return err
	}
	b.blocks[blockHash] = block

	// A block that lands on a side chain with less work needs no further
	// processing; its branch is revisited if it ever becomes best.
	if len(attached) == 0 {
		log.Debugf("Block %v extends a side chain at height %d",
			blockHash, node.height)
		b.chainLock.Unlock()
		return nil
	}

	// Update the unspent output set to the new best chain, undoing the
	// effects of the blocks that left it and validating and applying the
	// blocks that joined it.
	if err := b.updateUtxoSet(detached, attached); err != nil {
		// The block failed full validation, so unwind its insertion
		// into the index.
		b.index.rollbackAdd(node, detached, attached)
		delete(b.blocks, blockHash)
		b.chainLock.Unlock()
		return err
	}

	// Remove the transactions confirmed by the newly connected blocks
	// from the mempool.
	for _, n := range attached {
		connected := b.blocks[n.hash]
		for _, tx := range connected.Transactions[1:] {
			b.removeMempoolTx(tx.TxHash())
		}
	}

	// Bound the spent cache to the deepest supported reorganization.
	tip := b.index.tip
	if evictBelow := tip.height - b.chainParams.MaxReorgDepth; evictBelow > 0 {
		b.utxoSet.evictSpentBefore(evictBelow)
	}

	if len(detached) > 0 {
		log.Infof("Chain reorganization: %d block(s) disconnected, %d "+
			"connected, new tip %v at height %d", len(detached),
			len(attached), tip.hash, tip.height)
	} else {
		log.Debugf("Block %v connected at height %d", blockHash,
			node.height)
	}

	// Deliver the notification outside the chain lock, with delivery
	// order pinned to commit order via the send lock.
	tipBlock := b.blocks[tip.hash]
	b.notifySendLock.Lock()
	b.chainLock.Unlock()
	b.notifySubscribers(tipBlock)
	b.notifySendLock.Unlock()

	return nil
}

// updateUtxoSet transitions the unspent output set from the old main chain
// to the new one described by the detached and attached node lists.  Each
// attached block is fully validated against the set as it exists at its
// height before its effects are applied.
//
// The transition is transactional: when validation of an attached block
// fails, every change made so far is undone so the set again matches the old
// main chain, and the validation error is returned.  Failure to undo is a
// consensus-critical inconsistency and panics.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) updateUtxoSet(detached, attached []*blockNode) error {
	// Disconnect the blocks that left the main chain, from the old tip
	// down to the fork point.
	for _, n := range detached {
		blk := b.blocks[n.hash]
		if err := b.utxoSet.DisconnectBlock(blk); err != nil {
			panicf("unable to disconnect block %v during "+
				"reorganization: %v", n.hash, err)
		}
		for _, tx := range blk.Transactions {
			delete(b.mainTxns, tx.TxHash())
		}
	}

	// Connect the new chain from the fork point up to the new tip,
	// validating each block against the set at its height.
	connected := make([]*blockNode, 0, len(attached))
	for _, n := range attached {
		blk := b.blocks[n.hash]

		medianTime := int64(0)
		if n.parent != nil {
			medianTime = n.parent.CalcPastMedianTime(
				b.chainParams.MedianTimeBlocks)
		}
		err := b.checkConnectBlock(blk, b.utxoSet, n.height, medianTime)
		if err == nil {
			err = b.utxoSet.ConnectBlock(blk, n.height)
		}
		if err != nil {
			b.rollbackUtxoSet(connected, detached)
			return err
		}
		for _, tx := range blk.Transactions {
			b.mainTxns[tx.TxHash()] = tx
		}
		connected = append(connected, n)
	}

	return nil
}

// rollbackUtxoSet restores the unspent output set to the old main chain
// after a failed transition: the already connected new blocks are
// disconnected in reverse order and the previously disconnected old blocks
// are reconnected from the fork point up to the old tip.  Both replays
// operate on state this process itself produced, so any failure means the
// set can no longer be trusted and the node halts.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) rollbackUtxoSet(connected, detached []*blockNode) {
	for i := len(connected) - 1; i >= 0; i-- {
		n := connected[i]
		blk := b.blocks[n.hash]
		if err := b.utxoSet.DisconnectBlock(blk); err != nil {
			panicf("unable to disconnect block %v while restoring "+
				"the previous chain: %v", n.hash, err)
		}
		for _, tx := range blk.Transactions {
			delete(b.mainTxns, tx.TxHash())
		}
	}

	// detached is ordered from the old tip down to the fork, so
	// reconnect in reverse.
	for i := len(detached) - 1; i >= 0; i-- {
		n := detached[i]
		blk := b.blocks[n.hash]
		if err := b.utxoSet.ConnectBlock(blk, n.height); err != nil {
			panicf("unable to reconnect block %v while restoring "+
				"the previous chain: %v", n.hash, err)
		}
		for _, tx := range blk.Transactions {
			b.mainTxns[tx.TxHash()] = tx
		}
	}
}

// panicf raises a reorg state inconsistency.  The chain state can no longer
// be trusted when this happens, so the node must not continue.
func panicf(format string, args ...interface{}) {
	str := fmt.Sprintf(format, args...)
	log.Criticalf("%v: %v", ErrReorgStateInconsistent, str)
	panic(ruleError(ErrReorgStateInconsistent, str))
}

// rollbackAdd undoes the effects of AddNode for a node that failed full
// validation: it is unlinked from the index and the main chain threading and
// tip are restored to their prior state.
func (bi *blockIndex) rollbackAdd(node *blockNode, detached, attached []*blockNode) {
	delete(bi.index, node.hash)

	// Unlink from the parent's children.
	parent := node.parent
	for i, child := range parent.children {
		if child == node {
			parent.children = append(parent.children[:i],
				parent.children[i+1:]...)
			break
		}
	}

	// Clear the threading the reorganization established.
	fork := parent
	if len(detached) > 0 {
		fork = detached[len(detached)-1].parent
	}
	for _, n := range attached {
		if n != node {
			n.nextMain = nil
		}
	}
	fork.nextMain = nil

	// Restore the old main chain path.  detached is ordered old tip
	// first, so thread from the fork upward.
	for i := len(detached) - 1; i >= 0; i-- {
		n := detached[i]
		n.parent.nextMain = n
		n.nextMain = nil
	}

	if len(detached) > 0 {
		bi.tip = detached[0]
	} else {
		bi.tip = parent
	}
}

// BestSnapshot returns information about the current best chain block and
// related state as of the current point in time.  The returned instance must
// be treated as immutable since it is shared by all callers.
//
// This function is safe for concurrent access.
func (b *BlockChain) BestSnapshot() *BestState {
	b.chainLock.Lock()
	tip := b.index.tip
	snapshot := &BestState{
		Hash:       tip.hash,
		Height:     tip.height,
		Bits:       tip.bits,
		MedianTime: tip.CalcPastMedianTime(b.chainParams.MedianTimeBlocks),
		Timestamp:  tip.timestamp,
	}
	b.chainLock.Unlock()
	return snapshot
}

// GetBlock returns the block for the given hash.  Both main chain and side
// chain blocks are returned.
//
// This function is safe for concurrent access.
func (b *BlockChain) GetBlock(hash *chainhash.Hash) (*wire.MsgBlock, error) {
	b.chainLock.Lock()
	block, ok := b.blocks[*hash]
	b.chainLock.Unlock()
	if !ok {
		return nil, fmt.Errorf("block %v is not known", hash)
	}
	return block, nil
}

// HaveBlock returns whether or not the chain instance has the block
// represented by the passed hash, on the main chain or a side chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) HaveBlock(hash *chainhash.Hash) bool {
	b.chainLock.Lock()
	node := b.index.LookupNode(hash)
	b.chainLock.Unlock()
	return node != nil
}

// MainChainHasBlock returns whether or not the block with the given hash is
// in the main chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) MainChainHasBlock(hash *chainhash.Hash) bool {
	b.chainLock.Lock()
	node := b.index.LookupNode(hash)
	onMain := node != nil && b.index.onMainChain(node)
	b.chainLock.Unlock()
	return onMain
}

// BlockHeightByHash returns the height of the block with the given hash in
// the block index.
//
// This function is safe for concurrent access.
func (b *BlockChain) BlockHeightByHash(hash *chainhash.Hash) (int64, error) {
	b.chainLock.Lock()
	node := b.index.LookupNode(hash)
	b.chainLock.Unlock()
	if node == nil {
		return 0, fmt.Errorf("block %v is not known", hash)
	}
	return node.height, nil
}

// BlockHashByHeight returns the hash of the block at the given height in the
// main chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) BlockHashByHeight(height int64) (*chainhash.Hash, error) {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	if height < 0 || height > b.index.tip.height {
		return nil, fmt.Errorf("no block at height %d exists", height)
	}

	// Walking from the closer end would be an optimization; the expected
	// use is recent heights, so walk back from the tip.
	n := b.index.tip
	for n != nil && n.height != height {
		n = n.parent
	}
	if n == nil {
		return nil, fmt.Errorf("no block at height %d exists", height)
	}
	hash := n.hash
	return &hash, nil
}

// GetTransaction returns the transaction for the given hash, whether it is
// unconfirmed in the mempool or confirmed in a main chain block.
//
// This function is safe for concurrent access.
func (b *BlockChain) GetTransaction(txHash *chainhash.Hash) (*wire.MsgTx, error) {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	if tx, ok := b.mempool[*txHash]; ok {
		return tx, nil
	}
	if tx, ok := b.mainTxns[*txHash]; ok {
		return tx, nil
	}
	return nil, fmt.Errorf("transaction %v is not known", txHash)
}

// Balance sums the unspent outputs whose public key script matches the
// passed filter script.  A nil filter matches everything.
//
// This function is safe for concurrent access.
func (b *BlockChain) Balance(filterScript []byte) int64 {
	b.chainLock.Lock()
	balance := b.utxoSet.Balance(filterScript)
	b.chainLock.Unlock()
	return balance
}

// UnspentOutput describes a single entry of the unspent transaction output
// set as reported by ListUnspent.
type UnspentOutput struct {
	OutPoint      wire.OutPoint
	Amount        int64
	PkScript      []byte
	BlockHeight   int64
	IsCoinBase    bool
	Confirmations int64
}

// ListUnspent returns every unspent output whose public key script matches
// the passed filter script.  A nil filter matches everything.
//
// This function is safe for concurrent access.
func (b *BlockChain) ListUnspent(filterScript []byte) []UnspentOutput {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	tipHeight := b.index.tip.height
	var unspent []UnspentOutput
	b.utxoSet.Entries(func(outpoint wire.OutPoint, entry *UtxoEntry) bool {
		if filterScript != nil && !bytes.Equal(entry.PkScript(), filterScript) {
			return true
		}
		unspent = append(unspent, UnspentOutput{
			OutPoint:      outpoint,
			Amount:        entry.Amount(),
			PkScript:      entry.PkScript(),
			BlockHeight:   entry.BlockHeight(),
			IsCoinBase:    entry.IsCoinBase(),
			Confirmations: tipHeight - entry.BlockHeight() + 1,
		})
		return true
	})
	return unspent
}

// FetchUtxoEntry returns the unspent output entry for the passed outpoint
// from the point of view of the main chain tip, or nil when the output is
// not unspent.
//
// This function is safe for concurrent access.
func (b *BlockChain) FetchUtxoEntry(outpoint wire.OutPoint) *UtxoEntry {
	b.chainLock.Lock()
	entry := b.utxoSet.LookupEntry(outpoint)
	b.chainLock.Unlock()
	return entry
}

// BlockLocatorFromTip returns a block locator for the current tip: a list of
// block hashes walking backwards with the step between entries doubling
// after each hash, the walk per entry capped at ten blocks, ending with the
// genesis block hash.  The first hash a remote peer recognizes identifies
// the fork point between the two chains.
//
// This function is safe for concurrent access.
func (b *BlockChain) BlockLocatorFromTip() []chainhash.Hash {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	locator := make([]chainhash.Hash, 0, wire.MaxBlockLocatorsPerMsg)
	step := int64(1)
	for n := b.index.tip; n != nil; {
		locator = append(locator, n.hash)
		if len(locator) >= wire.MaxBlockLocatorsPerMsg-1 {
			break
		}

		walk := step
		if walk > 10 {
			walk = 10
		}
		for i := int64(0); i < walk && n != nil; i++ {
			n = n.parent
		}
		step *= 2
	}

	// Ensure the locator terminates at the genesis block so a peer on a
	// completely different chain still finds a common point.
	genesisHash := b.index.genesis.hash
	if locator[len(locator)-1] != genesisHash {
		locator = append(locator, genesisHash)
	}
	return locator
}

// MainChainAfter returns up to the passed limit of main chain block hashes
// following the first locator entry found in the main chain, which is how a
// peer answers a getblocks request.  When no locator entry is known the
// hashes start after the genesis block.
//
// This function is safe for concurrent access.
func (b *BlockChain) MainChainAfter(locator []chainhash.Hash, hashStop *chainhash.Hash, limit int) []chainhash.Hash {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	// Find the fork point: the first locator hash that is on the main
	// chain.
	start := b.index.genesis
	for _, hash := range locator {
		node := b.index.LookupNode(&hash)
		if node != nil && b.index.onMainChain(node) {
			start = node
			break
		}
	}

	hashes := make([]chainhash.Hash, 0, limit)
	for n := start.nextMain; n != nil && len(hashes) < limit; n = n.nextMain {
		hashes = append(hashes, n.hash)
		if hashStop != nil && n.hash == *hashStop {
			break
		}
	}
	return hashes
}

// mempool ----------------------------------------------------------------

// AcceptTransaction validates the passed transaction against the current
// chain state and adds it to the mempool.  Rejected transactions never reach
// the pool.
//
// This function is safe for concurrent access.
func (b *BlockChain) AcceptTransaction(tx *wire.MsgTx) error {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	// A standalone coinbase is only meaningful inside a block.
	if tx.IsCoinBase() {
		return ruleError(ErrUnexpectedCoinbase, "coinbase transactions "+
			"are not allowed in the mempool")
	}

	if err := CheckTransactionSanity(tx); err != nil {
		return err
	}

	txHash := tx.TxHash()
	if _, ok := b.mempool[txHash]; ok {
		str := fmt.Sprintf("transaction %v is already in the mempool",
			txHash)
		return ruleError(ErrDuplicateTx, str)
	}
	if _, ok := b.mainTxns[txHash]; ok {
		str := fmt.Sprintf("transaction %v is already confirmed", txHash)
		return ruleError(ErrDuplicateTx, str)
	}

	// Reject a transaction that spends an outpoint another unconfirmed
	// transaction already spends.
	for _, txIn := range tx.TxIn {
		if conflict, ok := b.mempoolOutpoints[txIn.PreviousOutPoint]; ok {
			str := fmt.Sprintf("output %v already spent by "+
				"unconfirmed transaction %v", txIn.PreviousOutPoint,
				conflict)
			return ruleError(ErrDoubleSpend, str)
		}
	}

	// Validate against the unspent output set as of the tip.  The lock
	// time of an unconfirmed transaction is compared against the wall
	// clock on first insert.
	nextHeight := b.index.tip.height + 1
	_, err := b.checkTransactionInputs(tx, b.utxoSet, nextHeight,
		time.Now().Unix())
	if err != nil {
		return err
	}

	b.mempool[txHash] = tx
	for _, txIn := range tx.TxIn {
		b.mempoolOutpoints[txIn.PreviousOutPoint] = txHash
	}

	log.Debugf("Accepted transaction %v into the mempool (pool size %d)",
		txHash, len(b.mempool))
	return nil
}

// removeMempoolTx removes the transaction with the given hash, along with
// its outpoint claims, from the mempool.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) removeMempoolTx(txHash chainhash.Hash) {
	tx, ok := b.mempool[txHash]
	if !ok {
		return
	}
	for _, txIn := range tx.TxIn {
		delete(b.mempoolOutpoints, txIn.PreviousOutPoint)
	}
	delete(b.mempool, txHash)
}

// MempoolTxns returns a snapshot of the transactions currently in the
// mempool.  The order is unspecified.
//
// This function is safe for concurrent access.
func (b *BlockChain) MempoolTxns() []*wire.MsgTx {
	b.chainLock.Lock()
	txns := make([]*wire.MsgTx, 0, len(b.mempool))
	for _, tx := range b.mempool {
		txns = append(txns, tx)
	}
	b.chainLock.Unlock()
	return txns
}

// HaveTransaction returns whether the transaction with the given hash is
// known, either in the mempool or confirmed in the main chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) HaveTransaction(txHash *chainhash.Hash) bool {
	b.chainLock.Lock()
	_, inPool := b.mempool[*txHash]
	_, confirmed := b.mainTxns[*txHash]
	b.chainLock.Unlock()
	return inPool || confirmed
}
