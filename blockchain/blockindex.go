// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/embercoin/emberd/chaincfg/chainhash"
	"github.com/embercoin/emberd/wire"
)

// blockNode represents a block within the block chain and is primarily used
// to aid in selecting the best chain to be the main chain.  Nodes form a
// tree rooted at the genesis block: every node links to its parent and the
// parent tracks all of its children.  The path of the main chain is
// additionally threaded through the nextMain pointers, so a node is on the
// main chain exactly when it is reachable from the genesis node by following
// nextMain.
type blockNode struct {
	// parent is the parent block for this node.  It is nil for the
	// genesis node.
	parent *blockNode

	// children holds every known block that builds on this node.  At most
	// one child is on the main chain at any moment.
	children []*blockNode

	// nextMain is the next block on the main chain, or nil when this node
	// is the main chain tip or on a side chain.
	nextMain *blockNode

	// hash is the double sha256 of the block header.
	hash chainhash.Hash

	// height is the position in the block chain.
	height int64

	// workSum is the total amount of work in the chain up to and
	// including this node.
	workSum *big.Int

	// Some fields from the block header to aid in best chain selection
	// and reconstructing headers from memory.  These must be treated as
	// immutable and are intentionally ordered to avoid padding on 64-bit
	// platforms.
	version    int32
	merkleRoot chainhash.Hash
	timestamp  int64
	bits       uint32
	nonce      uint32
}

// newBlockNode returns a new block node for the given block header and
// parent node.  The work sum is calculated based on the parent.
func newBlockNode(header *wire.BlockHeader, parent *blockNode) *blockNode {
	node := blockNode{
		parent:     parent,
		hash:       header.BlockHash(),
		workSum:    CalcWork(header.Bits),
		version:    header.Version,
		merkleRoot: header.MerkleRoot,
		timestamp:  header.Timestamp.Unix(),
		bits:       header.Bits,
		nonce:      header.Nonce,
	}
	if parent != nil {
		node.height = parent.height + 1
		node.workSum = node.workSum.Add(parent.workSum, node.workSum)
	}
	return &node
}

// Header constructs a block header from the node and returns it.
//
// This function is safe for concurrent access since the fields it uses are
// immutable.
func (node *blockNode) Header() wire.BlockHeader {
	// No lock is needed because the header fields are immutable.
	prevHash := chainhash.Hash{}
	if node.parent != nil {
		prevHash = node.parent.hash
	}
	return wire.BlockHeader{
		Version:    node.version,
		PrevBlock:  prevHash,
		MerkleRoot: node.merkleRoot,
		Timestamp:  time.Unix(node.timestamp, 0),
		Bits:       node.bits,
		Nonce:      node.nonce,
	}
}

// CalcPastMedianTime calculates the median time of the previous few blocks
// prior to, and including, the block node.
func (node *blockNode) CalcPastMedianTime(medianTimeBlocks int) int64 {
	// Create a slice of the previous few block timestamps used to
	// calculate the median per the number defined by the constant
	// medianTimeBlocks.
	timestamps := make([]int64, 0, medianTimeBlocks)
	iterNode := node
	for i := 0; i < medianTimeBlocks && iterNode != nil; i++ {
		timestamps = append(timestamps, iterNode.timestamp)
		iterNode = iterNode.parent
	}

	sort.Slice(timestamps, func(i, j int) bool {
		return timestamps[i] < timestamps[j]
	})

	// NOTE: The consensus rules incorporated from the reference
	// implementation require the median of an even number of timestamps
	// to be the higher of the two middle values, which is what indexing
	// by half the length produces.
	return timestamps[len(timestamps)/2]
}

// blockIndex provides facilities for keeping track of an in-memory tree of
// block headers rooted at the genesis block, along with the pointer to the
// tip of the branch with the most cumulative work.
type blockIndex struct {
	// index holds every known node keyed by block hash.
	index map[chainhash.Hash]*blockNode

	// genesis is the root of the tree.
	genesis *blockNode

	// tip is the node with the most cumulative proof of work.  Ties are
	// broken by arrival order: the first seen branch wins.
	tip *blockNode
}

// newBlockIndex returns a new empty instance of a block index.
func newBlockIndex() *blockIndex {
	return &blockIndex{
		index: make(map[chainhash.Hash]*blockNode),
	}
}

// LookupNode returns the block node identified by the provided hash.  It
// returns nil if there is no entry for the hash.
func (bi *blockIndex) LookupNode(hash *chainhash.Hash) *blockNode {
	return bi.index[*hash]
}

// AddNode creates a node for the given header, links it into the tree, and
// performs a reorganization of the main chain threading whenever the new
// node has strictly more cumulative work than the current tip.
//
// The returned slices describe the main chain rewrite that took place:
// detached holds the nodes that left the main chain ordered from the old tip
// down to (but excluding) the fork point, and attached holds the nodes that
// joined it ordered from the fork point (exclusive) up to the new tip.  A
// simple extension of the current tip attaches exactly the new node and
// detaches nothing.  A node that lands on a side chain attaches and detaches
// nothing.
func (bi *blockIndex) AddNode(header *wire.BlockHeader) (node *blockNode, detached, attached []*blockNode, err error) {
	hash := header.BlockHash()
	if _, exists := bi.index[hash]; exists {
		str := fmt.Sprintf("block %v is already known", hash)
		return nil, nil, nil, ruleError(ErrDuplicateBlock, str)
	}

	// A header whose previous hash is the null sentinel creates the
	// genesis node.
	var zeroHash chainhash.Hash
	if header.PrevBlock == zeroHash {
		if bi.genesis != nil {
			str := fmt.Sprintf("genesis block %v already exists",
				bi.genesis.hash)
			return nil, nil, nil, ruleError(ErrDuplicateGenesis, str)
		}
		node = newBlockNode(header, nil)
		bi.index[hash] = node
		bi.genesis = node
		bi.tip = node
		return node, nil, []*blockNode{node}, nil
	}

	// Anything else requires its parent to already be present; handling
	// out-of-order arrival is the responsibility of the sync layer.
	parent := bi.index[header.PrevBlock]
	if parent == nil {
		str := fmt.Sprintf("previous block %v is unknown",
			header.PrevBlock)
		return nil, nil, nil, ruleError(ErrOrphan, str)
	}

	node = newBlockNode(header, parent)
	bi.index[hash] = node
	parent.children = append(parent.children, node)

	// The main chain only changes when the new branch has strictly more
	// work, so an equal-work branch that arrived later stays on the side.
	if node.workSum.Cmp(bi.tip.workSum) <= 0 {
		return node, nil, nil, nil
	}

	detached, attached = bi.reorganize(node)
	return node, detached, attached, nil
}

// reorganize rewrites the main chain threading so that the chain iteration
// from genesis reaches the passed node, and moves the tip to it.  See
// AddNode for the meaning of the return values.
func (bi *blockIndex) reorganize(newTip *blockNode) (detached, attached []*blockNode) {
	oldTip := bi.tip
	fork := bi.findFork(oldTip, newTip)

	// Clear the main chain threading from the old tip back to the fork.
	for n := oldTip; n != fork; n = n.parent {
		n.nextMain = nil
		detached = append(detached, n)
	}

	// Rebuild the path from the fork to the new tip.
	for n := newTip; n != fork; n = n.parent {
		attached = append(attached, n)
	}
	// attached was collected tip-first; reverse to fork-first order and
	// thread the nextMain pointers.
	for i, j := 0, len(attached)-1; i < j; i, j = i+1, j-1 {
		attached[i], attached[j] = attached[j], attached[i]
	}
	prev := fork
	for _, n := range attached {
		prev.nextMain = n
		prev = n
	}
	newTip.nextMain = nil

	bi.tip = newTip
	return detached, attached
}

// findFork returns the final common ancestor of the two passed nodes by
// walking the higher node back to equal height and then both back in
// lockstep.
func (bi *blockIndex) findFork(a, b *blockNode) *blockNode {
	for a.height > b.height {
		a = a.parent
	}
	for b.height > a.height {
		b = b.parent
	}
	for a != b {
		a = a.parent
		b = b.parent
	}
	return a
}

// onMainChain returns whether the node is threaded into the main chain.
func (bi *blockIndex) onMainChain(node *blockNode) bool {
	return node.nextMain != nil || node == bi.tip
}

// mainChainNodes returns every node on the main chain in height order from
// the genesis node to the tip.
func (bi *blockIndex) mainChainNodes() []*blockNode {
	nodes := make([]*blockNode, 0, bi.tip.height+1)
	for n := bi.genesis; n != nil; n = n.nextMain {
		nodes = append(nodes, n)
	}
	return nodes
}
