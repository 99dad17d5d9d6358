// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cpuminer

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/embercoin/emberd/blockchain"
	"github.com/embercoin/emberd/chaincfg"
	"github.com/embercoin/emberd/mining"
	"github.com/embercoin/emberd/wire"
)

const (
	// maxNonce is the maximum value a nonce can be in a block header.
	maxNonce = ^uint32(0) // 2^32 - 1

	// hashUpdateSecs is the number of seconds each worker waits in between
	// notifying the speed monitor with how many hashes have been completed
	// while they are actively searching for a solution.
	hashUpdateSecs = 15

	// hpsUpdateSecs is the number of seconds to wait in between each
	// update to the hashes per second monitor.
	hpsUpdateSecs = 10

	// nonceCheckInterval is the number of nonce iterations between checks
	// for a stale template or shutdown request while sweeping the nonce
	// space.
	nonceCheckInterval = 16384

	// maxTimeOffsetAttempts is the number of times the block timestamp is
	// bumped forward after the nonce space is exhausted before a solve
	// attempt is abandoned in favor of a fresh template.
	maxTimeOffsetAttempts = 10
)

// Config is a descriptor containing the cpu miner configuration.
type Config struct {
	// ChainParams identifies which chain parameters the cpu miner is
	// associated with.
	ChainParams *chaincfg.Params

	// Chain is the chain instance mined blocks are submitted to and whose
	// updates restart the current solve attempt.
	Chain *blockchain.BlockChain

	// BlockTemplateGenerator identifies the instance to use in order to
	// generate block templates that the miner will attempt to solve.
	BlockTemplateGenerator *mining.BlkTmplGenerator

	// MiningScript is the public key script block rewards are paid to.
	MiningScript []byte
}

// CPUMiner provides facilities for solo mining using the CPU in a
// concurrency-safe manner.  It consists of a single worker that generates
// block templates and attempts to solve them while detecting when the chain
// tip changes out from under it so the stale work is abandoned.  It must be
// started via Start and stopped via Stop.
type CPUMiner struct {
	sync.Mutex
	cfg     *Config
	started bool

	// extraNonce and hashesCompleted are accessed atomically since the
	// mining loop updates them while Start, Stop, and the speed monitor
	// hold or poll other state.
	extraNonce      uint64
	hashesCompleted uint64

	// tipChanged receives a signal for every committed chain update so
	// the current solve attempt restarts on the new tip.
	tipChanged chan struct{}

	quit chan struct{}
	wg   sync.WaitGroup

	speedMonitorWg sync.WaitGroup
}

// New returns a new instance of a CPU miner for the provided configuration.
// Use Start to begin mining.
func New(cfg *Config) *CPUMiner {
	m := &CPUMiner{
		cfg:        cfg,
		tipChanged: make(chan struct{}, 1),
	}

	// Restart the solve attempt whenever the chain commits an update.
	// The send is non-blocking since a single pending signal is enough.
	cfg.Chain.Subscribe(func(*wire.MsgBlock) {
		select {
		case m.tipChanged <- struct{}{}:
		default:
		}
	})

	return m
}

// Start begins the mining process as well as the speed monitor used to
// track hashing metrics.  Calling this function when the miner has already
// been started will have no effect.
func (m *CPUMiner) Start() {
	m.Lock()
	defer m.Unlock()

	if m.started {
		return
	}

	m.quit = make(chan struct{})
	m.wg.Add(1)
	go m.generateBlocks()

	m.started = true
	log.Info("CPU miner started")
}

// Stop gracefully stops the mining process.  Calling this function when the
// miner has not already been started will have no effect.
func (m *CPUMiner) Stop() {
	m.Lock()
	defer m.Unlock()

	if !m.started {
		return
	}

	close(m.quit)
	m.wg.Wait()
	m.started = false
	log.Info("CPU miner stopped")
}

// solveBlock attempts to find some combination of a nonce and a timestamp
// bump which makes the passed block hash to a value no greater than the
// target difficulty.  The timestamp is bumped by a second each time the nonce space
// is exhausted, up to a bounded number of attempts.
//
// The function returns early with false when the chain tip changes or a
// shutdown is requested, so the caller can build a fresh template.
func (m *CPUMiner) solveBlock(block *wire.MsgBlock) bool {
	header := &block.Header
	target := blockchain.CompactToBig(header.Bits)

	for attempt := 0; attempt < maxTimeOffsetAttempts; attempt++ {
		for nonce := uint32(0); ; nonce++ {
			// Periodically yield to the control signals.  The tip
			// moving invalidates the template since it no longer
			// builds on the best block.
			if nonce%nonceCheckInterval == 0 {
				select {
				case <-m.quit:
					return false
				case <-m.tipChanged:
					log.Debugf("New tip detected, abandoning "+
						"stale template built on %v",
						header.PrevBlock)
					return false
				default:
				}
			}

			header.Nonce = nonce
			hash := header.BlockHash()
			atomic.AddUint64(&m.hashesCompleted, 1)

			if blockchain.HashToBig(&hash).Cmp(target) <= 0 {
				return true
			}

			if nonce == maxNonce {
				break
			}
		}

		// The nonce space is exhausted; advance the timestamp and try
		// again.
		header.Timestamp = header.Timestamp.Add(time.Second)
	}

	return false
}

// generateBlocks is a worker that is controlled by the Start and Stop
// methods.  It is self contained in that it creates block templates and
// attempts to solve them while detecting when it is performing stale work.
// When a block is solved, it is submitted to the chain.
//
// It must be run as a goroutine.
func (m *CPUMiner) generateBlocks() {
	defer m.wg.Done()

	m.speedMonitorWg.Add(1)
	go m.speedMonitor()
	defer m.speedMonitorWg.Wait()

	for {
		select {
		case <-m.quit:
			return
		default:
		}

		extraNonce := atomic.AddUint64(&m.extraNonce, 1)

		template, err := m.cfg.BlockTemplateGenerator.NewBlockTemplate(
			m.cfg.MiningScript, extraNonce)
		if err != nil {
			log.Errorf("Failed to create new block template: %v", err)
			continue
		}

		if !m.solveBlock(template) {
			continue
		}

		blockHash := template.BlockHash()
		err = m.cfg.Chain.ProcessBlock(template)
		switch {
		case err == nil:
			log.Infof("Block submitted via CPU miner accepted (hash "+
				"%v)", blockHash)

		case errors.Is(err, blockchain.ErrDuplicateBlock):
			// Another source delivered the same solution first.
			log.Debugf("Block submitted via CPU miner already known "+
				"(hash %v)", blockHash)

		default:
			log.Errorf("Block submitted via CPU miner rejected: %v", err)
		}
	}
}

// speedMonitor periodically logs the hashes per second of the mining loop.
// It must be run as a goroutine.
func (m *CPUMiner) speedMonitor() {
	defer m.speedMonitorWg.Done()

	var lastCompleted uint64
	ticker := time.NewTicker(hpsUpdateSecs * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			completed := atomic.LoadUint64(&m.hashesCompleted)
			delta := completed - lastCompleted
			lastCompleted = completed
			if delta > 0 {
				log.Debugf("Hash speed: %d kilohashes/s",
					delta/hpsUpdateSecs/1000)
			}

		case <-m.quit:
			return
		}
	}
}
