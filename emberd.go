// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/embercoin/emberd/blockchain"
	"github.com/embercoin/emberd/internal/rpcadapter"
	"github.com/embercoin/emberd/mining"
	"github.com/embercoin/emberd/mining/cpuminer"
	"github.com/embercoin/emberd/netsync"
	"github.com/embercoin/emberd/txscript"
)

// maxSigCacheEntries is the maximum number of entries kept in the signature
// verification cache.
const maxSigCacheEntries = 50000

// emberdMain is the real main function for emberd.  It is necessary to work
// around the fact that deferred functions do not run when os.Exit() is
// called.
func emberdMain() error {
	// Load configuration and parse command line.
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	// Initialize logging and setup deferred flushing to ensure all
	// outstanding messages are written on shutdown.
	initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))
	defer logRotator.Close()
	setLogLevels(cfg.DebugLevel)

	embrLog.Infof("Version %s", version())
	embrLog.Infof("Active network: %s", activeNetParams.Name)

	// The signature cache is shared by everything that verifies scripts.
	sigCache, err := txscript.NewSigCache(maxSigCacheEntries)
	if err != nil {
		return err
	}

	// Create the chain instance with the genesis block connected.
	chain, err := blockchain.New(activeNetParams.Params, sigCache)
	if err != nil {
		return err
	}

	// The sync manager funnels gossiped blocks and transactions into the
	// chain.  The gossip overlay attaches its peers through the
	// netsync.Peer interface.
	syncManager := netsync.New(&netsync.Config{Chain: chain})
	syncManager.Start()
	defer syncManager.Stop()

	// The adapter exposes the query and submission surface consumed by
	// RPC collaborators, along with the websocket notification push.
	adapter := rpcadapter.New(chain)
	mux := http.NewServeMux()
	mux.HandleFunc("/notifications", adapter.ServeNotifications)
	httpServer := &http.Server{Addr: cfg.RPCListen, Handler: mux}
	go func() {
		embrLog.Infof("RPC adapter listening on %s", cfg.RPCListen)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			embrLog.Errorf("RPC adapter server error: %v", err)
		}
	}()
	defer httpServer.Close()

	// Start the CPU miner when requested.
	var miner *cpuminer.CPUMiner
	if cfg.Generate {
		templateGenerator := mining.NewBlkTmplGenerator(
			activeNetParams.Params, chain)
		miner = cpuminer.New(&cpuminer.Config{
			ChainParams:            activeNetParams.Params,
			Chain:                  chain,
			BlockTemplateGenerator: templateGenerator,
			MiningScript:           cfg.miningScript(),
		})
		miner.Start()
		defer miner.Stop()
	}

	// Wait until an interrupt signal is received, then tear everything
	// down via the deferred calls above: the miner is signalled to stop,
	// sockets close, and the queues drain.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt
	embrLog.Info("Shutting down...")

	return nil
}

func main() {
	if err := emberdMain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
