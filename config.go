// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultLogFilename = "emberd.log"
	defaultLogLevel    = "info"
	defaultLogDirname  = "logs"
)

// config defines the configuration options for emberd.
//
// See loadConfig for details on the configuration load process.
type config struct {
	ShowVersion  bool   `short:"V" long:"version" description:"Display version information and exit"`
	AppDataDir   string `short:"A" long:"appdata" description:"Path to application home directory"`
	LogDir       string `long:"logdir" description:"Directory to log output"`
	DebugLevel   string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
	SimNet       bool   `long:"simnet" description:"Use the simulation test network"`
	Listen       string `long:"listen" description:"Add an interface/port to listen for connections"`
	RPCListen    string `long:"rpclisten" description:"Add an interface/port to listen for RPC connections"`
	Generate     bool   `long:"generate" description:"Generate (mine) coins using the CPU"`
	MiningScript string `long:"miningscript" description:"Hex-encoded public key script block rewards are paid to when generating"`
}

// defaultConfig returns the default configuration for emberd.
func defaultConfig() *config {
	appDataDir := defaultAppDataDir()
	return &config{
		AppDataDir: appDataDir,
		LogDir:     filepath.Join(appDataDir, defaultLogDirname),
		DebugLevel: defaultLogLevel,
	}
}

// defaultAppDataDir returns the default data directory for emberd.
func defaultAppDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".emberd")
}

// loadConfig initializes and parses the config using command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Parse CLI options and overwrite/add any specified options
//
// The above results in emberd functioning properly without any config
// settings while still allowing the user to override settings with command
// line flags.
func loadConfig() (*config, []string, error) {
	cfg := defaultConfig()

	parser := flags.NewParser(cfg, flags.Default)
	remainingArgs, err := parser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, nil, err
	}

	// Show the version and exit if the version flag was specified.
	if cfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, version())
		os.Exit(0)
	}

	// Choose the active network parameters based on the flags.
	activeNetParams = &mainNetParams
	if cfg.SimNet {
		activeNetParams = &simNetParams
	}

	// Default the listeners to the network specific ports when they were
	// not provided.
	if cfg.Listen == "" {
		cfg.Listen = ":" + activeNetParams.DefaultPort
	}
	if cfg.RPCListen == "" {
		cfg.RPCListen = ":" + activeNetParams.rpcPort
	}

	// Mining requires somewhere to pay the rewards.
	if cfg.Generate && cfg.MiningScript == "" {
		str := "the generate flag requires a mining script to pay " +
			"block rewards to"
		return nil, nil, fmt.Errorf("%s", str)
	}
	if cfg.MiningScript != "" {
		if _, err := hex.DecodeString(cfg.MiningScript); err != nil {
			return nil, nil, fmt.Errorf("malformed miningscript: %v", err)
		}
	}

	// Validate the debug level.
	if !validLogLevel(cfg.DebugLevel) {
		str := "the specified debug level [%v] is invalid"
		return nil, nil, fmt.Errorf(str, cfg.DebugLevel)
	}

	return cfg, remainingArgs, nil
}

// miningScript returns the decoded mining script from the config.  It must
// only be called after loadConfig validated the field.
func (cfg *config) miningScript() []byte {
	script, _ := hex.DecodeString(cfg.MiningScript)
	return script
}
