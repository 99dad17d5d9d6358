// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2020 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"
)

// Commands used in message headers which describe the type of message.
const (
	CmdInv       = "inv"
	CmdGetData   = "getdata"
	CmdGetBlocks = "getblocks"
	CmdBlock     = "block"
	CmdTx        = "tx"
)

// Message is an interface that describes an embercoin message.  A type that
// implements Message has complete control over the representation of its data
// and may therefore contain additional or fewer fields than those which
// are used directly in the protocol encoded message.
type Message interface {
	BtcDecode(io.Reader, uint32) error
	BtcEncode(io.Writer, uint32) error
	Command() string
}

// MakeEmptyMessage creates a message of the appropriate concrete type based
// on the command so a transport adapter can decode an incoming payload into
// it.  Message framing itself belongs to the gossip adapter, not this
// package.
func MakeEmptyMessage(command string) (Message, error) {
	var msg Message
	switch command {
	case CmdInv:
		msg = &MsgInv{}

	case CmdGetData:
		msg = &MsgGetData{}

	case CmdGetBlocks:
		msg = &MsgGetBlocks{}

	case CmdBlock:
		msg = &MsgBlock{}

	case CmdTx:
		msg = &MsgTx{}

	default:
		return nil, fmt.Errorf("unhandled command [%s]", command)
	}
	return msg, nil
}
