// Package network provides the message protocol nodes speak and an in
// process full mesh that routes messages between nodes.
package network

import (
	"fmt"

	"github.com/ardanlabs/powmesh/foundation/blockchain/database"
	"github.com/ardanlabs/powmesh/foundation/blockchain/peer"
)

// Kind identifies the type of a message.
type Kind uint8

// Set of message kinds in the protocol.
const (
	KindMine Kind = iota + 1
	KindNewBlock
	KindRequestChain
	KindChain
)

// String implements the fmt.Stringer interface.
func (k Kind) String() string {
	switch k {
	case KindMine:
		return "Mine"
	case KindNewBlock:
		return "NewBlock"
	case KindRequestChain:
		return "RequestChain"
	case KindChain:
		return "Chain"
	}

	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Message is the unit of communication between nodes. Only the fields that
// belong to the kind are set. A message is never modified after it is sent.
type Message struct {
	Kind      Kind             `json:"kind"`
	From      peer.ID          `json:"from"`
	Data      string           `json:"data,omitempty"`      // Mine
	Block     database.Block   `json:"block"`               // NewBlock
	Requester peer.ID          `json:"requester,omitempty"` // RequestChain
	Blocks    []database.Block `json:"blocks,omitempty"`    // Chain
}

// NewMine constructs a trigger asking a node to mine the payload. A mine
// message comes from outside the network so it has no sender.
func NewMine(data string) Message {
	return Message{
		Kind: KindMine,
		Data: data,
	}
}

// NewBlockMessage constructs the announcement of a newly accepted block.
func NewBlockMessage(from peer.ID, block database.Block) Message {
	return Message{
		Kind:  KindNewBlock,
		From:  from,
		Block: block,
	}
}

// NewRequestChain constructs a request for the full chain of a peer.
func NewRequestChain(requester peer.ID) Message {
	return Message{
		Kind:      KindRequestChain,
		From:      requester,
		Requester: requester,
	}
}

// NewChain constructs a full chain snapshot. The blocks are copied so the
// caller can't change the message after it is sent.
func NewChain(from peer.ID, blocks []database.Block) Message {
	cpy := make([]database.Block, len(blocks))
	copy(cpy, blocks)

	return Message{
		Kind:   KindChain,
		From:   from,
		Blocks: cpy,
	}
}

// String implements the fmt.Stringer interface for logging.
func (m Message) String() string {
	switch m.Kind {
	case KindMine:
		return fmt.Sprintf("%s: data[%d bytes]", m.Kind, len(m.Data))
	case KindNewBlock:
		return fmt.Sprintf("%s: from[%s]: %s", m.Kind, m.From, m.Block)
	case KindRequestChain:
		return fmt.Sprintf("%s: requester[%s]", m.Kind, m.Requester)
	case KindChain:
		return fmt.Sprintf("%s: from[%s]: blocks[%d]", m.Kind, m.From, len(m.Blocks))
	}

	return m.Kind.String()
}
