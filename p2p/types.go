// Package p2p provides the concrete, libp2p-backed NetworkTransport and
// peer sampler for BrightChain's gossip service. The core package never
// imports this package; wiring a Node's PeerManagement into a
// core.GossipService or core.NetworkTransport consumer happens at the
// application's composition root (cmd/brightchain).
package p2p

import (
	"context"
	"sync"
	"time"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
)

// AnnounceTopic is the pubsub topic BrightChain nodes publish gossip
// announcements on.
const AnnounceTopic = "brightchain/announce"

// NodeID identifies a peer, mirroring a libp2p peer.ID's string form.
type NodeID string

// Peer is a known remote node.
type Peer struct {
	ID      NodeID
	Addr    string
	Latency time.Duration
}

// Config configures a Node's libp2p host and bootstrap behavior.
type Config struct {
	ListenAddr     string
	BootstrapPeers []string
	DiscoveryTag   string
}

// InboundMsg is a message received on a subscribed topic.
type InboundMsg struct {
	PeerID  string
	Payload []byte
	Topic   string
	Ts      int64
}

// Node wraps a libp2p host and gossipsub router with the peer bookkeeping
// BrightChain's transport and peer sampler need.
type Node struct {
	host      host.Host
	pubsub    *pubsub.PubSub
	topics    map[string]*pubsub.Topic
	subs      map[string]*pubsub.Subscription
	topicLock sync.RWMutex
	subLock   sync.RWMutex
	peerLock  sync.RWMutex
	peers     map[NodeID]*Peer
	ctx       context.Context
	cancel    context.CancelFunc
	cfg       Config
}
