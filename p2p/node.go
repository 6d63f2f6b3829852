package p2p

// Node bootstrap: a libp2p host plus gossipsub router, mDNS discovery for
// LAN peers, and explicit dial of any configured bootstrap peers. Gossip
// operates over the configured/discovered peer set; no inbound port
// mapping is attempted.

import (
	"context"
	"fmt"
	"strings"

	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	"github.com/sirupsen/logrus"
)

// NewNode creates and bootstraps a BrightChain libp2p node: it starts a
// gossipsub router, dials any configured bootstrap peers, and begins mDNS
// discovery under cfg.DiscoveryTag.
func NewNode(cfg Config) (*Node, error) {
	ctx, cancel := context.WithCancel(context.Background())

	h, err := libp2p.New(libp2p.ListenAddrStrings(cfg.ListenAddr))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("brightchain: create libp2p host: %w", err)
	}

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		h.Close()
		cancel()
		return nil, fmt.Errorf("brightchain: create gossipsub: %w", err)
	}

	n := &Node{
		host:   h,
		pubsub: ps,
		topics: make(map[string]*pubsub.Topic),
		subs:   make(map[string]*pubsub.Subscription),
		peers:  make(map[NodeID]*Peer),
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
	}

	if err := n.DialSeed(cfg.BootstrapPeers); err != nil {
		logrus.Warnf("brightchain: bootstrap dial warning: %v", err)
	}

	mdnsService := mdns.NewMdnsService(h, cfg.DiscoveryTag, n)
	if err := mdnsService.Start(); err != nil {
		logrus.Warnf("brightchain: mdns discovery failed: %v", err)
	}

	return n, nil
}

// DialSeed connects to each address in seeds, adding reachable ones to the
// peer table. Errors for individual addresses are collected rather than
// aborting the rest of the list; the caller decides whether a partial
// failure matters.
func (n *Node) DialSeed(seeds []string) error {
	var errs []string
	for _, addr := range seeds {
		pi, err := peer.AddrInfoFromString(addr)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid addr %s: %v", addr, err))
			continue
		}
		if err := n.host.Connect(n.ctx, *pi); err != nil {
			errs = append(errs, fmt.Sprintf("connect %s: %v", addr, err))
			continue
		}
		n.peerLock.Lock()
		n.peers[NodeID(pi.ID.String())] = &Peer{ID: NodeID(pi.ID.String()), Addr: addr}
		n.peerLock.Unlock()
		logrus.Infof("brightchain: bootstrapped to %s", addr)
	}
	if len(errs) > 0 {
		return fmt.Errorf("dial errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// HandlePeerFound implements mdns.Notifee: connect to a discovered peer,
// ignoring self-discovery and peers already known.
func (n *Node) HandlePeerFound(info peer.AddrInfo) {
	if info.ID == n.host.ID() {
		return
	}
	n.peerLock.RLock()
	_, exists := n.peers[NodeID(info.ID.String())]
	n.peerLock.RUnlock()
	if exists {
		return
	}
	if err := n.host.Connect(n.ctx, info); err != nil {
		logrus.Warnf("brightchain: connect to discovered peer %s failed: %v", info.ID, err)
		return
	}
	n.peerLock.Lock()
	n.peers[NodeID(info.ID.String())] = &Peer{ID: NodeID(info.ID.String()), Addr: info.String()}
	n.peerLock.Unlock()
	logrus.Infof("brightchain: connected to peer %s via mdns", info.ID)
}

var _ mdns.Notifee = (*Node)(nil)

// Broadcast publishes data on topic, joining it first if necessary.
func (n *Node) Broadcast(topic string, data []byte) error {
	n.topicLock.Lock()
	t, ok := n.topics[topic]
	if !ok {
		var err error
		t, err = n.pubsub.Join(topic)
		if err != nil {
			n.topicLock.Unlock()
			return fmt.Errorf("brightchain: join topic %s: %w", topic, err)
		}
		n.topics[topic] = t
	}
	n.topicLock.Unlock()
	if err := t.Publish(n.ctx, data); err != nil {
		return fmt.Errorf("brightchain: publish topic %s: %w", topic, err)
	}
	return nil
}

// Peers returns the current known-peer list.
func (n *Node) Peers() []*Peer {
	n.peerLock.RLock()
	defer n.peerLock.RUnlock()
	list := make([]*Peer, 0, len(n.peers))
	for _, p := range n.peers {
		list = append(list, p)
	}
	return list
}

// Close tears down the node's host and context.
func (n *Node) Close() error {
	n.cancel()
	return n.host.Close()
}
