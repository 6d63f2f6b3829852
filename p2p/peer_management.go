package p2p

// PeerManagement implements core.PeerSampler (gossip fanout sampling) and
// core.NetworkTransport (point-to-point delivery + reachability) on top of
// a Node, so it plugs directly into core.NewGossipService and the retry
// service's collaborators.

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/sirupsen/logrus"

	"brightchain/core"
)

const announceProtocol = protocol.ID("/brightchain/announce/1")

// PeerManagement implements core.PeerSampler and core.NetworkTransport on
// top of a Node.
type PeerManagement struct {
	node *Node
	log  *logrus.Logger
}

// NewPeerManagement wraps an existing Node to expose peer sampling and
// transport functions.
func NewPeerManagement(n *Node) *PeerManagement {
	return &PeerManagement{node: n, log: logrus.StandardLogger()}
}

func shufflePeers(peers []*Peer) {
	for i := len(peers) - 1; i > 0; i-- {
		jBig, err := crand.Int(crand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return
		}
		j := int(jBig.Int64())
		peers[i], peers[j] = peers[j], peers[i]
	}
}

// SamplePeers implements core.PeerSampler: returns up to n peer ids chosen
// uniformly at random via a cryptographic shuffle.
func (pm *PeerManagement) SamplePeers(n int) []string {
	peers := pm.node.Peers()
	shufflePeers(peers)
	if n > len(peers) {
		n = len(peers)
	}
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, string(peers[i].ID))
	}
	return ids
}

// SendAnnouncement implements core.PeerSampler: marshals a to JSON and
// publishes it on the announce topic for peerID to pick up via gossipsub.
// libp2p pubsub fans out to all subscribers of a topic, so per-peer unicast
// delivery for the nominal target is not distinguished from the topic
// broadcast.
func (pm *PeerManagement) SendAnnouncement(peerID string, a core.BlockAnnouncement) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("brightchain: marshal announcement: %w", err)
	}
	return pm.node.Broadcast(AnnounceTopic, payload)
}

// SendToNode implements core.NetworkTransport by opening a direct libp2p
// stream to nodeID and writing messageID as the payload.
func (pm *PeerManagement) SendToNode(nodeID, messageID string) (bool, error) {
	pid, err := peer.Decode(nodeID)
	if err != nil {
		return false, fmt.Errorf("%w: invalid node id %s: %v", core.ErrTransport, nodeID, err)
	}
	ctx, cancel := context.WithTimeout(pm.node.ctx, 5*time.Second)
	defer cancel()
	s, err := pm.node.host.NewStream(ctx, pid, announceProtocol)
	if err != nil {
		return false, fmt.Errorf("%w: %v", core.ErrTransport, err)
	}
	defer s.Close()
	if _, err := s.Write([]byte(messageID)); err != nil {
		return false, fmt.Errorf("%w: %v", core.ErrTransport, err)
	}
	return true, nil
}

// IsNodeReachable implements core.NetworkTransport by checking whether
// nodeID is in the current peer set.
func (pm *PeerManagement) IsNodeReachable(nodeID string) (bool, error) {
	for _, p := range pm.node.Peers() {
		if string(p.ID) == nodeID {
			return true, nil
		}
	}
	return false, nil
}

// Subscribe joins proto (reusing the node's handle if Broadcast already
// joined it) and returns a channel of inbound messages.
func (pm *PeerManagement) Subscribe(proto string) (<-chan InboundMsg, error) {
	pm.node.topicLock.Lock()
	t, ok := pm.node.topics[proto]
	if !ok {
		var err error
		t, err = pm.node.pubsub.Join(proto)
		if err != nil {
			pm.node.topicLock.Unlock()
			return nil, fmt.Errorf("brightchain: join %s: %w", proto, err)
		}
		pm.node.topics[proto] = t
	}
	pm.node.topicLock.Unlock()
	sub, err := t.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("brightchain: subscribe %s: %w", proto, err)
	}
	out := make(chan InboundMsg)
	go func() {
		defer close(out)
		for {
			msg, err := sub.Next(pm.node.ctx)
			if err != nil {
				return
			}
			out <- InboundMsg{PeerID: msg.GetFrom().String(), Payload: msg.Data, Topic: proto, Ts: time.Now().UnixMilli()}
		}
	}()
	return out, nil
}

var (
	_ core.PeerSampler      = (*PeerManagement)(nil)
	_ core.NetworkTransport = (*PeerManagement)(nil)
)
