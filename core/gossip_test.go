package core_test

import (
	"errors"
	"sync"
	"testing"

	core "brightchain/core"
)

type mockPeerSampler struct {
	mu      sync.Mutex
	peers   []string
	sent    []core.BlockAnnouncement
	sentTo  []string
	failAll bool
}

func newMockPeerSampler(peers ...string) *mockPeerSampler {
	return &mockPeerSampler{peers: peers}
}

func (m *mockPeerSampler) SamplePeers(n int) []string {
	if n > len(m.peers) {
		n = len(m.peers)
	}
	return m.peers[:n]
}

func (m *mockPeerSampler) SendAnnouncement(peerID string, a core.BlockAnnouncement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return errMockSendFailed
	}
	m.sent = append(m.sent, a)
	m.sentTo = append(m.sentTo, peerID)
	return nil
}

var errMockSendFailed = errors.New("mock send failed")

func TestNewGossipServiceRejectsInvalidConfig(t *testing.T) {
	cfg := core.GossipConfig{} // all zero, invalid
	if _, err := core.NewGossipService("node-1", cfg, newMockPeerSampler()); err == nil {
		t.Fatalf("expected error constructing gossip service with invalid config")
	}
}

func TestGossipAnnounceBlockFlowsThroughFanout(t *testing.T) {
	peers := newMockPeerSampler("p1", "p2", "p3", "p4")
	cfg := core.GossipConfig{Fanout: 2, DefaultTTL: 3, BatchIntervalMs: 1000, MaxBatchSize: 100, NormalFanout: 5, NormalTTL: 5, HighFanout: 7, HighTTL: 7}
	g, err := core.NewGossipService("node-1", cfg, peers)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	g.AnnounceBlock("block-1")
	if len(g.GetPendingAnnouncements()) != 1 {
		t.Fatalf("expected 1 pending announcement before flush")
	}

	g.FlushAnnouncements()

	peers.mu.Lock()
	defer peers.mu.Unlock()
	if len(peers.sent) != 2 {
		t.Fatalf("sent to %d peers, want fanout of 2", len(peers.sent))
	}
	if len(g.GetPendingAnnouncements()) != 0 {
		t.Fatalf("queue should be empty after flush")
	}
}

func TestGossipHandleAnnouncementDropsInvalid(t *testing.T) {
	peers := newMockPeerSampler("p1")
	cfg := core.DefaultGossipConfig()
	g, err := core.NewGossipService("node-1", cfg, peers)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	var received []core.BlockAnnouncement
	g.OnAnnouncement(func(a core.BlockAnnouncement) { received = append(received, a) })

	g.HandleAnnouncement(core.BlockAnnouncement{Type: core.AnnouncementType("bogus")})
	if len(received) != 0 {
		t.Fatalf("invalid announcement should not reach handlers")
	}
}

func TestGossipOffAnnouncementRemovesHandler(t *testing.T) {
	peers := newMockPeerSampler("p1")
	g, err := core.NewGossipService("node-1", core.DefaultGossipConfig(), peers)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	count := 0
	handler := func(a core.BlockAnnouncement) { count++ }
	g.OnAnnouncement(handler)
	g.OffAnnouncement(handler)

	g.HandleAnnouncement(core.BlockAnnouncement{Type: core.AnnounceAdd, BlockID: "block-1", NodeID: "node-2", Timestamp: 1, TTL: 3})
	if count != 0 {
		t.Fatalf("removed handler invoked %d times, want 0", count)
	}
}

func TestGossipHandleAnnouncementDedupesByKey(t *testing.T) {
	peers := newMockPeerSampler("p1")
	cfg := core.DefaultGossipConfig()
	g, err := core.NewGossipService("node-1", cfg, peers)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	count := 0
	g.OnAnnouncement(func(a core.BlockAnnouncement) { count++ })

	a := core.BlockAnnouncement{Type: core.AnnounceAdd, BlockID: "block-1", NodeID: "node-2", Timestamp: 1, TTL: 3}
	g.HandleAnnouncement(a)
	g.HandleAnnouncement(a) // duplicate
	if count != 1 {
		t.Fatalf("handler invoked %d times, want 1 (dedup)", count)
	}
}

func TestGossipHandleAnnouncementForwardsWithDecrementedTTL(t *testing.T) {
	peers := newMockPeerSampler("p1")
	cfg := core.DefaultGossipConfig()
	g, err := core.NewGossipService("node-1", cfg, peers)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	a := core.BlockAnnouncement{Type: core.AnnounceAdd, BlockID: "block-1", NodeID: "node-2", Timestamp: 1, TTL: 2}
	g.HandleAnnouncement(a)

	pending := g.GetPendingAnnouncements()
	if len(pending) != 1 {
		t.Fatalf("expected forwarded copy enqueued, got %d pending", len(pending))
	}
	if pending[0].TTL != 1 {
		t.Fatalf("forwarded TTL = %d, want 1", pending[0].TTL)
	}
}

func TestGossipHandleAnnouncementDoesNotForwardAtZeroTTL(t *testing.T) {
	peers := newMockPeerSampler("p1")
	cfg := core.DefaultGossipConfig()
	g, err := core.NewGossipService("node-1", cfg, peers)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	a := core.BlockAnnouncement{Type: core.AnnounceAdd, BlockID: "block-1", NodeID: "node-2", Timestamp: 1, TTL: 0}
	g.HandleAnnouncement(a)
	if len(g.GetPendingAnnouncements()) != 0 {
		t.Fatalf("ttl=0 announcement should not be forwarded")
	}
}

func TestGossipHandleAnnouncementNeverForwardsAcks(t *testing.T) {
	peers := newMockPeerSampler("p1")
	cfg := core.DefaultGossipConfig()
	g, err := core.NewGossipService("node-1", cfg, peers)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	a := core.BlockAnnouncement{
		Type: core.AnnounceAck, NodeID: "node-2", Timestamp: 1, TTL: 5,
		DeliveryAck: &core.DeliveryAckMetadata{MessageID: "m1", RecipientID: "r1", Status: core.AckDelivered, OriginalSenderNode: "node-0"},
	}
	g.HandleAnnouncement(a)
	if len(g.GetPendingAnnouncements()) != 0 {
		t.Fatalf("ack announcements should never be forwarded regardless of ttl")
	}
}

func TestGossipHighPriorityMessageUsesHighFanout(t *testing.T) {
	peers := newMockPeerSampler("p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8")
	cfg := core.DefaultGossipConfig()
	g, err := core.NewGossipService("node-1", cfg, peers)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	g.AnnounceMessage([]string{"b1"}, core.MessageDeliveryMetadata{
		MessageID: "m1", RecipientIDs: []string{"r1"}, Priority: core.PriorityHigh, BlockIDs: []string{"b1"}, CBLBlockID: "cbl1",
	})
	g.FlushAnnouncements()

	peers.mu.Lock()
	defer peers.mu.Unlock()
	if len(peers.sent) != cfg.HighFanout {
		t.Fatalf("sent to %d peers, want high-priority fanout of %d", len(peers.sent), cfg.HighFanout)
	}
}
