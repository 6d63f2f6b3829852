package core_test

import (
	"sync"
	"testing"
	"time"

	core "brightchain/core"
)

type recordingStatusStore struct {
	mu      sync.Mutex
	updates []core.DeliveryStatus
}

func (r *recordingStatusStore) UpdateDeliveryStatus(messageID, recipientID string, status core.DeliveryStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, status)
	return nil
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []core.EventType
}

func (r *recordingEmitter) Emit(eventType core.EventType, metadata map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

func newTestGossip(t *testing.T) *core.GossipService {
	t.Helper()
	g, err := core.NewGossipService("node-1", core.DefaultGossipConfig(), newMockPeerSampler())
	if err != nil {
		t.Fatalf("new gossip: %v", err)
	}
	return g
}

func TestRetryBackoffDelaySchedule(t *testing.T) {
	cfg := core.RetryConfig{InitialTimeoutMs: 30000, BackoffMultiplier: 2, MaxRetries: 5, MaxBackoffMs: 240000}
	want := []time.Duration{30 * time.Second, 60 * time.Second, 120 * time.Second, 240 * time.Second, 240 * time.Second}
	for i, w := range want {
		got := cfg.BackoffDelay(i + 1)
		if got != w {
			t.Fatalf("BackoffDelay(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestNewRetryServiceRejectsInvalidConfig(t *testing.T) {
	g := newTestGossip(t)
	if _, err := core.NewRetryService(core.RetryConfig{}, g, nil, nil); err == nil {
		t.Fatalf("expected error constructing retry service with invalid config")
	}
}

func TestTrackDeliveryInitializesAnnouncedStatus(t *testing.T) {
	g := newTestGossip(t)
	s, err := core.NewRetryService(core.DefaultRetryConfig(), g, nil, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	s.TrackDelivery("m1", []string{"b1"}, core.MessageDeliveryMetadata{RecipientIDs: []string{"r1", "r2"}})
	p, ok := s.GetPendingDelivery("m1")
	if !ok {
		t.Fatalf("expected tracked delivery for m1")
	}
	if p.RecipientStatuses["r1"] != core.StatusAnnounced || p.RecipientStatuses["r2"] != core.StatusAnnounced {
		t.Fatalf("recipient statuses not initialized to announced: %+v", p.RecipientStatuses)
	}
	if s.GetPendingCount() != 1 {
		t.Fatalf("pending count = %d, want 1", s.GetPendingCount())
	}
}

func TestHandleAckDeliversAndClearsWhenAllTerminal(t *testing.T) {
	g := newTestGossip(t)
	store := &recordingStatusStore{}
	emitter := &recordingEmitter{}
	s, err := core.NewRetryService(core.DefaultRetryConfig(), g, store, emitter)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	s.TrackDelivery("m1", []string{"b1"}, core.MessageDeliveryMetadata{RecipientIDs: []string{"r1"}})
	s.HandleAck(core.DeliveryAckMetadata{MessageID: "m1", RecipientID: "r1", Status: core.AckDelivered, OriginalSenderNode: "node-0"})

	if _, ok := s.GetPendingDelivery("m1"); ok {
		t.Fatalf("delivery should be cleared once every recipient reaches a terminal delivered state")
	}
	emitter.mu.Lock()
	defer emitter.mu.Unlock()
	if len(emitter.events) != 1 || emitter.events[0] != core.EventMessageDelivered {
		t.Fatalf("expected exactly one MessageDelivered event, got %+v", emitter.events)
	}
}

func TestHandleAckPartialDeliveryEmitsOnlyWhenComplete(t *testing.T) {
	g := newTestGossip(t)
	emitter := &recordingEmitter{}
	s, err := core.NewRetryService(core.DefaultRetryConfig(), g, nil, emitter)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.TrackDelivery("m1", []string{"b1"}, core.MessageDeliveryMetadata{RecipientIDs: []string{"r1", "r2", "r3"}})

	s.HandleAck(core.DeliveryAckMetadata{MessageID: "m1", RecipientID: "r1", Status: core.AckDelivered, OriginalSenderNode: "node-0"})
	s.HandleAck(core.DeliveryAckMetadata{MessageID: "m1", RecipientID: "r2", Status: core.AckDelivered, OriginalSenderNode: "node-0"})

	emitter.mu.Lock()
	if len(emitter.events) != 0 {
		emitter.mu.Unlock()
		t.Fatalf("no event should be emitted while a recipient is unacked, got %+v", emitter.events)
	}
	emitter.mu.Unlock()
	if s.GetPendingCount() != 1 {
		t.Fatalf("delivery should remain tracked until every recipient acks")
	}

	s.HandleAck(core.DeliveryAckMetadata{MessageID: "m1", RecipientID: "r3", Status: core.AckDelivered, OriginalSenderNode: "node-0"})

	emitter.mu.Lock()
	defer emitter.mu.Unlock()
	if len(emitter.events) != 1 || emitter.events[0] != core.EventMessageDelivered {
		t.Fatalf("expected exactly one MessageDelivered event, got %+v", emitter.events)
	}
	if s.GetPendingCount() != 0 {
		t.Fatalf("delivery should be removed after full delivery")
	}
}

func TestHandleAckIgnoresUnknownMessage(t *testing.T) {
	g := newTestGossip(t)
	s, err := core.NewRetryService(core.DefaultRetryConfig(), g, nil, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	// Should not panic despite no tracked delivery for this message id.
	s.HandleAck(core.DeliveryAckMetadata{MessageID: "unknown", RecipientID: "r1", Status: core.AckDelivered, OriginalSenderNode: "node-0"})
}

func TestHandleAckIgnoresInvalidTransition(t *testing.T) {
	g := newTestGossip(t)
	emitter := &recordingEmitter{}
	s, err := core.NewRetryService(core.DefaultRetryConfig(), g, nil, emitter)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.TrackDelivery("m1", []string{"b1"}, core.MessageDeliveryMetadata{RecipientIDs: []string{"r1"}})
	// "read" is not reachable directly from "announced" (must pass delivered).
	s.HandleAck(core.DeliveryAckMetadata{MessageID: "m1", RecipientID: "r1", Status: core.AckRead, OriginalSenderNode: "node-0"})

	p, ok := s.GetPendingDelivery("m1")
	if !ok {
		t.Fatalf("delivery should still be tracked")
	}
	if p.RecipientStatuses["r1"] != core.StatusAnnounced {
		t.Fatalf("status should be unchanged by an invalid transition, got %s", p.RecipientStatuses["r1"])
	}
}

func TestCheckRetriesExhaustsAfterMaxRetries(t *testing.T) {
	g := newTestGossip(t)
	emitter := &recordingEmitter{}
	cfg := core.RetryConfig{InitialTimeoutMs: 1, BackoffMultiplier: 1, MaxRetries: 1, MaxBackoffMs: 1}
	s, err := core.NewRetryService(cfg, g, nil, emitter)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.TrackDelivery("m1", []string{"b1"}, core.MessageDeliveryMetadata{RecipientIDs: []string{"r1"}})

	time.Sleep(5 * time.Millisecond)
	s.CheckRetries() // first retry: re-announce, RetryCount -> 1
	if _, ok := s.GetPendingDelivery("m1"); !ok {
		t.Fatalf("delivery should still be pending after first retry")
	}

	time.Sleep(5 * time.Millisecond)
	s.CheckRetries() // RetryCount (1) >= MaxRetries (1): exhausted
	if _, ok := s.GetPendingDelivery("m1"); ok {
		t.Fatalf("delivery should be removed once retries are exhausted")
	}

	emitter.mu.Lock()
	defer emitter.mu.Unlock()
	if len(emitter.events) != 1 || emitter.events[0] != core.EventMessageFailed {
		t.Fatalf("expected exactly one MessageFailed event, got %+v", emitter.events)
	}
}

func TestCheckRetriesExhaustionRecordsFailedStatuses(t *testing.T) {
	g := newTestGossip(t)
	store := &recordingStatusStore{}
	cfg := core.RetryConfig{InitialTimeoutMs: 1, BackoffMultiplier: 1, MaxRetries: 1, MaxBackoffMs: 1}
	s, err := core.NewRetryService(cfg, g, store, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.TrackDelivery("m1", []string{"b1"}, core.MessageDeliveryMetadata{RecipientIDs: []string{"r1", "r2"}})

	time.Sleep(5 * time.Millisecond)
	s.CheckRetries()
	time.Sleep(5 * time.Millisecond)
	s.CheckRetries()

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.updates) != 2 {
		t.Fatalf("external store received %d updates, want 2 (one per unacked recipient)", len(store.updates))
	}
	for _, u := range store.updates {
		if u != core.StatusFailed {
			t.Fatalf("external store recorded %s, want failed", u)
		}
	}
}

func TestCheckRetriesSkipsDeliveriesNotYetDue(t *testing.T) {
	g := newTestGossip(t)
	cfg := core.RetryConfig{InitialTimeoutMs: 60000, BackoffMultiplier: 2, MaxRetries: 5, MaxBackoffMs: 240000}
	s, err := core.NewRetryService(cfg, g, nil, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.TrackDelivery("m1", []string{"b1"}, core.MessageDeliveryMetadata{RecipientIDs: []string{"r1"}})
	s.CheckRetries()
	if _, ok := s.GetPendingDelivery("m1"); !ok {
		t.Fatalf("delivery not due for retry yet should remain pending and untouched")
	}
}
