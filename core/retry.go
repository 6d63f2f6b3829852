package core

// Retry/ack service. Tracks every in-flight message's per-recipient
// delivery state, re-announces via gossip with exponential backoff when no
// ack arrives, and fails unacked recipients once the retry budget is
// exhausted. A context-cancelable background ticker drives the checks;
// re-announcement failures are logged rather than halting the loop.

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RetryConfig holds the backoff/retry policy.
type RetryConfig struct {
	InitialTimeoutMs  int
	BackoffMultiplier int
	MaxRetries        int
	MaxBackoffMs      int
}

// DefaultRetryConfig returns the standard backoff/retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialTimeoutMs:  30000,
		BackoffMultiplier: 2,
		MaxRetries:        5,
		MaxBackoffMs:      240000,
	}
}

// Valid reports whether every config value is a positive integer.
func (c RetryConfig) Valid() bool {
	return c.InitialTimeoutMs > 0 && c.BackoffMultiplier > 0 && c.MaxRetries > 0 && c.MaxBackoffMs > 0
}

// BackoffDelay returns the delay before the nth retry (1-indexed), per
// min(initialTimeoutMs * multiplier^(n-1), maxBackoffMs).
func (c RetryConfig) BackoffDelay(n int) time.Duration {
	scaled := float64(c.InitialTimeoutMs) * math.Pow(float64(c.BackoffMultiplier), float64(n-1))
	ms := int(math.Min(scaled, float64(c.MaxBackoffMs)))
	return time.Duration(ms) * time.Millisecond
}

// RetryCheckInterval is the internal tick cadence.
const RetryCheckInterval = time.Second

// PendingDelivery tracks one in-flight message's per-recipient delivery
// state.
type PendingDelivery struct {
	MessageID         string
	BlockIDs          []string
	Metadata          MessageDeliveryMetadata
	RecipientStatuses map[string]DeliveryStatus
	RetryCount        int
	NextRetryAt       time.Time
	CreatedAt         time.Time
}

func (p *PendingDelivery) allTerminalDelivered() bool {
	for _, status := range p.RecipientStatuses {
		if status != StatusDelivered && status != StatusRead {
			return false
		}
	}
	return true
}

// RetryService tracks pending deliveries, re-announces via gossip on
// timeout with exponential backoff, and drives the per-recipient
// DeliveryStatus state machine from acks.
type RetryService struct {
	cfg     RetryConfig
	gossip  *GossipService
	store   DeliveryStatusStore
	emitter MessageEventEmitter
	log     *logrus.Logger

	mu      sync.Mutex
	pending map[string]*PendingDelivery

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewRetryService constructs a service bound to the given gossip service and
// external collaborators. store and emitter may be nil; a nil collaborator
// is simply skipped rather than substituted with a no-op.
func NewRetryService(cfg RetryConfig, gossip *GossipService, store DeliveryStatusStore, emitter MessageEventEmitter) (*RetryService, error) {
	if !cfg.Valid() {
		return nil, fmt.Errorf("%w: retry config", ErrConfigInvalid)
	}
	return &RetryService{
		cfg:     cfg,
		gossip:  gossip,
		store:   store,
		emitter: emitter,
		log:     logrus.StandardLogger(),
		pending: make(map[string]*PendingDelivery),
	}, nil
}

// GetConfig returns the service's retry configuration.
func (s *RetryService) GetConfig() RetryConfig { return s.cfg }

// TrackDelivery begins tracking a new outbound message, initializing every
// recipient's status to Announced.
func (s *RetryService) TrackDelivery(messageID string, blockIDs []string, metadata MessageDeliveryMetadata) {
	statuses := make(map[string]DeliveryStatus, len(metadata.RecipientIDs))
	for _, r := range metadata.RecipientIDs {
		statuses[r] = StatusAnnounced
	}
	now := time.Now()
	s.mu.Lock()
	s.pending[messageID] = &PendingDelivery{
		MessageID:         messageID,
		BlockIDs:          blockIDs,
		Metadata:          metadata,
		RecipientStatuses: statuses,
		RetryCount:        0,
		NextRetryAt:       now.Add(s.cfg.BackoffDelay(1)),
		CreatedAt:         now,
	}
	s.mu.Unlock()
	PendingDeliveriesGauge.Set(float64(s.GetPendingCount()))
}

// GetPendingDelivery returns the tracked delivery for messageID, if any.
func (s *RetryService) GetPendingDelivery(messageID string) (PendingDelivery, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[messageID]
	if !ok {
		return PendingDelivery{}, false
	}
	return *p, true
}

// GetPendingCount returns the number of messages currently tracked.
func (s *RetryService) GetPendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// HandleAck applies an inbound delivery ack. Unknown messageId/recipientId
// and invalid transitions are silently ignored and never reach the external
// delivery-status store.
func (s *RetryService) HandleAck(ack DeliveryAckMetadata) {
	newStatus, ok := ackStatusToDeliveryStatus(ack.Status)
	if !ok {
		return
	}

	s.mu.Lock()
	p, ok := s.pending[ack.MessageID]
	if !ok {
		s.mu.Unlock()
		return
	}
	current, ok := p.RecipientStatuses[ack.RecipientID]
	if !ok {
		s.mu.Unlock()
		return
	}
	if !ValidDeliveryTransition(current, newStatus) {
		s.mu.Unlock()
		return
	}
	p.RecipientStatuses[ack.RecipientID] = newStatus
	delivered := p.allTerminalDelivered()
	if delivered {
		delete(s.pending, ack.MessageID)
	}
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.UpdateDeliveryStatus(ack.MessageID, ack.RecipientID, newStatus); err != nil {
			s.log.Warnf("retry: update delivery status for %s/%s: %v", ack.MessageID, ack.RecipientID, err)
		}
	}

	if delivered && s.emitter != nil {
		s.emitter.Emit(EventMessageDelivered, map[string]any{"messageId": ack.MessageID})
	}
	PendingDeliveriesGauge.Set(float64(s.GetPendingCount()))
}

// CheckRetries runs one tick of the retry algorithm: deliveries whose
// nextRetryAt has not yet arrived are skipped; deliveries that have
// exhausted maxRetries are failed; all others are re-announced via gossip
// with incremented retryCount and backoff.
func (s *RetryService) CheckRetries() {
	now := time.Now()

	s.mu.Lock()
	var toReannounce []*PendingDelivery
	var toFail []*PendingDelivery
	for _, p := range s.pending {
		if now.Before(p.NextRetryAt) {
			continue
		}
		if p.RetryCount >= s.cfg.MaxRetries {
			toFail = append(toFail, p)
			continue
		}
		toReannounce = append(toReannounce, p)
	}
	for _, p := range toFail {
		delete(s.pending, p.MessageID)
	}
	s.mu.Unlock()

	for _, p := range toReannounce {
		s.gossip.AnnounceMessage(p.BlockIDs, p.Metadata)
		s.mu.Lock()
		p.RetryCount++
		p.NextRetryAt = now.Add(s.cfg.BackoffDelay(p.RetryCount + 1))
		s.mu.Unlock()
	}

	for _, p := range toFail {
		s.failExhausted(p)
	}
	if len(toFail) > 0 {
		PendingDeliveriesGauge.Set(float64(s.GetPendingCount()))
	}
}

func (s *RetryService) failExhausted(p *PendingDelivery) {
	for recipientID, status := range p.RecipientStatuses {
		if status == StatusAnnounced || status == StatusPending {
			p.RecipientStatuses[recipientID] = StatusFailed
			if s.store != nil {
				if err := s.store.UpdateDeliveryStatus(p.MessageID, recipientID, StatusFailed); err != nil {
					s.log.Warnf("retry: update delivery status for %s/%s: %v", p.MessageID, recipientID, err)
				}
			}
		}
	}
	if s.emitter != nil {
		s.emitter.Emit(EventMessageFailed, map[string]any{"messageId": p.MessageID})
	}
	RetryExhaustionTotal.Inc()
}

// Start launches the periodic retry-check loop, ticking every
// RetryCheckInterval.
func (s *RetryService) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)
	s.log.Info("retry service started")
}

func (s *RetryService) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(RetryCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckRetries()
		}
	}
}

// Stop cancels the periodic tick. The pending-delivery map is left intact
// for inspection; the emitter is not invoked during stop.
func (s *RetryService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.log.Info("retry service stopped")
}
