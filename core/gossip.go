package core

// Gossip service. Outbound announcements accumulate in a queue and are
// flushed on a timer or when the queue hits its batch cap; each flushed
// announcement goes to a random peer sample sized by its priority tier.
// Inbound announcements are validated, deduplicated via a bounded LRU
// cache, delivered to subscribers, and forwarded with a decremented TTL.

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
)

// GossipConfig holds the fanout/TTL/batch policy.
type GossipConfig struct {
	Fanout          int
	DefaultTTL      int
	BatchIntervalMs int
	MaxBatchSize    int
	NormalFanout    int
	NormalTTL       int
	HighFanout      int
	HighTTL         int
}

// DefaultGossipConfig returns the standard fanout/TTL/batch policy.
func DefaultGossipConfig() GossipConfig {
	return GossipConfig{
		Fanout:          3,
		DefaultTTL:      3,
		BatchIntervalMs: 1000,
		MaxBatchSize:    100,
		NormalFanout:    5,
		NormalTTL:       5,
		HighFanout:      7,
		HighTTL:         7,
	}
}

// Valid reports whether every fanout/TTL/batch value is a positive integer.
func (c GossipConfig) Valid() bool {
	values := []int{c.Fanout, c.DefaultTTL, c.BatchIntervalMs, c.MaxBatchSize, c.NormalFanout, c.NormalTTL, c.HighFanout, c.HighTTL}
	for _, v := range values {
		if v <= 0 {
			return false
		}
	}
	return true
}

func (c GossipConfig) fanoutTTLFor(a BlockAnnouncement) (fanout, ttl int) {
	if a.MessageDelivery != nil {
		if a.MessageDelivery.Priority == PriorityHigh {
			return c.HighFanout, c.HighTTL
		}
		return c.NormalFanout, c.NormalTTL
	}
	return c.Fanout, c.DefaultTTL
}

// PeerSampler selects a uniformly random subset of the known peer set.
// Implementations need not be cryptographically secure; fanout selection is
// a liveness/coverage concern, not a confidentiality one.
type PeerSampler interface {
	SamplePeers(n int) []string
	SendAnnouncement(peerID string, a BlockAnnouncement) error
}

// AnnouncementHandler observes inbound and forwarded announcements.
type AnnouncementHandler func(BlockAnnouncement)

// GossipService batches outbound announcements, fans them out by priority
// tier, and forwards valid, undeduplicated inbound announcements with a
// decremented TTL.
type GossipService struct {
	cfg    GossipConfig
	peers  PeerSampler
	log    *logrus.Logger
	nodeID string

	mu       sync.Mutex
	queue    []BlockAnnouncement
	handlers []AnnouncementHandler
	seen     *lru.Cache[string, struct{}]

	// handlerMu serializes subscriber handler invocation across concurrent
	// HandleAnnouncement calls. It is distinct from mu so that a handler
	// calling back into this service (e.g. enqueueing a new announcement)
	// cannot deadlock against mu.
	handlerMu sync.Mutex

	ticker  *time.Ticker
	closing chan struct{}
	wg      sync.WaitGroup
	running bool
}

const seenCacheSize = 10_000

// NewGossipService constructs a service bound to nodeID and peers. A cfg
// failing Valid() is rejected with ErrConfigInvalid.
func NewGossipService(nodeID string, cfg GossipConfig, peers PeerSampler) (*GossipService, error) {
	if !cfg.Valid() {
		return nil, fmt.Errorf("%w: gossip config", ErrConfigInvalid)
	}
	cache, err := lru.New[string, struct{}](seenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("brightchain: gossip dedup cache: %w", err)
	}
	return &GossipService{
		cfg:     cfg,
		peers:   peers,
		nodeID:  nodeID,
		log:     logrus.StandardLogger(),
		seen:    cache,
		closing: make(chan struct{}),
	}, nil
}

func (g *GossipService) now() int64 { return time.Now().UnixMilli() }

func (g *GossipService) enqueue(a BlockAnnouncement) {
	g.mu.Lock()
	g.queue = append(g.queue, a)
	shouldFlush := len(g.queue) >= g.cfg.MaxBatchSize
	g.mu.Unlock()
	if shouldFlush {
		g.FlushAnnouncements()
	}
}

// AnnounceBlock emits a block-only `add` announcement.
func (g *GossipService) AnnounceBlock(blockID string) {
	g.enqueue(BlockAnnouncement{Type: AnnounceAdd, BlockID: blockID, NodeID: g.nodeID, Timestamp: g.now(), TTL: g.cfg.DefaultTTL})
}

// AnnounceRemoval emits a `remove` announcement.
func (g *GossipService) AnnounceRemoval(blockID string) {
	g.enqueue(BlockAnnouncement{Type: AnnounceRemove, BlockID: blockID, NodeID: g.nodeID, Timestamp: g.now(), TTL: g.cfg.DefaultTTL})
}

// AnnounceMessage emits an `add` announcement carrying delivery metadata,
// with fanout/TTL selected by metadata.Priority.
func (g *GossipService) AnnounceMessage(blockIDs []string, metadata MessageDeliveryMetadata) {
	ttl := g.cfg.NormalTTL
	if metadata.Priority == PriorityHigh {
		ttl = g.cfg.HighTTL
	}
	blockID := ""
	if len(blockIDs) > 0 {
		blockID = blockIDs[0]
	}
	md := metadata
	md.BlockIDs = blockIDs
	g.enqueue(BlockAnnouncement{Type: AnnounceAdd, BlockID: blockID, NodeID: g.nodeID, Timestamp: g.now(), TTL: ttl, MessageDelivery: &md})
}

// SendDeliveryAck emits an `ack` announcement.
func (g *GossipService) SendDeliveryAck(ack DeliveryAckMetadata) {
	g.enqueue(BlockAnnouncement{Type: AnnounceAck, NodeID: g.nodeID, Timestamp: g.now(), TTL: g.cfg.DefaultTTL, DeliveryAck: &ack})
}

// AnnouncePoolDeletion emits a `pool_deleted` announcement.
func (g *GossipService) AnnouncePoolDeletion(poolID string) {
	g.enqueue(BlockAnnouncement{Type: AnnouncePoolDeleted, PoolID: poolID, NodeID: g.nodeID, Timestamp: g.now(), TTL: g.cfg.DefaultTTL})
}

// AnnounceCBLIndexUpdate emits a `cbl_index_update` announcement.
func (g *GossipService) AnnounceCBLIndexUpdate(entry CBLIndexEntry) {
	g.enqueue(BlockAnnouncement{Type: AnnounceCBLIndexUpdate, NodeID: g.nodeID, Timestamp: g.now(), TTL: g.cfg.DefaultTTL, CBLIndexEntry: &entry})
}

// AnnounceCBLIndexDelete emits a `cbl_index_delete` announcement.
func (g *GossipService) AnnounceCBLIndexDelete(entry CBLIndexEntry) {
	g.enqueue(BlockAnnouncement{Type: AnnounceCBLIndexDelete, NodeID: g.nodeID, Timestamp: g.now(), TTL: g.cfg.DefaultTTL, CBLIndexEntry: &entry})
}

// OnAnnouncement registers a handler invoked (serialized per-instance) for
// every validated, non-duplicate announcement this service handles,
// inbound or forwarded.
func (g *GossipService) OnAnnouncement(h AnnouncementHandler) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handlers = append(g.handlers, h)
}

// OffAnnouncement removes a previously registered handler. Go function
// values are not comparable with ==, so identity is matched on the
// handler's code pointer; pass the same value given to OnAnnouncement.
func (g *GossipService) OffAnnouncement(h AnnouncementHandler) {
	if h == nil {
		return
	}
	target := reflect.ValueOf(h).Pointer()
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, existing := range g.handlers {
		if reflect.ValueOf(existing).Pointer() == target {
			g.handlers = append(g.handlers[:i], g.handlers[i+1:]...)
			return
		}
	}
}

// GetPendingAnnouncements returns a snapshot of the outbound queue.
func (g *GossipService) GetPendingAnnouncements() []BlockAnnouncement {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]BlockAnnouncement, len(g.queue))
	copy(out, g.queue)
	return out
}

// FlushAnnouncements drains the outbound queue, grouping by the fanout/TTL
// each announcement requires and sending each group to a random peer
// sample of that size.
func (g *GossipService) FlushAnnouncements() {
	g.mu.Lock()
	batch := g.queue
	g.queue = nil
	g.mu.Unlock()

	groups := make(map[int][]BlockAnnouncement)
	var fanouts []int
	for _, a := range batch {
		fanout, _ := g.cfg.fanoutTTLFor(a)
		if _, ok := groups[fanout]; !ok {
			fanouts = append(fanouts, fanout)
		}
		groups[fanout] = append(groups[fanout], a)
	}

	for _, fanout := range fanouts {
		targets := g.peers.SamplePeers(fanout)
		for _, a := range groups[fanout] {
			for _, peerID := range targets {
				if err := g.peers.SendAnnouncement(peerID, a); err != nil {
					g.log.Warnf("gossip[%s]: send to %s failed: %v", g.nodeID, peerID, err)
				}
			}
			g.log.Debugf("gossip[%s]: flushed %s/%s to %d peers", g.nodeID, a.Type, a.BlockID, len(targets))
		}
	}
}

// HandleAnnouncement processes an inbound announcement: validates it,
// drops invalid or duplicate ones, delivers to subscribers, and (for
// ttl>0, non-ack types) enqueues a TTL-decremented copy for forwarding.
// Handler invocation for distinct announcements is serialized per-instance
// via handlerMu, even when HandleAnnouncement itself is called from
// multiple goroutines concurrently.
func (g *GossipService) HandleAnnouncement(a BlockAnnouncement) {
	if !ValidateAnnouncement(a) {
		g.log.Debugf("gossip[%s]: dropped invalid announcement type=%s", g.nodeID, a.Type)
		AnnouncementsDroppedTotal.Inc()
		return
	}

	key := a.dedupKey()
	g.mu.Lock()
	if _, dup := g.seen.Get(key); dup {
		g.mu.Unlock()
		g.log.Debugf("gossip[%s]: dropped duplicate %s", g.nodeID, key)
		AnnouncementsDroppedTotal.Inc()
		return
	}
	g.seen.Add(key, struct{}{})
	handlers := make([]AnnouncementHandler, len(g.handlers))
	copy(handlers, g.handlers)
	g.mu.Unlock()

	g.handlerMu.Lock()
	for _, h := range handlers {
		h(a)
	}
	g.handlerMu.Unlock()

	if a.Type == AnnounceAck {
		return
	}
	if a.TTL <= 0 {
		return
	}
	forwarded := a
	forwarded.TTL = a.TTL - 1
	g.enqueue(forwarded)
	AnnouncementsForwardedTotal.Inc()
}

// Start launches the periodic batch-flush loop.
func (g *GossipService) Start() {
	g.mu.Lock()
	if g.running {
		g.mu.Unlock()
		return
	}
	g.running = true
	g.ticker = time.NewTicker(time.Duration(g.cfg.BatchIntervalMs) * time.Millisecond)
	g.mu.Unlock()

	g.wg.Add(1)
	go g.tickLoop()
}

func (g *GossipService) tickLoop() {
	defer g.wg.Done()
	for {
		select {
		case <-g.closing:
			return
		case <-g.ticker.C:
			g.FlushAnnouncements()
		}
	}
}

// Stop cancels the periodic tick and flushes pending announcements
// best-effort. The emitter is never invoked during stop.
func (g *GossipService) Stop() {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return
	}
	g.running = false
	closing := g.closing
	ticker := g.ticker
	g.mu.Unlock()

	close(closing)
	ticker.Stop()
	g.wg.Wait()

	g.mu.Lock()
	g.closing = make(chan struct{})
	g.mu.Unlock()

	g.FlushAnnouncements()
}
