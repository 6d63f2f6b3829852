package main

// cmd/brightchain/main.go is the composition root: it loads configuration,
// constructs the block store, peer transport, gossip and retry services,
// registers Prometheus metrics, and wires everything into the cobra CLI
// tree exposed by brightchain/cmd/cli.

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"brightchain/cmd/cli"
	cfgpkg "brightchain/cmd/config"
	"brightchain/core"
	"brightchain/p2p"
	pkgconfig "brightchain/pkg/config"
)

// logEventEmitter is a minimal core.MessageEventEmitter that logs terminal
// and lifecycle events via logrus, standing in for a production observer
// (UI push, audit log) that no component in this tree currently needs.
type logEventEmitter struct{ log *logrus.Logger }

func (e *logEventEmitter) Emit(eventType core.EventType, metadata map[string]any) {
	e.log.WithFields(logrus.Fields(metadata)).Infof("brightchain: event %s", eventType)
}

// noopDeliveryStatusStore discards delivery-status projections. A real
// deployment would back this with a database; nothing in this tree needs
// persisted status outside the retry service's own in-memory tracking.
type noopDeliveryStatusStore struct{}

func (noopDeliveryStatusStore) UpdateDeliveryStatus(messageID, recipientID string, status core.DeliveryStatus) error {
	return nil
}

func buildStore(cfg *pkgconfig.Config) (core.BlockStore, error) {
	switch cfg.Store.Backend {
	case "disk":
		return core.NewDiskBlockStore(cfg.Store.DiskDir, cfg.Store.BlockSize, cfg.Network.NodeID, cfg.Store.MaxEntries)
	default:
		return core.NewMemoryBlockStore(cfg.Store.BlockSize, cfg.Network.NodeID), nil
	}
}

func buildGossipConfig(cfg *pkgconfig.Config) core.GossipConfig {
	return core.GossipConfig{
		Fanout:          cfg.Gossip.Fanout,
		DefaultTTL:      cfg.Gossip.DefaultTTL,
		BatchIntervalMs: cfg.Gossip.BatchIntervalMs,
		MaxBatchSize:    cfg.Gossip.MaxBatchSize,
		NormalFanout:    cfg.Gossip.NormalFanout,
		NormalTTL:       cfg.Gossip.NormalTTL,
		HighFanout:      cfg.Gossip.HighFanout,
		HighTTL:         cfg.Gossip.HighTTL,
	}
}

func buildRetryConfig(cfg *pkgconfig.Config) core.RetryConfig {
	return core.RetryConfig{
		InitialTimeoutMs:  cfg.Retry.InitialTimeoutMs,
		BackoffMultiplier: cfg.Retry.BackoffMultiplier,
		MaxRetries:        cfg.Retry.MaxRetries,
		MaxBackoffMs:      cfg.Retry.MaxBackoffMs,
	}
}

// announceReadLoop drains inbound gossip messages from the node's announce
// subscription and hands each decoded announcement to the gossip service's
// receive path. It ranges over the subscription channel until it closes at
// node shutdown, continuing past decode errors rather than aborting.
func announceReadLoop(log *logrus.Logger, ch <-chan p2p.InboundMsg, gossip *core.GossipService) {
	for msg := range ch {
		var a core.BlockAnnouncement
		if err := json.Unmarshal(msg.Payload, &a); err != nil {
			log.Warnf("brightchain: decode inbound announcement from %s: %v", msg.PeerID, err)
			continue
		}
		gossip.HandleAnnouncement(a)
	}
}

func run() error {
	env := os.Getenv("BRIGHTCHAIN_ENV")
	cfgpkg.LoadConfig(env)
	cfg := &cfgpkg.AppConfig

	log := logrus.StandardLogger()
	if cfg.Logging.Level != "" {
		lvl, err := logrus.ParseLevel(cfg.Logging.Level)
		if err == nil {
			log.SetLevel(lvl)
		}
	}

	if err := core.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("brightchain: register metrics: %w", err)
	}

	store, err := buildStore(cfg)
	if err != nil {
		return fmt.Errorf("brightchain: build store: %w", err)
	}
	cli.SetActiveStore(store)

	node, err := p2p.NewNode(p2p.Config{
		ListenAddr:     cfg.Network.ListenAddr,
		BootstrapPeers: cfg.Network.BootstrapPeers,
		DiscoveryTag:   cfg.Network.DiscoveryTag,
	})
	if err != nil {
		return fmt.Errorf("brightchain: start p2p node: %w", err)
	}
	defer node.Close()
	cli.SetActiveNode(node)

	peerMgmt := p2p.NewPeerManagement(node)

	gossip, err := core.NewGossipService(cfg.Network.NodeID, buildGossipConfig(cfg), peerMgmt)
	if err != nil {
		return fmt.Errorf("brightchain: build gossip service: %w", err)
	}
	gossip.Start()
	defer gossip.Stop()
	cli.SetActiveGossip(gossip)

	announceCh, err := peerMgmt.Subscribe(p2p.AnnounceTopic)
	if err != nil {
		return fmt.Errorf("brightchain: subscribe to announce topic: %w", err)
	}
	go announceReadLoop(log, announceCh, gossip)

	retry, err := core.NewRetryService(buildRetryConfig(cfg), gossip, noopDeliveryStatusStore{}, &logEventEmitter{log: log})
	if err != nil {
		return fmt.Errorf("brightchain: build retry service: %w", err)
	}
	retry.Start()
	defer retry.Stop()
	cli.SetActiveRetry(retry)

	log.Infof("brightchain: node %s up, listening %s", cfg.Network.NodeID, cfg.Network.ListenAddr)

	root := &cobra.Command{Use: "brightchain", Short: "BrightChain content-addressed block storage and gossip node"}
	cli.RegisterStoreCLI(root)
	cli.RegisterWhitenCLI(root)
	cli.RegisterMagnetCLI(root)
	cli.RegisterGossipCLI(root)
	cli.RegisterRetryCLI(root)
	cli.RegisterNodeCLI(root)

	return root.Execute()
}

func main() {
	if err := run(); err != nil {
		logrus.Fatal(err)
	}
}
