package core_test

import (
	"testing"

	core "brightchain/core"
)

func TestValidDeliveryTransitionAllowedPaths(t *testing.T) {
	cases := []struct {
		from, to core.DeliveryStatus
	}{
		{core.StatusPending, core.StatusAnnounced},
		{core.StatusPending, core.StatusFailed},
		{core.StatusAnnounced, core.StatusDelivered},
		{core.StatusAnnounced, core.StatusFailed},
		{core.StatusAnnounced, core.StatusBounced},
		{core.StatusDelivered, core.StatusRead},
		{core.StatusDelivered, core.StatusFailed},
	}
	for _, c := range cases {
		if !core.ValidDeliveryTransition(c.from, c.to) {
			t.Fatalf("%s -> %s should be a valid transition", c.from, c.to)
		}
	}
}

func TestValidDeliveryTransitionRejectsInvalidPaths(t *testing.T) {
	cases := []struct {
		from, to core.DeliveryStatus
	}{
		{core.StatusPending, core.StatusDelivered}, // must go through announced
		{core.StatusRead, core.StatusDelivered},    // read is terminal
		{core.StatusFailed, core.StatusAnnounced},  // failed is terminal
		{core.StatusBounced, core.StatusDelivered}, // bounced is terminal
	}
	for _, c := range cases {
		if core.ValidDeliveryTransition(c.from, c.to) {
			t.Fatalf("%s -> %s should not be a valid transition", c.from, c.to)
		}
	}
}

func TestIsTerminalDeliveryStatus(t *testing.T) {
	terminal := []core.DeliveryStatus{core.StatusRead, core.StatusFailed, core.StatusBounced}
	for _, s := range terminal {
		if !core.IsTerminalDeliveryStatus(s) {
			t.Fatalf("%s should be terminal", s)
		}
	}
	nonTerminal := []core.DeliveryStatus{core.StatusPending, core.StatusAnnounced, core.StatusDelivered}
	for _, s := range nonTerminal {
		if core.IsTerminalDeliveryStatus(s) {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}
