package core

// Announcement schema and pure validator. A BlockAnnouncement is a tagged
// union: the optional metadata pointers are only legal on the announcement
// types that carry them.

import "regexp"

// AnnouncementType enumerates the gossip announcement kinds.
type AnnouncementType string

const (
	AnnounceAdd            AnnouncementType = "add"
	AnnounceRemove         AnnouncementType = "remove"
	AnnounceAck            AnnouncementType = "ack"
	AnnouncePoolDeleted    AnnouncementType = "pool_deleted"
	AnnounceCBLIndexUpdate AnnouncementType = "cbl_index_update"
	AnnounceCBLIndexDelete AnnouncementType = "cbl_index_delete"
)

// Priority is a message-delivery priority tier.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// AckStatus is the wire-level status carried by a DeliveryAckMetadata.
type AckStatus string

const (
	AckDelivered AckStatus = "delivered"
	AckRead      AckStatus = "read"
	AckFailed    AckStatus = "failed"
	AckBounced   AckStatus = "bounced"
)

var poolIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// ValidPoolID reports whether id satisfies the pool-id grammar.
func ValidPoolID(id string) bool {
	return poolIDPattern.MatchString(id)
}

// MessageDeliveryMetadata rides along an `add` announcement delivering a
// message.
type MessageDeliveryMetadata struct {
	MessageID    string   `json:"messageId"`
	RecipientIDs []string `json:"recipientIds"`
	Priority     Priority `json:"priority"`
	BlockIDs     []string `json:"blockIds"`
	CBLBlockID   string   `json:"cblBlockId"`
	AckRequired  bool     `json:"ackRequired"`
}

// DeliveryAckMetadata rides along an `ack` announcement.
type DeliveryAckMetadata struct {
	MessageID          string    `json:"messageId"`
	RecipientID        string    `json:"recipientId"`
	Status             AckStatus `json:"status"`
	OriginalSenderNode string    `json:"originalSenderNode"`
}

// CBLIndexEntry rides along a cbl_index_update/cbl_index_delete
// announcement.
type CBLIndexEntry struct {
	MagnetURL string `json:"magnetUrl"`
	BlockID1  string `json:"blockId1"`
	BlockID2  string `json:"blockId2"`
}

// BlockAnnouncement is the wire-level gossip record.
type BlockAnnouncement struct {
	Type            AnnouncementType         `json:"type"`
	BlockID         string                   `json:"blockId"`
	NodeID          string                   `json:"nodeId"`
	Timestamp       int64                    `json:"timestamp"`
	TTL             int                      `json:"ttl"`
	PoolID          string                   `json:"poolId,omitempty"`
	MessageDelivery *MessageDeliveryMetadata `json:"messageDelivery,omitempty"`
	DeliveryAck     *DeliveryAckMetadata     `json:"deliveryAck,omitempty"`
	CBLIndexEntry   *CBLIndexEntry           `json:"cblIndexEntry,omitempty"`
}

// dedupKey is the seen-id cache key:
// (type, blockId, nodeId, messageDelivery?.messageId).
func (a BlockAnnouncement) dedupKey() string {
	msgID := ""
	if a.MessageDelivery != nil {
		msgID = a.MessageDelivery.MessageID
	}
	return string(a.Type) + "|" + a.BlockID + "|" + a.NodeID + "|" + msgID
}

func nonEmptyStrings(values ...string) bool {
	for _, v := range values {
		if v == "" {
			return false
		}
	}
	return true
}

func nonEmptyStringSlice(values []string) bool {
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		if v == "" {
			return false
		}
	}
	return true
}

// ValidateAnnouncement rejects (returns false) any announcement violating
// type membership, type-field coupling, pool-id format, or metadata
// completeness rules. It never mutates a or returns an error — callers
// treat false as "drop".
func ValidateAnnouncement(a BlockAnnouncement) bool {
	switch a.Type {
	case AnnounceAdd, AnnounceRemove, AnnounceAck, AnnouncePoolDeleted, AnnounceCBLIndexUpdate, AnnounceCBLIndexDelete:
	default:
		return false
	}

	if a.MessageDelivery != nil && a.Type != AnnounceAdd {
		return false
	}
	if a.DeliveryAck != nil && a.Type != AnnounceAck {
		return false
	}
	if a.CBLIndexEntry != nil && a.Type != AnnounceCBLIndexUpdate && a.Type != AnnounceCBLIndexDelete {
		return false
	}
	if a.Type == AnnouncePoolDeleted && (a.MessageDelivery != nil || a.DeliveryAck != nil) {
		return false
	}

	if a.PoolID != "" && !ValidPoolID(a.PoolID) {
		return false
	}

	if a.MessageDelivery != nil {
		m := a.MessageDelivery
		if !nonEmptyStrings(m.MessageID, m.CBLBlockID) {
			return false
		}
		if !nonEmptyStringSlice(m.RecipientIDs) || !nonEmptyStringSlice(m.BlockIDs) {
			return false
		}
		if m.Priority != PriorityNormal && m.Priority != PriorityHigh {
			return false
		}
	}

	if a.DeliveryAck != nil {
		d := a.DeliveryAck
		if !nonEmptyStrings(d.MessageID, d.RecipientID, d.OriginalSenderNode) {
			return false
		}
		switch d.Status {
		case AckDelivered, AckRead, AckFailed, AckBounced:
		default:
			return false
		}
	}

	if a.CBLIndexEntry != nil {
		e := a.CBLIndexEntry
		if !nonEmptyStrings(e.MagnetURL, e.BlockID1, e.BlockID2) {
			return false
		}
	}

	return true
}
