package models

import "time"

// Signal kinds stored in the queue. KindAny is a query filter only and is
// never written to a record.
const (
	KindOfferAnswer = "offer-answer"
	KindCandidate   = "candidate"
	KindAny         = "any"
)

// PendingSignal is one queued handshake message between a peer pair.
// DeliveredAt stays NULL until the recipient claims the record; a claimed
// record is kept but never returned again.
type PendingSignal struct {
	ID          uint       `gorm:"primary_key" json:"id"`
	ToPeer      string     `gorm:"column:to_peer;index:idx_pending_pair" json:"to"`
	FromPeer    string     `gorm:"column:from_peer;index:idx_pending_pair" json:"from"`
	Kind        string     `json:"kind"`
	Payload     string     `gorm:"type:text" json:"payload"`
	CreatedAt   time.Time  `json:"createdAt"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
}
