package models

import "time"

// Lease is one worker's claim on a small-integer identity, kept alive by
// heartbeat. At most one unexpired lease exists per WorkerID; the unique
// index on worker_id is what enforces it.
type Lease struct {
	WorkerID      int       `bson:"worker_id" json:"worker_id"`
	InstanceID    string    `bson:"instance_id" json:"instance_id"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	LastHeartbeat time.Time `bson:"last_heartbeat" json:"last_heartbeat"`
	IsFallback    bool      `bson:"is_fallback,omitempty" json:"is_fallback,omitempty"`
}

// Expired reports whether the lease's heartbeat is older than the staleness
// window at the given instant.
func (l Lease) Expired(now time.Time, staleAfter time.Duration) bool {
	return now.Sub(l.LastHeartbeat) > staleAfter
}
