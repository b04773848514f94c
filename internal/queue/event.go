// Package queue defines the message payloads and queue topology shared by
// the HTTP server (producer) and the worker (consumer).
package queue

// Queue names.  Email jobs ride the default queue; periodic cleanup jobs
// the maintenance queue, mirroring how the scheduler routes them.
const (
	EmailQueueName       = "store.email"
	MaintenanceQueueName = "store.maintenance"
)

// Email job kinds.
const (
	EmailActivation    = "activation"
	EmailPasswordReset = "password_reset"
	EmailOrderReceipt  = "order_receipt"
)

// EmailJob asks the worker to send one message.  It carries everything the
// mailer needs so the worker does not have to query the primary database.
// Delivery is at-least-once; handlers must tolerate duplicate sends.
type EmailJob struct {
	Kind       string `json:"kind"`
	To         string `json:"to"`
	Token      string `json:"token,omitempty"`        // activation / reset link token
	OrderID    uint64 `json:"order_id,omitempty"`     // receipt
	TotalCents uint64 `json:"total_cents,omitempty"`  // receipt
}

// Maintenance job kinds.
const (
	JobExpireOrders  = "order.expire_sweep"
	JobCleanupTokens = "token.cleanup"
)

// MaintenanceJob triggers one run of a periodic cleanup task.  Handlers
// must be idempotent: the queue may deliver a job more than once.
type MaintenanceJob struct {
	Kind string `json:"kind"`
}
