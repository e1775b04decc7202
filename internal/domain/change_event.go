package domain

import "time"

// ChangeOperation describes one persisted list mutation.
type ChangeOperation string

// ChangeOperation values published to live subscribers.
const (
	ChangeOperationCreate ChangeOperation = "create"
	ChangeOperationUpdate ChangeOperation = "update"
	ChangeOperationDelete ChangeOperation = "delete"
	ChangeOperationImport ChangeOperation = "import"
)

// ListChange is emitted after a list or one of its items changed.
type ListChange struct {
	ListID     string
	ItemID     string
	Operation  ChangeOperation
	OccurredAt time.Time
}
