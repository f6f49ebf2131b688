package models

// OperationStatus captures the outcome of one applied operation.
type OperationStatus string

const (
	OperationCreated OperationStatus = "created"
	OperationUpdated OperationStatus = "updated"
	OperationDeleted OperationStatus = "deleted"
	OperationSkipped OperationStatus = "skipped"
)

// OperationResult correlates an input operation (by index) with its effect.
// A skip carries a human-readable reason and never aborts sibling operations.
type OperationResult struct {
	Index  int             `json:"index"`
	Status OperationStatus `json:"status"`
	Event  *Event          `json:"event,omitempty"`
	Reason string          `json:"reason,omitempty"`
}

// ApplyResult is the full outcome of applying a batch of operations: the
// user's final sorted event list plus one result per submitted operation, in
// input order.
type ApplyResult struct {
	Events  []Event           `json:"events"`
	Results []OperationResult `json:"results"`
}
