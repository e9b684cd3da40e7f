package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateProject    OutboxAggregateType = "project"
	AggregateMilestone  OutboxAggregateType = "milestone"
	AggregateEscrow     OutboxAggregateType = "escrow_transaction"
	AggregateDispute    OutboxAggregateType = "dispute"
	AggregateWallet     OutboxAggregateType = "wallet"
	AggregateUserRecord OutboxAggregateType = "user"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateProject,
	AggregateMilestone,
	AggregateEscrow,
	AggregateDispute,
	AggregateWallet,
	AggregateUserRecord,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventProjectCreated      OutboxEventType = "project_created"
	EventProjectAssigned     OutboxEventType = "project_assigned"
	EventProjectStarted      OutboxEventType = "project_started"
	EventProjectCompleted    OutboxEventType = "project_completed"
	EventEscrowFunded        OutboxEventType = "escrow_funded"
	EventMilestoneSubmitted  OutboxEventType = "milestone_submitted"
	EventMilestoneApproved   OutboxEventType = "milestone_approved"
	EventPaymentReleased     OutboxEventType = "payment_released"
	EventRevisionRequested   OutboxEventType = "revision_requested"
	EventDisputeOpened       OutboxEventType = "dispute_opened"
	EventDisputeResolved     OutboxEventType = "dispute_resolved"
	EventEscrowRefunded      OutboxEventType = "escrow_refunded"
	EventWithdrawalProcessed OutboxEventType = "withdrawal_processed"
)

var validEventTypes = []OutboxEventType{
	EventProjectCreated,
	EventProjectAssigned,
	EventProjectStarted,
	EventProjectCompleted,
	EventEscrowFunded,
	EventMilestoneSubmitted,
	EventMilestoneApproved,
	EventPaymentReleased,
	EventRevisionRequested,
	EventDisputeOpened,
	EventDisputeResolved,
	EventEscrowRefunded,
	EventWithdrawalProcessed,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
