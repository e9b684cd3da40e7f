package enums

// NotificationType labels in-app notifications produced by settlement events.
type NotificationType string

const (
	NotificationProjectCreated      NotificationType = "PROJECT_CREATED"
	NotificationProjectStarted      NotificationType = "PROJECT_STARTED"
	NotificationEscrowFunded        NotificationType = "ESCROW_FUNDED"
	NotificationMilestoneSubmitted  NotificationType = "MILESTONE_SUBMITTED"
	NotificationMilestoneApproved   NotificationType = "MILESTONE_APPROVED"
	NotificationPaymentReleased     NotificationType = "PAYMENT_RELEASED"
	NotificationRevisionRequested   NotificationType = "REVISION_REQUESTED"
	NotificationDisputeOpened       NotificationType = "DISPUTE_OPENED"
	NotificationDisputeResolved     NotificationType = "DISPUTE_RESOLVED"
	NotificationWithdrawalProcessed NotificationType = "WITHDRAWAL_PROCESSED"
)

// IsValid reports whether the value is a known NotificationType.
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationProjectCreated,
		NotificationProjectStarted,
		NotificationEscrowFunded,
		NotificationMilestoneSubmitted,
		NotificationMilestoneApproved,
		NotificationPaymentReleased,
		NotificationRevisionRequested,
		NotificationDisputeOpened,
		NotificationDisputeResolved,
		NotificationWithdrawalProcessed:
		return true
	default:
		return false
	}
}
