package enums

import "fmt"

// DisputeStatus tracks an arbitration case from opening to settlement.
type DisputeStatus string

const (
	DisputeStatusOpen              DisputeStatus = "OPEN"
	DisputeStatusUnderReview       DisputeStatus = "UNDER_REVIEW"
	DisputeStatusResolvedClient    DisputeStatus = "RESOLVED_CLIENT"
	DisputeStatusResolvedVibecoder DisputeStatus = "RESOLVED_VIBECODER"
	DisputeStatusResolvedSplit     DisputeStatus = "RESOLVED_SPLIT"
	DisputeStatusClosed            DisputeStatus = "CLOSED"
)

var validDisputeStatuses = []DisputeStatus{
	DisputeStatusOpen,
	DisputeStatusUnderReview,
	DisputeStatusResolvedClient,
	DisputeStatusResolvedVibecoder,
	DisputeStatusResolvedSplit,
	DisputeStatusClosed,
}

// String implements fmt.Stringer.
func (s DisputeStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known DisputeStatus.
func (s DisputeStatus) IsValid() bool {
	for _, candidate := range validDisputeStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsActive reports whether the dispute still freezes settlement and withdrawals.
func (s DisputeStatus) IsActive() bool {
	return s == DisputeStatusOpen || s == DisputeStatusUnderReview
}

// ParseDisputeStatus converts raw input into a DisputeStatus.
func ParseDisputeStatus(value string) (DisputeStatus, error) {
	for _, candidate := range validDisputeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute status %q", value)
}

// DisputeDecision is the admin verdict applied by the resolution engine.
type DisputeDecision string

const (
	DisputeDecisionClient    DisputeDecision = "RESOLVED_CLIENT"
	DisputeDecisionVibecoder DisputeDecision = "RESOLVED_VIBECODER"
	DisputeDecisionSplit     DisputeDecision = "RESOLVED_SPLIT"
)

// IsValid reports whether the value is a known DisputeDecision.
func (d DisputeDecision) IsValid() bool {
	switch d {
	case DisputeDecisionClient, DisputeDecisionVibecoder, DisputeDecisionSplit:
		return true
	default:
		return false
	}
}

// Status maps the decision onto the dispute's terminal status.
func (d DisputeDecision) Status() DisputeStatus {
	return DisputeStatus(d)
}

// DisputeReason is the client-declared ground for arbitration.
type DisputeReason string

const (
	DisputeReasonFakeDelivery   DisputeReason = "FAKE_DELIVERY"
	DisputeReasonIncompleteWork DisputeReason = "INCOMPLETE_WORK"
	DisputeReasonQualityIssue   DisputeReason = "QUALITY_ISSUE"
	DisputeReasonDeadlineMissed DisputeReason = "DEADLINE_MISSED"
	DisputeReasonScopeCreep     DisputeReason = "SCOPE_CREEP"
	DisputeReasonPaymentIssue   DisputeReason = "PAYMENT_ISSUE"
	DisputeReasonOther          DisputeReason = "OTHER"
)

var validDisputeReasons = []DisputeReason{
	DisputeReasonFakeDelivery,
	DisputeReasonIncompleteWork,
	DisputeReasonQualityIssue,
	DisputeReasonDeadlineMissed,
	DisputeReasonScopeCreep,
	DisputeReasonPaymentIssue,
	DisputeReasonOther,
}

// String implements fmt.Stringer.
func (r DisputeReason) String() string {
	return string(r)
}

// IsValid reports whether the value is a known DisputeReason.
func (r DisputeReason) IsValid() bool {
	for _, candidate := range validDisputeReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseDisputeReason converts raw input into a DisputeReason.
func ParseDisputeReason(value string) (DisputeReason, error) {
	for _, candidate := range validDisputeReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute reason %q", value)
}
