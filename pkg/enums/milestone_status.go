package enums

import "fmt"

// MilestoneStatus tracks one milestone's deliverable/approval cycle.
type MilestoneStatus string

const (
	MilestoneStatusPending    MilestoneStatus = "PENDING"
	MilestoneStatusInProgress MilestoneStatus = "IN_PROGRESS"
	MilestoneStatusSubmitted  MilestoneStatus = "SUBMITTED"
	MilestoneStatusApproved   MilestoneStatus = "APPROVED"
	MilestoneStatusReleased   MilestoneStatus = "RELEASED"
)

var validMilestoneStatuses = []MilestoneStatus{
	MilestoneStatusPending,
	MilestoneStatusInProgress,
	MilestoneStatusSubmitted,
	MilestoneStatusApproved,
	MilestoneStatusReleased,
}

// String implements fmt.Stringer.
func (s MilestoneStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known MilestoneStatus.
func (s MilestoneStatus) IsValid() bool {
	for _, candidate := range validMilestoneStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsSettled reports whether the milestone's fund slice left escrow custody.
func (s MilestoneStatus) IsSettled() bool {
	return s == MilestoneStatusApproved || s == MilestoneStatusReleased
}

// ParseMilestoneStatus converts raw input into a MilestoneStatus.
func ParseMilestoneStatus(value string) (MilestoneStatus, error) {
	for _, candidate := range validMilestoneStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid milestone status %q", value)
}
