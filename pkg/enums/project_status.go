package enums

import "fmt"

// ProjectStatus tracks the settlement lifecycle of a project.
type ProjectStatus string

const (
	ProjectStatusCreated           ProjectStatus = "PROJECT_CREATED"
	ProjectStatusEscrowFunded      ProjectStatus = "ESCROW_FUNDED"
	ProjectStatusInProgress        ProjectStatus = "IN_PROGRESS"
	ProjectStatusSubmitted         ProjectStatus = "SUBMITTED"
	ProjectStatusRevisionRequested ProjectStatus = "REVISION_REQUESTED"
	ProjectStatusDisputed          ProjectStatus = "DISPUTED"
	ProjectStatusPaymentReleased   ProjectStatus = "PAYMENT_RELEASED"
	ProjectStatusCompleted         ProjectStatus = "COMPLETED"
	ProjectStatusCancelled         ProjectStatus = "CANCELLED"
	ProjectStatusRefunded          ProjectStatus = "REFUNDED"
)

var validProjectStatuses = []ProjectStatus{
	ProjectStatusCreated,
	ProjectStatusEscrowFunded,
	ProjectStatusInProgress,
	ProjectStatusSubmitted,
	ProjectStatusRevisionRequested,
	ProjectStatusDisputed,
	ProjectStatusPaymentReleased,
	ProjectStatusCompleted,
	ProjectStatusCancelled,
	ProjectStatusRefunded,
}

// String implements fmt.Stringer.
func (s ProjectStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ProjectStatus.
func (s ProjectStatus) IsValid() bool {
	for _, candidate := range validProjectStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further settlement transitions are possible.
func (s ProjectStatus) IsTerminal() bool {
	switch s {
	case ProjectStatusPaymentReleased, ProjectStatusCompleted, ProjectStatusCancelled, ProjectStatusRefunded:
		return true
	default:
		return false
	}
}

// ParseProjectStatus converts raw input into a ProjectStatus.
func ParseProjectStatus(value string) (ProjectStatus, error) {
	for _, candidate := range validProjectStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid project status %q", value)
}
