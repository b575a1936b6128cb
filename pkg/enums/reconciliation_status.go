package enums

import "slices"

// ReconciliationStatus tracks the manual review of a captured-but-unsettled payment.
type ReconciliationStatus string

const (
	ReconciliationOpen     ReconciliationStatus = "open"
	ReconciliationResolved ReconciliationStatus = "resolved"
)

var validReconciliationStatuses = []ReconciliationStatus{
	ReconciliationOpen,
	ReconciliationResolved,
}

func (s ReconciliationStatus) String() string {
	return string(s)
}

func (s ReconciliationStatus) IsValid() bool {
	return slices.Contains(validReconciliationStatuses, s)
}

func ParseReconciliationStatus(value string) (ReconciliationStatus, error) {
	return parse(validReconciliationStatuses, value, "reconciliation status")
}
