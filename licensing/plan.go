package licensing

// License plans. The plan decides how many devices may be bound at once.
const (
	PlanSingle = "single"
	PlanMulti  = "multi"
)

// Stored license statuses. The derived display status is computed separately,
// see display.go.
const (
	StatusInactive  = "inactive"
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusCancelled = "cancelled"
)

// LimitForPlan returns the device cap for a plan. Unknown plans get the
// single-device cap.
func LimitForPlan(plan string) int {
	if plan == PlanMulti {
		return 3
	}
	return 1
}
