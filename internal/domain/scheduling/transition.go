package scheduling

// CanTransition reports whether an appointment in from may move to to.
// Only Scheduled appointments change status; re-applying the current status
// is always accepted.
func CanTransition(from, to Status) bool {
	if !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	return !from.Terminal()
}
