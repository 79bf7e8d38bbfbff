package academic

// ConfirmationState is the state of the lateral-entry demotion confirmation.
type ConfirmationState int

const (
	ConfirmationInit ConfirmationState = iota
	AwaitingConfirmation
	Confirmed
)

func (s ConfirmationState) String() string {
	switch s {
	case AwaitingConfirmation:
		return "AWAITING_CONFIRMATION"
	case Confirmed:
		return "CONFIRMED"
	}
	return "INIT"
}

// LateralConfirmation gates demoting a lateral-entry student from 2nd to 1st year:
// the operator must explicitly confirm that the lateral flag will be cleared.
// Any new selection resets the gate, so the confirmation must be given again.
type LateralConfirmation struct {
	state ConfirmationState
}

// Select records the demotion target picked for the student's current year.
func (lc *LateralConfirmation) Select(student Student, current, target CourseYear) {
	lc.Reset()
	if student.IsLateral && current == SecondYear && target == FirstYear {
		lc.state = AwaitingConfirmation
	}
}

// Confirm sets or clears the operator's confirmation. It is a no-op when no confirmation is awaited.
func (lc *LateralConfirmation) Confirm(checked bool) {
	switch lc.state {
	case AwaitingConfirmation, Confirmed:
		if checked {
			lc.state = Confirmed
		} else {
			lc.state = AwaitingConfirmation
		}
	}
}

func (lc *LateralConfirmation) Reset() {
	lc.state = ConfirmationInit
}

func (lc LateralConfirmation) State() ConfirmationState { return lc.state }

// Required reports whether the current selection needs the operator's confirmation.
func (lc LateralConfirmation) Required() bool { return lc.state != ConfirmationInit }

// CanProceed reports whether the submission may go ahead.
func (lc LateralConfirmation) CanProceed() bool {
	return lc.state == ConfirmationInit || lc.state == Confirmed
}

// ClearsLateral reports whether submitting clears the student's lateral flag.
func (lc LateralConfirmation) ClearsLateral() bool { return lc.state == Confirmed }
