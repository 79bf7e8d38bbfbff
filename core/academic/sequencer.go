package academic

import (
	"github.com/trezcool/edudesk/core"
)

type TransitionKind int

const (
	Promotion TransitionKind = iota + 1
	Demotion
)

func (k TransitionKind) String() string {
	switch k {
	case Promotion:
		return "promotion"
	case Demotion:
		return "demotion"
	}
	return ""
}

// TransitionInput is a snapshot of everything the sequencer needs to judge a course-year change.
type TransitionInput struct {
	Student Student
	Current AcademicRecord
	Target  CourseYear
	// NewSession is the requested session; zero means "keep" for demotions.
	NewSession SessionYear
	// Records is the student's full academic history.
	Records []AcademicRecord
	// TargetHasPayments reports blocking payment history on the existing record for Target.
	TargetHasPayments bool
	Gate              LateralConfirmation
}

// Transition is an accepted course-year change.
type Transition struct {
	Kind    TransitionKind
	From    CourseYear
	To      CourseYear
	Session SessionYear
	// Existing is the record reused for the target year; nil means a new record is created.
	Existing     *AcademicRecord
	ClearLateral bool
}

// SequenceTransition validates that moving from the current record's year to the target year
// follows the ordered, gap-free course sequence. Demotions are only allowed from 2nd to 1st year,
// keep the current session and, for lateral-entry students, need the operator's confirmation.
func SequenceTransition(in TransitionInput) (Transition, error) {
	current := in.Current.CourseYear
	if !in.Target.Valid() || !current.Valid() {
		return Transition{}, core.NewRuleError(core.SequencingError, "invalid course year")
	}
	if in.Target == current {
		return Transition{}, core.NewRuleError(core.SequencingError,
			"student is already enrolled in %s year", current)
	}

	existing := findRecord(in.Records, in.Target)
	direction := int(in.Target) - int(current)

	if direction > 0 {
		if direction > 1 {
			return Transition{}, core.NewRuleError(core.SequencingError,
				"cannot skip intervening year(s): %s", joinCourseYears(Between(current, in.Target)))
		}
		if existing != nil {
			return Transition{}, core.NewRuleError(core.SequencingError,
				"student is already enrolled in %s year", in.Target)
		}
		return Transition{Kind: Promotion, From: current, To: in.Target, Session: in.NewSession}, nil
	}

	// demotions never change the session
	if !in.NewSession.IsZero() && in.NewSession != in.Current.SessionYear {
		return Transition{}, core.NewRuleError(core.SessionOrderingError,
			"session year cannot change on demotion; it must stay %s", in.Current.SessionYear)
	}
	if current != SecondYear || in.Target != FirstYear {
		return Transition{}, core.NewRuleError(core.SequencingError,
			"cannot demote more than one step, and only from 2nd to 1st year")
	}
	if existing != nil && in.TargetHasPayments {
		return Transition{}, core.NewRuleError(core.PaymentHistoryConflictError,
			"cannot demote; %s year already has payment history", in.Target)
	}
	if in.Gate.Required() && !in.Gate.CanProceed() {
		return Transition{}, core.NewRuleError(core.ConfirmationRequiredError,
			"student joined by lateral entry; confirm that the lateral entry flag will be cleared")
	}

	return Transition{
		Kind:         Demotion,
		From:         current,
		To:           in.Target,
		Session:      in.Current.SessionYear,
		Existing:     existing,
		ClearLateral: in.Gate.ClearsLateral(),
	}, nil
}

func findRecord(records []AcademicRecord, cy CourseYear) *AcademicRecord {
	for i := range records {
		if records[i].CourseYear == cy {
			rec := records[i]
			return &rec
		}
	}
	return nil
}
