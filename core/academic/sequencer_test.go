package academic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edudesk/core"
)

func record(id string, cy CourseYear, sy SessionYear) AcademicRecord {
	return AcademicRecord{ID: id, StudentID: "s1", CourseYear: cy, SessionYear: sy}
}

func transitionInput(student Student, current AcademicRecord, target CourseYear, session SessionYear, confirm bool, records ...AcademicRecord) TransitionInput {
	in := TransitionInput{
		Student:    student,
		Current:    current,
		Target:     target,
		NewSession: session,
		Records:    records,
	}
	in.Gate.Select(student, current.CourseYear, target)
	in.Gate.Confirm(confirm)
	return in
}

func TestSequenceTransition(t *testing.T) {
	regular := Student{ID: "s1", Name: "Regular"}
	lateral := Student{ID: "s1", Name: "Lateral", IsLateral: true}

	first := record("r1", FirstYear, 2022)
	second := record("r2", SecondYear, 2023)
	third := record("r3", ThirdYear, 2024)

	tests := []struct {
		name         string
		in           TransitionInput
		hasPayments  bool
		wantKind     core.RuleKind
		wantReason   string
		want         Transition
		wantExisting string
	}{
		{
			name:       "same year",
			in:         transitionInput(regular, first, FirstYear, 2023, false, first),
			wantKind:   core.SequencingError,
			wantReason: "student is already enrolled in 1st year",
		},
		{
			name:       "invalid target",
			in:         transitionInput(regular, first, CourseYear(7), 2023, false, first),
			wantKind:   core.SequencingError,
			wantReason: "invalid course year",
		},
		{
			// scenario a
			name:       "skip a year",
			in:         transitionInput(regular, first, ThirdYear, 2023, false, first),
			wantKind:   core.SequencingError,
			wantReason: "cannot skip intervening year(s): 2nd",
		},
		{
			name:       "skip two years",
			in:         transitionInput(regular, first, FourthYear, 2023, false, first),
			wantKind:   core.SequencingError,
			wantReason: "cannot skip intervening year(s): 2nd, 3rd",
		},
		{
			name:       "target year exists",
			in:         transitionInput(regular, first, SecondYear, 2023, false, first, second),
			wantKind:   core.SequencingError,
			wantReason: "student is already enrolled in 2nd year",
		},
		{
			// scenario d
			name:       "demote 3rd to 1st",
			in:         transitionInput(regular, third, FirstYear, 0, false, first, second, third),
			wantKind:   core.SequencingError,
			wantReason: "cannot demote more than one step, and only from 2nd to 1st year",
		},
		{
			name:       "demote 3rd to 2nd",
			in:         transitionInput(regular, third, SecondYear, 0, false, first, second, third),
			wantKind:   core.SequencingError,
			wantReason: "cannot demote more than one step, and only from 2nd to 1st year",
		},
		{
			name:       "demotion changes session",
			in:         transitionInput(regular, second, FirstYear, 2024, false, first, second),
			wantKind:   core.SessionOrderingError,
			wantReason: "session year cannot change on demotion; it must stay 2023-2024",
		},
		{
			// scenario b
			name:        "demotion over paid 1st year",
			in:          transitionInput(regular, second, FirstYear, 0, false, first, second),
			hasPayments: true,
			wantKind:    core.PaymentHistoryConflictError,
			wantReason:  "cannot demote; 1st year already has payment history",
		},
		{
			// scenario c
			name:       "lateral demotion without confirmation",
			in:         transitionInput(lateral, second, FirstYear, 0, false, second),
			wantKind:   core.ConfirmationRequiredError,
			wantReason: "student joined by lateral entry; confirm that the lateral entry flag will be cleared",
		},
		{
			name: "promotion",
			in:   transitionInput(regular, first, SecondYear, 2023, false, first),
			want: Transition{Kind: Promotion, From: FirstYear, To: SecondYear, Session: 2023},
		},
		{
			name: "lateral promotion",
			in:   transitionInput(lateral, second, ThirdYear, 2024, false, second),
			want: Transition{Kind: Promotion, From: SecondYear, To: ThirdYear, Session: 2024},
		},
		{
			name:         "demotion reuses unpaid 1st year",
			in:           transitionInput(regular, second, FirstYear, 0, false, first, second),
			want:         Transition{Kind: Demotion, From: SecondYear, To: FirstYear, Session: 2023},
			wantExisting: "r1",
		},
		{
			name: "demotion keeping the same session",
			in:   transitionInput(regular, second, FirstYear, 2023, false, second),
			want: Transition{Kind: Demotion, From: SecondYear, To: FirstYear, Session: 2023},
		},
		{
			name: "confirmed lateral demotion",
			in:   transitionInput(lateral, second, FirstYear, 0, true, second),
			want: Transition{Kind: Demotion, From: SecondYear, To: FirstYear, Session: 2023, ClearLateral: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.TargetHasPayments = tt.hasPayments
			got, err := SequenceTransition(tt.in)
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.True(t, core.IsRuleKind(err, tt.wantKind), "kind of %v", err)
				assert.Equal(t, tt.wantReason, err.Error())
				return
			}
			require.NoError(t, err)

			if tt.wantExisting != "" {
				require.NotNil(t, got.Existing)
				assert.Equal(t, tt.wantExisting, got.Existing.ID)
			} else {
				assert.Nil(t, got.Existing)
			}
			got.Existing = nil
			assert.Equal(t, tt.want, got)
		})
	}
}

// Demotions always keep the session of the year being demoted from.
func TestSequenceTransition_demotionKeepsSession(t *testing.T) {
	for _, sy := range []SessionYear{2019, 2022, 2024} {
		current := record("r2", SecondYear, sy)
		for _, requested := range []SessionYear{0, sy} {
			tr, err := SequenceTransition(transitionInput(Student{ID: "s1"}, current, FirstYear, requested, false, current))
			require.NoError(t, err)
			assert.Equal(t, sy, tr.Session)
		}
	}
}
