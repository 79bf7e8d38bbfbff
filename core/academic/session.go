package academic

import (
	"strings"
	"time"

	"github.com/trezcool/edudesk/core"
)

// SessionInput is a snapshot for validating the session of a promoted academic record.
type SessionInput struct {
	Current SessionYear
	New     SessionYear
	Target  CourseYear
	Records []AcademicRecord
	Now     time.Time
	Window  SessionWindow
}

// ValidateSessionYear checks that a promotion's session follows the current one without gaps,
// is not in a future admission cycle and fits between the neighbouring years' sessions.
func ValidateSessionYear(in SessionInput) error {
	if err := checkWindow(in.New, in.Now, in.Window); err != nil {
		return err
	}
	if in.New <= in.Current {
		return core.NewRuleError(core.SessionOrderingError,
			"session year %s must be later than the current session %s", in.New, in.Current)
	}
	if skipped := sessionsBetween(in.Current, in.New); len(skipped) > 0 {
		return core.NewRuleError(core.SessionOrderingError,
			"session year cannot skip session(s): %s", strings.Join(skipped, ", "))
	}
	if err := checkNotFuture(in.New, in.Now); err != nil {
		return err
	}

	if prevYear, ok := in.Target.Prev(); ok {
		if prev := findRecord(in.Records, prevYear); prev != nil && in.New <= prev.SessionYear {
			return core.NewRuleError(core.SessionOrderingError,
				"session year %s must be later than the %s year session %s", in.New, prevYear, prev.SessionYear)
		}
	}
	if nextYear, ok := in.Target.Next(); ok {
		if next := findRecord(in.Records, nextYear); next != nil && in.New >= next.SessionYear {
			return core.NewRuleError(core.SessionOrderingError,
				"session year %s must be earlier than the %s year session %s", in.New, nextYear, next.SessionYear)
		}
	}

	for _, rec := range in.Records {
		if rec.CourseYear == in.Target && rec.SessionYear == in.New {
			return core.NewRuleError(core.DuplicateRecordError,
				"an academic record already exists for %s year, session %s", in.Target, in.New)
		}
	}
	return nil
}

// ValidateAdmissionSession checks the session of a first academic record.
func ValidateAdmissionSession(sy SessionYear, now time.Time, window SessionWindow) error {
	if err := checkWindow(sy, now, window); err != nil {
		return err
	}
	return checkNotFuture(sy, now)
}

func checkWindow(sy SessionYear, now time.Time, window SessionWindow) error {
	if !window.Contains(sy, now) {
		sessions := window.Sessions(now)
		return core.NewRuleError(core.SessionOrderingError,
			"session year %s is outside the allowed range %s to %s", sy, sessions[0], sessions[len(sessions)-1])
	}
	return nil
}

func checkNotFuture(sy SessionYear, now time.Time) error {
	if sy.Start() > now.Year() {
		return core.NewRuleError(core.SessionOrderingError,
			"session year %s has not started yet", sy)
	}
	return nil
}
