package academic

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SessionYear is an academic session labelled "YYYY-YYYY+1", identified by its start year.
// The zero value means "not set".
type SessionYear int

func ParseSessionYear(s string) (SessionYear, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid session year %q", s)
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil || len(parts[0]) != 4 {
		return 0, fmt.Errorf("invalid session year %q", s)
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil || end != start+1 {
		return 0, fmt.Errorf("invalid session year %q", s)
	}
	return SessionYear(start), nil
}

func (sy SessionYear) Start() int { return int(sy) }

func (sy SessionYear) IsZero() bool { return sy == 0 }

func (sy SessionYear) String() string {
	if sy.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d-%d", int(sy), int(sy)+1)
}

func (sy SessionYear) MarshalText() ([]byte, error) {
	return []byte(sy.String()), nil
}

func (sy *SessionYear) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*sy = 0
		return nil
	}
	parsed, err := ParseSessionYear(string(data))
	if err != nil {
		return err
	}
	*sy = parsed
	return nil
}

// SessionWindow bounds the session years an operator may pick:
// [calendarYear-Back .. calendarYear+Ahead] by start year.
type SessionWindow struct {
	Back  int
	Ahead int
}

// DefaultSessionWindow holds 10 sessions: five back and four ahead of the current calendar year.
var DefaultSessionWindow = SessionWindow{Back: 5, Ahead: 4}

func (w SessionWindow) bounds(now time.Time) (SessionYear, SessionYear) {
	year := now.Year()
	return SessionYear(year - w.Back), SessionYear(year + w.Ahead)
}

// Sessions lists the window's session years in order.
func (w SessionWindow) Sessions(now time.Time) []SessionYear {
	first, last := w.bounds(now)
	sessions := make([]SessionYear, 0, int(last-first)+1)
	for sy := first; sy <= last; sy++ {
		sessions = append(sessions, sy)
	}
	return sessions
}

func (w SessionWindow) Contains(sy SessionYear, now time.Time) bool {
	first, last := w.bounds(now)
	return sy >= first && sy <= last
}

// sessionsBetween returns the sessions strictly between a and b.
func sessionsBetween(a, b SessionYear) []string {
	if a > b {
		a, b = b, a
	}
	var labels []string
	for sy := a + 1; sy < b; sy++ {
		labels = append(labels, sy.String())
	}
	return labels
}
