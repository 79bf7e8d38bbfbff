package academic

import (
	"fmt"
	"strings"
)

// CourseYear is the ordinal year of study. The zero value is not a valid year.
type CourseYear int

const (
	FirstYear CourseYear = iota + 1
	SecondYear
	ThirdYear
	FourthYear
)

// CourseYears lists every course year in study order.
var CourseYears = []CourseYear{FirstYear, SecondYear, ThirdYear, FourthYear}

var courseYearLabels = map[CourseYear]string{
	FirstYear:  "1st",
	SecondYear: "2nd",
	ThirdYear:  "3rd",
	FourthYear: "4th",
}

func ParseCourseYear(s string) (CourseYear, error) {
	s = strings.TrimSpace(s)
	for _, cy := range CourseYears {
		if strings.EqualFold(courseYearLabels[cy], s) {
			return cy, nil
		}
	}
	return 0, fmt.Errorf("invalid course year %q", s)
}

func (cy CourseYear) Valid() bool {
	return cy >= FirstYear && cy <= FourthYear
}

func (cy CourseYear) String() string {
	if label, ok := courseYearLabels[cy]; ok {
		return label
	}
	return ""
}

// Prev returns the year before cy and false if cy is the first year.
func (cy CourseYear) Prev() (CourseYear, bool) {
	if !cy.Valid() || cy == FirstYear {
		return 0, false
	}
	return cy - 1, true
}

// Next returns the year after cy and false if cy is the last year.
func (cy CourseYear) Next() (CourseYear, bool) {
	if !cy.Valid() || cy == FourthYear {
		return 0, false
	}
	return cy + 1, true
}

// Between returns the years strictly between a and b, in study order.
func Between(a, b CourseYear) []CourseYear {
	if a > b {
		a, b = b, a
	}
	var years []CourseYear
	for cy := a + 1; cy < b; cy++ {
		years = append(years, cy)
	}
	return years
}

func (cy CourseYear) MarshalText() ([]byte, error) {
	if !cy.Valid() {
		return []byte{}, nil
	}
	return []byte(cy.String()), nil
}

func (cy *CourseYear) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*cy = 0
		return nil
	}
	parsed, err := ParseCourseYear(string(data))
	if err != nil {
		return err
	}
	*cy = parsed
	return nil
}

// UnmarshalParam binds query and path params.
func (cy *CourseYear) UnmarshalParam(param string) error {
	return cy.UnmarshalText([]byte(param))
}

func joinCourseYears(years []CourseYear) string {
	labels := make([]string, 0, len(years))
	for _, cy := range years {
		labels = append(labels, cy.String())
	}
	return strings.Join(labels, ", ")
}
