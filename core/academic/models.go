package academic

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/edudesk/core"
)

// PaymentMode is how the year's fees are planned: paid at once or in EMIs.
type PaymentMode string

const (
	OneTime PaymentMode = "One-Time"
	EMI     PaymentMode = "EMI"
)

const (
	MinEMIs = 2
	MaxEMIs = 6
)

func ParsePaymentMode(s string) (PaymentMode, error) {
	switch {
	case strings.EqualFold(s, string(OneTime)), strings.EqualFold(s, "onetime"):
		return OneTime, nil
	case strings.EqualFold(s, string(EMI)):
		return EMI, nil
	}
	return "", fmt.Errorf("invalid payment mode %q", s)
}

func (pm PaymentMode) Valid() bool { return pm == OneTime || pm == EMI }

func (pm *PaymentMode) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*pm = ""
		return nil
	}
	parsed, err := ParsePaymentMode(string(data))
	if err != nil {
		return err
	}
	*pm = parsed
	return nil
}

// Student is the person record. CourseYear is the year of the latest admission or transition,
// so it goes back down after a demotion.
type Student struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	DateOfBirth   core.Date  `json:"dob"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	Category      string     `json:"category"`
	AdmissionMode string     `json:"admissionMode"`
	IsLateral     bool       `json:"isLateral"`
	CourseYear    CourseYear `json:"courseYear"`
	Version       int        `json:"version"`
	CreatedAt     time.Time  `json:"createdAt"` // UTC
	UpdatedAt     time.Time  `json:"updatedAt"` // UTC
}

// EmiDetail is one instalment of an EMI fee plan.
type EmiDetail struct {
	EmiNumber int             `json:"emiNumber"`
	Amount    decimal.Decimal `json:"amount"`
	DueDate   core.Date       `json:"dueDate"`
}

// FeeTerms are the planned charges of an academic year and how they are paid.
type FeeTerms struct {
	AdminAmount  decimal.Decimal `json:"adminAmount" validate:"gte=0,money"`
	FeesAmount   decimal.Decimal `json:"feesAmount" validate:"gte=0,money"`
	PaymentMode  PaymentMode     `json:"paymentMode" validate:"required"`
	NumberOfEMI  int             `json:"numberOfEMI"`
	EmiDetails   []EmiDetail     `json:"emiDetails"`
	LedgerNumber string          `json:"ledgerNumber"`
}

func (ft FeeTerms) Total() decimal.Decimal {
	return ft.AdminAmount.Add(ft.FeesAmount)
}

// normalize drops EMI data from one-time plans and orders instalments by number.
func (ft *FeeTerms) normalize() {
	ft.LedgerNumber = core.CleanString(ft.LedgerNumber)
	if ft.PaymentMode != EMI {
		ft.NumberOfEMI = 0
		ft.EmiDetails = nil
		return
	}
	sortEmis(ft.EmiDetails)
}

// AcademicRecord is a student's enrolment and fee terms for one course year.
type AcademicRecord struct {
	ID          string      `json:"id"`
	StudentID   string      `json:"studentId"`
	CourseYear  CourseYear  `json:"courseYear"`
	SessionYear SessionYear `json:"sessionYear"`
	FeeTerms
	CreatedAt time.Time `json:"createdAt"` // UTC
	UpdatedAt time.Time `json:"updatedAt"` // UTC
}

// NewStudent contains information needed to admit a student.
type NewStudent struct {
	Name          string      `json:"name" validate:"required"`
	DateOfBirth   core.Date   `json:"dob"`
	Email         string      `json:"email" validate:"omitempty,email"`
	Phone         string      `json:"phone"`
	Category      string      `json:"category"`
	AdmissionMode string      `json:"admissionMode"`
	IsLateral     bool        `json:"isLateral"`
	SessionYear   SessionYear `json:"sessionYear" validate:"required"`
	FeeTerms
}

func (ns *NewStudent) clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Phone = core.CleanString(ns.Phone)
	ns.Category = core.CleanString(ns.Category)
	ns.AdmissionMode = core.CleanString(ns.AdmissionMode)
	ns.FeeTerms.normalize()
}

// EntryYear is the course year a new student is enrolled in.
func (ns NewStudent) EntryYear() CourseYear {
	if ns.IsLateral {
		return SecondYear
	}
	return FirstYear
}

// PromoteRequest asks to move a student from their current academic record to another course year.
type PromoteRequest struct {
	StudentID            string      `json:"-"`
	CurrentAcademicID    string      `json:"currentAcademicId" validate:"required"`
	NewCourseYear        CourseYear  `json:"newCourseYear" validate:"required"`
	NewSessionYear       SessionYear `json:"newSessionYear" validate:"required_without=IsDepromote"`
	IsDepromote          bool        `json:"isDepromote"`
	ConfirmLateralChange bool        `json:"confirmLateralChange"`
	FeeTerms
}

// QueryFilter narrows a student listing. CourseYear matches Student.CourseYear.
type QueryFilter struct {
	Search     string     `query:"search"`
	CourseYear CourseYear `query:"course_year"`
	IsLateral  *bool      `query:"is_lateral"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
