package academic

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/edudesk/core"
)

var (
	// errors
	ErrNotFound       = errors.New("student not found")
	ErrRecordNotFound = errors.New("academic record not found")
	// ErrDuplicateYear is returned by repositories when the (student, course year) unique constraint fails.
	ErrDuplicateYear = errors.New("academic record already exists for this course year")
	// ErrStaleStudent is returned by repositories when the student changed since it was read.
	ErrStaleStudent = errors.New("student was modified concurrently")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, student Student, record AcademicRecord) (Student, AcademicRecord, error)
		GetStudent(ctx context.Context, id string) (Student, error)
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		GetRecord(ctx context.Context, id string) (AcademicRecord, error)
		// QueryRecords returns the student's records ordered by course year.
		QueryRecords(ctx context.Context, studentID string) ([]AcademicRecord, error)
		// ApplyTransition atomically bumps the student version (failing with ErrStaleStudent on mismatch),
		// clears the lateral flag if asked, then inserts (empty ID) or updates the record and its EMIs.
		ApplyTransition(ctx context.Context, tw TransitionWrite) (AcademicRecord, error)
	}

	// PaymentHistory tells whether payments were recorded against an academic record.
	PaymentHistory interface {
		// HasPayments reports payments on the record; with substantiveOnly only admin/fees receipts count.
		HasPayments(ctx context.Context, academicID string, substantiveOnly bool) (bool, error)
	}

	TransitionWrite struct {
		StudentID      string
		StudentVersion int
		ClearLateral   bool
		Record         AcademicRecord
	}

	Service struct {
		repo     Repository
		payments PaymentHistory
		logger   core.Logger
		validate *validator.Validate
		rules    core.RulesConfig
	}

	// PromoteResult is the outcome of an accepted promotion or demotion.
	PromoteResult struct {
		Kind         string         `json:"kind"`
		Record       AcademicRecord `json:"record"`
		ClearLateral bool           `json:"lateralCleared"`
	}
)

func NewService(
	repo Repository,
	payments PaymentHistory,
	logger core.Logger,
	validate *validator.Validate,
	conf *core.Config,
) *Service {
	return &Service{
		repo:     repo,
		payments: payments,
		logger:   logger,
		validate: validate,
		rules:    conf.Rules,
	}
}

func (svc *Service) window() SessionWindow {
	return SessionWindow{Back: svc.rules.SessionWindowBack, Ahead: svc.rules.SessionWindowAhead}
}

// SessionYears lists the session years an operator may choose from.
func (svc *Service) SessionYears() []SessionYear {
	return svc.window().Sessions(NowFunc())
}

// Admit creates a student with their entry academic record: 1st year, or 2nd year for lateral entries.
func (svc *Service) Admit(ctx context.Context, ns NewStudent) (Student, AcademicRecord, error) {
	ns.clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Student{}, AcademicRecord{}, err
	}
	now := NowFunc()
	if err := ValidateAdmissionSession(ns.SessionYear, now, svc.window()); err != nil {
		return Student{}, AcademicRecord{}, err
	}

	now = now.UTC()
	student := Student{
		Name:          ns.Name,
		DateOfBirth:   ns.DateOfBirth,
		Email:         ns.Email,
		Phone:         ns.Phone,
		Category:      ns.Category,
		AdmissionMode: ns.AdmissionMode,
		IsLateral:     ns.IsLateral,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	record := AcademicRecord{
		CourseYear:  ns.EntryYear(),
		SessionYear: ns.SessionYear,
		FeeTerms:    ns.FeeTerms,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	student, record, err := svc.repo.CreateStudent(ctx, student, record)
	if err != nil {
		return Student{}, AcademicRecord{}, errors.Wrap(err, "creating student")
	}
	svc.logger.Info(fmt.Sprintf("student %s admitted in %s year, session %s", student.ID, record.CourseYear, record.SessionYear))
	return student, record, nil
}

func (svc *Service) GetStudent(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *Service) QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter, ordering)
}

func (svc *Service) GetRecord(ctx context.Context, id string) (AcademicRecord, error) {
	return svc.repo.GetRecord(ctx, id)
}

// AcademicDetails returns the student's academic records in course-year order.
func (svc *Service) AcademicDetails(ctx context.Context, studentID string) ([]AcademicRecord, error) {
	if _, err := svc.repo.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	return svc.repo.QueryRecords(ctx, studentID)
}

// Promote applies a promotion or demotion request after validating it against the student's history.
func (svc *Service) Promote(ctx context.Context, req PromoteRequest) (PromoteResult, error) {
	req.FeeTerms.normalize()
	if err := svc.validate.Struct(req); err != nil {
		return PromoteResult{}, err
	}

	student, err := svc.repo.GetStudent(ctx, req.StudentID)
	if err != nil {
		return PromoteResult{}, errors.Wrap(err, "finding student")
	}
	current, err := svc.repo.GetRecord(ctx, req.CurrentAcademicID)
	if err != nil {
		return PromoteResult{}, errors.Wrap(err, "finding current academic record")
	}
	if current.StudentID != student.ID {
		return PromoteResult{}, ErrRecordNotFound
	}
	records, err := svc.repo.QueryRecords(ctx, student.ID)
	if err != nil {
		return PromoteResult{}, errors.Wrap(err, "querying academic records")
	}

	in := TransitionInput{
		Student:    student,
		Current:    current,
		Target:     req.NewCourseYear,
		NewSession: req.NewSessionYear,
		Records:    records,
	}
	in.Gate.Select(student, current.CourseYear, req.NewCourseYear)
	in.Gate.Confirm(req.ConfirmLateralChange)
	if req.NewCourseYear < current.CourseYear {
		if existing := findRecord(records, req.NewCourseYear); existing != nil {
			substantiveOnly := !svc.rules.BlockDemotionOnAnyPayment
			if in.TargetHasPayments, err = svc.payments.HasPayments(ctx, existing.ID, substantiveOnly); err != nil {
				return PromoteResult{}, errors.Wrap(err, "checking payment history")
			}
		}
	}

	tr, err := SequenceTransition(in)
	if err != nil {
		return PromoteResult{}, err
	}
	if (tr.Kind == Demotion) != req.IsDepromote {
		return PromoteResult{}, core.NewRuleError(core.SequencingError,
			"%s to %s year is a %s; isDepromote must be %t", tr.From, tr.To, tr.Kind, tr.Kind == Demotion)
	}
	if tr.Kind == Promotion {
		err = ValidateSessionYear(SessionInput{
			Current: current.SessionYear,
			New:     tr.Session,
			Target:  tr.To,
			Records: records,
			Now:     NowFunc(),
			Window:  svc.window(),
		})
		if err != nil {
			return PromoteResult{}, err
		}
	}

	now := NowFunc().UTC()
	record := AcademicRecord{
		StudentID:   student.ID,
		CourseYear:  tr.To,
		SessionYear: tr.Session,
		FeeTerms:    req.FeeTerms,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if tr.Existing != nil {
		record.ID = tr.Existing.ID
		record.CreatedAt = tr.Existing.CreatedAt
	}

	record, err = svc.repo.ApplyTransition(ctx, TransitionWrite{
		StudentID:      student.ID,
		StudentVersion: student.Version,
		ClearLateral:   tr.ClearLateral,
		Record:         record,
	})
	if err != nil {
		switch errors.Cause(err) {
		case ErrStaleStudent:
			return PromoteResult{}, core.NewRuleError(core.ConcurrentUpdateError,
				"student was modified by another request; reload and try again")
		case ErrDuplicateYear:
			return PromoteResult{}, core.NewRuleError(core.DuplicateRecordError,
				"student is already enrolled in %s year", tr.To)
		}
		return PromoteResult{}, errors.Wrap(err, "applying transition")
	}

	svc.logger.Info(fmt.Sprintf("student %s %s from %s to %s year, session %s",
		student.ID, pastTense(tr.Kind), tr.From, tr.To, tr.Session))
	return PromoteResult{Kind: tr.Kind.String(), Record: record, ClearLateral: tr.ClearLateral}, nil
}

func pastTense(k TransitionKind) string {
	if k == Demotion {
		return "demoted"
	}
	return "promoted"
}
