package testutil

import (
	"context"
	"io/ioutil"
	"log"
	"net/mail"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/academic"
	"github.com/trezcool/edudesk/core/payment"
	"github.com/trezcool/edudesk/core/staff"
	emailsvc "github.com/trezcool/edudesk/services/email"
	logsvc "github.com/trezcool/edudesk/services/logger"
	inmemdb "github.com/trezcool/edudesk/storage/database/inmem"
)

// Now is the fixed clock used by service tests: mid 2024, so the 2024-2025 session has started.
var Now = time.Date(2024, time.July, 1, 10, 0, 0, 0, time.UTC)

// NewConfig returns the configuration used by tests.
func NewConfig() *core.Config {
	return &core.Config{
		Env:              "TEST",
		TestMode:         true,
		AppName:          "EduDesk",
		SecretKey:        "test-secret",
		DefaultFromEmail: mail.Address{Name: "EduDesk", Address: "noreply@edudesk.test"},
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
			DisableReqLogs:            true,
		},
		Database: core.DatabaseConfig{Engine: "memory"},
		Rules: core.RulesConfig{
			BlockDemotionOnAnyPayment: true,
			SessionWindowBack:         academic.DefaultSessionWindow.Back,
			SessionWindowAhead:        academic.DefaultSessionWindow.Ahead,
		},
	}
}

func NewValidator() (*validator.Validate, ut.Translator) {
	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	academic.InitValidators(validate, translator)
	staff.InitValidators(validate, translator)
	return validate, translator
}

// NewLogger returns a logger that discards its output and never reports to rollbar.
func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf)
}

// Services are the app services wired on one in-memory DB.
type Services struct {
	Conf       *core.Config
	DB         *inmemdb.DB
	Logger     core.Logger
	Translator ut.Translator
	Mail       *emailsvc.ConsoleService
	Academic   *academic.Service
	Payment    *payment.Service
	Staff      *staff.Service
	StaffRepo  staff.Repository
}

type lazyHistory struct{ svc *payment.Service }

func (h *lazyHistory) HasPayments(ctx context.Context, academicID string, substantiveOnly bool) (bool, error) {
	return h.svc.HasPayments(ctx, academicID, substantiveOnly)
}

// NewServices wires every service on a fresh in-memory DB and freezes the service clocks at Now.
func NewServices(t *testing.T, conf ...*core.Config) *Services {
	t.Helper()

	cfg := NewConfig()
	if len(conf) > 0 {
		cfg = conf[0]
	}
	academic.NowFunc = func() time.Time { return Now }
	payment.NowFunc = func() time.Time { return Now }
	staff.NowFunc = func() time.Time { return Now }
	t.Cleanup(func() {
		academic.NowFunc = time.Now
		payment.NowFunc = time.Now
		staff.NowFunc = time.Now
	})

	db := inmemdb.Open()
	logger := NewLogger(cfg)
	validate, translator := NewValidator()
	mailSvc := emailsvc.NewConsoleServiceMock(logger, cfg)

	history := new(lazyHistory)
	staffRepo := inmemdb.NewStaffRepository(db)
	staffSvc := staff.NewService(staffRepo, validate)
	academicSvc := academic.NewService(inmemdb.NewAcademicRepository(db), history, logger, validate, cfg)
	paymentSvc := payment.NewService(inmemdb.NewPaymentRepository(db), academicSvc, staffSvc, mailSvc, logger, validate)
	history.svc = paymentSvc

	return &Services{
		Conf:       cfg,
		DB:         db,
		Logger:     logger,
		Translator: translator,
		Mail:       mailSvc,
		Academic:   academicSvc,
		Payment:    paymentSvc,
		Staff:      staffSvc,
		StaffRepo:  staffRepo,
	}
}

func CreateStaff(
	t *testing.T,
	repo staff.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
) staff.Staff {
	t.Helper()
	now := time.Now().UTC()
	s := staff.Staff{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := s.SetPassword(pwd); err != nil {
			t.Fatalf("CreateStaff() failed: %v", err)
		}
	}
	s, err := repo.CreateStaff(context.Background(), s)
	if err != nil {
		t.Fatalf("CreateStaff() failed: %v", err)
	}
	return s
}

// OneTime returns one-time fee terms.
func OneTime(admin, fees int64) academic.FeeTerms {
	return academic.FeeTerms{
		AdminAmount: decimal.NewFromInt(admin),
		FeesAmount:  decimal.NewFromInt(fees),
		PaymentMode: academic.OneTime,
	}
}

// Admit admits a student in the given session with one-time fee terms.
func Admit(t *testing.T, svc *academic.Service, name string, lateral bool, session academic.SessionYear) (academic.Student, academic.AcademicRecord) {
	t.Helper()
	s, rec, err := svc.Admit(context.Background(), academic.NewStudent{
		Name:        name,
		IsLateral:   lateral,
		SessionYear: session,
		FeeTerms:    OneTime(5000, 45000),
	})
	if err != nil {
		t.Fatalf("Admit() failed: %v", err)
	}
	return s, rec
}

// Promote moves a student from rec to the next course year in the next session.
func Promote(t *testing.T, svc *academic.Service, rec academic.AcademicRecord) academic.AcademicRecord {
	t.Helper()
	next, ok := rec.CourseYear.Next()
	if !ok {
		t.Fatalf("Promote(): %s is the last year", rec.CourseYear)
	}
	res, err := svc.Promote(context.Background(), academic.PromoteRequest{
		StudentID:         rec.StudentID,
		CurrentAcademicID: rec.ID,
		NewCourseYear:     next,
		NewSessionYear:    rec.SessionYear + 1,
		FeeTerms:          OneTime(5000, 45000),
	})
	if err != nil {
		t.Fatalf("Promote() failed: %v", err)
	}
	return res.Record
}

// RecordPayment records a receipt against an academic record.
func RecordPayment(
	t *testing.T,
	svc *payment.Service,
	academicID string,
	amountType payment.AmountType,
	amount int64,
	mode, receivedBy string,
) payment.Transaction {
	t.Helper()
	txn, err := svc.Record(context.Background(), payment.NewTransaction{
		AcademicID:  academicID,
		AmountType:  amountType,
		Amount:      decimal.NewFromInt(amount),
		PaymentMode: mode,
		ReceivedBy:  receivedBy,
	})
	if err != nil {
		t.Fatalf("RecordPayment() failed: %v", err)
	}
	return txn
}
