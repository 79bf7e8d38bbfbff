package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/edudesk/apps/api/echo"
	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/academic"
	"github.com/trezcool/edudesk/core/payment"
	"github.com/trezcool/edudesk/core/staff"
	emailsvc "github.com/trezcool/edudesk/services/email"
	logsvc "github.com/trezcool/edudesk/services/logger"
	"github.com/trezcool/edudesk/storage/database"
	inmemdb "github.com/trezcool/edudesk/storage/database/inmem"
	sqlxrepos "github.com/trezcool/edudesk/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Repositories are the storage backends selected by `database.engine`.
type Repositories struct {
	dig.Out
	Academic academic.Repository
	Payment  payment.Repository
	Staff    staff.Repository
	Closer   func() error `name:"dbCloser"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newRepositories(conf *core.Config, loggerParam DBLoggerParam) Repositories {
	if conf.Database.Engine == "memory" {
		db := inmemdb.Open()
		return Repositories{
			Academic: inmemdb.NewAcademicRepository(db),
			Payment:  inmemdb.NewPaymentRepository(db),
			Staff:    inmemdb.NewStaffRepository(db),
			Closer:   func() error { return nil },
		}
	}

	ctx := context.Background()
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	if err = database.Migrate(db.DB); err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
	}
	return Repositories{
		Academic: sqlxrepos.NewAcademicRepository(db),
		Payment:  sqlxrepos.NewPaymentRepository(db),
		Staff:    sqlxrepos.NewStaffRepository(db),
		Closer:   db.Close,
	}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(logger, conf)
	}
	return emailsvc.NewSendgridService(logger, conf)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	academic.InitValidators(validate, translator)
	staff.InitValidators(validate, translator)
	return validate
}

// Payments are looked up lazily so that academic.Service and payment.Service can depend on each other.
type paymentHistory struct {
	svc *payment.Service
}

func (ph *paymentHistory) HasPayments(ctx context.Context, academicID string, substantiveOnly bool) (bool, error) {
	return ph.svc.HasPayments(ctx, academicID, substantiveOnly)
}

func newAcademicService(
	repo academic.Repository,
	history *paymentHistory,
	logger core.Logger,
	validate *validator.Validate,
	conf *core.Config,
) *academic.Service {
	return academic.NewService(repo, history, logger, validate, conf)
}

func newPaymentService(
	repo payment.Repository,
	records *academic.Service,
	staffSvc *staff.Service,
	mailSvc core.EmailService,
	logger core.Logger,
	validate *validator.Validate,
	history *paymentHistory,
) *payment.Service {
	svc := payment.NewService(repo, records, staffSvc, mailSvc, logger, validate)
	history.svc = svc
	return svc
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	translator ut.Translator,
	academicSvc *academic.Service,
	paymentSvc *payment.Service,
	staffSvc *staff.Service,
) *echoapi.Server {
	return echoapi.NewServer(conf, &echoapi.Deps{
		Logger:      logger,
		Translator:  translator,
		AcademicSvc: academicSvc,
		PaymentSvc:  paymentSvc,
		StaffSvc:    staffSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(func() *paymentHistory { return new(paymentHistory) }))
	must(c.Provide(staff.NewService))
	must(c.Provide(newAcademicService))
	must(c.Provide(newPaymentService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
