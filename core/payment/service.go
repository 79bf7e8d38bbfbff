package payment

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	texttmpl "text/template"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/academic"
)

var (
	// errors
	ErrNotFound             = errors.New("payment not found")
	ErrVerificationRequired = errors.New("password verification is required before handing over")
	ErrNotInCustody         = errors.New("payment was not received by the staff member handing it over")

	NowFunc = time.Now // mockable

	receiptTmpl = texttmpl.Must(texttmpl.New("handover_receipt").Parse(
		`Hello {{.HandedOverTo}},

{{.HandedOverBy}} handed over {{len .Handovers}} payment(s) to you on {{.HandoverDate}}.
{{range .Handovers}}
  - payment {{.TransactionID}}: {{.HandoverAmount.StringFixed 2}}{{end}}

Total: {{.Total.StringFixed 2}}
`))
)

type (
	Repository interface {
		CreateTransaction(ctx context.Context, txn Transaction) (Transaction, error)
		QueryTransactions(ctx context.Context, filter QueryFilter) ([]Transaction, error)
		// HandedOverAmounts sums handovers per transaction ID.
		HandedOverAmounts(ctx context.Context, txnIDs []string) (map[string]decimal.Decimal, error)
		// CreateHandovers locks the referenced transactions, calls check with them and their
		// handed-over sums, then inserts the handovers. Nothing is written if check fails.
		CreateHandovers(ctx context.Context, handovers []Handover, check HandoverCheck) ([]Handover, error)
	}

	HandoverCheck func(txns map[string]Transaction, handedOver map[string]decimal.Decimal) error

	// AcademicRecords finds the academic record a receipt is recorded against.
	AcademicRecords interface {
		GetRecord(ctx context.Context, id string) (academic.AcademicRecord, error)
	}

	// Directory resolves a staff member's mail address from their name, username or email.
	Directory interface {
		ContactOf(ctx context.Context, name string) (mail.Address, bool)
	}

	Service struct {
		repo      Repository
		records   AcademicRecords
		directory Directory
		mailSvc   core.EmailService
		logger    core.Logger
		validate  *validator.Validate
	}
)

func NewService(
	repo Repository,
	records AcademicRecords,
	directory Directory,
	mailSvc core.EmailService,
	logger core.Logger,
	validate *validator.Validate,
) *Service {
	return &Service{
		repo:      repo,
		records:   records,
		directory: directory,
		mailSvc:   mailSvc,
		logger:    logger,
		validate:  validate,
	}
}

// Record stores a receipt against an academic record.
func (svc *Service) Record(ctx context.Context, nt NewTransaction) (Transaction, error) {
	nt.clean()
	if err := svc.validate.Struct(nt); err != nil {
		return Transaction{}, err
	}
	rec, err := svc.records.GetRecord(ctx, nt.AcademicID)
	if err != nil {
		if errors.Cause(err) == academic.ErrRecordNotFound {
			return Transaction{}, core.NewValidationError(err, core.FieldError{Field: "academicId", Error: err.Error()})
		}
		return Transaction{}, errors.Wrap(err, "finding academic record")
	}

	now := NowFunc()
	receivedOn := nt.ReceivedOn
	if receivedOn.IsZero() {
		receivedOn = core.DateOf(now)
	}
	txn, err := svc.repo.CreateTransaction(ctx, Transaction{
		StudentID:   rec.StudentID,
		AcademicID:  rec.ID,
		CourseYear:  rec.CourseYear,
		SessionYear: rec.SessionYear,
		AmountType:  nt.AmountType,
		Amount:      nt.Amount,
		PaymentMode: nt.PaymentMode,
		FeePlan:     rec.PaymentMode,
		ReceivedBy:  nt.ReceivedBy,
		ReceivedOn:  receivedOn,
		Remarks:     nt.Remarks,
		CreatedAt:   now.UTC(),
	})
	if err != nil {
		return Transaction{}, errors.Wrap(err, "creating transaction")
	}
	return txn, nil
}

// HasPayments implements academic.PaymentHistory.
func (svc *Service) HasPayments(ctx context.Context, academicID string, substantiveOnly bool) (bool, error) {
	filter := QueryFilter{AcademicID: academicID}
	if substantiveOnly {
		filter.AmountTypes = []AmountType{AdminAmount, FeesAmount}
	}
	txns, err := svc.repo.QueryTransactions(ctx, filter)
	if err != nil {
		return false, errors.Wrap(err, "querying transactions")
	}
	return len(txns) > 0, nil
}

// ByStaff lists the transactions received by a staff member with their remaining amounts.
// With pendingOnly, only transactions still eligible for a handover are returned.
func (svc *Service) ByStaff(ctx context.Context, staffName string, pendingOnly bool) ([]PendingTransaction, error) {
	txns, err := svc.repo.QueryTransactions(ctx, QueryFilter{ReceivedBy: core.CleanString(staffName)})
	if err != nil {
		return nil, errors.Wrap(err, "querying transactions")
	}
	ids := make([]string, 0, len(txns))
	for _, txn := range txns {
		ids = append(ids, txn.ID)
	}
	handedOver, err := svc.repo.HandedOverAmounts(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "summing handovers")
	}

	pending := Pending(txns, handedOver)
	if !pendingOnly {
		return pending, nil
	}
	eligible := pending[:0]
	for _, p := range pending {
		if p.RemainingAmount.IsPositive() {
			eligible = append(eligible, p)
		}
	}
	return eligible, nil
}

// SummaryByStaff aggregates a staff member's receipts per student, course year and session.
func (svc *Service) SummaryByStaff(ctx context.Context, staffName string) ([]Detail, error) {
	txns, err := svc.repo.QueryTransactions(ctx, QueryFilter{ReceivedBy: core.CleanString(staffName)})
	if err != nil {
		return nil, errors.Wrap(err, "querying transactions")
	}
	return Aggregate(txns), nil
}

// Handover commits one handover per batch item once every item passed the remaining-amount rules.
func (svc *Service) Handover(ctx context.Context, batch HandoverBatch) (Receipt, error) {
	batch.clean()
	if err := svc.validate.Struct(batch); err != nil {
		return Receipt{}, err
	}
	if !batch.Verified || batch.VerifiedBy == "" {
		return Receipt{}, core.NewValidationError(ErrVerificationRequired,
			core.FieldError{Field: "verified", Error: ErrVerificationRequired.Error()})
	}
	verifiedOn := batch.VerifiedOn
	if verifiedOn.IsZero() {
		verifiedOn = core.DateOf(NowFunc())
	}

	now := NowFunc().UTC()
	handovers := make([]Handover, 0, len(batch.PaymentData))
	for _, item := range batch.PaymentData {
		handovers = append(handovers, Handover{
			TransactionID:  item.ID,
			HandoverAmount: item.HandoverAmount,
			HandedOverBy:   batch.CreatedBy,
			HandedOverTo:   batch.HandedOverTo,
			HandoverDate:   batch.HandoverDate,
			Remarks:        batch.Remarks,
			Verified:       true,
			VerifiedBy:     batch.VerifiedBy,
			VerifiedOn:     verifiedOn,
			CreatedAt:      now,
		})
	}

	check := func(txns map[string]Transaction, handedOver map[string]decimal.Decimal) error {
		if err := CheckHandovers(batch.PaymentData, batch.CreatedBy, txns, handedOver); err != nil {
			return err
		}
		for i := range handovers {
			handovers[i].StudentID = txns[handovers[i].TransactionID].StudentID
		}
		return nil
	}
	created, err := svc.repo.CreateHandovers(ctx, handovers, check)
	if err != nil {
		if _, ok := core.RuleKindOf(err); ok {
			return Receipt{}, err
		}
		if _, ok := errors.Cause(err).(*core.ValidationError); ok {
			return Receipt{}, err
		}
		return Receipt{}, errors.Wrap(err, "creating handovers")
	}

	receipt := Receipt{
		HandedOverBy: batch.CreatedBy,
		HandedOverTo: batch.HandedOverTo,
		HandoverDate: batch.HandoverDate,
		Handovers:    created,
		Total:        decimal.Zero,
	}
	for _, h := range created {
		receipt.Total = receipt.Total.Add(h.HandoverAmount)
	}

	svc.logger.Info(fmt.Sprintf("%s handed over %s to %s in %d payment(s)",
		receipt.HandedOverBy, receipt.Total.StringFixed(2), receipt.HandedOverTo, len(created)))
	svc.sendReceipt(ctx, receipt)
	return receipt, nil
}

func (svc *Service) sendReceipt(ctx context.Context, receipt Receipt) {
	if svc.mailSvc == nil || svc.directory == nil {
		return
	}
	to, ok := svc.directory.ContactOf(ctx, receipt.HandedOverTo)
	if !ok || strings.TrimSpace(to.Address) == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{to},
		Subject:      "Payment handover receipt",
		Template:     receiptTmpl,
		TemplateData: receipt,
	})
}
