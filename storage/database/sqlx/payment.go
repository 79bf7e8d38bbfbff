package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/academic"
	"github.com/trezcool/edudesk/core/payment"
)

type (
	transactionRow struct {
		ID          string          `db:"id"`
		StudentID   string          `db:"student_id"`
		AcademicID  string          `db:"academic_id"`
		AmountType  string          `db:"amount_type"`
		Amount      decimal.Decimal `db:"amount"`
		PaymentMode string          `db:"payment_mode"`
		ReceivedBy  string          `db:"received_by"`
		ReceivedOn  core.Date       `db:"received_on"`
		Remarks     string          `db:"remarks"`
		CreatedAt   time.Time       `db:"created_at"`

		// from the academic record
		CourseYear  int    `db:"course_year"`
		SessionYear int    `db:"session_year"`
		FeePlan     string `db:"fee_plan"`
	}

	handoverRow struct {
		ID             string          `db:"id"`
		TransactionID  string          `db:"transaction_id"`
		StudentID      string          `db:"student_id"`
		HandoverAmount decimal.Decimal `db:"handover_amount"`
		HandedOverBy   string          `db:"handed_over_by"`
		HandedOverTo   string          `db:"handed_over_to"`
		HandoverDate   core.Date       `db:"handover_date"`
		Remarks        string          `db:"remarks"`
		Verified       bool            `db:"verified"`
		VerifiedBy     string          `db:"verified_by"`
		VerifiedOn     core.Date       `db:"verified_on"`
		CreatedAt      time.Time       `db:"created_at"`
	}

	handedOverRow struct {
		TransactionID string          `db:"transaction_id"`
		Total         decimal.Decimal `db:"total"`
	}
)

func (r transactionRow) toTransaction() payment.Transaction {
	return payment.Transaction{
		ID:          r.ID,
		StudentID:   r.StudentID,
		AcademicID:  r.AcademicID,
		CourseYear:  academic.CourseYear(r.CourseYear),
		SessionYear: academic.SessionYear(r.SessionYear),
		AmountType:  payment.AmountType(r.AmountType),
		Amount:      r.Amount,
		PaymentMode: r.PaymentMode,
		FeePlan:     academic.PaymentMode(r.FeePlan),
		ReceivedBy:  r.ReceivedBy,
		ReceivedOn:  r.ReceivedOn,
		Remarks:     r.Remarks,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

const (
	insertTransactionQuery = `
INSERT INTO payment_transactions (id, student_id, academic_id, amount_type, amount, payment_mode, received_by,
                                  received_on, remarks, created_at)
VALUES (:id, :student_id, :academic_id, :amount_type, :amount, :payment_mode, :received_by,
        :received_on, :remarks, :created_at)`

	selectTransactionsQuery = `
SELECT t.id, t.student_id, t.academic_id, t.amount_type, t.amount, t.payment_mode, t.received_by, t.received_on,
       t.remarks, t.created_at, r.course_year, r.session_year, r.payment_mode AS fee_plan
FROM payment_transactions t
         JOIN academic_records r ON r.id = t.academic_id`

	handedOverQuery = `
SELECT transaction_id, SUM(handover_amount) AS total
FROM cash_handovers
WHERE transaction_id = ANY ($1)
GROUP BY transaction_id`

	insertHandoverQuery = `
INSERT INTO cash_handovers (id, transaction_id, student_id, handover_amount, handed_over_by, handed_over_to,
                            handover_date, remarks, verified, verified_by, verified_on, created_at)
VALUES (:id, :transaction_id, :student_id, :handover_amount, :handed_over_by, :handed_over_to,
        :handover_date, :remarks, :verified, :verified_by, :verified_on, :created_at)`
)

type paymentRepository struct {
	db *sqlx.DB
}

var _ payment.Repository = (*paymentRepository)(nil)

func NewPaymentRepository(db *sqlx.DB) payment.Repository {
	return &paymentRepository{db: db}
}

func (repo *paymentRepository) CreateTransaction(ctx context.Context, txn payment.Transaction) (payment.Transaction, error) {
	txn.ID = newID()
	row := transactionRow{
		ID:          txn.ID,
		StudentID:   txn.StudentID,
		AcademicID:  txn.AcademicID,
		AmountType:  string(txn.AmountType),
		Amount:      txn.Amount,
		PaymentMode: txn.PaymentMode,
		ReceivedBy:  txn.ReceivedBy,
		ReceivedOn:  txn.ReceivedOn,
		Remarks:     txn.Remarks,
		CreatedAt:   txn.CreatedAt,
	}
	if _, err := repo.db.NamedExecContext(ctx, insertTransactionQuery, row); err != nil {
		return payment.Transaction{}, errors.Wrap(err, "inserting transaction")
	}
	return txn, nil
}

func (repo *paymentRepository) QueryTransactions(ctx context.Context, filter payment.QueryFilter) ([]payment.Transaction, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.ReceivedBy != "" {
		conds = append(conds, "lower(t.received_by) = lower("+arg(filter.ReceivedBy)+")")
	}
	if filter.AcademicID != "" {
		conds = append(conds, "t.academic_id = "+arg(filter.AcademicID))
	}
	if filter.StudentID != "" {
		conds = append(conds, "t.student_id = "+arg(filter.StudentID))
	}
	if len(filter.AmountTypes) > 0 {
		types := make([]string, 0, len(filter.AmountTypes))
		for _, at := range filter.AmountTypes {
			types = append(types, string(at))
		}
		conds = append(conds, "t.amount_type = ANY ("+arg(pq.Array(types))+")")
	}

	q := selectTransactionsQuery
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY t.created_at, t.id"

	var rows []transactionRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting transactions")
	}
	txns := make([]payment.Transaction, 0, len(rows))
	for _, row := range rows {
		txns = append(txns, row.toTransaction())
	}
	return txns, nil
}

func handedOver(ctx context.Context, q sqlx.QueryerContext, txnIDs []string) (map[string]decimal.Decimal, error) {
	sums := make(map[string]decimal.Decimal, len(txnIDs))
	if len(txnIDs) == 0 {
		return sums, nil
	}
	var rows []handedOverRow
	if err := sqlx.SelectContext(ctx, q, &rows, handedOverQuery, pq.Array(txnIDs)); err != nil {
		return nil, errors.Wrap(err, "summing handovers")
	}
	for _, row := range rows {
		sums[row.TransactionID] = row.Total
	}
	return sums, nil
}

func (repo *paymentRepository) HandedOverAmounts(ctx context.Context, txnIDs []string) (map[string]decimal.Decimal, error) {
	return handedOver(ctx, repo.db, txnIDs)
}

func (repo *paymentRepository) CreateHandovers(
	ctx context.Context,
	handovers []payment.Handover,
	check payment.HandoverCheck,
) ([]payment.Handover, error) {
	ids := make([]string, 0, len(handovers))
	for _, h := range handovers {
		ids = append(ids, h.TransactionID)
	}

	created := make([]payment.Handover, 0, len(handovers))
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		// concurrent handovers of the same transactions wait here
		var rows []transactionRow
		q := selectTransactionsQuery + " WHERE t.id = ANY ($1) ORDER BY t.id FOR UPDATE OF t"
		if err := tx.SelectContext(ctx, &rows, q, pq.Array(ids)); err != nil {
			return errors.Wrap(err, "locking transactions")
		}
		txns := make(map[string]payment.Transaction, len(rows))
		for _, row := range rows {
			txns[row.ID] = row.toTransaction()
		}
		sums, err := handedOver(ctx, tx, ids)
		if err != nil {
			return err
		}
		if err = check(txns, sums); err != nil {
			return err
		}

		for _, h := range handovers {
			h.ID = newID()
			row := handoverRow{
				ID:             h.ID,
				TransactionID:  h.TransactionID,
				StudentID:      h.StudentID,
				HandoverAmount: h.HandoverAmount,
				HandedOverBy:   h.HandedOverBy,
				HandedOverTo:   h.HandedOverTo,
				HandoverDate:   h.HandoverDate,
				Remarks:        h.Remarks,
				Verified:       h.Verified,
				VerifiedBy:     h.VerifiedBy,
				VerifiedOn:     h.VerifiedOn,
				CreatedAt:      h.CreatedAt,
			}
			if _, err = tx.NamedExecContext(ctx, insertHandoverQuery, row); err != nil {
				return errors.Wrap(err, "inserting handover")
			}
			created = append(created, h)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
