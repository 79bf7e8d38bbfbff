package inmemdb

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/trezcool/edudesk/core/payment"
)

type paymentRepository struct {
	db *DB
}

var _ payment.Repository = (*paymentRepository)(nil)

func NewPaymentRepository(db *DB) payment.Repository {
	return &paymentRepository{db: db}
}

func (repo *paymentRepository) CreateTransaction(_ context.Context, txn payment.Transaction) (payment.Transaction, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	txn.ID = newID()
	stored := txn
	repo.db.txns[txn.ID] = &stored
	repo.db.txnOrder = append(repo.db.txnOrder, txn.ID)
	return txn, nil
}

// withRecord reads course year, session and fee plan from the live academic record.
func (repo *paymentRepository) withRecord(txn payment.Transaction) payment.Transaction {
	if rec, ok := repo.db.records[txn.AcademicID]; ok {
		txn.CourseYear = rec.CourseYear
		txn.SessionYear = rec.SessionYear
		txn.FeePlan = rec.PaymentMode
	}
	return txn
}

func matches(txn *payment.Transaction, filter payment.QueryFilter) bool {
	if filter.ReceivedBy != "" && !strings.EqualFold(txn.ReceivedBy, filter.ReceivedBy) {
		return false
	}
	if filter.AcademicID != "" && txn.AcademicID != filter.AcademicID {
		return false
	}
	if filter.StudentID != "" && txn.StudentID != filter.StudentID {
		return false
	}
	if len(filter.AmountTypes) > 0 {
		for _, at := range filter.AmountTypes {
			if txn.AmountType == at {
				return true
			}
		}
		return false
	}
	return true
}

func (repo *paymentRepository) QueryTransactions(_ context.Context, filter payment.QueryFilter) ([]payment.Transaction, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	txns := make([]payment.Transaction, 0)
	for _, id := range repo.db.txnOrder {
		if txn := repo.db.txns[id]; matches(txn, filter) {
			txns = append(txns, repo.withRecord(*txn))
		}
	}
	return txns, nil
}

func (repo *paymentRepository) handedOver(txnIDs []string) map[string]decimal.Decimal {
	wanted := make(map[string]bool, len(txnIDs))
	for _, id := range txnIDs {
		wanted[id] = true
	}
	sums := make(map[string]decimal.Decimal, len(txnIDs))
	for _, h := range repo.db.handovers {
		if wanted[h.TransactionID] {
			sums[h.TransactionID] = sums[h.TransactionID].Add(h.HandoverAmount)
		}
	}
	return sums
}

func (repo *paymentRepository) HandedOverAmounts(_ context.Context, txnIDs []string) (map[string]decimal.Decimal, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.handedOver(txnIDs), nil
}

func (repo *paymentRepository) CreateHandovers(
	_ context.Context,
	handovers []payment.Handover,
	check payment.HandoverCheck,
) ([]payment.Handover, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	ids := make([]string, 0, len(handovers))
	txns := make(map[string]payment.Transaction, len(handovers))
	for _, h := range handovers {
		ids = append(ids, h.TransactionID)
		if txn, ok := repo.db.txns[h.TransactionID]; ok {
			txns[txn.ID] = repo.withRecord(*txn)
		}
	}
	if err := check(txns, repo.handedOver(ids)); err != nil {
		return nil, err
	}

	created := make([]payment.Handover, 0, len(handovers))
	for _, h := range handovers {
		h.ID = newID()
		created = append(created, h)
	}
	repo.db.handovers = append(repo.db.handovers, created...)
	return created, nil
}
