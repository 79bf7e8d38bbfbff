package payment

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/academic"
)

type detailKey struct {
	studentID   string
	courseYear  academic.CourseYear
	sessionYear academic.SessionYear
}

// Aggregate sums transactions per (student, course year, session year), in first-seen order.
// Only adminAmount and feesAmount receipts feed the matching totals; fines and refunds are kept apart.
func Aggregate(txns []Transaction) []Detail {
	index := make(map[detailKey]int)
	details := make([]Detail, 0)

	for _, txn := range txns {
		key := detailKey{txn.StudentID, txn.CourseYear, txn.SessionYear}
		i, ok := index[key]
		if !ok {
			details = append(details, Detail{
				StudentID:   txn.StudentID,
				CourseYear:  txn.CourseYear,
				SessionYear: txn.SessionYear,
				PaymentMode: academic.OneTime,
			})
			i = len(details) - 1
			index[key] = i
		}

		d := &details[i]
		if txn.FeePlan.Valid() {
			d.PaymentMode = txn.FeePlan
		}
		switch txn.AmountType {
		case AdminAmount:
			d.AdminAmount = d.AdminAmount.Add(txn.Amount)
		case FeesAmount:
			d.FeesAmount = d.FeesAmount.Add(txn.Amount)
		case FineAmount:
			d.FineAmount = d.FineAmount.Add(txn.Amount)
		case RefundAmount:
			d.RefundAmount = d.RefundAmount.Add(txn.Amount)
		}
	}
	return details
}

// Remaining is the part of the transaction not handed over yet.
func Remaining(txn Transaction, handedOver decimal.Decimal) decimal.Decimal {
	return txn.Amount.Sub(handedOver)
}

// NormalizeMode reduces an instrument label to its first word, lower-cased: "Cheque (123)" -> "cheque".
func NormalizeMode(mode string) string {
	fields := strings.Fields(mode)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// IsAmountEditable reports whether a partial handover is allowed for the instrument.
// Bank and cheque receipts are handed over all at once.
func IsAmountEditable(mode string) bool {
	switch NormalizeMode(mode) {
	case "bank", "cheque":
		return false
	}
	return true
}

// ValidateHandoverAmount checks a requested handover against what remains of the transaction.
func ValidateHandoverAmount(mode string, requested, remaining decimal.Decimal) error {
	if !remaining.IsPositive() {
		return core.NewRuleError(core.HandoverAmountError, "nothing left to hand over")
	}
	if !IsAmountEditable(mode) {
		if !requested.Equal(remaining) {
			return core.NewRuleError(core.HandoverAmountError,
				"%s payments must be handed over in full (%s)", NormalizeMode(mode), remaining.StringFixed(2))
		}
		return nil
	}
	if !requested.IsPositive() {
		return core.NewRuleError(core.HandoverAmountError, "handover amount must be greater than 0")
	}
	if requested.GreaterThan(remaining) {
		return core.NewRuleError(core.HandoverAmountError,
			"handover amount %s exceeds the remaining amount %s", requested.StringFixed(2), remaining.StringFixed(2))
	}
	return nil
}

// Pending pairs each transaction with its handed-over and remaining amounts.
func Pending(txns []Transaction, handedOver map[string]decimal.Decimal) []PendingTransaction {
	pending := make([]PendingTransaction, 0, len(txns))
	for _, txn := range txns {
		done := handedOver[txn.ID]
		pending = append(pending, PendingTransaction{
			Transaction:      txn,
			HandedOverAmount: done,
			RemainingAmount:  Remaining(txn, done),
			AmountEditable:   IsAmountEditable(txn.PaymentMode),
		})
	}
	return pending
}

// CheckHandovers re-validates a whole batch against the locked transactions.
// Only the staff member who received a payment (custodian) may hand it over.
// Several items for the same transaction draw from the same remaining amount.
func CheckHandovers(items []HandoverItem, custodian string, txns map[string]Transaction, handedOver map[string]decimal.Decimal) error {
	inBatch := make(map[string]decimal.Decimal, len(items))
	for i, item := range items {
		txn, ok := txns[item.ID]
		if !ok {
			return core.NewValidationError(ErrNotFound, core.FieldError{
				Field: "paymentData",
				Error: "payment " + item.ID + " not found",
			})
		}
		if !strings.EqualFold(txn.ReceivedBy, core.CleanString(custodian)) {
			return core.NewValidationError(ErrNotInCustody, core.FieldError{
				Field: "paymentData",
				Error: fmt.Sprintf("payment %s was received by %s, not %s", item.ID, txn.ReceivedBy, custodian),
			})
		}
		remaining := Remaining(txn, handedOver[item.ID].Add(inBatch[item.ID]))
		if err := ValidateHandoverAmount(txn.PaymentMode, item.HandoverAmount, remaining); err != nil {
			return core.NewRuleError(core.HandoverAmountError, "paymentData[%d]: %v", i, err)
		}
		inBatch[item.ID] = inBatch[item.ID].Add(item.HandoverAmount)
	}
	return nil
}
