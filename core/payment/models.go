package payment

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/academic"
)

// AmountType is what a receipt pays for.
type AmountType string

const (
	AdminAmount  AmountType = "adminAmount"
	FeesAmount   AmountType = "feesAmount"
	FineAmount   AmountType = "fineAmount"
	RefundAmount AmountType = "refundAmount"
)

var AmountTypes = []AmountType{AdminAmount, FeesAmount, FineAmount, RefundAmount}

func (at AmountType) Valid() bool {
	for _, t := range AmountTypes {
		if at == t {
			return true
		}
	}
	return false
}

// Substantive reports whether the amount type pays the year's planned charges.
func (at AmountType) Substantive() bool {
	return at == AdminAmount || at == FeesAmount
}

func (at *AmountType) UnmarshalText(data []byte) error {
	t := AmountType(data)
	if !t.Valid() {
		return fmt.Errorf("invalid amount type %q", string(data))
	}
	*at = t
	return nil
}

// Transaction is one money receipt against a student's academic record.
type Transaction struct {
	ID          string               `json:"id"`
	StudentID   string               `json:"studentId"`
	AcademicID  string               `json:"academicId"`
	CourseYear  academic.CourseYear  `json:"courseYear"`
	SessionYear academic.SessionYear `json:"sessionYear"`
	AmountType  AmountType           `json:"amountType"`
	Amount      decimal.Decimal      `json:"amount"`
	// PaymentMode is the instrument as entered, e.g. "Cash", "UPI", "Cheque (123456)".
	PaymentMode string               `json:"paymentMode"`
	FeePlan     academic.PaymentMode `json:"feePlan,omitempty"`
	ReceivedBy  string               `json:"receivedBy"`
	ReceivedOn  core.Date            `json:"receivedOn"`
	Remarks     string               `json:"remarks"`
	CreatedAt   time.Time            `json:"createdAt"` // UTC
}

// Handover is a staff-to-staff transfer of (part of) a transaction's amount.
type Handover struct {
	ID             string          `json:"id"`
	TransactionID  string          `json:"transactionId"`
	StudentID      string          `json:"studentId"`
	HandoverAmount decimal.Decimal `json:"handoverAmount"`
	HandedOverBy   string          `json:"handedOverBy"`
	HandedOverTo   string          `json:"handedOverTo"`
	HandoverDate   core.Date       `json:"handoverDate"`
	Remarks        string          `json:"remarks"`
	Verified       bool            `json:"verified"`
	VerifiedBy     string          `json:"verifiedBy"`
	VerifiedOn     core.Date       `json:"verifiedOn"`
	CreatedAt      time.Time       `json:"createdAt"` // UTC
}

// PendingTransaction is a transaction with what is left to hand over.
type PendingTransaction struct {
	Transaction
	HandedOverAmount decimal.Decimal `json:"handedOverAmount"`
	RemainingAmount  decimal.Decimal `json:"remainingAmount"`
	AmountEditable   bool            `json:"amountEditable"`
}

// Detail aggregates a student's receipts for one course year and session.
type Detail struct {
	StudentID    string               `json:"studentId"`
	CourseYear   academic.CourseYear  `json:"courseYear"`
	SessionYear  academic.SessionYear `json:"sessionYear"`
	AdminAmount  decimal.Decimal      `json:"adminAmount"`
	FeesAmount   decimal.Decimal      `json:"feesAmount"`
	FineAmount   decimal.Decimal      `json:"fineAmount"`
	RefundAmount decimal.Decimal      `json:"refundAmount"`
	PaymentMode  academic.PaymentMode `json:"paymentMode"`
}

// NewTransaction contains information needed to record a receipt.
type NewTransaction struct {
	AcademicID  string          `json:"academicId" validate:"required"`
	AmountType  AmountType      `json:"amountType" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0,money"`
	PaymentMode string          `json:"paymentMode" validate:"required"`
	ReceivedBy  string          `json:"receivedBy" validate:"required"`
	ReceivedOn  core.Date       `json:"receivedOn"`
	Remarks     string          `json:"remarks"`
}

func (nt *NewTransaction) clean() {
	nt.PaymentMode = core.CleanString(nt.PaymentMode)
	nt.ReceivedBy = core.CleanString(nt.ReceivedBy)
	nt.Remarks = core.CleanString(nt.Remarks)
}

type HandoverItem struct {
	ID             string          `json:"id" validate:"required"`
	HandoverAmount decimal.Decimal `json:"handoverAmount" validate:"gt=0,money"`
}

// HandoverBatch hands over amounts of several transactions to one staff member at once.
type HandoverBatch struct {
	PaymentData  []HandoverItem `json:"paymentData" validate:"required,min=1,dive"`
	HandedOverTo string         `json:"handedOverTo" validate:"required"`
	HandoverDate core.Date      `json:"handoverDate" validate:"required"`
	Remarks      string         `json:"remarks"`
	CreatedBy    string         `json:"createdBy" validate:"required"`
	// Verified is asserted by the client after a successful password check (POST /v1/verify-password).
	// The server only requires it to be set together with VerifiedBy; it does not link it to that call.
	Verified     bool           `json:"verified"`
	VerifiedBy   string         `json:"verifiedBy"`
	VerifiedOn   core.Date      `json:"verifiedOn"`
}

func (hb *HandoverBatch) clean() {
	hb.HandedOverTo = core.CleanString(hb.HandedOverTo)
	hb.CreatedBy = core.CleanString(hb.CreatedBy)
	hb.VerifiedBy = core.CleanString(hb.VerifiedBy)
	hb.Remarks = core.CleanString(hb.Remarks)
	for i := range hb.PaymentData {
		hb.PaymentData[i].ID = core.CleanString(hb.PaymentData[i].ID)
	}
}

// Receipt summarises a committed handover batch.
type Receipt struct {
	HandedOverBy string          `json:"handedOverBy"`
	HandedOverTo string          `json:"handedOverTo"`
	HandoverDate core.Date       `json:"handoverDate"`
	Handovers    []Handover      `json:"handovers"`
	Total        decimal.Decimal `json:"total"`
}

type QueryFilter struct {
	ReceivedBy  string
	AcademicID  string
	StudentID   string
	AmountTypes []AmountType
}
