package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/academic"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestAggregate(t *testing.T) {
	txn := func(student string, cy academic.CourseYear, sy academic.SessionYear, at AmountType, amount int64, plan academic.PaymentMode) Transaction {
		return Transaction{StudentID: student, CourseYear: cy, SessionYear: sy, AmountType: at, Amount: dec(amount), FeePlan: plan}
	}

	details := Aggregate([]Transaction{
		txn("s1", academic.FirstYear, 2023, AdminAmount, 1000, ""),
		txn("s2", academic.FirstYear, 2023, FeesAmount, 3000, academic.EMI),
		txn("s1", academic.FirstYear, 2023, FeesAmount, 2000, ""),
		txn("s1", academic.FirstYear, 2023, FeesAmount, 500, ""),
		txn("s1", academic.FirstYear, 2023, FineAmount, 50, ""),
		txn("s1", academic.SecondYear, 2024, AdminAmount, 1000, ""),
		txn("s1", academic.FirstYear, 2023, RefundAmount, 70, ""),
	})

	require.Len(t, details, 3)

	s1First := details[0]
	assert.Equal(t, "s1", s1First.StudentID)
	assert.Equal(t, academic.FirstYear, s1First.CourseYear)
	assert.True(t, s1First.AdminAmount.Equal(dec(1000)))
	assert.True(t, s1First.FeesAmount.Equal(dec(2500)))
	assert.True(t, s1First.FineAmount.Equal(dec(50)))
	assert.True(t, s1First.RefundAmount.Equal(dec(70)))
	assert.Equal(t, academic.OneTime, s1First.PaymentMode)

	s2 := details[1]
	assert.Equal(t, "s2", s2.StudentID)
	assert.True(t, s2.FeesAmount.Equal(dec(3000)))
	assert.True(t, s2.AdminAmount.IsZero())
	assert.Equal(t, academic.EMI, s2.PaymentMode)

	s1Second := details[2]
	assert.Equal(t, academic.SecondYear, s1Second.CourseYear)
	assert.True(t, s1Second.AdminAmount.Equal(dec(1000)))

	assert.Empty(t, Aggregate(nil))
}

func TestIsAmountEditable(t *testing.T) {
	tests := []struct {
		mode string
		want bool
	}{
		{mode: "Cash", want: true},
		{mode: "UPI", want: true},
		{mode: "", want: true},
		{mode: "Cheque (123456)", want: false},
		{mode: "  bank transfer", want: false},
		{mode: "BANK", want: false},
		{mode: "Banker's draft", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAmountEditable(tt.mode))
		})
	}
}

func TestValidateHandoverAmount(t *testing.T) {
	tests := []struct {
		name      string
		mode      string
		requested int64
		remaining int64
		wantErr   string
	}{
		{name: "cash partial", mode: "Cash", requested: 4000, remaining: 10000},
		{name: "cash full", mode: "Cash", requested: 10000, remaining: 10000},
		{name: "cash too much", mode: "Cash", requested: 10001, remaining: 10000, wantErr: "handover amount 10001.00 exceeds the remaining amount 10000.00"},
		{name: "cash zero", mode: "Cash", requested: 0, remaining: 10000, wantErr: "handover amount must be greater than 0"},
		{name: "nothing left", mode: "Cash", requested: 1, remaining: 0, wantErr: "nothing left to hand over"},
		{name: "cheque partial", mode: "Cheque (123)", requested: 4000, remaining: 10000, wantErr: "cheque payments must be handed over in full (10000.00)"},
		{name: "cheque full", mode: "Cheque (123)", requested: 10000, remaining: 10000},
		{name: "bank over", mode: "Bank", requested: 10001, remaining: 10000, wantErr: "bank payments must be handed over in full (10000.00)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHandoverAmount(tt.mode, dec(tt.requested), dec(tt.remaining))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, core.IsRuleKind(err, core.HandoverAmountError))
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestCheckHandovers(t *testing.T) {
	txns := map[string]Transaction{
		"cash":   {ID: "cash", Amount: dec(10000), PaymentMode: "Cash", ReceivedBy: "Alice"},
		"cheque": {ID: "cheque", Amount: dec(5000), PaymentMode: "Cheque (9)", ReceivedBy: "alice"},
		"bob":    {ID: "bob", Amount: dec(300), PaymentMode: "Cash", ReceivedBy: "Bob"},
	}
	handedOver := map[string]decimal.Decimal{"cash": dec(4000)}

	tests := []struct {
		name      string
		custodian string
		items     []HandoverItem
		wantRule  bool
		wantErr   error
	}{
		{name: "rest of cash and full cheque", items: []HandoverItem{{ID: "cash", HandoverAmount: dec(6000)}, {ID: "cheque", HandoverAmount: dec(5000)}}},
		{name: "cash split within remaining", items: []HandoverItem{{ID: "cash", HandoverAmount: dec(3000)}, {ID: "cash", HandoverAmount: dec(3000)}}},
		{name: "cash split over remaining", items: []HandoverItem{{ID: "cash", HandoverAmount: dec(3000)}, {ID: "cash", HandoverAmount: dec(3001)}}, wantRule: true},
		{name: "cheque twice", items: []HandoverItem{{ID: "cheque", HandoverAmount: dec(5000)}, {ID: "cheque", HandoverAmount: dec(5000)}}, wantRule: true},
		{name: "unknown payment", items: []HandoverItem{{ID: "lol", HandoverAmount: dec(1)}}, wantErr: ErrNotFound},
		{name: "custodian case-insensitive", custodian: " ALICE ", items: []HandoverItem{{ID: "cheque", HandoverAmount: dec(5000)}}},
		{name: "received by someone else", items: []HandoverItem{{ID: "bob", HandoverAmount: dec(300)}}, wantErr: ErrNotInCustody},
		{
			name: "one payment of someone else", custodian: "Alice",
			items:   []HandoverItem{{ID: "cash", HandoverAmount: dec(100)}, {ID: "bob", HandoverAmount: dec(300)}},
			wantErr: ErrNotInCustody,
		},
		{name: "other custodian", custodian: "Mallory", items: []HandoverItem{{ID: "cash", HandoverAmount: dec(100)}}, wantErr: ErrNotInCustody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			custodian := tt.custodian
			if custodian == "" {
				custodian = "Alice"
			}
			err := CheckHandovers(tt.items, custodian, txns, handedOver)
			switch {
			case tt.wantRule:
				assert.True(t, core.IsRuleKind(err, core.HandoverAmountError), "got %v", err)
			case tt.wantErr != nil:
				verr, ok := err.(*core.ValidationError)
				require.True(t, ok, "got %v", err)
				assert.Equal(t, tt.wantErr, verr.Err)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestPending(t *testing.T) {
	pending := Pending(
		[]Transaction{
			{ID: "a", Amount: dec(100), PaymentMode: "Cash"},
			{ID: "b", Amount: dec(200), PaymentMode: "Cheque"},
		},
		map[string]decimal.Decimal{"a": dec(40)},
	)
	require.Len(t, pending, 2)
	assert.True(t, pending[0].RemainingAmount.Equal(dec(60)))
	assert.True(t, pending[0].AmountEditable)
	assert.True(t, pending[1].RemainingAmount.Equal(dec(200)))
	assert.True(t, pending[1].HandedOverAmount.IsZero())
	assert.False(t, pending[1].AmountEditable)
}
