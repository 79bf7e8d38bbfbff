package tests

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/payment"
	"github.com/trezcool/edudesk/core/staff"
	"github.com/trezcool/edudesk/tests"
)

func Test_paymentApi_record(t *testing.T) {
	app := newApp(t)
	accountant := getToken(t, app, app.createStaff(t, "Carol", "carol", staff.RoleAccounts))
	counsellor := getToken(t, app, app.createStaff(t, "Cora", "cora", staff.RoleCounsellor))
	admin := getToken(t, app, app.createStaff(t, "Admin", "admin", staff.RoleAdmin))
	_, rec := testutil.Admit(t, app.svcs.Academic, "Ravi", false, 2023)

	body := func(academicID, amountType, amount, receivedBy string) []byte {
		return []byte(fmt.Sprintf(
			`{"academicId":%q,"amountType":%q,"amount":%q,"paymentMode":"Cash","receivedBy":%q}`,
			academicID, amountType, amount, receivedBy,
		))
	}

	tests := []httpTest{
		{name: "auth required", body: body(rec.ID, "feesAmount", "1000", ""), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "accounts role required", body: body(rec.ID, "feesAmount", "1000", ""), token: counsellor,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "invalid amount type", body: body(rec.ID, "lol", "1000", ""), token: accountant, wantCode: http.StatusBadRequest},
		{name: "zero amount", body: body(rec.ID, "feesAmount", "0", ""), token: accountant, wantCode: http.StatusBadRequest},
		{
			name: "amount below a cent", body: body(rec.ID, "feesAmount", "0.001", ""), token: accountant,
			wantCode: http.StatusBadRequest, wantData: []byte(`{"amount":"amounts cannot have more than 2 decimal places"}`),
		},
		{
			name: "unknown academic record", body: body("lol", "feesAmount", "1000", ""), token: accountant,
			wantCode: http.StatusBadRequest, wantData: []byte(`{"academicId":"academic record not found"}`),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/payments"
	}
	runTests(t, app, tests)

	recordTests := []struct {
		name         string
		token        string
		receivedBy   string
		wantReceiver string
	}{
		{name: "received by the caller", token: accountant, wantReceiver: "Carol"},
		{name: "received by someone else", token: admin, receivedBy: " Carol ", wantReceiver: "Carol"},
	}
	for _, tt := range recordTests {
		t.Run(tt.name, func(t *testing.T) {
			req, res := newAuthRequest(http.MethodPost, "/v1/payments", tt.token, body(rec.ID, "feesAmount", "1000", tt.receivedBy))
			res = app.do(req, res)
			require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

			var txn payment.Transaction
			unmarchall(t, res, &txn)
			assert.NotEmpty(t, txn.ID)
			assert.Equal(t, rec.StudentID, txn.StudentID)
			assert.Equal(t, rec.CourseYear, txn.CourseYear)
			assert.Equal(t, tt.wantReceiver, txn.ReceivedBy)
			assert.True(t, txn.Amount.Equal(decimal.NewFromInt(1000)))
			assert.Equal(t, core.DateOf(testutil.Now), txn.ReceivedOn)
		})
	}
}

func Test_paymentApi_handover(t *testing.T) {
	app := newApp(t)
	carol := app.createStaff(t, "Carol", "carol", staff.RoleAccounts)
	token := getToken(t, app, carol)
	_, rec := testutil.Admit(t, app.svcs.Academic, "Ravi", false, 2023)

	cash := testutil.RecordPayment(t, app.svcs.Payment, rec.ID, payment.FeesAmount, 10000, "Cash", "Carol")
	cheque := testutil.RecordPayment(t, app.svcs.Payment, rec.ID, payment.AdminAmount, 5000, "Cheque (123456)", "Carol")

	body := func(id, amount string, verified bool) []byte {
		return []byte(fmt.Sprintf(
			`{"paymentData":[{"id":%q,"handoverAmount":%q}],"handedOverTo":"Head Office","handoverDate":"2024-07-01","verified":%t}`,
			id, amount, verified,
		))
	}
	rule := func(reason string) []byte {
		return marchallObj(t, ruleErr{Error: reason, Kind: string(core.HandoverAmountError)})
	}

	tests := []httpTest{
		{name: "auth required", body: body(cash.ID, "4000", true), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "not verified", body: body(cash.ID, "4000", false), token: token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"verified": payment.ErrVerificationRequired.Error()}),
		},
		{name: "no payment", body: []byte(`{"paymentData":[],"handedOverTo":"Head Office","handoverDate":"2024-07-01","verified":true}`), token: token, wantCode: http.StatusBadRequest},
		{name: "unknown payment", body: body("lol", "4000", true), token: token, wantCode: http.StatusBadRequest},
		{
			name: "partial cheque", body: body(cheque.ID, "4000", true), token: token,
			wantCode: http.StatusUnprocessableEntity, wantData: rule("cheque payments must be handed over in full (5000.00)"),
		},
		{
			name: "too much cash", body: body(cash.ID, "10001", true), token: token,
			wantCode: http.StatusUnprocessableEntity, wantData: rule("handover amount 10001.00 exceeds the remaining amount 10000.00"),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/payment-handovers"
	}
	runTests(t, app, tests)

	t.Run("partial cash", func(t *testing.T) {
		req, res := newAuthRequest(http.MethodPost, "/v1/payment-handovers", token, body(cash.ID, "4000", true))
		res = app.do(req, res)
		require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

		var receipt payment.Receipt
		unmarchall(t, res, &receipt)
		assert.Equal(t, "Carol", receipt.HandedOverBy)
		assert.Equal(t, "Head Office", receipt.HandedOverTo)
		assert.True(t, receipt.Total.Equal(decimal.NewFromInt(4000)))
		require.Len(t, receipt.Handovers, 1)
		assert.Equal(t, "Carol", receipt.Handovers[0].VerifiedBy)
		assert.Equal(t, rec.StudentID, receipt.Handovers[0].StudentID)
	})

	t.Run("pending payments", func(t *testing.T) {
		req, res := newAuthRequest(http.MethodGet, "/v1/payments-by-staff/carol?pending=true", token)
		res = app.do(req, res)
		require.Equal(t, http.StatusOK, res.Code, res.Body.String())

		var pending []payment.PendingTransaction
		unmarchall(t, res, &pending)
		require.Len(t, pending, 2)
		byID := map[string]payment.PendingTransaction{pending[0].ID: pending[0], pending[1].ID: pending[1]}
		assert.True(t, byID[cash.ID].RemainingAmount.Equal(decimal.NewFromInt(6000)))
		assert.True(t, byID[cash.ID].AmountEditable)
		assert.True(t, byID[cheque.ID].RemainingAmount.Equal(decimal.NewFromInt(5000)))
		assert.False(t, byID[cheque.ID].AmountEditable)
	})

	t.Run("rest handed over", func(t *testing.T) {
		data := fmt.Sprintf(
			`{"paymentData":[{"id":%q,"handoverAmount":"6000"},{"id":%q,"handoverAmount":"5000"}],"handedOverTo":"Head Office","handoverDate":"2024-07-01","verified":true}`,
			cash.ID, cheque.ID,
		)
		req, res := newAuthRequest(http.MethodPost, "/v1/payment-handovers", token, []byte(data))
		res = app.do(req, res)
		require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

		var receipt payment.Receipt
		unmarchall(t, res, &receipt)
		assert.True(t, receipt.Total.Equal(decimal.NewFromInt(11000)))
		assert.Len(t, receipt.Handovers, 2)

		req, res = newAuthRequest(http.MethodGet, "/v1/payments-by-staff/Carol?pending=true", token)
		res = app.do(req, res)
		assert.Equal(t, http.StatusOK, res.Code)
		assert.JSONEq(t, `[]`, res.Body.String())
	})

	t.Run("nothing left", func(t *testing.T) {
		req, res := newAuthRequest(http.MethodPost, "/v1/payment-handovers", token, body(cash.ID, "1", true))
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnprocessableEntity, wantData: rule("nothing left to hand over")}, app.do(req, res))
	})
}

func Test_paymentApi_byStaff(t *testing.T) {
	app := newApp(t)
	token := getToken(t, app, app.createStaff(t, "Carol", "carol", staff.RoleAccounts))
	_, rec := testutil.Admit(t, app.svcs.Academic, "Ravi", false, 2023)

	testutil.RecordPayment(t, app.svcs.Payment, rec.ID, payment.AdminAmount, 5000, "Cash", "Carol")
	testutil.RecordPayment(t, app.svcs.Payment, rec.ID, payment.FeesAmount, 20000, "UPI", "Carol")
	testutil.RecordPayment(t, app.svcs.Payment, rec.ID, payment.FeesAmount, 2500, "Cash", "Carol")
	testutil.RecordPayment(t, app.svcs.Payment, rec.ID, payment.FeesAmount, 9999, "Cash", "Dave")

	runTests(t, app, []httpTest{
		{name: "auth required", path: "/v1/payments-by-staff/Carol", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "unknown staff", path: "/v1/payments-by-staff/lol", token: token, wantData: []byte(`[]`)},
		{name: "unknown staff summary", path: "/v1/payments-by-staff/lol/summary", token: token, wantData: []byte(`[]`)},
	})

	t.Run("all payments", func(t *testing.T) {
		req, res := newAuthRequest(http.MethodGet, "/v1/payments-by-staff/Carol", token)
		res = app.do(req, res)
		require.Equal(t, http.StatusOK, res.Code, res.Body.String())

		var txns []payment.PendingTransaction
		unmarchall(t, res, &txns)
		assert.Len(t, txns, 3)
	})

	t.Run("summary", func(t *testing.T) {
		req, res := newAuthRequest(http.MethodGet, "/v1/payments-by-staff/Carol/summary", token)
		res = app.do(req, res)
		require.Equal(t, http.StatusOK, res.Code, res.Body.String())

		var details []payment.Detail
		unmarchall(t, res, &details)
		require.Len(t, details, 1)
		assert.Equal(t, rec.StudentID, details[0].StudentID)
		assert.True(t, details[0].AdminAmount.Equal(decimal.NewFromInt(5000)))
		assert.True(t, details[0].FeesAmount.Equal(decimal.NewFromInt(22500)))
	})
}

func Test_paymentApi_handover_custody(t *testing.T) {
	app := newApp(t)
	carol := getToken(t, app, app.createStaff(t, "Carol", "carol", staff.RoleAccounts))
	dave := getToken(t, app, app.createStaff(t, "Dave", "dave", staff.RoleAccounts))
	_, rec := testutil.Admit(t, app.svcs.Academic, "Ravi", false, 2023)
	txn := testutil.RecordPayment(t, app.svcs.Payment, rec.ID, payment.FeesAmount, 10000, "Cash", "Dave")

	// createdBy and verifiedBy in the body are ignored: the caller hands over from their own custody
	body := []byte(fmt.Sprintf(
		`{"paymentData":[{"id":%q,"handoverAmount":"10000"}],"handedOverTo":"Head Office","handoverDate":"2024-07-01","createdBy":"Dave","verified":true,"verifiedBy":"Dave"}`,
		txn.ID,
	))
	runTests(t, app, []httpTest{
		{
			name: "payment of someone else", method: http.MethodPost, path: "/v1/payment-handovers", body: body, token: carol,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"paymentData": "payment " + txn.ID + " was received by Dave, not Carol"}),
		},
		{
			name: "still pending", path: "/v1/payments-by-staff/Dave?pending=true", token: carol,
			wantData: marchallObj(t, []payment.PendingTransaction{{
				Transaction:      txn,
				HandedOverAmount: decimal.Zero,
				RemainingAmount:  txn.Amount,
				AmountEditable:   true,
			}}),
		},
		{name: "own payment", method: http.MethodPost, path: "/v1/payment-handovers", body: body, token: dave, wantCode: http.StatusCreated},
	})
}
