package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/academic"
	"github.com/trezcool/edudesk/core/payment"
	"github.com/trezcool/edudesk/core/staff"
)

// Repositories are one storage backend's repositories.
type Repositories struct {
	Academic academic.Repository
	Payment  payment.Repository
	Staff    staff.Repository
	// Reset empties the backend between subtests.
	Reset func(t *testing.T)
}

// TestRepositories runs the behaviour every storage backend must share.
func TestRepositories(t *testing.T, repos Repositories) {
	t.Run("academic", func(t *testing.T) {
		repos.Reset(t)
		testAcademicRepository(t, repos.Academic)
	})
	t.Run("payment", func(t *testing.T) {
		repos.Reset(t)
		testPaymentRepository(t, repos.Academic, repos.Payment)
	})
	t.Run("staff", func(t *testing.T) {
		repos.Reset(t)
		testStaffRepository(t, repos.Staff)
	})
}

var repoNow = time.Date(2024, time.July, 1, 10, 0, 0, 0, time.UTC)

func newStudent(name string, lateral bool) academic.Student {
	return academic.Student{
		Name:        name,
		DateOfBirth: core.NewDate(2004, time.March, 9),
		IsLateral:   lateral,
		Version:     1,
		CreatedAt:   repoNow,
		UpdatedAt:   repoNow,
	}
}

func newRecord(cy academic.CourseYear, sy academic.SessionYear, terms academic.FeeTerms) academic.AcademicRecord {
	return academic.AcademicRecord{
		CourseYear:  cy,
		SessionYear: sy,
		FeeTerms:    terms,
		CreatedAt:   repoNow,
		UpdatedAt:   repoNow,
	}
}

func emiTerms() academic.FeeTerms {
	return academic.FeeTerms{
		AdminAmount: decimal.NewFromInt(1000),
		FeesAmount:  decimal.NewFromInt(9000),
		PaymentMode: academic.EMI,
		NumberOfEMI: 2,
		EmiDetails: []academic.EmiDetail{
			{EmiNumber: 1, Amount: decimal.NewFromInt(5000), DueDate: core.NewDate(2024, time.August, 1)},
			{EmiNumber: 2, Amount: decimal.NewFromInt(5000), DueDate: core.NewDate(2025, time.January, 1)},
		},
		LedgerNumber: "L-42",
	}
}

func testAcademicRepository(t *testing.T, repo academic.Repository) {
	ctx := context.Background()

	student, first, err := repo.CreateStudent(ctx, newStudent("Jane", false), newRecord(academic.FirstYear, 2023, emiTerms()))
	require.NoError(t, err)
	require.NotEmpty(t, student.ID)
	assert.Equal(t, student.ID, first.StudentID)

	got, err := repo.GetStudent(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", got.Name)
	assert.Equal(t, "2004-03-09", got.DateOfBirth.String())
	assert.Equal(t, academic.FirstYear, got.CourseYear)
	assert.Equal(t, 1, got.Version)

	rec, err := repo.GetRecord(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, academic.FirstYear, rec.CourseYear)
	assert.Equal(t, academic.SessionYear(2023), rec.SessionYear)
	assert.Equal(t, academic.EMI, rec.PaymentMode)
	assert.Equal(t, "L-42", rec.LedgerNumber)
	require.Len(t, rec.EmiDetails, 2)
	assert.Equal(t, 2, rec.EmiDetails[1].EmiNumber)
	assert.True(t, rec.EmiDetails[1].Amount.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, "2025-01-01", rec.EmiDetails[1].DueDate.String())

	_, err = repo.GetStudent(ctx, "lol")
	assert.Equal(t, academic.ErrNotFound, errors.Cause(err))
	_, err = repo.GetRecord(ctx, "lol")
	assert.Equal(t, academic.ErrRecordNotFound, errors.Cause(err))

	// promotion inserts a record and bumps the version
	second, err := repo.ApplyTransition(ctx, academic.TransitionWrite{
		StudentID:      student.ID,
		StudentVersion: 1,
		Record:         newRecord(academic.SecondYear, 2024, OneTime(0, 100)),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, second.ID)

	// a stale version writes nothing
	_, err = repo.ApplyTransition(ctx, academic.TransitionWrite{
		StudentID:      student.ID,
		StudentVersion: 1,
		Record:         newRecord(academic.ThirdYear, 2025, OneTime(0, 100)),
	})
	assert.Equal(t, academic.ErrStaleStudent, errors.Cause(err))

	// one record per course year
	_, err = repo.ApplyTransition(ctx, academic.TransitionWrite{
		StudentID:      student.ID,
		StudentVersion: 2,
		Record:         newRecord(academic.SecondYear, 2025, OneTime(0, 100)),
	})
	assert.Equal(t, academic.ErrDuplicateYear, errors.Cause(err))

	_, err = repo.ApplyTransition(ctx, academic.TransitionWrite{StudentID: "lol", StudentVersion: 1, Record: newRecord(academic.SecondYear, 2024, OneTime(0, 1))})
	assert.Equal(t, academic.ErrNotFound, errors.Cause(err))

	records, err := repo.QueryRecords(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, academic.FirstYear, records[0].CourseYear)
	assert.Equal(t, academic.SecondYear, records[1].CourseYear)
	assert.Len(t, records[0].EmiDetails, 2)
	assert.Empty(t, records[1].EmiDetails)

	// demotion of a lateral student updates the existing record and clears the flag
	lateral, lateralRec, err := repo.CreateStudent(ctx, newStudent("Lee", true), newRecord(academic.SecondYear, 2024, OneTime(0, 100)))
	require.NoError(t, err)
	_, err = repo.ApplyTransition(ctx, academic.TransitionWrite{
		StudentID:      lateral.ID,
		StudentVersion: 1,
		ClearLateral:   true,
		Record:         newRecord(academic.FirstYear, 2024, OneTime(0, 100)),
	})
	require.NoError(t, err)
	lateral, err = repo.GetStudent(ctx, lateral.ID)
	require.NoError(t, err)
	assert.False(t, lateral.IsLateral)
	assert.Equal(t, 2, lateral.Version)
	assert.Equal(t, academic.FirstYear, lateral.CourseYear)

	// the year filter follows the demotion, not the highest year on record
	students, err := repo.QueryStudents(ctx, &academic.QueryFilter{CourseYear: academic.FirstYear}, nil)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, lateral.ID, students[0].ID)

	updated := lateralRec
	updated.FeeTerms = emiTerms()
	updated.UpdatedAt = repoNow.Add(time.Hour)
	_, err = repo.ApplyTransition(ctx, academic.TransitionWrite{StudentID: lateral.ID, StudentVersion: 2, Record: updated})
	require.NoError(t, err)
	rec, err = repo.GetRecord(ctx, lateralRec.ID)
	require.NoError(t, err)
	assert.Equal(t, academic.EMI, rec.PaymentMode)
	assert.Len(t, rec.EmiDetails, 2)

	yes := true
	students, err = repo.QueryStudents(ctx, &academic.QueryFilter{Search: "an"}, nil)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, student.ID, students[0].ID)

	students, err = repo.QueryStudents(ctx, &academic.QueryFilter{IsLateral: &yes}, nil)
	require.NoError(t, err)
	assert.Empty(t, students)

	students, err = repo.QueryStudents(ctx, &academic.QueryFilter{CourseYear: academic.SecondYear}, []core.DBOrdering{{Field: "name"}})
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Lee", students[0].Name)
	assert.Equal(t, "Jane", students[1].Name)
}

func testPaymentRepository(t *testing.T, academicRepo academic.Repository, repo payment.Repository) {
	ctx := context.Background()

	student, rec, err := academicRepo.CreateStudent(ctx, newStudent("Jane", false), newRecord(academic.FirstYear, 2024, emiTerms()))
	require.NoError(t, err)

	create := func(at payment.AmountType, amount int64, mode, by string, offset time.Duration) payment.Transaction {
		txn, err := repo.CreateTransaction(ctx, payment.Transaction{
			StudentID:   student.ID,
			AcademicID:  rec.ID,
			AmountType:  at,
			Amount:      decimal.NewFromInt(amount),
			PaymentMode: mode,
			ReceivedBy:  by,
			ReceivedOn:  core.DateOf(repoNow),
			CreatedAt:   repoNow.Add(offset),
		})
		require.NoError(t, err)
		return txn
	}
	cash := create(payment.FeesAmount, 10000, "Cash", "Alice", 0)
	fine := create(payment.FineAmount, 50, "UPI", "alice", time.Second)
	create(payment.AdminAmount, 1000, "Bank", "Bob", 2*time.Second)

	txns, err := repo.QueryTransactions(ctx, payment.QueryFilter{ReceivedBy: "ALICE"})
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, cash.ID, txns[0].ID)
	assert.Equal(t, fine.ID, txns[1].ID)
	assert.Equal(t, academic.FirstYear, txns[0].CourseYear)
	assert.Equal(t, academic.SessionYear(2024), txns[0].SessionYear)
	assert.Equal(t, academic.EMI, txns[0].FeePlan)
	assert.True(t, txns[0].Amount.Equal(decimal.NewFromInt(10000)))

	txns, err = repo.QueryTransactions(ctx, payment.QueryFilter{AcademicID: rec.ID, AmountTypes: []payment.AmountType{payment.AdminAmount, payment.FeesAmount}})
	require.NoError(t, err)
	assert.Len(t, txns, 2)

	txns, err = repo.QueryTransactions(ctx, payment.QueryFilter{StudentID: "lol"})
	require.NoError(t, err)
	assert.Empty(t, txns)

	handover := func(txnID string, amount int64) payment.Handover {
		return payment.Handover{
			TransactionID:  txnID,
			StudentID:      student.ID,
			HandoverAmount: decimal.NewFromInt(amount),
			HandedOverBy:   "Alice",
			HandedOverTo:   "Carol",
			HandoverDate:   core.DateOf(repoNow),
			Verified:       true,
			VerifiedBy:     "Alice",
			VerifiedOn:     core.DateOf(repoNow),
			CreatedAt:      repoNow,
		}
	}

	// a failing check writes nothing
	rejected := errors.New("rejected")
	_, err = repo.CreateHandovers(ctx, []payment.Handover{handover(cash.ID, 4000)}, func(map[string]payment.Transaction, map[string]decimal.Decimal) error {
		return rejected
	})
	assert.Equal(t, rejected, errors.Cause(err))

	var (
		seenTxns map[string]payment.Transaction
		seenSums map[string]decimal.Decimal
	)
	check := func(txns map[string]payment.Transaction, sums map[string]decimal.Decimal) error {
		seenTxns, seenSums = txns, sums
		return nil
	}
	created, err := repo.CreateHandovers(ctx, []payment.Handover{handover(cash.ID, 4000), handover(cash.ID, 1000)}, check)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.NotEmpty(t, created[0].ID)
	assert.Contains(t, seenTxns, cash.ID)
	assert.True(t, seenSums[cash.ID].IsZero())

	_, err = repo.CreateHandovers(ctx, []payment.Handover{handover(cash.ID, 500), handover(fine.ID, 50)}, check)
	require.NoError(t, err)
	assert.True(t, seenSums[cash.ID].Equal(decimal.NewFromInt(5000)))
	assert.Len(t, seenTxns, 2)

	// unknown transactions are left out of the check input
	_, err = repo.CreateHandovers(ctx, []payment.Handover{handover("lol", 1)}, func(txns map[string]payment.Transaction, _ map[string]decimal.Decimal) error {
		if _, ok := txns["lol"]; !ok {
			return rejected
		}
		return nil
	})
	assert.Equal(t, rejected, errors.Cause(err))

	sums, err := repo.HandedOverAmounts(ctx, []string{cash.ID, fine.ID, "lol"})
	require.NoError(t, err)
	assert.True(t, sums[cash.ID].Equal(decimal.NewFromInt(5500)))
	assert.True(t, sums[fine.ID].Equal(decimal.NewFromInt(50)))
	assert.True(t, sums["lol"].IsZero())
}

func testStaffRepository(t *testing.T, repo staff.Repository) {
	ctx := context.Background()

	alice := CreateStaff(t, repo, "Alice Admin", "alice", "alice@edudesk.test", "Pwd!12345", []string{staff.RoleAdmin}, true)
	CreateStaff(t, repo, "Bob", "", "bob@edudesk.test", "", nil, false)

	assert.Equal(t, staff.ErrUsernameExists, errors.Cause(repo.CheckUniqueness(ctx, "alice", "")))
	assert.Equal(t, staff.ErrEmailExists, errors.Cause(repo.CheckUniqueness(ctx, "", "bob@edudesk.test")))
	assert.NoError(t, repo.CheckUniqueness(ctx, "carol", "carol@edudesk.test"))
	assert.NoError(t, repo.CheckUniqueness(ctx, "", ""))

	s, err := repo.GetStaffByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", s.Username)
	assert.Equal(t, []string{staff.RoleAdmin}, s.Roles)
	assert.NoError(t, s.CheckPassword("Pwd!12345"))
	assert.True(t, s.LastLogin.IsZero())

	s, err = repo.GetStaffByUsernameOrEmail(ctx, "alice@edudesk.test")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, s.ID)

	bob, err := repo.GetStaffByUsernameOrEmail(ctx, "bob@edudesk.test")
	require.NoError(t, err)
	assert.Equal(t, "", bob.Username)
	assert.False(t, bob.IsActive)

	s, err = repo.GetStaffByName(ctx, "ALICE admin")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, s.ID)

	_, err = repo.GetStaffByUsernameOrEmail(ctx, "")
	assert.Equal(t, staff.ErrNotFound, errors.Cause(err))
	_, err = repo.GetStaffByID(ctx, "lol")
	assert.Equal(t, staff.ErrNotFound, errors.Cause(err))

	require.NoError(t, repo.UpdateLastLogin(ctx, alice.ID, repoNow))
	s, err = repo.GetStaffByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, repoNow.Equal(s.LastLogin))
}
