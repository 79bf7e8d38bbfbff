package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/academic"
)

var studentOrderings = map[string]string{
	"name":      "s.name",
	"createdAt": "s.created_at",
}

type (
	studentRow struct {
		ID            string    `db:"id"`
		Name          string    `db:"name"`
		DOB           core.Date `db:"dob"`
		Email         string    `db:"email"`
		Phone         string    `db:"phone"`
		Category      string    `db:"category"`
		AdmissionMode string    `db:"admission_mode"`
		IsLateral     bool      `db:"is_lateral"`
		CourseYear    int       `db:"course_year"`
		Version       int       `db:"version"`
		CreatedAt     time.Time `db:"created_at"`
		UpdatedAt     time.Time `db:"updated_at"`
	}

	recordRow struct {
		ID           string          `db:"id"`
		StudentID    string          `db:"student_id"`
		CourseYear   int             `db:"course_year"`
		SessionYear  int             `db:"session_year"`
		AdminAmount  decimal.Decimal `db:"admin_amount"`
		FeesAmount   decimal.Decimal `db:"fees_amount"`
		PaymentMode  string          `db:"payment_mode"`
		NumberOfEMI  int             `db:"number_of_emi"`
		LedgerNumber string          `db:"ledger_number"`
		CreatedAt    time.Time       `db:"created_at"`
		UpdatedAt    time.Time       `db:"updated_at"`
	}

	emiRow struct {
		AcademicID string          `db:"academic_id"`
		EmiNumber  int             `db:"emi_number"`
		Amount     decimal.Decimal `db:"amount"`
		DueDate    core.Date       `db:"due_date"`
	}
)

func (r studentRow) toStudent() academic.Student {
	return academic.Student{
		ID:            r.ID,
		Name:          r.Name,
		DateOfBirth:   r.DOB,
		Email:         r.Email,
		Phone:         r.Phone,
		Category:      r.Category,
		AdmissionMode: r.AdmissionMode,
		IsLateral:     r.IsLateral,
		CourseYear:    academic.CourseYear(r.CourseYear),
		Version:       r.Version,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

func (r recordRow) toRecord(emis []emiRow) academic.AcademicRecord {
	rec := academic.AcademicRecord{
		ID:          r.ID,
		StudentID:   r.StudentID,
		CourseYear:  academic.CourseYear(r.CourseYear),
		SessionYear: academic.SessionYear(r.SessionYear),
		FeeTerms: academic.FeeTerms{
			AdminAmount:  r.AdminAmount,
			FeesAmount:   r.FeesAmount,
			PaymentMode:  academic.PaymentMode(r.PaymentMode),
			NumberOfEMI:  r.NumberOfEMI,
			LedgerNumber: r.LedgerNumber,
		},
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	for _, e := range emis {
		rec.EmiDetails = append(rec.EmiDetails, academic.EmiDetail{EmiNumber: e.EmiNumber, Amount: e.Amount, DueDate: e.DueDate})
	}
	return rec
}

type academicRepository struct {
	db *sqlx.DB
}

var _ academic.Repository = (*academicRepository)(nil)

func NewAcademicRepository(db *sqlx.DB) academic.Repository {
	return &academicRepository{db: db}
}

const (
	insertStudentQuery = `
INSERT INTO students (id, name, dob, email, phone, category, admission_mode, is_lateral, course_year, version,
                      created_at, updated_at)
VALUES (:id, :name, :dob, :email, :phone, :category, :admission_mode, :is_lateral, :course_year, :version,
        :created_at, :updated_at)`

	insertRecordQuery = `
INSERT INTO academic_records (id, student_id, course_year, session_year, admin_amount, fees_amount, payment_mode,
                              number_of_emi, ledger_number, created_at, updated_at)
VALUES (:id, :student_id, :course_year, :session_year, :admin_amount, :fees_amount, :payment_mode,
        :number_of_emi, :ledger_number, :created_at, :updated_at)`

	updateRecordQuery = `
UPDATE academic_records
SET session_year  = :session_year,
    admin_amount  = :admin_amount,
    fees_amount   = :fees_amount,
    payment_mode  = :payment_mode,
    number_of_emi = :number_of_emi,
    ledger_number = :ledger_number,
    updated_at    = :updated_at
WHERE id = :id AND student_id = :student_id`

	insertEmiQuery = `
INSERT INTO emi_details (academic_id, emi_number, amount, due_date)
VALUES (:academic_id, :emi_number, :amount, :due_date)`

	selectStudentsQuery = `
SELECT s.id, s.name, s.dob, s.email, s.phone, s.category, s.admission_mode, s.is_lateral, s.course_year,
       s.version, s.created_at, s.updated_at
FROM students s`

	selectRecordsQuery = `
SELECT id, student_id, course_year, session_year, admin_amount, fees_amount, payment_mode, number_of_emi,
       ledger_number, created_at, updated_at
FROM academic_records`
)

func recordToRow(rec academic.AcademicRecord) recordRow {
	return recordRow{
		ID:           rec.ID,
		StudentID:    rec.StudentID,
		CourseYear:   int(rec.CourseYear),
		SessionYear:  int(rec.SessionYear),
		AdminAmount:  rec.AdminAmount,
		FeesAmount:   rec.FeesAmount,
		PaymentMode:  string(rec.PaymentMode),
		NumberOfEMI:  rec.NumberOfEMI,
		LedgerNumber: rec.LedgerNumber,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
}

func insertEmis(ctx context.Context, tx *sqlx.Tx, rec academic.AcademicRecord) error {
	for _, e := range rec.EmiDetails {
		row := emiRow{AcademicID: rec.ID, EmiNumber: e.EmiNumber, Amount: e.Amount, DueDate: e.DueDate}
		if _, err := tx.NamedExecContext(ctx, insertEmiQuery, row); err != nil {
			return errors.Wrap(err, "inserting emi detail")
		}
	}
	return nil
}

func insertRecord(ctx context.Context, tx *sqlx.Tx, rec academic.AcademicRecord) error {
	if _, err := tx.NamedExecContext(ctx, insertRecordQuery, recordToRow(rec)); err != nil {
		if isUniqueViolation(err) {
			return academic.ErrDuplicateYear
		}
		return errors.Wrap(err, "inserting academic record")
	}
	return insertEmis(ctx, tx, rec)
}

func (repo *academicRepository) CreateStudent(
	ctx context.Context,
	student academic.Student,
	record academic.AcademicRecord,
) (academic.Student, academic.AcademicRecord, error) {
	student.ID = newID()
	record.ID = newID()
	record.StudentID = student.ID
	student.CourseYear = record.CourseYear

	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		row := studentRow{
			ID:            student.ID,
			Name:          student.Name,
			DOB:           student.DateOfBirth,
			Email:         student.Email,
			Phone:         student.Phone,
			Category:      student.Category,
			AdmissionMode: student.AdmissionMode,
			IsLateral:     student.IsLateral,
			CourseYear:    int(student.CourseYear),
			Version:       student.Version,
			CreatedAt:     student.CreatedAt,
			UpdatedAt:     student.UpdatedAt,
		}
		if _, err := tx.NamedExecContext(ctx, insertStudentQuery, row); err != nil {
			return errors.Wrap(err, "inserting student")
		}
		return insertRecord(ctx, tx, record)
	})
	if err != nil {
		return academic.Student{}, academic.AcademicRecord{}, err
	}
	return student, record, nil
}

func (repo *academicRepository) GetStudent(ctx context.Context, id string) (academic.Student, error) {
	var row studentRow
	if err := repo.db.GetContext(ctx, &row, selectStudentsQuery+" WHERE s.id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return academic.Student{}, academic.ErrNotFound
		}
		return academic.Student{}, errors.Wrap(err, "selecting student")
	}
	return row.toStudent(), nil
}

func (repo *academicRepository) QueryStudents(
	ctx context.Context,
	filter *academic.QueryFilter,
	ordering []core.DBOrdering,
) ([]academic.Student, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter != nil {
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			conds = append(conds, fmt.Sprintf("(s.name ILIKE %[1]s OR s.email ILIKE %[1]s OR s.phone ILIKE %[1]s)", p))
		}
		if filter.IsLateral != nil {
			conds = append(conds, "s.is_lateral = "+arg(*filter.IsLateral))
		}
		if filter.CourseYear != 0 {
			conds = append(conds, "s.course_year = "+arg(int(filter.CourseYear)))
		}
	}

	q := selectStudentsQuery
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	ordering = core.MapOrderings(ordering, studentOrderings)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "s.name", Ascending: true}}
	}
	orders := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		orders = append(orders, ord.String())
	}
	q += " ORDER BY " + strings.Join(append(orders, "s.id ASC"), ", ")

	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	students := make([]academic.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.toStudent())
	}
	return students, nil
}

func (repo *academicRepository) loadEmis(ctx context.Context, q sqlx.QueryerContext, ids []string) (map[string][]emiRow, error) {
	emis := make(map[string][]emiRow, len(ids))
	if len(ids) == 0 {
		return emis, nil
	}
	query, args, err := sqlx.In(
		"SELECT academic_id, emi_number, amount, due_date FROM emi_details WHERE academic_id IN (?) ORDER BY emi_number", ids)
	if err != nil {
		return nil, errors.Wrap(err, "building emi query")
	}
	var rows []emiRow
	if err = sqlx.SelectContext(ctx, q, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "selecting emi details")
	}
	for _, row := range rows {
		emis[row.AcademicID] = append(emis[row.AcademicID], row)
	}
	return emis, nil
}

func (repo *academicRepository) GetRecord(ctx context.Context, id string) (academic.AcademicRecord, error) {
	var row recordRow
	if err := repo.db.GetContext(ctx, &row, selectRecordsQuery+" WHERE id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return academic.AcademicRecord{}, academic.ErrRecordNotFound
		}
		return academic.AcademicRecord{}, errors.Wrap(err, "selecting academic record")
	}
	emis, err := repo.loadEmis(ctx, repo.db, []string{row.ID})
	if err != nil {
		return academic.AcademicRecord{}, err
	}
	return row.toRecord(emis[row.ID]), nil
}

func (repo *academicRepository) QueryRecords(ctx context.Context, studentID string) ([]academic.AcademicRecord, error) {
	var rows []recordRow
	if err := repo.db.SelectContext(ctx, &rows, selectRecordsQuery+" WHERE student_id = $1 ORDER BY course_year", studentID); err != nil {
		return nil, errors.Wrap(err, "selecting academic records")
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	emis, err := repo.loadEmis(ctx, repo.db, ids)
	if err != nil {
		return nil, err
	}
	records := make([]academic.AcademicRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord(emis[row.ID]))
	}
	return records, nil
}

func (repo *academicRepository) ApplyTransition(ctx context.Context, tw academic.TransitionWrite) (academic.AcademicRecord, error) {
	rec := tw.Record
	rec.StudentID = tw.StudentID

	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE students
SET version     = version + 1,
    course_year = $1,
    updated_at  = $2,
    is_lateral  = CASE WHEN $3::boolean THEN false ELSE is_lateral END
WHERE id = $4 AND version = $5`, int(rec.CourseYear), rec.UpdatedAt, tw.ClearLateral, tw.StudentID, tw.StudentVersion)
		if err != nil {
			return errors.Wrap(err, "updating student")
		}
		if n, err := res.RowsAffected(); err != nil {
			return errors.Wrap(err, "updating student")
		} else if n == 0 {
			var found bool
			if err = tx.GetContext(ctx, &found, "SELECT true FROM students WHERE id = $1", tw.StudentID); err == sql.ErrNoRows {
				return academic.ErrNotFound
			}
			return academic.ErrStaleStudent
		}

		if rec.ID == "" {
			rec.ID = newID()
			return insertRecord(ctx, tx, rec)
		}
		res, err = tx.NamedExecContext(ctx, updateRecordQuery, recordToRow(rec))
		if err != nil {
			return errors.Wrap(err, "updating academic record")
		}
		if n, err := res.RowsAffected(); err != nil {
			return errors.Wrap(err, "updating academic record")
		} else if n == 0 {
			return academic.ErrRecordNotFound
		}
		if _, err = tx.ExecContext(ctx, "DELETE FROM emi_details WHERE academic_id = $1", rec.ID); err != nil {
			return errors.Wrap(err, "deleting emi details")
		}
		return insertEmis(ctx, tx, rec)
	})
	if err != nil {
		return academic.AcademicRecord{}, err
	}
	return rec, nil
}
