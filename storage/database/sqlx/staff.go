package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/edudesk/core/staff"
)

type staffRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     null.String    `db:"username"`
	Email        null.String    `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func (r staffRow) toStaff() staff.Staff {
	return staff.Staff{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username.String,
		Email:        r.Email.String,
		IsActive:     r.IsActive,
		Roles:        []string(r.Roles),
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
	}
}

const (
	insertStaffQuery = `
INSERT INTO staff (id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login)
VALUES (:id, :name, :username, :email, :is_active, :roles, :password_hash, :created_at, :updated_at, :last_login)`

	selectStaffQuery = `
SELECT id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login
FROM staff`
)

type staffRepository struct {
	db *sqlx.DB
}

var _ staff.Repository = (*staffRepository)(nil)

func NewStaffRepository(db *sqlx.DB) staff.Repository {
	return &staffRepository{db: db}
}

func (repo *staffRepository) CheckUniqueness(ctx context.Context, username, email string) error {
	var rows []staffRow
	err := repo.db.SelectContext(ctx, &rows, selectStaffQuery+" WHERE username = $1 OR email = $2",
		null.NewString(username, username != ""), null.NewString(email, email != ""))
	if err != nil {
		return errors.Wrap(err, "checking staff uniqueness")
	}
	for _, row := range rows {
		if username != "" && row.Username.String == username {
			return staff.ErrUsernameExists
		}
		if email != "" && row.Email.String == email {
			return staff.ErrEmailExists
		}
	}
	return nil
}

func (repo *staffRepository) CreateStaff(ctx context.Context, s staff.Staff) (staff.Staff, error) {
	s.ID = newID()
	row := staffRow{
		ID:           s.ID,
		Name:         s.Name,
		Username:     null.NewString(s.Username, s.Username != ""),
		Email:        null.NewString(s.Email, s.Email != ""),
		IsActive:     s.IsActive,
		Roles:        pq.StringArray(s.Roles),
		PasswordHash: s.PasswordHash,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		LastLogin:    null.NewTime(s.LastLogin, !s.LastLogin.IsZero()),
	}
	if row.Roles == nil {
		row.Roles = pq.StringArray{}
	}
	if _, err := repo.db.NamedExecContext(ctx, insertStaffQuery, row); err != nil {
		if isUniqueViolation(err) {
			return staff.Staff{}, staff.ErrUsernameExists
		}
		return staff.Staff{}, errors.Wrap(err, "inserting staff")
	}
	return s, nil
}

func (repo *staffRepository) get(ctx context.Context, where string, arg interface{}) (staff.Staff, error) {
	var row staffRow
	if err := repo.db.GetContext(ctx, &row, selectStaffQuery+" WHERE "+where+" LIMIT 1", arg); err != nil {
		if err == sql.ErrNoRows {
			return staff.Staff{}, staff.ErrNotFound
		}
		return staff.Staff{}, errors.Wrap(err, "selecting staff")
	}
	return row.toStaff(), nil
}

func (repo *staffRepository) GetStaffByID(ctx context.Context, id string) (staff.Staff, error) {
	return repo.get(ctx, "id = $1", id)
}

func (repo *staffRepository) GetStaffByUsernameOrEmail(ctx context.Context, uname string) (staff.Staff, error) {
	return repo.get(ctx, "username = $1 OR email = $1", uname)
}

func (repo *staffRepository) GetStaffByName(ctx context.Context, name string) (staff.Staff, error) {
	return repo.get(ctx, "lower(name) = lower($1)", name)
}

func (repo *staffRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := repo.db.ExecContext(ctx, "UPDATE staff SET last_login = $1 WHERE id = $2", at, id)
	if err != nil {
		return errors.Wrap(err, "updating last login")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "updating last login")
	} else if n == 0 {
		return staff.ErrNotFound
	}
	return nil
}
