package staff

import (
	"context"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/edudesk/core"
)

var (
	// errors
	ErrNotFound           = errors.New("staff not found")
	ErrEmailExists        = errors.New("a staff member with this email already exists")
	ErrUsernameExists     = errors.New("a staff member with this username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		// CheckUniqueness returns ErrUsernameExists or ErrEmailExists on conflict.
		CheckUniqueness(ctx context.Context, username, email string) error
		CreateStaff(ctx context.Context, s Staff) (Staff, error)
		GetStaffByID(ctx context.Context, id string) (Staff, error)
		// GetStaffByUsernameOrEmail matches the lower-cased username or email.
		GetStaffByUsernameOrEmail(ctx context.Context, uname string) (Staff, error)
		// GetStaffByName does a case-insensitive match on Staff.Name.
		GetStaffByName(ctx context.Context, name string) (Staff, error)
		UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) checkUniqueness(ctx context.Context, uname, email string) error {
	if err := svc.repo.CheckUniqueness(ctx, uname, email); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewStaff) (Staff, error) {
	ns.clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Staff{}, err
	}
	if err := svc.checkUniqueness(ctx, ns.Username, ns.Email); err != nil {
		return Staff{}, err
	}

	now := NowFunc().UTC()
	s := Staff{
		Name:      ns.Name,
		Username:  ns.Username,
		Email:     ns.Email,
		IsActive:  true,
		Roles:     ns.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.SetPassword(ns.Password); err != nil {
		return Staff{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateStaff(ctx, s)
}

// Authenticate checks the credentials of an active staff member and records the login.
func (svc *Service) Authenticate(ctx context.Context, creds Credentials) (Staff, error) {
	if err := svc.validate.Struct(creds); err != nil {
		return Staff{}, err
	}
	s, err := svc.GetByUsernameOrEmail(ctx, creds.Username)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Staff{}, ErrInvalidCredentials
		}
		return Staff{}, err
	}
	if !s.IsActive || s.CheckPassword(creds.Password) != nil {
		return Staff{}, ErrInvalidCredentials
	}

	s.LastLogin = NowFunc().UTC()
	if err = svc.repo.UpdateLastLogin(ctx, s.ID, s.LastLogin); err != nil {
		return Staff{}, errors.Wrap(err, "updating last login")
	}
	return s, nil
}

// VerifyPassword re-checks the password of an already authenticated staff member.
func (svc *Service) VerifyPassword(ctx context.Context, id, pwd string) (bool, error) {
	s, err := svc.repo.GetStaffByID(ctx, id)
	if err != nil {
		return false, err
	}
	return s.IsActive && s.CheckPassword(pwd) == nil, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Staff, error) {
	return svc.repo.GetStaffByID(ctx, id)
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (Staff, error) {
	return svc.repo.GetStaffByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
}

// ContactOf finds a staff member's mail address by username, email or display name.
func (svc *Service) ContactOf(ctx context.Context, name string) (mail.Address, bool) {
	s, err := svc.GetByUsernameOrEmail(ctx, name)
	if err != nil {
		if s, err = svc.repo.GetStaffByName(ctx, core.CleanString(name)); err != nil {
			return mail.Address{}, false
		}
	}
	return s.Address()
}
