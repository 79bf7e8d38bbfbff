package inmemdb

import (
	"context"
	"strings"
	"time"

	"github.com/trezcool/edudesk/core/staff"
)

type staffRepository struct {
	db *DB
}

var _ staff.Repository = (*staffRepository)(nil)

func NewStaffRepository(db *DB) staff.Repository {
	return &staffRepository{db: db}
}

func (repo *staffRepository) CheckUniqueness(_ context.Context, username, email string) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, s := range repo.db.staff {
		if username != "" && s.Username == username {
			return staff.ErrUsernameExists
		}
		if email != "" && s.Email == email {
			return staff.ErrEmailExists
		}
	}
	return nil
}

func (repo *staffRepository) CreateStaff(_ context.Context, s staff.Staff) (staff.Staff, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s.ID = newID()
	stored := s
	repo.db.staff[s.ID] = &stored
	return s, nil
}

func (repo *staffRepository) find(match func(s *staff.Staff) bool) (staff.Staff, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, s := range repo.db.staff {
		if match(s) {
			return *s, nil
		}
	}
	return staff.Staff{}, staff.ErrNotFound
}

func (repo *staffRepository) GetStaffByID(_ context.Context, id string) (staff.Staff, error) {
	return repo.find(func(s *staff.Staff) bool { return s.ID == id })
}

func (repo *staffRepository) GetStaffByUsernameOrEmail(_ context.Context, uname string) (staff.Staff, error) {
	if uname == "" {
		return staff.Staff{}, staff.ErrNotFound
	}
	return repo.find(func(s *staff.Staff) bool { return s.Username == uname || s.Email == uname })
}

func (repo *staffRepository) GetStaffByName(_ context.Context, name string) (staff.Staff, error) {
	return repo.find(func(s *staff.Staff) bool { return strings.EqualFold(s.Name, name) })
}

func (repo *staffRepository) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s, ok := repo.db.staff[id]
	if !ok {
		return staff.ErrNotFound
	}
	s.LastLogin = at
	return nil
}
