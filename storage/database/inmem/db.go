package inmemdb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/edudesk/core/academic"
	"github.com/trezcool/edudesk/core/payment"
	"github.com/trezcool/edudesk/core/staff"
)

// DB keeps every table behind one lock so multi-table writes stay atomic.
type DB struct {
	mutex sync.RWMutex

	students  map[string]*academic.Student
	records   map[string]*academic.AcademicRecord
	staff     map[string]*staff.Staff
	txns      map[string]*payment.Transaction
	txnOrder  []string
	handovers []payment.Handover
}

func Open() *DB {
	return &DB{
		students: make(map[string]*academic.Student),
		records:  make(map[string]*academic.AcademicRecord),
		staff:    make(map[string]*staff.Staff),
		txns:     make(map[string]*payment.Transaction),
	}
}

// Reset drops every row.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.students = make(map[string]*academic.Student)
	db.records = make(map[string]*academic.AcademicRecord)
	db.staff = make(map[string]*staff.Staff)
	db.txns = make(map[string]*payment.Transaction)
	db.txnOrder = nil
	db.handovers = nil
}

func newID() string {
	return uuid.New().String()
}
