package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/academic"
)

var studentOrderings = map[string]string{
	"name":      "name",
	"createdAt": "createdAt",
}

type academicRepository struct {
	db *DB
}

var _ academic.Repository = (*academicRepository)(nil)

func NewAcademicRepository(db *DB) academic.Repository {
	return &academicRepository{db: db}
}

func copyRecord(rec academic.AcademicRecord) academic.AcademicRecord {
	if rec.EmiDetails != nil {
		rec.EmiDetails = append([]academic.EmiDetail(nil), rec.EmiDetails...)
	}
	return rec
}

func (repo *academicRepository) CreateStudent(
	_ context.Context,
	student academic.Student,
	record academic.AcademicRecord,
) (academic.Student, academic.AcademicRecord, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	student.ID = newID()
	record.ID = newID()
	record.StudentID = student.ID
	student.CourseYear = record.CourseYear
	record = copyRecord(record)
	repo.db.students[student.ID] = &student
	stored := record
	repo.db.records[record.ID] = &stored
	return student, copyRecord(record), nil
}

func (repo *academicRepository) GetStudent(_ context.Context, id string) (academic.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.students[id]; ok {
		return *s, nil
	}
	return academic.Student{}, academic.ErrNotFound
}

func (repo *academicRepository) QueryStudents(
	_ context.Context,
	filter *academic.QueryFilter,
	ordering []core.DBOrdering,
) ([]academic.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]academic.Student, 0, len(repo.db.students))
	for _, s := range repo.db.students {
		if filter != nil {
			if search := strings.ToLower(filter.Search); search != "" &&
				!strings.Contains(strings.ToLower(s.Name), search) &&
				!strings.Contains(strings.ToLower(s.Email), search) &&
				!strings.Contains(s.Phone, search) {
				continue
			}
			if filter.IsLateral != nil && s.IsLateral != *filter.IsLateral {
				continue
			}
			if filter.CourseYear != 0 && s.CourseYear != filter.CourseYear {
				continue
			}
		}
		students = append(students, *s)
	}

	ordering = core.MapOrderings(ordering, studentOrderings)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	sort.SliceStable(students, func(i, j int) bool {
		for _, ord := range ordering {
			var less, greater bool
			switch ord.Field {
			case "name":
				a, b := strings.ToLower(students[i].Name), strings.ToLower(students[j].Name)
				less, greater = a < b, a > b
			case "createdAt":
				less, greater = students[i].CreatedAt.Before(students[j].CreatedAt), students[i].CreatedAt.After(students[j].CreatedAt)
			}
			if !ord.Ascending {
				less, greater = greater, less
			}
			if less || greater {
				return less
			}
		}
		return students[i].ID < students[j].ID
	})
	return students, nil
}

func (repo *academicRepository) GetRecord(_ context.Context, id string) (academic.AcademicRecord, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rec, ok := repo.db.records[id]; ok {
		return copyRecord(*rec), nil
	}
	return academic.AcademicRecord{}, academic.ErrRecordNotFound
}

func (repo *academicRepository) QueryRecords(_ context.Context, studentID string) ([]academic.AcademicRecord, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	records := make([]academic.AcademicRecord, 0, len(academic.CourseYears))
	for _, rec := range repo.db.records {
		if rec.StudentID == studentID {
			records = append(records, copyRecord(*rec))
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CourseYear < records[j].CourseYear })
	return records, nil
}

func (repo *academicRepository) ApplyTransition(_ context.Context, tw academic.TransitionWrite) (academic.AcademicRecord, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	student, ok := repo.db.students[tw.StudentID]
	if !ok {
		return academic.AcademicRecord{}, academic.ErrNotFound
	}
	if student.Version != tw.StudentVersion {
		return academic.AcademicRecord{}, academic.ErrStaleStudent
	}

	rec := copyRecord(tw.Record)
	rec.StudentID = tw.StudentID
	if rec.ID == "" {
		for _, other := range repo.db.records {
			if other.StudentID == rec.StudentID && other.CourseYear == rec.CourseYear {
				return academic.AcademicRecord{}, academic.ErrDuplicateYear
			}
		}
		rec.ID = newID()
	} else if orig, ok := repo.db.records[rec.ID]; !ok || orig.StudentID != rec.StudentID {
		return academic.AcademicRecord{}, academic.ErrRecordNotFound
	}

	student.Version++
	student.CourseYear = rec.CourseYear
	student.UpdatedAt = rec.UpdatedAt
	if tw.ClearLateral {
		student.IsLateral = false
	}
	repo.db.records[rec.ID] = &rec
	return copyRecord(rec), nil
}
