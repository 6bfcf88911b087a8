package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/attendance"
)

type attendanceRepository struct {
	db *attendanceTable
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db.attendance}
}

func (repo *attendanceRepository) SaveRecords(_ context.Context, records []attendance.Record, _ ...core.DBExecutor) ([]attendance.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	byKey := make(map[string]string, len(repo.db.table))
	for id, r := range repo.db.table {
		byKey[recordKey(*r)] = id
	}

	saved := make([]attendance.Record, 0, len(records))
	for _, r := range records {
		r.Date = attendance.Day(r.Date)
		if id, ok := byKey[recordKey(r)]; ok {
			r.ID = id
		}
		stored := r
		repo.db.table[r.ID] = &stored
		byKey[recordKey(r)] = r.ID
		saved = append(saved, r)
	}
	return saved, nil
}

func recordKey(r attendance.Record) string {
	return r.StudentID + "|" + r.CourseID + "|" + r.Date.Format("2006-01-02")
}

func (repo *attendanceRepository) GetRecord(_ context.Context, id string, _ ...core.DBExecutor) (attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if r, ok := repo.db.table[id]; ok {
		return *r, nil
	}
	return attendance.Record{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) UpdateRecord(_ context.Context, r attendance.Record, _ ...core.DBExecutor) (attendance.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[r.ID]; !ok {
		return attendance.Record{}, attendance.ErrNotFound
	}
	stored := r
	repo.db.table[r.ID] = &stored
	return r, nil
}

func (repo *attendanceRepository) QueryRecords(_ context.Context, filter *attendance.QueryFilter, _ ...core.DBExecutor) ([]attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	records := make([]attendance.Record, 0)
	for _, r := range repo.db.table {
		if filter == nil || filter.Match(*r) {
			records = append(records, *r)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.Before(records[j].Date)
		}
		if records[i].CourseCode != records[j].CourseCode {
			return records[i].CourseCode < records[j].CourseCode
		}
		return records[i].StudentID < records[j].StudentID
	})
	return records, nil
}
