package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/attendance"
)

type attendanceRow struct {
	ID           string      `db:"id"`
	StudentID    string      `db:"student_id"`
	CourseID     string      `db:"course_id"`
	CourseCode   string      `db:"course_code"`
	Date         time.Time   `db:"date"`
	Status       string      `db:"status"`
	Verification string      `db:"verification"`
	Reason       null.String `db:"reason"`
	MarkedBy     null.String `db:"marked_by"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

func (r attendanceRow) record() attendance.Record {
	return attendance.Record{
		ID:           r.ID,
		StudentID:    r.StudentID,
		CourseID:     r.CourseID,
		CourseCode:   r.CourseCode,
		Date:         attendance.Day(r.Date),
		Status:       attendance.Status(r.Status),
		Verification: attendance.Verification(r.Verification),
		Reason:       r.Reason.String,
		MarkedBy:     r.MarkedBy.String,
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

const attendanceColumns = "id, student_id, course_id, course_code, date, status, verification, reason, marked_by, updated_at"

type attendanceRepository struct {
	repository
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(exec core.DBExecutor) *attendanceRepository {
	return &attendanceRepository{repository{exec: exec}}
}

// trapNoRowsErr maps psql "no rows" err to attendance.ErrNotFound
func (repo attendanceRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return attendance.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo attendanceRepository) SaveRecords(ctx context.Context, records []attendance.Record, exec ...core.DBExecutor) ([]attendance.Record, error) {
	db := repo.getExec(exec)
	saved := make([]attendance.Record, 0, len(records))
	for _, r := range records {
		var rows []attendanceRow
		err := query(ctx, db, &rows, `
			INSERT INTO attendance (`+attendanceColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (student_id, course_id, date) DO UPDATE SET
				status = EXCLUDED.status,
				verification = EXCLUDED.verification,
				reason = EXCLUDED.reason,
				marked_by = EXCLUDED.marked_by,
				updated_at = EXCLUDED.updated_at
			RETURNING `+attendanceColumns,
			r.ID, r.StudentID, r.CourseID, r.CourseCode, attendance.Day(r.Date),
			string(r.Status), string(r.Verification),
			null.NewString(r.Reason, r.Reason != ""),
			null.NewString(r.MarkedBy, r.MarkedBy != ""),
			r.UpdatedAt.UTC(),
		)
		if err != nil {
			return nil, errors.Wrap(err, "saving attendance record")
		}
		for _, row := range rows {
			saved = append(saved, row.record())
		}
	}
	return saved, nil
}

func (repo attendanceRepository) GetRecord(ctx context.Context, id string, exec ...core.DBExecutor) (attendance.Record, error) {
	var rows []attendanceRow
	if err := query(ctx, repo.getExec(exec), &rows, "SELECT "+attendanceColumns+" FROM attendance WHERE id = ?", id); err != nil {
		return attendance.Record{}, repo.trapNoRowsErr(err, "getting attendance record")
	}
	if len(rows) == 0 {
		return attendance.Record{}, repo.trapNoRowsErr(sql.ErrNoRows, "getting attendance record")
	}
	return rows[0].record(), nil
}

func (repo attendanceRepository) UpdateRecord(ctx context.Context, r attendance.Record, exec ...core.DBExecutor) (attendance.Record, error) {
	var rows []attendanceRow
	err := query(ctx, repo.getExec(exec), &rows, `
		UPDATE attendance SET status = ?, verification = ?, reason = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+attendanceColumns,
		string(r.Status), string(r.Verification), null.NewString(r.Reason, r.Reason != ""), r.UpdatedAt.UTC(), r.ID,
	)
	if err != nil {
		return attendance.Record{}, repo.trapNoRowsErr(err, "updating attendance record")
	}
	if len(rows) == 0 {
		return attendance.Record{}, repo.trapNoRowsErr(sql.ErrNoRows, "updating attendance record")
	}
	return rows[0].record(), nil
}

func (repo attendanceRepository) QueryRecords(ctx context.Context, filter *attendance.QueryFilter, exec ...core.DBExecutor) ([]attendance.Record, error) {
	var w where
	if filter != nil {
		if filter.StudentID != "" {
			w.add("student_id = ?", filter.StudentID)
		}
		if filter.CourseID != "" {
			w.add("course_id = ?", filter.CourseID)
		}
		if filter.Pending {
			w.add("verification = ?", string(attendance.VerificationPending))
		}
	}

	var rows []attendanceRow
	q := "SELECT " + attendanceColumns + " FROM attendance" + w.String() + " ORDER BY date ASC, course_code ASC, student_id ASC"
	if err := query(ctx, repo.getExec(exec), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}
	records := make([]attendance.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.record())
	}
	return records, nil
}
