// Package spreadsheet reads catalog and attendance imports from XLSX files and writes transcripts.
package spreadsheet

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/attendance"
	"github.com/trezcool/kampus/core/course"
	"github.com/trezcool/kampus/core/grade"
)

var (
	CourseHeaders     = []string{"code", "name", "credits", "type", "seats", "faculty", "schedule", "prerequisites"}
	AttendanceHeaders = []string{"student_id", "course_code", "date", "status"}
)

// sheet is the first sheet of a workbook, with its columns indexed by header name.
type sheet struct {
	rows    [][]string
	columns map[string]int
}

func readSheet(r io.Reader, required []string) (*sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening workbook")
	}
	defer func() { _ = f.Close() }()

	name := f.GetSheetName(0)
	if name == "" {
		return nil, errors.New("workbook has no sheet")
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, errors.Wrapf(err, "reading sheet %s", name)
	}
	if len(rows) == 0 {
		return nil, errors.New("sheet is empty")
	}

	s := &sheet{rows: rows[1:], columns: make(map[string]int, len(rows[0]))}
	for i, h := range rows[0] {
		s.columns[core.CleanLower(h)] = i
	}
	for _, h := range required {
		if _, ok := s.columns[h]; !ok {
			return nil, fmt.Errorf("missing column %q", h)
		}
	}
	return s, nil
}

func (s *sheet) cell(row []string, header string) string {
	i, ok := s.columns[header]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ReadCourses parses a catalog sheet. Schedules are written "Mon 09:00-10:30 LH-1; Wed 09:00-10:30"
// and prerequisites as comma separated codes.
func ReadCourses(r io.Reader) ([]course.NewCourse, error) {
	s, err := readSheet(r, CourseHeaders[:4])
	if err != nil {
		return nil, err
	}
	courses := make([]course.NewCourse, 0, len(s.rows))
	for i, row := range s.rows {
		if blank(row) {
			continue
		}
		line := i + 2
		credits, err := strconv.Atoi(s.cell(row, "credits"))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid credits %q", line, s.cell(row, "credits"))
		}
		var seats int
		if v := s.cell(row, "seats"); v != "" {
			if seats, err = strconv.Atoi(v); err != nil {
				return nil, fmt.Errorf("row %d: invalid seats %q", line, v)
			}
		}
		schedule, err := ParseSchedule(s.cell(row, "schedule"))
		if err != nil {
			return nil, fmt.Errorf("row %d: %v", line, err)
		}
		courses = append(courses, course.NewCourse{
			Code:          s.cell(row, "code"),
			Name:          s.cell(row, "name"),
			Credits:       credits,
			Type:          s.cell(row, "type"),
			Seats:         seats,
			Faculty:       s.cell(row, "faculty"),
			Schedule:      schedule,
			Prerequisites: splitList(s.cell(row, "prerequisites"), ","),
		})
	}
	return courses, nil
}

// ParseSchedule parses slots separated by ";", each "<Day> <start>-<end> [location]".
func ParseSchedule(s string) ([]course.Slot, error) {
	slots := make([]course.Slot, 0)
	for _, part := range splitList(s, ";") {
		fields := strings.Fields(part)
		if len(fields) < 2 {
			return nil, fmt.Errorf("invalid slot %q", part)
		}
		times := strings.SplitN(fields[1], "-", 2)
		if len(times) != 2 {
			return nil, fmt.Errorf("invalid slot time %q", fields[1])
		}
		slots = append(slots, course.Slot{
			Day:      fields[0],
			Start:    times[0],
			End:      times[1],
			Location: strings.Join(fields[2:], " "),
		})
	}
	return slots, nil
}

func splitList(s, sep string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(s, sep) {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// ReadAttendance parses an attendance sheet. Dates are expected as YYYY-MM-DD text.
func ReadAttendance(r io.Reader) ([]attendance.ImportRow, error) {
	s, err := readSheet(r, AttendanceHeaders)
	if err != nil {
		return nil, err
	}
	rows := make([]attendance.ImportRow, 0, len(s.rows))
	for _, row := range s.rows {
		if blank(row) {
			continue
		}
		rows = append(rows, attendance.ImportRow{
			StudentID:  s.cell(row, "student_id"),
			CourseCode: s.cell(row, "course_code"),
			Date:       s.cell(row, "date"),
			Status:     s.cell(row, "status"),
		})
	}
	return rows, nil
}

// WriteTranscript writes one row per course result followed by the semester totals.
func WriteTranscript(w io.Writer, tr grade.Transcript) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheetName = "Transcript"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return errors.Wrap(err, "creating sheet")
	}
	f.SetActiveSheet(index)
	if err = f.DeleteSheet("Sheet1"); err != nil {
		return errors.Wrap(err, "deleting default sheet")
	}

	row := 1
	setRow := func(values ...interface{}) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		row++
		return f.SetSheetRow(sheetName, cell, &values)
	}

	if err = setRow("Student", tr.StudentID); err != nil {
		return errors.Wrap(err, "writing transcript")
	}
	if err = setRow("Semester", "Course", "Name", "Credits", "Marks", "Grade", "Grade point"); err != nil {
		return errors.Wrap(err, "writing transcript")
	}
	for _, sem := range tr.Semesters {
		for _, r := range sem.Courses {
			if err = setRow(sem.Semester, r.CourseCode, r.CourseName, r.Credits, r.Marks, r.Grade, r.GradePoint); err != nil {
				return errors.Wrap(err, "writing transcript")
			}
		}
		summary := fmt.Sprintf("SGPA %.2f / CGPA %.2f", core.Round2(sem.SGPA), core.Round2(sem.CGPA))
		if err = setRow(sem.Semester, "", summary, sem.Credits); err != nil {
			return errors.Wrap(err, "writing transcript")
		}
	}
	if err = setRow("CGPA", core.Round2(tr.CGPA), "Credits earned", tr.CreditsEarned); err != nil {
		return errors.Wrap(err, "writing transcript")
	}

	return errors.Wrap(f.Write(w), "writing workbook")
}

// WriteSheet writes headers and rows to the first sheet. Used to produce import templates.
func WriteSheet(w io.Writer, headers []string, rows [][]string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheetName = "Sheet1"
	all := append([][]string{headers}, rows...)
	for i, r := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(r))
		for j, v := range r {
			values[j] = v
		}
		if err = f.SetSheetRow(sheetName, cell, &values); err != nil {
			return errors.Wrap(err, "writing row")
		}
	}
	return errors.Wrap(f.Write(w), "writing workbook")
}
