package spreadsheet

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/kampus/core/attendance"
	"github.com/trezcool/kampus/core/course"
	"github.com/trezcool/kampus/core/grade"
)

func TestReadCourses(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSheet(&buf, []string{"Code", "Name", "Credits", "Type", "Seats", "Faculty", "Schedule", "Prerequisites"}, [][]string{
		{"CS101", "Data Structures", "4", "Core", "60", "Dr. Rao", "Mon 09:00-10:30 LH-1; Wed 09:00-10:30 LH-1", ""},
		{"", "", "", "", "", "", "", ""},
		{"CS201", "Algorithms", "4", "Core", "", "", "", "CS101, CS102"},
	}))

	courses, err := ReadCourses(&buf)
	require.NoError(t, err)
	require.Len(t, courses, 2)

	assert.Equal(t, course.NewCourse{
		Code:    "CS101",
		Name:    "Data Structures",
		Credits: 4,
		Type:    "Core",
		Seats:   60,
		Faculty: "Dr. Rao",
		Schedule: []course.Slot{
			{Day: "Mon", Start: "09:00", End: "10:30", Location: "LH-1"},
			{Day: "Wed", Start: "09:00", End: "10:30", Location: "LH-1"},
		},
		Prerequisites: []string{},
	}, courses[0])
	assert.Equal(t, []string{"CS101", "CS102"}, courses[1].Prerequisites)
	assert.Equal(t, 0, courses[1].Seats)
	assert.Empty(t, courses[1].Schedule)

	t.Run("invalid credits", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteSheet(&buf, CourseHeaders, [][]string{{"CS101", "Data Structures", "four", "Core"}}))
		_, err := ReadCourses(&buf)
		assert.EqualError(t, err, `row 2: invalid credits "four"`)
	})

	t.Run("missing column", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteSheet(&buf, []string{"code", "name"}, nil))
		_, err := ReadCourses(&buf)
		assert.EqualError(t, err, `missing column "credits"`)
	})
}

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		in      string
		want    []course.Slot
		wantErr bool
	}{
		{in: "", want: []course.Slot{}},
		{in: "Sat 09:00-12:00", want: []course.Slot{{Day: "Sat", Start: "09:00", End: "12:00"}}},
		{in: "Fri 14:00-15:30 Main Hall", want: []course.Slot{{Day: "Fri", Start: "14:00", End: "15:30", Location: "Main Hall"}}},
		{in: "Mon", wantErr: true},
		{in: "Mon 09:00", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseSchedule(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestReadAttendance(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSheet(&buf, AttendanceHeaders, [][]string{
		{"s1", "CS101", "2024-08-01", "present"},
		{"s2", "CS101", "2024-08-01", "absent"},
	}))

	rows, err := ReadAttendance(&buf)
	require.NoError(t, err)
	assert.Equal(t, []attendance.ImportRow{
		{StudentID: "s1", CourseCode: "CS101", Date: "2024-08-01", Status: "present"},
		{StudentID: "s2", CourseCode: "CS101", Date: "2024-08-01", Status: "absent"},
	}, rows)
}

func TestWriteTranscript(t *testing.T) {
	results := []grade.CourseResult{
		{StudentID: "s1", Semester: 1, CourseCode: "CS101", CourseName: "Data Structures", Credits: 4, Marks: 91, Grade: "O", GradePoint: 10},
		{StudentID: "s1", Semester: 1, CourseCode: "MA101", CourseName: "Calculus", Credits: 3, Marks: 72, Grade: "A", GradePoint: 8},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteTranscript(&buf, grade.BuildTranscript("s1", results)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"Transcript"}, f.GetSheetList())
	rows, err := f.GetRows("Transcript")
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, []string{"Student", "s1"}, rows[0])
	assert.Equal(t, "CS101", rows[2][1])
	assert.Equal(t, "SGPA 9.14 / CGPA 9.14", rows[4][2])
	assert.Equal(t, []string{"CGPA", "9.14", "Credits earned", "7"}, rows[5])
}
