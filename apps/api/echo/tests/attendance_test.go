package tests

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/kampus/apps/api/echo"
	"github.com/trezcool/kampus/core/attendance"
	"github.com/trezcool/kampus/storage/spreadsheet"
)

func markings(courseID string, statuses map[string]attendance.Status) []attendance.NewMarking {
	var nms []attendance.NewMarking
	for date, status := range statuses {
		nms = append(nms, attendance.NewMarking{
			CourseID: courseID,
			Date:     date,
			Entries:  []attendance.Entry{{StudentID: student.Subject, Status: string(status)}},
		})
	}
	return nms
}

func Test_attendanceApi(t *testing.T) {
	app := setup(t)
	studentToken := app.getToken(t, student)
	facultyToken := app.getToken(t, faculty)

	t.Run("no classes yet", func(t *testing.T) {
		var res AttendanceResponse
		rec := app.do(t, http.MethodGet, "/v1/attendance", studentToken, nil, &res)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 75, res.Shortage)
		assert.Equal(t, 85, res.Good)
		assert.Empty(t, res.Courses)
	})

	t.Run("students cannot mark", func(t *testing.T) {
		nm := markings(courseIDs["CS101"], map[string]attendance.Status{"2024-08-05": attendance.StatusPresent})[0]
		rec := app.do(t, http.MethodPost, "/v1/attendance", studentToken, nm, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	nms := markings(courseIDs["CS101"], map[string]attendance.Status{
		"2024-08-05": attendance.StatusPresent,
		"2024-08-07": attendance.StatusPresent,
		"2024-08-12": attendance.StatusAbsent,
		"2024-08-14": attendance.StatusAbsent,
	})
	for _, nm := range nms {
		rec := app.do(t, http.MethodPost, "/v1/attendance", facultyToken, nm, nil)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	t.Run("shortage", func(t *testing.T) {
		var res AttendanceResponse
		app.do(t, http.MethodGet, "/v1/attendance", studentToken, nil, &res)
		require.Len(t, res.Courses, 1)
		s := res.Courses[0]
		assert.Equal(t, "CS101", s.CourseCode)
		assert.Equal(t, 2, s.Attended)
		assert.Equal(t, 4, s.Total)
		assert.Equal(t, 50, s.Percentage)
		assert.Equal(t, attendance.StandingShortage, s.Standing)
		assert.Equal(t, 4, s.ClassesNeeded) // 6 / 8
		assert.Equal(t, 0, s.CanMiss)
	})

	var absence attendance.Record
	t.Run("records", func(t *testing.T) {
		var records []attendance.Record
		rec := app.do(t, http.MethodGet, "/v1/attendance/records", studentToken, nil, &records)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, records, 4)
		for _, r := range records {
			if r.Status == attendance.StatusAbsent {
				absence = r
				break
			}
		}
		require.NotEmpty(t, absence.ID)

		records = nil
		app.do(t, http.MethodGet, "/v1/attendance/records", app.getToken(t, other), nil, &records)
		assert.Empty(t, records)
	})

	t.Run("claims", func(t *testing.T) {
		nc := attendance.NewClaim{RecordID: absence.ID, Status: string(attendance.StatusMedical), Reason: "fever"}

		rec := app.do(t, http.MethodPost, "/v1/attendance/claims", app.getToken(t, other), nc, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		var r attendance.Record
		rec = app.do(t, http.MethodPost, "/v1/attendance/claims", studentToken, nc, &r)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, attendance.StatusMedical, r.Status)
		assert.Equal(t, attendance.VerificationPending, r.Verification)

		rec = app.do(t, http.MethodPost, "/v1/attendance/claims", studentToken, nc, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)

		var res AttendanceResponse
		app.do(t, http.MethodGet, "/v1/attendance", studentToken, nil, &res)
		require.Len(t, res.Courses, 1)
		assert.Equal(t, 2, res.Courses[0].Attended) // pending claims do not count
		assert.Equal(t, 1, res.Courses[0].PendingClaims)

		var pending []attendance.Record
		app.do(t, http.MethodGet, "/v1/attendance/records?pending=true", facultyToken, nil, &pending)
		require.Len(t, pending, 1)
		assert.Equal(t, absence.ID, pending[0].ID)
	})

	t.Run("verify", func(t *testing.T) {
		path := "/v1/attendance/" + absence.ID + "/verify"
		approve := attendance.Verdict{Verification: string(attendance.VerificationApproved)}

		rec := app.do(t, http.MethodPut, path, studentToken, approve, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = app.do(t, http.MethodPut, path, facultyToken, attendance.Verdict{Verification: "maybe"}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var r attendance.Record
		rec = app.do(t, http.MethodPut, path, facultyToken, approve, &r)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, attendance.VerificationApproved, r.Verification)
		assert.Equal(t, faculty.Subject, r.MarkedBy)

		rec = app.do(t, http.MethodPut, path, facultyToken, approve, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)

		var res AttendanceResponse
		app.do(t, http.MethodGet, "/v1/attendance", studentToken, nil, &res)
		require.Len(t, res.Courses, 1)
		s := res.Courses[0]
		assert.Equal(t, 3, s.Attended)
		assert.Equal(t, 75, s.Percentage)
		assert.Equal(t, attendance.StandingBorderline, s.Standing)
		assert.Equal(t, 0, s.ClassesNeeded)
		assert.Equal(t, 0, s.PendingClaims)
	})

	t.Run("staff see any student", func(t *testing.T) {
		var res AttendanceResponse
		rec := app.do(t, http.MethodGet, "/v1/attendance?student_id="+student.Subject, facultyToken, nil, &res)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, res.Courses, 1)
	})
}

func newUploadRequest(t *testing.T, path, token string, headers []string, rows [][]string) (*http.Request, *httptest.ResponseRecorder) {
	var sheet bytes.Buffer
	require.NoError(t, spreadsheet.WriteSheet(&sheet, headers, rows))

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "attendance.xlsx")
	require.NoError(t, err)
	_, err = part.Write(sheet.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req, httptest.NewRecorder()
}

func Test_attendanceApi_import(t *testing.T) {
	app := setup(t)
	facultyToken := app.getToken(t, faculty)

	t.Run("rows", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/v1/attendance/import", facultyToken, spreadsheet.AttendanceHeaders, [][]string{
			{student.Subject, "CS102", "2024-08-06", "present"},
			{student.Subject, "CS102", "2024-08-08", "Absent"},
			{other.Subject, "CS102", "2024-08-06", "od"},
		})
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"imported": 3}`, rec.Body.String())

		var res AttendanceResponse
		app.do(t, http.MethodGet, "/v1/attendance", app.getToken(t, student), nil, &res)
		require.Len(t, res.Courses, 1)
		assert.Equal(t, 1, res.Courses[0].Attended)
		assert.Equal(t, 2, res.Courses[0].Total)
	})

	t.Run("invalid row", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/v1/attendance/import", facultyToken, spreadsheet.AttendanceHeaders, [][]string{
			{student.Subject, "XX999", "2024-08-06", "present"},
		})
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "rows[0].course_code")
	})

	t.Run("missing column", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/v1/attendance/import", facultyToken, []string{"student_id", "date"}, nil)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty sheet", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/v1/attendance/import", facultyToken, spreadsheet.AttendanceHeaders, nil)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("students cannot import", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/v1/attendance/import", app.getToken(t, student), spreadsheet.AttendanceHeaders, nil)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
