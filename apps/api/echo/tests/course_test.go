package tests

import (
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/kampus/apps/api/echo"
	"github.com/trezcool/kampus/core/course"
	"github.com/trezcool/kampus/storage/database/seed"
)

// seeded course IDs by code
var courseIDs = func() map[string]string {
	ids := make(map[string]string)
	for _, c := range seed.Courses() {
		ids[c.Code] = c.ID
	}
	return ids
}()

type registrationResponse struct {
	StudentID      string                  `json:"student_id"`
	CreditLimit    int                     `json:"credit_limit"`
	CurrentCredits int                     `json:"current_credits"`
	Courses        []course.EnrolledCourse `json:"courses"`
}

func Test_courseApi_catalog(t *testing.T) {
	app := setup(t)
	token := app.getToken(t, student)

	t.Run("all", func(t *testing.T) {
		var courses []course.AvailableCourse
		rec := app.do(t, http.MethodGet, "/v1/courses", token, nil, &courses)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, courses, len(seed.Courses()))
	})

	t.Run("filtered", func(t *testing.T) {
		var courses []course.AvailableCourse
		app.do(t, http.MethodGet, "/v1/courses?type=lab", token, nil, &courses)
		require.Len(t, courses, 1)
		assert.Equal(t, "CS391", courses[0].Code)

		courses = nil
		app.do(t, http.MethodGet, "/v1/courses?search=menon", token, nil, &courses)
		codes := make([]string, len(courses))
		for i, c := range courses {
			codes[i] = c.Code
		}
		assert.Equal(t, []string{"CS201", "CS499"}, codes)
	})

	t.Run("ordered", func(t *testing.T) {
		var courses []course.AvailableCourse
		rec := app.do(t, http.MethodGet, "/v1/courses?ordering=-credits,code", token, nil, &courses)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, courses, len(seed.Courses()))
		assert.Equal(t, "CS499", courses[0].Code)
		assert.Equal(t, "CS101", courses[1].Code)

		rec = app.do(t, http.MethodGet, "/v1/courses?ordering=seats", token, nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed filter", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/v1/courses?open=notabool", token, nil, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, ErrorResponse{
			Error:  "query: malformed query string",
			Reason: "invalid",
			Fields: map[string]string{"query": "malformed query string"},
		}, body)
	})

	t.Run("full courses are flagged", func(t *testing.T) {
		var c course.AvailableCourse
		rec := app.do(t, http.MethodGet, "/v1/courses/"+courseIDs["CS202"], token, nil, &c)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, c.Full)
	})

	t.Run("unknown course", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/v1/courses/nope", token, nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("suggestions", func(t *testing.T) {
		var courses []course.Course
		rec := app.do(t, http.MethodGet, "/v1/courses/suggest?q=algoritms", token, nil, &courses)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotEmpty(t, courses)
		assert.Equal(t, "CS201", courses[0].Code)
	})

	t.Run("enrolled courses leave the catalog", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/registration/"+courseIDs["CS101"], token, nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var courses []course.AvailableCourse
		app.do(t, http.MethodGet, "/v1/courses", token, nil, &courses)
		assert.Len(t, courses, len(seed.Courses())-1)
		for _, c := range courses {
			assert.NotEqual(t, "CS101", c.Code)
		}
	})
}

func Test_courseApi_create(t *testing.T) {
	app := setup(t)
	nc := course.NewCourse{Code: "CS410", Name: "Compilers", Credits: 4, Type: string(course.TypeElective), Seats: 30}

	t.Run("students cannot create courses", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/courses", app.getToken(t, student), nc, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("faculty", func(t *testing.T) {
		var c course.Course
		rec := app.do(t, http.MethodPost, "/v1/courses", app.getToken(t, faculty), nc, &c)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "CS410", c.Code)
		assert.Equal(t, course.Seats{Total: 30, Available: 30}, c.Seats)
	})

	t.Run("duplicate code", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/courses", app.getToken(t, faculty), nc, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("invalid", func(t *testing.T) {
		bad := nc
		bad.Code, bad.Credits = "", 0
		rec := app.do(t, http.MethodPost, "/v1/courses", app.getToken(t, faculty), bad, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_courseApi_registration(t *testing.T) {
	app := setup(t)
	token := app.getToken(t, student)

	enroll := func(code string) int {
		return app.do(t, http.MethodPost, "/v1/registration/"+courseIDs[code], token, nil, nil).Code
	}

	var reg registrationResponse
	rec := app.do(t, http.MethodGet, "/v1/registration", token, nil, &reg)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, student.Subject, reg.StudentID)
	assert.Equal(t, 24, reg.CreditLimit)
	assert.Equal(t, 0, reg.CurrentCredits)
	assert.Empty(t, reg.Courses)

	// 6 + 4 + 3 + 4 + 4 + 3 = 24
	for _, code := range []string{"CS499", "CS101", "CS102", "CS201", "CS301", "CS302"} {
		require.Equal(t, http.StatusOK, enroll(code), code)
	}

	t.Run("credit limit", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/registration/"+courseIDs["MA201"], token, nil, nil)
		require.Equal(t, http.StatusConflict, rec.Code)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, ErrorResponse{Error: "credit limit exceeded", Reason: "credit_limit_exceeded"}, body)

		var reg registrationResponse
		app.do(t, http.MethodGet, "/v1/registration", token, nil, &reg)
		assert.Equal(t, 24, reg.CurrentCredits)
		assert.Len(t, reg.Courses, 6)
	})

	t.Run("already enrolled", func(t *testing.T) {
		assert.Equal(t, http.StatusConflict, enroll("CS101"))
	})

	t.Run("drop", func(t *testing.T) {
		var reg registrationResponse
		rec := app.do(t, http.MethodDelete, "/v1/registration/"+courseIDs["CS499"], token, nil, &reg)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 18, reg.CurrentCredits)

		var c course.AvailableCourse
		app.do(t, http.MethodGet, "/v1/courses/"+courseIDs["CS499"], token, nil, &c)
		assert.Equal(t, 20, c.Seats.Available)

		assert.Equal(t, http.StatusOK, enroll("MA201"))
	})

	t.Run("drop a course not enrolled in", func(t *testing.T) {
		rec := app.do(t, http.MethodDelete, "/v1/registration/"+courseIDs["HS101"], token, nil, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("no seats", func(t *testing.T) {
		app.do(t, http.MethodDelete, "/v1/registration/"+courseIDs["CS201"], token, nil, nil)
		assert.Equal(t, http.StatusConflict, enroll("CS202"))
	})

	t.Run("unknown course", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/registration/nope", token, nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_courseApi_lastSeat(t *testing.T) {
	app := setup(t)

	// CS351 has 5 seats left
	students := 8
	codes := make(chan int, students)
	var wg sync.WaitGroup
	for i := 0; i < students; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := student
			id.Subject = "stu-seat-" + string(rune('a'+i))
			token := app.getToken(t, id)
			req, rec := newAuthRequest(http.MethodPost, "/v1/registration/"+courseIDs["CS351"], token)
			app.ServeHTTP(rec, req)
			codes <- rec.Code
		}(i)
	}
	wg.Wait()
	close(codes)

	var ok, conflict int
	for code := range codes {
		switch code {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
			conflict++
		}
	}
	assert.Equal(t, 5, ok)
	assert.Equal(t, 3, conflict)

	var c course.AvailableCourse
	app.do(t, http.MethodGet, "/v1/courses/"+courseIDs["CS351"], app.getToken(t, student), nil, &c)
	assert.Equal(t, 0, c.Seats.Available)
	assert.True(t, c.Full)
}
