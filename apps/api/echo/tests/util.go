package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/kampus/apps/api/echo"
	"github.com/trezcool/kampus/apps/shared"
	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/attendance"
	"github.com/trezcool/kampus/core/course"
	"github.com/trezcool/kampus/core/dating"
	"github.com/trezcool/kampus/core/expense"
	"github.com/trezcool/kampus/core/grade"
	"github.com/trezcool/kampus/core/prefs"
	"github.com/trezcool/kampus/core/user"
	"github.com/trezcool/kampus/services/email"
	"github.com/trezcool/kampus/services/logger"
	"github.com/trezcool/kampus/services/realtime"
	"github.com/trezcool/kampus/storage/cache"
	"github.com/trezcool/kampus/storage/database/inmem"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}

	student = user.Identity{Subject: "stu-1", Name: "Asha Rao", Email: "asha@kampus.test", Roles: []string{user.RoleStudent}}
	other   = user.Identity{Subject: "stu-2", Name: "Ravi Kumar", Email: "ravi@kampus.test", Roles: []string{user.RoleStudent}}
	faculty = user.Identity{Subject: "fac-1", Name: "Dr. Mehta", Email: "mehta@kampus.test", Roles: []string{user.RoleFaculty}}
)

type testApp struct {
	*Server
	conf     *core.Config
	db       *inmemdb.DB
	datingSv *dating.Service
	hub      *realtime.Hub
}

func setup(t *testing.T, configure ...func(conf *core.Config)) *testApp {
	conf := core.NewTestConfig()
	for _, fn := range configure {
		fn(conf)
	}
	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	require.NoError(t, core.ParseEmailTemplates(logger))

	validate, translator := shared.NewValidator()

	// set up DB & repos
	db := inmemdb.Open()
	require.NoError(t, inmemdb.Seed(context.Background(), db))

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	emailsvc.ResetSentMessages()
	hub := realtime.NewHub(logger)
	go hub.Run()

	usrSvc := user.NewService(inmemdb.NewUserRepository(db), validate)
	courseSvc := course.NewService(nil, inmemdb.NewCourseRepository(db), validate, conf)
	datingSvc := dating.NewService(inmemdb.NewDatingRepository(db), usrSvc, mailSvc, hub, logger, validate, conf)
	t.Cleanup(func() {
		datingSvc.Close()
		hub.Close()
	})

	// set up server
	srv := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		Mailer:         mailSvc,
		DisableReqLogs: true,
		UserSvc:        usrSvc,
		CourseSvc:      courseSvc,
		GradeSvc:       grade.NewService(inmemdb.NewGradeRepository(db), validate),
		AttendanceSvc: attendance.NewService(
			nil, inmemdb.NewAttendanceRepository(db), courseSvc, usrSvc, mailSvc, validate, conf,
		),
		DatingSvc:  datingSvc,
		ExpenseSvc: expense.NewService(nil, inmemdb.NewExpenseRepository(db), usrSvc, validate, conf),
		PrefsSvc:   prefs.NewService(cache.NewMemoryPrefsStore(), logger, validate),
		Hub:        hub,
	})
	return &testApp{Server: srv, conf: conf, db: db, datingSv: datingSvc, hub: hub}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (app *testApp) getToken(t *testing.T, id user.Identity) string {
	claims := NewClaims(id, app.conf.Auth.Issuer, time.Hour)
	token, err := GenerateToken(app.conf.Auth.IdentitySecret, claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

// do serves the request and decodes a 2xx JSON response into dest.
func (app *testApp) do(t *testing.T, method, path, token string, body interface{}, dest interface{}) *httptest.ResponseRecorder {
	var data []byte
	if body != nil {
		data = marchallObj(t, body)
	}
	req, rec := newAuthRequest(method, path, token, data)
	app.ServeHTTP(rec, req)
	if dest != nil && rec.Code < 300 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
	}
	return rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app *testApp, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
