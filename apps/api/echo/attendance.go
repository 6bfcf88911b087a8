package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core/attendance"
	"github.com/trezcool/kampus/storage/spreadsheet"
)

type attendanceApi struct {
	svc *attendance.Service
}

type (
	AttendanceResponse struct {
		Shortage int                        `json:"shortage_threshold"`
		Good     int                        `json:"good_threshold"`
		Courses  []attendance.CourseSummary `json:"courses"`
	}

	ImportResponse struct {
		Imported int `json:"imported"`
	}
)

func registerAttendanceAPI(g *echo.Group, auth *authenticator, svc *attendance.Service) {
	api := attendanceApi{svc: svc}

	ag := g.Group("/attendance", auth.Required())
	ag.GET("", api.summary)
	ag.GET("/records", api.records)
	ag.POST("", api.mark, staffMiddleware())
	ag.POST("/import", api.importSheet, staffMiddleware())
	ag.POST("/claims", api.claim)
	ag.PUT("/:id/verify", api.verify, staffMiddleware())
}

// Handlers

func (api *attendanceApi) summary(ctx echo.Context) error {
	studentID, err := studentParam(ctx)
	if err != nil {
		return err
	}
	summaries, err := api.svc.Summary(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "summarizing attendance")
	}
	th := api.svc.Thresholds()
	return ctx.JSON(http.StatusOK, AttendanceResponse{Shortage: th.Shortage, Good: th.Good, Courses: summaries})
}

// records lists raw records; staff may list every student's, e.g. ?pending=true for the claims queue.
func (api *attendanceApi) records(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	filter := new(attendance.QueryFilter)
	if err = ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []attendance.Record{})
	}
	if usr.IsStaff() {
		filter.StudentID = ctx.QueryParam("student_id")
	} else {
		filter.StudentID = usr.ID
	}
	records, err := api.svc.Records(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying records")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) mark(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data attendance.NewMarking
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMarking")
	}
	records, err := api.svc.Mark(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusCreated, records)
}

// importSheet records the rows of the multipart `file` spreadsheet.
func (api *attendanceApi) importSheet(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	fh, err := ctx.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "a spreadsheet `file` is required")
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()

	rows, err := spreadsheet.ReadAttendance(f)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(rows) == 0 {
		return errMissingImportRow
	}
	n, err := api.svc.Import(ctx.Request().Context(), usr.ID, rows)
	if err != nil {
		return errors.Wrap(err, "importing attendance")
	}
	return ctx.JSON(http.StatusCreated, ImportResponse{Imported: n})
}

func (api *attendanceApi) claim(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data attendance.NewClaim
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClaim")
	}
	r, err := api.svc.Claim(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "claiming absence")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *attendanceApi) verify(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data attendance.Verdict
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Verdict")
	}
	r, err := api.svc.Verify(ctx.Request().Context(), ctx.Param("id"), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "verifying claim")
	}
	return ctx.JSON(http.StatusOK, r)
}
