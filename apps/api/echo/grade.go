package echoapi

import (
	"bytes"
	"net/http"
	"net/mail"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/grade"
	"github.com/trezcool/kampus/core/user"
	"github.com/trezcool/kampus/storage/spreadsheet"
)

const mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type gradeApi struct {
	svc    *grade.Service
	users  *user.Service
	mailer core.EmailService
}

func registerGradeAPI(g *echo.Group, auth *authenticator, svc *grade.Service, users *user.Service, mailer core.EmailService) {
	api := gradeApi{svc: svc, users: users, mailer: mailer}

	rg := g.Group("/results", auth.Required())
	rg.GET("", api.results)
	rg.POST("", api.record, staffMiddleware())
	rg.GET("/transcript.xlsx", api.exportTranscript)
	rg.POST("/transcript/email", api.emailTranscript)
}

// Handlers

// results returns the semesters with SGPA and running CGPA of the context user, or of ?student_id= for staff.
func (api *gradeApi) results(ctx echo.Context) error {
	studentID, err := studentParam(ctx)
	if err != nil {
		return err
	}
	tr, err := api.svc.Transcript(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "building transcript")
	}
	return ctx.JSON(http.StatusOK, tr)
}

func (api *gradeApi) record(ctx echo.Context) error {
	var data grade.NewResult
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewResult")
	}
	r, err := api.svc.Record(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "recording result")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *gradeApi) exportTranscript(ctx echo.Context) error {
	studentID, err := studentParam(ctx)
	if err != nil {
		return err
	}
	tr, err := api.svc.Transcript(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "building transcript")
	}

	var buf bytes.Buffer
	if err = spreadsheet.WriteTranscript(&buf, tr); err != nil {
		return errors.Wrap(err, "writing transcript")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="transcript.xlsx"`)
	return ctx.Blob(http.StatusOK, mimeXLSX, buf.Bytes())
}

type transcriptMailData struct {
	Name    string
	CGPA    float64
	Credits int
}

// emailTranscript mails the XLSX transcript to the student it belongs to.
func (api *gradeApi) emailTranscript(ctx echo.Context) error {
	studentID, err := studentParam(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	student, err := api.users.GetByID(rctx, studentID)
	if err != nil {
		return errors.Wrap(err, "finding student")
	}
	if student.Email == "" {
		return core.NewValidationError(
			errors.New("no email address on file"),
			core.FieldError{Field: "email", Error: "the identity provider did not share an email address"},
		)
	}
	tr, err := api.svc.Transcript(rctx, studentID)
	if err != nil {
		return errors.Wrap(err, "building transcript")
	}

	var buf bytes.Buffer
	if err = spreadsheet.WriteTranscript(&buf, tr); err != nil {
		return errors.Wrap(err, "writing transcript")
	}
	msg := &core.EmailMessage{
		To:       []mail.Address{student.MailAddress()},
		Subject:  "Your transcript",
		Template: core.TemplateTranscript,
		Data:     transcriptMailData{Name: student.Name, CGPA: tr.CGPA, Credits: tr.CreditsEarned},
	}
	msg.Attach("transcript.xlsx", buf.Bytes(), mimeXLSX)
	api.mailer.SendMessages(msg)
	return ctx.NoContent(http.StatusAccepted)
}

// studentParam lets staff act on ?student_id=; everyone else acts on themselves.
func studentParam(ctx echo.Context) (string, error) {
	usr, err := getContextUser(ctx)
	if err != nil {
		return "", err
	}
	if id := ctx.QueryParam("student_id"); id != "" && id != usr.ID {
		if !usr.IsStaff() {
			return "", errHttpForbidden
		}
		return id, nil
	}
	return usr.ID, nil
}
