package echoapi

import (
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/presence/core/auth"
	"github.com/trezcool/presence/core/teacher"
)

const (
	scheduleFileField = "file"
	scheduleSubdir    = "schedules"
)

var scheduleExts = map[string]bool{".pdf": true, ".png": true, ".jpg": true, ".jpeg": true, ".xlsx": true, ".csv": true}

type teacherAPI struct {
	*Server
}

func registerTeacherAPI(s *Server, g *echo.Group) {
	api := teacherAPI{s}

	g.GET("", api.query, s.allow(staff...))
	g.POST("", api.create, s.allow(auth.KindAdmin))
	g.GET("/:id", api.retrieve, s.allow(), api.selfOr(staff...))
	g.PUT("/:id", api.update, s.allow(auth.KindAdmin))
	g.DELETE("/:id", api.destroy, s.allow(auth.KindAdmin))
	g.PUT("/:id/groups", api.assignGroups, s.allow(auth.KindAdmin))
	g.POST("/:id/reset-password", api.resetPassword, s.allow(auth.KindAdmin))
	g.POST("/:id/schedule", api.uploadSchedule, s.allow(), api.selfOr(auth.KindAdmin))
	g.GET("/:id/schedule", api.downloadSchedule, s.allow(), api.selfOr(staff...))
}

// selfOr lets a teacher through on their own :id, and any other principal of kinds.
func (api *teacherAPI) selfOr(kinds ...auth.Kind) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := api.contextPrincipal(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context principal")
			}
			if p.Kind == auth.KindTeacher && p.ID == ctx.Param("id") {
				return next(ctx)
			}
			if err = auth.Authorize(p, kinds...); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}

// Handlers

func (api *teacherAPI) query(ctx echo.Context) error {
	filter := new(teacher.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	ordering, page, err := listParams(ctx)
	if err != nil {
		return err
	}

	tchrs, total, err := api.deps.Teachers.Query(ctx.Request().Context(), filter, ordering, page)
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	if tchrs == nil {
		tchrs = []teacher.Teacher{}
	}
	return respondPage(ctx, tchrs, page, total)
}

func (api *teacherAPI) create(ctx echo.Context) error {
	var data teacher.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	tchr, err := api.deps.Teachers.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating teacher")
	}
	return respond(ctx, http.StatusCreated, tchr)
}

func (api *teacherAPI) retrieve(ctx echo.Context) error {
	tchr, err := api.deps.Teachers.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding teacher by ID")
	}
	return respond(ctx, http.StatusOK, tchr)
}

func (api *teacherAPI) update(ctx echo.Context) error {
	var data teacher.UpdateTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTeacher")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	tchr, err := api.deps.Teachers.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating teacher")
	}
	return respond(ctx, http.StatusOK, tchr)
}

func (api *teacherAPI) destroy(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	tchr, err := api.deps.Teachers.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding teacher by ID")
	}
	if err = api.deps.Teachers.Delete(reqCtx, tchr.ID); err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	api.removeScheduleFile(tchr.ScheduleFile)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *teacherAPI) assignGroups(ctx echo.Context) error {
	var data teacher.AssignGroups
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignGroups")
	}
	if err := api.deps.Validate.Struct(data); err != nil {
		return err
	}

	tchr, err := api.deps.Teachers.AssignGroups(ctx.Request().Context(), ctx.Param("id"), data.GroupIDs)
	if err != nil {
		return errors.Wrap(err, "assigning groups")
	}
	return respond(ctx, http.StatusOK, tchr)
}

func (api *teacherAPI) resetPassword(ctx echo.Context) error {
	if _, err := api.deps.Teachers.ResetPassword(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "resetting teacher password")
	}
	return respondMessage(ctx, http.StatusOK, "a temporary password has been emailed to the teacher")
}

// uploadSchedule stores the uploaded file (form field "file") under <UploadDir>/schedules and
// replaces the teacher's previous one.
func (api *teacherAPI) uploadSchedule(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	tchr, err := api.deps.Teachers.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding teacher by ID")
	}

	fh, err := ctx.FormFile(scheduleFileField)
	if err != nil {
		return errNoFile
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !scheduleExts[ext] {
		return echo.NewHTTPError(http.StatusBadRequest, "unsupported schedule file type: "+ext)
	}

	relPath := filepath.Join(scheduleSubdir, tchr.ID+"-"+uuid.New().String()+ext)
	if err = api.saveUpload(fh, relPath); err != nil {
		return err
	}

	tchr, prev, err := api.deps.Teachers.SetScheduleFile(reqCtx, tchr.ID, relPath)
	if err != nil {
		api.removeScheduleFile(relPath)
		return errors.Wrap(err, "setting schedule file")
	}
	if prev != relPath {
		api.removeScheduleFile(prev)
	}
	api.mailScheduleFile(tchr, ext)
	return respond(ctx, http.StatusOK, tchr)
}

func (api *teacherAPI) downloadSchedule(ctx echo.Context) error {
	tchr, err := api.deps.Teachers.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding teacher by ID")
	}
	if tchr.ScheduleFile == "" {
		return errNoSchedule
	}
	path := filepath.Join(api.deps.Conf.Server.UploadDir, tchr.ScheduleFile)
	if _, err = os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return errNoSchedule
		}
		return errors.Wrap(err, "checking schedule file")
	}
	return ctx.Attachment(path, filepath.Base(path))
}

func (api *teacherAPI) saveUpload(fh *multipart.FileHeader, relPath string) error {
	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer src.Close()

	dstPath := filepath.Join(api.deps.Conf.Server.UploadDir, relPath)
	if err = os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return errors.Wrap(err, "creating upload dir")
	}
	dst, err := os.Create(dstPath)
	if err != nil {
		return errors.Wrap(err, "creating schedule file")
	}
	if _, err = io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dstPath)
		return errors.Wrap(err, "writing schedule file")
	}
	return errors.Wrap(dst.Close(), "closing schedule file")
}

func (api *teacherAPI) removeScheduleFile(relPath string) {
	if relPath == "" {
		return
	}
	path := filepath.Join(api.deps.Conf.Server.UploadDir, relPath)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		api.deps.Logger.Warn("could not remove schedule file", err, map[string]interface{}{"path": path})
	}
}

func (api *teacherAPI) mailScheduleFile(tchr teacher.Teacher, ext string) {
	f, err := os.Open(filepath.Join(api.deps.Conf.Server.UploadDir, tchr.ScheduleFile))
	if err != nil {
		api.deps.Logger.Warn("could not open schedule file", err, map[string]interface{}{"teacher": tchr.ID})
		return
	}
	defer f.Close()

	if err = api.deps.Teachers.MailScheduleFile(tchr, f, "schedule"+ext); err != nil {
		api.deps.Logger.Warn("could not mail schedule file", err, map[string]interface{}{"teacher": tchr.ID})
	}
}
