package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/presence/core/absence"
	"github.com/trezcool/presence/core/auth"
)

type absenceAPI struct {
	*Server
}

func registerAbsenceAPI(s *Server, g *echo.Group) {
	api := absenceAPI{s}

	g.GET("", api.query, s.allow(everyone...))
	g.POST("", api.takeAttendance, s.allow(everyone...))
	g.GET("/stats", api.stats, s.allow(everyone...))
	g.POST("/validate", api.validateEntries, s.allow(staff...))
	g.GET("/group/:group", api.byGroup, s.allow(everyone...))
	g.GET("/records/:id", api.retrieveRecord, s.allow(everyone...))
	g.PUT("/records/:id", api.updateRecord, s.allow(staff...))
	g.DELETE("/records/:id", api.destroyRecord, s.allow(staff...))
	g.POST("/records/:id/validate", api.validateRecord, s.allow(staff...))
	g.PUT("/:id", api.updateEntry, s.allow(staff...))
	g.POST("/:id/justify", api.justify, s.allow(staff...))
}

// ValidateRequest lists the entries to validate.
type ValidateRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// Handlers

func (api *absenceAPI) query(ctx echo.Context) error {
	filter := new(absence.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	page, err := bindPagination(ctx)
	if err != nil {
		return err
	}

	entries, total, err := api.deps.Absences.Query(ctx.Request().Context(), filter, page)
	if err != nil {
		return errors.Wrap(err, "querying absences")
	}
	if entries == nil {
		entries = []absence.EntryDetail{}
	}
	return respondPage(ctx, entries, page, total)
}

// takeAttendance records a session. Teachers record their own sessions, for groups they teach.
func (api *absenceAPI) takeAttendance(ctx echo.Context) error {
	var data absence.TakeAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TakeAttendance")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	p, err := api.contextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}
	if p.Kind == auth.KindTeacher {
		tchr, err := api.deps.Teachers.GetByID(reqCtx, p.ID)
		if err != nil {
			return errors.Wrap(err, "finding teacher by ID")
		}
		grp, err := api.deps.Groups.Resolve(reqCtx, data.Group)
		if err != nil {
			return errors.Wrap(err, "resolving group")
		}
		if !tchr.Teaches(grp.ID) {
			return auth.ErrForbidden
		}
		data.TeacherID = tchr.ID
	}

	rec, err := api.deps.Absences.TakeAttendance(reqCtx, data, p.ID)
	if err != nil {
		return errors.Wrap(err, "taking attendance")
	}
	return respond(ctx, http.StatusCreated, rec)
}

func (api *absenceAPI) stats(ctx echo.Context) error {
	var filter absence.StatsFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to StatsFilter")
	}
	stats, err := api.deps.Absences.Stats(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "computing absence stats")
	}
	return respond(ctx, http.StatusOK, stats)
}

func (api *absenceAPI) byGroup(ctx echo.Context) error {
	from, err := dateParam(ctx, "from")
	if err != nil {
		return err
	}
	to, err := dateParam(ctx, "to")
	if err != nil {
		return err
	}

	recs, err := api.deps.Absences.ByGroup(ctx.Request().Context(), ctx.Param("group"), from, to)
	if err != nil {
		return errors.Wrap(err, "querying group absences")
	}
	if recs == nil {
		recs = []absence.RecordDetail{}
	}
	return respond(ctx, http.StatusOK, recs)
}

func (api *absenceAPI) retrieveRecord(ctx echo.Context) error {
	rec, err := api.deps.Absences.GetRecord(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding record")
	}
	return respond(ctx, http.StatusOK, rec)
}

func (api *absenceAPI) updateRecord(ctx echo.Context) error {
	var data absence.UpdateRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRecord")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	rec, err := api.deps.Absences.UpdateRecord(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating record")
	}
	return respond(ctx, http.StatusOK, rec)
}

func (api *absenceAPI) destroyRecord(ctx echo.Context) error {
	if err := api.deps.Absences.DeleteRecord(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting record")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *absenceAPI) validateRecord(ctx echo.Context) error {
	p, err := api.contextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}
	rec, err := api.deps.Absences.ValidateRecord(ctx.Request().Context(), ctx.Param("id"), p.ID)
	if err != nil {
		return errors.Wrap(err, "validating record")
	}
	return respond(ctx, http.StatusOK, rec)
}

func (api *absenceAPI) validateEntries(ctx echo.Context) error {
	var data ValidateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ValidateRequest")
	}
	if err := api.deps.Validate.Struct(data); err != nil {
		return err
	}

	p, err := api.contextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}
	entries, err := api.deps.Absences.ValidateEntries(ctx.Request().Context(), data.IDs, p.ID)
	if err != nil {
		return errors.Wrap(err, "validating absences")
	}
	return respond(ctx, http.StatusOK, entries)
}

func (api *absenceAPI) updateEntry(ctx echo.Context) error {
	var data absence.UpdateEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEntry")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	entry, err := api.deps.Absences.UpdateEntry(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating absence")
	}
	return respond(ctx, http.StatusOK, entry)
}

func (api *absenceAPI) justify(ctx echo.Context) error {
	var data absence.Justification
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Justification")
	}
	if err := api.deps.Validate.Struct(data); err != nil {
		return err
	}

	p, err := api.contextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}
	entry, err := api.deps.Absences.Justify(ctx.Request().Context(), ctx.Param("id"), data.Comment, p.ID)
	if err != nil {
		return errors.Wrap(err, "justifying absence")
	}
	return respond(ctx, http.StatusOK, entry)
}
