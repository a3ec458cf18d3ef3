package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/absence"
	"github.com/trezcool/presence/core/auth"
	"github.com/trezcool/presence/core/group"
	"github.com/trezcool/presence/core/trainee"
)

type groupAPI struct {
	*Server
}

// :group is a group ID or name.
func registerGroupAPI(s *Server, g *echo.Group) {
	api := groupAPI{s}

	g.GET("", api.query, s.allow(everyone...))
	g.POST("", api.create, s.allow(auth.KindAdmin))
	g.GET("/:group", api.retrieve, s.allow(everyone...))
	g.PUT("/:group", api.update, s.allow(auth.KindAdmin))
	g.DELETE("/:group", api.destroy, s.allow(auth.KindAdmin))
	g.GET("/:group/absences", api.absences, s.allow(everyone...))
	g.GET("/:group/weekly-report", api.weeklyReport, s.allow(everyone...))
	g.GET("/:group/trainees", api.trainees, s.allow(everyone...))
}

func (api *groupAPI) contextGroup(ctx echo.Context) (group.Group, error) {
	grp, err := api.deps.Groups.Resolve(ctx.Request().Context(), ctx.Param("group"))
	return grp, errors.Wrap(err, "resolving group")
}

// dateParam parses the YYYY-MM-DD query param name. A missing param yields the zero time.
func dateParam(ctx echo.Context, name string) (time.Time, error) {
	t, err := absence.ParseDate(core.CleanString(ctx.QueryParam(name)))
	if err != nil {
		return time.Time{}, core.NewValidationError(nil, core.FieldError{Field: name, Error: "date must be formatted as YYYY-MM-DD"})
	}
	return t, nil
}

// Handlers

func (api *groupAPI) query(ctx echo.Context) error {
	filter := new(group.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	ordering, page, err := listParams(ctx)
	if err != nil {
		return err
	}

	grps, total, err := api.deps.Groups.Query(ctx.Request().Context(), filter, ordering, page)
	if err != nil {
		return errors.Wrap(err, "querying groups")
	}
	if grps == nil {
		grps = []group.Group{}
	}
	return respondPage(ctx, grps, page, total)
}

func (api *groupAPI) create(ctx echo.Context) error {
	var data group.NewGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroup")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	grp, err := api.deps.Groups.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating group")
	}
	return respond(ctx, http.StatusCreated, grp)
}

func (api *groupAPI) retrieve(ctx echo.Context) error {
	grp, err := api.contextGroup(ctx)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, grp)
}

func (api *groupAPI) update(ctx echo.Context) error {
	grp, err := api.contextGroup(ctx)
	if err != nil {
		return err
	}

	var data group.UpdateGroup
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGroup")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	if grp, err = api.deps.Groups.Update(ctx.Request().Context(), grp.ID, data); err != nil {
		return errors.Wrap(err, "updating group")
	}
	return respond(ctx, http.StatusOK, grp)
}

func (api *groupAPI) destroy(ctx echo.Context) error {
	grp, err := api.contextGroup(ctx)
	if err != nil {
		return err
	}
	if err = api.deps.Groups.Delete(ctx.Request().Context(), grp.ID); err != nil {
		return errors.Wrap(err, "deleting group")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// absences lists the group's records, optionally between ?from= and ?to= (inclusive).
func (api *groupAPI) absences(ctx echo.Context) error {
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

// weeklyReport reports the week containing ?week= (defaults to the current week).
func (api *groupAPI) weeklyReport(ctx echo.Context) error {
	week, err := dateParam(ctx, "week")
	if err != nil {
		return err
	}
	if week.IsZero() {
		week = time.Now().UTC()
	}

	report, err := api.deps.Absences.WeeklyReport(ctx.Request().Context(), ctx.Param("group"), week)
	if err != nil {
		return errors.Wrap(err, "building weekly report")
	}
	return respond(ctx, http.StatusOK, report)
}

func (api *groupAPI) trainees(ctx echo.Context) error {
	grp, err := api.contextGroup(ctx)
	if err != nil {
		return err
	}
	trns, err := api.deps.Trainees.ByGroup(ctx.Request().Context(), grp)
	if err != nil {
		return errors.Wrap(err, "querying group trainees")
	}
	if trns == nil {
		trns = []trainee.Trainee{}
	}
	return respond(ctx, http.StatusOK, trns)
}
