package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/presence/core/auth"
	"github.com/trezcool/presence/core/schedule"
)

type scheduleAPI struct {
	*Server
}

func registerScheduleAPI(s *Server, g *echo.Group) {
	api := scheduleAPI{s}

	g.GET("", api.query, s.allow(everyone...))
	g.POST("", api.create, s.allow(auth.KindAdmin))
	g.GET("/slots", api.slots, s.allow(everyone...))
	g.POST("/check-conflicts", api.checkConflicts, s.allow(auth.KindAdmin))
	g.GET("/teacher/:teacherId", api.forTeacher, s.allow(everyone...))
	g.GET("/:id", api.retrieve, s.allow(everyone...))
	g.PUT("/:id", api.update, s.allow(auth.KindAdmin))
	g.DELETE("/:id", api.destroy, s.allow(auth.KindAdmin))
	g.POST("/:id/deactivate", api.deactivate, s.allow(auth.KindAdmin))
}

// Handlers

func (api *scheduleAPI) query(ctx echo.Context) error {
	filter := new(schedule.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	ordering, page, err := listParams(ctx)
	if err != nil {
		return err
	}

	schs, total, err := api.deps.Schedules.Query(ctx.Request().Context(), filter, ordering, page)
	if err != nil {
		return errors.Wrap(err, "querying schedules")
	}
	if schs == nil {
		schs = []schedule.Schedule{}
	}
	return respondPage(ctx, schs, page, total)
}

func (api *scheduleAPI) create(ctx echo.Context) error {
	var data schedule.NewSchedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchedule")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	sch, err := api.deps.Schedules.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating schedule")
	}
	return respond(ctx, http.StatusCreated, sch)
}

// slots lists the accepted days, time slots and session types.
func (api *scheduleAPI) slots(ctx echo.Context) error {
	return respond(ctx, http.StatusOK, map[string][]string{
		"days":      schedule.Days,
		"timeSlots": schedule.TimeSlots,
		"types":     schedule.SessionTypes,
	})
}

func (api *scheduleAPI) checkConflicts(ctx echo.Context) error {
	var data schedule.CheckRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CheckRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	res, err := api.deps.Schedules.CheckConflicts(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "checking conflicts")
	}
	return respond(ctx, http.StatusOK, res)
}

func (api *scheduleAPI) forTeacher(ctx echo.Context) error {
	schs, err := api.deps.Schedules.ForTeacher(ctx.Request().Context(), ctx.Param("teacherId"))
	if err != nil {
		return errors.Wrap(err, "querying teacher schedules")
	}
	if schs == nil {
		schs = []schedule.Schedule{}
	}
	return respond(ctx, http.StatusOK, schs)
}

func (api *scheduleAPI) retrieve(ctx echo.Context) error {
	sch, err := api.deps.Schedules.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding schedule by ID")
	}
	return respond(ctx, http.StatusOK, sch)
}

func (api *scheduleAPI) update(ctx echo.Context) error {
	var data schedule.UpdateSchedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSchedule")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	sch, err := api.deps.Schedules.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating schedule")
	}
	return respond(ctx, http.StatusOK, sch)
}

func (api *scheduleAPI) destroy(ctx echo.Context) error {
	if err := api.deps.Schedules.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting schedule")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *scheduleAPI) deactivate(ctx echo.Context) error {
	sch, err := api.deps.Schedules.Deactivate(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "deactivating schedule")
	}
	return respond(ctx, http.StatusOK, sch)
}
