package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/auth"
	"github.com/trezcool/presence/core/trainee"
)

const importFileField = "file"

type traineeAPI struct {
	*Server
}

func registerTraineeAPI(s *Server, g *echo.Group) {
	api := traineeAPI{s}

	g.GET("", api.query, s.allow(everyone...))
	g.POST("", api.create, s.allow(staff...))
	g.GET("/with-stats", api.queryWithStats, s.allow(everyone...))
	g.POST("/import", api.importFile, s.allow(staff...))
	g.DELETE("/delete-all", api.destroyAll, s.allow(auth.KindAdmin))
	g.GET("/:cef", api.retrieve, s.allow(everyone...))
	g.PUT("/:cef", api.update, s.allow(staff...))
	g.DELETE("/:cef", api.destroy, s.allow(staff...))
	g.GET("/:cef/absences", api.absences, s.allow(everyone...))
}

func (api *traineeAPI) bindQuery(ctx echo.Context) ([]trainee.Trainee, core.Pagination, int, error) {
	filter := new(trainee.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return nil, core.Pagination{}, 0, errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	ordering, page, err := listParams(ctx)
	if err != nil {
		return nil, page, 0, err
	}

	trns, total, err := api.deps.Trainees.Query(ctx.Request().Context(), filter, ordering, page)
	if err != nil {
		return nil, page, 0, errors.Wrap(err, "querying trainees")
	}
	if trns == nil {
		trns = []trainee.Trainee{}
	}
	return trns, page, total, nil
}

// Handlers

func (api *traineeAPI) query(ctx echo.Context) error {
	trns, page, total, err := api.bindQuery(ctx)
	if err != nil {
		return err
	}
	return respondPage(ctx, trns, page, total)
}

func (api *traineeAPI) queryWithStats(ctx echo.Context) error {
	trns, page, total, err := api.bindQuery(ctx)
	if err != nil {
		return err
	}
	stats, err := api.deps.Absences.WithStats(ctx.Request().Context(), trns)
	if err != nil {
		return errors.Wrap(err, "computing trainee stats")
	}
	return respondPage(ctx, stats, page, total)
}

func (api *traineeAPI) create(ctx echo.Context) error {
	var data trainee.NewTrainee
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTrainee")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	trn, err := api.deps.Trainees.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating trainee")
	}
	return respond(ctx, http.StatusCreated, trn)
}

// importFile reads a csv or xlsx upload (form field "file") and imports its rows.
func (api *traineeAPI) importFile(ctx echo.Context) error {
	fh, err := ctx.FormFile(importFileField)
	if err != nil {
		return errNoFile
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer f.Close()

	rows, err := trainee.ParseFile(f, fh.Filename)
	if err != nil {
		return errors.Wrap(err, "parsing import file")
	}

	var opts trainee.ImportOptions
	if v := ctx.FormValue("updateExisting"); v != "" {
		if opts.UpdateExisting, err = strconv.ParseBool(v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "updateExisting must be a boolean")
		}
	}

	report, err := api.deps.Trainees.Import(ctx.Request().Context(), api.deps.Validate, rows, opts)
	if err != nil {
		return errors.Wrap(err, "importing trainees")
	}
	return respond(ctx, http.StatusOK, report)
}

func (api *traineeAPI) destroyAll(ctx echo.Context) error {
	n, err := api.deps.Trainees.DeleteAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "deleting all trainees")
	}
	return respondMessage(ctx, http.StatusOK, strconv.Itoa(n)+" trainee(s) deleted", map[string]int{"deleted": n})
}

func (api *traineeAPI) retrieve(ctx echo.Context) error {
	trn, err := api.deps.Trainees.GetByCEF(ctx.Request().Context(), ctx.Param("cef"))
	if err != nil {
		return errors.Wrap(err, "finding trainee by CEF")
	}
	return respond(ctx, http.StatusOK, trn)
}

func (api *traineeAPI) update(ctx echo.Context) error {
	var data trainee.UpdateTrainee
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTrainee")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	trn, err := api.deps.Trainees.Update(ctx.Request().Context(), ctx.Param("cef"), data)
	if err != nil {
		return errors.Wrap(err, "updating trainee")
	}
	return respond(ctx, http.StatusOK, trn)
}

func (api *traineeAPI) destroy(ctx echo.Context) error {
	if err := api.deps.Trainees.Delete(ctx.Request().Context(), ctx.Param("cef")); err != nil {
		return errors.Wrap(err, "deleting trainee")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *traineeAPI) absences(ctx echo.Context) error {
	abs, err := api.deps.Absences.ForTrainee(ctx.Request().Context(), ctx.Param("cef"))
	if err != nil {
		return errors.Wrap(err, "querying trainee absences")
	}
	return respond(ctx, http.StatusOK, abs)
}
