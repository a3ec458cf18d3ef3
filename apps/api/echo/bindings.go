package echoapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/presence/core"
)

const (
	orderingParam = "ordering"
	pageParam     = "page"
	limitParam    = "limit"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `?ordering=-name,createdAt`: a leading "-" sorts descending.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field != "" {
			ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
		}
	}
}

// bindPagination reads `?page=&limit=`. limit defaults to core.DefaultPageSize; limit=0 returns everything.
func bindPagination(ctx echo.Context) (core.Pagination, error) {
	page := core.Pagination{Page: 1, Limit: core.DefaultPageSize}
	var err error
	if v := ctx.QueryParam(pageParam); v != "" {
		if page.Page, err = strconv.Atoi(v); err != nil {
			return page, echo.NewHTTPError(http.StatusBadRequest, "page must be an integer")
		}
	}
	if v := ctx.QueryParam(limitParam); v != "" {
		if page.Limit, err = strconv.Atoi(v); err != nil {
			return page, echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
	}
	page.Clean()
	return page, nil
}

// listParams binds the ordering and the pagination of a list endpoint.
func listParams(ctx echo.Context) ([]core.DBOrdering, core.Pagination, error) {
	ordering := new(Ordering)
	ordering.Bind(ctx)
	page, err := bindPagination(ctx)
	return ordering.Orderings, page, err
}
