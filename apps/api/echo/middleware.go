package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/presence/core/auth"
)

// allow rejects requests whose principal is inactive or not one of kinds. No kinds allows every active principal.
// Must run after the JWT middleware.
func (s *Server) allow(kinds ...auth.Kind) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := s.contextPrincipal(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context principal")
			}
			if err = auth.Authorize(p, kinds...); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}

var (
	staff    = []auth.Kind{auth.KindAdmin, auth.KindSG}
	everyone = []auth.Kind{auth.KindAdmin, auth.KindSG, auth.KindTeacher}
)
