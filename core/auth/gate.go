package auth

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/teacher"
	"github.com/trezcool/presence/core/user"
)

// Kind is the kind of an authenticated principal.
type Kind string

const (
	KindAdmin   Kind = "admin"
	KindSG      Kind = "sg"
	KindTeacher Kind = "teacher"
)

var (
	// errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownPrincipal   = errors.New("unknown principal")
	ErrInactive           = errors.New("account deactivated")
	ErrForbidden          = errors.New("not authorized")
)

// Principal is the identity behind a bearer token: a user (admin or sg) or a teacher.
type Principal struct {
	ID                 string `json:"id"`
	Kind               Kind   `json:"role"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	IsActive           bool   `json:"isActive"`
	MustChangePassword bool   `json:"mustChangePassword"`
}

func (p Principal) Person() core.Person {
	return core.Person{ID: p.ID, Name: p.Name, Email: p.Email}
}

func fromUser(usr user.User) Principal {
	kind := KindSG
	if usr.IsAdmin() {
		kind = KindAdmin
	}
	return Principal{ID: usr.ID, Kind: kind, Name: usr.Name, Email: usr.Email, IsActive: usr.IsActive}
}

func fromTeacher(tchr teacher.Teacher) Principal {
	return Principal{
		ID:                 tchr.ID,
		Kind:               KindTeacher,
		Name:               tchr.Name,
		Email:              tchr.Email,
		IsActive:           tchr.IsActive,
		MustChangePassword: tchr.MustChangePassword,
	}
}

// Gate resolves credentials and token subjects to principals.
// User and teacher identifiers share one namespace: users are looked up first.
type Gate struct {
	users    *user.Service
	teachers *teacher.Service
}

func NewGate(users *user.Service, teachers *teacher.Service) *Gate {
	return &Gate{users: users, teachers: teachers}
}

// Authenticate checks an email and password against users, then teachers, and records the login.
// Inactive accounts authenticate; Authorize rejects them.
func (g *Gate) Authenticate(ctx context.Context, email, pwd string) (Principal, error) {
	usr, err := g.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if usr.CheckPassword(pwd) != nil {
			return Principal{}, ErrInvalidCredentials
		}
		if usr, err = g.users.SetLastLogin(ctx, usr); err != nil {
			return Principal{}, errors.Wrap(err, "setting user lastLogin")
		}
		return fromUser(usr), nil
	case !core.IsNotFound(err):
		return Principal{}, errors.Wrap(err, "finding user by email")
	}

	tchr, err := g.teachers.GetByEmail(ctx, email)
	if err != nil {
		if core.IsNotFound(err) {
			return Principal{}, ErrInvalidCredentials
		}
		return Principal{}, errors.Wrap(err, "finding teacher by email")
	}
	if tchr.CheckPassword(pwd) != nil {
		return Principal{}, ErrInvalidCredentials
	}
	if tchr, err = g.teachers.SetLastLogin(ctx, tchr); err != nil {
		return Principal{}, errors.Wrap(err, "setting teacher lastLogin")
	}
	return fromTeacher(tchr), nil
}

// Resolve finds the principal with ID id among users, then teachers.
func (g *Gate) Resolve(ctx context.Context, id string) (Principal, error) {
	usr, err := g.users.GetByID(ctx, id)
	if err == nil {
		return fromUser(usr), nil
	}
	if !core.IsNotFound(err) {
		return Principal{}, errors.Wrap(err, "finding user")
	}

	tchr, err := g.teachers.GetByID(ctx, id)
	if err == nil {
		return fromTeacher(tchr), nil
	}
	if core.IsNotFound(err) {
		return Principal{}, ErrUnknownPrincipal
	}
	return Principal{}, errors.Wrap(err, "finding teacher")
}

// ChangePassword changes the password of p after checking the current one.
// newPwd must satisfy the password policy.
func (g *Gate) ChangePassword(ctx context.Context, p Principal, oldPwd, newPwd string) (Principal, error) {
	if tag, ok := core.CheckPasswordPolicy(newPwd, p.Name, p.Email); !ok {
		return Principal{}, core.NewValidationError(nil, core.FieldError{Field: "newPassword", Error: core.PasswordPolicyText(tag)})
	}
	if oldPwd == newPwd {
		return Principal{}, core.NewValidationError(nil, core.FieldError{Field: "newPassword", Error: "new password must differ from the current one"})
	}

	if p.Kind == KindTeacher {
		tchr, err := g.teachers.ChangePassword(ctx, p.ID, oldPwd, newPwd)
		if err != nil {
			return Principal{}, err
		}
		return fromTeacher(tchr), nil
	}
	usr, err := g.users.ChangePassword(ctx, p.ID, oldPwd, newPwd)
	if err != nil {
		return Principal{}, err
	}
	return fromUser(usr), nil
}

// Authorize rejects inactive principals and principals whose kind is not in allowed.
// An empty allowed list accepts every active principal.
func Authorize(p Principal, allowed ...Kind) error {
	if !p.IsActive {
		return ErrInactive
	}
	if len(allowed) == 0 {
		return nil
	}
	for _, k := range allowed {
		if p.Kind == k {
			return nil
		}
	}
	return ErrForbidden
}
