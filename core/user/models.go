package user

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/presence/core"
)

// Roles
const (
	RoleAdmin = "admin"
	RoleSG    = "sg" // group supervisor
)

var (
	AllRoles = []string{RoleAdmin, RoleSG}

	Roles = []Role{
		{Name: "Administrator", Value: RoleAdmin},
		{Name: "Group supervisor", Value: RoleSG},
	}
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"isActive"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"` // UTC
	UpdatedAt    time.Time `json:"updatedAt"` // UTC
	LastLogin    time.Time `json:"lastLogin"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := core.HashPassword(pwd)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return core.CheckPassword(u.PasswordHash, pwd)
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
func (u *User) IsSG() bool    { return u.Role == RoleSG }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"required,userrole"`
	Password string `json:"password" validate:"required"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	return validate.Struct(nu)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name     string `json:"name"`
	Email    string `json:"email" validate:"omitempty,email"`
	Role     string `json:"role" validate:"omitempty,userrole"`
	IsActive *bool  `json:"isActive"`
	Password string `json:"password"`
}

// Validate cleans uu, fills blanks from origUsr and validates the result.
func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}
	if role := core.CleanString(uu.Role, true /* lower */); role != "" {
		uu.Role = role
	} else {
		uu.Role = origUsr.Role
	}
	return validate.Struct(uu)
}

type GetFilter struct {
	ID    string
	Email string
}

type QueryFilter struct {
	Search   string `query:"search"`
	Role     string `query:"role"`
	IsActive *bool  `query:"isActive"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
}

// OrderingFields maps API ordering fields to storage fields.
var OrderingFields = map[string]string{
	"name":      "name",
	"email":     "email",
	"role":      "role",
	"isActive":  "is_active",
	"createdAt": "created_at",
	"lastLogin": "last_login",
}
