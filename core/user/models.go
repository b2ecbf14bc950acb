package user

import (
	"time"

	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/genzugar/backend/core"
)

// Genders
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

const dateLayout = "2006-01-02"

// User is an account together with its health profile.
// HeightCm and WeightKg hold the latest measurement; the full series lives in the BMI history.
type User struct {
	ID           string       `json:"id" db:"id"`
	FullName     string       `json:"full_name" db:"full_name"`
	Email        string       `json:"email" db:"email"`
	DateOfBirth  null.Time    `json:"date_of_birth" db:"date_of_birth"`
	Gender       null.String  `json:"gender" db:"gender"`
	HeightCm     null.Float64 `json:"height_cm" db:"height_cm"`
	WeightKg     null.Float64 `json:"weight_kg" db:"weight_kg"`
	IsAdmin      bool         `json:"is_admin" db:"is_admin"`
	IsActive     bool         `json:"is_active" db:"is_active"`
	PasswordHash []byte       `json:"-" db:"password_hash"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"` // UTC
	LastLogin    null.Time    `json:"last_login" db:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// NewUser contains information needed to sign up.
type NewUser struct {
	FullName        string `json:"full_name" validate:"required,notblank,max=150"`
	Email           string `json:"email" validate:"required,email"`
	DateOfBirth     string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender          string `json:"gender" validate:"omitempty,gender"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	IsAdmin         bool   `json:"-"`
}

func (nu *NewUser) Validate(svc Service) error {
	nu.FullName = core.CleanString(nu.FullName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Gender = core.CleanString(nu.Gender, true /* lower */)

	if err := core.Validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(nu.Email)
}

// UpdateProfile defines what a user may change on their own profile. Nil fields are left untouched.
type UpdateProfile struct {
	FullName    *string  `json:"full_name" validate:"omitempty,notblank,max=150"`
	DateOfBirth *string  `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender      *string  `json:"gender" validate:"omitempty,gender"`
	HeightCm    *float64 `json:"height_cm" validate:"omitempty,gt=0,lte=300"`
	WeightKg    *float64 `json:"weight_kg" validate:"omitempty,gt=0,lte=500"`
}

func (up *UpdateProfile) Validate() error {
	if up.FullName != nil {
		name := core.CleanString(*up.FullName)
		up.FullName = &name
	}
	if up.Gender != nil {
		g := core.CleanString(*up.Gender, true /* lower */)
		up.Gender = &g
	}
	return core.Validate.Struct(up)
}

func (up UpdateProfile) apply(usr *User) {
	if up.FullName != nil {
		usr.FullName = *up.FullName
	}
	if up.DateOfBirth != nil {
		usr.DateOfBirth = parseDate(*up.DateOfBirth)
	}
	if up.Gender != nil {
		usr.Gender = null.NewString(*up.Gender, *up.Gender != "")
	}
	if up.HeightCm != nil {
		usr.HeightCm = null.Float64From(*up.HeightCm)
	}
	if up.WeightKg != nil {
		usr.WeightKg = null.Float64From(*up.WeightKg)
	}
}

// AdminUpdateUser is what an admin may change on any account.
type AdminUpdateUser struct {
	IsAdmin  *bool `json:"is_admin"`
	IsActive *bool `json:"is_active"`
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate() error { return core.Validate.Struct(rp) }

type QueryFilter struct {
	Search   string `query:"search"`
	IsAdmin  *bool  `query:"is_admin"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.IsAdmin == nil && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

func parseDate(s string) null.Time {
	if s == "" {
		return null.Time{}
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return null.Time{}
	}
	return null.TimeFrom(t)
}
