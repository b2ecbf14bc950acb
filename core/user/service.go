package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/genzugar/backend/core"
)

var (
	// errors
	ErrNotFound    = core.NewNotFoundError("user")
	ErrEmailExists = errors.New("a user with this email already exists")
)

type (
	Repository interface {
		// EmailExists reports whether any user other than excludedIDs owns email.
		EmailExists(ctx context.Context, email string, excludedIDs ...string) (bool, error)
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.FullName or User.Email.
		// Users are ordered by created_at desc unless ordering says otherwise.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// UpdateUser saves every mutable field of usr.
		UpdateUser(ctx context.Context, usr User) (User, error)
		// UpdateMeasurements overwrites the current height and weight of a user.
		UpdateMeasurements(ctx context.Context, id string, heightCm, weightKg float64) error
		CountUsers(ctx context.Context) (int, error)
	}

	Service interface {
		CheckEmailUniqueness(email string, exclUsers ...User) error
		Create(ctx context.Context, nu NewUser) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		UpdateProfile(ctx context.Context, usr User, up UpdateProfile) (User, error)
		AdminUpdate(ctx context.Context, usr User, au AdminUpdateUser) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		SetPassword(ctx context.Context, usr User, pwd string) (User, error)
		UpdateMeasurements(ctx context.Context, id string, heightCm, weightKg float64) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetUserPassword) error
		Count(ctx context.Context) (int, error)
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		logger  core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger) Service {
	core.MustHaveDeps(
		core.NotNil(repo, "repo"),
		core.NotNil(mailSvc, "mailSvc"),
		core.NotNil(logger, "logger"),
	)

	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

func (svc *service) CheckEmailUniqueness(email string, exclUsers ...User) error {
	ids := make([]string, 0, len(exclUsers))
	for _, u := range exclUsers {
		ids = append(ids, u.ID)
	}
	exists, err := svc.repo.EmailExists(context.Background(), email, ids...)
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		FullName:    nu.FullName,
		Email:       nu.Email,
		DateOfBirth: parseDate(nu.DateOfBirth),
		Gender:      null.NewString(nu.Gender, nu.Gender != ""),
		IsAdmin:     nu.IsAdmin,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}
	svc.sendWelcomeMail(usr)
	return usr, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) UpdateProfile(ctx context.Context, usr User, up UpdateProfile) (User, error) {
	up.apply(&usr)
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) AdminUpdate(ctx context.Context, usr User, au AdminUpdateUser) (User, error) {
	if au.IsAdmin != nil {
		usr.IsAdmin = *au.IsAdmin
	}
	if au.IsActive != nil {
		usr.IsActive = *au.IsActive
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = null.TimeFrom(time.Now().UTC())
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) UpdateMeasurements(ctx context.Context, id string, heightCm, weightKg float64) error {
	return svc.repo.UpdateMeasurements(ctx, id, heightCm, weightKg)
}

func (svc *service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountUsers(ctx)
}

// RequestPasswordReset mails a reset link to the owner of email, if it belongs to an active account.
func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		svc.logger.Warn("password reset requested for a deactivated account", usr)
		return ErrNotFound
	}
	svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	invalidErr := core.NewValidationError(errors.New("invalid reset link"))

	id, err := decodeUID(data.UID)
	if err != nil {
		return invalidErr
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return invalidErr
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err := verifyToken(usr, data.Token); err != nil {
		if err == errTokenExpired {
			return core.NewValidationError(errors.New("reset link has expired"))
		}
		return invalidErr
	}
	if tag := passwordPolicyViolation(data.Password, usr.FullName, usr.Email); tag == pwdAttrSimTag {
		return CheckPasswordPolicy(data.Password, usr.FullName, usr.Email)
	}

	if _, err := svc.SetPassword(ctx, usr, data.Password); err != nil {
		return errors.Wrap(err, "saving new password")
	}
	return nil
}

func (svc *service) sendWelcomeMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName, Address: usr.Email}},
		Subject:      "Selamat datang di Gen-Zugar",
		TemplateName: "welcome",
		TemplateData: map[string]string{"Name": usr.FullName},
	})
}

func (svc *service) sendPasswordResetMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName, Address: usr.Email}},
		Subject:      "Atur ulang password",
		TemplateName: "password_reset",
		TemplateData: map[string]string{
			"Name":  usr.FullName,
			"UID":   EncodeUID(usr),
			"Token": makeToken(usr),
		},
	})
}
