package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")

	// ErrExternalUser is returned when a password operation is attempted on an
	// externally managed identity.
	ErrExternalUser = errors.New("account is not password-managed")

	// ErrMailNotSent signals that the account operation itself succeeded but the
	// notification mail could not be dispatched.
	ErrMailNotSent = errors.New("mail could not be sent")
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		CountUsers(ctx context.Context) (int, error)
		GetUserByID(ctx context.Context, id int) (User, error)
		GetUserByUsername(ctx context.Context, username string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		GetUserByUsernameOrEmail(ctx context.Context, username string) (User, error)
		// FilterUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name, User.Username or User.Email.
		FilterUsers(ctx context.Context, filter QueryFilter) ([]User, error)
		UpdateUser(ctx context.Context, usr User, isActive *bool) (User, error)
		// ClearPasswordHashes drops the stored password hashes of the given users.
		ClearPasswordHashes(ctx context.Context, ids ...int) error
		DeleteUsersByID(ctx context.Context, ids ...int) error
	}

	Service interface {
		Create(ctx context.Context, nu NewUser) (User, error)
		Register(ctx context.Context, ru RegisterUser) (User, error)
		QueryAll(ctx context.Context) ([]User, error)
		Filter(ctx context.Context, filter QueryFilter) ([]User, error)
		GetByID(ctx context.Context, id int) (User, error)
		GetByUsername(ctx context.Context, uname string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		GetByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		Update(ctx context.Context, id int, uu UpdateUser) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		Delete(ctx context.Context, ids ...int) error
		HasNoUser(ctx context.Context) (bool, error)
		CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error
		RequestPasswordReset(ctx context.Context, uname string) error
		ResetPassword(ctx context.Context, rp ResetUserPassword) error
		ClearPersonalPasswords(ctx context.Context, ids ...int) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
		logger  core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config, logger core.Logger) Service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
		logger:  logger,
	}
}

func (svc *service) CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, email, exclUsers...); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		IsActive:  true,
		Roles:     nu.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(ctx, usr)
}

// Register creates a self-registered student account and sends the welcome mail.
// When the account was created but the mail could not be dispatched, the created
// User is returned along with ErrMailNotSent: registration partially succeeded.
func (svc *service) Register(ctx context.Context, ru RegisterUser) (User, error) {
	usr, err := svc.Create(ctx, NewUser{
		Name:     ru.Name,
		Email:    ru.Email,
		Password: ru.Password,
		Roles:    []string{RoleStudent},
	})
	if err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}

	if err := svc.sendWelcomeMail(usr); err != nil {
		svc.logger.Error(fmt.Sprintf("sending welcome mail: %v", err), err, usr)
		return usr, ErrMailNotSent
	}
	return usr, nil
}

func (svc *service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryAllUsers(ctx)
}

func (svc *service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsername(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *service) Filter(ctx context.Context, filter QueryFilter) ([]User, error) {
	return svc.repo.FilterUsers(ctx, filter)
}

func (svc *service) Update(ctx context.Context, id int, uu UpdateUser) (User, error) {
	usr := User{
		ID:        id,
		Name:      uu.Name,
		Username:  uu.Username,
		Email:     uu.Email,
		Roles:     uu.Roles,
		UpdatedAt: time.Now().UTC(),
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, err
		}
	}
	return svc.repo.UpdateUser(ctx, usr, uu.IsActive)
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	usr.UpdatedAt = usr.LastLogin
	return svc.repo.UpdateUser(ctx, usr, nil)
}

func (svc *service) Delete(ctx context.Context, ids ...int) error {
	return svc.repo.DeleteUsersByID(ctx, ids...)
}

// HasNoUser reports whether no account exists yet; drives the first-run setup.
func (svc *service) HasNoUser(ctx context.Context) (bool, error) {
	n, err := svc.repo.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// RequestPasswordReset mails a password reset link to the account's email.
// Distinguishable failures: ErrNotFound (unknown login name), ErrExternalUser
// (externally managed identity) and ErrMailNotSent (dispatch failure).
func (svc *service) RequestPasswordReset(ctx context.Context, uname string) error {
	usr, err := svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
	if err != nil {
		return err
	}
	if usr.IsExternal {
		return ErrExternalUser
	}
	if err := svc.sendPasswordResetMail(usr); err != nil {
		svc.logger.Error(fmt.Sprintf("sending password reset mail: %v", err), err, usr)
		return ErrMailNotSent
	}
	return nil
}

func (svc *service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	id, err := decodeUID(rp.UID)
	if err != nil {
		return core.NewValidationError(errInvalidToken)
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return core.NewValidationError(errInvalidToken)
	}
	if usr.IsExternal {
		return ErrExternalUser
	}
	if err := verifyToken(svc.conf, usr, rp.Token); err != nil {
		return core.NewValidationError(err)
	}
	if err := usr.SetPassword(rp.Password); err != nil {
		return err
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr, nil)
	return err
}

// ClearPersonalPasswords drops the stored personal passwords of the given users,
// forcing them through the reset flow on next login.
func (svc *service) ClearPersonalPasswords(ctx context.Context, ids ...int) error {
	return svc.repo.ClearPasswordHashes(ctx, ids...)
}

func (svc *service) sendPasswordResetMail(usr User) error {
	token, err := MakeToken(svc.conf, usr)
	if err != nil {
		return errors.Wrap(err, "making token")
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password-reset",
		TemplateData: struct {
			Username string
			UID      string
			Token    string
		}{usr.Username, EncodeUID(usr), token},
	}
	if err := msg.Render(svc.conf); err != nil {
		return errors.Wrap(err, "rendering mail")
	}
	if !msg.HasContent() {
		msg.BodyStr = fmt.Sprintf(
			"Use the link below to reset your password.\n\n%s/password-reset/%s/%s",
			svc.conf.FrontendBaseURL, EncodeUID(usr), token,
		)
		msg.TextContent = msg.BodyStr
	}
	return svc.mailSvc.SendMessage(msg)
}

func (svc *service) sendWelcomeMail(usr User) error {
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Welcome",
		TemplateName: "welcome",
		TemplateData: struct{ Name string }{usr.Name},
	}
	if err := msg.Render(svc.conf); err != nil {
		return errors.Wrap(err, "rendering mail")
	}
	if !msg.HasContent() {
		msg.BodyStr = fmt.Sprintf("Welcome to %s, %s!", svc.conf.AppName, usr.Name)
		msg.TextContent = msg.BodyStr
	}
	return svc.mailSvc.SendMessage(msg)
}
