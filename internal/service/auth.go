package service

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/and161185/libdesk/internal/errs"
	"github.com/and161185/libdesk/internal/model"
	"github.com/and161185/libdesk/internal/repository"
	"github.com/and161185/libdesk/internal/session"
	"github.com/and161185/libdesk/internal/ui"
	"go.uber.org/zap"
)

// DefaultRegisterRedirect is the pause between a successful sign-up and the login view.
const DefaultRegisterRedirect = 2 * time.Second

// AuthService defines login, sign-up and logout.
type AuthService interface {
	// Login validates credentials locally, exchanges them for a session and
	// persists it. The returned navigation routes by role.
	Login(ctx context.Context, username, password string) (LoginResult, error)
	// Register validates the sign-up form and creates the account.
	Register(ctx context.Context, f RegistrationForm) (ui.Navigation, error)
	// Logout clears the stored session.
	Logout(ctx context.Context) (ui.Navigation, error)
}

// LoginResult is a persisted session plus where to go next.
type LoginResult struct {
	Session model.Session
	Next    ui.Navigation
}

// RegistrationForm is the sign-up form as typed by the user.
type RegistrationForm struct {
	FirstName       string
	LastName        string
	Phone           string
	Address         string
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

var (
	loginMessages = messages{
		overrides: map[int]string{http.StatusUnauthorized: MsgInvalidCredentials},
		server:    MsgServerError,
		fallback:  MsgLoginFailed,
		bare:      true,
	}
	registerMessages = messages{
		overrides: map[int]string{
			http.StatusConflict:   MsgDuplicate,
			http.StatusBadRequest: MsgCheckInput,
		},
		server:   MsgServerError,
		fallback: MsgRegisterFailed,
	}

	emailRE = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

type AuthServiceImpl struct {
	repo           repository.AuthRepository
	store          session.Store
	notify         ui.Notifier
	flash          *ui.Flash
	redirect       time.Duration
	clearOnExpired bool
	log            *zap.Logger
}

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthOptions tunes AuthServiceImpl.
type AuthOptions struct {
	// RegisterRedirect delays the post-sign-up navigation; zero means DefaultRegisterRedirect.
	RegisterRedirect time.Duration
	// ClearOnUnauthorized makes HandleUnauthorized drop the stored session.
	ClearOnUnauthorized bool
	Logger              *zap.Logger
}

// NewAuthService constructs AuthService. flash receives the one-time message
// for the login view after a successful sign-up.
func NewAuthService(repo repository.AuthRepository, store session.Store, n ui.Notifier, flash *ui.Flash, opt AuthOptions) *AuthServiceImpl {
	if opt.RegisterRedirect <= 0 {
		opt.RegisterRedirect = DefaultRegisterRedirect
	}
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	if flash == nil {
		flash = &ui.Flash{}
	}
	return &AuthServiceImpl{
		repo:           repo,
		store:          store,
		notify:         notifierOr(n),
		flash:          flash,
		redirect:       opt.RegisterRedirect,
		clearOnExpired: opt.ClearOnUnauthorized,
		log:            opt.Logger,
	}
}

func validateLogin(username, password string) (field, msg string) {
	u := strings.TrimSpace(username)
	switch {
	case u == "":
		return "username", MsgUsernameRequired
	case utf8.RuneCountInString(u) < 3:
		return "username", MsgUsernameShort
	case password == "":
		return "password", MsgPasswordRequired
	case utf8.RuneCountInString(password) < 6:
		return "password", MsgPasswordShort
	}
	return "", ""
}

// Login implements AuthService.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if field, msg := validateLogin(username, password); msg != "" {
		return LoginResult{}, reject(s.notify, field, msg)
	}

	sess, err := s.repo.Login(ctx, strings.TrimSpace(username), password)
	if err != nil {
		return LoginResult{}, fail(s.notify, loginMessages, err)
	}
	if err := s.store.Set(ctx, sess); err != nil {
		s.log.Warn("persist session", zap.Error(err))
		return LoginResult{}, fail(s.notify, loginMessages, err)
	}
	success(s.notify, MsgLoginSuccess)
	return LoginResult{Session: sess, Next: ui.Navigation{To: RouteForRoles(sess.Roles())}}, nil
}

// RouteForRoles picks the landing route: USER first, then ADMIN, else home.
func RouteForRoles(roles []string) ui.Route {
	p := model.Profile{Roles: roles}
	switch {
	case p.HasRole(model.RoleUser):
		return ui.RouteDashboard
	case p.HasRole(model.RoleAdmin):
		return ui.RouteAdmin
	}
	return ui.RouteHome
}

// DigitsOnly strips every non-digit rune.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func validateRegistration(f RegistrationForm) (field, msg string) {
	username := strings.TrimSpace(f.Username)
	email := strings.TrimSpace(f.Email)
	switch {
	case strings.TrimSpace(f.FirstName) == "":
		return "firstName", MsgFirstName
	case strings.TrimSpace(f.LastName) == "":
		return "lastName", MsgLastName
	case strings.TrimSpace(f.Phone) == "":
		return "phone", MsgPhoneRequired
	case len(DigitsOnly(f.Phone)) != 10:
		return "phone", MsgPhoneDigits
	case strings.TrimSpace(f.Address) == "":
		return "address", MsgAddress
	case username == "":
		return "username", MsgUsernameRequired
	case utf8.RuneCountInString(username) < 3:
		return "username", MsgUsernameShort
	case email == "":
		return "email", MsgEmailRequired
	case !emailRE.MatchString(email):
		return "email", MsgEmailInvalid
	case f.Password == "":
		return "password", MsgPasswordRequired
	case utf8.RuneCountInString(f.Password) < 8:
		return "password", MsgRegPasswordShort
	case f.ConfirmPassword != f.Password:
		return "confirmPassword", MsgPasswordMismatch
	}
	return "", ""
}

// Register implements AuthService. Only success=true with HTTP 201 counts.
func (s *AuthServiceImpl) Register(ctx context.Context, f RegistrationForm) (ui.Navigation, error) {
	if field, msg := validateRegistration(f); msg != "" {
		return ui.Navigation{}, reject(s.notify, field, msg)
	}

	status, err := s.repo.Register(ctx, repository.Registration{
		FirstName: strings.TrimSpace(f.FirstName),
		LastName:  strings.TrimSpace(f.LastName),
		Phone:     DigitsOnly(f.Phone),
		Address:   strings.TrimSpace(f.Address),
		Username:  strings.TrimSpace(f.Username),
		Email:     strings.TrimSpace(f.Email),
		Password:  f.Password,
	})
	if err != nil {
		return ui.Navigation{}, fail(s.notify, registerMessages, err)
	}
	if status != http.StatusCreated {
		return ui.Navigation{}, fail(s.notify, registerMessages, &errs.APIError{Status: status, Application: true})
	}

	success(s.notify, MsgRegisterSuccess)
	s.flash.Put(MsgRegisteredFlash)
	return ui.Navigation{To: ui.RouteLogin, After: s.redirect, Flash: MsgRegisteredFlash}, nil
}

// Logout implements AuthService.
func (s *AuthServiceImpl) Logout(ctx context.Context) (ui.Navigation, error) {
	if err := s.store.Clear(ctx); err != nil {
		return ui.Navigation{}, err
	}
	return ui.Navigation{To: ui.RouteLogin}, nil
}

// HandleUnauthorized is the transport hook for 401s on authenticated calls.
// It only clears the session when configured to.
func (s *AuthServiceImpl) HandleUnauthorized(ctx context.Context) {
	if !s.clearOnExpired {
		return
	}
	if err := s.store.Clear(context.WithoutCancel(ctx)); err != nil {
		s.log.Warn("clear session after 401", zap.Error(err))
		return
	}
	s.log.Info("session cleared after 401")
}

// Flash exposes the one-time message queue for the login view.
func (s *AuthServiceImpl) Flash() *ui.Flash { return s.flash }
