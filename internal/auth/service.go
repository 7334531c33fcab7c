package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	ifsmail "github.com/JasonKing5/ifs/internal/mail"
)

const (
	maxEmailLen    = 100
	minPasswordLen = 6
	maxPasswordLen = 20
	maxNameLen     = 20
)

// Service implements registration, login, token refresh and password reset.
type Service struct {
	users  UserStore
	tokens *TokenSigner
	mailer ifsmail.Sender
	tracer trace.Tracer
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithMailer sets the sender used by SendResetEmail.
func WithMailer(m ifsmail.Sender) ServiceOption {
	return func(s *Service) { s.mailer = m }
}

// NewService constructs Service with optional configuration.
func NewService(users UserStore, tokens *TokenSigner, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, errors.New("auth: user store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token signer is required")
	}
	svc := &Service{
		users:  users,
		tokens: tokens,
		tracer: otel.Tracer("github.com/JasonKing5/ifs/internal/auth"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Registration is the outcome of a successful Register.
type Registration struct {
	User  PublicUser
	Roles []Role
}

// Session is an authenticated user together with a fresh token pair.
type Session struct {
	User             PublicUser
	Roles            []Role
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Register validates input, creates the user and grants DefaultRole.
// Nothing is persisted when validation fails.
func (s *Service) Register(ctx context.Context, email, password, name string) (_ Registration, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.Register")
	defer func() { endSpan(span, err) }()

	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if err := validateRegistration(email, password, name); err != nil {
		return Registration{}, err
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return Registration{}, fmt.Errorf("%w: email already exists", ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return Registration{}, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return Registration{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.users.Create(ctx, User{Email: email, Name: name, PasswordHash: hash})
	if err != nil {
		return Registration{}, err
	}
	span.SetAttributes(attribute.String("user.id", user.ID))

	if err := s.users.AssignRoles(ctx, user.ID, []string{DefaultRole}); err != nil {
		return Registration{}, fmt.Errorf("assign default role: %w", err)
	}
	roles, err := s.users.Roles(ctx, user.ID)
	if err != nil {
		return Registration{}, err
	}
	return Registration{User: ToPublicUser(user), Roles: roles}, nil
}

// Login checks credentials and issues a token pair. Unknown email and wrong
// password both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (_ Session, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.Login")
	defer func() { endSpan(span, err) }()

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(password) < minPasswordLen {
		return Session{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}

	user, err := s.users.FindByEmailWithPasswordHash(ctx, email)
	if errors.Is(err, ErrNotFound) {
		burnPasswordCheck(password)
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.issueSession(ctx, user)
}

// Refresh exchanges a valid refresh token for a new pair. Roles are read
// again from the store, so permission changes apply on the next refresh.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (_ Session, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.Refresh")
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(refreshToken) == "" {
		return Session{}, fmt.Errorf("%w: no refresh token found", ErrInvalidInput)
	}
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return Session{}, ErrInvalidToken
	}
	user, err := s.users.FindByID(ctx, claims.Subject)
	if errors.Is(err, ErrNotFound) {
		return Session{}, ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

// SendResetEmail mails a reset token to a registered address.
func (s *Service) SendResetEmail(ctx context.Context, email string) (_ ifsmail.Confirmation, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.SendResetEmail")
	defer func() { endSpan(span, err) }()

	email = normalizeEmail(email)
	if email == "" {
		return ifsmail.Confirmation{}, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return ifsmail.Confirmation{}, fmt.Errorf("%w: user not found", ErrUnauthorized)
	}
	if err != nil {
		return ifsmail.Confirmation{}, err
	}
	if s.mailer == nil {
		return ifsmail.Confirmation{}, errors.New("auth: mail sender is not configured")
	}
	roles, err := s.users.Roles(ctx, user.ID)
	if err != nil {
		return ifsmail.Confirmation{}, err
	}
	token, _, err := s.tokens.SignAccess(user.ID, roles)
	if err != nil {
		return ifsmail.Confirmation{}, err
	}
	return s.mailer.SendResetPasswordEmail(ctx, user.Email, token)
}

// ResetPassword replaces the password of email's account. The token must be
// a valid access token whose subject is that same account.
func (s *Service) ResetPassword(ctx context.Context, email, password, token string) (err error) {
	ctx, span := s.tracer.Start(ctx, "auth.ResetPassword")
	defer func() { endSpan(span, err) }()

	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: user not found", ErrUnauthorized)
	}
	if err != nil {
		return err
	}
	claims, err := s.tokens.VerifyAccess(token)
	if err != nil {
		return ErrInvalidToken
	}
	subject, err := s.users.FindByID(ctx, claims.Subject)
	if errors.Is(err, ErrNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return err
	}
	if subject.ID != user.ID {
		return ErrInvalidToken
	}
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.UpdatePasswordHash(ctx, subject.ID, hash)
}

// Authenticate verifies an access token and returns the principal it names.
func (s *Service) Authenticate(_ context.Context, accessToken string) (Principal, error) {
	claims, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	return NewPrincipal(claims.Subject, claims.Roles, claims.Permissions), nil
}

// CurrentUser loads the profile and roles of userID.
func (s *Service) CurrentUser(ctx context.Context, userID string) (PublicUser, []Role, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return PublicUser{}, nil, err
	}
	roles, err := s.users.Roles(ctx, user.ID)
	if err != nil {
		return PublicUser{}, nil, err
	}
	return ToPublicUser(user), roles, nil
}

func (s *Service) issueSession(ctx context.Context, user User) (Session, error) {
	roles, err := s.users.Roles(ctx, user.ID)
	if err != nil {
		return Session{}, err
	}
	access, accessExp, err := s.tokens.SignAccess(user.ID, roles)
	if err != nil {
		return Session{}, err
	}
	refresh, refreshExp, err := s.tokens.SignRefresh(user.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{
		User:             ToPublicUser(user),
		Roles:            roles,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func validateRegistration(email, password, name string) error {
	if email == "" || password == "" {
		return fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(email) > maxEmailLen {
		return fmt.Errorf("%w: email must be less than %d characters", ErrInvalidInput, maxEmailLen)
	}
	if _, err := mail.ParseAddress(email); err != nil || strings.ContainsAny(email, "<> ") {
		return fmt.Errorf("%w: email is invalid", ErrInvalidInput)
	}
	if err := validatePassword(password); err != nil {
		return err
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return fmt.Errorf("%w: name must be less than %d characters", ErrInvalidInput, maxNameLen)
	}
	return nil
}

func validatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}
	if n > maxPasswordLen {
		return fmt.Errorf("%w: password must be less than %d characters", ErrInvalidInput, maxPasswordLen)
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
