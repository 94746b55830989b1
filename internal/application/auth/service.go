package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-signup-nosql/internal/application/otp"
	"github.com/go-signup-nosql/internal/domain"
	"github.com/go-signup-nosql/internal/infrastructure/smtp"
	"github.com/go-signup-nosql/internal/infrastructure/sns"
	"github.com/go-signup-nosql/internal/observability/metrics"
	"github.com/go-signup-nosql/internal/pkg/id"
	"github.com/go-signup-nosql/internal/pkg/validate"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	msgValidationFailed = "Validation failed"
	msgEmailRegistered  = "User with this email already exists"
	msgUserExists       = "User with this email or username already exists"
	msgNotVerified      = "Email not verified. Please verify your email first."
	msgUsernameTaken    = "Username is already taken"
	msgInvalidCreds     = "Invalid credentials"
	msgDeactivated      = "Account is deactivated"
	msgInternal         = "Internal server error"

	otpSubject = "Email Verification - OTP Code"
)

type userStore interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	Insert(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
}

type usernameResolver interface {
	Resolve(ctx context.Context, name string) (domain.Availability, error)
	MarkTaken(ctx context.Context, name string)
}

type codeManager interface {
	Issue(ctx context.Context, email string) (domain.OneTimeCode, error)
	Verify(ctx context.Context, email, candidate string) (otp.VerifyResult, error)
	Revoke(ctx context.Context, email string) error
}

type credentialManager interface {
	Issue(ctx context.Context, email string) (domain.VerificationCredential, error)
	IsLive(ctx context.Context, email string) (bool, error)
	Consume(ctx context.Context, email string) error
}

type sessionIssuer interface {
	Issue(ctx context.Context, u *domain.User) (*domain.Session, error)
	Revoke(ctx context.Context, userID string) error
}

// Service is the signup and login surface. Every error it returns is a
// *domain.Error whose Kind tells the caller what went wrong.
type Service interface {
	RequestCode(ctx context.Context, req domain.RequestCodeRequest) error
	VerifyCode(ctx context.Context, req domain.VerifyCodeRequest) (*domain.VerificationCredential, error)
	CheckAvailability(ctx context.Context, req domain.CheckUsernameRequest) (domain.Availability, error)
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResult, error)
	Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResult, error)
	CurrentUser(ctx context.Context, userID string) (*domain.User, error)
	Logout(ctx context.Context, userID string) error
}

type ServiceDeps struct {
	Users        userStore
	Usernames    usernameResolver
	Codes        codeManager
	Verification credentialManager
	Sessions     sessionIssuer
	Mailer       smtp.Mailer
	Events       sns.EventPublisher // optional
	BcryptCost   int
	Logger       *zap.Logger
}

type service struct {
	users        userStore
	usernames    usernameResolver
	codes        codeManager
	verification credentialManager
	sessions     sessionIssuer
	mailer       smtp.Mailer
	events       sns.EventPublisher
	bcryptCost   int
	now          func() time.Time
	log          *zap.Logger
}

func NewService(d ServiceDeps) Service {
	cost := d.BcryptCost
	if cost == 0 {
		cost = 12
	}
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &service{
		users:        d.Users,
		usernames:    d.Usernames,
		codes:        d.Codes,
		verification: d.Verification,
		sessions:     d.Sessions,
		mailer:       d.Mailer,
		events:       d.Events,
		bcryptCost:   cost,
		now:          time.Now,
		log:          log.Named("auth"),
	}
}

func (s *service) RequestCode(ctx context.Context, req domain.RequestCodeRequest) error {
	req.Email = validate.Normalize(req.Email)
	if errs := validate.Struct(req); errs != nil {
		return domain.Validation(msgValidationFailed, errs...)
	}
	email := req.Email

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return s.transient("check email", err)
	}
	if exists {
		return domain.Conflict(msgEmailRegistered)
	}

	code, err := s.codes.Issue(ctx, email)
	if err != nil {
		return s.transient("issue code", err)
	}
	if err := s.mailer.SendEmail(email, otpSubject, otpBody(code)); err != nil {
		if rerr := s.codes.Revoke(ctx, email); rerr != nil {
			s.log.Warn("could not revoke undelivered code", zap.String("email", email), zap.Error(rerr))
		}
		s.log.Error("code delivery failed", zap.String("email", email), zap.Error(err))
		return domain.Transient("Failed to send OTP email", err)
	}
	return nil
}

func (s *service) VerifyCode(ctx context.Context, req domain.VerifyCodeRequest) (*domain.VerificationCredential, error) {
	req.Email = validate.Normalize(req.Email)
	req.OTP = strings.TrimSpace(req.OTP)
	if errs := validate.Struct(req); errs != nil {
		return nil, domain.Validation(msgValidationFailed, errs...)
	}
	email := req.Email

	res, err := s.codes.Verify(ctx, email, req.OTP)
	if err != nil {
		return nil, s.transient("verify code", err)
	}
	if !res.Valid {
		return nil, domain.Validation(res.Message)
	}
	cred, err := s.verification.Issue(ctx, email)
	if err != nil {
		return nil, s.transient("issue verification credential", err)
	}
	return &cred, nil
}

func (s *service) CheckAvailability(ctx context.Context, req domain.CheckUsernameRequest) (domain.Availability, error) {
	if errs := validate.Username(req.Username); errs != nil {
		return domain.Availability{Username: req.Username}, domain.Validation("Invalid username format", errs...)
	}
	return s.usernames.Resolve(ctx, req.Username)
}

// Register runs each stage as a hard gate; nothing is written before the
// store insert and nothing after it can undo the account.
func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResult, error) {
	res, err := s.register(ctx, req)
	metrics.RegistrationsTotal.WithLabelValues(resultLabel(err)).Inc()
	return res, err
}

func (s *service) register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResult, error) {
	req.Email = validate.Normalize(req.Email)
	errs := validate.Struct(req)
	username, password, credErrs := validate.Credentials(req.Credentials)
	if req.Credentials != "" {
		errs = append(errs, credErrs...)
	}
	if len(errs) > 0 {
		return nil, domain.Validation(msgValidationFailed, errs...)
	}
	email := req.Email
	username = validate.Normalize(username)

	live, err := s.verification.IsLive(ctx, email)
	if err != nil {
		return nil, s.transient("check verification", err)
	}
	if !live {
		return nil, domain.Precondition(msgNotVerified)
	}

	avail, err := s.usernames.Resolve(ctx, username)
	if err != nil {
		return nil, err
	}
	if !avail.Available {
		return nil, domain.Conflict(msgUsernameTaken)
	}

	exists, err := s.users.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, s.transient("check existing user", err)
	}
	if exists {
		return nil, domain.Conflict(msgUserExists)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, s.transient("hash password", err)
	}
	now := s.now().UTC()
	u := &domain.User{
		UserID:        id.New(),
		Email:         email,
		Username:      username,
		PasswordHash:  string(hash),
		IsActive:      true,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.users.Insert(ctx, u); err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			return nil, domain.Conflict(msgUserExists)
		}
		return nil, s.transient("insert user", err)
	}

	s.usernames.MarkTaken(ctx, username)
	sess, err := s.sessions.Issue(ctx, u)
	if err != nil {
		// The account is committed; a retry will see it as a conflict.
		s.log.Error("user committed but session not issued",
			zap.String("user_id", u.UserID), zap.String("username", username), zap.Error(err))
		return nil, domain.Transient(msgInternal, fmt.Errorf("issue session: %w", err))
	}
	if err := s.verification.Consume(ctx, email); err != nil {
		s.log.Warn("could not consume verification credential", zap.String("email", email), zap.Error(err))
	}
	s.publishRegistered(ctx, u)

	s.log.Info("user registered", zap.String("user_id", u.UserID), zap.String("username", username))
	return &domain.AuthResult{User: u, Session: sess}, nil
}

func (s *service) publishRegistered(ctx context.Context, u *domain.User) {
	if s.events == nil {
		return
	}
	ev := sns.UserRegistered{UserID: u.UserID, Email: u.Email, Username: u.Username, RegisteredAt: u.CreatedAt}
	if err := s.events.PublishUserRegistered(ctx, ev); err != nil {
		s.log.Warn("could not publish registration event", zap.String("user_id", u.UserID), zap.Error(err))
	}
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResult, error) {
	res, err := s.login(ctx, req)
	metrics.LoginsTotal.WithLabelValues(resultLabel(err)).Inc()
	return res, err
}

func (s *service) login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResult, error) {
	errs := validate.Struct(req)
	username, password, credErrs := validate.LoginCredentials(req.Credentials)
	if req.Credentials != "" {
		errs = append(errs, credErrs...)
	}
	if len(errs) > 0 {
		return nil, domain.Validation(msgValidationFailed, errs...)
	}

	u, err := s.users.GetByUsername(ctx, validate.Normalize(username))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Unauthorized(msgInvalidCreds)
	}
	if err != nil {
		return nil, s.transient("find user", err)
	}
	if !u.IsActive {
		return nil, domain.Unauthorized(msgDeactivated)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, domain.Unauthorized(msgInvalidCreds)
	}

	sess, err := s.sessions.Issue(ctx, u)
	if err != nil {
		return nil, s.transient("issue session", err)
	}
	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, u.UserID, now); err != nil {
		s.log.Warn("could not record last login", zap.String("user_id", u.UserID), zap.Error(err))
	} else {
		u.LastLogin = &now
		u.UpdatedAt = now
	}
	return &domain.AuthResult{User: u, Session: sess}, nil
}

func (s *service) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.users.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Unauthorized("User not found")
	}
	if err != nil {
		return nil, s.transient("get user", err)
	}
	if !u.IsActive {
		return nil, domain.Unauthorized(msgDeactivated)
	}
	return u, nil
}

func (s *service) Logout(ctx context.Context, userID string) error {
	return s.sessions.Revoke(ctx, userID)
}

func (s *service) transient(op string, err error) error {
	s.log.Error(op+" failed", zap.Error(err))
	return domain.Transient(msgInternal, fmt.Errorf("%s: %w", op, err))
}

func otpBody(code domain.OneTimeCode) string {
	return fmt.Sprintf("Your OTP code for email verification is: %s. This code will expire in %d minutes.",
		code.Code, int(code.TTL.Minutes()))
}

func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	return domain.KindOf(err).String()
}
