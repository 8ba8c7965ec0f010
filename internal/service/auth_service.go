package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/storyswap/storyswap-api/internal/auth"
	"github.com/storyswap/storyswap-api/internal/config"
	"github.com/storyswap/storyswap-api/internal/domain"
	"github.com/storyswap/storyswap-api/internal/events"
	"github.com/storyswap/storyswap-api/internal/observability"
	"github.com/storyswap/storyswap-api/internal/persistence"
	"github.com/storyswap/storyswap-api/internal/repository"
	"github.com/storyswap/storyswap-api/internal/tokens"
)

// Credential and flow errors surfaced to handlers.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrAccountSuspended   = errors.New("account suspended")
	ErrAlreadyVerified    = errors.New("email already verified")
)

// Outbound email throttle window per address.
const sendThrottleTTL = time.Minute

// AuthService coordinates registration, login and the one-shot email flows.
type AuthService struct {
	users      repository.UserRepository
	issuer     *tokens.Issuer
	verifier   *tokens.Verifier
	dispatcher events.Dispatcher
	redis      *persistence.Redis
	metrics    *observability.Metrics
	logger     *zap.Logger
	bcryptCost int
}

// AuthDependencies encapsulates collaborator requirements for auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Issuer     *tokens.Issuer
	Verifier   *tokens.Verifier
	Dispatcher events.Dispatcher
	Redis      *persistence.Redis
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		issuer:     deps.Issuer,
		verifier:   deps.Verifier,
		dispatcher: deps.Dispatcher,
		redis:      deps.Redis,
		metrics:    deps.Metrics,
		logger:     logger,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// Register creates a new member account, returns a token pair and kicks off
// email verification.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*domain.User, tokens.Pair, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, tokens.Pair{}, ErrEmailTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, tokens.Pair{}, err
	}
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, tokens.Pair{}, ErrUsernameTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, tokens.Pair{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, tokens.Pair{}, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, tokens.Pair{}, err
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, tokens.Pair{}, err
	}

	s.publish(ctx, events.EventUserRegistered, user.ID, events.UserRegisteredPayload{
		Username: user.Username,
		Email:    user.Email,
	})
	s.sendVerificationEmail(ctx, user)

	return user, pair, nil
}

// Login authenticates a member by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, tokens.Pair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tokens.Pair{}, ErrInvalidCredentials
		}
		return nil, tokens.Pair{}, err
	}
	if user.Status != domain.UserStatusActive {
		return nil, tokens.Pair{}, ErrAccountSuspended
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, tokens.Pair{}, ErrInvalidCredentials
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, tokens.Pair{}, err
	}
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a fresh pair. The user record
// is reloaded so role and verification changes take effect on rotation.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (tokens.Pair, error) {
	claims, err := s.verifier.VerifyRefreshToken(refreshToken)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordTokenRejected(string(tokens.ClassRefresh), "verify")
		}
		return tokens.Pair{}, err
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tokens.Pair{}, ErrInvalidCredentials
		}
		return tokens.Pair{}, err
	}
	if user.Status != domain.UserStatusActive {
		return tokens.Pair{}, ErrAccountSuspended
	}

	return s.issuePair(user)
}

// Logout is a no-op: tokens are stateless and expire on their own, so
// revocation is advisory and the client simply discards the pair.
func (s *AuthService) Logout(_ context.Context, _ string) error {
	return nil
}

// ResendVerification issues a fresh email verification token for an
// unverified account.
func (s *AuthService) ResendVerification(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return ErrAlreadyVerified
	}
	s.sendVerificationEmail(ctx, user)
	return nil
}

// ConfirmEmailVerification validates the one-shot token and marks the
// account verified.
func (s *AuthService) ConfirmEmailVerification(ctx context.Context, token string) error {
	claims, err := s.verifier.VerifyEmailVerificationToken(token)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordTokenRejected(string(tokens.ClassEmailVerification), "verify")
		}
		return err
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tokens.ErrInvalidVerificationToken
		}
		return err
	}
	if user.EmailVerified {
		return nil
	}

	if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
		return err
	}
	s.publish(ctx, events.EventEmailVerified, user.ID, events.EmailVerifiedPayload{Email: user.Email})
	return nil
}

// RequestPasswordReset issues a reset token for the given address. Unknown
// addresses succeed silently so the endpoint cannot be used to probe for
// accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		return err
	}

	if !s.allowSend(ctx, "throttle:password_reset:"+user.Email) {
		return nil
	}

	token, err := s.issuer.IssuePasswordResetToken(profileFromUser(user))
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordTokenIssued(string(tokens.ClassPasswordReset))
	}
	s.publish(ctx, events.EventPasswordResetRequested, user.ID, events.PasswordResetRequestedPayload{
		Email: user.Email,
		Token: token,
	})
	return nil
}

// ConfirmPasswordReset validates the one-shot token and replaces the
// password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	claims, err := s.verifier.VerifyPasswordResetToken(token)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordTokenRejected(string(tokens.ClassPasswordReset), "verify")
		}
		return err
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tokens.ErrInvalidResetToken
		}
		return err
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	s.publish(ctx, events.EventPasswordChanged, user.ID, events.PasswordChangedPayload{Email: user.Email})
	return nil
}

// ChangePassword verifies the current password before updating to new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	s.publish(ctx, events.EventPasswordChanged, user.ID, events.PasswordChangedPayload{Email: user.Email})
	return nil
}

func (s *AuthService) issuePair(user *domain.User) (tokens.Pair, error) {
	pair, err := s.issuer.IssuePair(profileFromUser(user))
	if err != nil {
		return tokens.Pair{}, err
	}
	if s.metrics != nil {
		s.metrics.RecordTokenIssued(string(tokens.ClassAccess))
		s.metrics.RecordTokenIssued(string(tokens.ClassRefresh))
	}
	return pair, nil
}

func (s *AuthService) sendVerificationEmail(ctx context.Context, user *domain.User) {
	if !s.allowSend(ctx, "throttle:verify_email:"+user.Email) {
		return
	}

	token, err := s.issuer.IssueEmailVerificationToken(profileFromUser(user))
	if err != nil {
		s.logger.Error("failed to issue verification token", zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.RecordTokenIssued(string(tokens.ClassEmailVerification))
	}
	s.publish(ctx, events.EventEmailVerificationRequested, user.ID, events.EmailVerificationRequestedPayload{
		Email: user.Email,
		Token: token,
	})
}

// allowSend consults the redis throttle. A redis outage fails open so email
// delivery does not depend on the cache.
func (s *AuthService) allowSend(ctx context.Context, key string) bool {
	if s.redis == nil {
		return true
	}
	ok, err := s.redis.AcquireOnce(ctx, key, sendThrottleTTL)
	if err != nil {
		s.logger.Warn("send throttle unavailable", zap.Error(err))
		return true
	}
	if !ok {
		s.logger.Info("send throttled", zap.String("key", key))
	}
	return ok
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, userID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

func profileFromUser(user *domain.User) tokens.Profile {
	return tokens.Profile{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     string(user.Role),
		Verified: user.EmailVerified,
	}
}
