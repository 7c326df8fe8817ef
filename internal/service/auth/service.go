package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/splax/housechat/internal/apperr"
	"github.com/splax/housechat/internal/domain"
	"github.com/splax/housechat/internal/repository"
	"github.com/splax/housechat/pkg/config"
	"github.com/splax/housechat/pkg/crypto"
	jwtpkg "github.com/splax/housechat/pkg/jwt"
)

// MinPasswordLength is the shortest password Signup accepts.
const MinPasswordLength = 8

// Service handles authentication workflows.
type Service struct {
	accounts repository.AccountRepository
	profiles repository.ProfileRepository
	logger   *slog.Logger
	cfg      config.APIConfig
}

// New constructs a Service.
func New(accounts repository.AccountRepository, profiles repository.ProfileRepository, logger *slog.Logger, cfg config.APIConfig) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return Service{accounts: accounts, profiles: profiles, logger: logger, cfg: cfg}
}

// TokenPair contains access and refresh tokens.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// Account is what signup and login hand back to the caller.
type Account struct {
	User    *domain.User
	Profile *domain.Profile
	Tokens  TokenPair
}

// SignupInput carries the fields of a registration request.
type SignupInput struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// Signup registers a user and its profile in one atomic write.
func (s Service) Signup(ctx context.Context, in SignupInput) (Account, error) {
	email := domain.NormalizeEmail(in.Email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return Account{}, apperr.Validation("a valid email is required")
	}
	if len(in.Password) < MinPasswordLength {
		return Account{}, apperr.Validation(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Account{}, apperr.Validation("name is required")
	}
	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return Account{}, apperr.Validation("role must be owner or housekeeper")
	}

	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return Account{}, apperr.Store(err)
	}
	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
	}
	profile := &domain.Profile{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Name:      name,
		Role:      role,
		CreatedAt: now,
	}
	if err := s.accounts.CreateAccount(ctx, user, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return Account{}, apperr.ErrDuplicateEmail
		}
		return Account{}, apperr.Store(err)
	}
	tokens, err := s.issueTokens(user.ID, role)
	if err != nil {
		return Account{}, err
	}
	s.logger.Info("user registered", "user_id", user.ID, "role", role)
	return Account{User: user, Profile: profile, Tokens: tokens}, nil
}

// Login authenticates a user and returns tokens.
func (s Service) Login(ctx context.Context, email, password string) (Account, error) {
	user, err := s.accounts.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Account{}, apperr.ErrInvalidCredentials
		}
		return Account{}, apperr.Store(err)
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		return Account{}, apperr.ErrInvalidCredentials
	}
	profile, err := s.profile(ctx, user.ID)
	if err != nil {
		return Account{}, err
	}
	tokens, err := s.issueTokens(user.ID, profile.Role)
	if err != nil {
		return Account{}, err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return Account{User: user, Profile: profile, Tokens: tokens}, nil
}

// Refresh exchanges a refresh token for a new pair. The role is re-read from
// the profile so a refreshed access token never outlives its account.
func (s Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.parse(refreshToken, jwtpkg.TypeRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	profile, err := s.profile(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrProfileNotFound) {
			return TokenPair{}, apperr.Unauthenticated("account no longer exists")
		}
		return TokenPair{}, err
	}
	return s.issueTokens(profile.UserID, profile.Role)
}

// Authorize validates a bearer access token and returns the identity it
// carries. The role is taken from the token; no store read happens here.
func (s Service) Authorize(token string) (domain.Identity, error) {
	claims, err := s.parse(token, jwtpkg.TypeAccess)
	if err != nil {
		return domain.Identity{}, err
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil || claims.UserID == "" {
		return domain.Identity{}, apperr.Unauthenticated("invalid token claims")
	}
	return domain.Identity{UserID: claims.UserID, Role: role}, nil
}

func (s Service) parse(token string, typ jwtpkg.TokenType) (*jwtpkg.Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, apperr.Unauthenticated("token required")
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret, typ)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnauthenticated, "invalid or expired token", err)
	}
	return claims, nil
}

func (s Service) profile(ctx context.Context, userID string) (*domain.Profile, error) {
	profile, err := s.profiles.GetProfileByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrProfileNotFound
		}
		return nil, apperr.Store(err)
	}
	return profile, nil
}

func (s Service) issueTokens(userID string, role domain.Role) (TokenPair, error) {
	access, err := jwtpkg.GenerateToken(userID, role.String(), jwtpkg.TypeAccess, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, apperr.Wrap(apperr.CodeStore, "issue access token", err)
	}
	refresh, err := jwtpkg.GenerateToken(userID, role.String(), jwtpkg.TypeRefresh, s.cfg.JWTSecret, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, apperr.Wrap(apperr.CodeStore, "issue refresh token", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: s.cfg.AccessTokenTTL}, nil
}
