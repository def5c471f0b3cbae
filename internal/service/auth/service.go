package auth

import (
	"context"
	"time"

	"github.com/claritydx/feesched-api/pkg/auth"
	apperrors "github.com/claritydx/feesched-api/pkg/errors"
	"github.com/claritydx/feesched-api/pkg/logger"
	"github.com/claritydx/feesched-api/pkg/security"

	"github.com/claritydx/feesched-api/internal/model"
	"github.com/claritydx/feesched-api/internal/repository"
)

// LoginResult carries the issued token and the authenticated user.
type LoginResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type AuthServicer interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
}

type Service struct {
	users  repository.UserRepository
	hasher security.PasswordHasher
	jwt    auth.JWTService
	now    func() time.Time
	logger *logger.Logger
}

func NewService(
	users repository.UserRepository,
	hasher security.PasswordHasher,
	jwt auth.JWTService,
	log *logger.Logger,
) *Service {
	return &Service{
		users:  users,
		hasher: hasher,
		jwt:    jwt,
		now:    time.Now,
		logger: log,
	}
}

// Login verifies credentials and issues an access token. Unknown users and
// wrong passwords return the same error so the response leaks nothing.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, apperrors.Unauthorized(err)
	}

	token, err := s.jwt.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID.String(), s.now()); err != nil {
		// Non-fatal; the login already succeeded.
		if s.logger != nil {
			s.logger.Warn(err, "failed to record last login")
		}
	}

	return &LoginResult{Token: token, User: user}, nil
}

var _ AuthServicer = (*Service)(nil)
