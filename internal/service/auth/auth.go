package auth

import (
	"context"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

// AuthService turns bearer tokens into callers. Accounts live in an external
// identity service, so a valid token is the whole proof of identity.
type AuthService struct {
	tokens TokenProvider
	log    logger.Logger
}

func NewAuthService(tokens TokenProvider, log logger.Logger) *AuthService {
	return &AuthService{
		tokens: tokens,
		log:    log,
	}
}

func (s *AuthService) RoleCheck(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Validate(ctx, token)
	if err != nil {
		s.log.Debug(ctx, "access token rejected", "error", err.Error())
		return nil, err
	}

	switch claims.Role {
	case types.DriverRole, types.AdminRole, types.PassengerRole:
	default:
		return nil, ErrInvalidRole
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &models.User{ID: id, Role: claims.Role}, nil
}
