package auth

import (
	"context"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

type TokenProvider interface {
	Issue(userID uuid.UUID, role types.UserRole) (string, error)
	Validate(ctx context.Context, token string) (*Claims, error)
}
