package ports

import (
	"context"

	"github.com/nimbusworks/platform-api/internal/core/domain"
)

// UserRepository defines persistence for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context, organizationID string, page, limit int) ([]domain.User, int64, error)
	UpdateRole(ctx context.Context, id string, role domain.Role) error
}
