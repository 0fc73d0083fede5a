package users

import (
	"context"

	"github.com/dmitrijs2005/credkeeper/internal/server/models"
)

// Repository stores identities.
type Repository interface {
	// Create inserts user and fills in its ID and CreatedAt. A taken email
	// yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)

	// Activate marks the owner of link as activated. It reports false when no
	// user owns the link. Activating twice is not an error.
	Activate(ctx context.Context, link string) (bool, error)

	UpdatePassword(ctx context.Context, id string, passwordHash string) error
}
