// Package resets stores the pending password reset of each user.
package resets

import (
	"context"
	"time"

	"github.com/dmitrijs2005/credkeeper/internal/server/models"
)

// Repository defines operations on the per-user reset record.
type Repository interface {
	// Save replaces any pending reset of userID with token in one statement,
	// so concurrent requests never leave two live records.
	Save(ctx context.Context, userID string, token string) error

	// Find returns the pending reset of userID or common.ErrorNotFound.
	Find(ctx context.Context, userID string) (*models.PasswordReset, error)

	// FindForUpdate is Find with a row lock held until the enclosing
	// transaction ends.
	FindForUpdate(ctx context.Context, userID string) (*models.PasswordReset, error)

	Delete(ctx context.Context, userID string) (int64, error)

	// DeleteOlderThan purges resets created before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
