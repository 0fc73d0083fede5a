// Package sessions declares and implements storage of the single live
// refresh token each user holds.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/credkeeper/internal/server/models"
)

// Repository defines operations on the per-user session record.
type Repository interface {
	// Save upserts the session of userID; any previous token is replaced.
	Save(ctx context.Context, userID string, token string) error

	// Find looks a session up by its exact token value and returns
	// common.ErrorNotFound when no live session holds it.
	Find(ctx context.Context, token string) (*models.Session, error)

	// Rotate swaps oldToken for newToken in one conditional statement. It
	// reports false when userID does not currently hold oldToken.
	Rotate(ctx context.Context, userID, oldToken, newToken string) (bool, error)

	// Delete removes the session holding token and returns how many rows
	// were removed. Deleting a non-existent token is not an error.
	Delete(ctx context.Context, token string) (int64, error)
}
